// Package scanner acquires access point observations from a WiFi adapter
// and enumerates the adapters available for recording.
package scanner

import (
	"context"
	"errors"

	"github.com/HerbHall/wificomp/pkg/models"
)

// Failure reasons a Source may report. Callers match them with errors.Is.
var (
	ErrAdapterUnavailable = errors.New("adapter unavailable")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrTimeout            = errors.New("scan timed out")
	ErrDeviceBusy         = errors.New("device busy")
)

// Source produces one fresh snapshot of visible access points per call.
// Implementations must be safe to call repeatedly.
type Source interface {
	Scan(ctx context.Context, iface string) ([]models.Observation, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, iface string) ([]models.Observation, error)

// Scan calls f.
func (f SourceFunc) Scan(ctx context.Context, iface string) ([]models.Observation, error) {
	return f(ctx, iface)
}

// Reason returns a short label for a scan error, for metrics and status lines.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionDenied):
		return "permission"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrDeviceBusy):
		return "busy"
	case errors.Is(err, ErrAdapterUnavailable):
		return "unavailable"
	default:
		return "other"
	}
}
