package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/HerbHall/wificomp/pkg/models"
)

// BreakerSource stops calling a failing adapter for a cool-down period
// after several consecutive failures. While open, scans fail fast with
// ErrAdapterUnavailable.
type BreakerSource struct {
	next    Source
	circuit *gobreaker.CircuitBreaker
}

// Compile-time interface guard.
var _ Source = (*BreakerSource)(nil)

// BreakerConfig controls when the breaker trips.
type BreakerConfig struct {
	// ConsecutiveFailures trips the breaker (default 5).
	ConsecutiveFailures uint32
	// Cooldown is how long the breaker stays open (default 30s).
	Cooldown time.Duration
}

// NewBreakerSource wraps next with a circuit breaker.
func NewBreakerSource(next Source, cfg BreakerConfig, logger *zap.Logger) *BreakerSource {
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	threshold := cfg.ConsecutiveFailures

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "scan",
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("scan breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &BreakerSource{next: next, circuit: cb}
}

// Scan delegates to the wrapped source unless the breaker is open.
func (b *BreakerSource) Scan(ctx context.Context, iface string) ([]models.Observation, error) {
	res, err := b.circuit.Execute(func() (any, error) {
		obs, err := b.next.Scan(ctx, iface)
		if err != nil {
			return nil, err
		}
		return obs, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrAdapterUnavailable, err)
		}
		return nil, err
	}
	obs, _ := res.([]models.Observation)
	return obs, nil
}

// State reports the breaker state ("closed", "half-open", "open").
func (b *BreakerSource) State() string {
	return b.circuit.State().String()
}
