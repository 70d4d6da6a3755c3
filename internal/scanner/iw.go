package scanner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/wificomp/pkg/models"
)

// DefaultScanTimeout bounds a single `iw scan` invocation.
const DefaultScanTimeout = 30 * time.Second

// Runner executes an external command and returns its output streams.
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// IWSource scans by running `iw dev <iface> scan`, through sudo when the
// process is not root.
type IWSource struct {
	logger  *zap.Logger
	run     Runner
	timeout time.Duration
	isRoot  func() bool
}

// Compile-time interface guard.
var _ Source = (*IWSource)(nil)

// IWOption configures an IWSource.
type IWOption func(*IWSource)

// WithRunner replaces the command runner.
func WithRunner(r Runner) IWOption {
	return func(s *IWSource) { s.run = r }
}

// WithTimeout sets the per-scan timeout.
func WithTimeout(d time.Duration) IWOption {
	return func(s *IWSource) { s.timeout = d }
}

// WithRootCheck overrides the effective-uid check.
func WithRootCheck(fn func() bool) IWOption {
	return func(s *IWSource) { s.isRoot = fn }
}

// NewIWSource returns a Source backed by the iw utility.
func NewIWSource(logger *zap.Logger, opts ...IWOption) *IWSource {
	s := &IWSource{
		logger:  logger,
		run:     ExecRunner,
		timeout: DefaultScanTimeout,
		isRoot:  isRoot,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Scan runs one scan pass on iface.
func (s *IWSource) Scan(ctx context.Context, iface string) ([]models.Observation, error) {
	if iface == "" {
		return nil, fmt.Errorf("%w: no interface", ErrAdapterUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	name, args := "iw", []string{"dev", iface, "scan"}
	if !s.isRoot() {
		name, args = "sudo", append([]string{"-n", "iw"}, args...)
	}

	start := time.Now()
	stdout, stderr, err := s.run(ctx, name, args...)
	if err != nil {
		return nil, classify(ctx, err, stderr)
	}

	obs := parseScanOutput(string(stdout))
	s.logger.Debug("scan completed",
		zap.String("interface", iface),
		zap.Int("access_points", len(obs)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return obs, nil
}

func classify(ctx context.Context, err error, stderr []byte) error {
	msg := strings.TrimSpace(string(stderr))
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, exec.ErrNotFound):
		return fmt.Errorf("%w: iw not installed: %v", ErrAdapterUnavailable, err)
	case strings.Contains(msg, "Operation not permitted"),
		strings.Contains(msg, "a password is required"):
		return fmt.Errorf("%w: run as root or grant CAP_NET_ADMIN", ErrPermissionDenied)
	case strings.Contains(msg, "Device or resource busy"):
		return fmt.Errorf("%w: another scan may be in progress", ErrDeviceBusy)
	case strings.Contains(msg, "No such device"), strings.Contains(msg, "Network is down"):
		return fmt.Errorf("%w: %s", ErrAdapterUnavailable, msg)
	case msg != "":
		return fmt.Errorf("scan failed: %s", msg)
	default:
		return fmt.Errorf("scan failed: %w", err)
	}
}

// bssBuilder accumulates the fields of one BSS block.
type bssBuilder struct {
	bssid   string
	ssid    string
	signal  *int
	freq    *int
	channel *int
}

func (b *bssBuilder) build() (models.Observation, bool) {
	if b.signal == nil || b.freq == nil {
		return models.Observation{}, false
	}
	ch := models.FrequencyToChannel(*b.freq)
	if b.channel != nil {
		ch = *b.channel
	}
	o, err := models.NewObservation(b.bssid, b.ssid, *b.signal, ch, *b.freq)
	if err != nil {
		return models.Observation{}, false
	}
	return o, true
}

// parseScanOutput extracts observations from `iw dev <if> scan` output.
// Blocks missing a signal or frequency, or with a bad BSSID, are skipped.
func parseScanOutput(out string) []models.Observation {
	var (
		aps []models.Observation
		cur *bssBuilder
	)
	flush := func() {
		if cur == nil {
			return
		}
		if o, ok := cur.build(); ok {
			aps = append(aps, o)
		}
		cur = nil
	}

	sc := bufio.NewScanner(strings.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())

		if rest, ok := strings.CutPrefix(line, "BSS "); ok {
			flush()
			bssid, _, _ := strings.Cut(rest, "(")
			cur = &bssBuilder{bssid: strings.TrimSpace(bssid)}
			continue
		}
		if cur == nil {
			continue
		}

		switch {
		case strings.HasPrefix(line, "signal: "):
			fields := strings.Fields(strings.TrimPrefix(line, "signal: "))
			if len(fields) == 0 {
				continue
			}
			if f, err := strconv.ParseFloat(fields[0], 64); err == nil {
				if v, err := models.SignalFromFloat(f); err == nil {
					cur.signal = &v
				}
			}
		case strings.HasPrefix(line, "SSID: "):
			cur.ssid = strings.TrimPrefix(line, "SSID: ")
		case line == "SSID:":
			cur.ssid = ""
		case strings.HasPrefix(line, "freq: "):
			if f, err := strconv.ParseFloat(strings.TrimPrefix(line, "freq: "), 64); err == nil {
				v := int(math.Round(f))
				cur.freq = &v
			}
		case strings.HasPrefix(line, "DS Parameter set: channel "):
			if v, err := strconv.Atoi(strings.TrimPrefix(line, "DS Parameter set: channel ")); err == nil {
				cur.channel = &v
			}
		case strings.HasPrefix(line, "* primary channel: "):
			if v, err := strconv.Atoi(strings.TrimPrefix(line, "* primary channel: ")); err == nil {
				cur.channel = &v
			}
		}
	}
	flush()
	return aps
}
