// Package live drives periodic and manual acquisition of scan samples into
// the active recording session.
package live

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/HerbHall/wificomp/internal/event"
	"github.com/HerbHall/wificomp/internal/exclusion"
	"github.com/HerbHall/wificomp/internal/scanner"
	"github.com/HerbHall/wificomp/pkg/models"
)

// Sentinel errors returned by Controller operations.
var (
	ErrNoAdapter     = errors.New("no adapter bound")
	ErrAlreadyBound  = errors.New("adapter already bound")
	ErrTimedOut      = errors.New("session duration elapsed")
	ErrInvalidPeriod = errors.New("interval must be positive")
)

// State is the controller's position in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateArmed
	StateAutoScanning
	StateManualOnly
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateArmed:
		return "armed"
	case StateAutoScanning:
		return "auto-scanning"
	case StateManualOnly:
		return "manual"
	case StateTimedOut:
		return "timed-out"
	default:
		return "idle"
	}
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Config holds the tunables of a Controller.
type Config struct {
	// Interval between timer-driven scans.
	Interval time.Duration
	// Duration is the session target; zero records until stopped.
	Duration time.Duration
	// AutoScan starts the timer as soon as an adapter is bound.
	AutoScan bool
	// ManualSpacing is the minimum gap between manual scan requests.
	ManualSpacing time.Duration
	// TickEvery is how often Run checks the schedule.
	TickEvery time.Duration
}

// DefaultConfig matches the stock settings.
func DefaultConfig() Config {
	return Config{
		Interval:      5 * time.Second,
		Duration:      300 * time.Second,
		AutoScan:      true,
		ManualSpacing: time.Second,
		TickEvery:     250 * time.Millisecond,
	}
}

// Result is the outcome of one acquisition, delivered on Events.
type Result struct {
	Seq          uint64
	Manual       bool
	Started      time.Time
	Finished     time.Time
	Observations []models.Observation
	Err          error
}

// Controller owns the active session. It is not safe for concurrent use:
// drive it from one goroutine, as Run does. Only the acquisition task runs
// elsewhere, and it talks back through the events channel.
type Controller struct {
	logger   *zap.Logger
	source   scanner.Source
	registry *exclusion.Registry
	bus      event.Publisher
	clock    Clock
	cfg      Config
	limiter  *rate.Limiter

	state     State
	finalized bool
	adapter   models.AdapterInfo
	session   *models.Session
	sessionID string

	inFlight bool
	seq      uint64
	// firstSeq is the first acquisition issued for the bound session.
	firstSeq uint64
	nextDue  time.Time
	results  chan Result
	scanCtx  context.Context
	cancel   context.CancelFunc

	latest       []models.Observation
	lastScanAt   time.Time
	lastErr      error
	lastErrAt    time.Time
	failures     int
	lastExcluded int
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

// WithBus publishes controller events on bus.
func WithBus(bus event.Publisher) Option {
	return func(ctl *Controller) { ctl.bus = bus }
}

// New returns an idle controller.
func New(source scanner.Source, registry *exclusion.Registry, cfg Config, logger *zap.Logger, opts ...Option) *Controller {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.ManualSpacing <= 0 {
		cfg.ManualSpacing = def.ManualSpacing
	}
	if cfg.TickEvery <= 0 {
		cfg.TickEvery = def.TickEvery
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		logger:   logger,
		source:   source,
		registry: registry,
		clock:    realClock{},
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Every(cfg.ManualSpacing), 1),
		results:  make(chan Result, 1),
		scanCtx:  ctx,
		cancel:   cancel,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Events delivers acquisition results. Each must be passed to Apply.
func (c *Controller) Events() <-chan Result {
	return c.results
}

// BindAdapter starts a new session on adapter and arms the controller.
func (c *Controller) BindAdapter(adapter models.AdapterInfo) error {
	if c.state != StateIdle {
		return ErrAlreadyBound
	}
	if adapter.Interface == "" {
		return fmt.Errorf("%w: adapter has no interface", ErrNoAdapter)
	}

	now := c.clock.Now()
	c.adapter = adapter
	c.session = models.NewSession(adapter, now, c.cfg.Duration)
	c.sessionID = uuid.New().String()
	c.finalized = false
	c.inFlight = false
	c.firstSeq = c.seq + 1
	c.latest = nil
	c.lastErr = nil
	c.failures = 0
	c.registry.BeginSession(c.sessionID)
	c.state = StateArmed

	c.logger.Info("adapter bound",
		zap.String("session_id", c.sessionID),
		zap.String("interface", adapter.Interface),
		zap.String("adapter", adapter.DisplayName()),
	)
	c.publish(event.TopicSessionStarted, event.SessionStarted{
		SessionID: c.sessionID,
		Interface: adapter.Interface,
		Adapter:   adapter.DisplayName(),
	})

	if c.cfg.AutoScan {
		return c.SetAutoScan(true)
	}
	return nil
}

// SetAutoScan enables or disables the periodic timer. Enabling schedules a
// scan immediately. An in-flight scan is never aborted.
func (c *Controller) SetAutoScan(on bool) error {
	if err := c.checkActive(); err != nil {
		return err
	}
	switch {
	case on && c.state != StateAutoScanning:
		c.state = StateAutoScanning
		c.nextDue = c.clock.Now()
	case !on && c.state == StateAutoScanning:
		c.state = StateManualOnly
	}
	c.logger.Debug("auto-scan changed", zap.Bool("enabled", on), zap.Stringer("state", c.state))
	return nil
}

// ToggleAutoScan flips the periodic timer.
func (c *Controller) ToggleAutoScan() error {
	return c.SetAutoScan(c.state != StateAutoScanning)
}

// SetInterval changes the timer period. The next due time is kept.
func (c *Controller) SetInterval(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidPeriod
	}
	c.cfg.Interval = d
	return nil
}

// SetDurationTarget changes the session target; zero removes it.
func (c *Controller) SetDurationTarget(d time.Duration) error {
	if err := c.checkActive(); err != nil {
		return err
	}
	c.cfg.Duration = d
	c.session.SetDurationTarget(d)
	return nil
}

// RequestScan starts a manual scan. It reports false when the request was
// coalesced because a scan is already in flight or requests are arriving
// faster than the manual spacing. The timer schedule is not changed.
func (c *Controller) RequestScan() (bool, error) {
	if err := c.checkActive(); err != nil {
		return false, err
	}
	if c.inFlight {
		c.logger.Debug("manual scan coalesced: scan in flight")
		return false, nil
	}
	if !c.limiter.AllowN(c.clock.Now(), 1) {
		c.logger.Debug("manual scan coalesced: rate limited")
		return false, nil
	}
	c.start(true)
	return true, nil
}

// Tick advances the schedule to now: it times the session out once its
// target has elapsed and otherwise starts a due timer scan.
func (c *Controller) Tick(now time.Time) {
	if c.state == StateIdle || c.finalized {
		return
	}
	if target, ok := c.session.DurationTarget(); ok && now.Sub(c.session.StartedAt) >= target {
		c.timeout()
		return
	}
	if c.state != StateAutoScanning || now.Before(c.nextDue) {
		return
	}
	c.nextDue = now.Add(c.cfg.Interval)
	if c.inFlight {
		c.logger.Debug("timer scan coalesced: scan in flight")
		return
	}
	c.start(false)
}

func (c *Controller) start(manual bool) {
	c.inFlight = true
	c.seq++
	seq := c.seq
	iface := c.adapter.Interface
	started := c.clock.Now()

	go func() {
		obs, err := c.source.Scan(c.scanCtx, iface)
		c.results <- Result{
			Seq:          seq,
			Manual:       manual,
			Started:      started,
			Finished:     c.clock.Now(),
			Observations: obs,
			Err:          err,
		}
	}()
}

// Apply folds a delivered result into the session. Failures are recorded
// and never end the session; results arriving after finalization are
// discarded.
func (c *Controller) Apply(res Result) {
	if res.Seq < c.firstSeq {
		c.logger.Warn("discarding scan result from a previous session",
			zap.Uint64("seq", res.Seq),
			zap.String("session_id", c.sessionID),
		)
		c.publish(event.TopicScanDiscarded, event.ScanDiscarded{
			SessionID: c.sessionID,
			Interface: c.adapter.Interface,
		})
		return
	}
	c.inFlight = false
	elapsed := res.Finished.Sub(res.Started)

	if c.finalized || c.session == nil {
		c.logger.Warn("discarding scan result for finalized session",
			zap.Uint64("seq", res.Seq),
			zap.String("session_id", c.sessionID),
		)
		c.publish(event.TopicScanDiscarded, event.ScanDiscarded{
			SessionID: c.sessionID,
			Interface: c.adapter.Interface,
		})
		return
	}

	if res.Err != nil {
		c.lastErr = res.Err
		c.lastErrAt = res.Finished
		c.failures++
		c.logger.Warn("scan failed",
			zap.String("interface", c.adapter.Interface),
			zap.String("reason", scanner.Reason(res.Err)),
			zap.Error(res.Err),
		)
		c.publish(event.TopicScanFailed, event.ScanFailed{
			SessionID: c.sessionID,
			Interface: c.adapter.Interface,
			Reason:    scanner.Reason(res.Err),
			Err:       res.Err,
			Duration:  elapsed,
		})
		return
	}

	valid := c.normalize(res.Observations)
	kept := c.registry.Filter(valid, exclusion.ScopeLive)
	ts := res.Finished
	if last, ok := c.session.LatestTimestamp(); ok && ts.Before(last) {
		ts = last
	}
	sample := models.NewScanSample(ts, kept)
	if err := c.session.Append(sample); err != nil {
		c.logger.Error("append sample", zap.Error(err))
		return
	}

	c.latest = sample.AccessPoints
	c.lastScanAt = sample.Timestamp
	c.lastErr = nil
	c.lastExcluded = len(valid) - len(kept)
	c.logger.Debug("sample appended",
		zap.Int("access_points", len(kept)),
		zap.Int("excluded", c.lastExcluded),
		zap.Int("scans", len(c.session.Scans)),
	)
	c.publish(event.TopicScanCompleted, event.ScanCompleted{
		SessionID: c.sessionID,
		Interface: c.adapter.Interface,
		APCount:   len(kept),
		Excluded:  c.lastExcluded,
		Manual:    res.Manual,
		Duration:  elapsed,
	})
}

// normalize canonicalizes BSSIDs and drops observations that fail
// validation.
func (c *Controller) normalize(obs []models.Observation) []models.Observation {
	out := make([]models.Observation, 0, len(obs))
	for _, o := range obs {
		n, err := models.NewObservation(o.BSSID, o.SSID, o.SignalDBm, o.Channel, o.FrequencyMHz)
		if err != nil {
			c.logger.Debug("dropping invalid observation",
				zap.String("interface", c.adapter.Interface),
				zap.String("bssid", o.BSSID),
				zap.Error(err),
			)
			continue
		}
		out = append(out, n)
	}
	return out
}

// ExcludeTransient hides key for the rest of the active session.
func (c *Controller) ExcludeTransient(key exclusion.Key) error {
	if c.session == nil {
		return ErrNoAdapter
	}
	return c.registry.AddTransient(c.sessionID, key)
}

// Snapshot returns a deep copy of the session for saving while recording
// continues.
func (c *Controller) Snapshot() (*models.Session, error) {
	if c.session == nil {
		return nil, ErrNoAdapter
	}
	return c.session.Clone(), nil
}

// Finalize ends the session and returns it. The returned session is never
// mutated again; later results are discarded. Finalize is idempotent.
func (c *Controller) Finalize() (*models.Session, error) {
	if c.session == nil {
		return nil, ErrNoAdapter
	}
	if !c.finalized {
		c.end(false)
	}
	return c.session, nil
}

// Close finalizes any session and cancels an in-flight scan.
func (c *Controller) Close() {
	if c.session != nil && !c.finalized {
		c.end(false)
	}
	c.cancel()
}

// Release finalizes any session and returns the controller to Idle so a
// new adapter can be bound.
func (c *Controller) Release() {
	if c.session != nil && !c.finalized {
		c.end(false)
	}
	c.state = StateIdle
	c.session = nil
	c.adapter = models.AdapterInfo{}
}

// Status describes the controller for display.
type Status struct {
	State      State
	Finalized  bool
	Adapter    models.AdapterInfo
	SessionID  string
	Scans      int
	InFlight   bool
	Latest     []models.Observation
	LastScanAt time.Time
	LastError  error
	LastErrAt  time.Time
	Failures   int
	Excluded   int
	Elapsed    time.Duration
	Target     time.Duration
	HasTarget  bool
	NextScanIn time.Duration
}

// Status reports the current state. Latest is shared; do not modify it.
func (c *Controller) Status() Status {
	st := Status{
		State:      c.state,
		Finalized:  c.finalized,
		Adapter:    c.adapter,
		SessionID:  c.sessionID,
		InFlight:   c.inFlight,
		Latest:     c.latest,
		LastScanAt: c.lastScanAt,
		LastError:  c.lastErr,
		LastErrAt:  c.lastErrAt,
		Failures:   c.failures,
		Excluded:   c.lastExcluded,
	}
	if c.session == nil {
		return st
	}
	now := c.clock.Now()
	st.Scans = len(c.session.Scans)
	st.Elapsed = now.Sub(c.session.StartedAt)
	st.Target, st.HasTarget = c.session.DurationTarget()
	if c.state == StateAutoScanning && !c.finalized && c.nextDue.After(now) {
		st.NextScanIn = c.nextDue.Sub(now)
	}
	return st
}

// Saved records that the session was written to path.
func (c *Controller) Saved(path string) {
	if c.session == nil {
		return
	}
	c.publish(event.TopicSessionSaved, event.SessionSaved{
		SessionID: c.sessionID,
		Path:      path,
		Scans:     len(c.session.Scans),
	})
}

func (c *Controller) timeout() {
	c.state = StateTimedOut
	c.end(true)
}

func (c *Controller) end(timedOut bool) {
	c.finalized = true
	c.registry.EndSession(c.sessionID)
	c.logger.Info("session ended",
		zap.String("session_id", c.sessionID),
		zap.Int("scans", len(c.session.Scans)),
		zap.Bool("timed_out", timedOut),
	)
	c.publish(event.TopicSessionEnded, event.SessionEnded{
		SessionID: c.sessionID,
		Scans:     len(c.session.Scans),
		TimedOut:  timedOut,
	})
}

func (c *Controller) checkActive() error {
	switch {
	case c.state == StateIdle:
		return ErrNoAdapter
	case c.state == StateTimedOut:
		return ErrTimedOut
	case c.finalized:
		return models.ErrSessionFinalized
	}
	return nil
}

func (c *Controller) publish(topic string, payload any) {
	if c.bus == nil {
		return
	}
	if err := c.bus.Publish(context.Background(), event.Event{
		Topic:     topic,
		Source:    "live",
		Timestamp: c.clock.Now(),
		Payload:   payload,
	}); err != nil {
		c.logger.Debug("publish failed", zap.String("topic", topic), zap.Error(err))
	}
}

// Command is a user action applied on the controller goroutine.
type Command func(*Controller)

// Run owns the controller until ctx is done. Delivered scan results are
// always applied before pending commands so sample order is preserved.
func (c *Controller) Run(ctx context.Context, cmds <-chan Command) error {
	ticker := time.NewTicker(c.cfg.TickEvery)
	defer ticker.Stop()

	c.Tick(c.clock.Now())
	for {
		select {
		case res := <-c.results:
			c.Apply(res)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-c.results:
			c.Apply(res)
		case cmd, ok := <-cmds:
			if !ok {
				cmds = nil
				continue
			}
			select {
			case res := <-c.results:
				c.Apply(res)
			default:
			}
			cmd(c)
		case <-ticker.C:
			c.Tick(c.clock.Now())
		}
	}
}
