package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/HerbHall/wificomp/internal/event"
	"github.com/HerbHall/wificomp/internal/exclusion"
	"github.com/HerbHall/wificomp/internal/live"
	"github.com/HerbHall/wificomp/internal/metrics"
	"github.com/HerbHall/wificomp/internal/scanner"
	"github.com/HerbHall/wificomp/internal/sessionfile"
	"github.com/HerbHall/wificomp/pkg/models"
)

const recordHelp = `keys: s=scan now  a=toggle auto-scan  w=save  o=sort  f=band filter  t=timer
      x <bssid|ssid:name>=hide for this session  p <bssid|ssid:name>=hide permanently  q=quit`

func (e *cliEnv) commandRecord() *cli.Command {
	return &cli.Command{
		Name:  "record",
		Usage: "Record a scan session on one adapter",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "interface",
				Aliases: []string{"i"},
				Usage:   "WiFi interface to scan (default: first detected)",
			},
			&cli.StringFlag{
				Name:  "label",
				Usage: "Name this adapter in comparisons",
			},
			&cli.DurationFlag{
				Name:  "duration",
				Usage: "Stop after this long; 0 records until quit (default from config)",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Time between automatic scans (default from config)",
			},
			&cli.BoolFlag{
				Name:  "no-auto-scan",
				Usage: "Only scan on request",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on `ADDR` while recording",
			},
		},
		Action: e.runRecord,
	}
}

func (e *cliEnv) runRecord(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := e.openBackend(ctx)
	if err != nil {
		return err
	}
	defer be.Close()

	adapter, err := e.pickAdapter(ctx, c.String("interface"))
	if err != nil {
		return err
	}
	adapter.Label = c.String("label")

	cfg := live.DefaultConfig()
	cfg.Interval = e.settings.Scan.Interval
	cfg.Duration = e.settings.Scan.DefaultTimer
	cfg.AutoScan = e.settings.Scan.AutoScan && !c.Bool("no-auto-scan")
	if c.IsSet("interval") {
		cfg.Interval = c.Duration("interval")
	}
	if c.IsSet("duration") {
		cfg.Duration = c.Duration("duration")
	}

	bus := event.NewBus(e.logger)
	collector := metrics.New(e.logger)
	collector.Attach(bus)
	defer collector.Detach()

	addr := e.settings.MetricsAddr
	if c.IsSet("metrics-addr") {
		addr = c.String("metrics-addr")
	}
	if addr != "" {
		shutdown := e.serveMetrics(addr, collector)
		defer shutdown()
	}

	source := scanner.NewBreakerSource(
		scanner.NewIWSource(e.logger, scanner.WithTimeout(e.settings.Scan.Timeout)),
		scanner.BreakerConfig{
			ConsecutiveFailures: e.settings.Scan.BreakerFailures,
			Cooldown:            e.settings.Scan.BreakerCooldown,
		},
		e.logger,
	)
	ctl := live.New(source, be.exclusions, cfg, e.logger, live.WithBus(bus))
	defer ctl.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := c.App.Writer
	opts := displayOptions{
		showChannel: e.settings.Display.ShowChannel,
		showBand:    e.settings.Display.ShowBand,
		threshold:   e.settings.Display.AlertThreshold,
		sortBy:      e.modes.SortBy,
		filter:      e.modes.Filter,
		timerMode:   e.modes.TimerMode,
	}
	// Handlers run on the controller goroutine, so reading ctl is safe.
	bus.Subscribe(event.TopicScanCompleted, func(context.Context, event.Event) {
		renderLive(out, ctl.Status(), opts)
	})
	bus.Subscribe(event.TopicScanFailed, func(_ context.Context, ev event.Event) {
		if p, ok := ev.Payload.(event.ScanFailed); ok {
			errColor.Fprintf(out, "scan failed (%s): %v\n", p.Reason, p.Err)
		}
	})
	bus.Subscribe(event.TopicSessionEnded, func(_ context.Context, ev event.Event) {
		if p, ok := ev.Payload.(event.SessionEnded); ok && p.TimedOut {
			warnColor.Fprintln(out, "session duration reached")
		}
		cancel()
	})

	if err := ctl.BindAdapter(adapter); err != nil {
		return err
	}
	fmt.Fprintln(out, dimColor.Sprint(recordHelp))

	dir := e.sessionDir()
	save := func(s *models.Session) {
		path, err := e.saveSession(runCtx, dir, be, s)
		if err != nil {
			errColor.Fprintf(out, "save failed: %v\n", err)
			return
		}
		ctl.Saved(path)
		color.New(color.FgGreen).Fprintf(out, "saved %s (%d scans)\n", path, len(s.Scans))
	}

	cmds := make(chan live.Command)
	go readKeys(runCtx, c.App.Reader, cmds, func(line string) live.Command {
		return e.keyCommand(line, out, &opts, be.exclusions, save, cancel)
	})

	if err := ctl.Run(runCtx, cmds); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	sess, err := ctl.Finalize()
	if err != nil {
		return err
	}
	if len(sess.Scans) == 0 {
		warnColor.Fprintln(out, "no scans recorded; nothing saved")
		return nil
	}
	// The run context is done by now; saving must not be cut short.
	path, err := e.saveSession(context.WithoutCancel(ctx), dir, be, sess)
	if err != nil {
		return err
	}
	ctl.Saved(path)
	color.New(color.FgGreen).Fprintf(out, "saved %s (%d scans)\n", path, len(sess.Scans))
	return nil
}

// keyCommand maps one input line to a controller command.
func (e *cliEnv) keyCommand(line string, out io.Writer, opts *displayOptions, reg *exclusion.Registry,
	save func(*models.Session), quit context.CancelFunc) live.Command {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	report := func(err error) {
		if err != nil {
			errColor.Fprintf(out, "%v\n", err)
		}
	}
	switch fields[0] {
	case "s":
		return func(c *live.Controller) {
			started, err := c.RequestScan()
			report(err)
			if err == nil && !started {
				dimColor.Fprintln(out, "scan already pending")
			}
		}
	case "a":
		return func(c *live.Controller) { report(c.ToggleAutoScan()) }
	case "w":
		return func(c *live.Controller) {
			s, err := c.Snapshot()
			if err != nil {
				report(err)
				return
			}
			save(s)
		}
	case "o", "f", "t":
		return func(c *live.Controller) {
			switch fields[0] {
			case "o":
				opts.sortBy = opts.sortBy.Next()
			case "f":
				opts.filter = opts.filter.Next()
			default:
				opts.timerMode = (opts.timerMode + 1) % 2
			}
			renderLive(out, c.Status(), *opts)
		}
	case "x", "p":
		if len(fields) < 2 {
			report(fmt.Errorf("usage: %s <bssid|ssid:name>", fields[0]))
			return nil
		}
		key, err := exclusion.ParseKey(strings.Join(fields[1:], " "))
		if err != nil {
			report(err)
			return nil
		}
		permanent := fields[0] == "p"
		return func(c *live.Controller) {
			if permanent {
				report(reg.AddPermanent(context.Background(), key))
			} else {
				report(c.ExcludeTransient(key))
			}
			dimColor.Fprintf(out, "excluding %s\n", key)
		}
	case "q":
		quit()
		return nil
	}
	report(fmt.Errorf("unknown key %q", fields[0]))
	return nil
}

// readKeys turns input lines into commands until ctx is done or input
// ends.
func readKeys(ctx context.Context, in io.Reader, cmds chan<- live.Command, parse func(string) live.Command) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		cmd := parse(sc.Text())
		if cmd == nil {
			continue
		}
		select {
		case cmds <- cmd:
		case <-ctx.Done():
			return
		}
	}
}

func (e *cliEnv) pickAdapter(ctx context.Context, iface string) (models.AdapterInfo, error) {
	det := scanner.NewDetector(e.logger)
	if iface != "" {
		return det.Find(ctx, iface)
	}
	adapters, err := det.Detect(ctx)
	if err != nil {
		return models.AdapterInfo{}, err
	}
	if len(adapters) == 0 {
		return models.AdapterInfo{}, fmt.Errorf("%w: no wireless interfaces found", scanner.ErrAdapterUnavailable)
	}
	return adapters[0], nil
}

// saveSession writes s and refreshes its catalog entry.
func (e *cliEnv) saveSession(ctx context.Context, dir *sessionfile.Dir, be *backend, s *models.Session) (string, error) {
	path, err := dir.Save(s)
	if err != nil {
		return "", err
	}
	if err := be.catalog.Upsert(ctx, sessionfile.Info(path, s, sessionfile.Validate(s))); err != nil {
		e.logger.Warn("catalog update failed", zap.String("path", path), zap.Error(err))
	}
	return path, nil
}

func (e *cliEnv) serveMetrics(addr string, collector *metrics.Collector) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Error("metrics server error", zap.Error(err))
		}
	}()
	e.logger.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			e.logger.Error("metrics server shutdown error", zap.Error(err))
		}
	}
}
