package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/HerbHall/wificomp/internal/history"
	"github.com/HerbHall/wificomp/pkg/models"
)

func (e *cliEnv) commandHistory() *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "Show the signal history of one access point in a session",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bssid", Usage: "Access point to show; omit to list access points"},
			&cli.StringFlag{Name: "window", Usage: "5m, 10m, 30m or all (default from config)"},
			&cli.StringFlag{Name: "mode", Usage: "raw or avg (default from config)"},
			&cli.IntFlag{Name: "width", Usage: "Number of averaged points (default from config)"},
		},
		Action: e.runHistory,
	}
}

func (e *cliEnv) runHistory(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: wificomp history [--bssid MAC] <file>", 2)
	}
	window, mode, width := e.modes.Window, e.modes.DataMode, e.settings.History.Width
	var err error
	if c.IsSet("window") {
		if window, err = models.ParseWindow(c.String("window")); err != nil {
			return err
		}
	}
	if c.IsSet("mode") {
		if mode, err = models.ParseDataMode(c.String("mode")); err != nil {
			return err
		}
	}
	if c.IsSet("width") {
		width = c.Int("width")
	}

	s, _, err := e.sessionDir().Load(c.Args().First())
	if err != nil {
		return err
	}
	be, err := e.openBackend(c.Context)
	if err != nil {
		return err
	}
	defer be.Close()

	agg := history.New(be.exclusions, e.logger)
	out := c.App.Writer

	if !c.IsSet("bssid") {
		aps := agg.AccessPoints(s, window)
		headerColor.Fprintf(out, "%s  window:%s  %d access points\n", s.Adapter.DisplayNameFull(), window, len(aps))
		for _, ap := range aps {
			fmt.Fprintf(out, "  %-32s %s  avg %6.1f  min %4d  max %4d  n=%d\n",
				truncate(ssidLabel(ap.SSID), 32), ap.BSSID, ap.Stats.Average, ap.Stats.Min, ap.Stats.Max, ap.Stats.Count)
		}
		return nil
	}

	series, err := agg.Series(s, history.Query{BSSID: c.String("bssid"), Window: window, Mode: mode, Width: width})
	if errors.Is(err, history.ErrExcluded) {
		warnColor.Fprintf(out, "%s is excluded\n", c.String("bssid"))
		return nil
	}
	if err != nil {
		return err
	}

	headerColor.Fprintf(out, "%s %s  window:%s  mode:%s\n", ssidLabel(series.SSID), series.BSSID, series.Window, series.Mode)
	if !series.HasData {
		dimColor.Fprintln(out, "  no data")
		return nil
	}
	for _, p := range series.Points {
		fmt.Fprintf(out, "  %s  %7.1f dBm\n", p.Timestamp.Local().Format("15:04:05"), p.Signal)
	}
	st := series.Stats
	fmt.Fprintf(out, "avg %.1f  min %s  max %s  readings %d\n",
		st.Average, formatSignal(st.Min), formatSignal(st.Max), st.Count)
	return nil
}
