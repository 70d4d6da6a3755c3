package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/HerbHall/wificomp/internal/compare"
	"github.com/HerbHall/wificomp/internal/export"
	"github.com/HerbHall/wificomp/internal/services"
	"github.com/HerbHall/wificomp/pkg/models"
)

func (e *cliEnv) commandCompare() *cli.Command {
	return &cli.Command{
		Name:      "compare",
		Usage:     "Compare sessions recorded with different adapters",
		ArgsUsage: "<file> <file> [file...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "match", Usage: "Identify access points by bssid, ssid or both (default from config)"},
			&cli.StringFlag{Name: "metric", Usage: "Rank by avg, min or max (default from config)"},
			&cli.StringFlag{Name: "format", Value: "table", Usage: "Output format: table, json, yaml or csv"},
			&cli.BoolFlag{Name: "latest", Usage: "Compare the newest session of every cataloged adapter"},
		},
		Action: e.runCompare,
	}
}

func (e *cliEnv) runCompare(c *cli.Context) error {
	match, metric := e.modes.Match, e.modes.Metric
	var err error
	if c.IsSet("match") {
		if match, err = models.ParseMatchMode(c.String("match")); err != nil {
			return err
		}
	}
	if c.IsSet("metric") {
		if metric, err = models.ParseMetric(c.String("metric")); err != nil {
			return err
		}
	}

	be, err := e.openBackend(c.Context)
	if err != nil {
		return err
	}
	defer be.Close()

	paths := c.Args().Slice()
	if c.Bool("latest") {
		latest, err := latestSessions(c.Context, be.catalog)
		if err != nil {
			return err
		}
		paths = append(paths, latest...)
	}
	if len(paths) == 0 {
		return cli.Exit("usage: wificomp compare <file> <file> [file...] or --latest", 2)
	}

	out := c.App.Writer
	dir := e.sessionDir()
	engine := compare.New(be.exclusions, e.logger)
	for _, p := range paths {
		s, _, err := dir.Load(p)
		if err != nil {
			warnColor.Fprintf(out, "skipping %s: %v\n", p, err)
			continue
		}
		slot, err := engine.Add("", p, s)
		if err != nil {
			return err
		}
		if slot.Inert {
			warnColor.Fprintf(out, "%s has no scans and will show no data\n", p)
		}
	}
	if engine.Len() < 2 {
		warnColor.Fprintln(out, "fewer than two sessions loaded; nothing to rank against")
	}

	res := engine.Compute(match, metric)
	if c.String("format") == "table" {
		renderComparison(out, res, e.settings.Display.HighlightBest)
		return nil
	}
	f, err := export.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}
	return export.New(e.logger).WriteComparison(out, res, f)
}

// latestSessions returns the newest cataloged session path per adapter.
func latestSessions(ctx context.Context, catalog *services.SQLiteCatalogRepository) ([]string, error) {
	adapters, err := catalog.Adapters(ctx)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, a := range adapters {
		res, err := catalog.List(ctx, a.Name, services.ListOptions{Limit: 10})
		if err != nil {
			return nil, err
		}
		for _, s := range res.Items {
			if !s.Quarantined {
				paths = append(paths, s.Path)
				break
			}
		}
	}
	return paths, nil
}

// renderComparison prints one row per access point and a column per
// session, then the overall verdict.
func renderComparison(w io.Writer, res *compare.Result, highlight bool) {
	const apWidth = 28
	headerColor.Fprintf(w, "match:%s  metric:%s  %d access points\n", res.Mode, res.Metric, len(res.Rows))

	var hdr strings.Builder
	fmt.Fprintf(&hdr, "%-*s", apWidth, "ACCESS POINT")
	for _, s := range res.Slots {
		fmt.Fprintf(&hdr, " %12s", truncate(s.Name, 12))
	}
	headerColor.Fprintln(w, hdr.String())

	for _, row := range res.Rows {
		var b strings.Builder
		fmt.Fprintf(&b, "%-*s", apWidth, truncate(row.Identity.Label(), apWidth))
		for _, v := range row.Values {
			cell := fmt.Sprintf(" %12s", "N/A")
			if v.Present {
				cell = fmt.Sprintf(" %12.1f", v.Value)
			}
			switch {
			case !v.Present:
				cell = dimColor.Sprint(cell)
			case v.Winner && highlight:
				cell = winColor.Sprint(cell)
			}
			b.WriteString(cell)
		}
		fmt.Fprintln(w, b.String())
	}

	best := res.Best
	var wins strings.Builder
	for i, s := range res.Slots {
		fmt.Fprintf(&wins, "  %s=%d", s.Name, best.Wins[i])
	}
	fmt.Fprintf(w, "wins:%s\n", wins.String())

	switch i, ok := best.Slot(); {
	case ok:
		winColor.Fprintf(w, "Best: %s (%d/%d APs)\n", res.Slots[i].Name, best.Wins[i], best.Total)
	case best.Tie:
		names := make([]string, len(best.Leaders))
		for j, l := range best.Leaders {
			names[j] = res.Slots[l].Name
		}
		warnColor.Fprintf(w, "Best: tie between %s (%d/%d APs each)\n",
			strings.Join(names, ", "), best.Wins[best.Leaders[0]], best.Total)
	default:
		dimColor.Fprintln(w, "Best: none")
	}
}

