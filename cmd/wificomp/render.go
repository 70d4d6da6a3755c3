package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/HerbHall/wificomp/internal/live"
	"github.com/HerbHall/wificomp/pkg/models"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	winColor    = color.New(color.FgGreen, color.Bold)
	dimColor    = color.New(color.Faint)
	warnColor   = color.New(color.FgYellow)
	errColor    = color.New(color.FgRed)
)

// signalColor picks a color by signal level.
func signalColor(dbm int) *color.Color {
	switch models.SignalLevelFor(dbm) {
	case models.SignalExcellent, models.SignalGood:
		return color.New(color.FgGreen)
	case models.SignalFair:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func formatSignal(dbm int) string {
	return signalColor(dbm).Sprintf("%4d dBm %s", dbm, models.SignalLevelFor(dbm).Glyph())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func ssidLabel(ssid string) string {
	if ssid == "" {
		return "<hidden>"
	}
	return ssid
}

// displayOptions are the live table column switches.
type displayOptions struct {
	showChannel bool
	showBand    bool
	threshold   *int
	sortBy      models.SortBy
	filter      models.FrequencyFilter
	timerMode   models.TimerMode
}

// renderLive prints the status line and the visible access points.
func renderLive(w io.Writer, st live.Status, opts displayOptions) {
	state := st.State.String()
	if st.InFlight {
		state += " (scanning)"
	}
	headerColor.Fprintf(w, "[%s] %s  scans:%d  %s  sort:%s filter:%s\n",
		live.FormatTimer(st, opts.timerMode), st.Adapter.DisplayNameFull(), st.Scans, state,
		opts.sortBy, opts.filter)
	if st.LastError != nil {
		errColor.Fprintf(w, "  last scan failed: %v\n", st.LastError)
	}

	for _, o := range live.View(st.Latest, opts.sortBy, opts.filter) {
		var b strings.Builder
		fmt.Fprintf(&b, "  %-32s %s  %s", truncate(ssidLabel(o.SSID), 32), o.BSSID, formatSignal(o.SignalDBm))
		if opts.showChannel {
			fmt.Fprintf(&b, "  ch %3d", o.Channel)
		}
		if opts.showBand {
			fmt.Fprintf(&b, "  %s", o.Band().ShortName())
		}
		if live.BelowThreshold(o, opts.threshold) {
			b.WriteString(warnColor.Sprint("  !"))
		}
		fmt.Fprintln(w, b.String())
	}
	if st.Excluded > 0 {
		dimColor.Fprintf(w, "  (%d excluded)\n", st.Excluded)
	}
}
