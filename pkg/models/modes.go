package models

import (
	"fmt"
	"strings"
	"time"
)

// MatchMode decides when observations from different sessions are the same AP.
type MatchMode int

const (
	MatchByBSSID MatchMode = iota
	MatchBySSID
	// MatchEither treats observations as the same AP when BSSID or SSID match.
	MatchEither
)

func (m MatchMode) String() string {
	switch m {
	case MatchBySSID:
		return "SSID"
	case MatchEither:
		return "Both"
	default:
		return "BSSID"
	}
}

// Next cycles BSSID -> SSID -> Both -> BSSID.
func (m MatchMode) Next() MatchMode {
	return (m + 1) % 3
}

// ParseMatchMode accepts "bssid", "ssid", "both" (or "either"), any case.
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bssid", "":
		return MatchByBSSID, nil
	case "ssid":
		return MatchBySSID, nil
	case "both", "either":
		return MatchEither, nil
	}
	return 0, fmt.Errorf("unknown match mode %q", s)
}

// Metric selects the scalar reduction used for ranking.
type Metric int

const (
	MetricAverage Metric = iota
	MetricMinimum
	MetricMaximum
)

func (m Metric) String() string {
	switch m {
	case MetricMinimum:
		return "Min"
	case MetricMaximum:
		return "Max"
	default:
		return "Avg"
	}
}

// Next cycles Avg -> Min -> Max -> Avg.
func (m Metric) Next() Metric {
	return (m + 1) % 3
}

// ParseMetric accepts "avg"/"average", "min"/"minimum", "max"/"maximum".
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "avg", "average", "":
		return MetricAverage, nil
	case "min", "minimum":
		return MetricMinimum, nil
	case "max", "maximum":
		return MetricMaximum, nil
	}
	return 0, fmt.Errorf("unknown metric %q", s)
}

// Window selects how much of a session's history is considered.
type Window int

const (
	WindowFiveMinutes Window = iota
	WindowTenMinutes
	WindowThirtyMinutes
	WindowAll
)

// Duration returns the window span; the bool is false for WindowAll.
func (w Window) Duration() (time.Duration, bool) {
	switch w {
	case WindowFiveMinutes:
		return 5 * time.Minute, true
	case WindowTenMinutes:
		return 10 * time.Minute, true
	case WindowThirtyMinutes:
		return 30 * time.Minute, true
	default:
		return 0, false
	}
}

func (w Window) String() string {
	switch w {
	case WindowFiveMinutes:
		return "5m"
	case WindowTenMinutes:
		return "10m"
	case WindowThirtyMinutes:
		return "30m"
	default:
		return "all"
	}
}

// Next cycles 5m -> 10m -> 30m -> all -> 5m.
func (w Window) Next() Window {
	return (w + 1) % 4
}

// ParseWindow accepts "5m", "10m", "30m", "all" and bare minute counts
// ("5", "10", "30", "0" for all).
func ParseWindow(s string) (Window, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "5m", "5":
		return WindowFiveMinutes, nil
	case "10m", "10":
		return WindowTenMinutes, nil
	case "30m", "30":
		return WindowThirtyMinutes, nil
	case "all", "0", "":
		return WindowAll, nil
	}
	return 0, fmt.Errorf("unknown history window %q", s)
}

// DataMode selects raw or bucket-averaged history output.
type DataMode int

const (
	DataRaw DataMode = iota
	DataAveraged
)

func (d DataMode) String() string {
	if d == DataAveraged {
		return "Avg"
	}
	return "Raw"
}

// ParseDataMode accepts "raw" or "avg"/"averaged".
func ParseDataMode(s string) (DataMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "raw", "":
		return DataRaw, nil
	case "avg", "average", "averaged":
		return DataAveraged, nil
	}
	return 0, fmt.Errorf("unknown data mode %q", s)
}

// SortBy orders the live access point list.
type SortBy int

const (
	SortBySignal SortBy = iota
	SortBySSID
	SortByChannel
)

func (s SortBy) String() string {
	switch s {
	case SortBySSID:
		return "ssid"
	case SortByChannel:
		return "channel"
	default:
		return "signal"
	}
}

// Next cycles signal -> ssid -> channel -> signal.
func (s SortBy) Next() SortBy {
	return (s + 1) % 3
}

// ParseSortBy accepts "signal", "ssid", "channel".
func ParseSortBy(s string) (SortBy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "signal", "":
		return SortBySignal, nil
	case "ssid":
		return SortBySSID, nil
	case "channel":
		return SortByChannel, nil
	}
	return 0, fmt.Errorf("unknown sort mode %q", s)
}

// FrequencyFilter restricts the live list to one band.
type FrequencyFilter int

const (
	FilterAll FrequencyFilter = iota
	Filter24GHz
	Filter5GHz
	Filter6GHz
)

func (f FrequencyFilter) String() string {
	switch f {
	case Filter24GHz:
		return "2.4G"
	case Filter5GHz:
		return "5G"
	case Filter6GHz:
		return "6G"
	default:
		return "All"
	}
}

// Next cycles All -> 2.4G -> 5G -> 6G -> All.
func (f FrequencyFilter) Next() FrequencyFilter {
	return (f + 1) % 4
}

// Matches reports whether band passes the filter.
func (f FrequencyFilter) Matches(b Band) bool {
	switch f {
	case Filter24GHz:
		return b == Band24GHz
	case Filter5GHz:
		return b == Band5GHz
	case Filter6GHz:
		return b == Band6GHz
	default:
		return true
	}
}

// ParseFrequencyFilter accepts "all", "2.4g"/"2g", "5g", "6g".
func ParseFrequencyFilter(s string) (FrequencyFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all", "":
		return FilterAll, nil
	case "2.4g", "2g", "2.4":
		return Filter24GHz, nil
	case "5g", "5":
		return Filter5GHz, nil
	case "6g", "6":
		return Filter6GHz, nil
	}
	return 0, fmt.Errorf("unknown frequency filter %q", s)
}

// TimerMode selects how the session timer is displayed.
type TimerMode int

const (
	TimerCountdown TimerMode = iota
	TimerElapsed
)

func (t TimerMode) String() string {
	if t == TimerElapsed {
		return "elapsed"
	}
	return "countdown"
}

// ParseTimerMode accepts "countdown" or "elapsed".
func ParseTimerMode(s string) (TimerMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "countdown", "":
		return TimerCountdown, nil
	case "elapsed":
		return TimerElapsed, nil
	}
	return 0, fmt.Errorf("unknown timer mode %q", s)
}
