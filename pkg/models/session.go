package models

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// SessionVersion is the only session file version this build understands.
const SessionVersion = "1.0"

// Sentinel errors for session mutation.
var (
	// ErrOutOfOrder is returned when a sample would break timestamp ordering.
	ErrOutOfOrder = errors.New("sample timestamp precedes last sample")
	// ErrSessionFinalized is returned when mutating a finalized session.
	ErrSessionFinalized = errors.New("session is finalized")
)

// ScanSample is one snapshot of all visible access points.
// No two observations in a sample share a BSSID.
type ScanSample struct {
	Timestamp    time.Time     `json:"timestamp" yaml:"timestamp"`
	AccessPoints []Observation `json:"access_points" yaml:"access_points"`
}

// NewScanSample builds a sample, deduplicating observations by BSSID.
// When a BSSID repeats, the last observation wins and keeps the position of
// the first.
func NewScanSample(ts time.Time, obs []Observation) ScanSample {
	out := make([]Observation, 0, len(obs))
	index := make(map[string]int, len(obs))
	for _, o := range obs {
		if i, ok := index[o.BSSID]; ok {
			out[i] = o
			continue
		}
		index[o.BSSID] = len(out)
		out = append(out, o)
	}
	return ScanSample{Timestamp: ts.UTC(), AccessPoints: out}
}

// Find returns the observation for bssid, if present.
func (s ScanSample) Find(bssid string) (Observation, bool) {
	for _, o := range s.AccessPoints {
		if o.BSSID == bssid {
			return o, true
		}
	}
	return Observation{}, false
}

// Session is one continuous recording for a single adapter.
type Session struct {
	Version            string       `json:"version" yaml:"version"`
	Adapter            AdapterInfo  `json:"adapter" yaml:"adapter"`
	StartedAt          time.Time    `json:"started_at" yaml:"started_at"`
	DurationTargetSecs *int64       `json:"duration_target_secs" yaml:"duration_target_secs"`
	Scans              []ScanSample `json:"scans" yaml:"scans"`
}

// NewSession starts an empty session. A zero target means no duration limit.
func NewSession(adapter AdapterInfo, startedAt time.Time, target time.Duration) *Session {
	s := &Session{
		Version:   SessionVersion,
		Adapter:   adapter,
		StartedAt: startedAt.UTC(),
		Scans:     []ScanSample{},
	}
	s.SetDurationTarget(target)
	return s
}

// SetDurationTarget updates the target duration; zero clears it.
func (s *Session) SetDurationTarget(d time.Duration) {
	if d <= 0 {
		s.DurationTargetSecs = nil
		return
	}
	secs := int64(d / time.Second)
	s.DurationTargetSecs = &secs
}

// DurationTarget returns the target duration and whether one is set.
func (s *Session) DurationTarget() (time.Duration, bool) {
	if s.DurationTargetSecs == nil {
		return 0, false
	}
	return time.Duration(*s.DurationTargetSecs) * time.Second, true
}

// Append adds a sample. Timestamps must be non-decreasing.
func (s *Session) Append(sample ScanSample) error {
	if last, ok := s.LatestTimestamp(); ok && sample.Timestamp.Before(last) {
		return fmt.Errorf("%w: %s < %s", ErrOutOfOrder,
			sample.Timestamp.Format(time.RFC3339Nano), last.Format(time.RFC3339Nano))
	}
	s.Scans = append(s.Scans, sample)
	return nil
}

// LatestTimestamp returns the timestamp of the last sample.
func (s *Session) LatestTimestamp() (time.Time, bool) {
	if len(s.Scans) == 0 {
		return time.Time{}, false
	}
	return s.Scans[len(s.Scans)-1].Timestamp, true
}

// Clone returns a deep copy safe to share read-only.
func (s *Session) Clone() *Session {
	c := *s
	if s.DurationTargetSecs != nil {
		v := *s.DurationTargetSecs
		c.DurationTargetSecs = &v
	}
	c.Scans = make([]ScanSample, len(s.Scans))
	for i, sc := range s.Scans {
		c.Scans[i] = ScanSample{
			Timestamp:    sc.Timestamp,
			AccessPoints: slices.Clone(sc.AccessPoints),
		}
	}
	return &c
}

// APKey identifies an access point by hardware address and network name.
type APKey struct {
	BSSID string `json:"bssid" yaml:"bssid"`
	SSID  string `json:"ssid" yaml:"ssid"`
}

// UniqueAPs returns every distinct (BSSID, SSID) pair in first-seen order.
func (s *Session) UniqueAPs() []APKey {
	seen := make(map[APKey]struct{})
	var out []APKey
	for _, sc := range s.Scans {
		for _, o := range sc.AccessPoints {
			k := APKey{BSSID: o.BSSID, SSID: o.SSID}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}

// Stats returns signal statistics for bssid over the whole session.
// The second return is false when the AP never appears.
func (s *Session) Stats(bssid string) (Stats, bool) {
	var acc StatsAccumulator
	for _, sc := range s.Scans {
		if o, ok := sc.Find(bssid); ok {
			acc.Add(o.SignalDBm)
		}
	}
	return acc.Result()
}

// Stats summarizes a set of signal readings.
type Stats struct {
	Average float64 `json:"average" yaml:"average"`
	Min     int     `json:"min" yaml:"min"`
	Max     int     `json:"max" yaml:"max"`
	Count   int     `json:"count" yaml:"count"`
}

// Value returns the statistic selected by m.
func (st Stats) Value(m Metric) float64 {
	switch m {
	case MetricMinimum:
		return float64(st.Min)
	case MetricMaximum:
		return float64(st.Max)
	default:
		return st.Average
	}
}

// StatsAccumulator folds readings into Stats without storing them.
type StatsAccumulator struct {
	sum, min, max, n int
}

// Add records one reading.
func (a *StatsAccumulator) Add(v int) {
	if a.n == 0 || v < a.min {
		a.min = v
	}
	if a.n == 0 || v > a.max {
		a.max = v
	}
	a.sum += v
	a.n++
}

// Result returns the folded statistics. The second return is false when no
// readings were added, so callers never see a fabricated zero.
func (a *StatsAccumulator) Result() (Stats, bool) {
	if a.n == 0 {
		return Stats{}, false
	}
	return Stats{
		Average: float64(a.sum) / float64(a.n),
		Min:     a.min,
		Max:     a.max,
		Count:   a.n,
	}, true
}
