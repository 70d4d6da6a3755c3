// Package history derives per-access-point signal series from a single
// session for display.
package history

import (
	"cmp"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/wificomp/internal/exclusion"
	"github.com/HerbHall/wificomp/pkg/models"
)

// DefaultWidth is the number of points an averaged series is reduced to
// when the caller does not supply a display width.
const DefaultWidth = 60

// ErrExcluded is returned when the requested access point is permanently
// excluded.
var ErrExcluded = errors.New("access point is excluded")

// Excluder decides whether an access point is suppressed.
type Excluder interface {
	IsExcluded(bssid, ssid string, scope exclusion.Scope) bool
}

// Point is one value of a signal series. Signal is fractional in averaged
// mode and integral in raw mode.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Signal    float64   `json:"signal_dbm"`
}

// Query selects the series to build.
type Query struct {
	BSSID  string
	Window models.Window
	Mode   models.DataMode
	// Width bounds the number of averaged points; zero means DefaultWidth.
	Width int
}

// Series is the result of a history query. Stats is meaningful only when
// HasData is true.
type Series struct {
	BSSID   string
	SSID    string
	Window  models.Window
	Mode    models.DataMode
	Points  []Point
	Stats   models.Stats
	HasData bool
}

// APSummary describes one access point visible inside a window.
type APSummary struct {
	BSSID string
	SSID  string
	Stats models.Stats
}

// Aggregator builds history series, hiding permanently excluded access
// points.
type Aggregator struct {
	excluder Excluder
	logger   *zap.Logger
}

// New returns an Aggregator. A nil excluder disables exclusion.
func New(excluder Excluder, logger *zap.Logger) *Aggregator {
	return &Aggregator{excluder: excluder, logger: logger}
}

func (a *Aggregator) excluded(bssid, ssid string) bool {
	return a.excluder != nil && a.excluder.IsExcluded(bssid, ssid, exclusion.ScopeView)
}

// Series returns the signal series of q.BSSID inside q.Window.
func (a *Aggregator) Series(s *models.Session, q Query) (Series, error) {
	bssid, err := models.NormalizeBSSID(q.BSSID)
	if err != nil {
		return Series{}, fmt.Errorf("history series: %w", err)
	}
	out := Series{BSSID: bssid, Window: q.Window, Mode: q.Mode}

	var (
		raw []Point
		acc models.StatsAccumulator
	)
	for sample := range Samples(s, q.Window) {
		o, ok := sample.Find(bssid)
		if !ok {
			continue
		}
		if out.SSID == "" {
			out.SSID = o.SSID
		}
		if a.excluded(o.BSSID, o.SSID) {
			return Series{}, fmt.Errorf("%w: %s", ErrExcluded, bssid)
		}
		raw = append(raw, Point{Timestamp: sample.Timestamp, Signal: float64(o.SignalDBm)})
		acc.Add(o.SignalDBm)
	}

	out.Stats, out.HasData = acc.Result()
	if q.Mode == models.DataAveraged {
		out.Points = Average(raw, q.Width)
	} else {
		out.Points = raw
	}

	a.logger.Debug("history series",
		zap.String("bssid", bssid),
		zap.Stringer("window", q.Window),
		zap.Stringer("mode", q.Mode),
		zap.Int("points", len(out.Points)),
	)
	return out, nil
}

// AccessPoints lists the access points seen inside w, strongest average
// first. Excluded access points are omitted.
func (a *Aggregator) AccessPoints(s *models.Session, w models.Window) []APSummary {
	type entry struct {
		ssid string
		acc  models.StatsAccumulator
	}
	seen := make(map[string]*entry)
	for sample := range Samples(s, w) {
		for _, o := range sample.AccessPoints {
			e, ok := seen[o.BSSID]
			if !ok {
				e = &entry{ssid: o.SSID}
				seen[o.BSSID] = e
			}
			e.acc.Add(o.SignalDBm)
		}
	}

	out := make([]APSummary, 0, len(seen))
	for bssid, e := range seen {
		if a.excluded(bssid, e.ssid) {
			continue
		}
		st, _ := e.acc.Result()
		out = append(out, APSummary{BSSID: bssid, SSID: e.ssid, Stats: st})
	}
	slices.SortFunc(out, func(x, y APSummary) int {
		if c := cmp.Compare(y.Stats.Average, x.Stats.Average); c != 0 {
			return c
		}
		return strings.Compare(x.BSSID, y.BSSID)
	})
	return out
}

// Samples yields the samples of s inside w. Windows are anchored on the
// latest sample, not on the current time, so old sessions window the same
// way they did while recording.
func Samples(s *models.Session, w models.Window) iter.Seq[models.ScanSample] {
	return func(yield func(models.ScanSample) bool) {
		if s == nil || len(s.Scans) == 0 {
			return
		}
		var cutoff time.Time
		if span, ok := w.Duration(); ok {
			cutoff = s.Scans[len(s.Scans)-1].Timestamp.Add(-span)
		}
		start, _ := slices.BinarySearchFunc(s.Scans, cutoff, func(sc models.ScanSample, t time.Time) int {
			return sc.Timestamp.Compare(t)
		})
		for _, sc := range s.Scans[start:] {
			if !yield(sc) {
				return
			}
		}
	}
}

// Average reduces points to at most width points by averaging contiguous
// buckets of ceil(len/width) points. Each bucket is stamped with its first
// timestamp.
func Average(points []Point, width int) []Point {
	if width <= 0 {
		width = DefaultWidth
	}
	if len(points) == 0 {
		return nil
	}
	size := (len(points) + width - 1) / width

	out := make([]Point, 0, (len(points)+size-1)/size)
	for chunk := range slices.Chunk(points, size) {
		var sum float64
		for _, p := range chunk {
			sum += p.Signal
		}
		out = append(out, Point{
			Timestamp: chunk[0].Timestamp,
			Signal:    sum / float64(len(chunk)),
		})
	}
	return out
}
