// Package compare aligns independently recorded sessions per access point
// and ranks them.
package compare

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/HerbHall/wificomp/internal/exclusion"
	"github.com/HerbHall/wificomp/pkg/models"
)

// Sentinel errors returned by Engine operations.
var (
	ErrNilSession   = errors.New("session is nil")
	ErrSlotNotFound = errors.New("comparison slot not found")
)

// Excluder decides whether an access point is suppressed and reports a
// version that changes with the rule set.
type Excluder interface {
	IsExcluded(bssid, ssid string, scope exclusion.Scope) bool
	Version() uint64
}

// Slot is a loaded session taking part in a comparison. A slot holding a
// session without scans is inert: it is listed but never ranked.
type Slot struct {
	ID      int
	Name    string
	Path    string
	Session *models.Session
	Inert   bool
}

// Value is one session's reading for an identity. Absent means the session
// never saw the access point; it is not a score of zero.
type Value struct {
	Present bool
	Value   float64
	Stats   models.Stats
	// Rank is the dense rank among present values, 1 being best.
	Rank   int
	Winner bool
}

// Row holds every slot's value for one identity, in slot order.
type Row struct {
	Identity Identity
	Values   []Value
}

// Winners returns the slot positions that won the row.
func (r Row) Winners() []int {
	var out []int
	for i, v := range r.Values {
		if v.Winner {
			out = append(out, i)
		}
	}
	return out
}

// Best summarizes wins across every row.
type Best struct {
	// Wins per slot position, counting joint wins.
	Wins []int
	// Leaders are the slot positions sharing the top win count.
	Leaders []int
	Tie     bool
	Total   int
}

// Slot returns the single leading position; ok is false on a tie or when
// nothing was won.
func (b Best) Slot() (int, bool) {
	if b.Tie || len(b.Leaders) != 1 {
		return 0, false
	}
	return b.Leaders[0], true
}

// Result is a computed comparison.
type Result struct {
	Mode   models.MatchMode
	Metric models.Metric
	Slots  []Slot
	Rows   []Row
	Best   Best
}

type cacheKey struct {
	mode       models.MatchMode
	metric     models.Metric
	generation uint64
	exclusions uint64
}

// Engine owns the comparison slots. It is not safe for concurrent use.
type Engine struct {
	logger   *zap.Logger
	excluder Excluder

	slots      []Slot
	nextID     int
	generation uint64

	cacheKey cacheKey
	cached   *Result
}

// New returns an empty Engine. A nil excluder disables exclusion.
func New(excluder Excluder, logger *zap.Logger) *Engine {
	return &Engine{logger: logger, excluder: excluder, nextID: 1}
}

// Add loads s into a new slot. Sessions without scans are accepted as
// inert slots.
func (e *Engine) Add(name, path string, s *models.Session) (Slot, error) {
	if s == nil {
		return Slot{}, ErrNilSession
	}
	if name == "" {
		name = s.Adapter.DisplayName()
	}
	slot := Slot{ID: e.nextID, Name: name, Path: path, Session: s, Inert: len(s.Scans) == 0}
	e.nextID++
	e.slots = append(e.slots, slot)
	e.generation++

	e.logger.Debug("comparison slot added",
		zap.Int("slot", slot.ID),
		zap.String("name", name),
		zap.Int("scans", len(s.Scans)),
		zap.Bool("inert", slot.Inert),
	)
	return slot, nil
}

// Remove drops the slot with id.
func (e *Engine) Remove(id int) error {
	i := slices.IndexFunc(e.slots, func(s Slot) bool { return s.ID == id })
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrSlotNotFound, id)
	}
	e.slots = slices.Delete(e.slots, i, i+1)
	e.generation++
	return nil
}

// Slots returns the loaded slots in load order.
func (e *Engine) Slots() []Slot {
	return slices.Clone(e.slots)
}

// Len returns the number of loaded slots.
func (e *Engine) Len() int {
	return len(e.slots)
}

func (e *Engine) excluded(o models.Observation) bool {
	return e.excluder != nil && e.excluder.IsExcluded(o.BSSID, o.SSID, exclusion.ScopeView)
}

// Compute ranks every slot per access point identity. Results are cached
// until the slots or the permanent exclusions change.
func (e *Engine) Compute(mode models.MatchMode, metric models.Metric) *Result {
	key := cacheKey{mode: mode, metric: metric, generation: e.generation}
	if e.excluder != nil {
		key.exclusions = e.excluder.Version()
	}
	if e.cached != nil && e.cacheKey == key {
		return e.cached
	}

	res := e.compute(mode, metric)
	e.cacheKey, e.cached = key, res
	e.logger.Debug("comparison computed",
		zap.Stringer("mode", mode),
		zap.Stringer("metric", metric),
		zap.Int("slots", len(res.Slots)),
		zap.Int("identities", len(res.Rows)),
	)
	return res
}

func (e *Engine) compute(mode models.MatchMode, metric models.Metric) *Result {
	res := &Result{Mode: mode, Metric: metric, Slots: slices.Clone(e.slots)}

	// Permanent exclusions apply before identities are resolved.
	seen := make(map[models.APKey]struct{})
	var keys []models.APKey
	for _, slot := range e.slots {
		if slot.Inert {
			continue
		}
		for _, sc := range slot.Session.Scans {
			for _, o := range sc.AccessPoints {
				k := models.APKey{BSSID: o.BSSID, SSID: o.SSID}
				if _, ok := seen[k]; ok || e.excluded(o) {
					continue
				}
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}
	ids := resolve(keys, mode)

	// acc[identity][slot]
	acc := make([][]models.StatsAccumulator, len(ids.identities))
	for i := range acc {
		acc[i] = make([]models.StatsAccumulator, len(e.slots))
	}
	for si, slot := range e.slots {
		if slot.Inert {
			continue
		}
		for _, sc := range slot.Session.Scans {
			// One reading per identity per sample: the strongest match.
			strongest := make(map[int]int)
			for _, o := range sc.AccessPoints {
				if e.excluded(o) {
					continue
				}
				id, ok := ids.lookup(o)
				if !ok {
					continue
				}
				if cur, ok := strongest[id]; !ok || o.SignalDBm > cur {
					strongest[id] = o.SignalDBm
				}
			}
			for id, dbm := range strongest {
				acc[id][si].Add(dbm)
			}
		}
	}

	res.Rows = make([]Row, len(ids.identities))
	for i, id := range ids.identities {
		row := Row{Identity: id, Values: make([]Value, len(e.slots))}
		for si := range e.slots {
			if st, ok := acc[i][si].Result(); ok {
				row.Values[si] = Value{Present: true, Value: st.Value(metric), Stats: st}
			}
		}
		rank(row.Values)
		res.Rows[i] = row
	}
	res.Best = summarize(res.Rows, len(e.slots))
	return res
}

// rank assigns dense ranks to present values, strongest first, and marks
// every value equal to the maximum as a winner.
func rank(values []Value) {
	var distinct []float64
	for _, v := range values {
		if v.Present && !slices.Contains(distinct, v.Value) {
			distinct = append(distinct, v.Value)
		}
	}
	slices.Sort(distinct)
	slices.Reverse(distinct)

	for i := range values {
		if !values[i].Present {
			continue
		}
		values[i].Rank = slices.Index(distinct, values[i].Value) + 1
		values[i].Winner = values[i].Rank == 1
	}
}

func summarize(rows []Row, slots int) Best {
	b := Best{Wins: make([]int, slots), Total: len(rows)}
	for _, r := range rows {
		for _, w := range r.Winners() {
			b.Wins[w]++
		}
	}
	top := 0
	for _, w := range b.Wins {
		top = max(top, w)
	}
	if top == 0 {
		return b
	}
	for i, w := range b.Wins {
		if w == top {
			b.Leaders = append(b.Leaders, i)
		}
	}
	b.Tie = len(b.Leaders) > 1
	return b
}
