// Package exclusion decides which access points are suppressed from live
// scans, history views, and comparisons.
package exclusion

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/HerbHall/wificomp/pkg/models"
)

// ErrNoActiveSession is returned when a transient exclusion targets a
// session that is not the active one.
var ErrNoActiveSession = errors.New("no active session")

// Kind says which AP attribute a Key matches.
type Kind string

const (
	KindBSSID Kind = "bssid"
	KindSSID  Kind = "ssid"
)

// Key is a single exclusion rule.
type Key struct {
	Kind  Kind   `json:"kind"`
	Value string `json:"value"`
}

// BSSIDKey builds a normalized BSSID rule.
func BSSIDKey(bssid string) (Key, error) {
	norm, err := models.NormalizeBSSID(bssid)
	if err != nil {
		return Key{}, err
	}
	return Key{Kind: KindBSSID, Value: norm}, nil
}

// SSIDKey builds an SSID rule. Hidden (empty) SSIDs cannot be excluded by
// name.
func SSIDKey(ssid string) (Key, error) {
	if ssid == "" {
		return Key{}, errors.New("ssid exclusion requires a non-empty ssid")
	}
	return Key{Kind: KindSSID, Value: ssid}, nil
}

// ParseKey accepts "bssid:<addr>", "ssid:<name>", or a bare address.
func ParseKey(s string) (Key, error) {
	switch {
	case strings.HasPrefix(s, "ssid:"):
		return SSIDKey(strings.TrimPrefix(s, "ssid:"))
	case strings.HasPrefix(s, "bssid:"):
		return BSSIDKey(strings.TrimPrefix(s, "bssid:"))
	default:
		return BSSIDKey(s)
	}
}

func (k Key) String() string {
	return string(k.Kind) + ":" + k.Value
}

// Scope is the context an exclusion query is made from.
type Scope int

const (
	// ScopeView covers history and comparison views: permanent rules only.
	ScopeView Scope = iota
	// ScopeLive covers the active recording: permanent and transient rules.
	ScopeLive
)

// Store persists the permanent rule set.
type Store interface {
	ListExclusions(ctx context.Context) ([]Key, error)
	AddExclusion(ctx context.Context, key Key) error
	RemoveExclusion(ctx context.Context, key Key) error
}

// Registry holds the permanent rules (persisted on every change) and the
// transient rules of the single active session.
type Registry struct {
	mu        sync.RWMutex
	store     Store
	logger    *zap.Logger
	permanent map[Key]struct{}
	transient map[Key]struct{}
	sessionID string
	version   uint64
}

// NewRegistry creates an empty registry. Call Load to read persisted rules.
func NewRegistry(store Store, logger *zap.Logger) *Registry {
	return &Registry{
		store:     store,
		logger:    logger,
		permanent: make(map[Key]struct{}),
		transient: make(map[Key]struct{}),
	}
}

// Load replaces the permanent set with the persisted rules.
func (r *Registry) Load(ctx context.Context) error {
	keys, err := r.store.ListExclusions(ctx)
	if err != nil {
		return fmt.Errorf("load exclusions: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.permanent = make(map[Key]struct{}, len(keys))
	for _, k := range keys {
		r.permanent[k] = struct{}{}
	}
	r.version++
	r.logger.Debug("exclusions loaded", zap.Int("count", len(keys)))
	return nil
}

// AddPermanent persists key and applies it immediately.
func (r *Registry) AddPermanent(ctx context.Context, key Key) error {
	if err := r.store.AddExclusion(ctx, key); err != nil {
		return fmt.Errorf("persist exclusion %s: %w", key, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.permanent[key] = struct{}{}
	r.version++
	r.logger.Info("permanent exclusion added", zap.Stringer("key", key))
	return nil
}

// RemovePermanent deletes key from the store and the in-memory set.
func (r *Registry) RemovePermanent(ctx context.Context, key Key) error {
	if err := r.store.RemoveExclusion(ctx, key); err != nil {
		return fmt.Errorf("remove exclusion %s: %w", key, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.permanent, key)
	r.version++
	r.logger.Info("permanent exclusion removed", zap.Stringer("key", key))
	return nil
}

// BeginSession makes sessionID the owner of a fresh transient set.
func (r *Registry) BeginSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessionID = sessionID
	r.transient = make(map[Key]struct{})
}

// EndSession discards the transient set if sessionID still owns it.
func (r *Registry) EndSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessionID != sessionID {
		return
	}
	r.sessionID = ""
	r.transient = make(map[Key]struct{})
}

// AddTransient excludes key for the active session only.
func (r *Registry) AddTransient(sessionID string, key Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sessionID == "" || r.sessionID != sessionID {
		return ErrNoActiveSession
	}
	r.transient[key] = struct{}{}
	return nil
}

// RemoveTransient lifts a transient rule for the active session.
func (r *Registry) RemoveTransient(sessionID string, key Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sessionID == "" || r.sessionID != sessionID {
		return ErrNoActiveSession
	}
	delete(r.transient, key)
	return nil
}

// IsExcluded reports whether the AP is suppressed in scope. A BSSID rule
// matches the AP's address and an SSID rule matches its network name.
func (r *Registry) IsExcluded(bssid, ssid string, scope Scope) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if matches(r.permanent, bssid, ssid) {
		return true
	}
	return scope == ScopeLive && r.sessionID != "" && matches(r.transient, bssid, ssid)
}

func matches(set map[Key]struct{}, bssid, ssid string) bool {
	if len(set) == 0 {
		return false
	}
	if _, ok := set[Key{Kind: KindBSSID, Value: bssid}]; ok {
		return true
	}
	if ssid == "" {
		return false
	}
	_, ok := set[Key{Kind: KindSSID, Value: ssid}]
	return ok
}

// Filter returns the observations not excluded in scope.
func (r *Registry) Filter(obs []models.Observation, scope Scope) []models.Observation {
	out := make([]models.Observation, 0, len(obs))
	for _, o := range obs {
		if r.IsExcluded(o.BSSID, o.SSID, scope) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// Permanent returns the permanent rules sorted by kind then value.
func (r *Registry) Permanent() []Key {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.permanent)
}

// Transient returns the active session's rules sorted by kind then value.
func (r *Registry) Transient() []Key {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.transient)
}

// Version increases every time the permanent set changes. Views use it to
// invalidate cached results.
func (r *Registry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

func sortedKeys(set map[Key]struct{}) []Key {
	out := make([]Key, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.SortFunc(out, func(a, b Key) int {
		if c := strings.Compare(string(a.Kind), string(b.Kind)); c != 0 {
			return c
		}
		return strings.Compare(a.Value, b.Value)
	})
	return out
}
