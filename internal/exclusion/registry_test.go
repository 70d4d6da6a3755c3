package exclusion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HerbHall/wificomp/pkg/models"
)

// memStore is an in-memory Store that can be told to fail.
type memStore struct {
	keys map[Key]struct{}
	err  error
}

func newMemStore(keys ...Key) *memStore {
	m := &memStore{keys: make(map[Key]struct{})}
	for _, k := range keys {
		m.keys[k] = struct{}{}
	}
	return m
}

func (m *memStore) ListExclusions(_ context.Context) ([]Key, error) {
	if m.err != nil {
		return nil, m.err
	}
	return sortedKeys(m.keys), nil
}

func (m *memStore) AddExclusion(_ context.Context, k Key) error {
	if m.err != nil {
		return m.err
	}
	m.keys[k] = struct{}{}
	return nil
}

func (m *memStore) RemoveExclusion(_ context.Context, k Key) error {
	if m.err != nil {
		return m.err
	}
	delete(m.keys, k)
	return nil
}

var _ Store = (*memStore)(nil)

func mustBSSID(t *testing.T, s string) Key {
	t.Helper()
	k, err := BSSIDKey(s)
	require.NoError(t, err)
	return k
}

func TestParseKey(t *testing.T) {
	k, err := ParseKey("aa:bb:cc:dd:ee:ff")
	require.NoError(t, err)
	assert.Equal(t, Key{Kind: KindBSSID, Value: "AA:BB:CC:DD:EE:FF"}, k)

	k, err = ParseKey("ssid:Guest")
	require.NoError(t, err)
	assert.Equal(t, Key{Kind: KindSSID, Value: "Guest"}, k)
	assert.Equal(t, "ssid:Guest", k.String())

	_, err = ParseKey("ssid:")
	assert.Error(t, err)

	_, err = ParseKey("bssid:zz")
	assert.ErrorIs(t, err, models.ErrInvalidBSSID)
}

func TestRegistry_LoadAndPermanent(t *testing.T) {
	ctx := context.Background()
	x := mustBSSID(t, "AA:BB:CC:DD:EE:FF")
	store := newMemStore(x)
	r := NewRegistry(store, zap.NewNop())

	require.NoError(t, r.Load(ctx))
	assert.True(t, r.IsExcluded("AA:BB:CC:DD:EE:FF", "Net", ScopeView))
	assert.True(t, r.IsExcluded("AA:BB:CC:DD:EE:FF", "Net", ScopeLive))
	assert.False(t, r.IsExcluded("11:22:33:44:55:66", "Net", ScopeView))

	require.NoError(t, r.RemovePermanent(ctx, x))
	assert.False(t, r.IsExcluded("AA:BB:CC:DD:EE:FF", "Net", ScopeView))
	assert.Empty(t, store.keys, "removal must be persisted")
}

func TestRegistry_AddPermanentPersistsFirst(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := NewRegistry(store, zap.NewNop())

	store.err = errors.New("disk full")
	err := r.AddPermanent(ctx, mustBSSID(t, "AA:BB:CC:DD:EE:FF"))
	require.Error(t, err)
	assert.False(t, r.IsExcluded("AA:BB:CC:DD:EE:FF", "", ScopeView),
		"failed persist must not change the in-memory set")

	store.err = nil
	before := r.Version()
	require.NoError(t, r.AddPermanent(ctx, mustBSSID(t, "AA:BB:CC:DD:EE:FF")))
	assert.Greater(t, r.Version(), before)
	assert.Len(t, store.keys, 1)
}

func TestRegistry_SSIDRule(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(newMemStore(), zap.NewNop())
	k, err := SSIDKey("Neighbors")
	require.NoError(t, err)
	require.NoError(t, r.AddPermanent(ctx, k))

	assert.True(t, r.IsExcluded("11:22:33:44:55:66", "Neighbors", ScopeView))
	assert.False(t, r.IsExcluded("11:22:33:44:55:66", "", ScopeView), "hidden SSID never matches a name rule")
}

func TestRegistry_TransientScopedToSession(t *testing.T) {
	r := NewRegistry(newMemStore(), zap.NewNop())
	k := mustBSSID(t, "AA:BB:CC:DD:EE:FF")

	assert.ErrorIs(t, r.AddTransient("s1", k), ErrNoActiveSession)

	r.BeginSession("s1")
	require.NoError(t, r.AddTransient("s1", k))
	assert.ErrorIs(t, r.AddTransient("s2", k), ErrNoActiveSession)

	assert.True(t, r.IsExcluded("AA:BB:CC:DD:EE:FF", "", ScopeLive))
	assert.False(t, r.IsExcluded("AA:BB:CC:DD:EE:FF", "", ScopeView),
		"transient rules never apply to views")
	assert.Equal(t, []Key{k}, r.Transient())

	r.EndSession("other")
	assert.True(t, r.IsExcluded("AA:BB:CC:DD:EE:FF", "", ScopeLive), "foreign EndSession is ignored")

	r.EndSession("s1")
	assert.False(t, r.IsExcluded("AA:BB:CC:DD:EE:FF", "", ScopeLive))
	assert.Empty(t, r.Transient())
}

func TestRegistry_Filter(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(newMemStore(), zap.NewNop())
	require.NoError(t, r.AddPermanent(ctx, mustBSSID(t, "AA:BB:CC:DD:EE:FF")))
	r.BeginSession("s1")
	require.NoError(t, r.AddTransient("s1", mustBSSID(t, "11:22:33:44:55:66")))

	obs := []models.Observation{
		{BSSID: "AA:BB:CC:DD:EE:FF"},
		{BSSID: "11:22:33:44:55:66"},
		{BSSID: "77:88:99:AA:BB:CC"},
	}
	live := r.Filter(obs, ScopeLive)
	require.Len(t, live, 1)
	assert.Equal(t, "77:88:99:AA:BB:CC", live[0].BSSID)

	view := r.Filter(obs, ScopeView)
	assert.Len(t, view, 2)
}

func TestRegistry_PermanentSorted(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(newMemStore(), zap.NewNop())
	ssid, _ := SSIDKey("A")
	require.NoError(t, r.AddPermanent(ctx, ssid))
	require.NoError(t, r.AddPermanent(ctx, mustBSSID(t, "FF:FF:FF:FF:FF:FF")))
	require.NoError(t, r.AddPermanent(ctx, mustBSSID(t, "00:00:00:00:00:01")))

	got := r.Permanent()
	require.Len(t, got, 3)
	assert.Equal(t, KindBSSID, got[0].Kind)
	assert.Equal(t, "00:00:00:00:00:01", got[0].Value)
	assert.Equal(t, KindSSID, got[2].Kind)
}
