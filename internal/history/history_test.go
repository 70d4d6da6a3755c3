package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HerbHall/wificomp/internal/exclusion"
	"github.com/HerbHall/wificomp/internal/testutil"
	"github.com/HerbHall/wificomp/pkg/models"
)

const apA = "AA:BB:CC:DD:EE:FF"

type memStore struct{}

func (memStore) ListExclusions(context.Context) ([]exclusion.Key, error) { return nil, nil }
func (memStore) AddExclusion(context.Context, exclusion.Key) error       { return nil }
func (memStore) RemoveExclusion(context.Context, exclusion.Key) error    { return nil }

// minuteSession has one sample per minute for n minutes; apA is present
// in every sample except those whose index is in missing.
func minuteSession(n int, missing ...int) *models.Session {
	skip := make(map[int]bool, len(missing))
	for _, i := range missing {
		skip[i] = true
	}
	samples := make([][]models.Observation, n)
	for i := range samples {
		obs := []models.Observation{
			testutil.NewObservation(testutil.WithBSSID(testutil.BSSID(1)), testutil.WithSignal(-80)),
		}
		if !skip[i] {
			obs = append(obs, testutil.NewObservation(testutil.WithSignal(-40-i)))
		}
		samples[i] = obs
	}
	return testutil.NewSession(testutil.NewAdapter("Intel"), time.Minute, samples...)
}

func TestSamples_WindowAnchoredOnLatest(t *testing.T) {
	s := minuteSession(40)

	tests := []struct {
		window models.Window
		want   int
	}{
		{models.WindowFiveMinutes, 6},
		{models.WindowTenMinutes, 11},
		{models.WindowThirtyMinutes, 31},
		{models.WindowAll, 40},
	}
	for _, tt := range tests {
		t.Run(tt.window.String(), func(t *testing.T) {
			n := 0
			for range Samples(s, tt.window) {
				n++
			}
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestSamples_EmptyAndNil(t *testing.T) {
	for range Samples(nil, models.WindowAll) {
		t.Fatal("nil session yielded a sample")
	}
	empty := models.NewSession(testutil.NewAdapter("Intel"), testutil.Epoch, 0)
	for range Samples(empty, models.WindowFiveMinutes) {
		t.Fatal("empty session yielded a sample")
	}
}

func TestSamples_StopsEarly(t *testing.T) {
	n := 0
	for range Samples(minuteSession(10), models.WindowAll) {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
}

func TestSeries_RawAllMatchesPresence(t *testing.T) {
	s := minuteSession(10, 2, 5, 6)
	agg := New(nil, zap.NewNop())

	got, err := agg.Series(s, Query{BSSID: "aa:bb:cc:dd:ee:ff", Window: models.WindowAll})
	require.NoError(t, err)

	assert.Equal(t, apA, got.BSSID)
	assert.Equal(t, "TestNet", got.SSID)
	assert.Len(t, got.Points, 7, "gaps are skipped, not interpolated")
	assert.True(t, got.HasData)
	assert.Equal(t, 7, got.Stats.Count)
	assert.Equal(t, -40, got.Stats.Max)
	assert.Equal(t, -49, got.Stats.Min)
	assert.Equal(t, float64(-40), got.Points[0].Signal)
	assert.Equal(t, testutil.Epoch, got.Points[0].Timestamp)
}

func TestSeries_WindowScopedStats(t *testing.T) {
	s := minuteSession(20)
	agg := New(nil, zap.NewNop())

	got, err := agg.Series(s, Query{BSSID: apA, Window: models.WindowFiveMinutes})
	require.NoError(t, err)

	// Minutes 14..19 carry -54..-59.
	assert.Equal(t, 6, got.Stats.Count)
	assert.Equal(t, -54, got.Stats.Max)
	assert.Equal(t, -59, got.Stats.Min)
	assert.InDelta(t, -56.5, got.Stats.Average, 1e-9)
}

func TestSeries_NoData(t *testing.T) {
	agg := New(nil, zap.NewNop())

	t.Run("empty session", func(t *testing.T) {
		empty := models.NewSession(testutil.NewAdapter("Intel"), testutil.Epoch, 0)
		got, err := agg.Series(empty, Query{BSSID: apA})
		require.NoError(t, err)
		assert.False(t, got.HasData)
		assert.Empty(t, got.Points)
		assert.Zero(t, got.Stats.Count)
	})

	t.Run("absent from window", func(t *testing.T) {
		s := minuteSession(20, 14, 15, 16, 17, 18, 19)
		got, err := agg.Series(s, Query{BSSID: apA, Window: models.WindowFiveMinutes})
		require.NoError(t, err)
		assert.False(t, got.HasData)
	})
}

func TestSeries_InvalidBSSID(t *testing.T) {
	_, err := New(nil, zap.NewNop()).Series(minuteSession(1), Query{BSSID: "nope"})
	assert.ErrorIs(t, err, models.ErrInvalidBSSID)
}

func TestSeries_PermanentExclusion(t *testing.T) {
	s := minuteSession(5)
	reg := exclusion.NewRegistry(memStore{}, zap.NewNop())
	agg := New(reg, zap.NewNop())

	_, err := agg.Series(s, Query{BSSID: apA})
	require.NoError(t, err)

	// Excluding after recording still hides the AP.
	key, err := exclusion.BSSIDKey(apA)
	require.NoError(t, err)
	require.NoError(t, reg.AddPermanent(context.Background(), key))

	_, err = agg.Series(s, Query{BSSID: apA})
	assert.ErrorIs(t, err, ErrExcluded)

	aps := agg.AccessPoints(s, models.WindowAll)
	require.Len(t, aps, 1)
	assert.Equal(t, testutil.BSSID(1), aps[0].BSSID)
}

func TestSeries_TransientExclusionNotApplied(t *testing.T) {
	s := minuteSession(3)
	reg := exclusion.NewRegistry(memStore{}, zap.NewNop())
	reg.BeginSession("rec")
	key, err := exclusion.BSSIDKey(apA)
	require.NoError(t, err)
	require.NoError(t, reg.AddTransient("rec", key))

	got, err := New(reg, zap.NewNop()).Series(s, Query{BSSID: apA})
	require.NoError(t, err)
	assert.True(t, got.HasData)
}

func TestSeries_Averaged(t *testing.T) {
	s := minuteSession(10)
	agg := New(nil, zap.NewNop())

	got, err := agg.Series(s, Query{BSSID: apA, Mode: models.DataAveraged, Width: 4})
	require.NoError(t, err)

	// 10 points into width 4: buckets of 3, 3, 3, 1.
	require.Len(t, got.Points, 4)
	assert.InDelta(t, -41.0, got.Points[0].Signal, 1e-9)
	assert.InDelta(t, -44.0, got.Points[1].Signal, 1e-9)
	assert.InDelta(t, -47.0, got.Points[2].Signal, 1e-9)
	assert.InDelta(t, -49.0, got.Points[3].Signal, 1e-9)
	assert.Equal(t, testutil.Epoch.Add(3*time.Minute), got.Points[1].Timestamp)
	assert.Equal(t, 10, got.Stats.Count, "stats use raw readings")
}

func TestAverage(t *testing.T) {
	pts := []Point{
		{Timestamp: testutil.Epoch, Signal: -50},
		{Timestamp: testutil.Epoch.Add(time.Second), Signal: -51},
		{Timestamp: testutil.Epoch.Add(2 * time.Second), Signal: -55},
	}

	t.Run("bucket size one is identity", func(t *testing.T) {
		assert.Equal(t, pts, Average(pts, 10))
	})
	t.Run("single bucket is the mean", func(t *testing.T) {
		got := Average(pts, 1)
		require.Len(t, got, 1)
		assert.InDelta(t, -52.0, got[0].Signal, 1e-9)
		assert.Equal(t, testutil.Epoch, got[0].Timestamp)
	})
	t.Run("default width", func(t *testing.T) {
		many := make([]Point, 180)
		assert.Len(t, Average(many, 0), DefaultWidth)
	})
	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, Average(nil, 5))
	})
}

func TestAccessPoints_OrderedByAverage(t *testing.T) {
	s := minuteSession(10)
	aps := New(nil, zap.NewNop()).AccessPoints(s, models.WindowAll)

	require.Len(t, aps, 2)
	assert.Equal(t, apA, aps[0].BSSID)
	assert.Equal(t, testutil.BSSID(1), aps[1].BSSID)
	assert.Equal(t, 10, aps[1].Stats.Count)
}
