package live

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/HerbHall/wificomp/internal/testutil"
	"github.com/HerbHall/wificomp/pkg/models"
)

func bssids(obs []models.Observation) []string {
	out := make([]string, len(obs))
	for i, o := range obs {
		out[i] = o.BSSID
	}
	return out
}

func TestView(t *testing.T) {
	obs := []models.Observation{
		testutil.NewObservation(testutil.WithBSSID("00:00:00:00:00:03"), testutil.WithSSID("bravo"), testutil.WithSignal(-70), testutil.WithFrequency(5180)),
		testutil.NewObservation(testutil.WithBSSID("00:00:00:00:00:01"), testutil.WithSSID("Alpha"), testutil.WithSignal(-50), testutil.WithFrequency(2462)),
		testutil.NewObservation(testutil.WithBSSID("00:00:00:00:00:02"), testutil.WithSSID("charlie"), testutil.WithSignal(-50), testutil.WithFrequency(2412)),
	}

	tests := []struct {
		name   string
		sortBy models.SortBy
		filter models.FrequencyFilter
		want   []string
	}{
		{
			name:   "signal strongest first with bssid tiebreak",
			sortBy: models.SortBySignal,
			filter: models.FilterAll,
			want:   []string{"00:00:00:00:00:01", "00:00:00:00:00:02", "00:00:00:00:00:03"},
		},
		{
			name:   "ssid case-insensitive",
			sortBy: models.SortBySSID,
			filter: models.FilterAll,
			want:   []string{"00:00:00:00:00:01", "00:00:00:00:00:03", "00:00:00:00:00:02"},
		},
		{
			name:   "channel ascending",
			sortBy: models.SortByChannel,
			filter: models.FilterAll,
			want:   []string{"00:00:00:00:00:02", "00:00:00:00:00:01", "00:00:00:00:00:03"},
		},
		{
			name:   "5 GHz only",
			sortBy: models.SortBySignal,
			filter: models.Filter5GHz,
			want:   []string{"00:00:00:00:00:03"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bssids(View(obs, tt.sortBy, tt.filter)))
		})
	}

	assert.Equal(t, "00:00:00:00:00:03", obs[0].BSSID, "input not reordered")
}

func TestBelowThreshold(t *testing.T) {
	weak := testutil.NewObservation(testutil.WithSignal(-80))
	threshold := -75

	assert.True(t, BelowThreshold(weak, &threshold))
	assert.False(t, BelowThreshold(testutil.NewObservation(testutil.WithSignal(-75)), &threshold))
	assert.False(t, BelowThreshold(weak, nil))
}

func TestFormatTimer(t *testing.T) {
	tests := []struct {
		name string
		st   Status
		mode models.TimerMode
		want string
	}{
		{"countdown", Status{Elapsed: 65 * time.Second, Target: 5 * time.Minute, HasTarget: true}, models.TimerCountdown, "03:55/05:00"},
		{"countdown past target", Status{Elapsed: 6 * time.Minute, Target: 5 * time.Minute, HasTarget: true}, models.TimerCountdown, "00:00/05:00"},
		{"elapsed with target", Status{Elapsed: 65 * time.Second, Target: 5 * time.Minute, HasTarget: true}, models.TimerElapsed, "01:05/05:00"},
		{"no target", Status{Elapsed: 125*time.Second + 900*time.Millisecond}, models.TimerCountdown, "02:05"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTimer(tt.st, tt.mode))
		})
	}
}
