package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/wificomp/internal/compare"
	"github.com/HerbHall/wificomp/internal/live"
	"github.com/HerbHall/wificomp/pkg/models"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"much longer name", 8, "much lo…"},
		{"café-wifi", 5, "café…"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncate(tt.in, tt.n), tt.in)
	}
}

func TestRenderComparison(t *testing.T) {
	res := &compare.Result{
		Mode:   models.MatchByBSSID,
		Metric: models.MetricAverage,
		Slots:  []compare.Slot{{ID: 1, Name: "Intel"}, {ID: 2, Name: "Realtek"}},
		Rows: []compare.Row{
			{
				Identity: compare.Identity{Key: "aa:aa:aa:aa:aa:aa", SSID: "Home"},
				Values: []compare.Value{
					{Present: true, Value: -45, Rank: 1, Winner: true},
					{Present: true, Value: -52, Rank: 2},
				},
			},
			{
				Identity: compare.Identity{Key: "bb:bb:bb:bb:bb:bb"},
				Values: []compare.Value{
					{},
					{Present: true, Value: -70, Rank: 1, Winner: true},
				},
			},
		},
		Best: compare.Best{Wins: []int{1, 1}, Leaders: []int{0, 1}, Tie: true, Total: 2},
	}

	var buf bytes.Buffer
	renderComparison(&buf, res, true)
	out := buf.String()

	assert.Contains(t, out, "match:BSSID  metric:Avg")
	assert.Contains(t, out, "-45.0")
	assert.Contains(t, out, "<hidden>")
	assert.Contains(t, out, "N/A")
	assert.Contains(t, out, "Intel=1  Realtek=1")
	assert.Contains(t, out, "Best: tie between Intel, Realtek (1/2 APs each)")
}

func TestRenderComparison_SingleWinner(t *testing.T) {
	res := &compare.Result{
		Slots: []compare.Slot{{Name: "A"}, {Name: "B"}},
		Best:  compare.Best{Wins: []int{3, 1}, Leaders: []int{0}, Total: 4},
	}
	var buf bytes.Buffer
	renderComparison(&buf, res, false)
	assert.Contains(t, buf.String(), "Best: A (3/4 APs)")
}

func TestRenderLive(t *testing.T) {
	threshold := -70
	obs := []models.Observation{
		{BSSID: "aa:bb:cc:dd:ee:01", SSID: "Home", SignalDBm: -40, Channel: 36, FrequencyMHz: 5180},
		{BSSID: "aa:bb:cc:dd:ee:02", SSID: "", SignalDBm: -80, Channel: 1, FrequencyMHz: 2412},
	}
	st := live.Status{
		State:    live.StateAutoScanning,
		Adapter:  models.AdapterInfo{Interface: "wlan0", Chipset: "Intel WiFi"},
		Scans:    3,
		Latest:   obs,
		Excluded: 1,
	}

	var buf bytes.Buffer
	renderLive(&buf, st, displayOptions{showChannel: true, showBand: true, threshold: &threshold})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)

	assert.Contains(t, lines[0], "Intel WiFi (wlan0)")
	assert.Contains(t, lines[0], "scans:3")
	assert.Contains(t, lines[1], "Home")
	assert.Contains(t, lines[1], "ch  36")
	assert.NotContains(t, lines[1], "!")
	assert.Contains(t, lines[2], "<hidden>")
	assert.True(t, strings.HasSuffix(lines[2], "!"))
	assert.Contains(t, lines[3], "(1 excluded)")
}
