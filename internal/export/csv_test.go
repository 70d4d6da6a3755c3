package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/wificomp/pkg/models"
)

func TestObservationToCSVRow_ColumnCount(t *testing.T) {
	o := models.Observation{
		BSSID:        "AA:BB:CC:DD:EE:FF",
		SSID:         "Cafe, Upstairs",
		SignalDBm:    -61,
		Channel:      36,
		FrequencyMHz: 5180,
	}
	ts := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)

	row := observationToCSVRow(ts, o)

	require.Len(t, row, len(sessionCSVHeaders()))
	assert.Equal(t, "2026-01-15T10:30:00Z", row[0], "timestamp")
	assert.Equal(t, "-61", row[3], "signal_dbm")
	assert.Equal(t, "5G", row[6], "band")
}

func TestCSVRowToObservation_ValidRow(t *testing.T) {
	row := []string{"2026-01-15T10:30:00Z", "aa:bb:cc:dd:ee:ff", "Home", "-48", "6", "2437", "2G"}

	ts, o, err := csvRowToObservation(row)
	require.NoError(t, err)
	assert.True(t, ts.Equal(time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)), "timestamp %v", ts)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", o.BSSID, "normalized upper case")
	assert.Equal(t, -48, o.SignalDBm)
	assert.Equal(t, 6, o.Channel)
	assert.Equal(t, 2437, o.FrequencyMHz)
}

func TestCSVRowToObservation_Invalid(t *testing.T) {
	tests := []struct {
		name string
		row  []string
	}{
		{"short row", []string{"2026-01-15T10:30:00Z", "AA:BB:CC:DD:EE:FF"}},
		{"bad timestamp", []string{"yesterday", "AA:BB:CC:DD:EE:FF", "x", "-48", "6", "2437", "2G"}},
		{"bad signal", []string{"2026-01-15T10:30:00Z", "AA:BB:CC:DD:EE:FF", "x", "strong", "6", "2437", "2G"}},
		{"bad bssid", []string{"2026-01-15T10:30:00Z", "AA:BB", "x", "-48", "6", "2437", "2G"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := csvRowToObservation(tt.row)
			assert.Error(t, err)
		})
	}
}
