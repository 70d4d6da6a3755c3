package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/HerbHall/wificomp/internal/compare"
	"github.com/HerbHall/wificomp/pkg/models"
)

// notAvailable marks a session that never saw the access point.
const notAvailable = "N/A"

// sessionCSVHeaders returns the session CSV column headers.
func sessionCSVHeaders() []string {
	return []string{
		"timestamp", "bssid", "ssid", "signal_dbm", "channel", "frequency_mhz", "band",
	}
}

// sessionCSVColumnCount is the number of columns in the session CSV format.
const sessionCSVColumnCount = 7

// observationToCSVRow converts one observation of a sample to a CSV row
// (matching sessionCSVHeaders order).
func observationToCSVRow(ts time.Time, o models.Observation) []string {
	return []string{
		ts.UTC().Format(time.RFC3339Nano),
		o.BSSID,
		o.SSID,
		strconv.Itoa(o.SignalDBm),
		strconv.Itoa(o.Channel),
		strconv.Itoa(o.FrequencyMHz),
		o.Band().ShortName(),
	}
}

// csvRowToObservation parses a session CSV row. The band column is derived
// data and is ignored.
func csvRowToObservation(row []string) (time.Time, models.Observation, error) {
	if len(row) < sessionCSVColumnCount {
		return time.Time{}, models.Observation{}, fmt.Errorf("expected %d columns, got %d", sessionCSVColumnCount, len(row))
	}
	r := row[:sessionCSVColumnCount]

	ts, err := time.Parse(time.RFC3339Nano, r[0])
	if err != nil {
		return time.Time{}, models.Observation{}, fmt.Errorf("invalid timestamp: %w", err)
	}
	ints := make([]int, 3)
	for i, col := range []string{"signal_dbm", "channel", "frequency_mhz"} {
		v, err := strconv.Atoi(strings.TrimSpace(r[3+i]))
		if err != nil {
			return time.Time{}, models.Observation{}, fmt.Errorf("invalid %s: %w", col, err)
		}
		ints[i] = v
	}
	o, err := models.NewObservation(r[1], r[2], ints[0], ints[1], ints[2])
	if err != nil {
		return time.Time{}, models.Observation{}, err
	}
	return ts, o, nil
}

// comparisonCSVHeaders returns the comparison CSV column headers.
func comparisonCSVHeaders() []string {
	return []string{
		"ap", "ssid", "bssids", "session", "adapter", "interface", "label",
		"metric", "value", "avg_signal", "min_signal", "max_signal", "scan_count",
		"rank", "winner",
	}
}

// comparisonToCSVRow converts one slot's value for an identity to a CSV
// row. Absent values are written as N/A with a zero scan count.
func comparisonToCSVRow(res *compare.Result, row compare.Row, slot int) []string {
	s := res.Slots[slot]
	v := row.Values[slot]
	out := []string{
		row.Identity.Key,
		row.Identity.SSID,
		strings.Join(row.Identity.BSSIDs, ";"),
		s.Name,
		s.Session.Adapter.Chipset,
		s.Session.Adapter.Interface,
		s.Session.Adapter.Label,
		res.Metric.String(),
	}
	if !v.Present {
		return append(out, notAvailable, notAvailable, notAvailable, notAvailable, "0", notAvailable, "false")
	}
	return append(out,
		formatSignal(v.Value),
		formatSignal(v.Stats.Average),
		strconv.Itoa(v.Stats.Min),
		strconv.Itoa(v.Stats.Max),
		strconv.Itoa(v.Stats.Count),
		strconv.Itoa(v.Rank),
		strconv.FormatBool(v.Winner),
	)
}

func formatSignal(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
