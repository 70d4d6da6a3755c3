package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/HerbHall/wificomp/internal/compare"
	"github.com/HerbHall/wificomp/internal/testutil"
	"github.com/HerbHall/wificomp/pkg/models"
)

func sampleSession() *models.Session {
	return testutil.NewSession(testutil.NewAdapter("Intel AX210"), 5*time.Second,
		[]models.Observation{
			testutil.NewObservation(testutil.WithSignal(-45)),
			testutil.NewObservation(testutil.WithBSSID(testutil.BSSID(2)), testutil.WithSSID("Guest"), testutil.WithFrequency(5180)),
		},
		[]models.Observation{
			testutil.NewObservation(testutil.WithSignal(-47)),
		},
	)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"json", FormatJSON},
		{"YAML", FormatYAML},
		{"yml", FormatYAML},
		{"csv", FormatCSV},
		{"", FormatJSON},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
	_, err := ParseFormat("xml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestWriteSession_JSONLoadsBack(t *testing.T) {
	e := New(zap.NewNop())
	s := sampleSession()

	var buf bytes.Buffer
	require.NoError(t, e.WriteSession(&buf, s, FormatJSON))

	got, err := e.codec.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestWriteSession_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(zap.NewNop()).WriteSession(&buf, sampleSession(), FormatYAML))

	var doc struct {
		Version string `yaml:"version"`
		Adapter struct {
			Chipset string `yaml:"chipset"`
		} `yaml:"adapter"`
		Scans []struct {
			AccessPoints []struct {
				BSSID string `yaml:"bssid"`
			} `yaml:"access_points"`
		} `yaml:"scans"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, models.SessionVersion, doc.Version)
	assert.Equal(t, "Intel AX210", doc.Adapter.Chipset)
	require.Len(t, doc.Scans, 2)
	assert.Len(t, doc.Scans[0].AccessPoints, 2)
}

func TestWriteSession_CSVRoundTrip(t *testing.T) {
	e := New(zap.NewNop())
	s := sampleSession()

	var buf bytes.Buffer
	require.NoError(t, e.WriteSession(&buf, s, FormatCSV))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4, "header plus one row per sample per AP")
	assert.Equal(t, sessionCSVHeaders(), records[0])
	assert.Equal(t, "5G", records[2][6])

	back, err := e.ReadSessionCSV(strings.NewReader(buf.String()), s.Adapter)
	require.NoError(t, err)
	assert.Equal(t, s.StartedAt, back.StartedAt)
	assert.Equal(t, s.Scans, back.Scans)
}

func TestReadSessionCSV_SkipsBadRows(t *testing.T) {
	in := strings.Join([]string{
		"timestamp,bssid,ssid,signal_dbm,channel,frequency_mhz,band",
		"2026-01-15T10:30:05Z,AA:BB:CC:DD:EE:01,Late,-60,6,2437,2G",
		"2026-01-15T10:30:00Z,AA:BB:CC:DD:EE:02,Early,-50,6,2437,2G",
		"2026-01-15T10:30:00Z,not-a-mac,Bad,-50,6,2437,2G",
	}, "\n")

	s, err := New(zap.NewNop()).ReadSessionCSV(strings.NewReader(in), testutil.NewAdapter("x"))
	require.NoError(t, err)
	require.Len(t, s.Scans, 2)
	assert.Equal(t, "Early", s.Scans[0].AccessPoints[0].SSID, "samples sorted by time")
	assert.Equal(t, s.Scans[0].Timestamp, s.StartedAt)
}

func comparison(t *testing.T) *compare.Result {
	t.Helper()
	a := testutil.NewSession(testutil.NewAdapter("Alpha"), time.Second,
		[]models.Observation{
			testutil.NewObservation(testutil.WithSignal(-45)),
			testutil.NewObservation(testutil.WithBSSID(testutil.BSSID(9)), testutil.WithSSID("Solo"), testutil.WithSignal(-70)),
		},
	)
	b := testutil.NewSession(testutil.NewAdapter("Beta"), time.Second,
		[]models.Observation{testutil.NewObservation(testutil.WithSignal(-52))},
	)
	eng := compare.New(nil, zap.NewNop())
	_, err := eng.Add("", "a.json", a)
	require.NoError(t, err)
	_, err = eng.Add("", "b.json", b)
	require.NoError(t, err)
	return eng.Compute(models.MatchByBSSID, models.MetricAverage)
}

func TestWriteComparison_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(zap.NewNop()).WriteComparison(&buf, comparison(t), FormatCSV))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5, "header plus one row per AP per session")
	assert.Equal(t, comparisonCSVHeaders(), records[0])

	// Rows: Solo (Alpha, Beta), TestNet (Alpha, Beta).
	solo := records[2]
	assert.Equal(t, "Beta", solo[3])
	assert.Equal(t, "N/A", solo[8])
	assert.Equal(t, "0", solo[12])

	testNet := records[3]
	assert.Equal(t, "Alpha", testNet[3])
	assert.Equal(t, "-45.0", testNet[8])
	assert.Equal(t, "1", testNet[13])
	assert.Equal(t, "true", testNet[14])
}

func TestWriteComparison_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(zap.NewNop()).WriteComparison(&buf, comparison(t), FormatJSON))

	var rep comparisonReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rep))
	assert.Equal(t, "BSSID", rep.MatchMode)
	assert.Equal(t, "Alpha", rep.Best)
	assert.False(t, rep.Tie)
	require.Len(t, rep.AccessPoints, 2)
	assert.Nil(t, rep.AccessPoints[0].Values[1].Value, "absent session has no value")
	assert.Equal(t, 2, rep.Sessions[0].Wins)
}

func TestWriteComparison_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(zap.NewNop()).WriteComparison(&buf, comparison(t), FormatYAML))
	assert.Contains(t, buf.String(), "match_mode: BSSID")
	assert.Contains(t, buf.String(), "best: Alpha")
}

func TestFileName(t *testing.T) {
	s := sampleSession()
	assert.Equal(t, "Intel_AX210_20250101_000000.csv", FileName(s, FormatCSV))
}
