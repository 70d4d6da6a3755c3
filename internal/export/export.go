// Package export renders sessions and comparisons as JSON, YAML or CSV.
package export

import (
	"cmp"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/HerbHall/wificomp/internal/compare"
	"github.com/HerbHall/wificomp/internal/sessionfile"
	"github.com/HerbHall/wificomp/pkg/models"
)

// ErrUnknownFormat is returned for an unsupported export format.
var ErrUnknownFormat = errors.New("unknown export format")

// Format is an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts json, yaml/yml and csv.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string {
	return string(f)
}

// Exporter writes sessions and comparison results.
type Exporter struct {
	logger *zap.Logger
	codec  *sessionfile.Codec
}

// New returns an Exporter. JSON session exports use the session file codec
// so they can be loaded back.
func New(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger, codec: sessionfile.NewCodec(logger)}
}

// WriteSession renders s in format f. CSV has one row per sample per
// access point.
func (e *Exporter) WriteSession(w io.Writer, s *models.Session, f Format) error {
	switch f {
	case FormatJSON:
		return e.codec.Encode(w, s)
	case FormatYAML:
		return writeYAML(w, s)
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(sessionCSVHeaders()); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		for _, sc := range s.Scans {
			for _, o := range sc.AccessPoints {
				if err := cw.Write(observationToCSVRow(sc.Timestamp, o)); err != nil {
					return fmt.Errorf("write csv row: %w", err)
				}
			}
		}
		cw.Flush()
		return cw.Error()
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// ReadSessionCSV rebuilds a session from a session CSV export. Rows sharing
// a timestamp form one sample. Invalid rows are skipped.
func (e *Exporter) ReadSessionCSV(r io.Reader, adapter models.AdapterInfo) (*models.Session, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read csv: no header row")
	}

	type group struct {
		ts  time.Time
		obs []models.Observation
	}
	var groups []*group
	byTime := make(map[int64]*group)
	skipped := 0
	for i, rec := range records[1:] {
		ts, o, err := csvRowToObservation(rec)
		if err != nil {
			skipped++
			e.logger.Debug("skipping csv row", zap.Int("row", i+2), zap.Error(err))
			continue
		}
		g, ok := byTime[ts.UnixNano()]
		if !ok {
			g = &group{ts: ts}
			byTime[ts.UnixNano()] = g
			groups = append(groups, g)
		}
		g.obs = append(g.obs, o)
	}
	slices.SortStableFunc(groups, func(a, b *group) int { return a.ts.Compare(b.ts) })

	start := time.Now().UTC()
	if len(groups) > 0 {
		start = groups[0].ts
	}
	s := models.NewSession(adapter, start, 0)
	for _, g := range groups {
		if err := s.Append(models.NewScanSample(g.ts, g.obs)); err != nil {
			return nil, err
		}
	}
	if skipped > 0 {
		e.logger.Warn("csv rows skipped", zap.Int("skipped", skipped))
	}
	return s, nil
}

type reportValue struct {
	Session string   `json:"session" yaml:"session"`
	Present bool     `json:"present" yaml:"present"`
	Value   *float64 `json:"value" yaml:"value"`
	Average *float64 `json:"avg_signal" yaml:"avg_signal"`
	Min     *int     `json:"min_signal" yaml:"min_signal"`
	Max     *int     `json:"max_signal" yaml:"max_signal"`
	Count   int      `json:"scan_count" yaml:"scan_count"`
	Rank    int      `json:"rank,omitempty" yaml:"rank,omitempty"`
	Winner  bool     `json:"winner" yaml:"winner"`
}

type reportAP struct {
	Key    string        `json:"key" yaml:"key"`
	SSID   string        `json:"ssid" yaml:"ssid"`
	BSSIDs []string      `json:"bssids" yaml:"bssids"`
	Values []reportValue `json:"values" yaml:"values"`
}

type reportSession struct {
	Name      string `json:"name" yaml:"name"`
	Path      string `json:"path,omitempty" yaml:"path,omitempty"`
	Adapter   string `json:"adapter" yaml:"adapter"`
	Interface string `json:"interface" yaml:"interface"`
	Label     string `json:"label,omitempty" yaml:"label,omitempty"`
	Scans     int    `json:"scans" yaml:"scans"`
	Inert     bool   `json:"inert" yaml:"inert"`
	Wins      int    `json:"wins" yaml:"wins"`
}

type comparisonReport struct {
	MatchMode    string          `json:"match_mode" yaml:"match_mode"`
	Metric       string          `json:"metric" yaml:"metric"`
	Sessions     []reportSession `json:"sessions" yaml:"sessions"`
	AccessPoints []reportAP      `json:"access_points" yaml:"access_points"`
	Best         string          `json:"best,omitempty" yaml:"best,omitempty"`
	Tie          bool            `json:"tie" yaml:"tie"`
	Leaders      []string        `json:"leaders" yaml:"leaders"`
}

func newComparisonReport(res *compare.Result) comparisonReport {
	rep := comparisonReport{
		MatchMode:    res.Mode.String(),
		Metric:       res.Metric.String(),
		Sessions:     make([]reportSession, len(res.Slots)),
		AccessPoints: make([]reportAP, 0, len(res.Rows)),
		Tie:          res.Best.Tie,
		Leaders:      []string{},
	}
	for i, s := range res.Slots {
		rep.Sessions[i] = reportSession{
			Name:      s.Name,
			Path:      s.Path,
			Adapter:   s.Session.Adapter.DisplayName(),
			Interface: s.Session.Adapter.Interface,
			Label:     s.Session.Adapter.Label,
			Scans:     len(s.Session.Scans),
			Inert:     s.Inert,
			Wins:      res.Best.Wins[i],
		}
	}
	for _, i := range res.Best.Leaders {
		rep.Leaders = append(rep.Leaders, res.Slots[i].Name)
	}
	if i, ok := res.Best.Slot(); ok {
		rep.Best = res.Slots[i].Name
	}

	for _, row := range res.Rows {
		ap := reportAP{
			Key:    row.Identity.Key,
			SSID:   row.Identity.SSID,
			BSSIDs: row.Identity.BSSIDs,
			Values: make([]reportValue, len(row.Values)),
		}
		for i, v := range row.Values {
			rv := reportValue{Session: res.Slots[i].Name, Present: v.Present}
			if v.Present {
				val, avg, lo, hi := v.Value, v.Stats.Average, v.Stats.Min, v.Stats.Max
				rv.Value, rv.Average, rv.Min, rv.Max = &val, &avg, &lo, &hi
				rv.Count, rv.Rank, rv.Winner = v.Stats.Count, v.Rank, v.Winner
			}
			ap.Values[i] = rv
		}
		rep.AccessPoints = append(rep.AccessPoints, ap)
	}
	return rep
}

// WriteComparison renders a comparison result in format f. CSV has one row
// per access point per session, with N/A where the session never saw it.
func (e *Exporter) WriteComparison(w io.Writer, res *compare.Result, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(newComparisonReport(res)); err != nil {
			return fmt.Errorf("encode comparison: %w", err)
		}
		return nil
	case FormatYAML:
		return writeYAML(w, newComparisonReport(res))
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(comparisonCSVHeaders()); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		for _, row := range res.Rows {
			for i := range res.Slots {
				if err := cw.Write(comparisonToCSVRow(res, row, i)); err != nil {
					return fmt.Errorf("write csv row: %w", err)
				}
			}
		}
		cw.Flush()
		return cw.Error()
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// FileName suggests a file name for exporting s in format f.
func FileName(s *models.Session, f Format) string {
	return fmt.Sprintf("%s_%s.%s",
		s.Adapter.SafeName(),
		s.StartedAt.UTC().Format("20060102_150405"),
		cmp.Or(f.Extension(), string(FormatJSON)),
	)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
