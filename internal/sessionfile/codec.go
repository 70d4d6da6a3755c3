// Package sessionfile reads and writes versioned session files and manages
// the on-disk session directory.
package sessionfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/HerbHall/wificomp/pkg/models"
)

// Sentinel errors returned by Decode and Load.
var (
	ErrUnsupportedVersion = errors.New("unsupported session version")
	ErrMalformed          = errors.New("malformed session file")
	ErrNoScans            = errors.New("session has no scans")
)

var validate = validator.New()

// fileSession mirrors the persisted layout. Pointer fields distinguish a
// missing key from a zero value.
type fileSession struct {
	Version            string      `json:"version" validate:"required"`
	Adapter            fileAdapter `json:"adapter"`
	StartedAt          *time.Time  `json:"started_at" validate:"required"`
	DurationTargetSecs *int64      `json:"duration_target_secs" validate:"omitempty,gte=0"`
	Scans              *[]fileScan `json:"scans" validate:"required"`
}

type fileAdapter struct {
	Interface string `json:"interface"`
	Driver    string `json:"driver"`
	Chipset   string `json:"chipset"`
	Label     string `json:"label"`
}

type fileScan struct {
	Timestamp    *time.Time `json:"timestamp" validate:"required"`
	AccessPoints []fileAP   `json:"access_points"`
}

type fileAP struct {
	BSSID        string      `json:"bssid"`
	SSID         string      `json:"ssid"`
	SignalDBm    json.Number `json:"signal_dbm"`
	Channel      int         `json:"channel"`
	FrequencyMHz int         `json:"frequency_mhz"`
}

// Codec encodes and decodes session files.
type Codec struct {
	logger *zap.Logger
}

// NewCodec returns a codec that logs dropped observations to logger.
func NewCodec(logger *zap.Logger) *Codec {
	return &Codec{logger: logger}
}

// Encode writes s as indented JSON.
func (c *Codec) Encode(w io.Writer, s *models.Session) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return nil
}

// Marshal returns the encoded form of s.
func (c *Codec) Marshal(s *models.Session) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Encode(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads one session. Unknown versions are rejected; invalid
// observations are dropped from their sample and duplicate BSSIDs within a
// sample collapse to the last one.
func (c *Codec) Decode(r io.Reader) (*models.Session, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var f fileSession
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if f.Version != "" && f.Version != models.SessionVersion {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, f.Version)
	}
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var target time.Duration
	if f.DurationTargetSecs != nil {
		target = time.Duration(*f.DurationTargetSecs) * time.Second
	}
	s := models.NewSession(models.AdapterInfo(f.Adapter), *f.StartedAt, target)

	dropped := 0
	for i, sc := range *f.Scans {
		if err := validate.Struct(sc); err != nil {
			return nil, fmt.Errorf("%w: scan %d: %v", ErrMalformed, i, err)
		}
		obs := make([]models.Observation, 0, len(sc.AccessPoints))
		for _, ap := range sc.AccessPoints {
			o, err := decodeAP(ap)
			if err != nil {
				dropped++
				c.logger.Debug("dropping invalid observation",
					zap.Int("scan", i),
					zap.String("bssid", ap.BSSID),
					zap.Error(err),
				)
				continue
			}
			obs = append(obs, o)
		}
		if err := s.Append(models.NewScanSample(*sc.Timestamp, obs)); err != nil {
			return nil, fmt.Errorf("%w: scan %d: %v", ErrMalformed, i, err)
		}
	}
	if dropped > 0 {
		c.logger.Warn("session contained invalid observations",
			zap.Int("dropped", dropped),
		)
	}
	return s, nil
}

// Unmarshal decodes a session from data.
func (c *Codec) Unmarshal(data []byte) (*models.Session, error) {
	return c.Decode(bytes.NewReader(data))
}

func decodeAP(ap fileAP) (models.Observation, error) {
	f, err := ap.SignalDBm.Float64()
	if err != nil {
		return models.Observation{}, fmt.Errorf("%w: %q", models.ErrInvalidSignal, ap.SignalDBm)
	}
	signal, err := models.SignalFromFloat(f)
	if err != nil {
		return models.Observation{}, err
	}
	return models.NewObservation(ap.BSSID, ap.SSID, signal, ap.Channel, ap.FrequencyMHz)
}
