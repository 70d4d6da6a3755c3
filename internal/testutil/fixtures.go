package testutil

import (
	"fmt"
	"time"

	"github.com/HerbHall/wificomp/pkg/models"
)

// Epoch is the fixed start time used by fixtures.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// NewObservation returns an Observation with sensible defaults on channel 6.
// Override individual fields through options.
func NewObservation(opts ...func(*models.Observation)) models.Observation {
	o := models.Observation{
		BSSID:        "AA:BB:CC:DD:EE:FF",
		SSID:         "TestNet",
		SignalDBm:    -55,
		Channel:      6,
		FrequencyMHz: 2437,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithBSSID sets the observation's hardware address.
func WithBSSID(bssid string) func(*models.Observation) {
	return func(o *models.Observation) { o.BSSID = bssid }
}

// WithSSID sets the observation's network name.
func WithSSID(ssid string) func(*models.Observation) {
	return func(o *models.Observation) { o.SSID = ssid }
}

// WithSignal sets the observation's signal in dBm.
func WithSignal(dbm int) func(*models.Observation) {
	return func(o *models.Observation) { o.SignalDBm = dbm }
}

// WithFrequency sets the frequency and derives the channel from it.
func WithFrequency(mhz int) func(*models.Observation) {
	return func(o *models.Observation) {
		o.FrequencyMHz = mhz
		o.Channel = models.FrequencyToChannel(mhz)
	}
}

// BSSID returns a deterministic hardware address for index n.
func BSSID(n int) string {
	return fmt.Sprintf("00:11:22:33:%02X:%02X", (n>>8)&0xff, n&0xff)
}

// NewAdapter returns adapter metadata for a fictional chipset.
func NewAdapter(chipset string) models.AdapterInfo {
	return models.AdapterInfo{
		Interface: "wlan0",
		Driver:    "testdrv",
		Chipset:   chipset,
	}
}

// NewSession builds a session starting at Epoch with one sample per entry
// of samples, spaced interval apart.
func NewSession(adapter models.AdapterInfo, interval time.Duration, samples ...[]models.Observation) *models.Session {
	s := models.NewSession(adapter, Epoch, 0)
	for i, obs := range samples {
		ts := Epoch.Add(time.Duration(i) * interval)
		if err := s.Append(models.NewScanSample(ts, obs)); err != nil {
			panic("testutil.NewSession: " + err.Error())
		}
	}
	return s
}
