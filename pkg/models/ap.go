package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidBSSID is returned when a hardware address is not six
// colon-separated hex octets.
var ErrInvalidBSSID = errors.New("invalid bssid")

// ErrInvalidSignal is returned when a signal reading is NaN or infinite.
var ErrInvalidSignal = errors.New("invalid signal")

// Observation is a single access point reading captured during one scan pass.
// Values are immutable once created through NewObservation.
type Observation struct {
	BSSID        string `json:"bssid" yaml:"bssid"`
	SSID         string `json:"ssid" yaml:"ssid"`
	SignalDBm    int    `json:"signal_dbm" yaml:"signal_dbm"`
	Channel      int    `json:"channel" yaml:"channel"`
	FrequencyMHz int    `json:"frequency_mhz" yaml:"frequency_mhz"`
}

// NewObservation validates and normalizes the BSSID and returns an Observation.
func NewObservation(bssid, ssid string, signalDBm, channel, frequencyMHz int) (Observation, error) {
	norm, err := NormalizeBSSID(bssid)
	if err != nil {
		return Observation{}, err
	}
	return Observation{
		BSSID:        norm,
		SSID:         ssid,
		SignalDBm:    signalDBm,
		Channel:      channel,
		FrequencyMHz: frequencyMHz,
	}, nil
}

// Band returns the frequency band the observation was seen on.
func (o Observation) Band() Band {
	return BandFromFrequency(o.FrequencyMHz)
}

// SignalPercent maps -100 dBm to 0% and -30 dBm to 100%.
func (o Observation) SignalPercent() int {
	return SignalPercent(o.SignalDBm)
}

// SignalPercent maps a dBm reading onto 0..100.
func SignalPercent(dbm int) int {
	clamped := min(max(dbm, -100), -30)
	return (clamped + 100) * 100 / 70
}

// SignalFromFloat rounds a fractional dBm reading to an integer.
// Non-finite readings are rejected.
func SignalFromFloat(v float64) (int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidSignal, v)
	}
	return int(math.Round(v)), nil
}

// NormalizeBSSID validates a hardware address as six colon-separated hex
// octets and returns it in upper case (e.g., "AA:BB:CC:DD:EE:FF").
func NormalizeBSSID(bssid string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(bssid))
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return "", fmt.Errorf("%w: %q", ErrInvalidBSSID, bssid)
	}
	for _, p := range parts {
		if len(p) != 2 || !isHex(p[0]) || !isHex(p[1]) {
			return "", fmt.Errorf("%w: %q", ErrInvalidBSSID, bssid)
		}
	}
	return s, nil
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')
}

// Band categorizes a WiFi frequency.
type Band int

const (
	Band24GHz Band = iota
	Band5GHz
	Band6GHz
)

// BandFromFrequency classifies a center frequency in MHz.
func BandFromFrequency(mhz int) Band {
	switch {
	case mhz < 3000:
		return Band24GHz
	case mhz < 5900:
		return Band5GHz
	default:
		return Band6GHz
	}
}

// ShortName returns the compact label used in tables ("2G", "5G", "6G").
func (b Band) ShortName() string {
	switch b {
	case Band24GHz:
		return "2G"
	case Band5GHz:
		return "5G"
	default:
		return "6G"
	}
}

func (b Band) String() string { return b.ShortName() }

// channelTable covers the channels common on consumer hardware.
var channelTable = map[int]int{
	2412: 1, 2417: 2, 2422: 3, 2427: 4, 2432: 5, 2437: 6, 2442: 7,
	2447: 8, 2452: 9, 2457: 10, 2462: 11, 2467: 12, 2472: 13, 2484: 14,
	5180: 36, 5200: 40, 5220: 44, 5240: 48, 5260: 52, 5280: 56, 5300: 60,
	5320: 64, 5500: 100, 5520: 104, 5540: 108, 5560: 112, 5580: 116,
	5600: 120, 5620: 124, 5640: 128, 5660: 132, 5680: 136, 5700: 140,
	5720: 144, 5745: 149, 5765: 153, 5785: 157, 5805: 161, 5825: 165,
	5955: 1, 5975: 5, 5995: 9, 6015: 13,
}

// FrequencyToChannel converts a center frequency in MHz to a channel number.
// Frequencies outside the table are computed from the band's base frequency.
func FrequencyToChannel(mhz int) int {
	if ch, ok := channelTable[mhz]; ok {
		return ch
	}
	switch BandFromFrequency(mhz) {
	case Band24GHz:
		return (mhz - 2407) / 5
	case Band5GHz:
		return (mhz - 5000) / 5
	default:
		return (mhz - 5950) / 5
	}
}
