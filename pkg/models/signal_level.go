package models

// SignalLevel buckets a dBm reading for display.
type SignalLevel string

const (
	SignalExcellent SignalLevel = "excellent"
	SignalGood      SignalLevel = "good"
	SignalFair      SignalLevel = "fair"
	SignalWeak      SignalLevel = "weak"
	SignalPoor      SignalLevel = "poor"
)

// SignalLevelFor returns the level for a reading in dBm.
func SignalLevelFor(dbm int) SignalLevel {
	switch {
	case dbm >= -50:
		return SignalExcellent
	case dbm >= -60:
		return SignalGood
	case dbm >= -70:
		return SignalFair
	case dbm >= -80:
		return SignalWeak
	default:
		return SignalPoor
	}
}

// SignalGlyph maps a SignalLevel to the bar glyph used in terminal output.
var SignalGlyph = map[SignalLevel]string{
	SignalExcellent: "▇",
	SignalGood:      "▆",
	SignalFair:      "▄",
	SignalWeak:      "▂",
	SignalPoor:      "▁",
}

// Glyph returns the bar glyph for a level, or "?" for unrecognised levels.
func (l SignalLevel) Glyph() string {
	if g, ok := SignalGlyph[l]; ok {
		return g
	}
	return "?"
}
