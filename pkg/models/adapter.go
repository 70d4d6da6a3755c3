package models

import "strings"

// AdapterInfo describes the WiFi adapter a session was recorded with.
type AdapterInfo struct {
	Interface string `json:"interface" yaml:"interface"`
	Driver    string `json:"driver" yaml:"driver"`
	Chipset   string `json:"chipset" yaml:"chipset"`
	Label     string `json:"label" yaml:"label"`
}

// Identity is the name sessions are compared under: the user label when
// set, else the chipset string.
func (a AdapterInfo) Identity() string {
	if a.Label != "" {
		return a.Label
	}
	return a.Chipset
}

// DisplayName prefers the label, then a meaningful chipset, then the
// interface name.
func (a AdapterInfo) DisplayName() string {
	switch {
	case a.Label != "":
		return a.Label
	case a.Chipset != "" && a.Chipset != "unknown":
		return a.Chipset
	default:
		return a.Interface
	}
}

// DisplayNameFull appends the interface to the display name.
func (a AdapterInfo) DisplayNameFull() string {
	if a.Label != "" {
		return `"` + a.Label + `" (` + a.Interface + ")"
	}
	return a.DisplayName() + " (" + a.Interface + ")"
}

// SafeName returns the display name with every character outside
// [A-Za-z0-9_-] replaced by an underscore, for use in file paths.
func (a AdapterInfo) SafeName() string {
	var b strings.Builder
	for _, r := range a.DisplayName() {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}
