package models

import "time"

// SessionInfo is the catalog record for a saved session file.
type SessionInfo struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	AdapterName string    `json:"adapter_name"`
	Interface   string    `json:"interface"`
	Chipset     string    `json:"chipset"`
	Label       string    `json:"label,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	ScanCount   int       `json:"scan_count"`
	APCount     int       `json:"ap_count"`
	Quarantined bool      `json:"quarantined"`
	IndexedAt   time.Time `json:"indexed_at"`
}

// AdapterSummary groups catalog entries by adapter.
type AdapterSummary struct {
	Name         string `json:"name"`
	SessionCount int    `json:"session_count"`
}
