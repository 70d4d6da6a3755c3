package sessionfile

import "github.com/HerbHall/wificomp/pkg/models"

// Report summarizes the integrity of a decoded session.
type Report struct {
	// Valid is true when the session has scans and at least one AP.
	Valid bool
	// Comparable is false for sessions that can only contribute "no data".
	Comparable bool
	HasScans   bool
	ScanCount  int
	APCount    int
	Warnings   []string
}

// Err returns ErrNoScans for a session without scans, nil otherwise.
func (r Report) Err() error {
	if !r.HasScans {
		return ErrNoScans
	}
	return nil
}

// Validate inspects s for conditions worth warning about.
func Validate(s *models.Session) Report {
	r := Report{
		HasScans:  len(s.Scans) > 0,
		ScanCount: len(s.Scans),
		APCount:   len(s.UniqueAPs()),
	}

	if !r.HasScans {
		r.Warnings = append(r.Warnings, "session has no scan data")
	}
	if s.Adapter.Interface == "" {
		r.Warnings = append(r.Warnings, "session has no adapter interface")
	}

	empty := 0
	for _, sc := range s.Scans {
		if len(sc.AccessPoints) == 0 {
			empty++
		}
	}
	if empty > 0 && empty == r.ScanCount {
		r.Warnings = append(r.Warnings, "all scans are empty (no APs detected)")
	}

	r.Valid = r.HasScans && r.APCount > 0
	r.Comparable = r.Valid
	return r
}
