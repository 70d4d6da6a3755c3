package live

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/HerbHall/wificomp/pkg/models"
)

// View returns the observations that pass filter, ordered by sortBy.
// Signal sorts strongest first; SSID sorts case-insensitively; channel sorts
// ascending. Ties keep BSSID order so the list does not jitter.
func View(obs []models.Observation, sortBy models.SortBy, filter models.FrequencyFilter) []models.Observation {
	out := make([]models.Observation, 0, len(obs))
	for _, o := range obs {
		if filter.Matches(o.Band()) {
			out = append(out, o)
		}
	}

	slices.SortStableFunc(out, func(a, b models.Observation) int {
		var c int
		switch sortBy {
		case models.SortBySSID:
			c = strings.Compare(strings.ToLower(a.SSID), strings.ToLower(b.SSID))
		case models.SortByChannel:
			c = cmp.Compare(a.Channel, b.Channel)
		default:
			c = cmp.Compare(b.SignalDBm, a.SignalDBm)
		}
		if c != 0 {
			return c
		}
		return strings.Compare(a.BSSID, b.BSSID)
	})
	return out
}

// BelowThreshold reports whether obs is weaker than the alert threshold.
// A nil threshold disables alerts.
func BelowThreshold(o models.Observation, threshold *int) bool {
	return threshold != nil && o.SignalDBm < *threshold
}

// FormatDuration renders d as MM:SS, truncating to whole seconds.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// FormatTimer renders the session timer. Countdown mode with a target shows
// "remaining/target"; otherwise the elapsed time is shown.
func FormatTimer(st Status, mode models.TimerMode) string {
	if st.HasTarget && mode == models.TimerCountdown {
		remaining := max(st.Target-st.Elapsed, 0)
		return FormatDuration(remaining) + "/" + FormatDuration(st.Target)
	}
	if st.HasTarget {
		return FormatDuration(st.Elapsed) + "/" + FormatDuration(st.Target)
	}
	return FormatDuration(st.Elapsed)
}
