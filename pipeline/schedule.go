package pipeline

import (
	"time"

	"github.com/MuhammadSohaibRiaz/NexFLow/models"
)

// NextRunAt computes when a pipeline should run next. A lastScheduled in the
// past is clamped forward to now first, so a pipeline that missed runs during
// downtime doesn't accumulate a backlog. Monthly uses calendar arithmetic
// with plain day overflow (Jan 31 + 1 month rolls into early March).
func NextRunAt(frequency string, lastScheduled, now time.Time) time.Time {
	next := lastScheduled
	if next.Before(now) {
		next = now
	}

	switch frequency {
	case models.FrequencyWeekly:
		return next.AddDate(0, 0, 7)
	case models.FrequencyBiWeekly:
		return next.AddDate(0, 0, 14)
	case models.FrequencyMonthly:
		return next.AddDate(0, 1, 0)
	default:
		// Daily, and the safe choice for anything unrecognized.
		return next.AddDate(0, 0, 1)
	}
}
