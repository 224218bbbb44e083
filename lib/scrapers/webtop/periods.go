package webtop

import "log/slog"

// Period ids the portal stamps on grade records. The upstream does
// not expose a period parameter on the grades endpoint, so records
// are fetched once and partitioned by period_id.
const (
	DefaultPeriod1ID = 1538
	DefaultPeriod2ID = 1539
)

// PartitionPeriods splits grades into the two academic-term buckets.
// Records without a period id count toward the first period so the
// two sets stay disjoint.
func PartitionPeriods(grades []Grade, period1ID, period2ID int) (period1, period2 []Grade) {
	period1 = []Grade{}
	period2 = []Grade{}
	dropped := 0
	for _, g := range grades {
		switch g.PeriodID {
		case period2ID:
			period2 = append(period2, g)
		case period1ID, 0:
			period1 = append(period1, g)
		default:
			dropped++
		}
	}
	if dropped > 0 {
		// usually means the school changed its period ids mid-year
		slog.Warn("dropping grade records with unrecognized period id",
			"count", dropped, "period1_id", period1ID, "period2_id", period2ID)
	}
	return period1, period2
}
