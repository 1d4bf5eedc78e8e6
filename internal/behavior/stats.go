package behavior

import "time"

// Counts holds per-type event totals for one window.
type Counts map[EventType]int

// Reroutes returns the number of reroute actions in the window.
func (c Counts) Reroutes() int {
	return c[EventSwitchAsk] + c[EventSwitchLight] + c[EventChangeMode]
}

// GovernanceHits returns the number of governance-category hits.
func (c Counts) GovernanceHits() int {
	return c[EventLoad] + c[EventAuthority] + c[EventNoise]
}

// RerouteRate is reroutes/hits, 0 when there are no hits.
func (c Counts) RerouteRate() float64 {
	hits := c[EventHit]
	if hits == 0 {
		return 0
	}
	return float64(c.Reroutes()) / float64(hits)
}

// GovernanceRate is governance hits/hits, 0 when there are no hits.
func (c Counts) GovernanceRate() float64 {
	hits := c[EventHit]
	if hits == 0 {
		return 0
	}
	return float64(c.GovernanceHits()) / float64(hits)
}

// GovernanceAdoptionRate is reroutes/governance hits, 0 when there are no
// governance hits.
func (c Counts) GovernanceAdoptionRate() float64 {
	governance := c.GovernanceHits()
	if governance == 0 {
		return 0
	}
	return float64(c.Reroutes()) / float64(governance)
}

// Badge is one achievement in the fixed ladder.
type Badge struct {
	ID       string
	Unlocked bool
}

// Badge ids.
const (
	BadgeSteadyStart      = "steady_start"
	BadgePaceControl      = "pace_control"
	BadgeEfficientReroute = "efficient_reroute"
	BadgeCalmDriver       = "calm_driver"
)

// Stats are the rolled-up analytics over the event log.
type Stats struct {
	TotalEvents int

	Totals        Counts
	Last7Days     Counts
	Previous7Days Counts

	TotalsRerouteRate        float64
	Last7DaysRerouteRate     float64
	Previous7DaysRerouteRate float64
	RerouteRateDelta         float64

	GovernanceRate         float64
	GovernanceAdoptionRate float64

	Badges []Badge
}

const week = 7 * 24 * time.Hour

// ComputeStats rolls events up into Stats relative to now.
func ComputeStats(events []Event, now time.Time) Stats {
	weekAgo := now.Add(-week)
	twoWeeksAgo := now.Add(-2 * week)

	totals := make(Counts)
	last7 := make(Counts)
	previous7 := make(Counts)
	for _, event := range events {
		totals[event.Type]++
		if !event.Timestamp.Before(weekAgo) {
			last7[event.Type]++
		} else if !event.Timestamp.Before(twoWeeksAgo) {
			previous7[event.Type]++
		}
	}

	stats := Stats{
		TotalEvents:   len(events),
		Totals:        totals,
		Last7Days:     last7,
		Previous7Days: previous7,

		TotalsRerouteRate:        totals.RerouteRate(),
		Last7DaysRerouteRate:     last7.RerouteRate(),
		Previous7DaysRerouteRate: previous7.RerouteRate(),

		GovernanceRate:         last7.GovernanceRate(),
		GovernanceAdoptionRate: last7.GovernanceAdoptionRate(),
	}
	stats.RerouteRateDelta = stats.Last7DaysRerouteRate - stats.Previous7DaysRerouteRate
	stats.Badges = computeBadges(totals, last7, stats.Last7DaysRerouteRate)
	return stats
}

// computeBadges evaluates the fixed badge ladder.
func computeBadges(totals, last7 Counts, last7RerouteRate float64) []Badge {
	return []Badge{
		{
			ID:       BadgeSteadyStart,
			Unlocked: totals.Reroutes() >= 3,
		},
		{
			ID:       BadgePaceControl,
			Unlocked: last7[EventHit] >= 3 && last7RerouteRate >= 0.3,
		},
		{
			ID:       BadgeEfficientReroute,
			Unlocked: last7[EventHit] >= 3 && last7RerouteRate >= 0.5,
		},
		{
			ID:       BadgeCalmDriver,
			Unlocked: totals[EventContinue] >= 5 && totals[EventSwitchLight] >= 1,
		},
	}
}

// CategoryEvent maps a governance category to its hit event type, or
// ("", false) for non-governance rules.
func CategoryEvent(category string) (EventType, bool) {
	switch category {
	case "load":
		return EventLoad, true
	case "authority":
		return EventAuthority, true
	case "noise":
		return EventNoise, true
	}
	return "", false
}
