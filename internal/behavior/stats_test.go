package behavior

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventAt(t time.Time, typ EventType) Event {
	return Event{Timestamp: t, Type: typ}
}

func repeat(t time.Time, typ EventType, n int) []Event {
	events := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, eventAt(t, typ))
	}
	return events
}

func TestRerouteRateZeroGuard(t *testing.T) {
	counts := Counts{EventSwitchAsk: 3, EventChangeMode: 1}
	assert.Zero(t, counts.RerouteRate(), "no hits means rate 0, never NaN")
}

func TestRerouteRateFormula(t *testing.T) {
	tests := []struct {
		name   string
		counts Counts
		want   float64
	}{
		{"all three reroute kinds", Counts{EventHit: 10, EventSwitchAsk: 2, EventSwitchLight: 1, EventChangeMode: 2}, 0.5},
		{"continues do not count", Counts{EventHit: 4, EventContinue: 4}, 0},
		{"mutes do not count", Counts{EventHit: 4, EventMuteRule: 2}, 0},
		{"single reroute", Counts{EventHit: 2, EventSwitchLight: 1}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.counts.RerouteRate(), 1e-9)
		})
	}
}

func TestGovernanceAdoptionZeroGuard(t *testing.T) {
	counts := Counts{EventHit: 5, EventSwitchAsk: 2}
	assert.Zero(t, counts.GovernanceAdoptionRate(), "no governance hits means 0")
}

func TestGovernanceRates(t *testing.T) {
	counts := Counts{
		EventHit:       4,
		EventLoad:      1,
		EventNoise:     1,
		EventSwitchAsk: 1,
	}
	assert.InDelta(t, 0.5, counts.GovernanceRate(), 1e-9)
	assert.InDelta(t, 0.5, counts.GovernanceAdoptionRate(), 1e-9)
}

func TestComputeStatsWindows(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-24 * time.Hour)
	lastWeek := now.Add(-9 * 24 * time.Hour)
	ancient := now.Add(-30 * 24 * time.Hour)

	var events []Event
	events = append(events, repeat(recent, EventHit, 4)...)
	events = append(events, repeat(recent, EventSwitchAsk, 2)...)
	events = append(events, repeat(lastWeek, EventHit, 2)...)
	events = append(events, eventAt(lastWeek, EventSwitchLight))
	events = append(events, repeat(ancient, EventHit, 5)...)

	stats := ComputeStats(events, now)

	assert.Equal(t, 14, stats.TotalEvents)
	assert.Equal(t, 4, stats.Last7Days[EventHit])
	assert.Equal(t, 2, stats.Previous7Days[EventHit])
	assert.Equal(t, 11, stats.Totals[EventHit])

	assert.InDelta(t, 0.5, stats.Last7DaysRerouteRate, 1e-9)
	assert.InDelta(t, 0.5, stats.Previous7DaysRerouteRate, 1e-9)
	assert.InDelta(t, 0, stats.RerouteRateDelta, 1e-9)
	assert.InDelta(t, 3.0/11.0, stats.TotalsRerouteRate, 1e-9)
}

func TestComputeStatsEmpty(t *testing.T) {
	stats := ComputeStats(nil, time.Now())
	assert.Zero(t, stats.TotalEvents)
	assert.Zero(t, stats.TotalsRerouteRate)
	assert.Zero(t, stats.RerouteRateDelta)
	assert.Zero(t, stats.GovernanceRate)
	for _, badge := range stats.Badges {
		assert.False(t, badge.Unlocked)
	}
}

func badgeByID(t *testing.T, stats Stats, id string) Badge {
	t.Helper()
	for _, badge := range stats.Badges {
		if badge.ID == id {
			return badge
		}
	}
	t.Fatalf("badge %s not found", id)
	return Badge{}
}

func TestBadgePaceControl(t *testing.T) {
	now := time.Now()
	recent := now.Add(-time.Hour)

	// 3 hits, 1 reroute: rate 1/3 >= 0.3 -> unlocked.
	var events []Event
	events = append(events, repeat(recent, EventHit, 3)...)
	events = append(events, eventAt(recent, EventChangeMode))
	assert.True(t, badgeByID(t, ComputeStats(events, now), BadgePaceControl).Unlocked)

	// Only 2 hits in the window: locked regardless of rate.
	events = append(repeat(recent, EventHit, 2), eventAt(recent, EventSwitchAsk))
	assert.False(t, badgeByID(t, ComputeStats(events, now), BadgePaceControl).Unlocked)

	// 4 hits, 1 reroute: rate 0.25 < 0.3 -> locked.
	events = append(repeat(recent, EventHit, 4), eventAt(recent, EventSwitchAsk))
	assert.False(t, badgeByID(t, ComputeStats(events, now), BadgePaceControl).Unlocked)

	// Old reroutes outside the window do not help.
	old := now.Add(-10 * 24 * time.Hour)
	events = append(repeat(recent, EventHit, 3), repeat(old, EventSwitchAsk, 3)...)
	assert.False(t, badgeByID(t, ComputeStats(events, now), BadgePaceControl).Unlocked)
}

func TestBadgeSteadyStart(t *testing.T) {
	now := time.Now()
	old := now.Add(-60 * 24 * time.Hour)

	// Cumulative reroutes count even when ancient.
	events := []Event{
		eventAt(old, EventSwitchAsk),
		eventAt(old, EventSwitchLight),
		eventAt(old, EventChangeMode),
	}
	assert.True(t, badgeByID(t, ComputeStats(events, now), BadgeSteadyStart).Unlocked)

	assert.False(t, badgeByID(t, ComputeStats(events[:2], now), BadgeSteadyStart).Unlocked)
}

func TestBadgeEfficientReroute(t *testing.T) {
	now := time.Now()
	recent := now.Add(-time.Hour)

	events := append(repeat(recent, EventHit, 4), repeat(recent, EventSwitchLight, 2)...)
	assert.True(t, badgeByID(t, ComputeStats(events, now), BadgeEfficientReroute).Unlocked)

	events = append(repeat(recent, EventHit, 4), eventAt(recent, EventSwitchLight))
	assert.False(t, badgeByID(t, ComputeStats(events, now), BadgeEfficientReroute).Unlocked)
}

func TestBadgeCalmDriver(t *testing.T) {
	now := time.Now()
	recent := now.Add(-time.Hour)

	events := append(repeat(recent, EventContinue, 5), eventAt(recent, EventSwitchLight))
	assert.True(t, badgeByID(t, ComputeStats(events, now), BadgeCalmDriver).Unlocked)

	events = repeat(recent, EventContinue, 5)
	assert.False(t, badgeByID(t, ComputeStats(events, now), BadgeCalmDriver).Unlocked)

	events = append(repeat(recent, EventContinue, 4), eventAt(recent, EventSwitchLight))
	assert.False(t, badgeByID(t, ComputeStats(events, now), BadgeCalmDriver).Unlocked)
}

func TestCategoryEvent(t *testing.T) {
	for category, want := range map[string]EventType{
		"load":      EventLoad,
		"authority": EventAuthority,
		"noise":     EventNoise,
	} {
		got, ok := CategoryEvent(category)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := CategoryEvent("")
	assert.False(t, ok)
}
