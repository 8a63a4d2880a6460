package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esteemed/backend/internal/model"
)

// 2026-03-16 is a Monday.
var monday = time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC)

func urgeAt(t time.Time, trigger string) model.UrgeEvent {
	return model.UrgeEvent{OccurredAt: t, Trigger: trigger, Victory: "went for a walk"}
}

func TestElapsedSinceDecomposesWithFloorDivision(t *testing.T) {
	start := monday.Add(-90 * time.Minute)
	elapsed := ElapsedSince(&start, monday)

	assert.True(t, elapsed.Active)
	assert.Equal(t, 0, elapsed.Days)
	assert.Equal(t, 1, elapsed.Hours)
	assert.Equal(t, 30, elapsed.Minutes)
}

func TestElapsedSinceNoActiveStreak(t *testing.T) {
	elapsed := ElapsedSince(nil, monday)

	assert.False(t, elapsed.Active)
	assert.Equal(t, Elapsed{}, elapsed)
	assert.Equal(t, 0, StreakDays(nil, monday))
}

func TestElapsedSinceClampsClockMovedBackward(t *testing.T) {
	start := monday.Add(3 * time.Hour)
	elapsed := ElapsedSince(&start, monday)

	assert.True(t, elapsed.Active)
	assert.Equal(t, 0, elapsed.Days)
	assert.Equal(t, 0, elapsed.Hours)
	assert.Equal(t, 0, elapsed.Minutes)
}

func TestStreakDaysWholeDaysOnly(t *testing.T) {
	start := monday.Add(-49 * time.Hour)
	assert.Equal(t, 2, StreakDays(&start, monday))
}

func TestWeeklySeriesWindow(t *testing.T) {
	times := []time.Time{
		monday,                     // today
		monday.AddDate(0, 0, -1),   // yesterday
		monday.AddDate(0, 0, -6),   // oldest bucket
		monday.AddDate(0, 0, -7),   // outside the window
	}

	buckets := WeeklySeries(times, monday, time.UTC)
	require.Len(t, buckets, 7)

	assert.Equal(t, "2026-03-10", buckets[0].Date)
	assert.Equal(t, "2026-03-16", buckets[6].Date)
	assert.Equal(t, "Mon", buckets[6].Label)

	assert.Equal(t, 1, buckets[0].Count)
	assert.Equal(t, 1, buckets[5].Count)
	assert.Equal(t, 1, buckets[6].Count)

	total := 0
	for _, bucket := range buckets {
		total += bucket.Count
	}
	assert.Equal(t, 3, total, "the eighth day back must not be counted")
}

func TestWeeklySeriesUsesOneZoneForBucketsAndEvents(t *testing.T) {
	est := time.FixedZone("UTC-5", -5*60*60)

	// 23:30 local on the 15th is 04:30 UTC on the 16th; with a single zone
	// convention it must land in the 15th's bucket.
	event := time.Date(2026, 3, 16, 4, 30, 0, 0, time.UTC)
	now := time.Date(2026, 3, 16, 18, 0, 0, 0, est)

	buckets := WeeklySeries([]time.Time{event}, now, est)
	require.Len(t, buckets, 7)

	for _, bucket := range buckets {
		if bucket.Date == "2026-03-15" {
			assert.Equal(t, 1, bucket.Count)
		} else {
			assert.Zero(t, bucket.Count, "unexpected count on %s", bucket.Date)
		}
	}
}

func TestTopTriggersTrimWithoutCaseFolding(t *testing.T) {
	events := []model.UrgeEvent{
		urgeAt(monday, "Stress"),
		urgeAt(monday, " stress "),
		urgeAt(monday, "Boredom"),
		urgeAt(monday, "Stress"),
	}

	ranked := TopTriggers(events, 4)
	require.Len(t, ranked, 3)

	assert.Equal(t, TriggerCount{Category: "Stress", Count: 2}, ranked[0])
	// stress and Boredom tie at 1; first-seen order wins.
	assert.Equal(t, TriggerCount{Category: "stress", Count: 1}, ranked[1])
	assert.Equal(t, TriggerCount{Category: "Boredom", Count: 1}, ranked[2])
}

func TestTopTriggersDropsEmptyAndAppliesLimit(t *testing.T) {
	events := []model.UrgeEvent{
		urgeAt(monday, "   "),
		urgeAt(monday, "a"),
		urgeAt(monday, "b"),
		urgeAt(monday, "c"),
		urgeAt(monday, "d"),
		urgeAt(monday, "e"),
	}

	ranked := TopTriggers(events, 4)
	require.Len(t, ranked, 4)
	for _, row := range ranked {
		assert.NotEmpty(t, row.Category)
	}
}

func TestHeatmapCellPlacement(t *testing.T) {
	events := []model.UrgeEvent{
		urgeAt(time.Date(2026, 3, 16, 23, 0, 0, 0, time.UTC), "late scrolling"),
		urgeAt(time.Date(2026, 3, 16, 8, 0, 0, 0, time.UTC), "commute"),
	}

	cells := Heatmap(events, time.UTC)
	require.Len(t, cells, 28)

	night := cells[0*4+SlotNight]
	assert.Equal(t, 0, night.Day)
	assert.Equal(t, SlotNight, night.Slot)
	assert.Equal(t, 1, night.Count)

	morning := cells[0*4+SlotMorning]
	assert.Equal(t, "Morning", morning.SlotName)
	assert.Equal(t, 1, morning.Count)
}

func TestHeatmapNormalizesByMaxCell(t *testing.T) {
	events := []model.UrgeEvent{
		urgeAt(time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC), "a"),
		urgeAt(time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC), "b"),
		urgeAt(time.Date(2026, 3, 17, 13, 0, 0, 0, time.UTC), "c"),
	}

	cells := Heatmap(events, time.UTC)
	assert.Equal(t, 1.0, cells[0*4+SlotMorning].Intensity)
	assert.Equal(t, 0.5, cells[1*4+SlotAfternoon].Intensity)
}

func TestHeatmapEmptyGrid(t *testing.T) {
	cells := Heatmap(nil, time.UTC)
	require.Len(t, cells, 28)
	for _, cell := range cells {
		assert.Zero(t, cell.Count)
		assert.Zero(t, cell.Intensity)
	}
}

func TestDailyCountsSortedAscending(t *testing.T) {
	events := []model.UrgeEvent{
		urgeAt(monday, "a"),
		urgeAt(monday.AddDate(0, 0, -2), "b"),
		urgeAt(monday, "c"),
	}

	days := DailyCounts(events, time.UTC)
	require.Len(t, days, 2)
	assert.Equal(t, DailyCount{Date: "2026-03-14", Count: 1}, days[0])
	assert.Equal(t, DailyCount{Date: "2026-03-16", Count: 2}, days[1])
}

func TestWeeklySeriesToleratesUnorderedInput(t *testing.T) {
	shuffled := []time.Time{
		monday.AddDate(0, 0, -3),
		monday,
		monday.AddDate(0, 0, -5),
	}
	ordered := []time.Time{
		monday.AddDate(0, 0, -5),
		monday.AddDate(0, 0, -3),
		monday,
	}

	assert.Equal(t, WeeklySeries(ordered, monday, time.UTC), WeeklySeries(shuffled, monday, time.UTC))
}
