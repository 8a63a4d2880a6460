// Package stats is the aggregation engine: pure, deterministic functions
// that turn event timestamps plus the current time into derived view data.
// Nothing here performs I/O; callers load events first and pass them in.
// Input order is never assumed.
package stats

import (
	"sort"
	"strings"
	"time"

	"esteemed/backend/internal/model"
)

// Time-of-day slots for the urge heatmap. Morning is [6,12), Afternoon
// [12,17), Evening [17,22), Night everything else.
const (
	SlotMorning = iota
	SlotAfternoon
	SlotEvening
	SlotNight

	slotCount = 4
	dayCount  = 7
)

var slotNames = [slotCount]string{"Morning", "Afternoon", "Evening", "Night"}

// Elapsed is the decomposed duration of the current streak.
type Elapsed struct {
	Days    int  `json:"days"`
	Hours   int  `json:"hours"`
	Minutes int  `json:"minutes"`
	Active  bool `json:"active"`
}

// ElapsedSince decomposes now-startedAt into whole days, hours, and minutes
// using floor division. A nil start means no active streak. A start in the
// future (device clock moved backward) clamps to zero rather than reporting
// a negative duration.
func ElapsedSince(startedAt *time.Time, now time.Time) Elapsed {
	if startedAt == nil {
		return Elapsed{}
	}

	diff := now.Sub(*startedAt)
	if diff < 0 {
		diff = 0
	}

	days := int(diff / (24 * time.Hour))
	diff -= time.Duration(days) * 24 * time.Hour
	hours := int(diff / time.Hour)
	diff -= time.Duration(hours) * time.Hour
	minutes := int(diff / time.Minute)

	return Elapsed{Days: days, Hours: hours, Minutes: minutes, Active: true}
}

// StreakDays is the whole-days component of the current streak, the number
// the summary card shows. It is a snapshot of now and goes stale unless
// recomputed per render.
func StreakDays(startedAt *time.Time, now time.Time) int {
	return ElapsedSince(startedAt, now).Days
}

// DayBucket is one day of a trailing weekly series.
type DayBucket struct {
	Date  string `json:"date"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// WeeklySeries buckets event times into the last seven calendar days,
// oldest first. Both the bucket keys and the event keys are calendar dates
// rendered in loc; mixing zones here silently misattributes events logged
// near midnight.
func WeeklySeries(times []time.Time, now time.Time, loc *time.Location) []DayBucket {
	counts := make(map[string]int, len(times))
	for _, t := range times {
		counts[dateKey(t, loc)]++
	}

	buckets := make([]DayBucket, 0, dayCount)
	today := now.In(loc)
	for i := dayCount - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		key := dateKey(day, loc)
		buckets = append(buckets, DayBucket{
			Date:  key,
			Label: day.Weekday().String()[:3],
			Count: counts[key],
		})
	}
	return buckets
}

// TriggerCount is one row of the top-triggers ranking.
type TriggerCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// TopTriggers groups urges by trimmed trigger text (exact match, case kept)
// and returns the limit most frequent. Ties keep first-seen order, so the
// ranking is deterministic for a given event sequence. Triggers that are
// empty after trimming are dropped.
func TopTriggers(events []model.UrgeEvent, limit int) []TriggerCount {
	counts := make(map[string]int, len(events))
	order := make([]string, 0, len(events))
	for _, event := range events {
		trigger := strings.TrimSpace(event.Trigger)
		if trigger == "" {
			continue
		}
		if _, seen := counts[trigger]; !seen {
			order = append(order, trigger)
		}
		counts[trigger]++
	}

	ranked := make([]TriggerCount, 0, len(order))
	for _, trigger := range order {
		ranked = append(ranked, TriggerCount{Category: trigger, Count: counts[trigger]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// HeatCell is one of the 28 day-by-time-of-day aggregation cells.
type HeatCell struct {
	Day       int     `json:"day"`
	Slot      int     `json:"slot"`
	SlotName  string  `json:"slotName"`
	Count     int     `json:"count"`
	Intensity float64 `json:"intensity"`
}

// Heatmap counts urges per (weekday, time slot) cell in loc, Monday first,
// and normalizes each count by the maximum cell so intensity lands in
// [0,1]. An empty grid normalizes against 1 to avoid division by zero.
func Heatmap(events []model.UrgeEvent, loc *time.Location) []HeatCell {
	var grid [dayCount][slotCount]int
	for _, event := range events {
		local := event.OccurredAt.In(loc)
		grid[mondayWeekday(local)][timeSlot(local.Hour())]++
	}

	max := 1
	for day := 0; day < dayCount; day++ {
		for slot := 0; slot < slotCount; slot++ {
			if grid[day][slot] > max {
				max = grid[day][slot]
			}
		}
	}

	cells := make([]HeatCell, 0, dayCount*slotCount)
	for day := 0; day < dayCount; day++ {
		for slot := 0; slot < slotCount; slot++ {
			cells = append(cells, HeatCell{
				Day:       day,
				Slot:      slot,
				SlotName:  slotNames[slot],
				Count:     grid[day][slot],
				Intensity: float64(grid[day][slot]) / float64(max),
			})
		}
	}
	return cells
}

// DailyCount feeds the contribution-style calendar graph.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// DailyCounts groups urges by calendar day in loc, ascending by date.
func DailyCounts(events []model.UrgeEvent, loc *time.Location) []DailyCount {
	counts := make(map[string]int, len(events))
	for _, event := range events {
		counts[dateKey(event.OccurredAt, loc)]++
	}

	days := make([]DailyCount, 0, len(counts))
	for date, count := range counts {
		days = append(days, DailyCount{Date: date, Count: count})
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date < days[j].Date
	})
	return days
}

// OccurrenceTimes projects urge events onto their timestamps for the
// weekly series.
func OccurrenceTimes(events []model.UrgeEvent) []time.Time {
	times := make([]time.Time, len(events))
	for i, event := range events {
		times[i] = event.OccurredAt
	}
	return times
}

// RelapseTimes is the relapse-event counterpart of OccurrenceTimes.
func RelapseTimes(events []model.RelapseEvent) []time.Time {
	times := make([]time.Time, len(events))
	for i, event := range events {
		times[i] = event.OccurredAt
	}
	return times
}

func dateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// mondayWeekday maps Go's Sunday-first weekday to Monday=0 ... Sunday=6.
func mondayWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func timeSlot(hour int) int {
	switch {
	case hour >= 6 && hour < 12:
		return SlotMorning
	case hour >= 12 && hour < 17:
		return SlotAfternoon
	case hour >= 17 && hour < 22:
		return SlotEvening
	default:
		return SlotNight
	}
}
