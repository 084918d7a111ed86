package metrics

// Aggregate statistics over recorded click sessions

import (
	"math"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/tturner/smiteclick/internal/store"
)

// Summary contains aggregated statistics
type Summary struct {
	Sessions      int
	TotalClicks   int64
	TotalDuration time.Duration
	EmptySessions int
	AvgCPS        float64
	MinCPS        float64
	MaxCPS        float64
	P50CPS        float64
	P90CPS        float64
	Longest       store.LogEntry
	First         time.Time
	Last          time.Time

	// DurationBuckets counts sessions by length.
	DurationBuckets map[string]int
	ByDay           map[string]*DayStats
}

// DayStats groups sessions by their UTC start date.
type DayStats struct {
	Sessions int
	Clicks   int64
	Seconds  float64
}

// SessionCPS is a session's achieved rate, 0 for zero-length sessions.
func SessionCPS(e store.LogEntry) float64 {
	if e.DurationSeconds <= 0 {
		return 0
	}
	return float64(e.ClickCount) / e.DurationSeconds
}

// Summarize aggregates logs. AvgCPS is total clicks over total time, so
// long sessions weigh more than short ones.
func Summarize(logs []store.LogEntry) *Summary {
	s := &Summary{
		DurationBuckets: make(map[string]int),
		ByDay:           make(map[string]*DayStats),
	}
	if len(logs) == 0 {
		return s
	}

	s.Sessions = len(logs)
	s.TotalClicks = lo.SumBy(logs, func(e store.LogEntry) int64 { return e.ClickCount })
	seconds := lo.SumBy(logs, func(e store.LogEntry) float64 { return e.DurationSeconds })
	s.TotalDuration = time.Duration(seconds * float64(time.Second))
	s.EmptySessions = lo.CountBy(logs, func(e store.LogEntry) bool { return e.ClickCount == 0 })
	if seconds > 0 {
		s.AvgCPS = float64(s.TotalClicks) / seconds
	}

	rates := lo.FilterMap(logs, func(e store.LogEntry, _ int) (float64, bool) {
		return SessionCPS(e), e.DurationSeconds > 0
	})
	if len(rates) > 0 {
		s.MinCPS = lo.Min(rates)
		s.MaxCPS = lo.Max(rates)
		sort.Float64s(rates)
		s.P50CPS = percentile(rates, 0.50)
		s.P90CPS = percentile(rates, 0.90)
	}

	s.Longest = lo.MaxBy(logs, func(a, b store.LogEntry) bool { return a.DurationSeconds > b.DurationSeconds })
	s.First = lo.MinBy(logs, func(a, b store.LogEntry) bool { return a.StartTime.Before(b.StartTime) }).StartTime
	s.Last = lo.MaxBy(logs, func(a, b store.LogEntry) bool { return a.EndTime.After(b.EndTime) }).EndTime

	for _, e := range logs {
		incrementBucket(s.DurationBuckets, e.DurationSeconds)
	}
	for day, group := range lo.GroupBy(logs, func(e store.LogEntry) string { return e.StartTime.UTC().Format(time.DateOnly) }) {
		s.ByDay[day] = &DayStats{
			Sessions: len(group),
			Clicks:   lo.SumBy(group, func(e store.LogEntry) int64 { return e.ClickCount }),
			Seconds:  lo.SumBy(group, func(e store.LogEntry) float64 { return e.DurationSeconds }),
		}
	}
	return s
}

// Days returns the ByDay keys in order.
func (s *Summary) Days() []string {
	days := lo.Keys(s.ByDay)
	sort.Strings(days)
	return days
}

var bucketOrder = []string{"lt_10s", "10_60s", "1_10m", "10_60m", "gt_1h"}

func incrementBucket(buckets map[string]int, seconds float64) {
	switch {
	case seconds < 10:
		buckets["lt_10s"]++
	case seconds < 60:
		buckets["10_60s"]++
	case seconds < 600:
		buckets["1_10m"]++
	case seconds < 3600:
		buckets["10_60m"]++
	default:
		buckets["gt_1h"]++
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
