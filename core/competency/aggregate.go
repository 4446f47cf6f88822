package competency

import (
	"math"
	"sort"
)

// Summary is what the dashboard shows.
type Summary struct {
	OverallProgress int     `json:"overall_progress"`
	TotalTasks      int     `json:"total_tasks"`
	CompletedTasks  int     `json:"completed_tasks"`
	TopCompetencies []Entry `json:"top_competencies"`
}

// Summarize computes the dashboard aggregates, ranking the top n areas.
func Summarize(s Snapshot, n int) Summary {
	return Summary{
		OverallProgress: OverallProgress(s),
		TotalTasks:      TotalTasks(s),
		CompletedTasks:  CompletedTasks(s),
		TopCompetencies: TopCompetencies(s, n),
	}
}

// OverallProgress is the mean of every area's overall progress, rounded half up to a 0..100 percentage.
// An empty snapshot has no progress.
func OverallProgress(s Snapshot) int {
	if s.Len() == 0 {
		return 0
	}
	var sum float64
	s.Each(func(_ string, area Area) {
		sum += area.OverallProgress
	})
	avg := math.Floor(sum/float64(s.Len()) + .5)
	switch {
	case math.IsNaN(avg) || avg < 0:
		return 0
	case avg > 100:
		return 100
	}
	return int(avg)
}

// TotalTasks sums the total task count of every sub-competency of every area.
func TotalTasks(s Snapshot) int {
	return sumSubs(s, func(sub SubCompetency) int { return sub.TotalTasks })
}

// CompletedTasks sums the completed task count of every sub-competency of every area.
func CompletedTasks(s Snapshot) int {
	return sumSubs(s, func(sub SubCompetency) int { return sub.CompletedTasks })
}

func sumSubs(s Snapshot, count func(SubCompetency) int) int {
	var total int
	s.Each(func(_ string, area Area) {
		area.SubCompetencies.Each(func(_ string, sub SubCompetency) {
			if n := count(sub); n > 0 {
				total += n
			}
		})
	})
	return total
}

// TopCompetencies ranks areas by overall progress, highest first, and keeps the first n.
// Areas with equal progress keep their snapshot order.
func TopCompetencies(s Snapshot, n int) []Entry {
	if n <= 0 {
		return []Entry{}
	}
	entries := s.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Area.OverallProgress > entries[j].Area.OverallProgress
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
