package competency

import "encoding/json"

// SubCompetency is a scored unit within an Area, tracked by completed/total task counts.
// Counts and percentages the backend leaves out (or sends as null) are 0.
type SubCompetency struct {
	Key                  string            `json:"key"`
	Name                 string            `json:"name"`
	CompletedTasks       int               `json:"completed_tasks"`
	TotalTasks           int               `json:"total_tasks"`
	CompletionPercentage float64           `json:"completion_percentage"`
	EvidenceItems        []json.RawMessage `json:"evidence_items"`
}

func (s SubCompetency) withKey(key string) SubCompetency {
	if s.Key == "" {
		s.Key = key
	}
	return s
}

// Area is a top-level skill domain (eg. "Financial Management").
type Area struct {
	Key             string                 `json:"key"`
	Name            string                 `json:"name"`
	Description     string                 `json:"description"`
	OverallProgress float64                `json:"overall_progress"`
	SubCompetencies Ordered[SubCompetency] `json:"sub_competencies"`
}

func (a Area) withKey(key string) Area {
	if a.Key == "" {
		a.Key = key
	}
	return a
}

// Sub looks up a sub-competency of the area.
func (a Area) Sub(key string) (SubCompetency, bool) {
	return a.SubCompetencies.Get(key)
}

// Snapshot is the user's competency tree as last fetched from the backend, keyed by area key.
// The backend's key order is kept: it breaks ties when ranking.
type Snapshot struct {
	Ordered[Area]
}

// NewSnapshot builds a snapshot from areas, in the given order.
func NewSnapshot(areas ...Area) Snapshot {
	var s Snapshot
	for _, area := range areas {
		s.Set(area.Key, area)
	}
	return s
}

// Entry is an area together with its key.
type Entry struct {
	Key  string `json:"key"`
	Area Area   `json:"area"`
}

// Entries returns the areas in snapshot order.
func (s Snapshot) Entries() []Entry {
	entries := make([]Entry, 0, s.Len())
	s.Each(func(key string, area Area) {
		entries = append(entries, Entry{Key: key, Area: area})
	})
	return entries
}
