package models

import (
	"strings"
	"time"
)

// UnresolvedState marks an entry for which no stage change precedes its date.
const UnresolvedState = "unresolved"

// ActionKind classifies an action by the icon/type marker it was rendered with.
type ActionKind string

const (
	ActionWatering ActionKind = "watering"
	ActionNutrient ActionKind = "nutrient"
	ActionGeneric  ActionKind = "generic"
)

// Action is one classified action logged on an activity card.
type Action struct {
	Kind    ActionKind `json:"kind"`
	Label   string     `json:"label"`
	Details []string   `json:"details,omitempty"`
}

// Canonical renders the action to the string used as its de-duplication key.
//
//	watering: "Watering: 2l"            (Details holds the volume token)
//	nutrient: "Nutrients: Bio Grow 2ml" (Details holds normalized products)
//	generic:  "Label: a, b"             (distinct details, first-seen order)
func (a Action) Canonical() string {
	label := a.Label
	switch a.Kind {
	case ActionWatering:
		label = "Watering"
	case ActionNutrient:
		label = "Nutrients"
	}
	details := distinct(a.Details)
	if len(details) == 0 {
		return label
	}
	return label + ": " + strings.Join(details, ", ")
}

func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Photo is a photo reference and, once acquired, its local path.
type Photo struct {
	URL       string `json:"url"`
	LocalPath string `json:"local_path,omitempty"`
}

// ActivityEvent is one dated activity card.
type ActivityEvent struct {
	Timestamp  string            `json:"timestamp"`
	DayCount   string            `json:"day_count,omitempty"`
	Actions    []Action          `json:"actions,omitempty"`
	Photos     []Photo           `json:"photos,omitempty"`
	TreeLogs   map[string]string `json:"tree_logs,omitempty"`
	PlantState string            `json:"plant_state,omitempty"`
}

// StageChangeEvent is one discrete growth-stage transition.
type StageChangeEvent struct {
	Timestamp  string `json:"timestamp"`
	DayCount   string `json:"day_count,omitempty"`
	StageLabel string `json:"stage_label,omitempty"`
	PlantState string `json:"plant_state"`
}

// Strain identifies the cultivated variety.
type Strain struct {
	Brand string `json:"brand"`
	Name  string `json:"name"`
}

// Stage is one row of the canonical growth-stage index.
type Stage struct {
	Name string `json:"name"`
	Date string `json:"date,omitempty"`
}

// Metadata holds the document-level facts extracted once per run.
type Metadata struct {
	Title        string            `json:"title"`
	Strain       Strain            `json:"strain"`
	Stages       []Stage           `json:"stages"`
	CurrentStage string            `json:"current_stage,omitempty"`
	Environment  map[string]string `json:"environment"`

	// Defaulted lists the groups that fell back to default values
	// ("strain", "environment") instead of being found in the document.
	Defaulted []string `json:"defaulted,omitempty"`
}

// IsDefaulted reports whether the named group was substituted by defaults.
func (m Metadata) IsDefaulted(group string) bool {
	for _, g := range m.Defaulted {
		if g == group {
			return true
		}
	}
	return false
}

// EntryKind distinguishes the two event streams in the merged timeline.
type EntryKind string

const (
	EntryActivity    EntryKind = "activity"
	EntryStageChange EntryKind = "stage_change"
)

// TimelineEntry is the reconciled, state-annotated output record.
type TimelineEntry struct {
	Kind      EntryKind `json:"kind"`
	Timestamp string    `json:"timestamp"`
	DayCount  string    `json:"day_count,omitempty"`

	// Date is the parsed timestamp; zero when Undated.
	Date    time.Time `json:"date,omitzero"`
	Undated bool      `json:"undated,omitempty"`

	Actions     []string          `json:"actions,omitempty"`
	Photos      []Photo           `json:"photos,omitempty"`
	TreeLogs    map[string]string `json:"tree_logs,omitempty"`
	StageChange string            `json:"stage_change,omitempty"`
	PlantState  string            `json:"plant_state"`
}

// Resolved reports whether a plant state was assigned to the entry.
func (e TimelineEntry) Resolved() bool {
	return e.PlantState != "" && e.PlantState != UnresolvedState
}

// RunStats surfaces what a run kept, dropped and defaulted.
type RunStats struct {
	ActivitiesFound     int   `json:"activities_found"`
	ActivitiesDropped   int   `json:"activities_dropped"`
	StageChangesFound   int   `json:"stage_changes_found"`
	StageChangesDropped int   `json:"stage_changes_dropped"`
	PhotosAcquired      int   `json:"photos_acquired"`
	PhotosDropped       int   `json:"photos_dropped"`
	UndatedEntries      int   `json:"undated_entries"`
	UnresolvedEntries   int   `json:"unresolved_entries"`
	Scrolls             int   `json:"scrolls"`
	Stabilized          bool  `json:"stabilized"`
	DurationMs          int64 `json:"duration_ms"`
}

// Report is the record handed to downstream renderers.
type Report struct {
	RunID    string          `json:"run_id"`
	URL      string          `json:"url"`
	Title    string          `json:"title"`
	Metadata Metadata        `json:"metadata"`
	Entries  []TimelineEntry `json:"entries"`
	Photos   []Photo         `json:"photos,omitempty"`
	Stats    RunStats        `json:"stats"`
}
