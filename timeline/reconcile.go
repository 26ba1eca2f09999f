package timeline

import (
	"slices"
	"sort"
	"time"

	"github.com/use-agent/growlog/models"
)

// Result is the reconciled timeline with the counts a run reports.
type Result struct {
	Entries []models.TimelineEntry

	// Undated counts entries whose timestamp did not parse. They follow
	// every dated entry, in extraction order.
	Undated int

	// Unresolved counts activities no stage change precedes.
	Unresolved int
}

type datedStage struct {
	date  time.Time
	state string
}

// stateIndex answers "which state applied on day d" as a step function
// over stage changes sorted by date.
type stateIndex []datedStage

func newStateIndex(stages []models.StageChangeEvent) stateIndex {
	idx := make(stateIndex, 0, len(stages))
	for _, sc := range stages {
		if d, ok := ParseDate(sc.Timestamp); ok {
			idx = append(idx, datedStage{date: d, state: sc.PlantState})
		}
	}
	slices.SortStableFunc(idx, func(a, b datedStage) int {
		return a.date.Compare(b.date)
	})
	return idx
}

// at returns the state of the latest stage change dated on or before d.
// Among stage changes sharing a date the last one in sorted order wins.
func (idx stateIndex) at(d time.Time) (string, bool) {
	i := sort.Search(len(idx), func(i int) bool { return idx[i].date.After(d) })
	if i == 0 {
		return "", false
	}
	return idx[i-1].state, true
}

// Reconcile assigns each activity the plant state in force on its date,
// de-duplicates its actions, and returns stage changes and activities
// merged newest first. Ties keep stage changes ahead of activities and
// otherwise preserve extraction order.
func Reconcile(stages []models.StageChangeEvent, activities []models.ActivityEvent) Result {
	idx := newStateIndex(stages)

	var res Result
	entries := make([]models.TimelineEntry, 0, len(stages)+len(activities))

	for _, sc := range stages {
		e := models.TimelineEntry{
			Kind:        models.EntryStageChange,
			Timestamp:   sc.Timestamp,
			DayCount:    sc.DayCount,
			StageChange: sc.StageLabel,
			PlantState:  sc.PlantState,
		}
		e.Date, e.Undated = dateOf(sc.Timestamp)
		entries = append(entries, e)
	}

	for _, ev := range activities {
		e := models.TimelineEntry{
			Kind:       models.EntryActivity,
			Timestamp:  ev.Timestamp,
			DayCount:   ev.DayCount,
			Actions:    CanonicalActions(ev.Actions),
			Photos:     ev.Photos,
			TreeLogs:   ev.TreeLogs,
			PlantState: models.UnresolvedState,
		}
		e.Date, e.Undated = dateOf(ev.Timestamp)
		if !e.Undated {
			if state, ok := idx.at(e.Date); ok {
				e.PlantState = state
			}
		}
		if e.PlantState == models.UnresolvedState {
			res.Unresolved++
		}
		entries = append(entries, e)
	}

	dated := make([]models.TimelineEntry, 0, len(entries))
	var undated []models.TimelineEntry
	for _, e := range entries {
		if e.Undated {
			undated = append(undated, e)
			continue
		}
		dated = append(dated, e)
	}
	slices.SortStableFunc(dated, func(a, b models.TimelineEntry) int {
		return b.Date.Compare(a.Date)
	})

	res.Entries = append(dated, undated...)
	res.Undated = len(undated)
	return res
}

func dateOf(raw string) (time.Time, bool) {
	d, ok := ParseDate(raw)
	return d, !ok
}

// CanonicalActions renders actions to their canonical strings and drops
// repeats, keeping the first occurrence.
func CanonicalActions(actions []models.Action) []string {
	if len(actions) == 0 {
		return nil
	}
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.Canonical())
	}
	return DedupActions(out)
}

// DedupActions removes repeated action strings, preserving first-seen
// order. Applying it twice is the same as applying it once.
func DedupActions(actions []string) []string {
	if actions == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(actions))
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
