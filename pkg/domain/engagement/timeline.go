package engagement

import (
	"math"
	"sort"
	"time"
)

// TimelineEntry is the display-ready state of one step.
type TimelineEntry struct {
	Step          Step         `json:"step"`
	Label         string       `json:"label"`
	State         DisplayState `json:"state"`
	Notes         string       `json:"notes,omitempty"`
	StatusEventID string       `json:"status_event_id"`
	StartedAt     time.Time    `json:"started_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Timeline is the derived view of a customer's engagement.
type Timeline struct {
	CustomerID string          `json:"customer_id"`
	Entries    []TimelineEntry `json:"entries"`
	Progress   int             `json:"progress"`
	NextStep   Step            `json:"next_step,omitempty"`

	labels Labels
}

// NewTimeline reduces the events and computes progress and next step.
func NewTimeline(customerID string, events []StatusEvent, labels Labels) *Timeline {
	entries := BuildTimeline(events, labels)
	next, _ := NextStep(AllSteps(), entries)
	return &Timeline{
		CustomerID: customerID,
		Entries:    entries,
		Progress:   Progress(entries),
		NextStep:   next,
		labels:     labels,
	}
}

// LabelOf returns the display label of a step, present on the timeline or not.
func (t *Timeline) LabelOf(step Step) string {
	if e, ok := t.Entry(step); ok && e.Label != "" {
		return e.Label
	}
	return t.labels.Label(step)
}

// Entry returns the entry for a step, if present.
func (t *Timeline) Entry(step Step) (TimelineEntry, bool) {
	for _, e := range t.Entries {
		if e.Step == step {
			return e, true
		}
	}
	return TimelineEntry{}, false
}

// StateOf returns the display state of a step; steps absent from the
// timeline are pending.
func (t *Timeline) StateOf(step Step) DisplayState {
	if e, ok := t.Entry(step); ok {
		return e.State
	}
	return StatePending
}

// IsComplete returns true when every enumerated step is on the timeline.
func (t *Timeline) IsComplete() bool {
	return t.NextStep == ""
}

// chronological returns a copy of events sorted by creation time. Events
// with equal timestamps keep their input order, later ones counting as newer.
func chronological(events []StatusEvent) []StatusEvent {
	sorted := make([]StatusEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return sorted
}

// BuildTimeline keeps the most recent event per step and orders the result
// by the step's first appearance. Empty input yields an empty, non-nil slice.
func BuildTimeline(events []StatusEvent, labels Labels) []TimelineEntry {
	sorted := chronological(events)

	firstSeen := make(map[Step]time.Time, len(sorted))
	for _, ev := range sorted {
		if _, ok := firstSeen[ev.Step]; !ok {
			firstSeen[ev.Step] = ev.CreatedAt
		}
	}

	seen := make(map[Step]bool, len(sorted))
	entries := make([]TimelineEntry, 0, len(firstSeen))
	for i := len(sorted) - 1; i >= 0; i-- {
		ev := sorted[i]
		if seen[ev.Step] {
			continue
		}
		seen[ev.Step] = true
		entries = append(entries, TimelineEntry{
			Step:          ev.Step,
			Label:         labels.Label(ev.Step),
			State:         ev.Status.DisplayState(),
			Notes:         ev.Notes,
			StatusEventID: ev.ID,
			StartedAt:     firstSeen[ev.Step],
			UpdatedAt:     ev.CreatedAt,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.StartedAt.Equal(b.StartedAt) {
			return a.StartedAt.Before(b.StartedAt)
		}
		return stepRank(a.Step) < stepRank(b.Step)
	})
	return entries
}

// stepRank orders unknown steps after the enumeration.
func stepRank(s Step) int {
	if i := s.Index(); i >= 0 {
		return i
	}
	return len(orderedSteps)
}

// NextStep returns the first step of allSteps not present in entries. The
// boolean is false when every step is already present.
func NextStep(allSteps []Step, entries []TimelineEntry) (Step, bool) {
	present := make(map[Step]bool, len(entries))
	for _, e := range entries {
		present[e.Step] = true
	}
	for _, s := range allSteps {
		if !present[s] {
			return s, true
		}
	}
	return "", false
}

// Progress returns the rounded percentage of completed entries, 0 when there
// are none.
func Progress(entries []TimelineEntry) int {
	if len(entries) == 0 {
		return 0
	}
	completed := 0
	for _, e := range entries {
		if e.State == StateCompleted {
			completed++
		}
	}
	return int(math.Round(100 * float64(completed) / float64(len(entries))))
}

// History returns every event recorded for a step, oldest first.
func History(events []StatusEvent, step Step) []StatusEvent {
	var out []StatusEvent
	for _, ev := range chronological(events) {
		if ev.Step == step {
			out = append(out, ev)
		}
	}
	return out
}
