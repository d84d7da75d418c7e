package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/felixgeelhaar/leadline/pkg/domain/engagement"
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FAFAFA")).
	Background(lipgloss.Color("#7D56F4")).
	PaddingLeft(1).
	PaddingRight(1)

var (
	stateCompleted = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	stateCurrent   = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	statePending   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	notesStyle     = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("244"))
)

const timeLayout = "2006-01-02 15:04"

func stateStyle(s engagement.DisplayState) lipgloss.Style {
	switch s {
	case engagement.StateCompleted:
		return stateCompleted
	case engagement.StateCurrent:
		return stateCurrent
	default:
		return statePending
	}
}

func stateMarker(s engagement.DisplayState) string {
	switch s {
	case engagement.StateCompleted:
		return "[x]"
	case engagement.StateCurrent:
		return "[>]"
	default:
		return "[ ]"
	}
}

func progressBar(percent, width int) string {
	filled := percent * width / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func renderTimeline(w io.Writer, tl *engagement.Timeline) {
	fmt.Fprintln(w, headerStyle.Render("Customer "+tl.CustomerID))

	if len(tl.Entries) == 0 {
		fmt.Fprintln(w, "No steps on the timeline yet.")
	}
	for i, e := range tl.Entries {
		style := stateStyle(e.State)
		line := fmt.Sprintf("%2d. %s %-20s %-10s %s",
			i+1, stateMarker(e.State), e.Label, e.State, e.UpdatedAt.Format(timeLayout))
		fmt.Fprintln(w, style.Render(line))
		if e.Notes != "" {
			fmt.Fprintln(w, "    "+notesStyle.Render(e.Notes))
		}
	}

	fmt.Fprintf(w, "\nProgress: %s %d%%\n", progressBar(tl.Progress, 20), tl.Progress)
	if tl.IsComplete() {
		fmt.Fprintln(w, "Next step: none, every step is on the timeline")
	} else {
		fmt.Fprintf(w, "Next step: %s (%s)\n", tl.LabelOf(tl.NextStep), tl.NextStep)
	}
}

func renderHistory(w io.Writer, step engagement.Step, label string, events []engagement.StatusEvent) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("History of %s (%s)", label, step)))
	if len(events) == 0 {
		fmt.Fprintln(w, "No events recorded for this step.")
		return
	}
	for _, ev := range events {
		line := fmt.Sprintf("[%s] %-10s %s", ev.CreatedAt.Format(timeLayout), ev.Status, ev.ID)
		fmt.Fprintln(w, stateStyle(ev.Status.DisplayState()).Render(line))
		if ev.Notes != "" {
			fmt.Fprintln(w, "    "+notesStyle.Render(ev.Notes))
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
