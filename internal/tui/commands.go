package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/forPelevin/speechcut/internal/ports"
	"github.com/forPelevin/speechcut/internal/usecase"
)

type startMsg struct{}

// recognitionMsg carries one recognizer event together with the channel it
// came from so the next read can be scheduled.
type recognitionMsg struct {
	runID  int
	events <-chan ports.Event
	ev     ports.Event
}

type recognitionClosedMsg struct{ runID int }

type hideStatusMsg struct{ seq int }

type insertDoneMsg struct {
	job usecase.InsertJob
	out string
	err error
}

// waitForEvent waits for the next event of a recognition run.
func waitForEvent(runID int, ch <-chan ports.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return recognitionClosedMsg{runID: runID}
		}
		return recognitionMsg{runID: runID, events: ch, ev: ev}
	}
}

func hideStatusAfter(seq int, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return hideStatusMsg{seq: seq} })
}

// runInsert renders the prepared job off the UI loop.
func runInsert(ctx context.Context, job usecase.InsertJob) tea.Cmd {
	return func() tea.Msg {
		out, err := job.Run(ctx)
		return insertDoneMsg{job: job, out: out, err: err}
	}
}
