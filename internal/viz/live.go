package viz

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/fieldtrace/internal/fltrace"
)

type progressMsg fltrace.Progress

type tracingDoneMsg struct{}

// LiveModel is a bubbletea model showing set tracing progress as it
// happens. It consumes the progress channel fed by TraceSet and quits when
// the channel closes.
type LiveModel struct {
	progress <-chan fltrace.Progress

	done   int
	total  int
	causes map[string]int

	finished bool
}

// NewLiveModel builds a live view over the given progress channel.
func NewLiveModel(progress <-chan fltrace.Progress) *LiveModel {
	return &LiveModel{
		progress: progress,
		causes:   make(map[string]int),
	}
}

func (m *LiveModel) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.progress
		if !ok {
			return tracingDoneMsg{}
		}
		return progressMsg(event)
	}
}

func (m *LiveModel) Init() tea.Cmd {
	return m.waitForProgress()
}

func (m *LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case progressMsg:
		m.done = msg.Done
		m.total = msg.Total
		m.causes[msg.Cause.String()]++
		return m, m.waitForProgress()
	case tracingDoneMsg:
		m.finished = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *LiveModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("tracing field lines"))
	b.WriteString("\n\n")

	if m.total > 0 {
		b.WriteString(renderBar(m.done, m.total, 40))
		b.WriteString(fmt.Sprintf(" %d/%d\n", m.done, m.total))
	}

	names := make([]string, 0, len(m.causes))
	for name := range m.causes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-22s", name)))
		b.WriteString(valueStyle.Render(fmt.Sprintf("%d", m.causes[name])))
		b.WriteString("\n")
	}

	if m.finished {
		b.WriteString("\n")
		b.WriteString(subtleStyle.Render("done"))
	} else {
		b.WriteString("\n")
		b.WriteString(subtleStyle.Render("q to quit"))
	}
	return panelStyle.Render(b.String())
}

func renderBar(done, total, width int) string {
	if total <= 0 {
		return ""
	}
	filled := done * width / total
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

// RunLive drives the live view until tracing completes. It blocks, so the
// caller runs TraceSet on another goroutine feeding the progress channel.
func RunLive(progress <-chan fltrace.Progress) error {
	_, err := tea.NewProgram(NewLiveModel(progress)).Run()
	return err
}
