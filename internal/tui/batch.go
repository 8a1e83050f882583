package tui

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/AliTumkaya-new/CarbonCAM/internal/pipeline"
	"github.com/AliTumkaya-new/CarbonCAM/internal/tui/components"
	"github.com/AliTumkaya-new/CarbonCAM/internal/tui/theme"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type batchProgressMsg struct {
	current, total int
}

type batchDoneMsg struct {
	report *pipeline.BatchReport
	err    error
}

// batchModel shows a progress bar while a batch runs.
type batchModel struct {
	label   string
	bar     progress.Model
	current int
	total   int
	started time.Time
	now     func() time.Time
	cancel  context.CancelFunc

	done   bool
	report *pipeline.BatchReport
	err    error
}

func newBatchModel(label string, total int, cancel context.CancelFunc) batchModel {
	return batchModel{
		label:   label,
		bar:     components.NewProgress(40),
		total:   total,
		started: time.Now(),
		now:     time.Now,
		cancel:  cancel,
	}
}

func (m batchModel) Init() tea.Cmd { return nil }

func (m batchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case batchProgressMsg:
		// Workers report concurrently, so counts can arrive out of order.
		if msg.current > m.current {
			m.current = msg.current
		}
		m.total = msg.total
		return m, nil

	case batchDoneMsg:
		m.done = true
		m.report = msg.report
		m.err = msg.err
		if msg.report != nil {
			m.current = m.total
		}
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m batchModel) percent() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.current) / float64(m.total)
}

func (m batchModel) View() string {
	t := theme.Active
	label := lipgloss.NewStyle().Foreground(t.TextPrimary).Bold(true)
	muted := lipgloss.NewStyle().Foreground(t.TextMuted)

	elapsed := m.now().Sub(m.started).Round(100 * time.Millisecond)
	line := fmt.Sprintf("%s %s %s", label.Render(m.label), m.bar.ViewAs(m.percent()),
		muted.Render(fmt.Sprintf("%d/%d rows  %s", m.current, m.total, elapsed)))
	if m.done {
		return line + "\n"
	}
	return line
}

// RunBatch processes rows while drawing a progress bar on out. Quitting the
// bar cancels the batch and returns ErrAborted.
func RunBatch(ctx context.Context, calc *pipeline.Calculator, rows []pipeline.BatchRow,
	opts pipeline.BatchOptions, label string, out io.Writer) (*pipeline.BatchReport, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newBatchModel(label, len(rows), cancel), tea.WithOutput(out))

	opts.Progress = func(current, total int) {
		p.Send(batchProgressMsg{current: current, total: total})
	}
	go func() {
		report, err := calc.ProcessBatch(ctx, rows, opts)
		p.Send(batchDoneMsg{report: report, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	m, ok := final.(batchModel)
	if !ok || !m.done {
		return nil, ErrAborted
	}
	return m.report, m.err
}
