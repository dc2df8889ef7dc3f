package cli

import (
	"context"
	"fmt"
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"github.com/scribeflow/scribeflow/internal/models"
)

// stageDoneMsg carries the finished operation (or error) of an LLM stage.
type stageDoneMsg struct {
	op  *models.Operation
	err error
}

// stageModel is the bubbletea model for a polled LLM stage (cleanup or
// insights). The stage itself runs server-side; the model animates a
// spinner while the runner polls the operations list.
type stageModel struct {
	label    string
	run      func(context.Context) (*models.Operation, error)
	ctx      context.Context
	cancel   context.CancelFunc
	spinner  spinner.Model
	started  time.Time
	op       *models.Operation
	err      error
	done     bool
	quitting bool
	theme    Theme
}

func newStageModel(label string, run func(context.Context) (*models.Operation, error)) stageModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	ctx, cancel := context.WithCancel(context.Background())

	return stageModel{
		label:   label,
		run:     run,
		ctx:     ctx,
		cancel:  cancel,
		spinner: sp,
		started: time.Now(),
		theme:   defaultTheme,
	}
}

func (m stageModel) Init() tea.Cmd {
	runCmd := func() tea.Msg {
		op, err := m.run(m.ctx)
		return stageDoneMsg{op: op, err: err}
	}

	return tea.Batch(m.spinner.Tick, runCmd)
}

func (m stageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

	case stageDoneMsg:
		m.done = true
		m.op = msg.op
		m.err = msg.err
		m.cancel()
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m stageModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m stageModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	elapsed := time.Since(m.started).Round(time.Second)
	hint := m.theme.hintStyle().Render("Press Ctrl+C to stop waiting (the server keeps running)")
	return fmt.Sprintf("%s %s (%s)\n%s\n", m.spinner.View(), m.label, elapsed, hint)
}

func (m stageModel) finalView() string {
	if m.quitting {
		return m.theme.hintStyle().Render("\nStopped waiting. The operation continues server-side.\n")
	}

	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ %s failed: %s\n", m.label, m.err))
	}

	var output string
	output += m.theme.completedStyle().Render("✓ "+m.label+" completed") + "\n\n"
	if m.op != nil {
		output += fmt.Sprintf("  Model:  %s/%s\n", m.op.Provider, m.op.Model)
		output += fmt.Sprintf("  Tokens: %d in / %d out\n", m.op.InputTokens, m.op.OutputTokens)
		if m.op.CostUSD != nil {
			output += fmt.Sprintf("  Cost:   $%.4f\n", *m.op.CostUSD)
		}
		output += fmt.Sprintf("  Time:   %s\n", formatDuration(m.op.ProcessingSeconds))
	}
	return output
}

// runStageUI runs the spinner UI around a blocking stage runner call.
// Returns the finished operation, or nil when the user stopped waiting.
func runStageUI(label string, run func(context.Context) (*models.Operation, error)) (*models.Operation, error) {
	model := newStageModel(label, run)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(stageModel); ok {
		if m.quitting {
			return nil, nil
		}
		return m.op, m.err
	}
	return nil, nil
}
