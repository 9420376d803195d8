package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/bnema/sentinel-tiles-cli/internal/application"
	"github.com/bnema/sentinel-tiles-cli/internal/domain"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type searchProgressMsg application.SearchProgress

type catalogPhaseDoneMsg struct {
	err error
}

// catalogSpinnerModel shows which chunk of the range is being searched, the
// chunk size after shrinks and the items found so far.
type catalogSpinnerModel struct {
	spinner  spinner.Model
	span     domain.DateRange
	prepare  tea.Cmd
	progress *application.SearchProgress
	detail   lipgloss.Style
	err      error
	done     bool
}

func newCatalogSpinnerModel(span domain.DateRange, prepare tea.Cmd) catalogSpinnerModel {
	return catalogSpinnerModel{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
		),
		span:    span,
		prepare: prepare,
		detail:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

func (m catalogSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.prepare)
}

func (m catalogSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case searchProgressMsg:
		progress := application.SearchProgress(msg)
		m.progress = &progress
		return m, nil
	case catalogPhaseDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m catalogSpinnerModel) View() string {
	if m.done {
		return ""
	}

	label := "Searching catalog " + m.span.String()
	if m.progress == nil {
		return fmt.Sprintf("%s %s", m.spinner.View(), label)
	}

	parts := []string{
		fmt.Sprintf("chunk %s (%dd)", m.progress.Chunk.Range, m.progress.Chunk.SizeDays),
		fmt.Sprintf("%d items", m.progress.Items),
	}
	if m.progress.Restarts > 0 {
		parts = append(parts, fmt.Sprintf("restart %d", m.progress.Restarts))
	}

	return fmt.Sprintf("%s %s %s", m.spinner.View(), label, m.detail.Render(strings.Join(parts, " · ")))
}

// runCatalogSpinner runs prepare under a spinner and forwards its search
// progress to the view.
func runCatalogSpinner(
	ctx context.Context,
	output io.Writer,
	span domain.DateRange,
	prepare func(context.Context, func(application.SearchProgress)) error,
) error {
	var p *tea.Program
	prepareCmd := func() tea.Msg {
		return catalogPhaseDoneMsg{err: prepare(ctx, func(progress application.SearchProgress) {
			p.Send(searchProgressMsg(progress))
		})}
	}

	p = tea.NewProgram(
		newCatalogSpinnerModel(span, prepareCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(catalogSpinnerModel)
	if !ok {
		return fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.err
}
