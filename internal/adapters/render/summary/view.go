package summary

import (
	"fmt"
	"math"
	"strings"

	"github.com/bnema/sentinel-tiles-cli/internal/application"
	"github.com/bnema/sentinel-tiles-cli/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const (
	defaultBarWidth = 24
	minBarWidth     = 8
	maxBarWidth     = 48
	// cycleCountsWidth is the room kept right of a bar for the counts text.
	cycleCountsWidth = 44
)

type RenderOptions struct {
	OutputRoot string
	// MaxFailures caps the failed tasks listed per cycle; 0 lists none.
	MaxFailures int
	// Width is the terminal width. When set, cycle bars scale to it and longer
	// lines are truncated.
	Width int
}

// Render lays out a run report for the terminal.
func Render(report application.RunReport, opts RenderOptions) string {
	view := renderView(report, opts, newStyles())
	if opts.Width > 0 {
		return lipgloss.NewStyle().MaxWidth(opts.Width).Render(view)
	}
	return view
}

func barWidthFor(width int) int {
	if width <= 0 {
		return defaultBarWidth
	}
	bar := width - cycleCountsWidth
	if bar < minBarWidth {
		return minBarWidth
	}
	if bar > maxBarWidth {
		return maxBarWidth
	}
	return bar
}

func renderView(report application.RunReport, opts RenderOptions, s styles) string {
	succeeded, failed := report.Totals()
	lines := []string{
		s.title.Render("Sentinel-1 Tile Acquisition"),
		s.header.Render(fmt.Sprintf("range: %s  run: %s", report.Range, report.RunID)),
		s.header.Render(fmt.Sprintf("bbox: %s", formatBBox(report.BBox))),
		s.header.Render(searchLine(report.Search)),
		s.header.Render(fmt.Sprintf("items: %d found, %d intersecting", report.ItemsFound, report.ItemsIntersecting)),
	}
	if opts.OutputRoot != "" {
		lines = append(lines, s.header.Render("output: "+opts.OutputRoot))
	}
	if report.Search.Terminated {
		lines = append(lines, s.warning.Render("search stopped before covering the range"))
	}

	switch report.Outcome {
	case application.OutcomeNoItems:
		lines = append(lines, s.empty.Render("No items found for this range."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	case application.OutcomeNoIntersectingItems:
		lines = append(lines, s.empty.Render("No items intersect the area of interest."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, cycle := range report.Cycles {
		lines = append(lines, s.section.Render(renderCycle(cycle, opts, s)))
	}

	lines = append(lines, s.section.Render(s.title.Render(fmt.Sprintf("total: %d successful, %d failed", succeeded, failed))))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderCycle(cycle domain.CycleSummary, opts RenderOptions, s styles) string {
	parts := []string{
		s.cycle.Render(fmt.Sprintf("%s  (%d items)", cycle.Cycle.String(), cycle.Items)),
		lipgloss.JoinHorizontal(
			lipgloss.Top,
			renderProgressBar(cycle.Succeeded(), cycle.Tasks(), barWidthFor(opts.Width), s),
			" ",
			s.detail.Render(fmt.Sprintf("%d downloaded, %d skipped, %d failed", cycle.Completed, cycle.Skipped, cycle.Failed)),
		),
	}

	listed := 0
	for _, result := range cycle.Results {
		if result.State != domain.TaskFailed {
			continue
		}
		if listed == opts.MaxFailures {
			if remaining := cycle.Failed - listed; remaining > 0 && opts.MaxFailures > 0 {
				parts = append(parts, s.failure.Render(fmt.Sprintf("  ... %d more", remaining)))
			}
			break
		}
		parts = append(parts, s.failure.Render(fmt.Sprintf("  %s %s: %v", result.Task.ItemID, result.Task.Band, result.Err)))
		listed++
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func searchLine(search application.SearchReport) string {
	line := fmt.Sprintf("search: %d queries, %d restarts, chunk %dd", len(search.Attempts), search.Restarts, search.FinalChunkDays)
	if search.SkippedChunks > 0 {
		line += fmt.Sprintf(", %d chunks skipped", search.SkippedChunks)
	}
	return line
}

func formatBBox(bbox [4]float64) string {
	return fmt.Sprintf("%.4f, %.4f, %.4f, %.4f", bbox[0], bbox[1], bbox[2], bbox[3])
}

func renderProgressBar(done, total, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := 0
	if total > 0 {
		filled = int(math.Round(float64(width) * float64(done) / float64(total)))
	}
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}
