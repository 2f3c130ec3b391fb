package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/GriffinCanCode/clearmodel/internal/clean"
	"github.com/GriffinCanCode/clearmodel/internal/core"
)

// ─── Palette ─────────────────────────────────────────────────────────────────

var (
	clrGreen  = lipgloss.AdaptiveColor{Light: "#16a34a", Dark: "#4ade80"}
	clrYellow = lipgloss.AdaptiveColor{Light: "#ca8a04", Dark: "#facc15"}
	clrRed    = lipgloss.AdaptiveColor{Light: "#dc2626", Dark: "#f87171"}
	clrMuted  = lipgloss.AdaptiveColor{Light: "#6b7280", Dark: "#9ca3af"}

	styleHeader = lipgloss.NewStyle().Bold(true)
	styleGood   = lipgloss.NewStyle().Foreground(clrGreen).Bold(true)
	styleWarn   = lipgloss.NewStyle().Foreground(clrYellow)
	styleBad    = lipgloss.NewStyle().Foreground(clrRed)
	styleDim    = lipgloss.NewStyle().Foreground(clrMuted)
)

// renderReport formats the final cleanup report for the terminal. Verbose
// mode additionally lists every skip and failure with its reason; the flag
// affects rendering detail only, never what the engine did.
func renderReport(r *clean.Report, dryRun, verbose bool) string {
	var s strings.Builder

	title := "Cleanup complete"
	if dryRun {
		title = "Dry run — nothing was deleted"
	}
	s.WriteString("\n  " + styleHeader.Render(title) + "\n\n")

	removed := r.FilesDeleted
	verb := "deleted"
	if dryRun {
		removed = r.FilesSimulated
		verb = "would delete"
	}

	s.WriteString(fmt.Sprintf("  %s %s · %d files", styleGood.Render(core.FormatSize(r.BytesReclaimed)), verb, removed))
	if r.DirsRemoved > 0 {
		s.WriteString(fmt.Sprintf(", %d directories", r.DirsRemoved))
	}
	s.WriteString("\n")

	if r.SkippedCount > 0 {
		s.WriteString(styleDim.Render(fmt.Sprintf("  %d entries skipped", r.SkippedCount)) + "\n")
	}
	if r.SecurityRejected > 0 {
		s.WriteString(styleWarn.Render(fmt.Sprintf("  %d paths rejected by security validation", r.SecurityRejected)) + "\n")
	}
	if r.FailedCount > 0 {
		s.WriteString(styleBad.Render(fmt.Sprintf("  %d failures", r.FailedCount)) + "\n")
	}

	s.WriteString(styleDim.Render(fmt.Sprintf("  elapsed %s", r.Elapsed.Round(time.Millisecond))) + "\n")
	if r.FreeSpaceBefore > 0 {
		s.WriteString(styleDim.Render(fmt.Sprintf("  free space %s → %s",
			core.FormatSizeU(r.FreeSpaceBefore), core.FormatSizeU(r.FreeSpaceAfter))) + "\n")
	}

	if verbose {
		s.WriteString(renderOutcomeDetail(r))
	} else if r.FailedCount > 0 {
		s.WriteString(styleDim.Render("  (run with --verbose to list failures)") + "\n")
	}

	return s.String()
}

// renderOutcomeDetail lists every non-success outcome with path and reason.
func renderOutcomeDetail(r *clean.Report) string {
	var s strings.Builder
	for _, o := range r.Outcomes {
		switch o.Status {
		case clean.StatusFailed:
			s.WriteString(styleBad.Render("  failed  ") + o.Path + styleDim.Render("  "+o.Reason) + "\n")
		case clean.StatusSkipped:
			s.WriteString(styleDim.Render("  skipped ") + o.Path + styleDim.Render("  "+o.Reason) + "\n")
		}
	}
	for _, w := range r.Warnings {
		s.WriteString(styleWarn.Render("  warning ") + w + "\n")
	}
	return s.String()
}

// renderPerRoot formats the per-root reclaim estimate, largest first.
func renderPerRoot(r *clean.Report) string {
	type rootSize struct {
		root  string
		bytes int64
	}
	rows := make([]rootSize, 0, len(r.PerRoot))
	for root, bytes := range r.PerRoot {
		rows = append(rows, rootSize{root, bytes})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].bytes > rows[j].bytes })

	var s strings.Builder
	for _, row := range rows {
		s.WriteString(fmt.Sprintf("  %12s  %s\n", styleGood.Render(core.FormatSize(row.bytes)), row.root))
	}
	return s.String()
}
