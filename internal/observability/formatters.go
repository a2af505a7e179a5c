// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/reelsmith/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintStoryboard outputs a human-readable summary of the planned scenes.
func (p *Printer) PrintStoryboard(sb *types.Storyboard) {
	if sb == nil {
		return
	}

	var out strings.Builder

	out.WriteString(fmt.Sprintf("Scenes:   %d\n", len(sb.Scenes)))
	out.WriteString(fmt.Sprintf("Duration: %.1fs\n", sb.TotalDuration()))
	out.WriteString("\n")

	count := min(len(sb.Scenes), maxItemsToShow)
	for i := 0; i < count; i++ {
		scene := sb.Scenes[i]
		out.WriteString(fmt.Sprintf("  %d. %s (%.1fs)\n", scene.Number, scene.Description, scene.Duration))
	}
	if len(sb.Scenes) > maxItemsToShow {
		out.WriteString(fmt.Sprintf("  ... and %d more\n", len(sb.Scenes)-maxItemsToShow))
	}

	if len(sb.MoodHints) > 0 {
		out.WriteString(fmt.Sprintf("\nMood: %s\n", strings.Join(sb.MoodHints, ", ")))
	}

	p.printBox("STORYBOARD", out.String())
}

// PrintQualityReport outputs the per-dimension scores and verdict of a review.
func (p *Printer) PrintQualityReport(report *types.QualityReport) {
	if report == nil {
		return
	}

	var out strings.Builder

	for _, d := range types.Dimensions {
		score, ok := report.Scores[d]
		if !ok {
			continue
		}
		marker := " "
		if note, hasNote := report.Notes[d]; hasNote && note != "" {
			marker = "!"
		}
		out.WriteString(fmt.Sprintf("  %-12s %5.2f %s\n", string(d), score, marker))
	}

	out.WriteString("\n")
	out.WriteString(fmt.Sprintf("Composite: %.2f (grade %s)\n", report.Composite, report.Grade))
	out.WriteString(fmt.Sprintf("Verdict:   %s (threshold %.1f)\n", report.Verdict, report.PassThreshold))

	if len(report.Warnings) > 0 {
		out.WriteString("\nWarnings:\n")
		for _, w := range report.Warnings {
			out.WriteString(fmt.Sprintf("  • %s\n", w))
		}
	}

	p.printBox("QUALITY REPORT", out.String())
}

// PrintDecision outputs one reloop decision.
func (p *Printer) PrintDecision(decision *types.ReloopDecision) {
	if decision == nil {
		return
	}

	var out strings.Builder

	out.WriteString(fmt.Sprintf("Strategy:       %s\n", decision.Strategy))
	if decision.TargetPhase != "" {
		out.WriteString(fmt.Sprintf("Target phase:   %s\n", decision.TargetPhase))
	}
	out.WriteString(fmt.Sprintf("Classification: %s\n", decision.Classification))
	out.WriteString(fmt.Sprintf("Composite:      %.2f\n", decision.CompositeScore))
	if decision.Justification != "" {
		out.WriteString(fmt.Sprintf("\n%s\n", decision.Justification))
	}

	p.printBox("RELOOP DECISION", out.String())
}

// PrintRunSummary outputs the terminal state of a run: status, spend,
// attempt counts per phase, and the abort reason if any.
func (p *Printer) PrintRunSummary(run *types.PipelineRun) {
	if run == nil {
		return
	}

	var out strings.Builder

	out.WriteString(fmt.Sprintf("Run:     %s\n", run.ID))
	out.WriteString(fmt.Sprintf("Status:  %s\n", run.Status))
	out.WriteString(fmt.Sprintf("Spend:   $%.2f of $%.2f\n", run.SpendUSD, run.Request.BudgetUSD))
	out.WriteString(fmt.Sprintf("Reloops: %d\n", run.ReloopCount))

	if run.AbortReason != "" {
		out.WriteString(fmt.Sprintf("Abort:   %s\n", run.AbortReason))
	}

	if len(run.Attempts) > 0 {
		out.WriteString("\nAttempts:\n")
		for _, phase := range types.PhaseOrder {
			attempts := run.AttemptsForPhase(phase)
			if len(attempts) == 0 {
				continue
			}
			failed := 0
			for _, a := range attempts {
				if a.Outcome == types.OutcomeFailed {
					failed++
				}
			}
			out.WriteString(fmt.Sprintf("  %-16s %d", string(phase), len(attempts)))
			if failed > 0 {
				out.WriteString(fmt.Sprintf(" (%d failed)", failed))
			}
			out.WriteString("\n")
		}
	}

	if run.Artifacts.Final != nil {
		out.WriteString(fmt.Sprintf("\nReel:    %s (%.1fs, %s)\n",
			run.Artifacts.Final.Ref, run.Artifacts.Final.DurationActual, run.Artifacts.Final.Resolution))
	}

	p.printBox("RUN SUMMARY", out.String())
}
