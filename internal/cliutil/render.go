// Package cliutil renders CLI output: stack plan tables, workspace status
// listings, and merge progress, styled with lipgloss and with color support
// detected through termenv.
package cliutil

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/loom-dev/loom/internal/changeset"
	"github.com/muesli/termenv"
)

var (
	colorCreate   = lipgloss.Color("#5FD787")
	colorUpdate   = lipgloss.Color("#5B8DEF")
	colorSkip     = lipgloss.Color("#888888")
	colorConflict = lipgloss.Color("#FF6B6B")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#AAAAAA"))
	dimStyle    = lipgloss.NewStyle().Foreground(colorSkip)
)

// init disables lipgloss's color rendering outright when termenv detects a
// profile with no ANSI support (a pipe, a plain log file), so redirected
// CLI output never carries escape codes.
func init() {
	if termenv.NewOutput(nil).Profile == termenv.Ascii {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

func styleForAction(a changeset.StackAction) lipgloss.Style {
	switch a {
	case changeset.ActionCreate:
		return lipgloss.NewStyle().Foreground(colorCreate)
	case changeset.ActionUpdate:
		return lipgloss.NewStyle().Foreground(colorUpdate)
	case changeset.ActionSkip:
		return dimStyle
	default:
		return lipgloss.NewStyle()
	}
}

// RenderStackPlan formats a submitStack result as an aligned table: one
// row per change, columns for bookmark, action, PR, and base.
func RenderStackPlan(entries []changeset.StackEntry) string {
	if len(entries) == 0 {
		return dimStyle.Render("(empty stack)")
	}
	widest := len("bookmark")
	for _, e := range entries {
		if len(e.Bookmark) > widest {
			widest = len(e.Bookmark)
		}
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render(pad("bookmark", widest)) + "  " +
		headerStyle.Render(pad("action", 8)) + "  " +
		headerStyle.Render("pr") + "  " +
		headerStyle.Render("base") + "\n")
	for _, e := range entries {
		pr := "-"
		if e.PRNumber != 0 {
			pr = fmt.Sprintf("#%d", e.PRNumber)
		}
		style := styleForAction(e.Action)
		b.WriteString(style.Render(pad(e.Bookmark, widest)) + "  " +
			style.Render(pad(string(e.Action), 8)) + "  " +
			pad(pr, 2) + "  " +
			e.ProspectiveBase + "\n")
	}
	return b.String()
}

// RenderWorkspaceStatus formats one line per workspace: padded name and tip
// change cut to 8 characters. Focused workspaces are prefixed "* "; the
// "unassigned" workspace gets no special note.
func RenderWorkspaceStatus(workspaces []changeset.Workspace, focused map[string]bool) string {
	if len(workspaces) == 0 {
		return dimStyle.Render("(no workspaces)")
	}
	widest := 0
	for _, w := range workspaces {
		if len(w.Name) > widest {
			widest = len(w.Name)
		}
	}
	var b strings.Builder
	for _, w := range workspaces {
		marker := "  "
		style := dimStyle
		if focused[w.Name] {
			marker = "* "
			style = lipgloss.NewStyle().Foreground(colorCreate)
		}
		tip := w.TipID
		if len(tip) > 8 {
			tip = tip[:8]
		}
		b.WriteString(marker + style.Render(pad(w.Name, widest)) + "  " + tip + "\n")
	}
	return b.String()
}

// RenderMergeProgress formats one line per PR already merged during a
// mergeStack run, for incremental progress output.
func RenderMergeProgress(entries []changeset.StackEntry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(lipgloss.NewStyle().Foreground(colorCreate).Render(fmt.Sprintf("merged #%d %s", e.PRNumber, e.Bookmark)) + "\n")
	}
	return b.String()
}

// RenderOwnershipConflicts formats the paths the sync engine skipped
// because two or more focused workspaces touched them.
func RenderOwnershipConflicts(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	style := lipgloss.NewStyle().Foreground(colorConflict)
	var b strings.Builder
	b.WriteString(style.Render("conflicting edits skipped:") + "\n")
	for _, p := range paths {
		b.WriteString("  " + p + "\n")
	}
	return b.String()
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
