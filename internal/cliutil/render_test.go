package cliutil

import (
	"strings"
	"testing"

	"github.com/loom-dev/loom/internal/changeset"
)

func TestRenderStackPlanListsEveryEntry(t *testing.T) {
	out := RenderStackPlan([]changeset.StackEntry{
		{Bookmark: "07-30-add-widget", Action: changeset.ActionCreate, PRNumber: 12, ProspectiveBase: "main"},
		{Bookmark: "07-30-fix-bug", Action: changeset.ActionUpdate, PRNumber: 13, ProspectiveBase: "07-30-add-widget"},
	})
	if !strings.Contains(out, "07-30-add-widget") || !strings.Contains(out, "#12") {
		t.Errorf("expected created entry in output, got %q", out)
	}
	if !strings.Contains(out, "07-30-fix-bug") || !strings.Contains(out, "#13") {
		t.Errorf("expected updated entry in output, got %q", out)
	}
}

func TestRenderStackPlanHandlesEmptyStack(t *testing.T) {
	out := RenderStackPlan(nil)
	if !strings.Contains(out, "empty stack") {
		t.Errorf("expected empty-stack message, got %q", out)
	}
}

func TestRenderWorkspaceStatusMarksFocused(t *testing.T) {
	out := RenderWorkspaceStatus([]changeset.Workspace{
		{Name: "alice", TipID: "abcdef1234567890"},
		{Name: "bob", TipID: "0987654321fedcba"},
	}, map[string]bool{"alice": true})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "* ") {
		t.Errorf("expected focused workspace marked with '*', got %q", lines[0])
	}
	if !strings.Contains(lines[0], "abcdef12") {
		t.Errorf("expected tip truncated to 8 chars, got %q", lines[0])
	}
}

func TestRenderOwnershipConflictsEmptyIsEmptyString(t *testing.T) {
	if out := RenderOwnershipConflicts(nil); out != "" {
		t.Errorf("expected empty string for no conflicts, got %q", out)
	}
}
