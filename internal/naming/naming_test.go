package naming

import (
	"strings"
	"testing"
	"time"
)

// S1: slug edge cases.
func TestSlugifyEdgeCases(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"feat: Add foo!", "feat-add-foo"},
		{"   ", "untitled"},
		{strings.Repeat("A", 200), ""}, // checked by length below
	}
	for _, c := range cases[:2] {
		if got := Slugify(c.in); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
	long := Slugify(strings.Repeat("A", 200))
	if len(long) != 50 {
		t.Errorf("Slugify(200 chars) length = %d, want 50", len(long))
	}
}

// Invariant 7: name parser round-trips.
func TestDatePrefixedLabelRoundTrips(t *testing.T) {
	now := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	got := DatePrefixedLabel("Fix the thing", now)
	want := "03-05-" + Slugify("Fix the thing")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	empty := DatePrefixedLabel("   ", now)
	if empty != "03-05-untitled" {
		t.Errorf("got %q, want 03-05-untitled", empty)
	}
}

// S3: name collision resolution.
func TestResolveNameCollision(t *testing.T) {
	lookup := func(head string) (string, bool) {
		switch head {
		case "feature-x":
			return "MERGED", true
		case "feature-x-2":
			return "CLOSED", true
		default:
			return "", false
		}
	}
	name, hadConflict, err := ResolveName("feature-x", lookup, map[string]bool{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "feature-x-3" {
		t.Errorf("name = %q, want feature-x-3", name)
	}
	if !hadConflict {
		t.Error("hadConflict = false, want true")
	}
}

func TestResolveNameNoConflictWhenOpen(t *testing.T) {
	lookup := func(head string) (string, bool) {
		if head == "feature-y" {
			return "OPEN", true
		}
		return "", false
	}
	name, hadConflict, err := ResolveName("feature-y", lookup, map[string]bool{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "feature-y" || hadConflict {
		t.Errorf("name=%q hadConflict=%v, want feature-y/false", name, hadConflict)
	}
}
