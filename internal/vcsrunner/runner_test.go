package vcsrunner

import (
	"context"
	"testing"

	"github.com/loom-dev/loom/internal/executor"
	"github.com/loom-dev/loom/internal/result"
)

func TestRunClassifiesNotInRepo(t *testing.T) {
	fake := executor.NewFake()
	fake.When(Binary, []string{"status", "--quiet"}, executor.Output{ExitCode: 1, Stderr: []byte("Error: No workspace configured")}, nil)

	r := New(fake)
	_, err := r.Run(context.Background(), []string{"status", "--quiet"}, "/repo")
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Kind != result.NotInRepo {
		t.Errorf("Kind = %s, want %s", err.Kind, result.NotInRepo)
	}
}

func TestRunWithLockRetrySucceedsAfterRetries(t *testing.T) {
	fake := executor.NewFake()
	fake.When(Binary, []string{"bookmark", "move"}, executor.Output{ExitCode: 1, Stderr: []byte("the lock file could not be acquired")}, nil)
	fake.When(Binary, []string{"bookmark", "move"}, executor.Output{ExitCode: 1, Stderr: []byte("the lock file could not be acquired")}, nil)
	fake.When(Binary, []string{"bookmark", "move"}, executor.Output{ExitCode: 0, Stdout: []byte("ok")}, nil)

	r := New(fake)
	inv, err := r.RunWithLockRetry(context.Background(), []string{"bookmark", "move"}, "/repo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Stdout != "ok" {
		t.Errorf("Stdout = %q, want ok", inv.Stdout)
	}
	if len(fake.Calls()) != 3 {
		t.Errorf("got %d calls, want 3", len(fake.Calls()))
	}
}

func TestRunWithLockRetryDoesNotRetryNonLockFailures(t *testing.T) {
	fake := executor.NewFake()
	fake.When(Binary, []string{"bookmark", "move"}, executor.Output{ExitCode: 1, Stderr: []byte("No workspace configured")}, nil)

	r := New(fake)
	_, err := r.RunWithLockRetry(context.Background(), []string{"bookmark", "move"}, "/repo")
	if err == nil {
		t.Fatal("expected error")
	}
	if len(fake.Calls()) != 1 {
		t.Errorf("got %d calls, want 1 (no retry on non-lock failure)", len(fake.Calls()))
	}
}

func TestTrunkOfCachesPerCwd(t *testing.T) {
	fake := executor.NewFake()
	fake.When(Binary, []string{"config", "get", "revset-aliases.trunk()"}, executor.Output{ExitCode: 0, Stdout: []byte(`"main"`)}, nil)

	r := New(fake)
	trunk, err := r.TrunkOf(context.Background(), "/repo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trunk != "main" {
		t.Errorf("trunk = %q, want main", trunk)
	}

	// second call must not hit the executor again
	trunk2, err := r.TrunkOf(context.Background(), "/repo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trunk2 != "main" {
		t.Errorf("trunk2 = %q, want main", trunk2)
	}
	if len(fake.Calls()) != 1 {
		t.Errorf("got %d calls, want 1 (cached)", len(fake.Calls()))
	}
}

func TestTrunkOfFailsWhenUnconfigured(t *testing.T) {
	fake := executor.NewFake()
	fake.When(Binary, []string{"config", "get", "revset-aliases.trunk()"}, executor.Output{ExitCode: 1, Stderr: []byte("no value")}, nil)

	r := New(fake)
	_, err := r.TrunkOf(context.Background(), "/repo")
	if err == nil || err.Kind != result.InvalidState {
		t.Fatalf("expected INVALID_STATE, got %v", err)
	}
}
