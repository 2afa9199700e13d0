package executor

import (
	"context"
	"testing"
)

func TestRealRunCapturesOutput(t *testing.T) {
	e := New()
	out, err := e.Run(context.Background(), Request{Name: "echo", Args: []string{"hello"}})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := string(out.Stdout); got != "hello\n" {
		t.Errorf("Stdout = %q, want %q", got, "hello\n")
	}
	if out.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", out.ExitCode)
	}
}

func TestRealRunNonZeroExit(t *testing.T) {
	e := New()
	out, err := e.Run(context.Background(), Request{Name: "sh", Args: []string{"-c", "echo oops 1>&2; exit 3"}})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", out.ExitCode)
	}
	if got := string(out.Stderr); got != "oops\n" {
		t.Errorf("Stderr = %q, want %q", got, "oops\n")
	}
}

func TestFakeReplaysCannedResultsInOrder(t *testing.T) {
	f := NewFake()
	f.When("jj", []string{"status"}, Output{Stdout: []byte("first")}, nil)
	f.When("jj", []string{"status"}, Output{Stdout: []byte("second")}, nil)

	out1, _ := f.Run(context.Background(), Request{Name: "jj", Args: []string{"status"}})
	out2, _ := f.Run(context.Background(), Request{Name: "jj", Args: []string{"status"}})

	if string(out1.Stdout) != "first" || string(out2.Stdout) != "second" {
		t.Errorf("got %q then %q, want first then second", out1.Stdout, out2.Stdout)
	}
}

func TestFakeErrorsOnUnregisteredCall(t *testing.T) {
	f := NewFake()
	_, err := f.Run(context.Background(), Request{Name: "jj", Args: []string{"log"}})
	if err == nil {
		t.Fatal("expected error for unregistered call, got nil")
	}
}
