package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// setupTestRepo creates a temporary git repository for testing.
func setupTestRepo(t *testing.T) (string, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "git-vcs-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	cmd := exec.Command("git", "init")
	cmd.Dir = tmpDir
	if err := cmd.Run(); err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to init git repo: %v", err)
	}

	exec.Command("git", "-C", tmpDir, "config", "user.name", "Test User").Run()
	exec.Command("git", "-C", tmpDir, "config", "user.email", "test@example.com").Run()

	cleanup := func() {
		os.RemoveAll(tmpDir)
	}

	return tmpDir, cleanup
}

func currentRef(t *testing.T, repoPath string) string {
	t.Helper()
	out, err := exec.Command("git", "-C", repoPath, "symbolic-ref", "--short", "HEAD").Output()
	if err != nil {
		t.Fatalf("symbolic-ref failed: %v", err)
	}
	return strings.TrimSpace(string(out))
}

func TestNew(t *testing.T) {
	repoPath, cleanup := setupTestRepo(t)
	defer cleanup()

	g, err := New(repoPath)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	absRepoPath, _ := filepath.Abs(repoPath)
	absRepoPath, _ = filepath.EvalSymlinks(absRepoPath)
	rootResolved, _ := filepath.EvalSymlinks(g.repoRoot)
	if rootResolved != absRepoPath {
		t.Errorf("repoRoot = %v, want %v", g.repoRoot, absRepoPath)
	}
}

func TestNewOutsideRepo(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "not-a-repo-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	if _, err := New(tmpDir); err == nil {
		t.Error("New() succeeded outside a git repository, want error")
	}
}

func TestCheckout(t *testing.T) {
	repoPath, cleanup := setupTestRepo(t)
	defer cleanup()

	g, err := New(repoPath)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	testFile := filepath.Join(repoPath, "test.txt")
	os.WriteFile(testFile, []byte("test"), 0644)
	exec.Command("git", "-C", repoPath, "add", "test.txt").Run()
	exec.Command("git", "-C", repoPath, "commit", "-m", "initial").Run()

	if err := exec.Command("git", "-C", repoPath, "branch", "feature").Run(); err != nil {
		t.Fatalf("creating feature branch failed: %v", err)
	}

	if err := g.Checkout("feature"); err != nil {
		t.Fatalf("Checkout() failed: %v", err)
	}

	if ref := currentRef(t, repoPath); ref != "feature" {
		t.Errorf("current ref = %q, want %q", ref, "feature")
	}
}
