package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveWorkspaceRootPath_ExpandsHomeShortcut(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("user home dir: %v", err)
	}

	got, err := ResolveWorkspaceRootPath("~/.statusrole/workspaces")
	if err != nil {
		t.Fatalf("resolve workspace root path: %v", err)
	}

	want := filepath.Join(home, ".statusrole", "workspaces")
	if got != want {
		t.Fatalf("path mismatch: got %q want %q", got, want)
	}
}

func TestResolveWorkspaceRootPath_DefaultsUnderHome(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	got, err := ResolveWorkspaceRootPath("")
	if err != nil {
		t.Fatalf("resolve workspace root path: %v", err)
	}

	want := filepath.Join(tmpHome, ".statusrole", "workspaces")
	if got != want {
		t.Fatalf("path mismatch: got %q want %q", got, want)
	}
}

func TestWorkspaceSubpaths(t *testing.T) {
	root := t.TempDir()

	journal, err := GetJournalDir("guild-1", root)
	if err != nil {
		t.Fatalf("journal dir: %v", err)
	}
	if want := filepath.Join(root, "guild-1", "journal"); journal != want {
		t.Fatalf("journal dir mismatch: got %q want %q", journal, want)
	}

	lock, err := GetLockPath("guild-1", root)
	if err != nil {
		t.Fatalf("lock path: %v", err)
	}
	if want := filepath.Join(root, "guild-1", instanceLockFile); lock != want {
		t.Fatalf("lock path mismatch: got %q want %q", lock, want)
	}
}
