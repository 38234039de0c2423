package logs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestPaths(t *testing.T) *Paths {
	t.Helper()
	base := t.TempDir()
	p := NewPaths(filepath.Join(base, "files"), filepath.Join(base, "logs"))
	if err := p.EnsureBase(); err != nil {
		t.Fatalf("EnsureBase failed: %v", err)
	}
	return p
}

func TestReadNoLogsYet(t *testing.T) {
	p := newTestPaths(t)

	content, err := p.Read("u1")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if content != Placeholder {
		t.Errorf("expected placeholder, got %q", content)
	}
}

func TestReadExistingLog(t *testing.T) {
	p := newTestPaths(t)

	if err := os.WriteFile(p.LogPath("u1"), []byte("line one\nline two\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	content, err := p.Read("u1")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if content != "line one\nline two\n" {
		t.Errorf("unexpected content: %q", content)
	}
}

func TestUserDirCreated(t *testing.T) {
	p := newTestPaths(t)

	dir, err := p.UserDir("u2")
	if err != nil {
		t.Fatalf("UserDir failed: %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("expected directory at %s, err=%v", dir, err)
	}
}

func TestAppendFailure(t *testing.T) {
	p := newTestPaths(t)

	if err := p.AppendFailure("u3", errors.New("exec: no such file")); err != nil {
		t.Fatalf("AppendFailure failed: %v", err)
	}

	content, err := p.Read("u3")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !strings.Contains(content, "CRITICAL ERROR") || !strings.Contains(content, "no such file") {
		t.Errorf("failure not recorded: %q", content)
	}
}
