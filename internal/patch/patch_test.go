package patch

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	difflib "github.com/pmezard/go-difflib/difflib"
)

func splitLines(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func unifiedPatch(t *testing.T, name, before, after string) []byte {
	t.Helper()
	s, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(before),
		B:        splitLines(after),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  3,
	})
	if err != nil {
		t.Fatalf("building diff: %v", err)
	}
	return []byte(s)
}

func requirePatchTool(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("patch"); err != nil {
		t.Skip("patch binary not available")
	}
}

const original = "line one\nline two\nline three\n"
const patched = "line one\nline 2\nline three\n"

func setupPackage(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "src.txt"), []byte(original), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestApplyRevertSymmetry(t *testing.T) {
	requirePatchTool(t)
	dir := setupPackage(t)
	ctx := context.Background()
	p := New("https://x/p1.patch", "", unifiedPatch(t, "src.txt", original, patched), &CommandApplier{})

	if err := p.Apply(ctx, dir, true); err != nil {
		t.Fatalf("dry-run apply: %v", err)
	}
	if got := readFile(t, filepath.Join(dir, "src.txt")); got != original {
		t.Fatalf("dry run modified file: %q", got)
	}

	if err := p.Apply(ctx, dir, false); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := readFile(t, filepath.Join(dir, "src.txt")); got != patched {
		t.Fatalf("after apply = %q", got)
	}

	if err := p.Revert(ctx, dir, false); err != nil {
		t.Fatalf("revert: %v", err)
	}
	if got := readFile(t, filepath.Join(dir, "src.txt")); got != original {
		t.Fatalf("after revert = %q", got)
	}

	if err := p.Apply(ctx, dir, true); err != nil {
		t.Errorf("dry-run apply after revert: %v", err)
	}
}

func TestApplyTwiceFails(t *testing.T) {
	requirePatchTool(t)
	dir := setupPackage(t)
	ctx := context.Background()
	p := New("p1.patch", "rename", unifiedPatch(t, "src.txt", original, patched), &CommandApplier{})

	if err := p.Apply(ctx, dir, false); err != nil {
		t.Fatalf("apply: %v", err)
	}

	err := p.Apply(ctx, dir, true)
	if err == nil {
		t.Fatal("expected second dry-run apply to fail")
	}
	var ce *CommandError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CommandError, got %T", err)
	}
	if ce.Reverse || !ce.DryRun {
		t.Errorf("error flags = reverse %v dry %v", ce.Reverse, ce.DryRun)
	}

	if err := p.Revert(ctx, dir, true); err != nil {
		t.Errorf("dry-run revert on applied patch: %v", err)
	}
}

func TestRevertNotAppliedFails(t *testing.T) {
	requirePatchTool(t)
	dir := setupPackage(t)
	p := New("p1.patch", "", unifiedPatch(t, "src.txt", original, patched), &CommandApplier{})

	err := p.Revert(context.Background(), dir, true)
	var ce *CommandError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CommandError, got %v", err)
	}
	if !strings.Contains(ce.Error(), "revert (dry run)") {
		t.Errorf("unexpected message: %s", ce.Error())
	}
}

func TestCommandArgs(t *testing.T) {
	tests := []struct {
		name     string
		applier  CommandApplier
		req      Request
		wantBin  string
		wantArgs string
		wantDir  string
	}{
		{
			name:     "patch apply",
			applier:  CommandApplier{},
			req:      Request{Dir: "/v/foo"},
			wantBin:  "patch",
			wantArgs: "-f -p1 --no-backup-if-mismatch -r - -d /v/foo",
		},
		{
			name:     "patch revert dry run",
			applier:  CommandApplier{Strip: 2, Binary: "gpatch"},
			req:      Request{Dir: "/v/foo", Reverse: true, DryRun: true},
			wantBin:  "gpatch",
			wantArgs: "-f -p2 --no-backup-if-mismatch -r - -d /v/foo -R --dry-run",
		},
		{
			name:     "git check",
			applier:  CommandApplier{Tool: ToolGit},
			req:      Request{Dir: "/v/foo", DryRun: true},
			wantBin:  "git",
			wantArgs: "apply -p1 --check -",
			wantDir:  "/v/foo",
		},
		{
			name:     "git revert",
			applier:  CommandApplier{Tool: ToolGit},
			req:      Request{Dir: "/v/foo", Reverse: true},
			wantBin:  "git",
			wantArgs: "apply -p1 -R -",
			wantDir:  "/v/foo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin, args, dir := tt.applier.command(tt.req)
			if bin != tt.wantBin {
				t.Errorf("bin = %q, want %q", bin, tt.wantBin)
			}
			if got := strings.Join(args, " "); got != tt.wantArgs {
				t.Errorf("args = %q, want %q", got, tt.wantArgs)
			}
			if dir != tt.wantDir {
				t.Errorf("dir = %q, want %q", dir, tt.wantDir)
			}
		})
	}
}

func TestID(t *testing.T) {
	titled := New("u", "Fix XSS", []byte("x"), nil)
	untitled := New("u", "", []byte("x"), nil)

	if titled.ID(false) != "" {
		t.Errorf("titled non-verbose id = %q", titled.ID(false))
	}
	if titled.ID(true) != titled.Checksum {
		t.Errorf("titled verbose id = %q", titled.ID(true))
	}
	if untitled.ID(false) != untitled.Checksum {
		t.Errorf("untitled id = %q", untitled.ID(false))
	}
}

func TestNoApplier(t *testing.T) {
	p := New("u", "", []byte("x"), nil)
	if err := p.Apply(context.Background(), t.TempDir(), true); !errors.Is(err, ErrNoApplier) {
		t.Errorf("err = %v, want ErrNoApplier", err)
	}
}
