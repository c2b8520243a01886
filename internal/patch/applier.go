package patch

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Request describes one invocation of the patch tool.
type Request struct {
	Dir     string
	Content []byte
	Reverse bool
	DryRun  bool
}

// Applier runs a patch against a directory. Failure to apply or revert
// cleanly must be reported as *CommandError.
type Applier interface {
	Run(ctx context.Context, req Request) error
}

// Supported tools for CommandApplier.
const (
	ToolPatch = "patch"
	ToolGit   = "git"
)

// CommandApplier drives GNU patch or git apply.
type CommandApplier struct {
	Tool   string // "patch" (default) or "git"
	Binary string // overrides the executable looked up on PATH
	Strip  int    // -p level; 0 means 1
}

func (c *CommandApplier) Run(ctx context.Context, req Request) error {
	name, args, dir := c.command(req)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdin = bytes.NewReader(req.Content)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return &CommandError{
			Command: name + " " + strings.Join(args, " "),
			Dir:     req.Dir,
			Reverse: req.Reverse,
			DryRun:  req.DryRun,
			Output:  strings.TrimSpace(out.String()),
			Err:     err,
		}
	}
	return nil
}

func (c *CommandApplier) command(req Request) (string, []string, string) {
	strip := c.Strip
	if strip <= 0 {
		strip = 1
	}

	switch c.Tool {
	case ToolGit:
		args := []string{"apply", "-p" + strconv.Itoa(strip)}
		if req.Reverse {
			args = append(args, "-R")
		}
		if req.DryRun {
			args = append(args, "--check")
		}
		args = append(args, "-")
		return c.binary("git"), args, req.Dir
	default:
		// -f: never prompt and never guess that a patch is reversed, so an
		// already applied patch fails instead of being silently undone.
		args := []string{"-f", "-p" + strconv.Itoa(strip), "--no-backup-if-mismatch", "-r", "-", "-d", req.Dir}
		if req.Reverse {
			args = append(args, "-R")
		}
		if req.DryRun {
			args = append(args, "--dry-run")
		}
		return c.binary("patch"), args, ""
	}
}

func (c *CommandApplier) binary(def string) string {
	if c.Binary != "" {
		return c.Binary
	}
	return def
}

// CommandError reports a patch tool invocation that did not succeed.
// It is expected and recovered from by the engine.
type CommandError struct {
	Command string
	Dir     string
	Reverse bool
	DryRun  bool
	Output  string
	Err     error
}

func (e *CommandError) Error() string {
	op := "apply"
	if e.Reverse {
		op = "revert"
	}
	if e.DryRun {
		op += " (dry run)"
	}
	msg := fmt.Sprintf("%s in %s failed: %v", op, e.Dir, e.Err)
	if e.Output != "" {
		msg += "\n" + e.Output
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
