package notice

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Verbosity selects how much the console prints.
type Verbosity int

const (
	Quiet Verbosity = iota
	Normal
	Verbose
	VeryVerbose
)

// Console writes notices as human-readable lines.
type Console struct {
	Out       io.Writer
	Verbosity Verbosity

	mu      sync.Mutex
	info    *color.Color
	comment *color.Color
	warning *color.Color
}

// NewConsole creates a Console. Colors are used only when useColor is set.
func NewConsole(out io.Writer, v Verbosity, useColor bool) *Console {
	c := &Console{
		Out:       out,
		Verbosity: v,
		info:      color.New(color.FgGreen),
		comment:   color.New(color.FgYellow),
		warning:   color.New(color.FgBlack, color.BgYellow),
	}
	for _, col := range []*color.Color{c.info, c.comment, c.warning} {
		if useColor {
			col.EnableColor()
		} else {
			col.DisableColor()
		}
	}
	return c
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Info prints a plain line at normal verbosity.
func (c *Console) Info(format string, args ...any) {
	if c.Verbosity < Normal {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.Out, c.info.Sprintf(format, args...))
}

func (c *Console) Notify(n Notice) {
	if !c.visible(n.Event) {
		return
	}

	var lines []string
	lines = append(lines, c.headline(n))

	switch n.Event {
	case ApplyFailed:
		lines = append(lines, "  "+c.warning.Sprint("Could not apply patch"))
	case RevertFailed:
		lines = append(lines, "  "+c.warning.Sprint("Could not revert patch")+" (was probably not applied)")
	}
	if n.Err != nil && c.detailed(n.Event) {
		lines = append(lines, c.warning.Sprint(strings.TrimSpace(n.Err.Error())))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range lines {
		fmt.Fprintln(c.Out, l)
	}
}

func (c *Console) visible(e Event) bool {
	switch e {
	case Testing:
		return c.Verbosity >= VeryVerbose
	case AlreadyApplied:
		return c.Verbosity >= Verbose
	case ApplyFailed, RevertFailed:
		return true
	default:
		return c.Verbosity >= Normal
	}
}

// detailed reports whether the error message is printed under the notice.
func (c *Console) detailed(e Event) bool {
	if e == AlreadyApplied {
		return c.Verbosity >= VeryVerbose
	}
	return c.Verbosity >= Verbose
}

func (c *Console) headline(n Notice) string {
	verbose := c.Verbosity >= Verbose

	var b strings.Builder
	b.WriteString("  ")
	b.WriteString(verb(n.Event))
	b.WriteString(" patch")
	if n.Patch != nil {
		if id := n.Patch.ID(verbose); id != "" {
			b.WriteString(" " + c.info.Sprint(id))
		}
	}
	b.WriteString(" " + adverb(n.Event))
	b.WriteString(" " + c.info.Sprint(n.Package.Name))
	if verbose && n.Package.PrettyVersion != "" {
		b.WriteString(" (" + c.comment.Sprint(n.Package.PrettyVersion) + ")")
	}
	if n.Patch != nil && n.Patch.Title != "" {
		b.WriteString(": " + c.comment.Sprint(n.Patch.Title))
	}
	if n.Event == AlreadyApplied {
		b.WriteString(" (already applied)")
	}
	return b.String()
}

func verb(e Event) string {
	switch e {
	case Testing:
		return "Testing"
	case AlreadyApplied:
		return "Skipping"
	case Reverted, RevertFailed:
		return "Reverting"
	default:
		return "Applying"
	}
}

func adverb(e Event) string {
	switch e {
	case Testing, AlreadyApplied:
		return "on"
	case Reverted, RevertFailed:
		return "from"
	default:
		return "to"
	}
}
