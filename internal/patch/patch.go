// Package patch holds resolved patches and applies or reverts them on disk.
package patch

import (
	"context"
	"errors"

	"github.com/bianoble/composer-patches/internal/cache"
)

// Patch is one resolved patch body ready to be applied or reverted.
type Patch struct {
	Checksum string
	Title    string
	URL      string
	Content  []byte

	applier Applier
}

// New creates a Patch and computes its checksum from content.
func New(url, title string, content []byte, applier Applier) *Patch {
	return &Patch{
		Checksum: cache.ComputeHash(content),
		Title:    title,
		URL:      url,
		Content:  content,
		applier:  applier,
	}
}

// ErrNoApplier is returned when a Patch was built without an Applier.
var ErrNoApplier = errors.New("patch has no applier")

// Apply applies the patch in dir. With dryRun nothing is written; the call
// only reports whether the patch would apply cleanly.
func (p *Patch) Apply(ctx context.Context, dir string, dryRun bool) error {
	return p.run(ctx, dir, false, dryRun)
}

// Revert reverses the patch in dir, with the same dry-run semantics as Apply.
func (p *Patch) Revert(ctx context.Context, dir string, dryRun bool) error {
	return p.run(ctx, dir, true, dryRun)
}

func (p *Patch) run(ctx context.Context, dir string, reverse, dryRun bool) error {
	if p.applier == nil {
		return ErrNoApplier
	}
	return p.applier.Run(ctx, Request{
		Dir:     dir,
		Content: p.Content,
		Reverse: reverse,
		DryRun:  dryRun,
	})
}

// ID returns the identifier shown in notices: the checksum when verbose or
// when the patch has no title, otherwise empty (the title is shown instead).
func (p *Patch) ID(verbose bool) string {
	if verbose || p.Title == "" {
		return p.Checksum
	}
	return ""
}
