package engine

import (
	"github.com/bianoble/composer-patches/internal/patch"
	"github.com/bianoble/composer-patches/internal/repository"
)

// Work is the set of patches one declaring package contributes to one target package.
type Work struct {
	Declarer string
	Package  repository.Package
	Patches  []*patch.Patch
}

// PatchAction records what happened to a single patch.
type PatchAction struct {
	Declarer string
	Package  string
	Checksum string
	Title    string
	URL      string
	Err      error
}

// SourceError represents an error associated with a specific declaring package.
type SourceError struct {
	Source string
	Err    error
}

func (e SourceError) Error() string {
	return e.Source + ": " + e.Err.Error()
}

func (e SourceError) Unwrap() error {
	return e.Err
}

// Result holds the outcome of an apply or restore pass.
type Result struct {
	Applied  []PatchAction
	Reverted []PatchAction
	Skipped  []PatchAction // already applied
	Failed   []PatchAction
	Errors   []SourceError
}

// Merge appends the contents of other to r.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Applied = append(r.Applied, other.Applied...)
	r.Reverted = append(r.Reverted, other.Reverted...)
	r.Skipped = append(r.Skipped, other.Skipped...)
	r.Failed = append(r.Failed, other.Failed...)
	r.Errors = append(r.Errors, other.Errors...)
}

func action(w Work, p *patch.Patch, err error) PatchAction {
	return PatchAction{
		Declarer: w.Declarer,
		Package:  w.Package.Name,
		Checksum: p.Checksum,
		Title:    p.Title,
		URL:      p.URL,
		Err:      err,
	}
}
