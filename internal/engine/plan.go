package engine

import (
	"context"

	"github.com/bianoble/composer-patches/internal/repository"
)

// Plan discovers every patch an apply pass would consider without touching
// the filesystem. When only is non-empty, work is limited to that target.
func (e *Engine) Plan(ctx context.Context, only string) ([]Work, []SourceError) {
	history := NewHistory()

	var works []Work
	var errs []SourceError
	for _, initial := range repository.Canonical(e.Repository.Packages()) {
		if ctx.Err() != nil {
			errs = append(errs, SourceError{Source: initial.Name, Err: ctx.Err()})
			break
		}
		w, se := e.Discover(ctx, initial, history)
		errs = append(errs, se...)
		for _, work := range w {
			if only != "" && work.Package.Name != only {
				continue
			}
			works = append(works, work)
		}
	}
	return works, errs
}
