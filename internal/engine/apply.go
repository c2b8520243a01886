package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/bianoble/composer-patches/internal/logging"
	"github.com/bianoble/composer-patches/internal/notice"
	"github.com/bianoble/composer-patches/internal/repository"
)

// Apply applies every outstanding patch to every installed package.
// A patch that fails is reported and skipped; it never stops the pass.
func (e *Engine) Apply(ctx context.Context, history *History) (*Result, error) {
	result := &Result{}

	for _, initial := range repository.Canonical(e.Repository.Packages()) {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		works, errs := e.Discover(ctx, initial, history)
		result.Errors = append(result.Errors, errs...)
		for _, w := range works {
			e.applyWork(ctx, w, result)
		}
	}

	return result, nil
}

func (e *Engine) applyWork(ctx context.Context, w Work, result *Result) {
	log := logging.OrNop(e.Logger)

	path, err := e.installPath(w)
	if err != nil {
		result.Errors = append(result.Errors, SourceError{Source: w.Declarer, Err: err})
		return
	}

	for _, p := range w.Patches {
		e.notify(notice.Testing, w, p, nil)

		if applyErr := p.Apply(ctx, path, true); applyErr != nil {
			// A patch that reverts cleanly is already in place.
			if revertErr := p.Revert(ctx, path, true); revertErr == nil {
				log.Debug("patch already applied",
					zap.String(logging.KeyPackage, w.Package.Name),
					zap.String(logging.KeyChecksum, p.Checksum),
				)
				e.notify(notice.AlreadyApplied, w, p, applyErr)
				result.Skipped = append(result.Skipped, action(w, p, applyErr))
				continue
			}
			e.notify(notice.ApplyFailed, w, p, applyErr)
			result.Failed = append(result.Failed, action(w, p, applyErr))
			continue
		}

		if err := p.Apply(ctx, path, false); err != nil {
			e.notify(notice.ApplyFailed, w, p, err)
			result.Failed = append(result.Failed, action(w, p, err))
			continue
		}

		log.Debug("patch applied",
			zap.String(logging.KeyPackage, w.Package.Name),
			zap.String(logging.KeyChecksum, p.Checksum),
			zap.String(logging.KeyPath, path),
		)
		e.notify(notice.Applied, w, p, nil)
		result.Applied = append(result.Applied, action(w, p, nil))
	}
}
