package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/bianoble/composer-patches/internal/logging"
	"github.com/bianoble/composer-patches/internal/notice"
)

// Restore reverts the patches touching the package an operation is about to
// remove or replace. Patches are reverted in reverse declaration order.
// Only an unexpected operation is returned as an error.
func (e *Engine) Restore(ctx context.Context, op Operation, history *History) (*Result, error) {
	initial, err := op.InitialPackage()
	if err != nil {
		return nil, err
	}
	logging.OrNop(e.Logger).Info("restoring patches",
		zap.String("operation", op.Kind.String()),
		zap.String(logging.KeyPackage, initial.Name),
		zap.String("version", initial.PrettyVersion),
		zap.String("target_version", op.Target.PrettyVersion),
	)

	result := &Result{}
	works, errs := e.Discover(ctx, initial, history)
	result.Errors = append(result.Errors, errs...)
	for _, w := range works {
		e.restoreWork(ctx, w, result)
	}
	return result, nil
}

func (e *Engine) restoreWork(ctx context.Context, w Work, result *Result) {
	log := logging.OrNop(e.Logger)

	path, err := e.installPath(w)
	if err != nil {
		result.Errors = append(result.Errors, SourceError{Source: w.Declarer, Err: err})
		return
	}

	for i := len(w.Patches) - 1; i >= 0; i-- {
		p := w.Patches[i]

		if err := p.Revert(ctx, path, true); err != nil {
			e.notify(notice.RevertFailed, w, p, err)
			result.Failed = append(result.Failed, action(w, p, err))
			continue
		}
		if err := p.Revert(ctx, path, false); err != nil {
			e.notify(notice.RevertFailed, w, p, err)
			result.Failed = append(result.Failed, action(w, p, err))
			continue
		}

		log.Debug("patch reverted",
			zap.String(logging.KeyPackage, w.Package.Name),
			zap.String(logging.KeyChecksum, p.Checksum),
		)
		e.notify(notice.Reverted, w, p, nil)
		result.Reverted = append(result.Reverted, action(w, p, nil))
	}
}
