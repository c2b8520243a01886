// Package engine discovers the patches that apply to installed packages and
// drives applying and reverting them.
package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bianoble/composer-patches/internal/logging"
	"github.com/bianoble/composer-patches/internal/notice"
	"github.com/bianoble/composer-patches/internal/patch"
	"github.com/bianoble/composer-patches/internal/patchset"
	"github.com/bianoble/composer-patches/internal/repository"
)

// Engine resolves and applies patches for the packages in Repository.
// It processes packages and patches strictly one at a time.
type Engine struct {
	Repository repository.Repository
	Paths      repository.PathResolver
	Fetcher    patchset.Fetcher
	Applier    patch.Applier
	Notifier   notice.Notifier
	Logger     *zap.Logger

	sets   map[string]*patchset.Set
	failed map[string]error
}

type declaration struct {
	pkg     repository.Package
	targets []repository.Package
}

// Discover returns the patch work for initial that history has not seen yet.
// Packages declaring patches for initial contribute work against initial;
// initial's own declarations are matched against every installed package.
// A declarer whose patches cannot be resolved is reported once per history
// and skipped from then on; other declarers are still processed. The failure
// is kept for the Engine's lifetime, so its sources are not fetched again.
func (e *Engine) Discover(ctx context.Context, initial repository.Package, history *History) ([]Work, []SourceError) {
	log := logging.OrNop(e.Logger)
	installed := repository.Canonical(e.Repository.Packages())

	var decls []declaration
	for _, pkg := range installed {
		if pkg.Name == initial.Name || pkg.Patches() == nil {
			continue
		}
		decls = append(decls, declaration{pkg: pkg, targets: []repository.Package{initial}})
	}
	if initial.Patches() != nil {
		decls = append(decls, declaration{pkg: initial, targets: installed})
	}

	var works []Work
	var errs []SourceError
	fail := func(declarer string, err error) {
		history.MarkFailed(declarer)
		errs = append(errs, SourceError{Source: declarer, Err: err})
	}

	for _, d := range decls {
		if history.Failed(d.pkg.Name) {
			continue
		}
		set, err := e.set(d.pkg)
		if err != nil {
			fail(d.pkg.Name, err)
			continue
		}

		for _, target := range d.targets {
			key := Key(d.pkg.Name, target.Name)
			if history.Seen(key) {
				continue
			}

			patches, err := set.Resolve(ctx, target.Name, target.Version)
			if err != nil {
				log.Warn("resolving patches failed",
					zap.String(logging.KeyDeclarer, d.pkg.Name),
					zap.String(logging.KeyPackage, target.Name),
					zap.Error(err),
				)
				err = fmt.Errorf("resolving patches for %s: %w", target.Name, err)
				if ctx.Err() == nil {
					e.remember(d.pkg, err)
				}
				fail(d.pkg.Name, err)
				break
			}

			history.Mark(key)
			if len(patches) == 0 {
				continue
			}
			works = append(works, Work{Declarer: d.pkg.Name, Package: target, Patches: patches})
		}
	}

	return works, errs
}

func setKey(pkg repository.Package) string {
	return pkg.Name + "\x00" + string(pkg.Patches())
}

// remember records that pkg's declarations cannot be resolved.
func (e *Engine) remember(pkg repository.Package, err error) {
	if e.failed == nil {
		e.failed = make(map[string]error)
	}
	e.failed[setKey(pkg)] = err
}

// set returns the definition set for a declaring package, building it on
// first use. Sets and failures are keyed by name and raw declaration.
func (e *Engine) set(pkg repository.Package) (*patchset.Set, error) {
	key := setKey(pkg)
	if err, ok := e.failed[key]; ok {
		return nil, err
	}
	if s, ok := e.sets[key]; ok {
		return s, nil
	}

	cfg, err := patchset.Parse(pkg.Patches())
	if err != nil {
		e.remember(pkg, err)
		return nil, err
	}

	var baseDir string
	if e.Paths != nil {
		dir, pathErr := e.Paths.InstallPath(pkg)
		if pathErr != nil {
			logging.OrNop(e.Logger).Debug("no install path for declaring package",
				zap.String(logging.KeyDeclarer, pkg.Name),
				zap.Error(pathErr),
			)
		} else {
			baseDir = dir
		}
	}

	s := patchset.New(cfg, e.Fetcher, patchset.Options{
		BaseDir: baseDir,
		Applier: e.Applier,
		Logger:  e.Logger,
	})
	if e.sets == nil {
		e.sets = make(map[string]*patchset.Set)
	}
	e.sets[key] = s
	return s, nil
}

func (e *Engine) notify(ev notice.Event, w Work, p *patch.Patch, err error) {
	if e.Notifier == nil {
		return
	}
	e.Notifier.Notify(notice.Notice{Event: ev, Patch: p, Package: w.Package, Err: err})
}

func (e *Engine) installPath(w Work) (string, error) {
	if e.Paths == nil {
		return "", fmt.Errorf("no install path resolver configured")
	}
	path, err := e.Paths.InstallPath(w.Package)
	if err != nil {
		return "", fmt.Errorf("install path for %s: %w", w.Package.Name, err)
	}
	return path, nil
}
