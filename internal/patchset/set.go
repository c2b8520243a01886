// Package patchset turns a package's declared patch configuration into the
// concrete patches that apply to a given target package and version.
package patchset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/bianoble/composer-patches/internal/logging"
	"github.com/bianoble/composer-patches/internal/patch"
	"github.com/bianoble/composer-patches/internal/transport"
)

// Fetcher is the subset of the remote content cache a Set needs.
type Fetcher interface {
	Bytes(ctx context.Context, url string) ([]byte, error)
	JSON(ctx context.Context, url string, v any) error
}

// Options configures a Set.
type Options struct {
	// BaseDir resolves relative patch paths, normally the declaring package's install path.
	BaseDir string
	Applier patch.Applier
	Logger  *zap.Logger
}

// ErrCycle is returned when patch documents reference each other in a loop.
var ErrCycle = errors.New("patch document cycle")

// Set resolves patches from one declaring package's configuration.
type Set struct {
	cfg     Config
	fetcher Fetcher
	opts    Options
	loaded  bool
}

// New creates a Set from a parsed configuration.
func New(cfg Config, fetcher Fetcher, opts Options) *Set {
	opts.Logger = logging.OrNop(opts.Logger)
	return &Set{cfg: cfg, fetcher: fetcher, opts: opts}
}

func (s *Set) load(ctx context.Context) error {
	if s.loaded || s.cfg.Source == "" {
		return nil
	}

	visited := map[string]bool{}
	cfg := s.cfg
	for cfg.Source != "" {
		src := s.location(cfg.Source, "", "")
		if visited[src] {
			return fmt.Errorf("loading %s: %w", src, ErrCycle)
		}
		visited[src] = true

		var raw json.RawMessage
		if err := s.fetcher.JSON(ctx, src, &raw); err != nil {
			return err
		}
		next, err := Parse(raw)
		if err != nil {
			return fmt.Errorf("document %s: %w", src, err)
		}
		cfg = next
	}

	s.cfg = Config{Targets: cfg.Targets}
	s.loaded = true
	return nil
}

// Resolve returns the patches that apply to the named package at version, in
// declaration order. No matching declaration is not an error.
func (s *Set) Resolve(ctx context.Context, name, version string) ([]*patch.Patch, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}

	var patches []*patch.Patch
	for _, entries := range matching(s.cfg.Targets, name) {
		for _, d := range entries {
			resolved, err := s.expand(ctx, d, name, version, map[string]bool{})
			if err != nil {
				return nil, err
			}
			patches = append(patches, resolved...)
		}
	}

	s.opts.Logger.Debug("resolved patches",
		zap.String(logging.KeyPackage, name),
		zap.String("version", version),
		zap.Int("count", len(patches)),
	)
	return patches, nil
}

// expand flattens one descriptor. visited holds the documents on the current
// path only, so a document may be shared by siblings but not include itself.
func (s *Set) expand(ctx context.Context, d Descriptor, name, version string, visited map[string]bool) ([]*patch.Patch, error) {
	ok, err := Satisfies(d.Constraint, version)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.opts.Logger.Debug("constraint not met",
			zap.String(logging.KeyPackage, name),
			zap.String("version", version),
			zap.String("constraint", d.Constraint),
		)
		return nil, nil
	}

	var out []*patch.Patch
	for _, child := range d.Patches {
		resolved, err := s.expand(ctx, child, name, version, visited)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved...)
	}
	if d.URL == "" {
		return out, nil
	}

	loc := s.location(d.URL, name, version)
	if !isDocument(loc) {
		content, err := s.fetcher.Bytes(ctx, loc)
		if err != nil {
			return nil, err
		}
		return append(out, patch.New(loc, d.Title, content, s.opts.Applier)), nil
	}

	if visited[loc] {
		return nil, fmt.Errorf("expanding %s: %w", loc, ErrCycle)
	}
	visited[loc] = true
	defer delete(visited, loc)

	children, err := s.document(ctx, loc, name)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		if child.Title == "" && len(children) == 1 {
			child.Title = d.Title
		}
		resolved, err := s.expand(ctx, child, name, version, visited)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved...)
	}
	return out, nil
}

// document loads a patch document: an entries array, a single descriptor
// object, or an object keyed by target name from which the entries for name
// are taken.
func (s *Set) document(ctx context.Context, loc, name string) (Entries, error) {
	var raw json.RawMessage
	if err := s.fetcher.JSON(ctx, loc, &raw); err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("document %s: %w", loc, err)
		}
		if isDescriptor(fields) {
			d, err := decodeDescriptor(raw)
			if err != nil {
				return nil, fmt.Errorf("document %s: %w", loc, err)
			}
			return Entries{d}, nil
		}

		var byTarget map[string]Entries
		if err := json.Unmarshal(raw, &byTarget); err != nil {
			return nil, fmt.Errorf("document %s: %w", loc, err)
		}
		var out Entries
		for _, entries := range matching(byTarget, name) {
			out = append(out, entries...)
		}
		return out, nil
	}

	var entries Entries
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("document %s: %w", loc, err)
	}
	return entries, nil
}

// location substitutes {package} and {version} tokens and anchors relative
// local paths at BaseDir.
func (s *Set) location(raw, name, version string) string {
	loc := strings.NewReplacer("{package}", name, "{version}", version).Replace(raw)
	if transport.IsRemote(loc) || strings.HasPrefix(strings.ToLower(loc), "file:") {
		return loc
	}
	if !filepath.IsAbs(loc) && s.opts.BaseDir != "" {
		return filepath.Join(s.opts.BaseDir, filepath.FromSlash(loc))
	}
	return loc
}

// matching returns the entries for name: the exact key first, then every glob
// key that matches, in lexical key order.
func matching(targets map[string]Entries, name string) []Entries {
	var out []Entries
	if entries, ok := targets[name]; ok {
		out = append(out, entries)
	}
	for _, key := range (Config{Targets: targets}).Keys() {
		if key == name || !strings.ContainsAny(key, "*?[") {
			continue
		}
		if ok, err := path.Match(key, name); err == nil && ok {
			out = append(out, targets[key])
		}
	}
	return out
}

// isDescriptor reports whether a document object is a descriptor rather than
// a map of target names. Package names always contain a vendor prefix.
func isDescriptor(fields map[string]json.RawMessage) bool {
	for _, k := range []string{"url", "patches"} {
		if _, ok := fields[k]; ok {
			return true
		}
	}
	return false
}

func isDocument(loc string) bool {
	p := loc
	if u, err := url.Parse(loc); err == nil && u.Path != "" {
		p = u.Path
	}
	return strings.EqualFold(path.Ext(p), ".json")
}
