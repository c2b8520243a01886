// Package repository reads the set of installed packages and resolves where
// each one lives on disk.
package repository

import (
	"encoding/json"
)

// Package is an installed package as recorded by the host package manager.
type Package struct {
	Name          string
	Version       string // normalized version used for constraint checks
	PrettyVersion string // version as written by the user
	Type          string
	InstallPath   string // as recorded in the manifest, may be relative
	Extra         map[string]json.RawMessage
}

// Patches returns the raw extra.patches declaration, or nil when the package declares none.
func (p Package) Patches() json.RawMessage {
	raw, ok := p.Extra["patches"]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}

// Repository lists installed packages.
type Repository interface {
	Packages() []Package
}

// PathResolver returns the directory a package is installed in.
type PathResolver interface {
	InstallPath(pkg Package) (string, error)
}

// Canonical drops later packages that repeat an earlier name, such as
// alias entries.
func Canonical(pkgs []Package) []Package {
	seen := make(map[string]bool, len(pkgs))
	out := make([]Package, 0, len(pkgs))
	for _, p := range pkgs {
		if seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		out = append(out, p)
	}
	return out
}

// Find returns the package called name.
func Find(repo Repository, name string) (Package, bool) {
	for _, p := range repo.Packages() {
		if p.Name == name {
			return p, true
		}
	}
	return Package{}, false
}
