package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bianoble/composer-patches/internal/sandbox"
)

// Manifest is an installed-packages file such as vendor/composer/installed.json.
// It implements both Repository and PathResolver.
type Manifest struct {
	Path      string // manifest file
	VendorDir string // default parent of package directories
	Root      string // project root; install paths must stay inside it

	packages []Package
}

type manifestEntry struct {
	Name              string                     `json:"name"`
	Version           string                     `json:"version"`
	VersionNormalized string                     `json:"version_normalized"`
	Type              string                     `json:"type"`
	InstallPath       string                     `json:"install-path"`
	Extra             map[string]json.RawMessage `json:"extra"`
}

// LoadManifest reads a Composer installed.json (either the bare array form or
// the {"packages": [...]} form) or the same structure written as YAML.
// root defaults to the parent of vendorDir.
func LoadManifest(path, vendorDir, root string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
		}
	}

	entries, err := decodeEntries(data)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}

	if errs := validate(entries); len(errs) > 0 {
		return nil, &ValidationError{Path: path, Errors: errs}
	}

	if root == "" {
		root = filepath.Dir(filepath.Clean(vendorDir))
	}

	m := &Manifest{Path: path, VendorDir: vendorDir, Root: root}
	for _, e := range entries {
		version := e.VersionNormalized
		if version == "" {
			version = e.Version
		}
		m.packages = append(m.packages, Package{
			Name:          e.Name,
			Version:       version,
			PrettyVersion: e.Version,
			Type:          e.Type,
			InstallPath:   e.InstallPath,
			Extra:         e.Extra,
		})
	}
	return m, nil
}

// Packages returns the installed packages in manifest order.
func (m *Manifest) Packages() []Package {
	return m.packages
}

// InstallPath returns the package directory. A recorded install-path is
// relative to the manifest's directory; otherwise <VendorDir>/<name> is used.
// Relative manifest and vendor paths are taken from the working directory.
func (m *Manifest) InstallPath(pkg Package) (string, error) {
	var p string
	if pkg.InstallPath != "" {
		p = pkg.InstallPath
		if !filepath.IsAbs(p) {
			p = filepath.Join(filepath.Dir(m.Path), filepath.FromSlash(p))
		}
	} else {
		p = filepath.Join(m.VendorDir, filepath.FromSlash(pkg.Name))
	}
	p, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("install path for %s: %w", pkg.Name, err)
	}

	resolved, err := sandbox.Within(m.Root, p)
	if err != nil {
		return "", fmt.Errorf("install path for %s: %w", pkg.Name, err)
	}
	return resolved, nil
}

func decodeEntries(data []byte) ([]manifestEntry, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var entries []manifestEntry
	if data[0] == '[' {
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	}

	var wrapped struct {
		Packages []manifestEntry `json:"packages"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Packages, nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ValidationError holds multiple manifest validation failures.
type ValidationError struct {
	Path   string
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("manifest %s validation failed:\n  - %s", e.Path, strings.Join(e.Errors, "\n  - "))
}

func validate(entries []manifestEntry) []string {
	var errs []string
	for i, e := range entries {
		if e.Name == "" {
			errs = append(errs, fmt.Sprintf("package[%d]: 'name' is required", i))
		}
		if strings.Contains(e.Name, "..") {
			errs = append(errs, fmt.Sprintf("package '%s': name must not contain '..'", e.Name))
		}
	}
	return errs
}
