package patchset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Descriptor is one declared, unresolved patch reference.
// A descriptor with Patches is a group whose Constraint applies to every child.
type Descriptor struct {
	URL        string  `json:"url,omitempty" yaml:"url,omitempty"`
	Title      string  `json:"title,omitempty" yaml:"title,omitempty"`
	Constraint string  `json:"constraint,omitempty" yaml:"constraint,omitempty"`
	Patches    Entries `json:"patches,omitempty" yaml:"patches,omitempty"`
}

// Entries is an ordered list of descriptors. In JSON it may be written as an
// array of URL strings and objects, or as a single URL string.
type Entries []Descriptor

func (e *Entries) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*e = nil
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = Entries{{URL: s}}
		return nil
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		out := make(Entries, 0, len(raw))
		for i, item := range raw {
			d, err := decodeDescriptor(item)
			if err != nil {
				return fmt.Errorf("entry %d: %w", i, err)
			}
			out = append(out, d)
		}
		*e = out
		return nil
	case '{':
		d, err := decodeDescriptor(data)
		if err != nil {
			return err
		}
		*e = Entries{d}
		return nil
	default:
		return fmt.Errorf("patch entries must be a URL string, an object or an array, got %s", truncate(data))
	}
}

func decodeDescriptor(data []byte) (Descriptor, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return Descriptor{}, err
		}
		return Descriptor{URL: s}, nil
	}

	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return Descriptor{}, err
	}
	if d.URL == "" && len(d.Patches) == 0 {
		return Descriptor{}, fmt.Errorf("descriptor needs a 'url' or nested 'patches'")
	}
	return d, nil
}

// Config is a package's declared patch configuration: either an inline map of
// target package name (or glob) to entries, or the URL of a remote document
// holding that map.
type Config struct {
	Source  string
	Targets map[string]Entries
}

// Parse decodes the raw value of a package's extra.patches field.
func Parse(raw json.RawMessage) (Config, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Config{}, nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Config{}, fmt.Errorf("parsing patches: %w", err)
		}
		if s == "" {
			return Config{}, fmt.Errorf("parsing patches: empty document URL")
		}
		return Config{Source: s}, nil
	case '{':
		var targets map[string]Entries
		if err := json.Unmarshal(raw, &targets); err != nil {
			return Config{}, fmt.Errorf("parsing patches: %w", err)
		}
		return Config{Targets: targets}, nil
	default:
		return Config{}, fmt.Errorf("parsing patches: expected an object or a document URL, got %s", truncate(raw))
	}
}

// Empty reports whether the configuration declares nothing.
func (c Config) Empty() bool {
	return c.Source == "" && len(c.Targets) == 0
}

// Keys returns the declared target names and globs in lexical order.
func (c Config) Keys() []string {
	keys := make([]string, 0, len(c.Targets))
	for k := range c.Targets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(data []byte) string {
	if len(data) > 40 {
		return string(data[:40]) + "..."
	}
	return string(data)
}
