package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes environment overrides, e.g. COMPOSER_PATCHES_PATCH_TOOL.
const EnvPrefix = "COMPOSER_PATCHES"

// LoadOptions controls where settings come from.
type LoadOptions struct {
	// File is an explicit config file. When set, layer discovery is skipped
	// and the file must exist.
	File string

	Discover DiscoverOptions

	// NoInherit skips the system and user layers.
	NoInherit bool

	// Overrides are applied last, keyed like the config file ("patch.tool").
	Overrides map[string]any
}

// Load merges defaults, config layers, environment variables and overrides,
// then validates the result. The returned layers report which files were read.
func Load(opts LoadOptions) (*Config, []ConfigLayerInfo, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, DefaultConfig())

	var layers []ConfigLayerInfo
	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return nil, nil, fmt.Errorf("reading config %s: %w", opts.File, err)
		}
		if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
			return nil, nil, fmt.Errorf("parsing config %s: %w", opts.File, err)
		}
		layers = append(layers, ConfigLayerInfo{Path: opts.File, Level: LevelProject, Loaded: true})
	} else {
		noInherit := opts.NoInherit || EnvNoInherit()
		for _, layer := range DiscoverPaths(opts.Discover) {
			if noInherit && layer.Level != LevelProject {
				continue
			}
			layer.Loaded, layer.Err = mergeLayer(v, layer.Path)
			if layer.Err != nil {
				return nil, nil, layer.Err
			}
			layers = append(layers, layer)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, val := range opts.Overrides {
		v.Set(key, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("decoding config: %w", err)
	}

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, nil, &ValidationError{Errors: errs}
	}

	return &cfg, layers, nil
}

// mergeLayer merges one optional config file. A missing file is not an error.
func mergeLayer(v *viper.Viper, path string) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
		return false, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return true, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("manifest", d.Manifest)
	v.SetDefault("vendor_dir", d.VendorDir)
	v.SetDefault("patch.tool", d.Patch.Tool)
	v.SetDefault("patch.binary", d.Patch.Binary)
	v.SetDefault("patch.strip", d.Patch.Strip)
	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("http.max_size", d.HTTP.MaxSize)
	v.SetDefault("http.retries", d.HTTP.Retries)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks a Config for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(cfg *Config) []string {
	var errs []string

	if strings.TrimSpace(cfg.Manifest) == "" {
		errs = append(errs, "'manifest' is required")
	}

	switch cfg.Patch.Tool {
	case "patch", "git":
	default:
		errs = append(errs, fmt.Sprintf("patch.tool: unsupported tool '%s' (must be patch or git)", cfg.Patch.Tool))
	}
	if cfg.Patch.Strip < 0 {
		errs = append(errs, fmt.Sprintf("patch.strip: must not be negative, got %d", cfg.Patch.Strip))
	}

	if cfg.HTTP.Timeout <= 0 {
		errs = append(errs, fmt.Sprintf("http.timeout: must be positive, got %s", cfg.HTTP.Timeout))
	}
	if cfg.HTTP.MaxSize <= 0 {
		errs = append(errs, fmt.Sprintf("http.max_size: must be positive, got %d", cfg.HTTP.MaxSize))
	}
	if cfg.HTTP.Retries < 0 {
		errs = append(errs, fmt.Sprintf("http.retries: must not be negative, got %d", cfg.HTTP.Retries))
	}

	if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Sprintf("log.level: unknown level '%s'", cfg.Log.Level))
	}
	switch cfg.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format: unsupported format '%s' (must be console or json)", cfg.Log.Format))
	}

	return errs
}
