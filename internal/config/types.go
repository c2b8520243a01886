package config

import "time"

// Config holds the settings read from composer-patches.yaml, the
// environment and command-line flags.
type Config struct {
	Manifest  string `mapstructure:"manifest"`
	VendorDir string `mapstructure:"vendor_dir"`
	Patch     Patch  `mapstructure:"patch"`
	HTTP      HTTP   `mapstructure:"http"`
	Log       Log    `mapstructure:"log"`
}

// Patch configures the external patch tool.
type Patch struct {
	Tool   string `mapstructure:"tool"`   // "patch" or "git"
	Binary string `mapstructure:"binary"` // overrides the tool looked up on PATH
	Strip  int    `mapstructure:"strip"`
}

// HTTP configures remote fetches.
type HTTP struct {
	Timeout time.Duration `mapstructure:"timeout"`
	MaxSize int64         `mapstructure:"max_size"`
	Retries int           `mapstructure:"retries"`
}

// Log configures diagnostic logging.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		Manifest:  "vendor/composer/installed.json",
		VendorDir: "vendor",
		Patch: Patch{
			Tool:  "patch",
			Strip: 1,
		},
		HTTP: HTTP{
			Timeout: 30 * time.Second,
			MaxSize: 10 << 20,
			Retries: 2,
		},
		Log: Log{
			Level:  "warn",
			Format: "console",
		},
	}
}
