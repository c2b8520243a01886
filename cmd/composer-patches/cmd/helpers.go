package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bianoble/composer-patches/internal/config"
	"github.com/bianoble/composer-patches/internal/logging"
	"github.com/bianoble/composer-patches/internal/notice"
	"github.com/bianoble/composer-patches/pkg/patches"
)

// loadConfig merges config files, environment and the global flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	overrides := map[string]any{}
	flags := cmd.Flags()
	if flags.Changed("manifest") {
		overrides["manifest"] = manifestPath
	}
	if flags.Changed("vendor-dir") {
		overrides["vendor_dir"] = vendorDir
	}
	if verbosity >= 3 {
		overrides["log.level"] = "debug"
	}

	cfg, _, err := config.Load(config.LoadOptions{
		File:      configPath,
		NoInherit: noInherit,
		Overrides: overrides,
	})
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the diagnostic logger. Diagnostics go to stderr so they
// never mix with notices.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
}

// consoleVerbosity maps the global flags onto a notice verbosity.
func consoleVerbosity() notice.Verbosity {
	switch {
	case quiet:
		return notice.Quiet
	case verbosity >= 2:
		return notice.VeryVerbose
	case verbosity == 1:
		return notice.Verbose
	default:
		return notice.Normal
	}
}

// newConsole creates the notice console on stdout.
func newConsole() *notice.Console {
	useColor := !noColor && os.Getenv("NO_COLOR") == "" && notice.IsTerminal(os.Stdout)
	return notice.NewConsole(os.Stdout, consoleVerbosity(), useColor)
}

// newClient wires a library client from the merged configuration.
func newClient(cfg *config.Config, notifier patches.Notifier, logger *zap.Logger) (*patches.Client, error) {
	retries := cfg.HTTP.Retries
	if retries == 0 {
		retries = -1
	}
	return patches.New(patches.Options{
		ManifestPath: cfg.Manifest,
		VendorDir:    cfg.VendorDir,
		Tool:         cfg.Patch.Tool,
		Binary:       cfg.Patch.Binary,
		Strip:        cfg.Patch.Strip,
		HTTPTimeout:  cfg.HTTP.Timeout,
		MaxSize:      cfg.HTTP.MaxSize,
		Retries:      retries,
		Notifier:     notifier,
		Logger:       logger,
	})
}

// session bundles what every patching command needs.
type session struct {
	console *notice.Console
	client  *patches.Client
	logger  *zap.Logger
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	console := newConsole()
	client, err := newClient(cfg, console, logger)
	if err != nil {
		return nil, err
	}
	return &session{console: console, client: client, logger: logger}, nil
}

func (s *session) close() {
	_ = s.logger.Sync()
}

// report prints the outcome of a pass and turns source errors into the
// command's error.
func report(verb string, result *patches.Result) error {
	for _, e := range result.Errors {
		errorf("%s: %s", e.Source, e.Err)
	}

	switch verb {
	case "restore":
		detail("Restore complete: %d reverted, %d failed, %d errors.",
			len(result.Reverted), len(result.Failed), len(result.Errors))
	default:
		detail("Apply complete: %d applied, %d already applied, %d failed, %d errors.",
			len(result.Applied), len(result.Skipped), len(result.Failed), len(result.Errors))
	}

	if len(result.Errors) > 0 {
		return fmt.Errorf("%d source(s) failed", len(result.Errors))
	}
	return nil
}

// info prints a line unless quiet mode is active.
func info(format string, args ...any) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// detail prints a line only in verbose mode.
func detail(format string, args ...any) {
	if verbosity > 0 && !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// errorf prints an error message to stderr.
func errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}

// humanSize formats a byte count.
func humanSize(bytes int64) string {
	if bytes == 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB"}
	size := float64(bytes)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d B", bytes)
	}
	return fmt.Sprintf("%.1f %s", size, units[i])
}
