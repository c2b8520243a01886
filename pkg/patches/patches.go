// Package patches provides the public Go library API for composer-patches.
//
// composer-patches applies patch files declared by installed packages to
// other installed packages, and reverts them before those packages are
// removed or replaced.
//
// # Basic Usage
//
//	client, err := patches.New(patches.Options{
//	    ManifestPath: "vendor/composer/installed.json",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// After an install or update
//	result, err := client.Apply(ctx)
//
//	// Before acme/foo is removed
//	result, err = client.Restore(ctx, patches.UninstallOperation(pkg))
//
// One Client corresponds to one host command invocation: each patch pair is
// applied at most once and reverted at most once over the Client's lifetime.
package patches

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/bianoble/composer-patches/internal/cache"
	"github.com/bianoble/composer-patches/internal/engine"
	"github.com/bianoble/composer-patches/internal/hook"
	"github.com/bianoble/composer-patches/internal/logging"
	"github.com/bianoble/composer-patches/internal/notice"
	"github.com/bianoble/composer-patches/internal/patch"
	"github.com/bianoble/composer-patches/internal/repository"
	"github.com/bianoble/composer-patches/internal/transport"
)

// Options configures a composer-patches client.
type Options struct {
	// ManifestPath is the installed-packages file.
	// Default: "vendor/composer/installed.json".
	ManifestPath string

	// VendorDir holds packages without a recorded install path. Default: "vendor".
	VendorDir string

	// RootDir bounds every install path. Default: the parent of VendorDir.
	RootDir string

	// Tool selects the patch tool: "patch" (default) or "git".
	Tool   string
	Binary string
	Strip  int

	HTTPTimeout time.Duration // per attempt; default 30s
	MaxSize     int64         // per download; default 10 MiB
	Retries     int           // transient HTTP failures; negative disables retries

	// Transport replaces the built-in HTTP and file transports.
	Transport Transport

	// Applier replaces the patch tool.
	Applier Applier

	// Notifier receives one notice per patch attempt. Default: discard.
	Notifier Notifier

	Logger *zap.Logger
}

// Client is the main entry point for the composer-patches library.
type Client struct {
	manifest   *repository.Manifest
	cache      *cache.Cache
	engine     *engine.Engine
	dispatcher *hook.Dispatcher
	logger     *zap.Logger
}

// New creates a Client and reads the manifest.
func New(opts Options) (*Client, error) {
	if opts.ManifestPath == "" {
		opts.ManifestPath = filepath.Join("vendor", "composer", "installed.json")
	}
	if opts.VendorDir == "" {
		opts.VendorDir = "vendor"
	}
	if opts.HTTPTimeout == 0 {
		opts.HTTPTimeout = 30 * time.Second
	}
	if opts.MaxSize == 0 {
		opts.MaxSize = 10 << 20
	}
	logger := logging.OrNop(opts.Logger)

	vendorDir, err := filepath.Abs(opts.VendorDir)
	if err != nil {
		return nil, fmt.Errorf("resolving vendor dir: %w", err)
	}
	root := opts.RootDir
	if root != "" {
		if root, err = filepath.Abs(root); err != nil {
			return nil, fmt.Errorf("resolving root dir: %w", err)
		}
	}

	m, err := repository.LoadManifest(opts.ManifestPath, vendorDir, root)
	if err != nil {
		return nil, err
	}

	t := opts.Transport
	if t == nil {
		t = newTransport(opts, logger)
	}
	c := cache.New(t, logger)

	applier := opts.Applier
	if applier == nil {
		applier = &patch.CommandApplier{Tool: opts.Tool, Binary: opts.Binary, Strip: opts.Strip}
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = notice.Discard{}
	}

	eng := &engine.Engine{
		Repository: m,
		Paths:      m,
		Fetcher:    c,
		Applier:    applier,
		Notifier:   notifier,
		Logger:     logger,
	}

	return &Client{
		manifest:   m,
		cache:      c,
		engine:     eng,
		dispatcher: hook.NewDispatcher(eng, logger),
		logger:     logger,
	}, nil
}

func newTransport(opts Options, logger *zap.Logger) transport.Transport {
	retry := transport.DefaultRetryConfig()
	if opts.Retries < 0 {
		retry.MaxRetries = 0
	} else if opts.Retries > 0 {
		retry.MaxRetries = opts.Retries
	}
	return &transport.Mux{
		HTTP: &transport.HTTPTransport{
			Client:  transport.DefaultHTTPClient{},
			MaxSize: opts.MaxSize,
			Timeout: opts.HTTPTimeout,
			Retry:   retry,
			Logger:  logger,
		},
		File: &transport.FileTransport{MaxSize: opts.MaxSize},
	}
}

// Packages returns the installed packages.
func (c *Client) Packages() []Package {
	return c.manifest.Packages()
}

// Package returns the installed package called name.
func (c *Client) Package(name string) (Package, bool) {
	return repository.Find(c.manifest, name)
}

// Apply applies every outstanding patch to every installed package.
func (c *Client) Apply(ctx context.Context) (*Result, error) {
	res, err := c.dispatcher.Apply(ctx)
	c.logStats()
	return res, err
}

// Restore reverts the patches of the package op removes or replaces.
func (c *Client) Restore(ctx context.Context, op Operation) (*Result, error) {
	res, err := c.dispatcher.Restore(ctx, op)
	c.logStats()
	return res, err
}

// Dispatch handles a host event by name.
func (c *Client) Dispatch(ctx context.Context, ev Event) (*Result, error) {
	res, err := c.dispatcher.Dispatch(ctx, ev)
	c.logStats()
	return res, err
}

// Plan lists the patches an apply pass would consider, without applying
// anything. When only is non-empty the plan is limited to that package.
func (c *Client) Plan(ctx context.Context, only string) ([]Work, []SourceError) {
	return c.engine.Plan(ctx, only)
}

// UpdateOperation builds an update of initial to target.
func UpdateOperation(initial, target Package) Operation {
	return engine.UpdateOperation(initial, target)
}

// UninstallOperation builds an uninstall of pkg.
func UninstallOperation(pkg Package) Operation {
	return engine.UninstallOperation(pkg)
}

// NewOperation builds the operation named name ("update", "uninstall" or
// "remove") for pkg. Any other name yields an operation that Restore rejects
// with *UnexpectedOperationError.
func NewOperation(name string, pkg, target Package) Operation {
	switch engine.ParseOperationKind(name) {
	case engine.OperationUpdate:
		return engine.UpdateOperation(pkg, target)
	case engine.OperationUninstall:
		return engine.UninstallOperation(pkg)
	default:
		return engine.Operation{Kind: engine.OperationUnexpected, Name: name, Package: pkg}
	}
}

// ParseOperationKind maps "update", "uninstall" or "remove" to an OperationKind.
func ParseOperationKind(s string) OperationKind {
	return engine.ParseOperationKind(s)
}

// Events returns the host event names a Client can dispatch.
func Events() []string {
	return hook.Events()
}

func (c *Client) logStats() {
	c.logger.Debug("content cache",
		zap.Int("entries", c.cache.Len()),
		zap.Int("fetches", c.cache.Fetches()),
	)
}
