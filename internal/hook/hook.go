// Package hook maps host package manager events onto engine passes.
package hook

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/bianoble/composer-patches/internal/engine"
	"github.com/bianoble/composer-patches/internal/logging"
	"github.com/bianoble/composer-patches/internal/repository"
)

// Host events the plugin subscribes to.
const (
	PrePackageUninstall = "pre-package-uninstall"
	PrePackageUpdate    = "pre-package-update"
	PostInstallCmd      = "post-install-cmd"
	PostUpdateCmd       = "post-update-cmd"
)

// Handler names.
const (
	HandlerApply   = "apply"
	HandlerRestore = "restore"
)

var subscriptions = map[string]string{
	PrePackageUninstall: HandlerRestore,
	PrePackageUpdate:    HandlerRestore,
	PostInstallCmd:      HandlerApply,
	PostUpdateCmd:       HandlerApply,
}

// Subscriptions returns the handler name for every subscribed event.
func Subscriptions() map[string]string {
	out := make(map[string]string, len(subscriptions))
	for k, v := range subscriptions {
		out[k] = v
	}
	return out
}

// Events returns the subscribed event names, sorted.
func Events() []string {
	names := make([]string, 0, len(subscriptions))
	for k := range subscriptions {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Event is one host event. Package events name the package being removed
// or replaced; for an update, TargetVersion is the incoming version.
type Event struct {
	Name          string
	Package       string
	TargetVersion string
}

// UnknownEventError is returned for an event with no subscription.
type UnknownEventError struct {
	Name string
}

func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("unknown event %q", e.Name)
}

// Dispatcher routes events for one host command invocation. Apply and
// restore passes keep separate histories so a package restored before an
// update is patched again afterwards.
type Dispatcher struct {
	Engine *engine.Engine
	Logger *zap.Logger

	applied  *engine.History
	restored *engine.History
}

// NewDispatcher creates a Dispatcher with fresh histories.
func NewDispatcher(e *engine.Engine, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		Engine:   e,
		Logger:   logging.OrNop(logger),
		applied:  engine.NewHistory(),
		restored: engine.NewHistory(),
	}
}

// Dispatch runs the handler subscribed to ev.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) (*engine.Result, error) {
	handler, ok := subscriptions[ev.Name]
	if !ok {
		return nil, &UnknownEventError{Name: ev.Name}
	}
	logging.OrNop(d.Logger).Debug("dispatching event",
		zap.String("event", ev.Name),
		zap.String(logging.KeyPackage, ev.Package),
	)

	if handler == HandlerApply {
		return d.Apply(ctx)
	}

	op, err := d.operation(ev)
	if err != nil {
		return nil, err
	}
	return d.Restore(ctx, op)
}

// Apply runs an apply pass against the invocation's apply history.
func (d *Dispatcher) Apply(ctx context.Context) (*engine.Result, error) {
	return d.Engine.Apply(ctx, d.applied)
}

// Restore runs a restore for op against the invocation's restore history.
func (d *Dispatcher) Restore(ctx context.Context, op engine.Operation) (*engine.Result, error) {
	return d.Engine.Restore(ctx, op, d.restored)
}

func (d *Dispatcher) operation(ev Event) (engine.Operation, error) {
	if ev.Package == "" {
		return engine.Operation{}, fmt.Errorf("event %s requires a package name", ev.Name)
	}
	pkg, ok := repository.Find(d.Engine.Repository, ev.Package)
	if !ok {
		return engine.Operation{}, fmt.Errorf("package %s is not installed", ev.Package)
	}

	switch ev.Name {
	case PrePackageUpdate:
		target := pkg
		target.Version = ev.TargetVersion
		target.PrettyVersion = ev.TargetVersion
		return engine.UpdateOperation(pkg, target), nil
	default:
		return engine.UninstallOperation(pkg), nil
	}
}
