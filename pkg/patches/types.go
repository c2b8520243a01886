package patches

import (
	"github.com/bianoble/composer-patches/internal/engine"
	"github.com/bianoble/composer-patches/internal/hook"
	"github.com/bianoble/composer-patches/internal/notice"
	"github.com/bianoble/composer-patches/internal/patch"
	"github.com/bianoble/composer-patches/internal/repository"
	"github.com/bianoble/composer-patches/internal/transport"
)

// Type aliases re-export engine types as the public API.
// Users import "github.com/bianoble/composer-patches/pkg/patches" and use
// patches.Result, patches.Operation, etc.

type Result = engine.Result
type PatchAction = engine.PatchAction
type SourceError = engine.SourceError
type Work = engine.Work
type Operation = engine.Operation
type OperationKind = engine.OperationKind
type UnexpectedOperationError = engine.UnexpectedOperationError

type Event = hook.Event
type UnknownEventError = hook.UnknownEventError

type Package = repository.Package
type Patch = patch.Patch
type Applier = patch.Applier
type Transport = transport.Transport

type Notice = notice.Notice
type Notifier = notice.Notifier

const (
	OperationUpdate    = engine.OperationUpdate
	OperationUninstall = engine.OperationUninstall
)

// Patch tools.
const (
	ToolPatch = patch.ToolPatch
	ToolGit   = patch.ToolGit
)
