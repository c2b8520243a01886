package engine

import (
	"fmt"
	"strings"

	"github.com/bianoble/composer-patches/internal/repository"
)

// OperationKind is the host operation that triggered a restore.
type OperationKind int

const (
	OperationUnexpected OperationKind = iota
	OperationUpdate
	OperationUninstall
)

func (k OperationKind) String() string {
	switch k {
	case OperationUpdate:
		return "update"
	case OperationUninstall:
		return "uninstall"
	default:
		return "unexpected"
	}
}

// ParseOperationKind maps a host operation name to its kind.
// Unknown names map to OperationUnexpected.
func ParseOperationKind(s string) OperationKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "update":
		return OperationUpdate
	case "uninstall", "remove":
		return OperationUninstall
	default:
		return OperationUnexpected
	}
}

// Operation describes a pending package operation. For an update, Package is
// the currently installed (initial) package and Target the incoming one.
// Patches are always reverted from Package; Target is only reported.
type Operation struct {
	Kind    OperationKind
	Name    string // raw operation name, kept for error messages
	Package repository.Package
	Target  repository.Package
}

// UpdateOperation builds an update from initial to target.
func UpdateOperation(initial, target repository.Package) Operation {
	return Operation{Kind: OperationUpdate, Name: "update", Package: initial, Target: target}
}

// UninstallOperation builds an uninstall of pkg.
func UninstallOperation(pkg repository.Package) Operation {
	return Operation{Kind: OperationUninstall, Name: "uninstall", Package: pkg}
}

// InitialPackage returns the package whose patches must be reverted.
func (o Operation) InitialPackage() (repository.Package, error) {
	switch o.Kind {
	case OperationUpdate, OperationUninstall:
		return o.Package, nil
	default:
		return repository.Package{}, &UnexpectedOperationError{Operation: o.Name}
	}
}

// UnexpectedOperationError is returned when a restore is triggered by an
// operation that is neither an update nor an uninstall.
type UnexpectedOperationError struct {
	Operation string
}

func (e *UnexpectedOperationError) Error() string {
	name := e.Operation
	if name == "" {
		name = "(unnamed)"
	}
	return fmt.Sprintf("unexpected operation %s: only update and uninstall can trigger a restore", name)
}
