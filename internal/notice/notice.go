// Package notice reports per-patch progress to the user.
package notice

import (
	"sync"

	"github.com/bianoble/composer-patches/internal/patch"
	"github.com/bianoble/composer-patches/internal/repository"
)

// Event is what happened to a patch.
type Event int

const (
	Testing Event = iota
	Applied
	AlreadyApplied
	ApplyFailed
	Reverted
	RevertFailed
)

func (e Event) String() string {
	switch e {
	case Testing:
		return "testing"
	case Applied:
		return "applied"
	case AlreadyApplied:
		return "already-applied"
	case ApplyFailed:
		return "apply-failed"
	case Reverted:
		return "reverted"
	case RevertFailed:
		return "revert-failed"
	default:
		return "unknown"
	}
}

// Failed reports whether the event is a failure.
func (e Event) Failed() bool {
	return e == ApplyFailed || e == RevertFailed
}

// Notice is one progress report about a patch and the package it targets.
type Notice struct {
	Event   Event
	Patch   *patch.Patch
	Package repository.Package
	Err     error
}

// Notifier receives notices.
type Notifier interface {
	Notify(n Notice)
}

// Discard drops every notice.
type Discard struct{}

func (Discard) Notify(Notice) {}

// Recorder keeps every notice in order.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns a copy of the recorded notices.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Events returns the recorded event kinds in order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, 0, len(r.notices))
	for _, n := range r.notices {
		out = append(out, n.Event)
	}
	return out
}
