package kernel

import (
	"errors"
	"fmt"
)

// ErrResourceExhausted signals a resource panic rather than an ordinary
// process fault. A process that returns it (or panics with it, possibly
// wrapped) is recorded as failed and the remaining queue is aborted
// instead of isolated.
var ErrResourceExhausted = errors.New("resource exhausted")

// DuplicateNameError is returned when a process or protocol is registered
// under a name that already exists. Registration is append-only; the
// registry is left unchanged.
type DuplicateNameError struct {
	Kind string // "process" or "protocol"
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate %s name %q", e.Kind, e.Name)
}

// ProtocolCollisionError is returned when two protocols export a
// capability under the same name. Collisions are a packaging bug and are
// never resolved silently by precedence.
type ProtocolCollisionError struct {
	Capability string
	First      string // protocol that exported the name first
	Second     string // protocol that collided with it
}

func (e *ProtocolCollisionError) Error() string {
	return fmt.Sprintf("capability %q exported by both protocol %q and protocol %q",
		e.Capability, e.First, e.Second)
}

// ProtocolResolutionError is returned when a process requires a
// capability no registered protocol exports.
type ProtocolResolutionError struct {
	Capability string
}

func (e *ProtocolResolutionError) Error() string {
	return fmt.Sprintf("no registered protocol exports capability %q", e.Capability)
}
