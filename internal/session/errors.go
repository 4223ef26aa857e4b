package session

import (
	"errors"
	"fmt"
)

var (
	// ErrDomain is wrapped by every error caused by a command that is well
	// formed but cannot be applied to the current scene.
	ErrDomain = errors.New("session: domain error")

	ErrUnknownRectangle    = fmt.Errorf("%w: unknown rectangle", ErrDomain)
	ErrInvalidRectangle    = fmt.Errorf("%w: invalid rectangle", ErrDomain)
	ErrInvalidMove         = fmt.Errorf("%w: move leaves finite range", ErrDomain)
	ErrDuplicateConnection = fmt.Errorf("%w: duplicate connection", ErrDomain)
	ErrNilSink             = fmt.Errorf("%w: join without sink", ErrDomain)
	ErrUnsupportedCommand  = fmt.Errorf("%w: unsupported command", ErrDomain)

	ErrActorStopped = errors.New("session: actor stopped")
	ErrActorRunning = errors.New("session: actor already running")
)

// Outcome is the result class of a processed command.
type Outcome string

const (
	OutcomeOK            Outcome = "ok"
	OutcomeProtocolError Outcome = "protocol_error"
	OutcomeDomainError   Outcome = "domain_error"
)

// protocolError is implemented by codec errors so this package can classify
// them without importing the codec.
type protocolError interface {
	ProtocolError() bool
}

// OutcomeOf classifies err. Unrecognised errors count as domain errors: they
// came out of command handling and never stop the actor.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}
	var pe protocolError
	if errors.As(err, &pe) && pe.ProtocolError() {
		return OutcomeProtocolError
	}
	return OutcomeDomainError
}
