package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocol is wrapped by every codec error.
	ErrProtocol = errors.New("protocol: invalid frame")

	ErrMalformedFrame = fmt.Errorf("%w: malformed frame", ErrProtocol)
	ErrUnknownKind    = fmt.Errorf("%w: unknown kind", ErrProtocol)
	ErrInvalidPayload = fmt.Errorf("%w: invalid payload", ErrProtocol)
	ErrUnencodable    = fmt.Errorf("%w: unencodable value", ErrProtocol)
)

// Error is returned by Decode and Encode. Kind is empty when the frame had
// no recognisable kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Kind == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ProtocolError marks the error as a protocol error for outcome accounting.
func (e *Error) ProtocolError() bool { return true }

func newError(kind Kind, sentinel error, format string, args ...any) *Error {
	return &Error{
		Kind: kind,
		Err:  fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...)),
	}
}
