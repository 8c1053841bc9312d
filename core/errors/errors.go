package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies why a registry command was rejected. Callers use it to tell
// permanently invalid commands apart from rejections that depend on state.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindInvalidInput marks commands that can never succeed as submitted.
	KindInvalidInput
	// KindNotFound marks references to names, records or auctions that do not exist.
	KindNotFound
	// KindConflict marks commands the current state refuses: names that are
	// leased, reserved, locked or in auction, owner-only operations from other
	// callers, and paused modules.
	KindConflict
	// KindInsufficientFunds marks callers whose balance cannot cover the price.
	KindInsufficientFunds
	// KindInvalidState marks inconsistencies that should be unreachable.
	KindInvalidState
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindInvalidState:
		return "invalid_state"
	default:
		return "unknown"
	}
}

var (
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds}
	ErrInvalidState      = &Error{Kind: KindInvalidState}
)

// Error is a classified failure. Op names the engine operation that produced
// it, e.g. "names.buyRecord".
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

// New constructs a classified error.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap classifies an error produced outside the engines, keeping it
// reachable through errors.Is and errors.As.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf constructs a classified error with a formatted message.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches kind sentinels so errors.Is(err, ErrConflict) works for every
// conflict regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	if t.Op == "" && t.Msg == "" && t.Err == nil {
		return e.Kind == t.Kind
	}
	return e.Kind == t.Kind && e.Op == t.Op && e.Msg == t.Msg
}

// KindOf extracts the classification from err. Unclassified errors report
// KindUnknown.
func KindOf(err error) Kind {
	var classified *Error
	if stderrors.As(err, &classified) && classified != nil {
		return classified.Kind
	}
	return KindUnknown
}
