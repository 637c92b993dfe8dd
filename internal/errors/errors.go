package errors

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/julianstephens/habitloop/internal/logger"
)

// Kind classifies a failure so transports can render a stable signal.
type Kind string

const (
	KindUnauthenticated    Kind = "unauthenticated"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindUpstreamExtraction Kind = "upstream_extraction"
	KindValidation         Kind = "validation"
	KindInternal           Kind = "internal"
)

var (
	ErrUnauthenticated    = stderrors.New("authentication required")
	ErrNotFound           = stderrors.New("habit not found")
	ErrConflict           = stderrors.New("habit already completed in this cycle")
	ErrUpstreamExtraction = stderrors.New("failed to parse habit text")
	ErrValidation         = stderrors.New("invalid input")
)

var sentinels = map[Kind]error{
	KindUnauthenticated:    ErrUnauthenticated,
	KindNotFound:           ErrNotFound,
	KindConflict:           ErrConflict,
	KindUpstreamExtraction: ErrUpstreamExtraction,
	KindValidation:         ErrValidation,
}

// Error carries the kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

// E builds an *Error. msg may be empty, in which case the kind's sentinel
// message is used.
func E(kind Kind, op string, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	msg := e.Message()
	if e.Err != nil && e.Err.Error() != msg {
		msg += ": " + e.Err.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	return msg
}

// Message is the caller-facing text, free of wrapped internals.
func (e *Error) Message() string {
	if e.Msg != "" {
		return e.Msg
	}
	if s, ok := sentinels[e.Kind]; ok {
		return s.Error()
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the kind's sentinel as well as the wrapped chain.
func (e *Error) Is(target error) bool {
	if s, ok := sentinels[e.Kind]; ok && s == target {
		return true
	}
	if t, ok := target.(*Error); ok {
		return t.Kind == e.Kind
	}
	return false
}

// KindOf reports the kind of err, or KindInternal if it carries none.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	for kind, s := range sentinels {
		if stderrors.Is(err, s) {
			return kind
		}
	}
	return KindInternal
}

// MessageOf returns the caller-facing message for err.
func MessageOf(err error) string {
	var e *Error
	if stderrors.As(err, &e) && (e.Kind != KindInternal || e.Msg != "") {
		return e.Message()
	}
	if KindOf(err) == KindInternal {
		return "internal error"
	}
	return err.Error()
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}
