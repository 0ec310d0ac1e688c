package router

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind categorizes a failed Query.
type ErrorKind string

const (
	KindEngineNotLoaded ErrorKind = "engine_not_loaded"
	KindUnknownEngine   ErrorKind = "unknown_engine"
	KindEngineConflict  ErrorKind = "engine_conflict"
	KindMalformedResult ErrorKind = "malformed_result"
	KindSyntax          ErrorKind = "syntax"
	KindExecution       ErrorKind = "execution"
)

// Sentinels matched by errors.Is against a *QueryError of the same kind.
var (
	ErrEngineNotLoaded = errors.New("engine not loaded")
	ErrUnknownEngine   = errors.New("unknown engine")
	ErrEngineConflict  = errors.New("engine conflict")
	ErrMalformedResult = errors.New("malformed result")
	ErrSyntax          = errors.New("syntax error")
	ErrExecution       = errors.New("execution error")
)

var sentinels = map[ErrorKind]error{
	KindEngineNotLoaded: ErrEngineNotLoaded,
	KindUnknownEngine:   ErrUnknownEngine,
	KindEngineConflict:  ErrEngineConflict,
	KindMalformedResult: ErrMalformedResult,
	KindSyntax:          ErrSyntax,
	KindExecution:       ErrExecution,
}

// QueryError is the single error a failed batch reports.
type QueryError struct {
	Kind ErrorKind
	// Position is the 1-based statement index; 0 when no statement was
	// involved (an empty registry).
	Position  int
	Statement string
	Engine    string
	Table     string
	Message   string
	Cause     error
}

func (e *QueryError) Error() string {
	var parts []string
	if e.Position > 0 {
		parts = append(parts, fmt.Sprintf("statement %d", e.Position))
	}
	parts = append(parts, string(e.Kind))

	detail := e.Message
	if e.Cause != nil {
		if detail == "" {
			detail = e.Cause.Error()
		} else {
			detail += ": " + e.Cause.Error()
		}
	}
	if detail != "" {
		parts = append(parts, detail)
	}
	return strings.Join(parts, ": ")
}

// Unwrap exposes the engine error so callers can match engine sentinels.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// Is matches the package sentinel for the error's kind.
func (e *QueryError) Is(target error) bool {
	sentinel, ok := sentinels[e.Kind]
	return ok && sentinel == target
}

// WithStatement records where in the batch the error happened.
func (e *QueryError) WithStatement(position int, text string) *QueryError {
	e.Position = position
	e.Statement = text
	return e
}

// WithEngine records the diagnostic name of the engine involved.
func (e *QueryError) WithEngine(name string) *QueryError {
	e.Engine = name
	return e
}

// WithTable records the table involved.
func (e *QueryError) WithTable(table string) *QueryError {
	e.Table = table
	return e
}

func newQueryError(kind ErrorKind, message string, cause error) *QueryError {
	return &QueryError{Kind: kind, Message: message, Cause: cause}
}

func engineNotLoaded(message string) *QueryError {
	return newQueryError(KindEngineNotLoaded, message, nil)
}

func unknownEngine(name string) *QueryError {
	return newQueryError(KindUnknownEngine, fmt.Sprintf("engine %q is not registered", name), nil).WithEngine(name)
}

func engineConflict(table, owner string) *QueryError {
	return newQueryError(KindEngineConflict, fmt.Sprintf("table %q is owned by engine %q", table, owner), nil).WithTable(table)
}

func malformedResult(format string, args ...any) *QueryError {
	return newQueryError(KindMalformedResult, fmt.Sprintf(format, args...), nil)
}

// asQueryError returns the *QueryError in err's chain, or wraps err as a
// new error of the fallback kind.
func asQueryError(err error, fallback ErrorKind) *QueryError {
	var queryErr *QueryError
	if errors.As(err, &queryErr) {
		return queryErr
	}
	return newQueryError(fallback, "", err)
}

// KindOf returns the kind of a *QueryError anywhere in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var queryErr *QueryError
	if errors.As(err, &queryErr) {
		return queryErr.Kind, true
	}
	return "", false
}
