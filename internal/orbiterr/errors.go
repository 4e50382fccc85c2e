// Package orbiterr defines the typed error kinds shared across the
// propagator, solver, planner, simulation and server packages.
package orbiterr

import "fmt"

// Kind identifies a category of failure, used both for internal control
// flow (e.g. a planner cell becoming a hole) and for the {error, message}
// payload returned at the HTTP boundary.
type Kind string

const (
	UnknownBody             Kind = "UnknownBody"
	InvalidSpeed            Kind = "InvalidSpeed"
	InvalidTimeOfFlight     Kind = "InvalidTimeOfFlight"
	DegenerateGeometry      Kind = "DegenerateGeometry"
	ConvergenceFailure      Kind = "ConvergenceFailure"
	UnsupportedRevolutions  Kind = "UnsupportedRevolutions"
	NoFeasibleTransfers     Kind = "NoFeasibleTransfers"
	PlannerDeadlineExceeded Kind = "PlannerDeadlineExceeded"
	QueueOverflow           Kind = "QueueOverflow"
	ProtocolError           Kind = "ProtocolError"
)

// Error is a typed, structured failure. It implements error and carries a
// Kind so callers can branch on failure category without string matching.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New builds an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error.
// Unrecognized errors report an empty Kind.
func KindOf(err error) Kind {
	var e *Error
	if asError(err, &e) {
		return e.Kind
	}
	return ""
}

// asError unwraps err looking for an *Error, mirroring errors.As without
// importing it twice in every call site.
func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
