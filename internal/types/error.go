package types

import "fmt"

// ErrorKind is the closed set of business-error classifications. Every
// validation or authorization branch in the service layer surfaces exactly
// one of these; anything else escaping the repository is a Fault.
type ErrorKind int

const (
	// Fault is an internal failure that must not leak classified detail.
	Fault ErrorKind = iota
	// InvalidRequest is malformed or out-of-range input; caller-fixable.
	InvalidRequest
	// Unauthorized means no caller identity could be resolved.
	Unauthorized
	// Forbidden means the caller is known but the action is not allowed,
	// or an invariant (tier cap, supporter lock) blocks it.
	Forbidden
	// NotFound means a referenced entity does not exist.
	NotFound
	// Conflict is a uniqueness violation, e.g. a duplicate petition title.
	Conflict
)

// String returns the wire label for the kind.
func (k ErrorKind) String() string {
	switch k {
	case InvalidRequest:
		return "invalid_request"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	default:
		return "fault"
	}
}

// DomainError is a classified business error.
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError builds a DomainError with a formatted message.
func NewError(kind ErrorKind, format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf classifies err; errors that are not DomainErrors classify as Fault.
func KindOf(err error) ErrorKind {
	if de, ok := err.(*DomainError); ok {
		return de.Kind
	}
	return Fault
}

// IsKind reports whether err is a DomainError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	de, ok := err.(*DomainError)
	return ok && de.Kind == kind
}
