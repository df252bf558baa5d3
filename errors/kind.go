package errors

import (
	"fmt"

	crdb "github.com/cockroachdb/errors"
)

// Kind classifies a failure. The set is closed: every error leaving a store
// operation maps to exactly one Kind.
type Kind int

const (
	// Unknown is reported for errors that carry no kind mark (programming
	// errors, unclassified driver failures).
	Unknown Kind = iota
	// NotFound: the target object or term does not exist.
	NotFound
	// AlreadyExists: create was requested on a URI that already has quads.
	AlreadyExists
	// InvalidReference: a parent or member URI does not resolve to an object
	// of the expected kind, or belongs to another entity.
	InvalidReference
	// InvalidStatement: a statement or term is malformed. Nothing was written.
	InvalidStatement
	// TransactionFailed: apply failed part-way and the rollback completed.
	TransactionFailed
	// Fatal: apply failed and the rollback could not complete. Requires
	// operator intervention.
	Fatal
	// Unavailable: the backing store could not be reached.
	Unavailable
)

var kindNames = map[Kind]string{
	Unknown:           "Unknown",
	NotFound:          "NotFound",
	AlreadyExists:     "AlreadyExists",
	InvalidReference:  "InvalidReference",
	InvalidStatement:  "InvalidStatement",
	TransactionFailed: "TransactionFailed",
	Fatal:             "Fatal",
	Unavailable:       "Unavailable",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText renders the kind name, so rejections serialize as strings.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Kind sentinels. Use these with Is() for type-safe error checking.
// Errors built by the constructors below are marked with them, so the mark
// survives Wrap.
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrAlreadyExists indicates a create collided with existing data
	ErrAlreadyExists = New("already exists")

	// ErrInvalidReference indicates a reference to a missing or foreign object
	ErrInvalidReference = New("invalid reference")

	// ErrInvalidStatement indicates a malformed statement or term
	ErrInvalidStatement = New("invalid statement")

	// ErrTransactionFailed indicates apply failed and was rolled back
	ErrTransactionFailed = New("transaction failed")

	// ErrFatal indicates a failed rollback
	ErrFatal = New("fatal")

	// ErrUnavailable indicates the backing store is unreachable
	ErrUnavailable = New("unavailable")
)

var sentinels = []struct {
	kind Kind
	err  error
}{
	// Fatal and TransactionFailed first: a fatal error wraps the failed apply
	// and may carry inner marks.
	{Fatal, ErrFatal},
	{TransactionFailed, ErrTransactionFailed},
	{NotFound, ErrNotFound},
	{AlreadyExists, ErrAlreadyExists},
	{InvalidReference, ErrInvalidReference},
	{InvalidStatement, ErrInvalidStatement},
	{Unavailable, ErrUnavailable},
}

func sentinel(k Kind) error {
	for _, s := range sentinels {
		if s.kind == k {
			return s.err
		}
	}
	return nil
}

// WithKind marks err with kind k. A nil err stays nil.
func WithKind(err error, k Kind) error {
	if err == nil {
		return nil
	}
	s := sentinel(k)
	if s == nil {
		return err
	}
	return Mark(err, s)
}

// KindOf returns the kind err is marked with, or Unknown.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	for _, s := range sentinels {
		if Is(err, s.err) {
			return s.kind
		}
	}
	return Unknown
}

// NotFoundf creates a NotFound error with a formatted message
func NotFoundf(format string, args ...interface{}) error {
	return Mark(crdb.NewWithDepthf(1, format, args...), ErrNotFound)
}

// AlreadyExistsf creates an AlreadyExists error with a formatted message
func AlreadyExistsf(format string, args ...interface{}) error {
	return Mark(crdb.NewWithDepthf(1, format, args...), ErrAlreadyExists)
}

// InvalidReferencef creates an InvalidReference error with a formatted message
func InvalidReferencef(format string, args ...interface{}) error {
	return Mark(crdb.NewWithDepthf(1, format, args...), ErrInvalidReference)
}

// InvalidStatementf creates an InvalidStatement error with a formatted message
func InvalidStatementf(format string, args ...interface{}) error {
	return Mark(crdb.NewWithDepthf(1, format, args...), ErrInvalidStatement)
}

// TransactionFailedWrap marks a failed apply whose rollback completed.
func TransactionFailedWrap(err error, msg string) error {
	return Mark(Wrap(err, msg), ErrTransactionFailed)
}

// FatalWrap marks a failed apply whose rollback did not complete.
func FatalWrap(err error, msg string) error {
	return WithHint(Mark(Wrap(err, msg), ErrFatal),
		"the grouping key may hold a partial state; run the audit command before retrying")
}

// Unavailablef creates an Unavailable error with a formatted message
func Unavailablef(format string, args ...interface{}) error {
	return Mark(crdb.NewWithDepthf(1, format, args...), ErrUnavailable)
}

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}
