package types

import (
	"errors"
	"fmt"
)

// Encoding errors.
var (
	ErrEncoding = errors.New("metadata value cannot be encoded")
	ErrDecoding = errors.New("embedded metadata cannot be decoded")
)

// Operation errors.
var (
	ErrNoSuchOperation = errors.New("no such operation")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUntrackedValue  = errors.New("value is not a table, plan or column")
	ErrColumnNotFound  = errors.New("column not found")
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrLengthMismatch  = errors.New("column length mismatch")
	ErrTypeMismatch    = errors.New("column type mismatch")
	ErrUnsupportedType = errors.New("unsupported column type")
	ErrSchemaMismatch  = errors.New("schemas do not match")
	ErrEmptyPlanSource = errors.New("plan has no source")
)

// EncodingError reports a metadata value that cannot be written into a file
// header. Key is the dotted path of the offending value, for example
// "owner" or "lineage.steps[2]".
type EncodingError struct {
	Key    string
	Value  any
	Reason string
}

// Error implements the error interface.
func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s: key %q (%T): %s", ErrEncoding, e.Key, e.Value, e.Reason)
}

// Is reports whether target is ErrEncoding.
func (e *EncodingError) Is(target error) bool {
	return target == ErrEncoding
}

// OperationError reports a failed call-through to an engine operation.
type OperationError struct {
	// Kind is the receiver kind, "table", "plan" or "column".
	Kind string

	// Op is the requested operation name.
	Op string

	// Err is ErrNoSuchOperation, ErrInvalidArgument, or the error returned
	// by the operation itself.
	Err error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *OperationError) Unwrap() error {
	return e.Err
}

// IsNoSuchOperation returns true if err reports a call to an operation the
// receiver does not have. Uses errors.Is to handle wrapped errors.
func IsNoSuchOperation(err error) bool {
	return errors.Is(err, ErrNoSuchOperation)
}

// IsEncodingError returns true if err reports an unencodable metadata value.
func IsEncodingError(err error) bool {
	var ee *EncodingError
	return errors.As(err, &ee)
}
