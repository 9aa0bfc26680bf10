// Package errors provides the error taxonomy used across SciForest.
//
// Every failure raised by the scoring core is fail-fast and non-retryable:
// it signals a programming or data error rather than a transient fault.
// Errors are built on github.com/cockroachdb/errors so that they carry stack
// traces (print them with "%+v") while remaining compatible with the
// standard errors.Is / errors.As functions.
//
// Callers should test for a category with errors.Is against one of the
// sentinel values:
//
//	votes, err := mv.Combine(opts)
//	if errors.Is(err, scigoErrors.ErrEmptyVoteSet) {
//		// nothing was predicted
//	}
//
// and extract details with errors.As on *ModelError or *ValueError.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinel errors, one per failure category.
var (
	// ErrMalformedModel reports a serialized model missing required keys or
	// referencing fields absent from the field table.
	ErrMalformedModel = errors.New("malformed model")
	// ErrNotFinishedModel reports a model resource whose build is not finished.
	ErrNotFinishedModel = errors.New("model is not finished")
	// ErrUnsupportedMissingStrategy reports a proportional prediction requested
	// on a regression tree that lacks the tree-wide bin annotations.
	ErrUnsupportedMissingStrategy = errors.New("unsupported missing strategy")
	// ErrInvalidOperatingPoint reports an unknown kind, a threshold outside
	// [0, 1] or an unknown positive class.
	ErrInvalidOperatingPoint = errors.New("invalid operating point")
	// ErrInvalidCombinationMethod reports a weighted combination requested
	// when some vote lacks the weight it needs.
	ErrInvalidCombinationMethod = errors.New("invalid combination method")
	// ErrEmptyVoteSet reports a combination over zero predictions.
	ErrEmptyVoteSet = errors.New("no predictions to combine")
	// ErrThresholdOutOfRange reports a threshold combination with a threshold
	// below 1 or above the number of votes.
	ErrThresholdOutOfRange = errors.New("threshold out of range")
	// ErrUnknownField reports a field id missing from the field table.
	ErrUnknownField = errors.New("unknown field")
	// ErrModelNotFound reports a resolver that cannot produce a model id.
	ErrModelNotFound = errors.New("model not found")
	// ErrNotImplemented reports an operation a model kind does not support.
	ErrNotImplemented = errors.New("not implemented")
	// ErrDimensionMismatch reports paired inputs of different lengths.
	ErrDimensionMismatch = errors.New("dimension mismatch")
)

// ModelError is an error raised while loading or evaluating a model.
type ModelError struct {
	Op      string
	Message string
	Err     error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sciforest: %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("sciforest: %s: %s", e.Op, e.Message)
}

// Unwrap returns the underlying category.
func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError creates a ModelError carrying a stack trace.
func NewModelError(op, message string, err error) error {
	return errors.WithStack(&ModelError{Op: op, Message: message, Err: err})
}

// ValueError is raised when an argument has the right type but an
// inappropriate value.
type ValueError struct {
	Op      string
	Message string
	Err     error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("sciforest: %s: %s", e.Op, e.Message)
}

// Unwrap returns the underlying category, if any.
func (e *ValueError) Unwrap() error {
	return e.Err
}

// NewValueError creates a ValueError with no category.
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// NewCategorizedValueError creates a ValueError that matches err with errors.Is.
func NewCategorizedValueError(op string, err error, format string, args ...interface{}) error {
	return errors.WithStack(&ValueError{Op: op, Message: fmt.Sprintf(format, args...), Err: err})
}

// FieldError reports a field id that is not in the field table.
type FieldError struct {
	Op      string
	FieldID string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("sciforest: %s: unknown field %q", e.Op, e.FieldID)
}

// Unwrap makes FieldError match ErrUnknownField.
func (e *FieldError) Unwrap() error {
	return ErrUnknownField
}

// NewFieldError creates a FieldError.
func NewFieldError(op, fieldID string) error {
	return errors.WithStack(&FieldError{Op: op, FieldID: fieldID})
}

// DimensionError reports paired inputs of different lengths.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("sciforest: %s: expected %d values, got %d", e.Op, e.Expected, e.Got)
}

// Unwrap makes DimensionError match ErrDimensionMismatch.
func (e *DimensionError) Unwrap() error {
	return ErrDimensionMismatch
}

// NewDimensionError creates a DimensionError.
func NewDimensionError(op string, expected, got int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got})
}

// Wrap annotates err with a message. It returns nil when err is nil.
func Wrap(err error, msg string) error {
	return errors.Wrap(err, msg)
}

// Wrapf annotates err with a formatted message. It returns nil when err is nil.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Recover converts a panic raised below a public entry point into an error
// stored in *errp. It must be deferred directly.
func Recover(errp *error, op string) {
	if r := recover(); r != nil {
		if err, ok := r.(error); ok {
			*errp = NewModelError(op, "panic recovered", err)
			return
		}
		*errp = NewModelError(op, fmt.Sprintf("panic recovered: %v", r), nil)
	}
}
