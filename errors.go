package temporal

import (
	"errors"
	"fmt"
)

// Error kinds returned by duration arithmetic, casting and structural
// operations. Match them with errors.Is.
var (
	// ErrUnitMismatch: both operands are temporal but carry different units.
	ErrUnitMismatch = errors.New("units are different")

	// ErrUnsupportedOperation: the operator is not defined for the dtype pair.
	ErrUnsupportedOperation = errors.New("operation not supported between these two dtypes")

	// ErrCastFailure: a value or column could not be represented in the target dtype.
	ErrCastFailure = errors.New("cast failed")

	// ErrDtypeMismatch: append/extend between columns of different dtypes.
	ErrDtypeMismatch = errors.New("dtypes do not match")

	// ErrLengthMismatch: element-wise operation between columns of different lengths.
	ErrLengthMismatch = errors.New("lengths do not match")

	// ErrInvalidQuantile: quantile outside [0, 1].
	ErrInvalidQuantile = errors.New("quantile should be between 0.0 and 1.0")

	// ErrOutOfBounds: a take index past the end of the column.
	ErrOutOfBounds = errors.New("index out of bounds")
)

// OpError carries the operator and operand dtypes of a failed operation.
type OpError struct {
	Op    string
	Left  DataType
	Right DataType
	Err   error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v (left: %s, right: %s)", e.Op, e.Err, e.Left, e.Right)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func unsupported(op string, left, right DataType) error {
	return &OpError{Op: op, Left: left, Right: right, Err: ErrUnsupportedOperation}
}

func unitMismatch(op string, left, right DataType) error {
	return &OpError{Op: op, Left: left, Right: right, Err: ErrUnitMismatch}
}

func dtypeMismatch(op string, left, right DataType) error {
	return &OpError{Op: op, Left: left, Right: right, Err: ErrDtypeMismatch}
}

// invariant panics for failures that type dispatch has already ruled out.
func invariant(err error, what string) {
	if err != nil {
		panic(fmt.Sprintf("temporal: invariant violated: %s: %v", what, err))
	}
}
