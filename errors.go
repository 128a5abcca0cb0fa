package gotensor

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every error returned by the kernel wraps one of these.
var (
	// ErrStructuralInconsistency: sibling terms disagree on their free indices,
	// or a scalar-only position (power base/exponent) carries free indices.
	ErrStructuralInconsistency = errors.New("structural inconsistency")

	// ErrInvalidMapping: a renaming request does not match the tree's free
	// indices, maps a name twice or would duplicate an index.
	ErrInvalidMapping = errors.New("invalid index mapping")

	// ErrContractionViolation: an index name occurs with other than exactly
	// one upper and one lower occurrence within a term.
	ErrContractionViolation = errors.New("contraction violation")

	// ErrBuilderProtocol: a builder or symbol used outside its protocol.
	ErrBuilderProtocol = errors.New("builder protocol violation")
)

// TensorError carries the failing operation and the offending (sub)tensor.
type TensorError struct {
	Op     string
	Err    error
	Tensor Tensor
	Detail string
}

func (e *TensorError) Error() string {
	msg := "gotensor: " + e.Op + ": " + e.Err.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Tensor != nil {
		msg += " (in " + e.Tensor.String() + ")"
	}
	return msg
}

func (e *TensorError) Unwrap() error { return e.Err }

func newError(op string, sentinel error, t Tensor, format string, args ...interface{}) error {
	return &TensorError{Op: op, Err: sentinel, Tensor: t, Detail: fmt.Sprintf(format, args...)}
}

// Must panics if err is non-nil and returns t otherwise.
func Must(t Tensor, err error) Tensor {
	if err != nil {
		panic(err)
	}
	return t
}
