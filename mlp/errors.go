package mlp

import "github.com/pkg/errors"

// These are the errors returned by the engine. They are always wrapped with
// context, so compare with errors.Is or errors.Cause.
var (
	// ErrShapeMismatch reports feature, label or parameter dimensions that
	// disagree with the network.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrInvalidConfiguration reports unusable sizes or hyperparameters, such as
	// fewer than two layers, a non-positive batch size, or a dataset that does
	// not divide evenly into batches.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

func shapeErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrShapeMismatch, format, args...)
}

func configErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidConfiguration, format, args...)
}
