package utils

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"fcnet/mlp"
)

// TrainConfig holds the hyperparameters of a training run.
type TrainConfig struct {
	MaxIter   int     // epochs, at least 1
	BatchSize int     // rows per gradient step, must divide the sample count
	Alpha     float64 // initial learning rate
	Lamb      float64 // L2 penalty on theta
	Decay     float64 // alpha is multiplied by Decay after every epoch
	Seed      uint64  // seeds the per-epoch shuffle
}

// DefaultTrainConfig returns the settings the CLIs start from.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		MaxIter:   100,
		BatchSize: 10,
		Alpha:     0.5,
		Lamb:      0,
		Decay:     1,
		Seed:      1,
	}
}

// ParseArchitecture parses architecture string into slice of integers
func ParseArchitecture(archStr string) ([]int, error) {
	archParts := strings.Fields(archStr)
	arch := make([]int, len(archParts))
	for i, s := range archParts {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, errors.Wrapf(mlp.ErrInvalidConfiguration, "architecture entry %q is not an integer", s)
		}
		arch[i] = n
	}
	return arch, nil
}

// ValidateArchitecture checks layer sizes the way mlp.NewNetwork does.
func ValidateArchitecture(arch []int) error {
	if len(arch) < 2 {
		return errors.Wrap(mlp.ErrInvalidConfiguration, "architecture must have at least 2 layers (input and output)")
	}
	return mlp.ValidateSizes(arch)
}

// ValidateTrainConfig validates training configuration
func ValidateTrainConfig(cfg *TrainConfig) error {
	if cfg.MaxIter <= 0 {
		return errors.Wrap(mlp.ErrInvalidConfiguration, "max iterations must be positive")
	}
	if cfg.BatchSize <= 0 {
		return errors.Wrap(mlp.ErrInvalidConfiguration, "batch size must be positive")
	}
	if !(cfg.Alpha > 0) {
		return errors.Wrap(mlp.ErrInvalidConfiguration, "learning rate must be positive")
	}
	if !(cfg.Lamb >= 0) {
		return errors.Wrap(mlp.ErrInvalidConfiguration, "regularization must not be negative")
	}
	if !(cfg.Decay > 0) {
		return errors.Wrap(mlp.ErrInvalidConfiguration, "decay must be positive")
	}
	return nil
}
