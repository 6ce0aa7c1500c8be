// Package tensor moves data between plain row slices, CSV files and the
// gonum matrices the network consumes.
package tensor

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"fcnet/mlp"
)

// FromRows copies equally long rows into a dense matrix.
func FromRows(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errors.Wrap(mlp.ErrShapeMismatch, "no rows to convert")
	}
	c := len(rows[0])
	data := make([]float64, 0, len(rows)*c)
	for i, row := range rows {
		if len(row) != c {
			return nil, errors.Wrapf(mlp.ErrShapeMismatch, "row %d has %d values, want %d", i, len(row), c)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), c, data), nil
}

// OneHot encodes class indices as rows with a single 1.
func OneHot(labels []int, classes int) (*mat.Dense, error) {
	if classes <= 0 {
		return nil, errors.Wrapf(mlp.ErrInvalidConfiguration, "need a positive class count, got %d", classes)
	}
	if len(labels) == 0 {
		return nil, errors.Wrap(mlp.ErrShapeMismatch, "no labels to encode")
	}
	out := mat.NewDense(len(labels), classes, nil)
	for i, l := range labels {
		if l < 0 || l >= classes {
			return nil, errors.Wrapf(mlp.ErrShapeMismatch, "label %d at row %d is outside [0, %d)", l, i, classes)
		}
		out.Set(i, l, 1)
	}
	return out, nil
}
