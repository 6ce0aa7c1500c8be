package tensor

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"fcnet/mlp"
)

// Dataset is a feature matrix with one class index per row.
type Dataset struct {
	X      *mat.Dense
	Labels []int
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.Labels) }

// Targets returns the labels one-hot encoded over classes.
func (d *Dataset) Targets(classes int) (*mat.Dense, error) {
	return OneHot(d.Labels, classes)
}

// ReadCSV reads label-first records: the first value of each line is the
// class index, the next `features` values are the inputs, each divided by
// scale. Extra trailing columns are an error.
func ReadCSV(r io.Reader, features int, scale float64) (*Dataset, error) {
	if features <= 0 {
		return nil, errors.Wrapf(mlp.ErrInvalidConfiguration, "need a positive feature count, got %d", features)
	}
	if scale == 0 {
		scale = 1
	}

	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = features + 1
	cr.ReuseRecord = true

	var (
		data   []float64
		labels []int
	)
	for line := 1; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(mlp.ErrShapeMismatch, "line %d: %v", line, err)
		}

		label, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: bad label", line)
		}
		labels = append(labels, label)
		for i := 1; i <= features; i++ {
			x, err := strconv.ParseFloat(record[i], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d column %d", line, i)
			}
			data = append(data, x/scale)
		}
	}
	if len(labels) == 0 {
		return nil, errors.Wrap(mlp.ErrShapeMismatch, "dataset has no rows")
	}
	return &Dataset{X: mat.NewDense(len(labels), features, data), Labels: labels}, nil
}

// LoadCSV opens filename and reads it with ReadCSV.
func LoadCSV(filename string, features int, scale float64) (*Dataset, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open dataset")
	}
	defer f.Close()
	return ReadCSV(f, features, scale)
}

// Standardize shifts every column of x to zero mean and unit standard
// deviation in place and returns the statistics used. Constant columns are
// only centred.
func Standardize(x *mat.Dense) (mean, std []float64) {
	r, c := x.Dims()
	mean = make([]float64, c)
	std = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, x)
		mean[j], std[j] = stat.MeanStdDev(col, nil)
	}
	ApplyStandardization(x, mean, std)
	return mean, std
}

// ApplyStandardization reuses statistics from Standardize on new data.
func ApplyStandardization(x *mat.Dense, mean, std []float64) {
	x.Apply(func(i, j int, v float64) float64 {
		if std[j] == 0 {
			return v - mean[j]
		}
		return (v - mean[j]) / std[j]
	}, x)
}
