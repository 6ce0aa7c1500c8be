package utils

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"fcnet/mlp"
)

// WeightsVersion tags the JSON layout written by SaveWeights.
const WeightsVersion = "1.0"

// WeightData represents serializable weight data for a layer
type WeightData struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// ModelWeights represents all weights in a model
type ModelWeights struct {
	Version string        `json:"version"`
	Sizes   []int         `json:"sizes"`
	Layers  []LayerWeight `json:"layers"`
}

// LayerWeight contains weights and bias for a layer. Both are omitted for the
// output layer.
type LayerWeight struct {
	Weight *WeightData `json:"weight,omitempty"`
	Bias   *WeightData `json:"bias,omitempty"`
}

// SaveWeights saves model weights to a JSON file
func SaveWeights(filepath string, weights *ModelWeights) error {
	data, err := json.MarshalIndent(weights, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal weights")
	}
	return os.WriteFile(filepath, data, 0644)
}

// LoadWeights loads model weights from a JSON file
func LoadWeights(filepath string) (*ModelWeights, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read weights file")
	}
	var weights ModelWeights
	if err := json.Unmarshal(data, &weights); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal weights")
	}
	return &weights, nil
}

// ParamsToWeights copies a network's layer parameters into their JSON form.
func ParamsToWeights(sizes []int, params []mlp.LayerParams) *ModelWeights {
	w := &ModelWeights{
		Version: WeightsVersion,
		Sizes:   append([]int(nil), sizes...),
		Layers:  make([]LayerWeight, len(params)),
	}
	for k, p := range params {
		if p.Theta == nil {
			continue
		}
		r, c := p.Theta.Dims()
		w.Layers[k] = LayerWeight{
			Weight: &WeightData{
				Name:  fmt.Sprintf("layer%d_weight", k),
				Shape: []int{r, c},
				Data:  mat.DenseCopyOf(p.Theta).RawMatrix().Data,
			},
			Bias: &WeightData{
				Name:  fmt.Sprintf("layer%d_bias", k),
				Shape: []int{p.Bias.Len()},
				Data:  mat.VecDenseCopyOf(p.Bias).RawVector().Data,
			},
		}
	}
	return w
}

// WeightsToParams rebuilds layer parameters from their JSON form. The result
// still has to be checked against a network by SetParams or FromParams.
func WeightsToParams(w *ModelWeights) ([]int, []mlp.LayerParams, error) {
	if err := ValidateArchitecture(w.Sizes); err != nil {
		return nil, nil, err
	}
	if len(w.Layers) != len(w.Sizes) {
		return nil, nil, errors.Wrapf(mlp.ErrShapeMismatch, "weights list %d layers for %d sizes", len(w.Layers), len(w.Sizes))
	}
	params := make([]mlp.LayerParams, len(w.Layers))
	for k, l := range w.Layers {
		if l.Weight == nil && l.Bias == nil {
			continue
		}
		if l.Weight == nil || l.Bias == nil {
			return nil, nil, errors.Wrapf(mlp.ErrShapeMismatch, "layer %d has only one of weight and bias", k)
		}
		if len(l.Weight.Shape) != 2 || l.Weight.Shape[0]*l.Weight.Shape[1] != len(l.Weight.Data) || len(l.Weight.Data) == 0 {
			return nil, nil, errors.Wrapf(mlp.ErrShapeMismatch, "layer %d weight shape %v does not fit %d values", k, l.Weight.Shape, len(l.Weight.Data))
		}
		if len(l.Bias.Data) == 0 {
			return nil, nil, errors.Wrapf(mlp.ErrShapeMismatch, "layer %d has an empty bias", k)
		}
		params[k] = mlp.LayerParams{
			Theta: mat.NewDense(l.Weight.Shape[0], l.Weight.Shape[1], append([]float64(nil), l.Weight.Data...)),
			Bias:  mat.NewVecDense(len(l.Bias.Data), append([]float64(nil), l.Bias.Data...)),
		}
	}
	return append([]int(nil), w.Sizes...), params, nil
}
