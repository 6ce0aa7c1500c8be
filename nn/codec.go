package nn

import (
	"bytes"
	"encoding/gob"
	"io"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"fcnet/mlp"
)

// ErrCorruptModel is returned when a serialized model cannot be decoded.
var ErrCorruptModel = errors.New("corrupt model")

const modelVersion = 1

// modelFile is the gob envelope. Matrices use gonum's binary format and the
// output layer carries empty blobs.
type modelFile struct {
	Version   int
	Sizes     []int
	BatchSize int
	Layers    []layerBlob
	Mean, Std []float64 // feature standardization, empty when unused
}

type layerBlob struct {
	Bias  []byte
	Theta []byte
}

// Dump writes c's sizes and parameters to w. Batch buffers are not saved.
func Dump(w io.Writer, c *Classifier) error {
	f := modelFile{
		Version:   modelVersion,
		Sizes:     c.Sizes(),
		BatchSize: c.batch,
		Mean:      c.mean,
		Std:       c.std,
	}
	for k, p := range c.Params() {
		var blob layerBlob
		if p.Theta != nil {
			var err error
			if blob.Bias, err = p.Bias.MarshalBinary(); err != nil {
				return errors.Wrapf(err, "layer %d bias", k)
			}
			if blob.Theta, err = p.Theta.MarshalBinary(); err != nil {
				return errors.Wrapf(err, "layer %d theta", k)
			}
		}
		f.Layers = append(f.Layers, blob)
	}
	return errors.Wrap(gob.NewEncoder(w).Encode(&f), "encode model")
}

// Load reads a model written by Dump.
func Load(r io.Reader, opts ...Option) (*Classifier, error) {
	var f modelFile
	if err := gob.NewDecoder(r).Decode(&f); err != nil {
		return nil, errors.Wrapf(ErrCorruptModel, "decode: %v", err)
	}
	if f.Version != modelVersion {
		return nil, errors.Wrapf(ErrCorruptModel, "unsupported version %d", f.Version)
	}
	if len(f.Layers) != len(f.Sizes) {
		return nil, errors.Wrapf(ErrCorruptModel, "%d layer blobs for %d sizes", len(f.Layers), len(f.Sizes))
	}

	if err := mlp.ValidateSizes(f.Sizes); err != nil {
		return nil, errors.Wrapf(ErrCorruptModel, "%v", err)
	}

	params := make([]mlp.LayerParams, len(f.Layers))
	for k, blob := range f.Layers {
		p, err := decodeLayer(blob)
		if err != nil {
			return nil, errors.Wrapf(ErrCorruptModel, "layer %d: %v", k, err)
		}
		if err := checkLayerShape(f.Sizes, k, p); err != nil {
			return nil, errors.Wrapf(ErrCorruptModel, "layer %d: %v", k, err)
		}
		params[k] = p
	}

	c, err := FromParams(f.Sizes, params, opts...)
	if err != nil {
		return nil, errors.Wrapf(ErrCorruptModel, "%v", err)
	}
	if err := c.SetBatchSize(f.BatchSize); err != nil {
		return nil, errors.Wrapf(ErrCorruptModel, "%v", err)
	}
	if err := c.SetStandardization(f.Mean, f.Std); err != nil {
		return nil, errors.Wrapf(ErrCorruptModel, "%v", err)
	}
	return c, nil
}

func decodeLayer(blob layerBlob) (mlp.LayerParams, error) {
	if len(blob.Bias) == 0 && len(blob.Theta) == 0 {
		return mlp.LayerParams{}, nil
	}
	p := mlp.LayerParams{Bias: new(mat.VecDense), Theta: new(mat.Dense)}
	if err := p.Bias.UnmarshalBinary(blob.Bias); err != nil {
		return p, errors.Wrap(err, "bias")
	}
	if err := p.Theta.UnmarshalBinary(blob.Theta); err != nil {
		return p, errors.Wrap(err, "theta")
	}
	return p, nil
}

// checkLayerShape compares decoded parameters with the sizes they claim to
// belong to. The output layer must be empty.
func checkLayerShape(sizes []int, k int, p mlp.LayerParams) error {
	if k == len(sizes)-1 {
		if p.Theta != nil {
			return errors.New("output layer carries parameters")
		}
		return nil
	}
	if p.Theta == nil {
		return errors.New("missing parameters")
	}
	in, out := sizes[k], sizes[k+1]
	if r, c := p.Theta.Dims(); r != out || c != in {
		return errors.Errorf("theta is %d×%d, sizes say %d×%d", r, c, out, in)
	}
	if n := p.Bias.Len(); n != out {
		return errors.Errorf("bias has length %d, sizes say %d", n, out)
	}
	return nil
}

// Dumps serializes c to a byte slice.
func Dumps(c *Classifier) ([]byte, error) {
	var buf bytes.Buffer
	if err := Dump(&buf, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Loads restores a classifier from bytes produced by Dumps.
func Loads(data []byte, opts ...Option) (*Classifier, error) {
	return Load(bytes.NewReader(data), opts...)
}
