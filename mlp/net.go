// Package mlp is a fully-connected sigmoid network trained by mini-batch
// gradient descent with L2 weight decay.
//
// A Network is not safe for concurrent use: every call mutates the per-layer
// buffers in place.
package mlp

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

// Network is an ordered chain of layers from input to output. For sizes
// [n0, ..., nL] it holds L+1 layers; layer k maps n_k inputs to n_{k+1}
// outputs and layer L is the sink that only holds the output activations.
type Network struct {
	sizes  []int
	layers []*Layer
	batch  int
}

// ValidateSizes reports whether sizes describes a usable network.
func ValidateSizes(sizes []int) error {
	if len(sizes) < 2 {
		return configErrorf("need at least 2 layer sizes (input and output), got %d", len(sizes))
	}
	for i, n := range sizes {
		if n <= 0 {
			return configErrorf("layer %d has size %d, sizes must be positive", i, n)
		}
	}
	return nil
}

// NewNetwork builds a network with parameters drawn uniformly from
// [-InitRange, InitRange] using a source seeded with seed.
func NewNetwork(sizes []int, seed uint64) (*Network, error) {
	if err := ValidateSizes(sizes); err != nil {
		return nil, err
	}
	src := rand.NewSource(seed)
	net := &Network{sizes: append([]int(nil), sizes...)}
	for k := range sizes {
		net.layers = append(net.layers, newRandomLayer(sizes[k], net.outOf(k), src))
	}
	return net, nil
}

// FromParams rebuilds a network from its layer sizes and one LayerParams per
// layer, tail included.
func FromParams(sizes []int, params []LayerParams) (*Network, error) {
	if err := ValidateSizes(sizes); err != nil {
		return nil, err
	}
	net := &Network{sizes: append([]int(nil), sizes...)}
	if len(params) != len(sizes) {
		return nil, shapeErrorf("got parameters for %d layers, sizes describe %d", len(params), len(sizes))
	}
	// nothing is allocated until params back every size
	for k := range sizes {
		shape := Layer{in: sizes[k], out: net.outOf(k)}
		if err := shape.checkParams(params[k]); err != nil {
			return nil, errors.Wrapf(err, "layer %d", k)
		}
	}
	for k := range sizes {
		net.layers = append(net.layers, newLayer(sizes[k], net.outOf(k)))
	}
	if err := net.SetParams(params); err != nil {
		return nil, err
	}
	return net, nil
}

func (net *Network) outOf(k int) int {
	if k == len(net.sizes)-1 {
		return 0
	}
	return net.sizes[k+1]
}

// Sizes returns a copy of the layer sizes.
func (net *Network) Sizes() []int {
	return append([]int(nil), net.sizes...)
}

func (net *Network) NumFeatures() int { return net.sizes[0] }
func (net *Network) NumLabels() int   { return net.sizes[len(net.sizes)-1] }

// Len is the number of layers in the chain, sink included.
func (net *Network) Len() int { return len(net.layers) }

// Layer returns layer k, 0 being the head.
func (net *Network) Layer(k int) *Layer { return net.layers[k] }

func (net *Network) Head() *Layer { return net.layers[0] }
func (net *Network) Tail() *Layer { return net.layers[len(net.layers)-1] }

// BatchSize is the row count the activation buffers are currently sized for,
// or 0 before the first allocation.
func (net *Network) BatchSize() int { return net.batch }

// ResizeBatch sizes every layer's act and delta buffers for n rows. Buffers are
// replaced, zero-filled, only when n differs from the current batch size.
func (net *Network) ResizeBatch(n int) error {
	if n <= 0 {
		return configErrorf("batch size must be positive, got %d", n)
	}
	if n == net.batch {
		return nil
	}
	for _, l := range net.layers {
		l.allocateBatch(n)
	}
	net.batch = n
	return nil
}

// Params returns copies of every layer's parameters in chain order.
func (net *Network) Params() []LayerParams {
	params := make([]LayerParams, len(net.layers))
	for k, l := range net.layers {
		params[k] = l.Params()
	}
	return params
}

// SetParams checks every entry against its layer before copying any of them.
func (net *Network) SetParams(params []LayerParams) error {
	if len(params) != len(net.layers) {
		return shapeErrorf("got parameters for %d layers, network has %d", len(params), len(net.layers))
	}
	for k, l := range net.layers {
		if err := l.checkParams(params[k]); err != nil {
			return errors.Wrapf(err, "layer %d", k)
		}
	}
	for k, l := range net.layers {
		if err := l.SetParams(params[k]); err != nil {
			return err
		}
	}
	return nil
}
