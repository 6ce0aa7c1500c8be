package mlp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// crossEntropy is the mean over rows of the summed per-label logistic loss.
func crossEntropy(p, y mat.Matrix) float64 {
	r, c := p.Dims()
	var sum float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			pv, yv := p.At(i, j), y.At(i, j)
			sum -= yv*math.Log(pv) + (1-yv)*math.Log(1-pv)
		}
	}
	return sum / float64(r)
}

// flatten lays out theta then bias for every parametrized layer.
func flatten(params []LayerParams) []float64 {
	var out []float64
	for _, p := range params {
		if p.Theta == nil {
			continue
		}
		out = append(out, p.Theta.RawMatrix().Data...)
		out = append(out, p.Bias.RawVector().Data...)
	}
	return out
}

func unflatten(sizes []int, flat []float64) []LayerParams {
	params := make([]LayerParams, len(sizes))
	for k := 0; k < len(sizes)-1; k++ {
		in, out := sizes[k], sizes[k+1]
		params[k].Theta = mat.NewDense(out, in, append([]float64(nil), flat[:out*in]...))
		flat = flat[out*in:]
		params[k].Bias = mat.NewVecDense(out, append([]float64(nil), flat[:out]...))
		flat = flat[out:]
	}
	return params
}

func TestBackpropagateMatchesFiniteDifferences(t *testing.T) {
	sizes := []int{3, 4, 2}
	net, err := NewNetwork(sizes, 5)
	require.NoError(t, err)

	rnd := rand.New(rand.NewSource(3))
	x := randomMatrix(rnd, 5, 3)
	y := randomLabels(rnd, 5, 2)
	before := flatten(net.Params())

	loss := func(flat []float64) float64 {
		probe, err := FromParams(sizes, unflatten(sizes, flat))
		require.NoError(t, err)
		p, err := probe.Predict(x, 5)
		require.NoError(t, err)
		return crossEntropy(p, y)
	}
	numeric := fd.Gradient(nil, loss, before, &fd.Settings{Formula: fd.Central})

	// with alpha 1 and no decay the update is exactly minus the mean gradient
	require.NoError(t, net.Backpropagate(x, y, 1, 0))
	after := flatten(net.Params())
	for i := range before {
		assert.InDelta(t, numeric[i], before[i]-after[i], 1e-6, "parameter %d", i)
	}
}

func TestBackpropagateOutputDelta(t *testing.T) {
	net, err := NewNetwork([]int{3, 2}, 5)
	require.NoError(t, err)
	rnd := rand.New(rand.NewSource(4))
	x := randomMatrix(rnd, 4, 3)
	y := randomLabels(rnd, 4, 2)

	probe := cloneNetwork(t, net)
	p, err := probe.Predict(x, 4)
	require.NoError(t, err)

	require.NoError(t, net.Backpropagate(x, y, 0.1, 0))
	var want mat.Dense
	want.Sub(p, y)
	assert.True(t, mat.EqualApprox(&want, net.Tail().Delta(), 1e-12))
}

func TestBackpropagateDecayOnlyTouchesTheta(t *testing.T) {
	net, err := NewNetwork([]int{3, 4, 2}, 8)
	require.NoError(t, err)
	rnd := rand.New(rand.NewSource(5))
	x := randomMatrix(rnd, 6, 3)
	y := randomLabels(rnd, 6, 2)

	plain := cloneNetwork(t, net)
	decayed := cloneNetwork(t, net)
	const alpha, lamb = 0.3, 0.5
	require.NoError(t, plain.Backpropagate(x, y, alpha, 0))
	require.NoError(t, decayed.Backpropagate(x, y, alpha, lamb))

	orig := net.Params()
	for k := 0; k < 2; k++ {
		var want mat.Dense
		want.Scale(-alpha*lamb, orig[k].Theta)
		want.Add(&want, plain.Layer(k).theta)
		assert.True(t, mat.EqualApprox(&want, decayed.Layer(k).theta, 1e-12), "layer %d theta", k)
		assert.True(t, mat.EqualApprox(plain.Layer(k).bias, decayed.Layer(k).bias, 1e-15), "layer %d bias", k)
	}
}

func TestBackpropagateRejectsBadInput(t *testing.T) {
	net, err := NewNetwork([]int{3, 2}, 5)
	require.NoError(t, err)
	orig := net.Params()

	x := mat.NewDense(4, 3, nil)
	require.ErrorIs(t, net.Backpropagate(x, mat.NewDense(4, 3, nil), 0.1, 0), ErrShapeMismatch)
	require.ErrorIs(t, net.Backpropagate(x, mat.NewDense(3, 2, nil), 0.1, 0), ErrShapeMismatch)
	require.ErrorIs(t, net.Backpropagate(mat.NewDense(4, 2, nil), mat.NewDense(4, 2, nil), 0.1, 0), ErrShapeMismatch)
	require.ErrorIs(t, net.Backpropagate(x, mat.NewDense(4, 2, nil), 0, 0), ErrInvalidConfiguration)
	require.ErrorIs(t, net.Backpropagate(x, mat.NewDense(4, 2, nil), 0.1, -1), ErrInvalidConfiguration)

	assert.True(t, mat.Equal(orig[0].Theta, net.Head().theta))
	assert.True(t, mat.Equal(orig[0].Bias, net.Head().bias))
}

func TestBackpropagateNaNPropagates(t *testing.T) {
	net, err := NewNetwork([]int{2, 2}, 5)
	require.NoError(t, err)
	x := mat.NewDense(1, 2, []float64{math.NaN(), 0})
	require.NoError(t, net.Backpropagate(x, mat.NewDense(1, 2, nil), 0.1, 0))

	out, err := net.Predict(mat.NewDense(1, 2, []float64{1, 1}), 1)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(out.At(0, 0)))
}
