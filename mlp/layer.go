package mlp

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Layer is one level of the chain: an affine transform from In() to Out()
// units plus the activations flowing into it for the current batch.
//
// The tail layer has Out() == 0 and no parameters; its act buffer holds the
// network output.
type Layer struct {
	in, out int

	bias  *mat.VecDense // out
	theta *mat.Dense    // out × in

	act   *mat.Dense // batch × in
	delta *mat.Dense // batch × in
}

// LayerParams is a value copy of a layer's parameters. Both fields are nil for
// the tail layer.
type LayerParams struct {
	Bias  *mat.VecDense
	Theta *mat.Dense
}

func newLayer(in, out int) *Layer {
	l := &Layer{in: in, out: out}
	if out > 0 {
		l.bias = mat.NewVecDense(out, nil)
		l.theta = mat.NewDense(out, in, nil)
	}
	return l
}

func newRandomLayer(in, out int, src rand.Source) *Layer {
	l := &Layer{in: in, out: out}
	if out > 0 {
		l.theta = mat.NewDense(out, in, randomArray(out*in, InitRange, src))
		l.bias = mat.NewVecDense(out, randomArray(out, InitRange, src))
	}
	return l
}

func (l *Layer) In() int  { return l.in }
func (l *Layer) Out() int { return l.out }

// Act returns the activations flowing into the layer for the current batch.
// It is nil until the first batch is allocated.
func (l *Layer) Act() mat.Matrix {
	if l.act == nil {
		return nil
	}
	return l.act
}

// Delta returns the backpropagated error at the layer's input.
func (l *Layer) Delta() mat.Matrix {
	if l.delta == nil {
		return nil
	}
	return l.delta
}

// allocateBatch replaces act and delta with zeroed (n × in) buffers. Callers
// reject n <= 0.
func (l *Layer) allocateBatch(n int) {
	l.act = mat.NewDense(n, l.in, nil)
	l.delta = mat.NewDense(n, l.in, nil)
}

// Params returns copies of the layer's bias and theta.
func (l *Layer) Params() LayerParams {
	if l.out == 0 {
		return LayerParams{}
	}
	return LayerParams{
		Bias:  mat.VecDenseCopyOf(l.bias),
		Theta: mat.DenseCopyOf(l.theta),
	}
}

func (l *Layer) checkParams(p LayerParams) error {
	if l.out == 0 {
		if (p.Bias != nil && !p.Bias.IsEmpty()) || (p.Theta != nil && !p.Theta.IsEmpty()) {
			return shapeErrorf("sink layer takes no parameters")
		}
		return nil
	}
	if p.Bias == nil || p.Theta == nil {
		return shapeErrorf("layer %d→%d is missing bias or theta", l.in, l.out)
	}
	if n := p.Bias.Len(); n != l.out {
		return shapeErrorf("bias has length %d, want %d", n, l.out)
	}
	if r, c := p.Theta.Dims(); r != l.out || c != l.in {
		return shapeErrorf("theta is %d×%d, want %d×%d", r, c, l.out, l.in)
	}
	return nil
}

// SetParams copies p into the layer. Nothing is changed when the shapes
// disagree.
func (l *Layer) SetParams(p LayerParams) error {
	if err := l.checkParams(p); err != nil {
		return err
	}
	if l.out == 0 {
		return nil
	}
	l.bias.CopyVec(p.Bias)
	l.theta.Copy(p.Theta)
	return nil
}
