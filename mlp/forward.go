package mlp

import "gonum.org/v1/gonum/mat"

// Forward runs the rows of x through the network and returns the output
// activations, which stay owned by the tail layer until the next call.
func (net *Network) Forward(x mat.Matrix) (mat.Matrix, error) {
	r, c := x.Dims()
	if c != net.NumFeatures() {
		return nil, shapeErrorf("features have %d columns, network expects %d", c, net.NumFeatures())
	}
	if err := net.ResizeBatch(r); err != nil {
		return nil, err
	}
	net.feedForward(x)
	return net.Tail().act, nil
}

// feedForward assumes x has exactly BatchSize() rows of NumFeatures() columns.
func (net *Network) feedForward(x mat.Matrix) {
	net.layers[0].act.Copy(x)
	for k := 0; k < len(net.layers)-1; k++ {
		l, next := net.layers[k], net.layers[k+1]
		next.act.Mul(l.act, l.theta.T())
		addBias(next.act, l.bias)
		next.act.Apply(sigmoid.Activate, next.act)
	}
}
