package mlp

import "gonum.org/v1/gonum/mat"

// Backpropagate runs one gradient-descent step on a single batch: a forward
// pass, the output error act-labels, backpropagation to the head, and the
// regularized update of every layer.
func (net *Network) Backpropagate(x, y mat.Matrix, alpha, lamb float64) error {
	n, err := net.checkDataset(x, y)
	if err != nil {
		return err
	}
	if err := checkRates(alpha, lamb); err != nil {
		return err
	}
	if err := net.ResizeBatch(n); err != nil {
		return err
	}
	net.backpropagate(x, y, alpha, lamb)
	return nil
}

// backpropagate assumes x and y have BatchSize() rows.
//
// Layer k is updated from the delta of layer k+1 and its own input
// activations. Its own delta is computed first, from the theta the batch was
// forwarded with. Bias is not regularized.
func (net *Network) backpropagate(x, y mat.Matrix, alpha, lamb float64) {
	net.feedForward(x)

	tail := net.Tail()
	tail.delta.Sub(tail.act, y)

	step := alpha / float64(net.batch)
	decay := alpha * lamb

	var grad mat.Dense
	for k := len(net.layers) - 2; k >= 0; k-- {
		l, next := net.layers[k], net.layers[k+1]

		l.delta.Mul(next.delta, l.theta)
		l.delta.Apply(func(i, j int, v float64) float64 {
			return v * sigmoid.Derivative(l.act.At(i, j))
		}, l.delta)

		grad.Reset()
		grad.Mul(next.delta.T(), l.act)
		l.theta.Apply(func(i, j int, v float64) float64 {
			return v - step*grad.At(i, j) - decay*v
		}, l.theta)

		sum := make([]float64, l.out)
		columnSum(sum, next.delta)
		l.bias.AddScaledVec(l.bias, -step, mat.NewVecDense(l.out, sum))
	}
}

func checkRates(alpha, lamb float64) error {
	if !(alpha > 0) {
		return configErrorf("learning rate must be positive, got %v", alpha)
	}
	if !(lamb >= 0) {
		return configErrorf("regularization must be non-negative, got %v", lamb)
	}
	return nil
}

// checkDataset validates x and y against the network and each other and
// returns their row count.
func (net *Network) checkDataset(x, y mat.Matrix) (int, error) {
	xr, xc := x.Dims()
	yr, yc := y.Dims()
	if xc != net.NumFeatures() {
		return 0, shapeErrorf("features have %d columns, network expects %d", xc, net.NumFeatures())
	}
	if yc != net.NumLabels() {
		return 0, shapeErrorf("labels have %d columns, network expects %d", yc, net.NumLabels())
	}
	if xr != yr {
		return 0, shapeErrorf("%d feature rows but %d label rows", xr, yr)
	}
	if xr == 0 {
		return 0, shapeErrorf("dataset has no rows")
	}
	return xr, nil
}
