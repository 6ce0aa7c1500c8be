package mlp

import "gonum.org/v1/gonum/mat"

// Predict returns the output probabilities for every row of x, forwarding at
// most batchSize rows at a time. A trailing partial batch is run at its own
// size, so the buffers may be left sized for it.
func (net *Network) Predict(x mat.Matrix, batchSize int) (*mat.Dense, error) {
	r, c := x.Dims()
	if c != net.NumFeatures() {
		return nil, shapeErrorf("features have %d columns, network expects %d", c, net.NumFeatures())
	}
	if r == 0 {
		return nil, shapeErrorf("features have no rows")
	}
	if batchSize <= 0 {
		return nil, configErrorf("batch size must be positive, got %d", batchSize)
	}

	labels := net.NumLabels()
	out := mat.NewDense(r, labels, nil)
	xs := rowsOf(x)
	for start := 0; start < r; start += batchSize {
		end := min(start+batchSize, r)
		if err := net.ResizeBatch(end - start); err != nil {
			return nil, err
		}
		net.feedForward(rowRange(xs, start, end))
		out.Slice(start, end, 0, labels).(*mat.Dense).Copy(net.Tail().act)
	}
	return out, nil
}
