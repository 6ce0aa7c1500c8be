package mlp

import "gonum.org/v1/gonum/mat"

// Epoch runs one pass of mini-batch gradient descent over x and y, taking
// contiguous batches of batchSize rows in order. Shuffling is the caller's
// job.
//
// The row count must be a multiple of batchSize; other configurations are
// rejected before any layer is touched. Once batches start running there is
// no rollback, and NaN or Inf values are propagated as they are.
func (net *Network) Epoch(x, y mat.Matrix, batchSize int, alpha, lamb float64) error {
	n, err := net.checkDataset(x, y)
	if err != nil {
		return err
	}
	if batchSize <= 0 {
		return configErrorf("batch size must be positive, got %d", batchSize)
	}
	if n%batchSize != 0 {
		return configErrorf("%d samples do not divide into batches of %d", n, batchSize)
	}
	if err := checkRates(alpha, lamb); err != nil {
		return err
	}
	if err := net.ResizeBatch(batchSize); err != nil {
		return err
	}

	xs, ys := rowsOf(x), rowsOf(y)
	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		net.backpropagate(rowRange(xs, start, end), rowRange(ys, start, end), alpha, lamb)
	}
	return nil
}
