package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// probEps keeps log away from 0 for saturated outputs.
const probEps = 1e-12

// LogisticLoss returns the binary cross-entropy summed over labels and
// averaged over the rows of p (probabilities) and y (0/1 targets).
func LogisticLoss(p, y mat.Matrix) float64 {
	r, c := p.Dims()
	if r == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			pv := math.Min(math.Max(p.At(i, j), probEps), 1-probEps)
			yv := y.At(i, j)
			sum -= yv*math.Log(pv) + (1-yv)*math.Log(1-pv)
		}
	}
	return sum / float64(r)
}

// Accuracy is the fraction of positions where got and want agree.
func Accuracy(got, want []int) float64 {
	if len(got) == 0 || len(got) != len(want) {
		return 0
	}
	hits := 0
	for i := range got {
		if got[i] == want[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(got))
}
