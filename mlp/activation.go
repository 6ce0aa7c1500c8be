package mlp

import "math"

// Sigmoid is the logistic activation used by every layer, the output layer
// included. Outputs are independent per-label probabilities.
type Sigmoid struct{}

func (s Sigmoid) Activate(i, j int, sum float64) float64 {
	return 1.0 / (1.0 + math.Exp(-sum))
}

// Derivative returns the slope of the sigmoid given its output a.
func (s Sigmoid) Derivative(a float64) float64 {
	return a * (1 - a)
}

func (s Sigmoid) String() string {
	return "sigmoid"
}

var sigmoid = Sigmoid{}
