package mlp

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// InitRange bounds the uniform distribution new parameters are drawn from.
const InitRange = 0.12

func randomArray(size int, limit float64, src rand.Source) []float64 {
	dist := distuv.Uniform{
		Min: -limit,
		Max: limit,
		Src: src,
	}

	data := make([]float64, size)
	for i := 0; i < size; i++ {
		data[i] = dist.Rand()
	}
	return data
}

// addBias adds b to every row of m.
func addBias(m *mat.Dense, b *mat.VecDense) {
	r, _ := m.Dims()
	bias := b.RawVector().Data[:b.Len()]
	for i := 0; i < r; i++ {
		floats.Add(m.RawRowView(i), bias)
	}
}

// columnSum writes the sum of m's rows into dst.
func columnSum(dst []float64, m *mat.Dense) {
	for i := range dst {
		dst[i] = 0
	}
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		floats.Add(dst, m.RawRowView(i))
	}
}

type slicer interface {
	mat.Matrix
	Slice(i, k, j, l int) mat.Matrix
}

// rowsOf returns a matrix that supports row slicing, copying m only when it
// has to.
func rowsOf(m mat.Matrix) slicer {
	if s, ok := m.(slicer); ok {
		return s
	}
	return mat.DenseCopyOf(m)
}

func rowRange(s slicer, i, k int) mat.Matrix {
	_, c := s.Dims()
	return s.Slice(i, k, 0, c)
}
