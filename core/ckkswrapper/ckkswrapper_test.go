package ckkswrapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanFor(t *testing.T) {
	for n, want := range map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 4: 4, 5: 8, 785: 1024} {
		assert.Equal(t, want, SpanFor(n), "n=%d", n)
	}
}

func TestHeContextRoundTrip(t *testing.T) {
	h, err := NewHeContext(DefaultLiteral)
	require.NoError(t, err)

	vals := []float64{3.1415926535, -2, 0.5}
	ct, err := h.Encrypt(vals)
	require.NoError(t, err)
	got, err := h.Decrypt(ct, len(vals))
	require.NoError(t, err)
	for i := range vals {
		assert.InDelta(t, vals[i], got[i], 1e-6)
	}

	_, err = h.Encrypt(make([]float64, h.Params.MaxSlots()+1))
	require.Error(t, err)
}

func TestServerKitDot(t *testing.T) {
	h, err := NewHeContext(DefaultLiteral)
	require.NoError(t, err)
	kit, err := h.GenServerKit(5)
	require.NoError(t, err)
	require.Equal(t, 8, kit.Span)

	x := []float64{0.5, -1, 2, 0.25, 1}
	w := []float64{1, 0.5, -0.25, 4, 0.1}
	var want float64
	for i := range x {
		want += x[i] * w[i]
	}

	ct, err := h.Encrypt(x)
	require.NoError(t, err)
	res, err := kit.Dot(ct, w)
	require.NoError(t, err)
	got, err := h.Decrypt(res, 1)
	require.NoError(t, err)
	assert.InDelta(t, want, got[0], 1e-4)

	a, err := h.Encrypt(x)
	require.NoError(t, err)
	b, err := h.Encrypt(w)
	require.NoError(t, err)
	res, err = kit.DotCiphertexts(a, b)
	require.NoError(t, err)
	got, err = h.Decrypt(res, 1)
	require.NoError(t, err)
	assert.InDelta(t, want, got[0], 1e-4)

	_, err = kit.Dot(ct, make([]float64, 9))
	require.Error(t, err)
}
