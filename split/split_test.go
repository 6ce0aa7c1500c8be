package split

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"fcnet/core/ckkswrapper"
	"fcnet/mlp"
)

var (
	heOnce sync.Once
	heCtx  *ckkswrapper.HeContext
	heErr  error
)

// sharedContext generates keys once for the whole package.
func sharedContext(t *testing.T) *ckkswrapper.HeContext {
	t.Helper()
	heOnce.Do(func() { heCtx, heErr = ckkswrapper.NewHeContext(ckkswrapper.DefaultLiteral) })
	require.NoError(t, heErr)
	return heCtx
}

func setup(t *testing.T, sizes []int) (*mlp.Network, *Server, *Client) {
	t.Helper()
	he := sharedContext(t)
	net, err := mlp.NewNetwork(sizes, 17)
	require.NoError(t, err)

	head, restSizes, restParams := Partition(net.Sizes(), net.Params())
	kit, err := he.GenServerKit(sizes[0] + 1)
	require.NoError(t, err)
	server, err := NewServer(kit, head)
	require.NoError(t, err)
	client, err := NewClient(he, restSizes, restParams)
	require.NoError(t, err)
	return net, server, client
}

func testInput() *mat.Dense {
	return mat.NewDense(3, 4, []float64{
		1, 0, 0.5, -1,
		0.2, 0.4, 0.6, 0.8,
		-2, 1, 0, 3,
	})
}

func TestSplitMatchesPlaintext(t *testing.T) {
	net, server, client := setup(t, []int{4, 3, 2})
	x := testInput()

	want, err := net.Predict(x, 3)
	require.NoError(t, err)
	got, err := RunLocal(server, client, x)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-2), "want %v got %v", mat.Formatted(want), mat.Formatted(got))
	assert.Positive(t, client.Stats.EncryptionTime)
	assert.Positive(t, client.Stats.ServerTime)
}

func TestSplitSingleLayer(t *testing.T) {
	net, server, client := setup(t, []int{4, 2})
	x := testInput()

	want, err := net.Predict(x, 3)
	require.NoError(t, err)
	got, err := RunLocal(server, client, x)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-2))
}

func TestSplitRejectsWrongWidth(t *testing.T) {
	_, server, client := setup(t, []int{4, 2})

	_, err := RunLocal(server, client, mat.NewDense(2, 3, nil))
	require.ErrorIs(t, err, mlp.ErrShapeMismatch)
}

func TestNewServerChecksSpan(t *testing.T) {
	he := sharedContext(t)
	kit, err := he.GenServerKit(4)
	require.NoError(t, err)

	net, err := mlp.NewNetwork([]int{4, 2}, 1)
	require.NoError(t, err)
	_, err = NewServer(kit, net.Head().Params())
	require.ErrorIs(t, err, mlp.ErrShapeMismatch, "4 inputs plus bias need a span of 8")

	_, err = NewServer(kit, mlp.LayerParams{})
	require.ErrorIs(t, err, mlp.ErrShapeMismatch)
}
