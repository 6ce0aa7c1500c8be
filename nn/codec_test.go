package nn

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"fcnet/mlp"
)

func TestDumpsLoadsRoundTrip(t *testing.T) {
	c, err := New([]int{4, 3, 2}, WithSeed(8))
	require.NoError(t, err)
	x, y := toySet()
	cfg := toyConfig()
	cfg.MaxIter = 10
	require.NoError(t, c.Train(x, y, cfg))

	data, err := Dumps(c)
	require.NoError(t, err)
	restored, err := Loads(data)
	require.NoError(t, err)

	assert.Equal(t, c.Sizes(), restored.Sizes())
	assert.Equal(t, c.BatchSize(), restored.BatchSize())
	want := c.Params()
	for k, p := range restored.Params() {
		if k == len(want)-1 {
			assert.Nil(t, p.Theta)
			assert.Nil(t, p.Bias)
			continue
		}
		assert.True(t, mat.Equal(want[k].Theta, p.Theta), "layer %d theta", k)
		assert.True(t, mat.Equal(want[k].Bias, p.Bias), "layer %d bias", k)
	}

	a, err := c.PredictProb(x)
	require.NoError(t, err)
	b, err := restored.PredictProb(x)
	require.NoError(t, err)
	assert.True(t, mat.Equal(a, b))
}

func TestDumpLoadFile(t *testing.T) {
	c, err := New([]int{2, 2}, WithSeed(4))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "model.gob")

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, Dump(f, c))
	require.NoError(t, f.Close())

	f, err = os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	restored, err := Load(f)
	require.NoError(t, err)
	assert.True(t, mat.Equal(c.Params()[0].Theta, restored.Params()[0].Theta))
}

func TestLoadsCorrupt(t *testing.T) {
	_, err := Loads([]byte("not a model"))
	require.ErrorIs(t, err, ErrCorruptModel)

	var buf bytes.Buffer
	c, err := New([]int{2, 2})
	require.NoError(t, err)
	require.NoError(t, Dump(&buf, c))
	data := buf.Bytes()
	_, err = Loads(data[:len(data)/2])
	require.ErrorIs(t, err, ErrCorruptModel)
}

func encodeModel(t *testing.T, f modelFile) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(&f))
	return buf.Bytes()
}

func TestLoadsRejectsSizesNotBackedByLayers(t *testing.T) {
	huge := 1 << 31
	data := encodeModel(t, modelFile{Version: modelVersion, Sizes: []int{huge, huge}, Layers: []layerBlob{{}, {}}})
	require.NotPanics(t, func() {
		_, err := Loads(data)
		require.ErrorIs(t, err, ErrCorruptModel)
	})

	c, err := New([]int{2, 2})
	require.NoError(t, err)
	p := c.Params()[0]
	bias, err := p.Bias.MarshalBinary()
	require.NoError(t, err)
	theta, err := p.Theta.MarshalBinary()
	require.NoError(t, err)
	blob := layerBlob{Bias: bias, Theta: theta}

	_, err = Loads(encodeModel(t, modelFile{Version: modelVersion, Sizes: []int{huge, 2}, Layers: []layerBlob{blob, {}}}))
	require.ErrorIs(t, err, ErrCorruptModel)

	_, err = Loads(encodeModel(t, modelFile{Version: modelVersion, Sizes: []int{2, 2}, Layers: []layerBlob{blob, blob}}))
	require.ErrorIs(t, err, ErrCorruptModel, "output layer with parameters")

	_, err = Loads(encodeModel(t, modelFile{Version: modelVersion, Sizes: []int{2, 0}, Layers: []layerBlob{blob, {}}}))
	require.ErrorIs(t, err, ErrCorruptModel)

	restored, err := Loads(encodeModel(t, modelFile{Version: modelVersion, Sizes: []int{2, 2}, Layers: []layerBlob{blob, {}}}))
	require.NoError(t, err)
	assert.True(t, mat.Equal(p.Theta, restored.Params()[0].Theta))
}

func TestStandardizationRoundTrip(t *testing.T) {
	c, err := New([]int{3, 2})
	require.NoError(t, err)
	mean, std := c.Standardization()
	assert.Nil(t, mean)
	assert.Nil(t, std)

	require.ErrorIs(t, c.SetStandardization([]float64{1, 2}, []float64{1, 1}), mlp.ErrShapeMismatch)
	require.NoError(t, c.SetStandardization([]float64{1, 2, 3}, []float64{0.5, 1, 0}))

	data, err := Dumps(c)
	require.NoError(t, err)
	restored, err := Loads(data)
	require.NoError(t, err)
	mean, std = restored.Standardization()
	assert.Equal(t, []float64{1, 2, 3}, mean)
	assert.Equal(t, []float64{0.5, 1, 0}, std)

	bad := encodeModel(t, modelFile{Version: modelVersion, Sizes: []int{3, 2}, Layers: mustBlobs(t, c), Mean: []float64{1}})
	_, err = Loads(bad)
	require.ErrorIs(t, err, ErrCorruptModel)
}

func mustBlobs(t *testing.T, c *Classifier) []layerBlob {
	t.Helper()
	var f modelFile
	data, err := Dumps(c)
	require.NoError(t, err)
	require.NoError(t, gob.NewDecoder(bytes.NewReader(data)).Decode(&f))
	return f.Layers
}
