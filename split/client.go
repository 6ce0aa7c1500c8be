package split

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"gonum.org/v1/gonum/mat"

	"fcnet/core/ckkswrapper"
	"fcnet/mlp"
	"fcnet/utils"
)

// Partition separates a network's parameters into the first layer, which the
// server evaluates, and the sizes and parameters of the rest, which stay with
// the client.
func Partition(sizes []int, params []mlp.LayerParams) (head mlp.LayerParams, restSizes []int, restParams []mlp.LayerParams) {
	return params[0], append([]int(nil), sizes[1:]...), params[1:]
}

// Client owns the keys and every layer after the first.
type Client struct {
	he    *ckkswrapper.HeContext
	units int
	rest  *mlp.Network // nil when the server's layer is the last one

	Stats utils.TimingStats
}

// NewClient takes the sizes and parameters returned by Partition.
func NewClient(he *ckkswrapper.HeContext, restSizes []int, restParams []mlp.LayerParams) (*Client, error) {
	if len(restSizes) == 0 || restSizes[0] <= 0 {
		return nil, errors.Wrap(mlp.ErrInvalidConfiguration, "client needs the server layer's unit count")
	}
	c := &Client{he: he, units: restSizes[0]}
	if len(restSizes) == 1 {
		return c, nil
	}
	rest, err := mlp.FromParams(restSizes, restParams)
	if err != nil {
		return nil, errors.Wrap(err, "client layers")
	}
	c.rest = rest
	return c, nil
}

// Predict sends every row of x to the server encrypted, one message per row,
// and returns the network output. The session is closed with MsgDone on
// success and MsgError otherwise.
func (c *Client) Predict(p *Protocol, x mat.Matrix) (*mat.Dense, error) {
	out, err := c.predict(p, x)
	if err != nil {
		_ = p.SendError(err)
		return nil, err
	}
	if err := p.SendDone(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) predict(p *Protocol, x mat.Matrix) (*mat.Dense, error) {
	hello, err := p.ReceiveHello()
	if err != nil {
		return nil, errors.Wrap(err, "handshake")
	}
	r, features := x.Dims()
	if features != hello.Features {
		return nil, errors.Wrapf(mlp.ErrShapeMismatch, "features have %d columns, server expects %d", features, hello.Features)
	}
	if hello.Units != c.units {
		return nil, errors.Wrapf(mlp.ErrShapeMismatch, "server layer has %d units, client expects %d", hello.Units, c.units)
	}
	if r == 0 {
		return nil, errors.Wrap(mlp.ErrShapeMismatch, "features have no rows")
	}

	hidden := mat.NewDense(r, c.units, nil)
	row := make([]float64, features+1)
	for i := 0; i < r; i++ {
		start := time.Now()
		mat.Row(row[:features], i, x)
		row[features] = 1
		ct, err := c.he.Encrypt(row)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
		data, err := ct.MarshalBinary()
		if err != nil {
			return nil, errors.Wrapf(err, "row %d: encode ciphertext", i)
		}
		c.Stats.EncryptionTime += time.Since(start)

		if err := p.SendForward(i, data); err != nil {
			return nil, err
		}
		resp, err := p.ReceiveForward()
		if err == io.EOF {
			return nil, errors.Errorf("row %d: server closed the session", i)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
		if resp.BatchID != i || len(resp.Ciphertexts) != c.units {
			return nil, errors.Errorf("row %d: got %d ciphertexts for sample %d", i, len(resp.Ciphertexts), resp.BatchID)
		}

		start = time.Now()
		if err := c.decryptUnits(hidden.RawRowView(i), resp.Ciphertexts); err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
		c.Stats.DecryptionTime += time.Since(start)
	}

	if c.rest == nil {
		return hidden, nil
	}
	start := time.Now()
	out, err := c.rest.Predict(hidden, r)
	c.Stats.InferenceTime += time.Since(start)
	return out, err
}

// decryptUnits writes sigmoid(slot 0) of every ciphertext into dst.
func (c *Client) decryptUnits(dst []float64, cts [][]byte) error {
	for o, data := range cts {
		ct := rlwe.NewCiphertext(c.he.Params, 1, c.he.Params.MaxLevel())
		if err := ct.UnmarshalBinary(data); err != nil {
			return errors.Wrapf(err, "unit %d: decode ciphertext", o)
		}
		v, err := c.he.Decrypt(ct, 1)
		if err != nil {
			return errors.Wrapf(err, "unit %d", o)
		}
		dst[o] = mlp.Sigmoid{}.Activate(0, o, v[0])
	}
	return nil
}

// RunLocal connects client and server through in-memory pipes and runs one
// session over x.
func RunLocal(server *Server, client *Client, x mat.Matrix) (*mat.Dense, error) {
	toServerR, toServerW := io.Pipe()
	toClientR, toClientW := io.Pipe()

	before := server.Elapsed
	done := make(chan error, 1)
	go func() {
		err := server.Serve(NewProtocol(toServerR, toClientW))
		toServerR.Close()
		toClientW.Close()
		done <- err
	}()

	out, err := client.Predict(NewProtocol(toClientR, toServerW), x)
	toServerW.Close()
	serr := <-done
	client.Stats.ServerTime += server.Elapsed - before
	if err != nil {
		return nil, err
	}
	return out, errors.Wrap(serr, "server")
}
