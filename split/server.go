package split

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"gonum.org/v1/gonum/mat"

	"fcnet/core/ckkswrapper"
	"fcnet/mlp"
)

// Server evaluates the first layer of a network on encrypted inputs.
type Server struct {
	kit     *ckkswrapper.ServerKit
	weights [][]float64 // one row per unit: theta row followed by the bias
	in      int

	Elapsed time.Duration
}

// NewServer prepares the layer described by p for encrypted evaluation.
// Inputs are expected to carry a trailing 1 so the bias rides along in the
// inner product.
func NewServer(kit *ckkswrapper.ServerKit, p mlp.LayerParams) (*Server, error) {
	if p.Theta == nil || p.Bias == nil {
		return nil, errors.Wrap(mlp.ErrShapeMismatch, "server layer needs theta and bias")
	}
	out, in := p.Theta.Dims()
	if p.Bias.Len() != out {
		return nil, errors.Wrapf(mlp.ErrShapeMismatch, "bias has length %d, want %d", p.Bias.Len(), out)
	}
	if in+1 > kit.Span {
		return nil, errors.Wrapf(mlp.ErrShapeMismatch, "%d inputs plus bias exceed span %d", in, kit.Span)
	}

	s := &Server{kit: kit, in: in, weights: make([][]float64, out)}
	for o := range s.weights {
		row := make([]float64, in+1)
		mat.Row(row[:in], o, p.Theta)
		row[in] = p.Bias.AtVec(o)
		s.weights[o] = row
	}
	return s, nil
}

func (s *Server) Features() int { return s.in }
func (s *Server) Units() int    { return len(s.weights) }

// Forward returns one ciphertext per unit whose slot 0 holds that unit's
// pre-activation.
func (s *Server) Forward(ct *rlwe.Ciphertext) ([]*rlwe.Ciphertext, error) {
	start := time.Now()
	defer func() { s.Elapsed += time.Since(start) }()

	out := make([]*rlwe.Ciphertext, len(s.weights))
	for o, w := range s.weights {
		res, err := s.kit.Dot(ct, w)
		if err != nil {
			return nil, errors.Wrapf(err, "unit %d", o)
		}
		out[o] = res
	}
	return out, nil
}

// Serve announces the layer shape and answers forward requests until the
// client sends MsgDone. Failures are reported to the client before being
// returned.
func (s *Server) Serve(p *Protocol) error {
	if err := p.SendHello(s.Features(), s.Units()); err != nil {
		return err
	}
	for {
		req, err := p.ReceiveForward()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		resp, err := s.handle(req)
		if err != nil {
			_ = p.SendError(err)
			return err
		}
		if err := p.SendForwardOutput(req.BatchID, resp); err != nil {
			return err
		}
	}
}

func (s *Server) handle(req *ForwardPayload) ([][]byte, error) {
	if len(req.Ciphertexts) != 1 {
		return nil, errors.Errorf("sample %d: expected 1 ciphertext, got %d", req.BatchID, len(req.Ciphertexts))
	}
	ct := rlwe.NewCiphertext(s.kit.Params, 1, s.kit.Params.MaxLevel())
	if err := ct.UnmarshalBinary(req.Ciphertexts[0]); err != nil {
		return nil, errors.Wrapf(err, "sample %d: decode ciphertext", req.BatchID)
	}
	cts, err := s.Forward(ct)
	if err != nil {
		return nil, errors.Wrapf(err, "sample %d", req.BatchID)
	}
	out := make([][]byte, len(cts))
	for o, c := range cts {
		if out[o], err = c.MarshalBinary(); err != nil {
			return nil, errors.Wrapf(err, "sample %d unit %d: encode ciphertext", req.BatchID, o)
		}
	}
	return out, nil
}
