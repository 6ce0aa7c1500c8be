// Package ckkswrapper bundles the CKKS objects a split-inference client and
// server need.
package ckkswrapper

import (
	"math/bits"

	"github.com/pkg/errors"
	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/he/hefloat"
)

// DefaultLiteral is a LogN 14 parameter set with a 45 + 9 × 34 bit modulus
// chain and a 2^40 default scale.
var DefaultLiteral = hefloat.ParametersLiteral{
	LogN: 14,
	Q: []uint64{0x200000008001, 0x400018001, // 45 + 9 x 34
		0x3fffd0001, 0x400060001,
		0x400068001, 0x3fff90001,
		0x400080001, 0x4000a8001,
		0x400108001, 0x3ffeb8001},
	P:               []uint64{0x7fffffd8001, 0x7fffffc8001}, // 43, 43
	LogDefaultScale: 40,                                     // Log2 of the scale
}

// HeContext is the key owner's side: it can encrypt and decrypt.
type HeContext struct {
	Params    hefloat.Parameters
	Encoder   *hefloat.Encoder
	Encryptor *rlwe.Encryptor
	Decryptor *rlwe.Decryptor

	kgen *rlwe.KeyGenerator
	sk   *rlwe.SecretKey
	rlk  *rlwe.RelinearizationKey
}

// ServerKit is what the evaluating side gets: no secret key, only the
// evaluation keys it was generated with.
type ServerKit struct {
	Params    hefloat.Parameters
	Encoder   *hefloat.Encoder
	Evaluator *hefloat.Evaluator
	Span      int // largest vector length InnerSum supports
}

// NewHeContext generates fresh keys for the given parameters.
func NewHeContext(lit hefloat.ParametersLiteral) (*HeContext, error) {
	params, err := hefloat.NewParametersFromLiteral(lit)
	if err != nil {
		return nil, errors.Wrap(err, "ckks parameters")
	}
	kgen := hefloat.NewKeyGenerator(params)
	sk, pk := kgen.GenKeyPairNew()
	return &HeContext{
		Params:    params,
		Encoder:   hefloat.NewEncoder(params),
		Encryptor: hefloat.NewEncryptor(params, pk),
		Decryptor: hefloat.NewDecryptor(params, sk),
		kgen:      kgen,
		sk:        sk,
		rlk:       kgen.GenRelinearizationKeyNew(sk),
	}, nil
}

// SpanFor rounds n up to the power of two InnerSum folds over.
func SpanFor(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// GenServerKit builds an evaluator holding the relinearization key and the
// Galois keys for rotations by 1, 2, 4, ... below SpanFor(maxLen).
func (h *HeContext) GenServerKit(maxLen int) (*ServerKit, error) {
	span := SpanFor(maxLen)
	if span > h.Params.MaxSlots() {
		return nil, errors.Errorf("vectors of length %d do not fit in %d slots", maxLen, h.Params.MaxSlots())
	}
	var galEls []uint64
	for k := 1; k < span; k *= 2 {
		galEls = append(galEls, h.Params.GaloisElement(k))
	}
	evk := rlwe.NewMemEvaluationKeySet(h.rlk, h.kgen.GenGaloisKeysNew(galEls, h.sk)...)
	return &ServerKit{
		Params:    h.Params,
		Encoder:   h.Encoder,
		Evaluator: hefloat.NewEvaluator(h.Params, evk),
		Span:      span,
	}, nil
}

// Encrypt packs values into the first slots of a fresh ciphertext.
func (h *HeContext) Encrypt(values []float64) (*rlwe.Ciphertext, error) {
	if len(values) > h.Params.MaxSlots() {
		return nil, errors.Errorf("%d values do not fit in %d slots", len(values), h.Params.MaxSlots())
	}
	pt := hefloat.NewPlaintext(h.Params, h.Params.MaxLevel())
	if err := h.Encoder.Encode(values, pt); err != nil {
		return nil, errors.Wrap(err, "encode")
	}
	ct, err := h.Encryptor.EncryptNew(pt)
	return ct, errors.Wrap(err, "encrypt")
}

// Decrypt returns the real parts of the first n slots of ct.
func (h *HeContext) Decrypt(ct *rlwe.Ciphertext, n int) ([]float64, error) {
	pt := h.Decryptor.DecryptNew(ct)
	decoded := make([]complex128, h.Params.MaxSlots())
	if err := h.Encoder.Decode(pt, decoded); err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = real(decoded[i])
	}
	return out, nil
}

// Dot multiplies ct slot-wise by the plaintext w, encoded at ct's level, and
// folds the first Span slots so that slot 0 holds the inner product.
func (k *ServerKit) Dot(ct *rlwe.Ciphertext, w []float64) (*rlwe.Ciphertext, error) {
	if len(w) > k.Span {
		return nil, errors.Errorf("vector of length %d exceeds span %d", len(w), k.Span)
	}
	pt := hefloat.NewPlaintext(k.Params, ct.Level())
	if err := k.Encoder.Encode(w, pt); err != nil {
		return nil, errors.Wrap(err, "encode weights")
	}
	prod, err := k.Evaluator.MulNew(ct, pt)
	if err != nil {
		return nil, errors.Wrap(err, "multiply")
	}
	return k.InnerSum(prod)
}

// DotCiphertexts is Dot for two encrypted operands; the product is
// relinearized before folding.
func (k *ServerKit) DotCiphertexts(a, b *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	prod, err := k.Evaluator.MulNew(a, b)
	if err != nil {
		return nil, errors.Wrap(err, "multiply")
	}
	if err := k.Evaluator.Relinearize(prod, prod); err != nil {
		return nil, errors.Wrap(err, "relinearize")
	}
	return k.InnerSum(prod)
}

// InnerSum rotates and adds ct in place over Span slots.
func (k *ServerKit) InnerSum(ct *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	for i := 1; i < k.Span; i *= 2 {
		rot, err := k.Evaluator.RotateNew(ct, i)
		if err != nil {
			return nil, errors.Wrapf(err, "rotate by %d", i)
		}
		if err := k.Evaluator.Add(ct, rot, ct); err != nil {
			return nil, errors.Wrap(err, "add")
		}
	}
	return ct, nil
}
