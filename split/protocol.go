// Package split runs the first layer of a network under CKKS encryption: the
// client keeps its features encrypted, the server holding the first layer's
// parameters evaluates the pre-activations blind, and the client finishes the
// forward pass in the clear.
package split

import (
	"encoding/gob"
	"io"

	"github.com/pkg/errors"
)

func init() {
	// Register types for gob encoding
	gob.Register(ForwardPayload{})
	gob.Register(HelloPayload{})
}

// MessageType defines message types for the split inference protocol
type MessageType int

const (
	MsgHello MessageType = iota
	MsgForwardInput
	MsgForwardOutput
	MsgDone
	MsgError
)

// Message represents a message in the split inference protocol
type Message struct {
	Type    MessageType
	Payload interface{}
}

// HelloPayload is the server's first message: the shape of the layer it
// evaluates.
type HelloPayload struct {
	Features int
	Units    int
}

// ForwardPayload carries serialized ciphertexts for one sample. Inputs hold a
// single ciphertext, outputs one per unit of the server's layer.
type ForwardPayload struct {
	BatchID     int
	Ciphertexts [][]byte
}

// Protocol handles split inference communication
type Protocol struct {
	encoder *gob.Encoder
	decoder *gob.Decoder
}

// NewProtocol creates a new protocol handler
func NewProtocol(r io.Reader, w io.Writer) *Protocol {
	p := &Protocol{}
	if w != nil {
		p.encoder = gob.NewEncoder(w)
	}
	if r != nil {
		p.decoder = gob.NewDecoder(r)
	}
	return p
}

// Send sends a message
func (p *Protocol) Send(msg *Message) error {
	return errors.Wrap(p.encoder.Encode(msg), "send")
}

// Receive receives a message
func (p *Protocol) Receive() (*Message, error) {
	var msg Message
	if err := p.decoder.Decode(&msg); err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, errors.Wrap(err, "receive")
	}
	return &msg, nil
}

// SendHello announces the server's layer shape
func (p *Protocol) SendHello(features, units int) error {
	return p.Send(&Message{Type: MsgHello, Payload: HelloPayload{Features: features, Units: units}})
}

// SendForward sends the encrypted input of one sample
func (p *Protocol) SendForward(batchID int, ctBytes []byte) error {
	return p.Send(&Message{
		Type:    MsgForwardInput,
		Payload: ForwardPayload{BatchID: batchID, Ciphertexts: [][]byte{ctBytes}},
	})
}

// SendForwardOutput sends the encrypted pre-activations of one sample
func (p *Protocol) SendForwardOutput(batchID int, cts [][]byte) error {
	return p.Send(&Message{
		Type:    MsgForwardOutput,
		Payload: ForwardPayload{BatchID: batchID, Ciphertexts: cts},
	})
}

// SendDone signals completion
func (p *Protocol) SendDone() error {
	return p.Send(&Message{Type: MsgDone})
}

// SendError sends an error message
func (p *Protocol) SendError(err error) error {
	return p.Send(&Message{
		Type:    MsgError,
		Payload: err.Error(),
	})
}

// receive reads the next message and checks its type. MsgDone turns into
// io.EOF and MsgError into a remote error.
func (p *Protocol) receive(want ...MessageType) (*Message, error) {
	msg, err := p.Receive()
	if err != nil {
		return nil, err
	}
	switch msg.Type {
	case MsgError:
		return nil, errors.Errorf("remote error: %v", msg.Payload)
	case MsgDone:
		return nil, io.EOF
	}
	for _, t := range want {
		if msg.Type == t {
			return msg, nil
		}
	}
	return nil, errors.Errorf("unexpected message type %d", msg.Type)
}

// ReceiveHello receives the server's layer shape
func (p *Protocol) ReceiveHello() (*HelloPayload, error) {
	msg, err := p.receive(MsgHello)
	if err != nil {
		return nil, err
	}
	payload, ok := msg.Payload.(HelloPayload)
	if !ok {
		return nil, errors.New("invalid hello payload type")
	}
	return &payload, nil
}

// ReceiveForward receives a forward payload in either direction
func (p *Protocol) ReceiveForward() (*ForwardPayload, error) {
	msg, err := p.receive(MsgForwardInput, MsgForwardOutput)
	if err != nil {
		return nil, err
	}
	payload, ok := msg.Payload.(ForwardPayload)
	if !ok {
		return nil, errors.New("invalid forward payload type")
	}
	return &payload, nil
}
