package cipher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"Kasumi/server/internal/pkg/encryption"
	"Kasumi/server/internal/pkg/encryption/modes"
	"Kasumi/server/internal/pkg/galois"
	"Kasumi/server/internal/pkg/helpers"
	"Kasumi/server/internal/protocol"
)

var ErrMissingIV = errors.New("mode requires an IV")

// OperationRecorder stores an audit trail of cipher calls
type OperationRecorder interface {
	RecordOperation(ctx context.Context, op protocol.Operation) error
}

// Request is one encrypt or decrypt call. Text is UTF-8 plaintext when
// encrypting and hex ciphertext when decrypting.
type Request struct {
	RequestID string
	ClientID  int64
	Mode      string
	KeyHex    string
	IVHex     string
	Text      string
}

// Response carries hex ciphertext after encryption, or the recovered text
// (trailing zero bytes trimmed) after decryption
type Response struct {
	Mode      string
	Direction modes.Direction
	Output    string
	Blocks    int
	Integrity modes.Integrity
}

// ToProtocol converts the response for the wire
func (r *Response) ToProtocol(id string) protocol.CipherResponse {
	return protocol.CipherResponse{
		ID:        id,
		Mode:      r.Mode,
		Direction: r.Direction.String(),
		Output:    r.Output,
		Blocks:    r.Blocks,
		Integrity: r.Integrity.String(),
	}
}

type Service struct {
	field            *galois.Field
	recorder         OperationRecorder
	broadcastHandler func(event interface{})
	log              *logrus.Entry
}

// NewService creates a cipher service over a GF(2^16) field. recorder may be nil.
func NewService(field *galois.Field, recorder OperationRecorder) (*Service, error) {
	if field == nil || field.Degree() != 16 {
		return nil, encryption.ErrFieldDegree
	}
	return &Service{
		field:    field,
		recorder: recorder,
		log:      helpers.NewLogger("CipherService"),
	}, nil
}

// SetBroadcastHandler sets the callback for broadcasting events
func (s *Service) SetBroadcastHandler(handler func(event interface{})) {
	s.broadcastHandler = handler
}

// SetLogger replaces the service logger
func (s *Service) SetLogger(log *logrus.Entry) {
	s.log = log
}

// Field returns the field the FL function runs in
func (s *Service) Field() *galois.Field {
	return s.field
}

// Encrypt encrypts UTF-8 text and returns hex ciphertext
func (s *Service) Encrypt(ctx context.Context, req Request) (*Response, error) {
	return s.process(ctx, req, modes.Encrypt)
}

// Decrypt decrypts hex ciphertext. A GCM tag mismatch is not an error: the
// recovered text is returned with Integrity set to Tampered.
func (s *Service) Decrypt(ctx context.Context, req Request) (*Response, error) {
	return s.process(ctx, req, modes.Decrypt)
}

func (s *Service) process(ctx context.Context, req Request, dir modes.Direction) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode, cipher, iv, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	var blocks []uint64
	if dir == modes.Encrypt {
		blocks = encryption.BytesToBlocks([]byte(req.Text))
	} else {
		blocks, err = encryption.HexToBlocks(req.Text)
		if err != nil {
			return nil, err
		}
	}

	s.log.WithFields(logrus.Fields{
		"mode":      mode.Name(),
		"direction": dir.String(),
		"blocks":    len(blocks),
		"client_id": req.ClientID,
	}).Debug("processing cipher request")

	result, err := mode.Process(cipher, blocks, iv, dir)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", mode.Name(), dir, err)
	}

	resp := &Response{
		Mode:      mode.Name(),
		Direction: dir,
		Blocks:    len(result.Blocks),
		Integrity: result.Integrity,
	}
	if dir == modes.Encrypt {
		resp.Output = encryption.BlocksToHex(result.Blocks)
	} else {
		resp.Output = string(encryption.TrimPlaintext(encryption.BlocksToBytes(result.Blocks)))
	}

	if result.Integrity == modes.Tampered {
		s.reportTampering(req, resp)
	}
	s.record(ctx, req, resp)

	return resp, nil
}

func (s *Service) prepare(req Request) (modes.Mode, *encryption.Kasumi, uint64, error) {
	mode, err := modes.GetMode(req.Mode)
	if err != nil {
		return nil, nil, 0, err
	}

	key, err := encryption.ParseKey(req.KeyHex)
	if err != nil {
		return nil, nil, 0, err
	}

	var iv uint64
	if mode.RequiresIV() {
		if strings.TrimSpace(req.IVHex) == "" {
			return nil, nil, 0, fmt.Errorf("%w: %s", ErrMissingIV, mode.Name())
		}
		iv, err = encryption.ParseBlock(req.IVHex)
		if err != nil {
			return nil, nil, 0, err
		}
	}

	cipher, err := encryption.NewKasumi(key, s.field)
	if err != nil {
		return nil, nil, 0, err
	}
	return mode, cipher, iv, nil
}

func (s *Service) reportTampering(req Request, resp *Response) {
	s.log.WithFields(logrus.Fields{
		"mode":       resp.Mode,
		"client_id":  req.ClientID,
		"request_id": req.RequestID,
	}).Warn("integrity check failed")

	// ClientID 0 would fan the event out to every connection
	if s.broadcastHandler != nil && req.ClientID != 0 {
		s.broadcastHandler(&protocol.WebSocketEvent{
			Type:     "integrity_failure",
			ClientID: req.ClientID,
			Data:     protocol.IntegrityEvent{
				RequestID: req.RequestID,
				ClientID:  req.ClientID,
				Mode:      resp.Mode,
				Blocks:    resp.Blocks,
			},
			Timestamp: time.Now().Unix(),
		})
	}
}

func (s *Service) record(ctx context.Context, req Request, resp *Response) {
	if s.recorder == nil {
		return
	}
	err := s.recorder.RecordOperation(ctx, protocol.Operation{
		ClientID:  req.ClientID,
		Mode:      resp.Mode,
		Direction: resp.Direction.String(),
		Blocks:    resp.Blocks,
		Integrity: resp.Integrity.String(),
		CreatedAt: time.Now().Unix(),
	})
	if err != nil {
		s.log.WithError(err).Error("failed to record operation")
	}
}

// SelfTest encrypts and decrypts text under every registered mode and
// reports whether each round trip reproduced it
func (s *Service) SelfTest(ctx context.Context, keyHex, ivHex, text string) ([]protocol.SelfTestResult, error) {
	if _, err := encryption.ParseKey(keyHex); err != nil {
		return nil, err
	}
	if strings.TrimSpace(ivHex) == "" {
		return nil, ErrMissingIV
	}
	if _, err := encryption.ParseBlock(ivHex); err != nil {
		return nil, err
	}

	names := modes.Names()
	results := make([]protocol.SelfTestResult, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = append(results, s.selfTestMode(ctx, name, keyHex, ivHex, text))
	}
	return results, nil
}

func (s *Service) selfTestMode(ctx context.Context, name, keyHex, ivHex, text string) protocol.SelfTestResult {
	res := protocol.SelfTestResult{Mode: name, Integrity: modes.NotApplicable.String()}

	req := Request{Mode: name, KeyHex: keyHex, IVHex: ivHex, Text: text}
	enc, err := s.Encrypt(ctx, req)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	req.Text = enc.Output
	dec, err := s.Decrypt(ctx, req)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Integrity = dec.Integrity.String()
	res.OK = dec.Output == string(encryption.TrimPlaintext([]byte(text))) && dec.Integrity != modes.Tampered
	return res
}
