package protocol

import (
	"time"
)

// CipherMode names a chaining mode accepted at the boundary
type CipherMode string

const (
	ECB  CipherMode = "ECB"
	CBC  CipherMode = "CBC"
	PCBC CipherMode = "PCBC"
	CFB  CipherMode = "CFB"
	OFB  CipherMode = "OFB"
	CTR  CipherMode = "CTR"
	GCM  CipherMode = "GCM"
)

// Integrity values reported in responses
const (
	IntegrityNotApplicable = "n/a"
	IntegrityVerified      = "verified"
	IntegrityTampered      = "tampered"
)

// WebSocket timings
const (
	PongWait     = 60 * time.Second
	PingPeriod   = 30 * time.Second
	WriteTimeout = 10 * time.Second
)

// CipherRequest asks for one encrypt or decrypt operation. Key is 32 hex
// digits, IV 16 hex digits (ignored by ECB). Text is UTF-8 plaintext when
// encrypting and hex ciphertext when decrypting.
type CipherRequest struct {
	ID        string `json:"id,omitempty"`
	Direction string `json:"direction,omitempty"` // "encrypt" or "decrypt", websocket only
	Mode      string `json:"mode"`
	Key       string `json:"key"`
	IV        string `json:"iv,omitempty"`
	Text      string `json:"text"`
}

// CipherResponse is the result of a CipherRequest
type CipherResponse struct {
	ID        string `json:"id,omitempty"`
	Mode      string `json:"mode"`
	Direction string `json:"direction"`
	Output    string `json:"output"`
	Blocks    int    `json:"blocks"`
	Integrity string `json:"integrity"`
}

// SelfTestResult reports the round-trip outcome of one mode
type SelfTestResult struct {
	Mode      string `json:"mode"`
	OK        bool   `json:"ok"`
	Integrity string `json:"integrity"`
	Error     string `json:"error,omitempty"`
}

// FieldParametersResponse describes the field used by the FL function
type FieldParametersResponse struct {
	Degree     uint   `json:"degree"`
	Polynomial uint64 `json:"polynomial"`
	Generator  uint64 `json:"generator"`
}

// Operation is an audit record of one cipher call
type Operation struct {
	ID        int64  `json:"id,omitempty"`
	ClientID  int64  `json:"client_id"`
	Mode      string `json:"mode"`
	Direction string `json:"direction"`
	Blocks    int    `json:"blocks"`
	Integrity string `json:"integrity"`
	CreatedAt int64  `json:"created_at"`
}

// GatewayResponse represents a response sent back to clients
type GatewayResponse struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Status    string      `json:"status"` // "success", "error"
	Data      interface{} `json:"data"`
	Error     string      `json:"error,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// WebSocketEvent represents a real-time event sent over WebSocket
type WebSocketEvent struct {
	Type      string      `json:"type"`      // "integrity_failure", ...
	ClientID  int64       `json:"client_id"` // Target client, 0 for everyone
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// IntegrityEvent data
type IntegrityEvent struct {
	RequestID string `json:"request_id,omitempty"`
	ClientID  int64  `json:"client_id"`
	Mode      string `json:"mode"`
	Blocks    int    `json:"blocks"`
}
