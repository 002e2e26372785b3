package encryption

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrInvalidKeySize = errors.New("invalid key size")
	ErrInvalidIV      = errors.New("invalid IV")
	ErrInvalidHex     = errors.New("invalid hex input")
	ErrFieldDegree    = errors.New("FL requires a GF(2^16) field")
)

// ParseKey decodes a hexadecimal key of at most 128 bits. A leading 0x is
// allowed and shorter values are left-padded with zeros.
func ParseKey(s string) (Key, error) {
	var key Key
	raw, err := decodeFixedHex(s, KasumiKeySize)
	if err != nil {
		return key, fmt.Errorf("%w: %v", ErrInvalidKeySize, err)
	}
	copy(key[:], raw)
	return key, nil
}

// ParseBlock decodes a hexadecimal value of at most 64 bits, such as an IV
func ParseBlock(s string) (uint64, error) {
	raw, err := decodeFixedHex(s, KasumiBlockSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidIV, err)
	}
	var block uint64
	for _, b := range raw {
		block = block<<8 | uint64(b)
	}
	return block, nil
}

// String returns the key as 32 hex digits
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// GenerateKey reads a random key from r, normally crypto/rand.Reader
func GenerateKey(r io.Reader) (Key, error) {
	var key Key
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return key, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

// GenerateIV reads a random 64-bit IV from r
func GenerateIV(r io.Reader) (uint64, error) {
	var buf [KasumiBlockSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("generate IV: %w", err)
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// decodeFixedHex decodes s into exactly size bytes, left-padding with zeros
func decodeFixedHex(s string, size int) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return nil, errors.New("empty value")
	}
	if len(s) > size*2 {
		return nil, fmt.Errorf("%d hex digits exceed %d bits", len(s), size*8)
	}
	s = strings.Repeat("0", size*2-len(s)) + s

	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return raw, nil
}
