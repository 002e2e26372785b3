package helpers

import (
	"errors"
	"strings"
	"unicode"

	"Kasumi/server/internal/protocol"
)

// MaxTextLength bounds the text accepted by a single cipher request
const MaxTextLength = 1 << 20

var (
	ErrEmptyMode      = errors.New("mode is required")
	ErrEmptyKey       = errors.New("key is required")
	ErrTextTooLong    = errors.New("text too long")
	ErrInvalidName    = errors.New("client name must be 3-64 letters, digits, '-' or '_'")
	ErrSecretTooShort = errors.New("secret must be at least 8 characters")
)

// ValidateCipherRequest checks the fields every cipher request needs.
// Key, IV and hex contents are checked later by the cipher service.
func ValidateCipherRequest(req protocol.CipherRequest) error {
	if strings.TrimSpace(req.Mode) == "" {
		return ErrEmptyMode
	}
	if strings.TrimSpace(req.Key) == "" {
		return ErrEmptyKey
	}
	if len(req.Text) > MaxTextLength {
		return ErrTextTooLong
	}
	return nil
}

// ValidateClientName checks an API client name
func ValidateClientName(name string) error {
	if len(name) < 3 || len(name) > 64 {
		return ErrInvalidName
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return ErrInvalidName
		}
	}
	return nil
}

// ValidateSecret checks an API client secret
func ValidateSecret(secret string) error {
	if len(secret) < 8 {
		return ErrSecretTooShort
	}
	return nil
}
