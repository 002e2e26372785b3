package modes

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/samber/lo"

	"Kasumi/server/internal/pkg/encryption"
)

var (
	ErrUnknownMode      = errors.New("unknown cipher mode")
	ErrMessageTooLong   = errors.New("message exceeds the counter range")
	ErrMissingTag       = errors.New("ciphertext has no authentication tag")
	ErrUnknownDirection = errors.New("unknown direction")
)

// Direction selects encryption or decryption
type Direction int

const (
	Encrypt Direction = iota
	Decrypt
)

func (d Direction) String() string {
	switch d {
	case Encrypt:
		return "encrypt"
	case Decrypt:
		return "decrypt"
	default:
		return "unknown"
	}
}

// Integrity reports the outcome of tag verification
type Integrity int

const (
	// NotApplicable is reported by modes without a tag and by every encryption
	NotApplicable Integrity = iota
	Verified
	Tampered
)

func (i Integrity) String() string {
	switch i {
	case Verified:
		return "verified"
	case Tampered:
		return "tampered"
	default:
		return "n/a"
	}
}

// Result is the output of one Process call. When Integrity is Tampered the
// blocks are still returned; the caller decides whether to discard them.
type Result struct {
	Blocks    []uint64
	Integrity Integrity
}

// MaxBlocks bounds messages for counter-based modes so the counter offset
// never wraps back onto the tag subkey or a previous keystream block.
const MaxBlocks = math.MaxUint32

// Mode interface defines the chaining mode contract
type Mode interface {
	Process(cipher encryption.BlockCipher, blocks []uint64, iv uint64, dir Direction) (Result, error)
	RequiresIV() bool
	Name() string
}

var registry = map[string]Mode{
	"ECB":  &ECBMode{},
	"CBC":  &CBCMode{},
	"PCBC": &PCBCMode{},
	"CFB":  &CFBMode{},
	"OFB":  &OFBMode{},
	"CTR":  &CTRMode{},
	"GCM":  &GCMMode{},
}

// GetMode returns a Mode implementation for the given mode name
func GetMode(modeName string) (Mode, error) {
	mode, ok := registry[strings.ToUpper(strings.TrimSpace(modeName))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, modeName)
	}
	return mode, nil
}

// Names lists the registered modes in alphabetical order
func Names() []string {
	names := lo.Keys(registry)
	sort.Strings(names)
	return names
}

func checkDirection(dir Direction) error {
	if dir != Encrypt && dir != Decrypt {
		return fmt.Errorf("%w: %d", ErrUnknownDirection, dir)
	}
	return nil
}

// ECBMode - Electronic Codebook Mode (no IV required)
type ECBMode struct{}

func (e *ECBMode) Name() string {
	return "ECB"
}

func (e *ECBMode) RequiresIV() bool {
	return false
}

func (e *ECBMode) Process(cipher encryption.BlockCipher, blocks []uint64, _ uint64, dir Direction) (Result, error) {
	if err := checkDirection(dir); err != nil {
		return Result{}, err
	}

	out := make([]uint64, len(blocks))
	for i, block := range blocks {
		if dir == Encrypt {
			out[i] = cipher.EncryptBlock(block)
		} else {
			out[i] = cipher.DecryptBlock(block)
		}
	}
	return Result{Blocks: out}, nil
}

// CBCMode - Cipher Block Chaining Mode
type CBCMode struct{}

func (c *CBCMode) Name() string {
	return "CBC"
}

func (c *CBCMode) RequiresIV() bool {
	return true
}

func (c *CBCMode) Process(cipher encryption.BlockCipher, blocks []uint64, iv uint64, dir Direction) (Result, error) {
	if err := checkDirection(dir); err != nil {
		return Result{}, err
	}

	out := make([]uint64, len(blocks))
	prevCipherBlock := iv
	for i, block := range blocks {
		if dir == Encrypt {
			out[i] = cipher.EncryptBlock(block ^ prevCipherBlock)
			prevCipherBlock = out[i]
		} else {
			out[i] = cipher.DecryptBlock(block) ^ prevCipherBlock
			prevCipherBlock = block
		}
	}
	return Result{Blocks: out}, nil
}

// PCBCMode - Propagating Cipher Block Chaining Mode
type PCBCMode struct{}

func (p *PCBCMode) Name() string {
	return "PCBC"
}

func (p *PCBCMode) RequiresIV() bool {
	return true
}

func (p *PCBCMode) Process(cipher encryption.BlockCipher, blocks []uint64, iv uint64, dir Direction) (Result, error) {
	if err := checkDirection(dir); err != nil {
		return Result{}, err
	}

	out := make([]uint64, len(blocks))
	prev := iv
	for i, block := range blocks {
		if dir == Encrypt {
			out[i] = cipher.EncryptBlock(block ^ prev)
			prev = out[i] ^ block
		} else {
			out[i] = cipher.DecryptBlock(block) ^ prev
			prev = block ^ out[i]
		}
	}
	return Result{Blocks: out}, nil
}

// CFBMode - Cipher Feedback Mode. The register is always run through the
// forward direction of the cipher.
type CFBMode struct{}

func (c *CFBMode) Name() string {
	return "CFB"
}

func (c *CFBMode) RequiresIV() bool {
	return true
}

func (c *CFBMode) Process(cipher encryption.BlockCipher, blocks []uint64, iv uint64, dir Direction) (Result, error) {
	if err := checkDirection(dir); err != nil {
		return Result{}, err
	}

	out := make([]uint64, len(blocks))
	register := iv
	for i, block := range blocks {
		out[i] = cipher.EncryptBlock(register) ^ block
		if dir == Encrypt {
			register = out[i]
		} else {
			register = block
		}
	}
	return Result{Blocks: out}, nil
}

// OFBMode - Output Feedback Mode
type OFBMode struct{}

func (o *OFBMode) Name() string {
	return "OFB"
}

func (o *OFBMode) RequiresIV() bool {
	return true
}

// Process is the same in both directions
func (o *OFBMode) Process(cipher encryption.BlockCipher, blocks []uint64, iv uint64, dir Direction) (Result, error) {
	if err := checkDirection(dir); err != nil {
		return Result{}, err
	}

	out := make([]uint64, len(blocks))
	keystream := iv
	for i, block := range blocks {
		keystream = cipher.EncryptBlock(keystream)
		out[i] = keystream ^ block
	}
	return Result{Blocks: out}, nil
}

// CTRMode - Counter Mode. The block index is added to the IV rather than
// concatenated with it.
type CTRMode struct{}

func (c *CTRMode) Name() string {
	return "CTR"
}

func (c *CTRMode) RequiresIV() bool {
	return true
}

// Process is the same in both directions
func (c *CTRMode) Process(cipher encryption.BlockCipher, blocks []uint64, iv uint64, dir Direction) (Result, error) {
	if err := checkDirection(dir); err != nil {
		return Result{}, err
	}
	if uint64(len(blocks)) > MaxBlocks {
		return Result{}, ErrMessageTooLong
	}

	out := make([]uint64, len(blocks))
	for i, block := range blocks {
		out[i] = cipher.EncryptBlock(iv+uint64(i)) ^ block
	}
	return Result{Blocks: out}, nil
}
