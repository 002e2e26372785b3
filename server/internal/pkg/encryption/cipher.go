package encryption

import "Kasumi/server/internal/pkg/galois"

// BlockCipher is the interface the chaining modes drive. Implementations carry
// their key schedule, so one value is bound to one key.
type BlockCipher interface {
	// EncryptBlock encrypts one 64-bit block
	EncryptBlock(block uint64) uint64

	// DecryptBlock decrypts one 64-bit block
	DecryptBlock(block uint64) uint64

	// BlockSize returns the block size in bytes
	BlockSize() int

	// KeySize returns the required key size in bytes
	KeySize() int

	// Name returns the algorithm name
	Name() string
}

const (
	KasumiBlockSize = 8  // 64-bit blocks (8 bytes)
	KasumiKeySize   = 16 // 128-bit key (16 bytes)
	KasumiRounds    = 8
)

// Key is a 128-bit key, most significant byte first
type Key [KasumiKeySize]byte

// Kasumi is the Feistel primitive bound to a derived key schedule
type Kasumi struct {
	schedule Schedule
	field    *galois.Field
}
