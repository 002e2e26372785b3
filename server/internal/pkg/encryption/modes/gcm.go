package modes

import (
	"crypto/subtle"
	"encoding/binary"

	"Kasumi/server/internal/pkg/encryption"
	"Kasumi/server/internal/pkg/galois"
)

// GCMMode - Galois Counter Mode over 64-bit blocks. Ciphertext blocks are
// produced like CTR starting at IV+1, and the tag over them is appended as
// one extra block.
type GCMMode struct{}

func (g *GCMMode) Name() string {
	return "GCM"
}

func (g *GCMMode) RequiresIV() bool {
	return true
}

func (g *GCMMode) Process(cipher encryption.BlockCipher, blocks []uint64, iv uint64, dir Direction) (Result, error) {
	if err := checkDirection(dir); err != nil {
		return Result{}, err
	}

	// H depends on the key only, Z on the key and IV
	h := cipher.EncryptBlock(0)
	z := cipher.EncryptBlock(iv)

	if dir == Encrypt {
		if uint64(len(blocks)) > MaxBlocks {
			return Result{}, ErrMessageTooLong
		}

		out := make([]uint64, len(blocks), len(blocks)+1)
		var tag uint64
		for i, block := range blocks {
			out[i] = cipher.EncryptBlock(iv+uint64(i)+1) ^ block
			tag = galois.MultiplyGF64(tag^out[i], h)
		}
		out = append(out, finalizeTag(tag, len(blocks), h, z))
		return Result{Blocks: out}, nil
	}

	if len(blocks) == 0 {
		return Result{}, ErrMissingTag
	}
	body := blocks[:len(blocks)-1]
	received := blocks[len(blocks)-1]
	if uint64(len(body)) > MaxBlocks {
		return Result{}, ErrMessageTooLong
	}

	out := make([]uint64, len(body))
	var tag uint64
	for i, block := range body {
		tag = galois.MultiplyGF64(tag^block, h)
		out[i] = cipher.EncryptBlock(iv+uint64(i)+1) ^ block
	}

	result := Result{Blocks: out, Integrity: Tampered}
	if tagsEqual(finalizeTag(tag, len(body), h, z), received) {
		result.Integrity = Verified
	}
	return result, nil
}

func finalizeTag(tag uint64, n int, h, z uint64) uint64 {
	return galois.MultiplyGF64(tag^uint64(n), h) ^ z
}

func tagsEqual(a, b uint64) bool {
	var x, y [8]byte
	binary.BigEndian.PutUint64(x[:], a)
	binary.BigEndian.PutUint64(y[:], b)
	return subtle.ConstantTimeCompare(x[:], y[:]) == 1
}
