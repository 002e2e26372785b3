package encryption

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// BytesToBlocks splits data into big-endian 64-bit blocks. The last block is
// zero-filled when incomplete.
func BytesToBlocks(data []byte) []uint64 {
	return lo.Map(lo.Chunk(data, KasumiBlockSize), func(chunk []byte, _ int) uint64 {
		var buf [KasumiBlockSize]byte
		copy(buf[:], chunk)
		return binary.BigEndian.Uint64(buf[:])
	})
}

// BlocksToBytes concatenates blocks in big-endian order
func BlocksToBytes(blocks []uint64) []byte {
	out := make([]byte, len(blocks)*KasumiBlockSize)
	for i, b := range blocks {
		binary.BigEndian.PutUint64(out[i*KasumiBlockSize:], b)
	}
	return out
}

// TrimPlaintext strips the zero bytes left by block segmentation. Trailing
// zero bytes that belonged to the original plaintext are stripped as well.
func TrimPlaintext(data []byte) []byte {
	end := len(data)
	for end > 0 && data[end-1] == 0 {
		end--
	}
	return data[:end]
}

// BlocksToHex encodes blocks as 16 lowercase hex digits each
func BlocksToHex(blocks []uint64) string {
	return hex.EncodeToString(BlocksToBytes(blocks))
}

// HexToBlocks decodes a hex string into blocks. Whitespace is ignored and an
// incomplete trailing block is zero-filled.
func HexToBlocks(s string) ([]uint64, error) {
	s = strings.Join(strings.Fields(s), "")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}
	return BytesToBlocks(raw), nil
}
