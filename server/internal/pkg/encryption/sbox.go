package encryption

// GenerateSBox builds a 256-byte substitution box from a 128-bit key using an
// RC4-style key scheduling pass. Key byte i is taken from the least
// significant end, so key[15] feeds the first swap.
func GenerateSBox(key Key) [256]byte {
	var box [256]byte
	for i := range box {
		box[i] = byte(i)
	}

	var j byte
	for i := 0; i < 256; i++ {
		j += box[i] + key[KasumiKeySize-1-i%KasumiKeySize]
		box[i], box[j] = box[j], box[i]
	}
	return box
}
