package galois

// tagReduction holds the low 64 bits of the degree-64 polynomial
// x^64+x^63+x^62+x^60+x^59+x^57+x^54+x^53+x^52+x^51+x^46+x^44+x^43+x^42+x^41+x^40+x^39+x^38+x^34+x^31+1
// used to authenticate ciphertext blocks.
const tagReduction uint64 = 1<<63 | 1<<62 | 1<<60 | 1<<59 | 1<<57 | 1<<54 | 1<<53 | 1<<52 | 1<<51 |
	1<<46 | 1<<44 | 1<<43 | 1<<42 | 1<<41 | 1<<40 | 1<<39 | 1<<38 | 1<<34 | 1<<31 | 1

// MultiplyGF64 multiplies a and b in GF(2^64)
func MultiplyGF64(a, b uint64) uint64 {
	var result uint64
	for b != 0 {
		if b&1 != 0 {
			result ^= a
		}
		b >>= 1

		carry := a>>63 != 0
		a <<= 1
		if carry {
			a ^= tagReduction
		}
	}
	return result
}
