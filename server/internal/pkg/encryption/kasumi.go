package encryption

import (
	"fmt"
	"math/bits"

	"Kasumi/server/internal/pkg/galois"
)

// KeyPrimeConstant is XORed into the key to derive K' and the second S-box
var KeyPrimeConstant = Key{
	0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF,
	0xFE, 0xDC, 0xBA, 0x98, 0x76, 0x54, 0x32, 0x10,
}

// Schedule holds the per-round subkeys and the two key-dependent S-boxes
type Schedule struct {
	KL1, KL2      [KasumiRounds]uint16
	KO1, KO2, KO3 [KasumiRounds]uint16
	KI1, KI2, KI3 [KasumiRounds]uint16
	SBox1, SBox2  [256]byte
}

// DeriveSchedule computes the full key schedule for a key
func DeriveSchedule(key Key) Schedule {
	keyPrime := key.xor(KeyPrimeConstant)
	k := key.words()
	kp := keyPrime.words()

	var s Schedule
	for i := 0; i < KasumiRounds; i++ {
		s.KL1[i] = bits.RotateLeft16(k[i], 1)
		s.KL2[i] = kp[(i+2)%8]
		s.KO1[i] = bits.RotateLeft16(k[(i+1)%8], 5)
		s.KO2[i] = bits.RotateLeft16(k[(i+5)%8], 8)
		s.KO3[i] = bits.RotateLeft16(k[(i+6)%8], 13)
		s.KI1[i] = kp[(i+4)%8]
		s.KI2[i] = kp[(i+3)%8]
		s.KI3[i] = kp[(i+7)%8]
	}

	s.SBox1 = GenerateSBox(key)
	s.SBox2 = GenerateSBox(keyPrime)
	return s
}

// words splits the key into eight 16-bit words, index 0 being the most significant
func (k Key) words() [8]uint16 {
	var w [8]uint16
	for i := range w {
		w[i] = uint16(k[2*i])<<8 | uint16(k[2*i+1])
	}
	return w
}

func (k Key) xor(other Key) Key {
	var out Key
	for i := range k {
		out[i] = k[i] ^ other[i]
	}
	return out
}

// NewKasumi creates the primitive for a key. The field must be GF(2^16); it
// supplies the inverse used by FL.
func NewKasumi(key Key, field *galois.Field) (*Kasumi, error) {
	if field == nil || field.Degree() != 16 {
		return nil, ErrFieldDegree
	}
	return &Kasumi{
		schedule: DeriveSchedule(key),
		field:    field,
	}, nil
}

// Encrypt derives the schedule for key and encrypts a single block
func Encrypt(block uint64, key Key, field *galois.Field) (uint64, error) {
	c, err := NewKasumi(key, field)
	if err != nil {
		return 0, err
	}
	return c.EncryptBlock(block), nil
}

// Decrypt derives the schedule for key and decrypts a single block
func Decrypt(block uint64, key Key, field *galois.Field) (uint64, error) {
	c, err := NewKasumi(key, field)
	if err != nil {
		return 0, err
	}
	return c.DecryptBlock(block), nil
}

// BlockSize returns the block size of Kasumi
func (c *Kasumi) BlockSize() int {
	return KasumiBlockSize
}

// KeySize returns the key size of Kasumi
func (c *Kasumi) KeySize() int {
	return KasumiKeySize
}

// Name returns the cipher name
func (c *Kasumi) Name() string {
	return "KASUMI"
}

// Schedule returns a copy of the derived key schedule
func (c *Kasumi) Schedule() Schedule {
	return c.schedule
}

// String describes the cipher; key material is left out
func (c *Kasumi) String() string {
	return fmt.Sprintf("%s(GF(2^%d), poly=0x%x)", c.Name(), c.field.Degree(), c.field.Parameters().Polynomial)
}

// EncryptBlock runs the eight Feistel rounds
func (c *Kasumi) EncryptBlock(block uint64) uint64 {
	left := uint32(block >> 32)
	right := uint32(block)

	for round := 0; round < KasumiRounds; round++ {
		left, right = right^c.f(left, round), left
	}
	return uint64(left)<<32 | uint64(right)
}

// DecryptBlock runs the rounds in reverse order
func (c *Kasumi) DecryptBlock(block uint64) uint64 {
	left := uint32(block >> 32)
	right := uint32(block)

	for round := KasumiRounds - 1; round >= 0; round-- {
		left, right = right, c.f(right, round)^left
	}
	return uint64(left)<<32 | uint64(right)
}

// f alternates FO and FL depending on round parity
func (c *Kasumi) f(x uint32, round int) uint32 {
	if round%2 == 0 {
		return c.fl(c.fo(x, round), round)
	}
	return c.fo(c.fl(x, round), round)
}

func (c *Kasumi) fo(x uint32, round int) uint32 {
	s := &c.schedule
	left := uint16(x >> 16)
	right := uint16(x)

	left, right = right, c.fi(left^s.KO1[round], s.KI1[round])^right
	left, right = right, c.fi(left^s.KO2[round], s.KI2[round])^right
	left, right = right, c.fi(left^s.KO3[round], s.KI3[round])^right

	return uint32(left)<<16 | uint32(right)
}

// fi mixes the S-box outputs selected by the subkey into x
func (c *Kasumi) fi(x uint16, ki uint16) uint16 {
	z := uint16(c.schedule.SBox1[ki>>8])<<8 | uint16(c.schedule.SBox2[ki&0xff])
	return (x >> 2) ^ z
}

// fl substitutes each half through the field inverse
func (c *Kasumi) fl(x uint32, round int) uint32 {
	left := uint16(x >> 16)
	right := uint16(x)

	rightPrime := c.inverse(right ^ bits.RotateLeft16(left&c.schedule.KL1[round], 1))
	leftPrime := c.inverse(left ^ bits.RotateLeft16(rightPrime|c.schedule.KL2[round], 1))

	return uint32(leftPrime)<<16 | uint32(rightPrime)
}

func (c *Kasumi) inverse(x uint16) uint16 {
	return uint16(c.field.Inverse(uint64(x)))
}
