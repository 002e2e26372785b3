package galois

import (
	"errors"
	"fmt"
	"math/bits"
)

var (
	ErrUnsupportedDegree = errors.New("unsupported field degree")
	ErrInvalidPolynomial = errors.New("invalid irreducible polynomial")
	ErrInvalidGenerator  = errors.New("invalid generator")
)

// Parameters describes a binary field GF(2^n): its degree, the irreducible
// polynomial (bit i is the coefficient of x^i, bit n included) and a generator
// of the multiplicative group.
type Parameters struct {
	Degree     uint   `json:"degree" yaml:"degree"`
	Polynomial uint64 `json:"polynomial" yaml:"polynomial"`
	Generator  uint64 `json:"generator" yaml:"generator"`
}

// Validate checks that the parameters describe a supported field
func (p Parameters) Validate() error {
	if _, ok := irreduciblePolynomials[p.Degree]; !ok {
		return fmt.Errorf("%w: %d", ErrUnsupportedDegree, p.Degree)
	}
	if bits.Len64(p.Polynomial) != int(p.Degree)+1 {
		return fmt.Errorf("%w: 0x%x is not of degree %d", ErrInvalidPolynomial, p.Polynomial, p.Degree)
	}
	if p.Generator == 0 || p.Generator >= 1<<p.Degree {
		return fmt.Errorf("%w: 0x%x", ErrInvalidGenerator, p.Generator)
	}
	return nil
}

// Verify runs Validate and then checks that the generator really generates
// the multiplicative group, which costs up to 2^n multiplications.
func (p Parameters) Verify() error {
	f, err := NewField(p)
	if err != nil {
		return err
	}
	if !f.IsGenerator(p.Generator) {
		return fmt.Errorf("%w: 0x%x has order %d", ErrInvalidGenerator, p.Generator, f.Order(p.Generator))
	}
	return nil
}

// Field is stateless arithmetic over GF(2^n) for a fixed set of parameters.
// It is safe for concurrent use.
type Field struct {
	params Parameters
	mask   uint64
	high   uint64
	reduce uint64
}

// NewField creates a field from validated parameters
func NewField(params Parameters) (*Field, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	mask := uint64(1)<<params.Degree - 1
	return &Field{
		params: params,
		mask:   mask,
		high:   uint64(1) << (params.Degree - 1),
		reduce: params.Polynomial & mask,
	}, nil
}

// Parameters returns the parameters the field was built from
func (f *Field) Parameters() Parameters {
	return f.params
}

// Degree returns n for GF(2^n)
func (f *Field) Degree() uint {
	return f.params.Degree
}

// Multiply returns a*b mod P. Inputs are truncated to n bits.
func (f *Field) Multiply(a, b uint64) uint64 {
	a &= f.mask
	b &= f.mask

	var result uint64
	for b != 0 {
		if b&1 != 0 {
			result ^= a
		}
		b >>= 1

		carry := a&f.high != 0
		a = (a << 1) & f.mask
		if carry {
			a ^= f.reduce
		}
	}
	return result
}

// Pow raises a to the power e
func (f *Field) Pow(a, e uint64) uint64 {
	result := uint64(1)
	base := a & f.mask
	for e != 0 {
		if e&1 != 0 {
			result = f.Multiply(result, base)
		}
		base = f.Multiply(base, base)
		e >>= 1
	}
	return result
}

// Inverse returns the multiplicative inverse of a, computed as a^(2^n - 2).
// Zero has no inverse; Inverse(0) returns 0.
func (f *Field) Inverse(a uint64) uint64 {
	a &= f.mask
	if a == 0 {
		return 0
	}
	return f.Pow(a, f.mask-1)
}

// Order returns the multiplicative order of a, or 0 for the zero element
func (f *Field) Order(a uint64) uint64 {
	a &= f.mask
	if a == 0 {
		return 0
	}

	res := a
	for order := uint64(1); order <= f.mask; order++ {
		if res == 1 {
			return order
		}
		res = f.Multiply(res, a)
	}
	return 0
}

// IsGenerator reports whether a generates the whole multiplicative group
func (f *Field) IsGenerator(a uint64) bool {
	return f.Order(a) == f.mask
}
