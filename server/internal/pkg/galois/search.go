package galois

import (
	"fmt"
	"math/rand"
)

// Known irreducible polynomials, keyed by degree.
var irreduciblePolynomials = map[uint][]uint64{
	8: {
		0x11D, // x^8+x^4+x^3+x^2+1
		0x12B, // x^8+x^5+x^3+x+1
		0x15F, // x^8+x^6+x^4+x^3+x^2+x+1
		0x163, // x^8+x^6+x^5+x+1
		0x165, // x^8+x^6+x^5+x^2+1
		0x169, // x^8+x^6+x^5+x^3+1
		0x1C3, // x^8+x^7+x^6+x+1
		0x1E7, // x^8+x^7+x^6+x^5+x^2+x+1
	},
	16: {
		0x103DD, // x^16+x^9+x^8+x^7+x^6+x^4+x^3+x^2+1
		0x1100B, // x^16+x^12+x^3+x+1
		0x11085, // x^16+x^12+x^7+x^2+1
		0x136C3, // x^16+x^13+x^12+x^10+x^9+x^7+x^6+x+1
		0x138CB, // x^16+x^13+x^12+x^11+x^7+x^6+x^3+x+1
		0x13C47, // x^16+x^13+x^12+x^11+x^10+x^6+x^2+x+1
		0x1450B, // x^16+x^14+x^10+x^8+x^3+x+1
		0x1706D, // x^16+x^14+x^13+x^12+x^6+x^5+x^3+x^2+1
		0x17481, // x^16+x^14+x^13+x^12+x^10+x^7+1
		0x1846F, // x^16+x^15+x^10+x^6+x^5+x^3+x^2+x+1
		0x18BB7, // x^16+x^15+x^11+x^9+x^8+x^7+x^5+x^4+x^2+x+1
		0x18CEF, // x^16+x^15+x^11+x^10+x^7+x^6+x^5+x^3+x^2+x+1
		0x18E47, // x^16+x^15+x^11+x^10+x^9+x^6+x^2+x+1
		0x18F57, // x^16+x^15+x^11+x^10+x^9+x^8+x^6+x^4+x^2+x+1
	},
}

// Polynomials returns the irreducible polynomials known for a degree
func Polynomials(degree uint) ([]uint64, error) {
	polys, ok := irreduciblePolynomials[degree]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedDegree, degree)
	}
	out := make([]uint64, len(polys))
	copy(out, polys)
	return out, nil
}

// FindParameters picks a random irreducible polynomial of the given degree
// and searches for a generator of its multiplicative group. Candidates are
// drawn from [2, 2^n - 1) without replacement.
func FindParameters(degree uint, rng *rand.Rand) (Parameters, error) {
	polys, ok := irreduciblePolynomials[degree]
	if !ok {
		return Parameters{}, fmt.Errorf("%w: %d", ErrUnsupportedDegree, degree)
	}

	params := Parameters{
		Degree:     degree,
		Polynomial: polys[rng.Intn(len(polys))],
		Generator:  1,
	}
	field := &Field{
		params: params,
		mask:   uint64(1)<<degree - 1,
		high:   uint64(1) << (degree - 1),
		reduce: params.Polynomial & (uint64(1)<<degree - 1),
	}

	candidates := make([]uint64, 0, field.mask-2)
	for c := uint64(2); c < field.mask; c++ {
		candidates = append(candidates, c)
	}

	for len(candidates) > 0 {
		i := rng.Intn(len(candidates))
		elem := candidates[i]
		candidates[i] = candidates[len(candidates)-1]
		candidates = candidates[:len(candidates)-1]

		if field.IsGenerator(elem) {
			params.Generator = elem
			return params, nil
		}
	}

	return Parameters{}, fmt.Errorf("%w: no generator for polynomial 0x%x", ErrInvalidPolynomial, params.Polynomial)
}
