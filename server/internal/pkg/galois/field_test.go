package galois

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testField(t *testing.T, degree uint) *Field {
	t.Helper()
	polys, err := Polynomials(degree)
	require.NoError(t, err)
	f, err := NewField(Parameters{Degree: degree, Polynomial: polys[0], Generator: 2})
	require.NoError(t, err)
	return f
}

func TestParametersValidate(t *testing.T) {
	type scenario struct {
		params Parameters
		err    error
	}

	scenarios := []scenario{
		{Parameters{Degree: 16, Polynomial: 0x103DD, Generator: 2}, nil},
		{Parameters{Degree: 8, Polynomial: 0x11D, Generator: 2}, nil},
		{Parameters{Degree: 32, Polynomial: 0x1_0000_008D, Generator: 2}, ErrUnsupportedDegree},
		{Parameters{Degree: 16, Polynomial: 0x11D, Generator: 2}, ErrInvalidPolynomial},
		{Parameters{Degree: 8, Polynomial: 0x11D, Generator: 0}, ErrInvalidGenerator},
		{Parameters{Degree: 8, Polynomial: 0x11D, Generator: 0x100}, ErrInvalidGenerator},
	}

	for _, s := range scenarios {
		err := s.params.Validate()
		if s.err == nil {
			assert.NoError(t, err)
		} else {
			assert.ErrorIs(t, err, s.err)
		}
	}
}

func TestMultiplyClosure(t *testing.T) {
	f := testField(t, 8)
	for a := uint64(0); a < 256; a++ {
		for b := uint64(0); b < 256; b++ {
			p := f.Multiply(a, b)
			if p >= 256 {
				t.Fatalf("Multiply(%d, %d) = %d out of range", a, b, p)
			}
			if p != f.Multiply(b, a) {
				t.Fatalf("Multiply is not commutative for %d, %d", a, b)
			}
		}
	}

	f16 := testField(t, 16)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10000; i++ {
		a, b := uint64(rng.Intn(1<<16)), uint64(rng.Intn(1<<16))
		assert.Less(t, f16.Multiply(a, b), uint64(1<<16))
	}
}

func TestMultiplyKnownValues(t *testing.T) {
	f := testField(t, 8)
	// x^7 * x = x^8 = x^4+x^3+x^2+1 under 0x11D
	assert.Equal(t, uint64(0x1D), f.Multiply(0x80, 0x02))
	assert.Equal(t, uint64(0), f.Multiply(0, 0xAB))
	assert.Equal(t, uint64(0xAB), f.Multiply(1, 0xAB))
}

func TestInverse(t *testing.T) {
	for _, degree := range []uint{8, 16} {
		f := testField(t, degree)
		for a := uint64(1); a < 1<<degree; a++ {
			if got := f.Multiply(a, f.Inverse(a)); got != 1 {
				t.Fatalf("degree %d: a=%d * inverse(a) = %d", degree, a, got)
			}
		}
	}
}

func TestInverseOfZero(t *testing.T) {
	f := testField(t, 16)
	assert.Equal(t, uint64(0), f.Inverse(0))
}

func TestOrder(t *testing.T) {
	f := testField(t, 8)
	assert.True(t, f.IsGenerator(2))
	assert.Equal(t, uint64(51), f.Order(3))
	assert.False(t, f.IsGenerator(3))
	assert.Equal(t, uint64(1), f.Order(1))
	assert.Equal(t, uint64(0), f.Order(0))

	f16 := testField(t, 16)
	assert.True(t, f16.IsGenerator(2))
}

func TestFindParameters(t *testing.T) {
	for _, degree := range []uint{8, 16} {
		rng := rand.New(rand.NewSource(int64(degree)))
		params, err := FindParameters(degree, rng)
		require.NoError(t, err)
		require.NoError(t, params.Validate())

		polys, _ := Polynomials(degree)
		assert.Contains(t, polys, params.Polynomial)

		f, err := NewField(params)
		require.NoError(t, err)
		assert.True(t, f.IsGenerator(params.Generator))
	}

	_, err := FindParameters(12, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrUnsupportedDegree)
}

func TestMultiplyGF64(t *testing.T) {
	assert.Equal(t, uint64(0xda785fc480000001), MultiplyGF64(0x8000000000000000, 2))
	assert.Equal(t, uint64(0x2b1dec67a0f43054), MultiplyGF64(0xdeadbeefcafebabe, 0x0123456789abcdef))
	assert.Equal(t, uint64(0x1234), MultiplyGF64(0x1234, 1))
	assert.Equal(t, uint64(0), MultiplyGF64(0, 0xffffffffffffffff))
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "polynomial.txt")
	store := NewFileStore(path)

	_, err := store.LoadParameters(ctx, 16)
	assert.ErrorIs(t, err, ErrNotFound)

	params := Parameters{Degree: 16, Polynomial: 0x103DD, Generator: 2}
	require.NoError(t, store.SaveParameters(ctx, params))
	require.NoError(t, store.SaveParameters(ctx, Parameters{Degree: 8, Polynomial: 0x11D, Generator: 2}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "8 285 2\n16 66525 2\n", string(content))

	loaded, err := store.LoadParameters(ctx, 16)
	require.NoError(t, err)
	assert.Equal(t, params, loaded)
}

func TestFileStoreMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "polynomial.txt")
	require.NoError(t, os.WriteFile(path, []byte("16 nope 2\n"), 0o644))

	_, err := NewFileStore(path).LoadParameters(context.Background(), 16)
	assert.Error(t, err)
}

func TestFileStoreRejectsNonGenerator(t *testing.T) {
	type scenario struct {
		testName string
		content  string
		expected error
	}

	scenarios := []scenario{
		{"order 51 element", "8 285 3\n", ErrInvalidGenerator},
		{"identity", "8 285 1\n", ErrInvalidGenerator},
		{"primitive element", "8 285 2\n", nil},
	}

	for _, s := range scenarios {
		t.Run(s.testName, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "polynomial.txt")
			require.NoError(t, os.WriteFile(path, []byte(s.content), 0o644))

			_, err := NewFileStore(path).LoadParameters(context.Background(), 8)
			if s.expected == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, s.expected)
			}
		})
	}
}

func TestParametersVerify(t *testing.T) {
	assert.NoError(t, Parameters{Degree: 16, Polynomial: 0x103DD, Generator: 2}.Verify())
	assert.ErrorIs(t, Parameters{Degree: 8, Polynomial: 0x11D, Generator: 3}.Verify(), ErrInvalidGenerator)
	assert.ErrorIs(t, Parameters{Degree: 8, Polynomial: 0x11D, Generator: 0}.Verify(), ErrInvalidGenerator)

	store := NewFileStore(filepath.Join(t.TempDir(), "polynomial.txt"))
	err := store.SaveParameters(context.Background(), Parameters{Degree: 8, Polynomial: 0x11D, Generator: 3})
	assert.ErrorIs(t, err, ErrInvalidGenerator)
}

func TestEnsure(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "polynomial.txt"))

	first, err := Ensure(ctx, store, 8, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	// a second call must reuse the stored parameters regardless of the rng
	second, err := Ensure(ctx, store, 8, rand.New(rand.NewSource(99)))
	require.NoError(t, err)
	assert.Equal(t, first.Parameters(), second.Parameters())
}
