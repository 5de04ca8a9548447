package galoismat

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xtaci/stripecodec/gf8"
)

func TestVandermondeProperty(t *testing.T) {
	g := Vandermonde(4, 10)
	for i := 0; i < 4; i++ {
		for j := 0; j < 10; j++ {
			require.Equal(t, gf8.Exp(byte(j+1), i), g[i][j], "G[%d][%d]", i, j)
		}
	}
}

func TestInvertRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 50; trial++ {
		n := 2 + rng.Intn(8)
		m := randomInvertible(rng, n)
		inv, err := m.Invert()
		require.NoError(t, err)

		prod, err := m.Multiply(inv)
		require.NoError(t, err)
		require.True(t, isIdentity(prod), "trial %d: M*M^-1 != I", trial)
	}
}

func TestInvertSingularReturnsError(t *testing.T) {
	m := New(3, 3)
	// all-zero matrix is singular
	_, err := m.Invert()
	require.ErrorIs(t, err, ErrSingular)
}

func TestRepairRecoveryMatrixIsInvertible(t *testing.T) {
	// The 10x10 recovery matrix from spec.md §4.5: 8 identity rows for
	// surviving data columns 2..9, plus the two degree-0/1 Vandermonde
	// rows for the parities.
	r := New(10, 10)
	for c := 2; c < 10; c++ {
		r[c-2][c] = 1
	}
	for col := 0; col < 10; col++ {
		r[8][col] = 1
		r[9][col] = byte(col + 1)
	}
	_, err := r.Invert()
	require.NoError(t, err)
}

func randomInvertible(rng *rand.Rand, n int) Matrix {
	for {
		m := New(n, n)
		for i := range m {
			for j := range m[i] {
				m[i][j] = byte(rng.Intn(256))
			}
		}
		if _, err := m.Invert(); err == nil {
			return m
		}
	}
}

func isIdentity(m Matrix) bool {
	for i := range m {
		for j := range m[i] {
			want := byte(0)
			if i == j {
				want = 1
			}
			if m[i][j] != want {
				return false
			}
		}
	}
	return true
}
