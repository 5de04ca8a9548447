package pairing

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xtaci/stripecodec/gf8"
)

func TestPairMapLinearityScenario4(t *testing.T) {
	// spec scenario 4: level 0, A=[0x01], B=[0x02].
	a := []byte{0x01}
	b := []byte{0x02}
	scratch := make([]byte, 1)

	origA, origB := append([]byte(nil), a...), append([]byte(nil), b...)
	forwardPair(a, b, scratch, e1[0])

	wantA := origA[0] ^ gf8.Mul(e1[0], origB[0])
	require.Equal(t, wantA, a[0])
	require.Equal(t, byte(0x03), b[0])

	inversePair(a, b, scratch, e[0])
	require.Equal(t, origA, a)
	require.Equal(t, origB, b)
}

func TestPairMapLinearityAllLevels(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for lvl := 0; lvl < 7; lvl++ {
		for trial := 0; trial < 20; trial++ {
			n := 1 + rng.Intn(8)
			a := randBytes(rng, n)
			b := randBytes(rng, n)
			origA, origB := append([]byte(nil), a...), append([]byte(nil), b...)
			scratch := make([]byte, n)

			forwardPair(a, b, scratch, e1[lvl])

			wantA := make([]byte, n)
			wantB := make([]byte, n)
			for i := 0; i < n; i++ {
				wantA[i] = origA[i] ^ gf8.Mul(e1[lvl], origB[i])
				wantB[i] = origA[i] ^ origB[i]
			}
			require.True(t, bytes.Equal(wantA, a), "level %d forward A mismatch", lvl)
			require.True(t, bytes.Equal(wantB, b), "level %d forward B mismatch", lvl)
		}
	}
}

func TestPairInvolution(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	tr := Transform{M: 8, BlockSize: 4}
	fdata := make([][]byte, 8)
	fcoding := make([][]byte, 8)
	for s := 0; s < 8; s++ {
		fdata[s] = randBytes(rng, 10*tr.BlockSize)
		fcoding[s] = randBytes(rng, 4*tr.BlockSize)
	}

	origData := cloneRows(fdata)
	origCoding := cloneRows(fcoding)

	tr.Forward(fdata, fcoding)
	// Confirm the transform actually changed something (it is not a no-op).
	require.False(t, rowsEqual(origData, fdata) && rowsEqual(origCoding, fcoding))

	tr.Inverse(fdata, fcoding)
	require.True(t, rowsEqual(origData, fdata))
	require.True(t, rowsEqual(origCoding, fcoding))
}

func TestInverseSkippingLevelsLeavesSkippedLevelUntouched(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	tr := Transform{M: 8, BlockSize: 4}
	fdata := make([][]byte, 8)
	fcoding := make([][]byte, 8)
	for s := 0; s < 8; s++ {
		fdata[s] = randBytes(rng, 10*tr.BlockSize)
		fcoding[s] = randBytes(rng, 4*tr.BlockSize)
	}
	origData := cloneRows(fdata)
	origCoding := cloneRows(fcoding)

	tr.Forward(fdata, fcoding)
	transformed := cloneRows(fdata)

	tr.InverseSkippingLevels([]int{0}, fdata, fcoding)

	// Level 0 pairs data columns 1 and 0: those cells must still carry the
	// forward-transformed values, everything else must be back to original.
	for s := 0; s < 8; s++ {
		require.True(t, bytes.Equal(transformed[s][0:4], fdata[s][0:4]), "sub-stripe %d col0 should remain transformed", s)
		require.True(t, bytes.Equal(transformed[s][4:8], fdata[s][4:8]), "sub-stripe %d col1 should remain transformed", s)
		require.True(t, bytes.Equal(origData[s][8:], fdata[s][8:]), "sub-stripe %d other columns should be inverted", s)
	}
	require.True(t, rowsEqual(origCoding, fcoding))
}

func TestDataLevelForAndPairs(t *testing.T) {
	level, colA, colB, delta, ok := DataLevelFor(1)
	require.True(t, ok)
	require.Equal(t, 0, level)
	require.Equal(t, 1, colA)
	require.Equal(t, 0, colB)
	require.Equal(t, 1, delta)

	_, _, _, _, ok = DataLevelFor(10)
	require.False(t, ok)

	el, e1l := LevelConstants(0)
	require.Equal(t, e[0], el)
	require.Equal(t, e1[0], e1l)

	tr := Transform{M: 8, BlockSize: 4}
	pairs := tr.Pairs(delta)
	require.Equal(t, [][2]int{{0, 1}, {2, 3}, {4, 5}, {6, 7}}, pairs)
}

func randBytes(rng *rand.Rand, n int) []byte {
	b := make([]byte, n)
	rng.Read(b)
	return b
}

func cloneRows(rows [][]byte) [][]byte {
	out := make([][]byte, len(rows))
	for i, r := range rows {
		out[i] = append([]byte(nil), r...)
	}
	return out
}

func rowsEqual(a, b [][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
