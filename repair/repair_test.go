package repair

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xtaci/stripecodec/pairing"
	"github.com/xtaci/stripecodec/substripe"
)

// buildStripe produces RS-encoded, pairing-forward-transformed fdata/fcoding
// for M sub-stripes of random data, plus the original (pre-transform) data
// for comparison.
func buildStripe(t *testing.T, rng *rand.Rand, k, m, blocksize int) (fdata, fcoding, origData [][]byte) {
	t.Helper()
	const M = 8
	codec, err := substripe.New(k, m)
	require.NoError(t, err)

	fdata = make([][]byte, M)
	fcoding = make([][]byte, M)
	origData = make([][]byte, M)
	for s := 0; s < M; s++ {
		data := make([][]byte, k)
		for i := range data {
			data[i] = make([]byte, blocksize)
			rng.Read(data[i])
		}
		parity, err := codec.Encode(data)
		require.NoError(t, err)

		row := make([]byte, k*blocksize)
		for i, d := range data {
			copy(row[i*blocksize:(i+1)*blocksize], d)
		}
		fdata[s] = row
		origData[s] = append([]byte(nil), row...)

		crow := make([]byte, m*blocksize)
		for i, p := range parity {
			copy(crow[i*blocksize:(i+1)*blocksize], p)
		}
		fcoding[s] = crow
	}

	tr := pairing.Transform{M: M, BlockSize: blocksize}
	tr.Forward(fdata, fcoding)
	return fdata, fcoding, origData
}

// invertAllExceptLevel undoes every pairing level except `skip`, mirroring
// what a decode session does before invoking single-node repair.
func invertAllExceptLevel(fdata, fcoding [][]byte, blocksize, skip int) {
	tr := pairing.Transform{M: len(fdata), BlockSize: blocksize}
	tr.InverseExcept(skip, fdata, fcoding)
}

func TestSingleNodeRepairColBRole(t *testing.T) {
	const k, m, blocksize = 10, 4, 8
	rng := rand.New(rand.NewSource(11))
	fdata, fcoding, orig := buildStripe(t, rng, k, m, blocksize)

	// Data column 0 is the colB role at level 0.
	const lost = 0
	level, _, _, _, ok := pairing.DataLevelFor(lost)
	require.True(t, ok)

	invertAllExceptLevel(fdata, fcoding, blocksize, level)

	for s := range fdata {
		for i := 0; i < blocksize; i++ {
			fdata[s][lost*blocksize+i] = 0
		}
	}

	eng := New(k, m, blocksize)
	require.NoError(t, eng.Repair(lost, fdata, fcoding))

	for s := range fdata {
		got := fdata[s][lost*blocksize : (lost+1)*blocksize]
		want := orig[s][lost*blocksize : (lost+1)*blocksize]
		require.True(t, bytes.Equal(want, got), "sub-stripe %d", s)
	}
	// The partner column's contamination must also be cleared.
	partner := 1
	for s := range fdata {
		got := fdata[s][partner*blocksize : (partner+1)*blocksize]
		want := orig[s][partner*blocksize : (partner+1)*blocksize]
		require.True(t, bytes.Equal(want, got), "partner sub-stripe %d", s)
	}
}

func TestSingleNodeRepairColARole(t *testing.T) {
	const k, m, blocksize = 10, 4, 8
	rng := rand.New(rand.NewSource(12))
	fdata, fcoding, orig := buildStripe(t, rng, k, m, blocksize)

	// Data column 1 is the colA role at level 0.
	const lost = 1
	level, _, _, _, ok := pairing.DataLevelFor(lost)
	require.True(t, ok)

	invertAllExceptLevel(fdata, fcoding, blocksize, level)

	for s := range fdata {
		for i := 0; i < blocksize; i++ {
			fdata[s][lost*blocksize+i] = 0
		}
	}

	eng := New(k, m, blocksize)
	require.NoError(t, eng.Repair(lost, fdata, fcoding))

	for s := range fdata {
		got := fdata[s][lost*blocksize : (lost+1)*blocksize]
		want := orig[s][lost*blocksize : (lost+1)*blocksize]
		require.True(t, bytes.Equal(want, got), "sub-stripe %d", s)
	}
	// The partner column's contamination (B' at the high sub-stripe) must
	// also be cleared.
	partner := 0
	for s := range fdata {
		got := fdata[s][partner*blocksize : (partner+1)*blocksize]
		want := orig[s][partner*blocksize : (partner+1)*blocksize]
		require.True(t, bytes.Equal(want, got), "partner sub-stripe %d", s)
	}
}
