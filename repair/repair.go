// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package repair implements single-node repair (component C5): reconstruct
// one lost data node from a fraction of the surviving stripe, instead of
// running a full RS decode over every sub-stripe.
//
// The pairing transform (package pairing) pairs data column colA at the
// "low" sub-stripe of a group with data column colB at its "high" partner:
// fdata[sLo][colA] stores A' = A⊕e1·B, fdata[sHi][colB] stores B' = A⊕B,
// where A is colA's original value at sLo and B is colB's original value at
// sHi. colB's cell at sLo and colA's cell at sHi are never touched by the
// level and stay pure always.
//
// Losing colA's node erases A' at sLo and the pure cell at sHi; sLo is an
// ordinary single-erasure decode (colB is pure there), and once that
// recovers A, sHi's contaminated colB cell reduces to a plain XOR (B = B'
// ⊕ A) before its own single-erasure decode for colA's pure cell there.
// Losing colB's node leaves colA's A' readable at sLo, but that cell is
// itself contaminated with the now-unrecoverable-by-reading B — so sLo's
// two true unknowns (colA and colB at sLo) must be solved jointly, and the
// high sub-stripe's lost cell is then recovered algebraically from A'
// without ever reading sHi. Either way, both cells of the pairing end up
// restored to their pure, original values.
package repair

import (
	"github.com/pkg/errors"

	"github.com/xtaci/stripecodec/codecerr"
	"github.com/xtaci/stripecodec/galoismat"
	"github.com/xtaci/stripecodec/gf8"
	"github.com/xtaci/stripecodec/pairing"
)

// Engine recovers a single lost data node from stripe-major buffers in
// which every pairing level except the one governing the lost node's
// column has already been inverted (package pairing's Inverse, run with
// that one level skipped).
type Engine struct {
	K, M, BlockSize int
}

// New builds an Engine for the given geometry.
func New(k, m, blockSize int) Engine {
	return Engine{K: k, M: m, BlockSize: blockSize}
}

// Repair reconstructs data node `lost` (0 <= lost < K) in place across all
// M sub-stripes of fdata, using fdata's other data columns and fcoding's
// parity columns 0 and 1. fdata must have M rows of K*BlockSize bytes (with
// `lost`'s column currently zeroed or garbage — it is fully overwritten);
// fcoding must have M rows of at least 2*BlockSize bytes, already
// pairing-inverted.
//
// Contamination left by the un-invertible pairing level (A' in colA at the
// low sub-stripes when colB is lost, B' in colB at the high sub-stripes
// when colA is lost) is corrected in place as a side effect, matching
// spec.md's "both original cells restored" step.
func (e Engine) Repair(lost int, fdata, fcoding [][]byte) error {
	level, colA, colB, delta, ok := pairing.DataLevelFor(lost)
	if !ok || lost < 0 || lost >= e.K {
		return errors.Wrapf(codecerr.ErrTooManyErasures, "repair: column %d out of range", lost)
	}
	_, e1l := pairing.LevelConstants(level)

	t := pairing.Transform{M: e.M, BlockSize: e.BlockSize}
	pairs := t.Pairs(delta)

	if lost == colA {
		return e.repairColA(pairs, colA, colB, fdata, fcoding)
	}
	return e.repairColB(pairs, colA, colB, e1l, fdata, fcoding)
}

// repairColA handles the case where the "A-role" node is lost. At the low
// sub-stripe colB is pure, so colA there is an ordinary single-erasure
// decode. At the high sub-stripe colB is contaminated with B' = A⊕B (this
// level's own forward map, never inverted) — but A is now known from the
// low sub-stripe, so B = B' ⊕ A is recovered with a plain XOR, no reading
// required. Only once that contamination is cleared does colA's own pure
// cell at the high sub-stripe become an ordinary single-erasure decode too.
func (e Engine) repairColA(pairs [][2]int, colA, colB int, fdata, fcoding [][]byte) error {
	for _, p := range pairs {
		sLo, sHi := p[0], p[1]

		knownLo := e.knownDataCols(fdata[sLo], colA)
		recoveredLo, err := recoverColumns(e.cell(fdata[sLo], colA), knownLo,
			[][]byte{e.cell(fcoding[sLo], 0)}, []int{colA})
		if err != nil {
			return err
		}
		copy(e.cell(fdata[sLo], colA), recoveredLo[0])

		// B = B' ⊕ A, per the forward relation B' = A⊕B.
		bOrig := append([]byte(nil), e.cell(fdata[sHi], colB)...)
		gf8.XORRegion(recoveredLo[0], bOrig)
		copy(e.cell(fdata[sHi], colB), bOrig)

		knownHi := e.knownDataCols(fdata[sHi], colA)
		recoveredHi, err := recoverColumns(e.cell(fdata[sHi], colA), knownHi,
			[][]byte{e.cell(fcoding[sHi], 0)}, []int{colA})
		if err != nil {
			return err
		}
		copy(e.cell(fdata[sHi], colA), recoveredHi[0])
	}
	return nil
}

// repairColB handles the case where the "B-role" node is lost: the low
// sub-stripe requires a joint 2-unknown solve (colA and colB both
// untrustworthy there), and the high sub-stripe's answer is derived purely
// algebraically from the now-fixed colA value and the forward-pair
// relation, without reading any of the high sub-stripe's cells.
func (e Engine) repairColB(pairs [][2]int, colA, colB int, e1l byte, fdata, fcoding [][]byte) error {
	for _, p := range pairs {
		sLo, sHi := p[0], p[1]

		aPrime := append([]byte(nil), e.cell(fdata[sLo], colA)...) // A' as currently stored

		known := e.knownDataCols(fdata[sLo], colA, colB)
		recovered, err := recoverColumns(e.cell(fdata[sLo], colA), known,
			[][]byte{e.cell(fcoding[sLo], 0), e.cell(fcoding[sLo], 1)}, []int{colA, colB})
		if err != nil {
			return err
		}
		aOrigLo, bOrigLo := recovered[0], recovered[1]

		// Fix the contaminated colA cell and fill in colB at sLo.
		copy(e.cell(fdata[sLo], colA), aOrigLo)
		copy(e.cell(fdata[sLo], colB), bOrigLo)

		// B_orig(sHi) = (A' ^ A_orig(sLo)) * e1[level]^-1, derived from
		// A' = A_orig(sLo) ^ e1*B_orig(sHi) without touching sHi at all.
		bOrigHi := make([]byte, e.BlockSize)
		gf8.XORRegion(aOrigLo, aPrime)
		gf8.MulRegion(aPrime, gf8.Inv(e1l), bOrigHi, false)
		copy(e.cell(fdata[sHi], colB), bOrigHi)
	}
	return nil
}

func (e Engine) cell(row []byte, col int) []byte {
	return row[col*e.BlockSize : (col+1)*e.BlockSize]
}

// knownDataCols returns every data column of a sub-stripe row except the
// given excluded ones, as a column->bytes map for recoverColumns.
func (e Engine) knownDataCols(row []byte, exclude ...int) map[int][]byte {
	skip := make(map[int]bool, len(exclude))
	for _, c := range exclude {
		skip[c] = true
	}
	out := make(map[int][]byte, e.K-len(exclude))
	for c := 0; c < e.K; c++ {
		if skip[c] {
			continue
		}
		out[c] = e.cell(row, c)
	}
	return out
}

// recoverColumns solves for the values of unknownCols at one sub-stripe,
// given the sub-stripe's other (known, pure) data columns and exactly
// len(unknownCols) of its parity blocks, taken in ascending parity-row
// order starting at row 0. This is the RS generator relation restricted to
// the unknown columns: moving every known column's contribution to the
// right-hand side leaves a len(unknownCols) x len(unknownCols) system.
//
// The `sample` argument only supplies the block size for output allocation.
func recoverColumns(sample []byte, known map[int][]byte, parities [][]byte, unknownCols []int) ([][]byte, error) {
	u := len(unknownCols)
	blockSize := len(sample)

	sys := galoismat.New(u, u)
	rhs := make(galoismat.Matrix, u)
	for row := 0; row < u; row++ {
		for idx, col := range unknownCols {
			sys[row][idx] = gf8.Exp(byte(col+1), row)
		}
		acc := make([]byte, blockSize)
		copy(acc, parities[row])
		for col, data := range known {
			coef := gf8.Exp(byte(col+1), row)
			gf8.MulRegion(data, coef, acc, true)
		}
		rhs[row] = acc
	}

	inv, err := sys.Invert()
	if err != nil {
		return nil, errors.Wrap(codecerr.ErrRecoveryMatrixSingular, err.Error())
	}
	return inv.Multiply(rhs)
}
