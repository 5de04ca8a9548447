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

// Package pairing implements the seven-level pairwise GF(2^8) affine
// transform that mixes block positions across sub-stripes after RS
// encoding, and its exact inverse. See the component design for the
// two-cell affine map and its derivation.
package pairing

import "github.com/xtaci/stripecodec/gf8"

// e and e1 are the fixed mixing constants. e1[l] = e[l] ^ 1.
var e = [7]byte{20, 18, 21, 16, 25, 13, 54}
var e1 = func() [7]byte {
	var v [7]byte
	for i, x := range e {
		v[i] = x ^ 1
	}
	return v
}()

// buffer identifies which stripe-major array a level operates on.
type buffer int

const (
	bufData buffer = iota
	bufCoding
)

// level describes one of the seven pair levels: which buffer, which two
// cell columns (colA is always the "low sub-stripe" cell's column, colB
// the partner's), and the sub-stripe stride between paired rows.
type level struct {
	buf        buffer
	colA, colB int
	delta      int
}

var levels = [7]level{
	{buf: bufData, colA: 1, colB: 0, delta: 1},
	{buf: bufData, colA: 3, colB: 2, delta: 2},
	{buf: bufData, colA: 5, colB: 4, delta: 2},
	{buf: bufData, colA: 7, colB: 6, delta: 2},
	{buf: bufData, colA: 9, colB: 8, delta: 4},
	{buf: bufCoding, colA: 1, colB: 0, delta: 4},
	{buf: bufCoding, colA: 3, colB: 2, delta: 4},
}

// Transform holds the fixed geometry (sub-stripe count, block size) needed
// to slice cells out of the stripe-major buffers.
type Transform struct {
	M         int
	BlockSize int
}

// cell returns the byte slice for sub-stripe s, column c out of the given
// stripe-major buffer (fdata or fcoding), whose rows are the concatenation
// of that sub-stripe's block columns.
func (t Transform) cell(major [][]byte, s, c int) []byte {
	return major[s][c*t.BlockSize : (c+1)*t.BlockSize]
}

// pairs yields every (sLo, sHi) sub-stripe pair for a given stride, in the
// fixed group-of-2*delta schedule described by the component design.
func (t Transform) pairs(delta int) [][2]int {
	out := make([][2]int, 0, t.M/2)
	group := 2 * delta
	for start := 0; start < t.M; start += group {
		for j := 0; j < delta; j++ {
			out = append(out, [2]int{start + j, start + j + delta})
		}
	}
	return out
}

func (t Transform) bufferFor(lv level, fdata, fcoding [][]byte) [][]byte {
	if lv.buf == bufData {
		return fdata
	}
	return fcoding
}

// forwardPair applies the level-ℓ forward map to one (A,B) cell pair:
//
//	A' = A ⊕ e1[ℓ]·B
//	B' = A ⊕ B
//
// scratch must be at least len(A) bytes; its contents are clobbered.
func forwardPair(a, b, scratch []byte, e1l byte) {
	scratch = scratch[:len(b)]
	copy(scratch, b)
	gf8.XORRegion(a, b)                 // b = A ⊕ B  = B'
	gf8.MulRegion(scratch, e1l, a, true) // a = A ⊕ e1·B_orig = A'
}

// inversePair undoes forwardPair:
//
//	B_orig = (A' ⊕ B') ⊗ e[ℓ]⁻¹
//	A_orig = B' ⊕ B_orig
//
// scratch must be at least len(a) bytes; its contents are clobbered.
func inversePair(a, b, scratch []byte, el byte) {
	scratch = scratch[:len(a)]
	copy(scratch, a)
	gf8.XORRegion(b, scratch)                     // scratch = A' ⊕ B'
	gf8.MulRegion(scratch, gf8.Inv(el), scratch, false) // scratch = B_orig
	copy(a, b)                                    // a = B'
	gf8.XORRegion(scratch, a)                     // a = B' ⊕ B_orig = A_orig
	copy(b, scratch)                              // b = B_orig
}

// Forward applies all seven pair levels to fdata/fcoding in order,
// mutating them in place. fdata must have M rows of k*BlockSize bytes;
// fcoding must have M rows of m*BlockSize bytes.
func (t Transform) Forward(fdata, fcoding [][]byte) {
	scratch := make([]byte, t.BlockSize)
	for li, lv := range levels {
		major := t.bufferFor(lv, fdata, fcoding)
		for _, p := range t.pairs(lv.delta) {
			a := t.cell(major, p[0], lv.colA)
			b := t.cell(major, p[1], lv.colB)
			forwardPair(a, b, scratch, e1[li])
		}
	}
}

// Inverse undoes Forward, applying the seven levels in reverse order.
func (t Transform) Inverse(fdata, fcoding [][]byte) {
	t.InverseSkippingLevels(nil, fdata, fcoding)
}

// InverseExcept undoes every level except `skip` (pass -1 to undo all of
// them, equivalent to Inverse). A decode session uses this to invert
// everything but the one level whose data was lost, before handing off to
// package repair.
func (t Transform) InverseExcept(skip int, fdata, fcoding [][]byte) {
	if skip < 0 {
		t.InverseSkippingLevels(nil, fdata, fcoding)
		return
	}
	t.InverseSkippingLevels([]int{skip}, fdata, fcoding)
}

// InverseSkippingLevels undoes every level not listed in skip. A decode
// session uses this when two or more data nodes are lost: any level whose
// two columns disagree on erasure status leaves its surviving column
// contaminated (it cannot be inverted without the lost one), so the
// session skips it here and folds the surviving column into the erasure
// set handed to the per-sub-stripe RS decode instead.
func (t Transform) InverseSkippingLevels(skip []int, fdata, fcoding [][]byte) {
	skipSet := make(map[int]bool, len(skip))
	for _, s := range skip {
		skipSet[s] = true
	}
	scratch := make([]byte, t.BlockSize)
	for li := len(levels) - 1; li >= 0; li-- {
		if skipSet[li] {
			continue
		}
		lv := levels[li]
		major := t.bufferFor(lv, fdata, fcoding)
		for _, p := range t.pairs(lv.delta) {
			a := t.cell(major, p[0], lv.colA)
			b := t.cell(major, p[1], lv.colB)
			inversePair(a, b, scratch, e[li])
		}
	}
}

// DataLevelFor reports which of the five data-buffer levels pairs the given
// data column (0 <= col < 10), along with that level's colA/colB and
// sub-stripe stride. ok is false for a column outside [0,10).
func DataLevelFor(col int) (level, colA, colB, delta int, ok bool) {
	for li, lv := range levels {
		if lv.buf != bufData {
			continue
		}
		if lv.colA == col || lv.colB == col {
			return li, lv.colA, lv.colB, lv.delta, true
		}
	}
	return 0, 0, 0, 0, false
}

// LevelConstants returns e[level] and e1[level].
func LevelConstants(level int) (el, e1l byte) {
	return e[level], e1[level]
}

// Pairs returns the (sLo, sHi) sub-stripe pairs for the given stride, the
// same schedule Forward/Inverse use internally.
func (t Transform) Pairs(delta int) [][2]int {
	return t.pairs(delta)
}
