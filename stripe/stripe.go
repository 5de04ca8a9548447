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

// Package stripe reshapes block data between the "per-block contiguous"
// layout used on disk (one file per data/parity node, M sub-stripes back to
// back) and the "per-sub-stripe contiguous" layout (fdata/fcoding) that the
// pairing transform and RS codec operate on. Both directions are pure
// permutations; no field arithmetic happens here.
package stripe

import "github.com/pkg/errors"

// Layout describes the fixed geometry shared by every reshaping in this
// package.
type Layout struct {
	K, M      int
	BlockSize int
}

// ToStripeMajor converts a per-block buffer (blocks[i] holding the M
// sub-stripe blocks for column i, back to back) into the per-sub-stripe
// major layout fdata[s], the concatenation of the k (or m) blocks of
// sub-stripe s.
//
// blocks must have length cols (k for data, m for parity) and each
// element length l.M*l.BlockSize.
func (l Layout) ToStripeMajor(blocks [][]byte, cols int) ([][]byte, error) {
	if len(blocks) != cols {
		return nil, errors.Errorf("stripe: expected %d block columns, got %d", cols, len(blocks))
	}
	for i, b := range blocks {
		if len(b) != l.M*l.BlockSize {
			return nil, errors.Wrapf(errNodeSize, "column %d: got %d bytes, want %d", i, len(b), l.M*l.BlockSize)
		}
	}

	major := make([][]byte, l.M)
	for s := 0; s < l.M; s++ {
		row := make([]byte, cols*l.BlockSize)
		for i := 0; i < cols; i++ {
			src := blocks[i][s*l.BlockSize : (s+1)*l.BlockSize]
			copy(row[i*l.BlockSize:(i+1)*l.BlockSize], src)
		}
		major[s] = row
	}
	return major, nil
}

// FromStripeMajor is the inverse of ToStripeMajor: given fdata/fcoding (M
// rows of cols*BlockSize bytes each), it produces cols per-block buffers
// each of length M*BlockSize, suitable for writing to name_k<II>.ext /
// name_m<JJ>.ext.
func (l Layout) FromStripeMajor(major [][]byte, cols int) ([][]byte, error) {
	if len(major) != l.M {
		return nil, errors.Errorf("stripe: expected %d sub-stripes, got %d", l.M, len(major))
	}
	for s, row := range major {
		if len(row) != cols*l.BlockSize {
			return nil, errors.Wrapf(errNodeSize, "sub-stripe %d: got %d bytes, want %d", s, len(row), cols*l.BlockSize)
		}
	}

	blocks := make([][]byte, cols)
	for i := 0; i < cols; i++ {
		col := make([]byte, l.M*l.BlockSize)
		for s := 0; s < l.M; s++ {
			src := major[s][i*l.BlockSize : (i+1)*l.BlockSize]
			copy(col[s*l.BlockSize:(s+1)*l.BlockSize], src)
		}
		blocks[i] = col
	}
	return blocks, nil
}

var errNodeSize = errors.New("stripe: node buffer has the wrong length")
