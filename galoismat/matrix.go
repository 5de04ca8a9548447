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

// Package galoismat builds and inverts small matrices over GF(2^8): the RS
// Vandermonde generator (substripe's tests check the RS engine against it),
// and the small per-sub-stripe recovery systems the repair engine inverts.
// Row reduction is done entirely with gf8's
// region/scalar primitives; no floating point linear algebra is involved.
package galoismat

import (
	"github.com/pkg/errors"

	"github.com/xtaci/stripecodec/gf8"
)

// ErrSingular is returned by Invert when the matrix has no inverse over
// GF(2^8).
var ErrSingular = errors.New("galoismat: matrix is singular")

// Matrix is a dense row-major matrix over GF(2^8).
type Matrix [][]byte

// New allocates a rows x cols zero matrix.
func New(rows, cols int) Matrix {
	m := make(Matrix, rows)
	for i := range m {
		m[i] = make([]byte, cols)
	}
	return m
}

// Identity returns the n x n identity matrix.
func Identity(n int) Matrix {
	m := New(n, n)
	for i := 0; i < n; i++ {
		m[i][i] = 1
	}
	return m
}

// Vandermonde builds an m x k matrix whose row i, column j entry is
// (j+1)^i in GF(2^8) — the evaluation-point convention fixed by spec.md's
// data model (p_j = j+1). Row 0 is the all-ones row.
func Vandermonde(rows, cols int) Matrix {
	m := New(rows, cols)
	for j := 0; j < cols; j++ {
		p := byte(j + 1)
		v := byte(1)
		for i := 0; i < rows; i++ {
			m[i][j] = v
			v = gf8.Mul(v, p)
		}
	}
	return m
}

// Rows reports the number of rows.
func (m Matrix) Rows() int { return len(m) }

// Cols reports the number of columns, or 0 for an empty matrix.
func (m Matrix) Cols() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Clone returns a deep copy of m.
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for i, row := range m {
		out[i] = append([]byte(nil), row...)
	}
	return out
}

// augmented returns [m | id] as a single rows x 2*cols matrix, used as the
// Gauss-Jordan working copy for Invert.
func (m Matrix) augmented() Matrix {
	n := m.Rows()
	aug := New(n, 2*n)
	for i := 0; i < n; i++ {
		copy(aug[i][:n], m[i])
		aug[i][n+i] = 1
	}
	return aug
}

// Invert computes m⁻¹ over GF(2^8) via Gauss-Jordan row reduction. m must
// be square. Returns ErrSingular if m has no inverse (a zero pivot column
// cannot be fixed by swapping with any row below it).
func (m Matrix) Invert() (Matrix, error) {
	n := m.Rows()
	if n == 0 || m.Cols() != n {
		return nil, errors.Wrap(ErrSingular, "matrix is not square")
	}

	aug := m.augmented()

	for col := 0; col < n; col++ {
		if aug[col][col] == 0 {
			swapped := false
			for row := col + 1; row < n; row++ {
				if aug[row][col] != 0 {
					aug[col], aug[row] = aug[row], aug[col]
					swapped = true
					break
				}
			}
			if !swapped {
				return nil, ErrSingular
			}
		}

		pivotInv := gf8.Inv(aug[col][col])
		if pivotInv != 1 {
			gf8.MulRegion(aug[col], pivotInv, aug[col], false)
		}

		for row := 0; row < n; row++ {
			if row == col {
				continue
			}
			factor := aug[row][col]
			if factor == 0 {
				continue
			}
			gf8.MulRegion(aug[col], factor, aug[row], true)
		}
	}

	inv := New(n, n)
	for i := 0; i < n; i++ {
		copy(inv[i], aug[i][n:])
	}
	return inv, nil
}

// Multiply computes m * other.
func (m Matrix) Multiply(other Matrix) (Matrix, error) {
	if m.Cols() != other.Rows() {
		return nil, errors.New("galoismat: dimension mismatch in Multiply")
	}
	out := New(m.Rows(), other.Cols())
	for i := 0; i < m.Rows(); i++ {
		for k := 0; k < m.Cols(); k++ {
			if m[i][k] == 0 {
				continue
			}
			gf8.MulRegion(other[k], m[i][k], out[i], true)
		}
	}
	return out, nil
}

// SubMatrix extracts rows [r0,r1) and columns [c0,c1).
func (m Matrix) SubMatrix(r0, c0, r1, c1 int) Matrix {
	out := New(r1-r0, c1-c0)
	for i := r0; i < r1; i++ {
		copy(out[i-r0], m[i][c0:c1])
	}
	return out
}
