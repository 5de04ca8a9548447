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

// Package gf8 is the GF(2^8) arithmetic facade the rest of the codec treats
// as an oracle: region multiply, region XOR and scalar division. Width w=8
// is fixed; there is no generic field-width support here, matching the
// w=8-only scope of the pairing and repair layers that sit on top of it.
package gf8

import "github.com/templexxx/xorsimd"

// polynomial is the irreducible polynomial used to build the field, the
// same one used by the classic Reed-Solomon / Jerasure w=8 tables.
const polynomial = 0x11d

var expTable [512]byte
var logTable [256]byte

func init() {
	x := 1
	for i := 0; i < 255; i++ {
		expTable[i] = byte(x)
		logTable[byte(x)] = byte(i)
		x <<= 1
		if x&0x100 != 0 {
			x ^= polynomial
		}
	}
	for i := 255; i < 512; i++ {
		expTable[i] = expTable[i-255]
	}
}

// Mul returns a⊗b in GF(2^8).
func Mul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return expTable[int(logTable[a])+int(logTable[b])]
}

// Inv returns the multiplicative inverse of a. a must be nonzero.
func Inv(a byte) byte {
	return expTable[255-int(logTable[a])]
}

// Div returns a⊗b⁻¹, i.e. gf_div(a, b).
func Div(a, b byte) byte {
	if a == 0 {
		return 0
	}
	return expTable[int(logTable[a])+255-int(logTable[b])]
}

// Exp returns a raised to the given non-negative power in GF(2^8).
func Exp(a byte, power int) byte {
	if power == 0 {
		return 1
	}
	if a == 0 {
		return 0
	}
	logA := int(logTable[a])
	return expTable[(logA*power)%255]
}

// MulRegion implements gf_mul_region: dst[i] = src[i]⊗c when add is false,
// dst[i] ^= src[i]⊗c when add is true. src and dst may be the same slice.
// A length-0 region is a no-op.
func MulRegion(src []byte, c byte, dst []byte, add bool) {
	n := len(src)
	if n == 0 {
		return
	}
	if c == 0 {
		if !add {
			clear(dst[:n])
		}
		return
	}
	if c == 1 {
		if add {
			xorsimd.Bytes(dst[:n], dst[:n], src[:n])
		} else if &dst[0] != &src[0] {
			copy(dst[:n], src[:n])
		}
		return
	}
	logC := int(logTable[c])
	if add {
		for i := 0; i < n; i++ {
			if src[i] != 0 {
				dst[i] ^= expTable[int(logTable[src[i]])+logC]
			}
		}
		return
	}
	for i := 0; i < n; i++ {
		if src[i] == 0 {
			dst[i] = 0
		} else {
			dst[i] = expTable[int(logTable[src[i]])+logC]
		}
	}
}

// XORRegion implements gf_xor_region: b[i] ^= a[i] for i in [0, n), where
// n is the shorter of the two slices. The region multiply/xor primitives
// are byte-exact and side-effect-free beyond the output buffer.
func XORRegion(a, b []byte) {
	if len(a) == 0 || len(b) == 0 {
		return
	}
	xorsimd.Bytes(b, a, b)
}
