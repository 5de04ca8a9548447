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

// Package codecerr collects the sentinel error kinds the codec surfaces to
// callers. A data-node file that cannot be opened is handled locally by the
// session (marked erased); every other failure is returned wrapped in one of
// these sentinels.
package codecerr

import "errors"

var (
	// ErrBadMetadata is returned when name_meta.txt is missing or
	// malformed. The session aborts before touching any block file.
	ErrBadMetadata = errors.New("stripecodec: metadata missing or malformed")

	// ErrIO marks a block or metadata file I/O failure. A data-node file
	// that cannot be opened is marked erased instead; a missing parity-node
	// file, a short read, or a failed create/write is returned wrapped in
	// ErrIO.
	ErrIO = errors.New("stripecodec: block I/O failure")

	// ErrDecodeInfeasible is returned when more erasures are present than
	// the code can tolerate, or the RS decode's induced subsystem is
	// singular.
	ErrDecodeInfeasible = errors.New("stripecodec: decode infeasible for the given erasure set")

	// ErrRecoveryMatrixSingular is returned by the repair engine if the
	// small per-sub-stripe recovery system it builds from the generator
	// rows is singular. This should be unreachable; seeing it indicates a
	// bug in the evaluation-point construction.
	ErrRecoveryMatrixSingular = errors.New("stripecodec: repair recovery matrix is singular")

	// ErrSizeMismatch is returned when an on-disk block's length is not
	// evenly divisible by M, so it cannot be split into sub-stripes.
	ErrSizeMismatch = errors.New("stripecodec: block length not divisible by sub-stripe count")

	// ErrTooManyErasures is returned by the repair engine when asked to
	// run with anything but exactly one data erasure.
	ErrTooManyErasures = errors.New("stripecodec: single-node repair requires exactly one data erasure")
)
