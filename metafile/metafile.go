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

// Package metafile reads and writes name_meta.txt, the sidecar file a
// striped session uses to recover its own parameters on decode: original
// filename and size, k/m/w, packet and buffer sizes, coding technique, and
// the read-in count. Out of scope per spec.md: everything about the block
// files themselves, handled by package session.
package metafile

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/xtaci/stripecodec/codecerr"
)

// Technique names the coding technique that produced a stripe. Only
// ReedSolomonVandermonde is ever implemented; the rest of the enum is
// carried because the original tool's metadata format names them
// (spec.md's Non-goal on alternative coding techniques excludes building
// them, not naming them in the file format).
type Technique int

const (
	ReedSolomonVandermonde Technique = iota
	ReedSolomonR6Op
	CauchyOriginal
	CauchyGood
	Liberation
	BlaumRoth
	Liber8tion
	NoCoding
)

func (t Technique) String() string {
	switch t {
	case ReedSolomonVandermonde:
		return "reed_sol_van"
	case ReedSolomonR6Op:
		return "reed_sol_r6_op"
	case CauchyOriginal:
		return "cauchy_orig"
	case CauchyGood:
		return "cauchy_good"
	case Liberation:
		return "liberation"
	case BlaumRoth:
		return "blaum_roth"
	case Liber8tion:
		return "liber8tion"
	case NoCoding:
		return "no_coding"
	default:
		return "unknown"
	}
}

// Meta is the decoded content of name_meta.txt.
type Meta struct {
	OriginalFilename string    `json:"original_filename"`
	OrigSize         int64     `json:"origsize"`
	K                int       `json:"k"`
	M                int       `json:"m"`
	W                int       `json:"w"`
	PacketSize       int       `json:"packetsize"`
	BufferSize       int       `json:"buffersize"`
	Technique        Technique `json:"technique"`
	ReadIns          int       `json:"readins"`
}

// ValidateParams reports codecerr.ErrBadMetadata if any codec-parameter
// field is out of the range the codec can operate on. It does not check
// ReadIns, which an encode session only learns after chunking its input;
// session.New calls this before a stripe has been laid out at all.
func (m Meta) ValidateParams() error {
	if m.K <= 0 || m.M <= 0 || m.W != 8 {
		return errors.Wrapf(codecerr.ErrBadMetadata, "k=%d m=%d w=%d", m.K, m.M, m.W)
	}
	if m.OrigSize < 0 || m.PacketSize <= 0 || m.BufferSize <= 0 {
		return errors.Wrapf(codecerr.ErrBadMetadata, "origsize=%d packetsize=%d buffersize=%d", m.OrigSize, m.PacketSize, m.BufferSize)
	}
	return nil
}

// Validate reports codecerr.ErrBadMetadata if any field, including
// ReadIns, is out of range. A decode session calls this (via Read) since
// a written name_meta.txt must carry a real read-in count, per spec.md §8
// scenario 6.
func (m Meta) Validate() error {
	if err := m.ValidateParams(); err != nil {
		return err
	}
	if m.ReadIns <= 0 {
		return errors.Wrapf(codecerr.ErrBadMetadata, "readins=%d", m.ReadIns)
	}
	return nil
}

// Read loads and validates a name_meta.txt file.
func Read(path string) (Meta, error) {
	file, err := os.Open(path)
	if err != nil {
		return Meta{}, errors.Wrap(codecerr.ErrBadMetadata, err.Error())
	}
	defer file.Close()

	var m Meta
	if err := json.NewDecoder(bufio.NewReader(file)).Decode(&m); err != nil {
		return Meta{}, errors.Wrap(codecerr.ErrBadMetadata, err.Error())
	}
	if err := m.Validate(); err != nil {
		return Meta{}, err
	}
	return m, nil
}

// Write serializes m to path, creating or truncating it.
func Write(path string, m Meta) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(codecerr.ErrIO, err.Error())
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}
