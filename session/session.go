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

// Package session drives one encode or decode pass end to end: file
// layout, buffered read-in chunking, and the INIT -> LOADED ->
// UNTRANSFORMED -> EMIT/FAILED/REPAIR/RS_DECODE state machine from
// spec.md §4.5. It owns no algebra of its own — that lives in substripe,
// pairing, repair and stripe — only the wiring, padding policy, and
// on-disk layout (name_k<II>.ext, name_m<JJ>.ext, name_meta.txt,
// name_decoded.ext).
package session

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/xtaci/stripecodec/codecerr"
	"github.com/xtaci/stripecodec/metafile"
	"github.com/xtaci/stripecodec/pairing"
	"github.com/xtaci/stripecodec/repair"
	"github.com/xtaci/stripecodec/stripe"
	"github.com/xtaci/stripecodec/substripe"
)

// SubStripes is M, the fixed number of horizontal sub-stripes per
// read-in, per spec.md §3.
const SubStripes = 8

// padByte is the literal ASCII character used to pad the final read-in,
// per spec.md §3 ("trailing pad bytes are '0', the literal character").
const padByte = '0'

// State names a node in the decode state machine of spec.md §4.5.
type State int

const (
	StateInit State = iota
	StateLoaded
	StateUntransformed
	StateEmit
	StateFailed
	StateRepair
	StateRSDecode
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateLoaded:
		return "LOADED"
	case StateUntransformed:
		return "UNTRANSFORMED"
	case StateEmit:
		return "EMIT"
	case StateFailed:
		return "FAILED"
	case StateRepair:
		return "REPAIR"
	case StateRSDecode:
		return "RS_DECODE"
	default:
		return "UNKNOWN"
	}
}

// Progress is a point-in-time snapshot a running Session publishes for a
// SIGINT handler to read, mirroring the original tool's global
// readins/n/method reporting (spec.md §9) without using process globals.
type Progress struct {
	ReadIns int
	Current int
	Method  string
}

var current atomic.Pointer[Progress]

// CurrentProgress returns the active session's last published snapshot,
// or nil if no session is running.
func CurrentProgress() *Progress {
	return current.Load()
}

// Session drives one buffered encode or decode pass over a single file.
type Session struct {
	Meta metafile.Meta
	Dir  string
	Base string // original filename without its extension
	Ext  string // original filename's extension, including the dot

	transform pairing.Transform
	codec     *substripe.Codec
}

// New builds a Session for the given metadata and on-disk directory/name.
// name is the original filename (e.g. "report.pdf"); block files are
// written alongside it using the name_k<II>.ext / name_m<JJ>.ext
// convention.
func New(meta metafile.Meta, dir, name string) (*Session, error) {
	if err := meta.ValidateParams(); err != nil {
		return nil, err
	}
	codec, err := substripe.New(meta.K, meta.M)
	if err != nil {
		return nil, errors.Wrap(err, "session: building RS codec")
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return &Session{
		Meta:      meta,
		Dir:       dir,
		Base:      base,
		Ext:       ext,
		transform: pairing.Transform{M: SubStripes, BlockSize: meta.PacketSize},
		codec:     codec,
	}, nil
}

func (s *Session) dataPath(i int) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s_k%02d%s", s.Base, i, s.Ext))
}

func (s *Session) parityPath(j int) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s_m%02d%s", s.Base, j, s.Ext))
}

func (s *Session) metaPath() string {
	return filepath.Join(s.Dir, s.Base+"_meta.txt")
}

func (s *Session) decodedPath() string {
	return filepath.Join(s.Dir, s.Base+"_decoded"+s.Ext)
}

// readinBytes is the number of (unpadded) input bytes one read-in
// consumes: M sub-stripes of k blocks of PacketSize bytes each.
func (s *Session) readinBytes() int {
	return SubStripes * s.Meta.K * s.Meta.PacketSize
}

func (s *Session) layout() stripe.Layout {
	return stripe.Layout{K: s.Meta.K, M: SubStripes, BlockSize: s.Meta.PacketSize}
}

// EncodeFile stripes, RS-encodes and pairing-transforms data, writing the
// 14 block streams and name_meta.txt to s.Dir. data is padded with
// padByte to a whole number of read-ins.
func (s *Session) EncodeFile(data []byte) error {
	readinLen := s.readinBytes()
	readins := (len(data) + readinLen - 1) / readinLen
	if readins == 0 {
		readins = 1
	}
	padded := make([]byte, readins*readinLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = padByte
	}

	dataFiles, parityFiles, closeAll, err := s.openWriters()
	if err != nil {
		return err
	}
	defer closeAll()

	current.Store(&Progress{ReadIns: readins, Method: "encode"})
	defer current.Store(nil)

	for n := 0; n < readins; n++ {
		current.Store(&Progress{ReadIns: readins, Current: n, Method: "encode"})
		chunk := padded[n*readinLen : (n+1)*readinLen]

		fdata := make([][]byte, SubStripes)
		fcoding := make([][]byte, SubStripes)
		for sub := 0; sub < SubStripes; sub++ {
			blockData := make([][]byte, s.Meta.K)
			row := make([]byte, s.Meta.K*s.Meta.PacketSize)
			for i := 0; i < s.Meta.K; i++ {
				off := sub*s.Meta.K*s.Meta.PacketSize + i*s.Meta.PacketSize
				blockData[i] = chunk[off : off+s.Meta.PacketSize]
				copy(row[i*s.Meta.PacketSize:(i+1)*s.Meta.PacketSize], blockData[i])
			}
			fdata[sub] = row

			parity, err := s.codec.Encode(blockData)
			if err != nil {
				return errors.Wrap(err, "session: RS encode")
			}
			crow := make([]byte, s.Meta.M*s.Meta.PacketSize)
			for j, p := range parity {
				copy(crow[j*s.Meta.PacketSize:(j+1)*s.Meta.PacketSize], p)
			}
			fcoding[sub] = crow
		}

		s.transform.Forward(fdata, fcoding)

		layout := s.layout()
		dataBlocks, err := layout.FromStripeMajor(fdata, s.Meta.K)
		if err != nil {
			return errors.Wrap(err, "session: reshaping data for disk layout")
		}
		parityBlocks, err := layout.FromStripeMajor(fcoding, s.Meta.M)
		if err != nil {
			return errors.Wrap(err, "session: reshaping parity for disk layout")
		}
		for i, b := range dataBlocks {
			if _, err := dataFiles[i].Write(b); err != nil {
				return errors.Wrap(codecerr.ErrIO, err.Error())
			}
		}
		for j, b := range parityBlocks {
			if _, err := parityFiles[j].Write(b); err != nil {
				return errors.Wrap(codecerr.ErrIO, err.Error())
			}
		}
	}

	s.Meta.ReadIns = readins
	s.Meta.OrigSize = int64(len(data))
	s.Meta.OriginalFilename = s.Base + s.Ext
	s.Meta.Technique = metafile.ReedSolomonVandermonde
	return metafile.Write(s.metaPath(), s.Meta)
}

func (s *Session) openWriters() ([]*os.File, []*os.File, func(), error) {
	dataFiles := make([]*os.File, s.Meta.K)
	parityFiles := make([]*os.File, s.Meta.M)
	var opened []*os.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}
	for i := range dataFiles {
		f, err := os.Create(s.dataPath(i))
		if err != nil {
			closeAll()
			return nil, nil, nil, errors.Wrap(codecerr.ErrIO, err.Error())
		}
		dataFiles[i] = f
		opened = append(opened, f)
	}
	for j := range parityFiles {
		f, err := os.Create(s.parityPath(j))
		if err != nil {
			closeAll()
			return nil, nil, nil, errors.Wrap(codecerr.ErrIO, err.Error())
		}
		parityFiles[j] = f
		opened = append(opened, f)
	}
	return dataFiles, parityFiles, closeAll, nil
}

// DecodeFile reads the 14 block streams (a missing data-node file marks
// that node erased; a missing parity-node file fails the decode with
// codecerr.ErrIO), inverts the pairing transform, repairs or RS-decodes as
// needed, and writes name_decoded.ext. It returns the final State the
// session reached (StateEmit on success).
func (s *Session) DecodeFile() (State, error) {
	dataReaders, parityReaders, erasedData, closeAll, err := s.openReaders()
	if err != nil {
		return StateFailed, err
	}
	defer closeAll()

	erasedCount := 0
	lostData := -1
	for i, erased := range erasedData {
		if erased {
			erasedCount++
			lostData = i
		}
	}
	if erasedCount > s.Meta.M {
		return StateFailed, errors.Wrapf(codecerr.ErrDecodeInfeasible, "%d erasures exceed m=%d", erasedCount, s.Meta.M)
	}

	out, err := os.Create(s.decodedPath())
	if err != nil {
		return StateFailed, errors.Wrap(codecerr.ErrIO, err.Error())
	}
	defer out.Close()
	w := bufio.NewWriter(out)
	defer w.Flush()

	current.Store(&Progress{ReadIns: s.Meta.ReadIns, Method: "decode"})
	defer current.Store(nil)

	written := int64(0)
	for n := 0; n < s.Meta.ReadIns; n++ {
		current.Store(&Progress{ReadIns: s.Meta.ReadIns, Current: n, Method: "decode"})

		layout := s.layout()
		dataBlocks := make([][]byte, s.Meta.K)
		for i := 0; i < s.Meta.K; i++ {
			dataBlocks[i] = make([]byte, SubStripes*s.Meta.PacketSize)
			if erasedData[i] {
				continue // left zero-filled; decodeReadin treats it as lost
			}
			if _, err := io.ReadFull(dataReaders[i], dataBlocks[i]); err != nil {
				return StateFailed, errors.Wrap(codecerr.ErrIO, err.Error())
			}
		}
		parityBlocks := make([][]byte, s.Meta.M)
		for j := 0; j < s.Meta.M; j++ {
			parityBlocks[j] = make([]byte, SubStripes*s.Meta.PacketSize)
			if _, err := io.ReadFull(parityReaders[j], parityBlocks[j]); err != nil {
				return StateFailed, errors.Wrap(codecerr.ErrIO, err.Error())
			}
		}

		fdata, err := layout.ToStripeMajor(dataBlocks, s.Meta.K)
		if err != nil {
			return StateFailed, errors.Wrap(err, "session: reshaping data from disk layout")
		}
		fcoding, err := layout.ToStripeMajor(parityBlocks, s.Meta.M)
		if err != nil {
			return StateFailed, errors.Wrap(err, "session: reshaping parity from disk layout")
		}

		if _, err := s.decodeReadin(fdata, fcoding, erasedData, erasedCount, lostData); err != nil {
			return StateFailed, err
		}

		// limit is the cumulative byte count to reach by the end of this
		// read-in, capped at the original file size.
		limit := written + int64(s.readinBytes())
		if s.Meta.OrigSize < limit {
			limit = s.Meta.OrigSize
		}
		if err := s.emit(w, fdata, limit, &written); err != nil {
			return StateFailed, err
		}
	}
	return StateEmit, nil
}

// RepairNode reconstructs exactly one missing data node's file in place,
// without producing a decoded copy of the whole original file. It is the
// narrow operation cmd/stripe-repair exposes: every other data node and
// all parity nodes must already be present on disk.
func (s *Session) RepairNode(lost int) error {
	if lost < 0 || lost >= s.Meta.K {
		return errors.Wrapf(codecerr.ErrTooManyErasures, "repair: column %d out of range", lost)
	}

	dataReaders, parityReaders, _, closeAll, err := s.openReaders()
	if err != nil {
		return err
	}
	defer closeAll()
	if dataReaders[lost] != nil {
		return errors.Errorf("repair: column %d is present on disk, nothing to repair", lost)
	}

	out, err := os.Create(s.dataPath(lost))
	if err != nil {
		return errors.Wrap(codecerr.ErrIO, err.Error())
	}
	defer out.Close()
	w := bufio.NewWriter(out)
	defer w.Flush()

	current.Store(&Progress{ReadIns: s.Meta.ReadIns, Method: "repair"})
	defer current.Store(nil)

	eng := repair.New(s.Meta.K, s.Meta.M, s.Meta.PacketSize)
	layout := s.layout()
	for n := 0; n < s.Meta.ReadIns; n++ {
		current.Store(&Progress{ReadIns: s.Meta.ReadIns, Current: n, Method: "repair"})
		dataBlocks := make([][]byte, s.Meta.K)
		for i := 0; i < s.Meta.K; i++ {
			dataBlocks[i] = make([]byte, SubStripes*s.Meta.PacketSize)
			if i == lost {
				continue
			}
			if _, err := io.ReadFull(dataReaders[i], dataBlocks[i]); err != nil {
				return errors.Wrap(codecerr.ErrIO, err.Error())
			}
		}
		parityBlocks := make([][]byte, s.Meta.M)
		for j := 0; j < s.Meta.M; j++ {
			parityBlocks[j] = make([]byte, SubStripes*s.Meta.PacketSize)
			if _, err := io.ReadFull(parityReaders[j], parityBlocks[j]); err != nil {
				return errors.Wrap(codecerr.ErrIO, err.Error())
			}
		}

		fdata, err := layout.ToStripeMajor(dataBlocks, s.Meta.K)
		if err != nil {
			return errors.Wrap(err, "session: reshaping data from disk layout")
		}
		fcoding, err := layout.ToStripeMajor(parityBlocks, s.Meta.M)
		if err != nil {
			return errors.Wrap(err, "session: reshaping parity from disk layout")
		}

		level, _, _, _, ok := pairing.DataLevelFor(lost)
		if !ok {
			return errors.Errorf("session: data column %d has no pairing level", lost)
		}
		s.transform.InverseExcept(level, fdata, fcoding)
		if err := eng.Repair(lost, fdata, fcoding); err != nil {
			return err
		}
		// Repair leaves the stripe fully un-transformed; re-apply the
		// pairing so the rewritten node matches its stored form.
		s.transform.Forward(fdata, fcoding)

		repaired, err := layout.FromStripeMajor(fdata, s.Meta.K)
		if err != nil {
			return errors.Wrap(err, "session: reshaping repaired data for disk layout")
		}
		if _, err := w.Write(repaired[lost]); err != nil {
			return errors.Wrap(codecerr.ErrIO, err.Error())
		}
	}
	return nil
}

// decodeReadin inverts the pairing transform for one read-in's buffers
// and, if necessary, repairs or RS-decodes the erased node(s) in place.
func (s *Session) decodeReadin(fdata, fcoding [][]byte, erasedData []bool, erasedCount, lostData int) (State, error) {
	switch {
	case erasedCount == 0:
		s.transform.Inverse(fdata, fcoding)
		return StateUntransformed, nil

	case erasedCount == 1:
		level, _, _, _, ok := pairing.DataLevelFor(lostData)
		if !ok {
			return StateFailed, errors.Errorf("session: data column %d has no pairing level", lostData)
		}
		s.transform.InverseExcept(level, fdata, fcoding)
		eng := repair.New(s.Meta.K, s.Meta.M, s.Meta.PacketSize)
		if err := eng.Repair(lostData, fdata, fcoding); err != nil {
			return StateFailed, err
		}
		return StateRepair, nil

	default:
		// Two or more data nodes lost: the bandwidth-minimal single-node
		// repair no longer applies, so fall back to per-sub-stripe RS
		// decode. Any pairing level whose two columns disagree on erasure
		// status leaves its surviving column contaminated (it still holds
		// A'/B', not the pure value) since there is no partner to solve
		// against; skip inverting that level and fold the surviving column
		// into the erasure set instead, letting RS decode reconstruct it
		// from parity like any other lost shard.
		lost := make([]bool, s.Meta.K)
		copy(lost, erasedData)
		var skipLevels []int
		for _, col := range []int{1, 3, 5, 7, 9} {
			level, colA, colB, _, ok := pairing.DataLevelFor(col)
			if !ok || erasedData[colA] == erasedData[colB] {
				continue
			}
			skipLevels = append(skipLevels, level)
			lost[colA] = true
			lost[colB] = true
		}
		s.transform.InverseSkippingLevels(skipLevels, fdata, fcoding)

		for sub := range fdata {
			shards := make([][]byte, s.Meta.K+s.Meta.M)
			for i := 0; i < s.Meta.K; i++ {
				if lost[i] {
					continue
				}
				shards[i] = fdata[sub][i*s.Meta.PacketSize : (i+1)*s.Meta.PacketSize]
			}
			for j := 0; j < s.Meta.M; j++ {
				shards[s.Meta.K+j] = fcoding[sub][j*s.Meta.PacketSize : (j+1)*s.Meta.PacketSize]
			}
			if err := s.codec.Decode(shards); err != nil {
				return StateFailed, err
			}
			for i := 0; i < s.Meta.K; i++ {
				if shards[i] != nil {
					copy(fdata[sub][i*s.Meta.PacketSize:(i+1)*s.Meta.PacketSize], shards[i])
				}
			}
		}
		return StateRSDecode, nil
	}
}

func (s *Session) emit(w *bufio.Writer, fdata [][]byte, limit int64, written *int64) error {
	for sub := 0; sub < SubStripes && *written < limit; sub++ {
		n := int64(s.Meta.K * s.Meta.PacketSize)
		if *written+n > limit {
			n = limit - *written
		}
		if _, err := w.Write(fdata[sub][:n]); err != nil {
			return errors.Wrap(codecerr.ErrIO, err.Error())
		}
		*written += n
	}
	return nil
}

func (s *Session) openReaders() ([]io.Reader, []io.Reader, []bool, func(), error) {
	dataReaders := make([]io.Reader, s.Meta.K)
	parityReaders := make([]io.Reader, s.Meta.M)
	erased := make([]bool, s.Meta.K)
	var opened []*os.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	for i := 0; i < s.Meta.K; i++ {
		f, err := os.Open(s.dataPath(i))
		if err != nil {
			erased[i] = true
			dataReaders[i] = nil
			continue
		}
		opened = append(opened, f)
		dataReaders[i] = bufio.NewReader(f)
	}
	for j := 0; j < s.Meta.M; j++ {
		f, err := os.Open(s.parityPath(j))
		if err != nil {
			closeAll()
			return nil, nil, nil, nil, errors.Wrap(codecerr.ErrIO, err.Error())
		}
		opened = append(opened, f)
		parityReaders[j] = bufio.NewReader(f)
	}
	return dataReaders, parityReaders, erased, closeAll, nil
}
