// Copyright 2023 The flatrec Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package layout

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrLengthMismatch is returned by Marshal when a caller sets the
	// sequence's length field explicitly and it disagrees with the
	// staged sequence data.
	ErrLengthMismatch = errors.New("explicit length disagrees with sequence data")
)

// Writer stages field values for one record and serializes them into
// a freshly allocated buffer.  Unset fixed fields are written as zero,
// which covers reserved/host-assigned fields; the sequence's length
// field is derived from the staged sequence when not set explicitly.
//
// A Writer is single-use: stage values with the Set methods, then
// call Marshal once.
type Writer struct {
	layout  *Layout
	set     []bool
	scalars []uint64 // scalar bit patterns, indexed by field
	raw     [][]byte // raw bytes staged via SetBytes, indexed by field
	seq     []byte   // staged sequence span
	seqF64  []float64
	seqSet  bool
}

// NewWriter returns a Writer for records of this layout.
func (l *Layout) NewWriter() *Writer {
	return &Writer{
		layout:  l,
		set:     make([]bool, len(l.fields)),
		scalars: make([]uint64, len(l.fields)),
		raw:     make([][]byte, len(l.fields)),
	}
}

func (w *Writer) stage(name string, width int) (int, error) {
	i := w.layout.FieldIndex(name)
	if i < 0 {
		return -1, fmt.Errorf("no field %q in layout", name)
	}
	f := w.layout.fields[i]
	if f.isSeq {
		return -1, fmt.Errorf("field %q is a sequence, not a scalar", name)
	}
	if width > 0 && f.width != width {
		return -1, fmt.Errorf("field %q is %d bytes wide, not %d", name, f.width, width)
	}
	return i, nil
}

// SetUint8 stages a 1-byte scalar.
func (w *Writer) SetUint8(name string, v uint8) error {
	return w.setScalar(name, 1, uint64(v))
}

// SetUint16 stages a 2-byte scalar.
func (w *Writer) SetUint16(name string, v uint16) error {
	return w.setScalar(name, 2, uint64(v))
}

// SetUint32 stages a 4-byte scalar.
func (w *Writer) SetUint32(name string, v uint32) error {
	return w.setScalar(name, 4, uint64(v))
}

// SetUint64 stages an 8-byte scalar.
func (w *Writer) SetUint64(name string, v uint64) error {
	return w.setScalar(name, 8, v)
}

// SetFloat64 stages an 8-byte float scalar.
func (w *Writer) SetFloat64(name string, v float64) error {
	return w.setScalar(name, 8, math.Float64bits(v))
}

func (w *Writer) setScalar(name string, width int, bits uint64) error {
	i, err := w.stage(name, width)
	if err != nil {
		return err
	}
	w.scalars[i] = bits
	w.raw[i] = nil
	w.set[i] = true
	return nil
}

// SetBytes stages a fixed field's exact bytes; len(b) must equal the
// field's declared width.
func (w *Writer) SetBytes(name string, b []byte) error {
	i, err := w.stage(name, len(b))
	if err != nil {
		return err
	}
	w.raw[i] = b
	w.set[i] = true
	return nil
}

func (w *Writer) stageSeq(name string) (int, error) {
	i := w.layout.FieldIndex(name)
	if i < 0 {
		return -1, fmt.Errorf("no field %q in layout", name)
	}
	if i != w.layout.seq {
		return -1, fmt.Errorf("field %q is not the sequence field", name)
	}
	return i, nil
}

// SetFloat64s stages the sequence from a float64 slice; elements must
// be declared 8 bytes wide.
func (w *Writer) SetFloat64s(name string, vals []float64) error {
	i, err := w.stageSeq(name)
	if err != nil {
		return err
	}
	if w.layout.fields[i].width != 8 {
		return fmt.Errorf("field %q elements are %d bytes wide, not 8", name, w.layout.fields[i].width)
	}
	w.seqF64 = vals
	w.seq = nil
	w.seqSet = true
	return nil
}

// SetRawSeq stages the sequence's packed bytes; len(b) must be a
// multiple of the declared element width.
func (w *Writer) SetRawSeq(name string, b []byte) error {
	i, err := w.stageSeq(name)
	if err != nil {
		return err
	}
	if elem := w.layout.fields[i].width; len(b)%elem != 0 {
		return fmt.Errorf("%d bytes is not a multiple of element width %d", len(b), elem)
	}
	w.seq = b
	w.seqF64 = nil
	w.seqSet = true
	return nil
}

func (w *Writer) seqLen() int {
	if w.seqF64 != nil {
		return len(w.seqF64)
	}
	if w.seq == nil || w.layout.seq < 0 {
		return 0
	}
	return len(w.seq) / w.layout.fields[w.layout.seq].width
}

// Marshal computes the record's total size, allocates exactly that
// many bytes, and writes every field at its offset in declaration
// order.  The returned buffer round-trips through TryView to values
// bit-identical to what was staged.
func (w *Writer) Marshal() ([]byte, error) {
	l := w.layout
	n := w.seqLen()
	size, err := l.SizeOf(n)
	if err != nil {
		return nil, err
	}

	// an explicitly set length field must agree with the data it
	// describes; left unset, it is derived from the staged sequence
	if l.lengthIdx >= 0 {
		if w.set[l.lengthIdx] {
			if w.raw[l.lengthIdx] != nil {
				return nil, fmt.Errorf("length field %q must be set as a scalar, not raw bytes", l.fields[l.lengthIdx].name)
			}
			if w.scalars[l.lengthIdx] != uint64(n) {
				return nil, fmt.Errorf("length field %q is %d but sequence has %d elements: %w",
					l.fields[l.lengthIdx].name, w.scalars[l.lengthIdx], n, ErrLengthMismatch)
			}
		} else {
			w.scalars[l.lengthIdx] = uint64(n)
			if maxLen := maxScalar(l.fields[l.lengthIdx].width); uint64(n) > maxLen {
				return nil, fmt.Errorf("%d elements exceeds length field capacity %d: %w", n, maxLen, ErrSizeOverflow)
			}
		}
	}

	buf := make([]byte, size)
	for i, f := range l.fields {
		if f.isSeq {
			continue
		}
		b := buf[l.offsets[i] : l.offsets[i]+f.width]
		if raw := w.raw[i]; raw != nil {
			copy(b, raw)
			continue
		}
		putScalar(b, w.scalars[i], f.width)
	}

	if l.seq >= 0 {
		b := buf[l.minSize:]
		if w.seqF64 != nil {
			for i, v := range w.seqF64 {
				binary.LittleEndian.PutUint64(b[8*i:8*i+8], math.Float64bits(v))
			}
		} else {
			copy(b, w.seq)
		}
	}

	return buf, nil
}

func maxScalar(width int) uint64 {
	if width >= 8 {
		return math.MaxUint64
	}
	return 1<<(8*width) - 1
}

func putScalar(b []byte, bits uint64, width int) {
	switch width {
	case 1:
		b[0] = uint8(bits)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(bits))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(bits))
	case 8:
		binary.LittleEndian.PutUint64(b, bits)
	default:
		// non-power-of-2 widths hold opaque bytes, staged via SetBytes;
		// unset means zero, which a fresh buffer already is
		if bits != 0 {
			panic(fmt.Errorf("scalar staged for opaque %d-byte field", width))
		}
	}
}
