// Copyright 2023 The flatrec Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package layout

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/bpowers/flatrec/internal/unsafeslice"
)

// View is a read-only, zero-copy projection of one record.  Every
// accessor returns data borrowed from the buffer TryView was given:
// a View must not outlive that buffer, and is only valid while the
// buffer is unmodified.
type View struct {
	layout *Layout
	rec    []byte // exactly the record's bytes, no prefix or suffix
}

// TryView validates that buf starts with a complete record and returns
// a View over it plus the unconsumed suffix of buf (for callers that
// pack multiple records or trailing padding).  On error no partial
// view is returned.
//
// TryView performs no allocation and no copy; on success every span a
// View hands out is strictly within buf, no matter how adversarial the
// input bytes are.
func (l *Layout) TryView(buf []byte) (View, []byte, error) {
	if len(buf) < l.minSize {
		return View{}, nil, fmt.Errorf("%d byte buffer, layout needs at least %d: %w", len(buf), l.minSize, ErrTooShort)
	}

	size := l.minSize
	if l.seq >= 0 {
		n := l.seqLen(buf)
		elem := uint64(l.fields[l.seq].width)
		if n > math.MaxInt/elem || n*elem > uint64(math.MaxInt-l.minSize) {
			return View{}, nil, fmt.Errorf("%d elements of width %d: %w", n, elem, ErrLengthOverflow)
		}
		size += int(n) * int(elem)
		if size > len(buf) {
			return View{}, nil, fmt.Errorf("%d byte buffer, record claims %d: %w", len(buf), size, ErrTooShort)
		}
	}

	return View{layout: l, rec: buf[:size]}, buf[size:], nil
}

// seqLen decodes the sequence's length field.  Caller has already
// bounds checked buf against minSize, which covers every fixed field.
func (l *Layout) seqLen(buf []byte) uint64 {
	f := l.fields[l.lengthIdx]
	b := buf[l.offsets[l.lengthIdx] : l.offsets[l.lengthIdx]+f.width]
	switch f.width {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	default:
		return binary.LittleEndian.Uint64(b)
	}
}

// Size returns the full byte length of the viewed record.
func (v View) Size() int {
	return len(v.rec)
}

// Bytes returns the raw span of the i'th field.
func (v View) Bytes(i int) []byte {
	l := v.layout
	if l.seq == i {
		return v.rec[l.minSize:]
	}
	off := l.offsets[i]
	return v.rec[off : off+l.fields[i].width]
}

func (v View) fixed(i, width int) []byte {
	f := v.layout.fields[i]
	if f.isSeq || f.width != width {
		panic(fmt.Errorf("field %q is not a %d-byte scalar", f.name, width))
	}
	off := v.layout.offsets[i]
	return v.rec[off : off+width]
}

// Uint8 decodes the i'th field as a 1-byte scalar.  Like the other
// scalar accessors it panics if the field's declared width disagrees;
// that is a programmer error, not a data error.
func (v View) Uint8(i int) uint8 {
	return v.fixed(i, 1)[0]
}

func (v View) Uint16(i int) uint16 {
	return binary.LittleEndian.Uint16(v.fixed(i, 2))
}

func (v View) Uint32(i int) uint32 {
	return binary.LittleEndian.Uint32(v.fixed(i, 4))
}

func (v View) Uint64(i int) uint64 {
	return binary.LittleEndian.Uint64(v.fixed(i, 8))
}

func (v View) Float64(i int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(v.fixed(i, 8)))
}

// Seq returns the record's sequence field.  The zero Elems (for
// layouts without one) has length 0.
func (v View) Seq() Elems {
	l := v.layout
	if l == nil || l.seq < 0 {
		return Elems{}
	}
	return Elems{elem: l.fields[l.seq].width, b: v.rec[l.minSize:]}
}

// Elems is a borrowed, bounds-checked wrapper over a sequence field's
// bytes.  Out-of-range access reports "not found" via the ok result
// rather than an error or a garbage value.
type Elems struct {
	elem int
	b    []byte
}

// Len returns the element count.
func (s Elems) Len() int {
	if s.elem == 0 {
		return 0
	}
	return len(s.b) / s.elem
}

// At returns the raw bytes of the i'th element.
func (s Elems) At(i int) ([]byte, bool) {
	if i < 0 || i >= s.Len() {
		return nil, false
	}
	off := i * s.elem
	return s.b[off : off+s.elem], true
}

// Uint64At decodes the i'th element as a uint64; elements must be
// 8 bytes wide.
func (s Elems) Uint64At(i int) (uint64, bool) {
	b, ok := s.At(i)
	if !ok || len(b) != 8 {
		return 0, false
	}
	return binary.LittleEndian.Uint64(b), true
}

// Float64At decodes the i'th element as a float64; elements must be
// 8 bytes wide.
func (s Elems) Float64At(i int) (float64, bool) {
	bits, ok := s.Uint64At(i)
	if !ok {
		return 0, false
	}
	return math.Float64frombits(bits), true
}

// Bytes returns the sequence's full raw span.
func (s Elems) Bytes() []byte {
	return s.b
}

// Float64s returns the sequence aliased as a []float64 without
// copying.  It reports false when elements aren't 8 bytes wide or the
// span isn't 8-byte aligned; callers needing a guaranteed result
// should fall back to Float64At.
func (s Elems) Float64s() ([]float64, bool) {
	if s.elem != 8 {
		return nil, false
	}
	return unsafeslice.Float64s(s.b)
}
