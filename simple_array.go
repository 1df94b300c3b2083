// Copyright 2023 The flatrec Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package flatrec

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/bpowers/flatrec/layout"
)

// HeaderSize is the width of the reserved, host-owned header word at
// the front of every record.
const HeaderSize = 4

var simpleArrayLayout = layout.MustNew(
	layout.Fixed("header", 4),
	layout.Fixed("len", 4),
	layout.Seq("data", 8, "len"),
)

var fieldHeader = simpleArrayLayout.FieldIndex("header")

// SimpleArray is a borrowed, read-only view of one record: it owns
// nothing, mutates nothing, and must not outlive the buffer it was
// constructed from.
type SimpleArray struct {
	view layout.View
}

// FromBytes validates that buf starts with a complete record and
// returns a view over it plus buf's unconsumed suffix.  Failures are
// layout.ErrTooShort or layout.ErrLengthOverflow; on failure no
// partial view is returned.
func FromBytes(buf []byte) (SimpleArray, []byte, error) {
	view, rest, err := simpleArrayLayout.TryView(buf)
	if err != nil {
		return SimpleArray{}, nil, err
	}
	return SimpleArray{view: view}, rest, nil
}

// New serializes values into a freshly allocated record buffer.  The
// length field is derived from len(values); the header word is written
// as 0 and left for the host to assign via PutHeader.
func New(values []float64) ([]byte, error) {
	w := simpleArrayLayout.NewWriter()
	if err := w.SetFloat64s("data", values); err != nil {
		return nil, err
	}
	return w.Marshal()
}

// MinSize returns the byte size of an empty record.
func MinSize() int {
	return simpleArrayLayout.MinSize()
}

// SizeOf returns the byte size of a record holding n values.
func SizeOf(n int) (int, error) {
	return simpleArrayLayout.SizeOf(n)
}

// PutHeader assigns the reserved header word in an already-serialized
// record buffer.  This is the one sanctioned post-construction
// mutation: the header is host-framing metadata, not record data, and
// no view's data spans overlap it.
func PutHeader(buf []byte, v uint32) error {
	if len(buf) < HeaderSize {
		return fmt.Errorf("%d byte buffer, header needs %d: %w", len(buf), HeaderSize, layout.ErrTooShort)
	}
	binary.LittleEndian.PutUint32(buf[:HeaderSize], v)
	return nil
}

// Header returns the reserved host-owned header word.  This package
// never interprets it.
func (a SimpleArray) Header() uint32 {
	return a.view.Uint32(fieldHeader)
}

// Len returns the number of values in the array.
func (a SimpleArray) Len() int {
	return a.view.Seq().Len()
}

// Size returns the record's full byte length.
func (a SimpleArray) Size() int {
	return a.view.Size()
}

// At returns the i'th value.  Indexing is zero-based; out-of-range i
// reports not-found rather than an error or a garbage value.
func (a SimpleArray) At(i int) (float64, bool) {
	return a.view.Seq().Float64At(i)
}

// Values returns a copy of the array's values.  The copy is owned by
// the caller and safe to retain after the record buffer is gone.
func (a SimpleArray) Values() []float64 {
	seq := a.view.Seq()
	vals := make([]float64, seq.Len())
	if aliased, ok := seq.Float64s(); ok {
		copy(vals, aliased)
		return vals
	}
	for i := range vals {
		vals[i], _ = seq.Float64At(i)
	}
	return vals
}

// String renders the array's values for display.
func (a SimpleArray) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	seq := a.view.Seq()
	for i, n := 0, seq.Len(); i < n; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		v, _ := seq.Float64At(i)
		fmt.Fprintf(&sb, "%g", v)
	}
	sb.WriteByte(']')
	return sb.String()
}
