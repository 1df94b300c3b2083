// Copyright 2023 The flatrec Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package layout

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrBadDefinition is returned by New for layouts that violate a
	// declaration-time invariant; it can never surface at read or
	// write time on a layout New accepted.
	ErrBadDefinition = errors.New("invalid layout definition")
	// ErrTooShort is returned when a buffer is smaller than the
	// record its own fields say it contains.
	ErrTooShort = errors.New("buffer too short for record")
	// ErrLengthOverflow is returned when a record's declared sequence
	// length can't be addressed on this platform.
	ErrLengthOverflow = errors.New("sequence length overflows addressable size")
	// ErrSizeOverflow is returned when a record's total computed size
	// can't be addressed on this platform.
	ErrSizeOverflow = errors.New("record size overflows addressable size")
)

const (
	maxScalarWidth = 8
)

// Field describes one element of a record layout: either a fixed-width
// scalar or a trailing sequence whose element count is held by an
// earlier fixed field.
type Field struct {
	name        string
	width       int // scalar width, or per-element width for sequences
	isSeq       bool
	lengthField string
}

// Fixed declares a scalar field of constant width (1, 2, 4 or 8 bytes).
func Fixed(name string, width int) Field {
	return Field{name: name, width: width}
}

// Seq declares a sequence of elemWidth-byte elements whose element
// count is the runtime value of the named fixed field.
func Seq(name string, elemWidth int, lengthField string) Field {
	return Field{name: name, width: elemWidth, isSeq: true, lengthField: lengthField}
}

// Name returns the field's declared name.
func (f Field) Name() string {
	return f.name
}

// Layout is an immutable, declaration-time description of a record's
// fields and their size relationships.  All fixed fields have
// statically known offsets; the sequence field (if any) trails the
// record and its span is sized by an earlier fixed field's value.
type Layout struct {
	fields    []Field
	offsets   []int // byte offset of each field; the seq offset is minSize
	seq       int   // index of the sequence field, or -1
	lengthIdx int   // index of the fixed field holding the seq length, or -1
	minSize   int
}

// New validates fields and builds a Layout.  Definition errors (a
// sequence referencing a missing, later, or non-fixed length field;
// a non-trailing or second sequence; bad widths; duplicate names) are
// reported here, wrapped around ErrBadDefinition.
func New(fields ...Field) (*Layout, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("layout needs at least one field: %w", ErrBadDefinition)
	}

	l := &Layout{
		fields:    fields,
		offsets:   make([]int, len(fields)),
		seq:       -1,
		lengthIdx: -1,
	}

	seen := make(map[string]int, len(fields))
	off := 0
	for i, f := range fields {
		if f.name == "" {
			return nil, fmt.Errorf("field %d has an empty name: %w", i, ErrBadDefinition)
		}
		if _, ok := seen[f.name]; ok {
			return nil, fmt.Errorf("duplicate field %q: %w", f.name, ErrBadDefinition)
		}
		seen[f.name] = i

		if f.isSeq {
			if l.seq >= 0 {
				return nil, fmt.Errorf("field %q: only one sequence per layout: %w", f.name, ErrBadDefinition)
			}
			if i != len(fields)-1 {
				return nil, fmt.Errorf("field %q: sequence must be the trailing field: %w", f.name, ErrBadDefinition)
			}
			if f.width < 1 {
				return nil, fmt.Errorf("field %q: element width %d: %w", f.name, f.width, ErrBadDefinition)
			}
			n, ok := seen[f.lengthField]
			if !ok || n == i {
				return nil, fmt.Errorf("field %q: length field %q not declared earlier: %w", f.name, f.lengthField, ErrBadDefinition)
			}
			lf := fields[n]
			if lf.isSeq {
				return nil, fmt.Errorf("field %q: length field %q isn't fixed-width: %w", f.name, f.lengthField, ErrBadDefinition)
			}
			switch lf.width {
			case 1, 2, 4, 8:
			default:
				return nil, fmt.Errorf("field %q: length field %q has non-integer width %d: %w", f.name, f.lengthField, lf.width, ErrBadDefinition)
			}
			l.seq = i
			l.lengthIdx = n
			l.offsets[i] = off
			continue
		}

		if f.width < 1 || f.width > maxScalarWidth {
			return nil, fmt.Errorf("field %q: scalar width %d: %w", f.name, f.width, ErrBadDefinition)
		}
		l.offsets[i] = off
		off += f.width
	}
	l.minSize = off

	return l, nil
}

// MustNew is New for statically known-good layouts; it panics on a
// definition error.
func MustNew(fields ...Field) *Layout {
	l, err := New(fields...)
	if err != nil {
		panic(err)
	}
	return l
}

// MinSize returns the byte size of a record whose sequence is empty:
// the sum of all fixed field widths, and the lower bound on any valid
// record.
func (l *Layout) MinSize() int {
	return l.minSize
}

// SizeOf returns the exact byte size a record with a sequence of n
// elements must occupy.
func (l *Layout) SizeOf(n int) (int, error) {
	if n == 0 {
		return l.minSize, nil
	}
	if l.seq < 0 {
		return 0, fmt.Errorf("layout has no sequence field but n is %d: %w", n, ErrSizeOverflow)
	}
	elem := l.fields[l.seq].width
	if n < 0 || n > (math.MaxInt-l.minSize)/elem {
		return 0, fmt.Errorf("%d elements of width %d: %w", n, elem, ErrSizeOverflow)
	}
	return l.minSize + n*elem, nil
}

// NumFields returns the number of declared fields.
func (l *Layout) NumFields() int {
	return len(l.fields)
}

// Field returns the i'th declared field.
func (l *Layout) Field(i int) Field {
	return l.fields[i]
}

// FieldIndex returns the declaration index of the named field, or -1.
func (l *Layout) FieldIndex(name string) int {
	for i, f := range l.fields {
		if f.name == name {
			return i
		}
	}
	return -1
}

// Offset returns the static byte offset of the i'th field.  Because a
// sequence may only trail the record, every field's start offset is
// statically known; only the sequence's *extent* depends on runtime
// data.
func (l *Layout) Offset(i int) int {
	return l.offsets[i]
}
