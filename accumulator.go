// Copyright 2023 The flatrec Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package flatrec

// Accumulator collects values one at a time (the shape aggregate
// frameworks feed us: a transition call per value, then a finalize)
// and flattens them into a record buffer.  The zero Accumulator is
// valid, empty state.
type Accumulator struct {
	values []float64
}

// Push appends a value to the accumulated state.
func (a *Accumulator) Push(v float64) {
	a.values = append(a.values, v)
}

// Len returns the number of values accumulated so far.
func (a *Accumulator) Len() int {
	return len(a.values)
}

// Finalize flattens the accumulated values into a freshly serialized
// record buffer.  The Accumulator remains usable afterwards; the
// returned buffer does not alias its state.
func (a *Accumulator) Finalize() ([]byte, error) {
	return New(a.values)
}
