// Copyright 2023 The flatrec Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package unsafeslice

import (
	"unsafe"
)

// Float64s returns a float64 slice aliasing the contents of b, or
// reports false when b's length isn't a multiple of 8 or its backing
// array isn't 8-byte aligned (mapped files place records at arbitrary
// offsets, so alignment is a runtime property here, not a static one).
// SAFETY: the returned slice must never be written to, only read, and
// must not outlive b's backing array.
func Float64s(b []byte) ([]float64, bool) {
	if len(b)%8 != 0 {
		return nil, false
	}
	if len(b) == 0 {
		return nil, true
	}
	if uintptr(unsafe.Pointer(&b[0]))%8 != 0 {
		return nil, false
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(&b[0])), len(b)/8), true
}
