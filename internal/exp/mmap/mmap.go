// Copyright 2023 The flatrec Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

//go:build unix

// Package mmap provides a way to memory-map a file for reading.
// It is a trimmed-down take on golang.org/x/exp/mmap that exposes the
// underlying data as a byte slice, which is what zero-copy record
// views need.
package mmap

import (
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

// ReaderAt reads a memory-mapped file.
//
// Like any io.ReaderAt, clients can execute parallel ReadAt calls,
// but it is not safe to call Close and reading methods concurrently.
type ReaderAt struct {
	data []byte
}

// Open memory-maps the named file for reading.
func Open(path string) (*ReaderAt, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := fi.Size()
	if size == 0 {
		return &ReaderAt{data: []byte{}}, nil
	}
	if size < 0 || size != int64(int(size)) {
		return nil, fmt.Errorf("mmap: file %q has unmappable size %d", path, size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %q: %w", path, err)
	}

	r := &ReaderAt{data: data}
	// backstop for clients that drop a ReaderAt without closing it
	runtime.SetFinalizer(r, (*ReaderAt).Close)
	return r, nil
}

// Close unmaps the file.  Data previously returned by Data is invalid
// after Close returns.
func (r *ReaderAt) Close() error {
	if r.data == nil {
		return nil
	}
	data := r.data
	r.data = nil
	runtime.SetFinalizer(r, nil)
	if len(data) == 0 {
		return nil
	}
	return unix.Munmap(data)
}

// Len returns the length of the underlying memory-mapped file.
func (r *ReaderAt) Len() int {
	return len(r.data)
}

// Data returns the memory-mapped contents.  The slice aliases the
// mapping: it must only be read, and not used after Close.
func (r *ReaderAt) Data() []byte {
	return r.data
}

// ReadAt implements io.ReaderAt.
func (r *ReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if r.data == nil {
		return 0, fmt.Errorf("mmap: closed")
	}
	if off < 0 || off > int64(len(r.data)) {
		return 0, fmt.Errorf("mmap: invalid offset %d", off)
	}
	n := copy(p, r.data[off:])
	if n < len(p) {
		return n, fmt.Errorf("mmap: short read at %d", off)
	}
	return n, nil
}
