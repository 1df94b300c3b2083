// Copyright 2023 The flatrec Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package recordlog

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/dgryski/go-farm"
)

const (
	magicLogHeader    = 0xF1A7C0DE
	fileFormatVersion = 1
	fileHeaderSize    = 128
	defaultBufferSize = 4 * 1024 * 1024

	// 32-bit checksum of the record + 32-bit record length
	entryHeaderSize = 4 + 4

	maxRecordLen = (1 << 31) - 1
)

var (
	ErrInvalidOffset = errors.New("invalid offset")
)

type nopWriter struct{}

func (nopWriter) Write([]byte) (int, error) {
	return 0, io.EOF
}

// FileWriter is usually an *os.File, but specified as an interface for
// easier testing.
type FileWriter interface {
	io.Writer
	io.WriterAt
}

// Writer appends flat record buffers to a log file: a 128-byte file
// header followed by length-and-checksum framed records.  Logs are
// write-once: after Finish the file is only ever read.
type Writer struct {
	f        FileWriter
	h        *fileHeader
	w        *bufio.Writer
	off      uint64
	count    uint64
	finished atomic.Bool
}

// NewWriter writes a fresh file header to f and returns a Writer
// positioned after it.
func NewWriter(f FileWriter) (*Writer, error) {
	h, err := newFileHeader()
	if err != nil {
		return nil, fmt.Errorf("newFileHeader: %w", err)
	}
	w := &Writer{
		f: f,
		h: h,
		w: bufio.NewWriterSize(f, defaultBufferSize),
	}

	if headerLen, err := w.h.WriteTo(w.w); err != nil {
		return nil, fmt.Errorf("fileHeader.WriteTo: %w", err)
	} else {
		w.off = uint64(headerLen)
	}

	// try to expose errors when writing to the backing file early
	if err := w.w.Flush(); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}

	return w, nil
}

// Append frames and writes one record buffer, returning the file
// offset its entry starts at.  An offset of 0 is never returned for a
// valid entry -- the file header occupies it.
func (w *Writer) Append(record []byte) (off uint64, err error) {
	off = w.off
	if off == 0 {
		return 0, errors.New("invariant broken: always expect *Writer.off to be > 0")
	}
	if len(record) == 0 {
		return 0, errors.New("empty record not supported")
	}
	if len(record) > maxRecordLen {
		return 0, fmt.Errorf("record of %d bytes too long", len(record))
	}

	var header [entryHeaderSize]byte
	checksum := uint32(farm.Hash64(record))
	binary.LittleEndian.PutUint32(header[:4], checksum)
	binary.LittleEndian.PutUint32(header[4:], uint32(len(record)))

	headerWritten, err := w.w.Write(header[:])
	if err != nil {
		return 0, fmt.Errorf("bufio.Write 1: %w", err)
	}
	recordWritten, err := w.w.Write(record)
	if err != nil {
		return 0, fmt.Errorf("bufio.Write 2: %w", err)
	}

	w.off += uint64(headerWritten + recordWritten)
	w.count += 1

	return off, nil
}

// Count returns the number of records appended so far.
func (w *Writer) Count() uint64 {
	return w.count
}

// Finish flushes buffered entries and patches the record count into
// the file header.  Multiple Finishes are fine; later ones are no-ops.
func (w *Writer) Finish() error {
	if alreadyFinished := w.finished.Swap(true); alreadyFinished {
		// nothing to do - already cleaned up
		return nil
	}

	defer func() {
		w.w.Reset(nopWriter{})
		w.w = nil
	}()

	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("bufio.Flush: %w", err)
	}

	return w.h.UpdateRecordCount(w.count, w.f)
}
