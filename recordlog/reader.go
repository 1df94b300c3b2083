// Copyright 2023 The flatrec Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package recordlog

import (
	"encoding/binary"
	"fmt"
	"sync"
	"syscall"

	"github.com/dgryski/go-farm"
	"golang.org/x/sys/unix"

	"github.com/bpowers/flatrec/internal/exp/mmap"
)

// MmapReader reads records back out of a finished log by
// memory-mapping it: ReadAt returns subslices of the mapping, so
// record bytes flow into zero-copy views without ever being copied
// onto the heap.
type MmapReader struct {
	h    fileHeader
	mmap *mmap.ReaderAt
}

// NewMmapReaderWithPath maps the log at path and validates its file
// header.
func NewMmapReaderWithPath(path string) (*MmapReader, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mmap.Open(%s): %w", path, err)
	}

	if m.Len() < fileHeaderSize {
		return nil, fmt.Errorf("log file too short: %d < %d", m.Len(), fileHeaderSize)
	}

	data := m.Data()
	if err := unix.Madvise(data, syscall.MADV_RANDOM); err != nil {
		return nil, fmt.Errorf("madvise: %s", err)
	}

	var header fileHeader
	if err := header.UnmarshalBytes(data); err != nil {
		return nil, fmt.Errorf("fileHeader.UnmarshalBytes: %w", err)
	}

	r := &MmapReader{
		h:    header,
		mmap: m,
	}
	return r, nil
}

// Len returns the number of records in the log.
func (r *MmapReader) Len() int64 {
	return int64(r.h.recordCount)
}

// Close unmaps the log.  Record bytes previously returned by ReadAt
// must not be used after Close.
func (r *MmapReader) Close() error {
	return r.mmap.Close()
}

// ReadAt returns the bytes of the record whose entry starts at off.
// The returned slice borrows from the mapping; it is valid until the
// reader is closed and must only be read.
func (r *MmapReader) ReadAt(off int64) (record []byte, err error) {
	// an offset of 0 is never valid -- offsets are absolute from the
	// start of the log, and logs _always_ have a 128-byte header
	if off <= 0 {
		return nil, ErrInvalidOffset
	}

	m := r.mmap.Data()
	mLen := int64(len(m))
	// subtract on the known-small side: off is caller-supplied and
	// adding to it can overflow
	if off > mLen-entryHeaderSize {
		return nil, fmt.Errorf("off %d beyond bounds (%d)", off, mLen)
	}
	header := m[off : off+entryHeaderSize]
	// bounds check elimination
	_ = header[entryHeaderSize-1]
	expectedChecksum := binary.LittleEndian.Uint32(header[:4])
	recordLen := int64(binary.LittleEndian.Uint32(header[4:]))

	if recordLen > mLen-off-entryHeaderSize {
		return nil, fmt.Errorf("off %d + recordLen %d beyond bounds (%d)", off, recordLen, mLen)
	}
	record = m[off+entryHeaderSize : off+entryHeaderSize+recordLen]
	checksum := uint32(farm.Hash64(record))
	if expectedChecksum != checksum {
		return nil, fmt.Errorf("off %d checksum failed (%d != %d): log corrupted", off, expectedChecksum, checksum)
	}
	return record, nil
}

// IterItem is one record yielded during iteration.  Bytes borrows
// from the reader's mapping.
type IterItem struct {
	Bytes  []byte
	Offset int64
}

// Iter iterates the log's records in file order.
type Iter interface {
	Close()
	Len() int64
	ReadAt(off int64) (record []byte, err error)
	Next() (IterItem, bool)
}

// Iter returns an iterator positioned at the first record.
func (r *MmapReader) Iter() Iter {
	return &iter{r: r}
}

type iter struct {
	r    *MmapReader
	mu   sync.Mutex
	off  int64
	seen int64
}

func (i *iter) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()
}

func (i *iter) Next() (IterItem, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.seen >= i.r.Len() {
		return IterItem{}, false
	}
	if i.off == 0 {
		i.off = int64(fileHeaderSize)
	}

	record, err := i.r.ReadAt(i.off)
	if err != nil {
		return IterItem{}, false
	}

	item := IterItem{
		Bytes:  record,
		Offset: i.off,
	}

	i.off += entryHeaderSize + int64(len(record))
	i.seen += 1

	return item, true
}

func (i *iter) Len() int64 {
	return i.r.Len()
}

func (i *iter) ReadAt(off int64) (record []byte, err error) {
	return i.r.ReadAt(off)
}
