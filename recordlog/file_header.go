// Copyright 2023 The flatrec Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package recordlog

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/segmentio/ksuid"
)

type fileHeader struct {
	magic         uint32
	formatVersion uint32
	recordCount   uint64
	fileID        ksuid.KSUID
}

func newFileHeader() (*fileHeader, error) {
	id, err := ksuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("ksuid.NewRandom: %w", err)
	}
	return &fileHeader{
		magic:         magicLogHeader,
		formatVersion: fileFormatVersion,
		fileID:        id,
	}, nil
}

func (h *fileHeader) MarshalTo(headerBytes []byte) error {
	if len(headerBytes) < fileHeaderSize {
		return fmt.Errorf("headerBytes too short: %d < %d", len(headerBytes), fileHeaderSize)
	}

	binary.LittleEndian.PutUint32(headerBytes[:4], h.magic)
	binary.LittleEndian.PutUint32(headerBytes[4:8], h.formatVersion)
	binary.LittleEndian.PutUint64(headerBytes[8:16], h.recordCount)
	copy(headerBytes[16:36], h.fileID.Bytes())

	return nil
}

func (h *fileHeader) WriteTo(w io.Writer) (n int64, err error) {
	// pad the header to the minimum cache-width we expect to see
	var headerBuf [fileHeaderSize]byte
	if err := h.MarshalTo(headerBuf[:]); err != nil {
		return 0, err
	}

	if _, err = w.Write(headerBuf[:]); err != nil {
		return 0, fmt.Errorf("write: %w", err)
	}
	return int64(fileHeaderSize), nil
}

func (h *fileHeader) UpdateRecordCount(n uint64, w io.WriterAt) error {
	h.recordCount = n

	var recordCountBuf [8]byte
	binary.LittleEndian.PutUint64(recordCountBuf[:], h.recordCount)
	if _, err := w.WriteAt(recordCountBuf[:], 8); err != nil {
		return fmt.Errorf("f.WriteAt: %w", err)
	}

	return nil
}

func (h *fileHeader) UnmarshalBytes(headerBytes []byte) error {
	if len(headerBytes) < fileHeaderSize {
		return fmt.Errorf("headerBytes too short: %d < %d", len(headerBytes), fileHeaderSize)
	}

	headerBytes = headerBytes[:fileHeaderSize]

	h.magic = binary.LittleEndian.Uint32(headerBytes[:4])
	if h.magic != magicLogHeader {
		return fmt.Errorf("bad magic number (%x) -- not a flatrec log or corrupted", h.magic)
	}

	h.formatVersion = binary.LittleEndian.Uint32(headerBytes[4:8])
	if h.formatVersion != fileFormatVersion {
		return fmt.Errorf("this version of the flatrec library can only read v%d logs; found v%d", fileFormatVersion, h.formatVersion)
	}

	h.recordCount = binary.LittleEndian.Uint64(headerBytes[8:16])

	id, err := ksuid.FromBytes(headerBytes[16:36])
	if err != nil {
		return fmt.Errorf("ksuid.FromBytes: %w", err)
	}
	h.fileID = id

	return nil
}
