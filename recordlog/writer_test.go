// Copyright 2023 The flatrec Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package recordlog

import (
	"errors"
	"math"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpowers/flatrec"
)

type safeBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (s *safeBuffer) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]byte{}, s.buf...)
}

func (s *safeBuffer) Write(p []byte) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = append(s.buf, p...)
	return len(p), nil
}

func (s *safeBuffer) WriteAt(p []byte, off int64) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if int(off)+len(p) > len(s.buf) {
		return 0, errors.New("writeAt out of bounds")
	}

	return copy(s.buf[off:int(off)+len(p)], p), nil
}

var _ FileWriter = &safeBuffer{}

type testWriter struct {
	inner            FileWriter
	writeShouldError bool
}

func (c *testWriter) Write(p []byte) (n int, err error) {
	if c.writeShouldError {
		return 0, errors.New("write failed")
	}
	return c.inner.Write(p)
}

func (c *testWriter) WriteAt(p []byte, off int64) (n int, err error) {
	if c.writeShouldError {
		return 0, errors.New("write failed")
	}
	return c.inner.WriteAt(p, off)
}

var _ FileWriter = &testWriter{}

func TestNewWriter_Errors(t *testing.T) {
	var fileBytes safeBuffer
	writer := &testWriter{
		inner:            &fileBytes,
		writeShouldError: true,
	}

	_, err := NewWriter(writer)
	assert.Error(t, err)
}

func TestWriter_AppendErrors(t *testing.T) {
	var fileBytes safeBuffer

	w, err := NewWriter(&fileBytes)
	require.NoError(t, err)

	// empty records aren't supported
	_, err = w.Append(nil)
	assert.Error(t, err)

	err = w.Finish()
	require.NoError(t, err)
	// multiple finishes should be fine
	err = w.Finish()
	require.NoError(t, err)

	{
		origOff := w.off

		w.off = 0
		_, err := w.Append([]byte("r"))
		assert.Error(t, err)

		w.off = origOff
	}

	// no records were written; the header must say so
	var h fileHeader
	err = h.UnmarshalBytes(fileBytes.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), h.recordCount)
}

func TestWriter_Finish(t *testing.T) {
	var fileBytes safeBuffer

	w, err := NewWriter(&fileBytes)
	require.NoError(t, err)

	var lastOff uint64
	for i := 0; i < 1000; i++ {
		record, err := flatrec.New([]float64{float64(i), float64(i) * 2})
		require.NoError(t, err)
		off, err := w.Append(record)
		require.NoError(t, err)
		require.Greater(t, off, lastOff)
		lastOff = off
	}
	require.Equal(t, uint64(1000), w.Count())

	err = w.Finish()
	require.NoError(t, err)

	var h fileHeader
	err = h.UnmarshalBytes(fileBytes.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), h.recordCount)
}

func TestWriter_RoundTrip(t *testing.T) {
	var fileBytes safeBuffer

	w, err := NewWriter(&fileBytes)
	require.NoError(t, err)

	offs := make([]uint64, 0, 100)
	for i := 0; i < 100; i++ {
		vals := make([]float64, i%7)
		for j := range vals {
			vals[j] = float64(i + j)
		}
		record, err := flatrec.New(vals)
		require.NoError(t, err)
		off, err := w.Append(record)
		require.NoError(t, err)
		offs = append(offs, off)
	}

	err = w.Finish()
	require.NoError(t, err)

	logFile, err := os.CreateTemp(t.TempDir(), "flatrec-test.*.log")
	require.NoError(t, err)
	contents := fileBytes.Bytes()
	n, err := logFile.Write(contents)
	require.NoError(t, err)
	require.Equal(t, len(contents), n)
	require.NoError(t, logFile.Close())

	r, err := NewMmapReaderWithPath(logFile.Name())
	require.NoError(t, err)
	require.NotNil(t, r)
	defer func() {
		_ = r.Close()
	}()

	assert.Equal(t, int64(100), r.Len())

	i := 0
	it := r.Iter()
	assert.Equal(t, int64(100), it.Len())
	for item, ok := it.Next(); ok; item, ok = it.Next() {
		require.Equal(t, int64(offs[i]), item.Offset)

		record, err := it.ReadAt(item.Offset)
		require.NoError(t, err)
		require.Equal(t, item.Bytes, record)

		arr, rest, err := flatrec.FromBytes(record)
		require.NoError(t, err)
		require.Equal(t, 0, len(rest))
		require.Equal(t, i%7, arr.Len())
		for j := 0; j < arr.Len(); j++ {
			got, ok := arr.At(j)
			require.True(t, ok)
			require.Equal(t, float64(i+j), got)
		}
		i++
	}
	require.Equal(t, 100, i)

	// should be safe for multiple closes
	it.Close()
	it.Close()
}

func TestReader_Errors(t *testing.T) {
	_, err := NewMmapReaderWithPath("/doesnt/exist")
	assert.Error(t, err)

	_, err = NewMmapReaderWithPath("/dev/null")
	assert.Error(t, err)
}

func TestReader_Corruption(t *testing.T) {
	var fileBytes safeBuffer

	w, err := NewWriter(&fileBytes)
	require.NoError(t, err)
	record, err := flatrec.New([]float64{1, 2, 3})
	require.NoError(t, err)
	off, err := w.Append(record)
	require.NoError(t, err)
	require.NoError(t, w.Finish())

	contents := fileBytes.Bytes()
	// flip a byte inside the record payload
	contents[int(off)+entryHeaderSize+9] ^= 0xff

	logFile, err := os.CreateTemp(t.TempDir(), "flatrec-test.*.log")
	require.NoError(t, err)
	_, err = logFile.Write(contents)
	require.NoError(t, err)
	require.NoError(t, logFile.Close())

	r, err := NewMmapReaderWithPath(logFile.Name())
	require.NoError(t, err)
	defer func() {
		_ = r.Close()
	}()

	_, err = r.ReadAt(int64(off))
	assert.Error(t, err)

	// invalid offsets are rejected up front
	_, err = r.ReadAt(0)
	assert.ErrorIs(t, err, ErrInvalidOffset)
	_, err = r.ReadAt(1 << 40)
	assert.Error(t, err)

	// offsets near the top of the range must error cleanly, not
	// overflow the bounds arithmetic into a panic
	for _, huge := range []int64{math.MaxInt64, math.MaxInt64 - 4, math.MaxInt64 - entryHeaderSize} {
		_, err = r.ReadAt(huge)
		assert.Error(t, err, "off %d", huge)
	}
}
