// Copyright 2023 The flatrec Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package recordlog

import (
	"testing"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileHeader_RoundTrip(t *testing.T) {
	origH, err := newFileHeader()
	require.NoError(t, err)
	require.Equal(t, uint32(magicLogHeader), origH.magic)
	require.Equal(t, uint32(fileFormatVersion), origH.formatVersion)
	require.NotEqual(t, ksuid.Nil, origH.fileID)
	origH.recordCount = 3

	// too-short destination should be an error
	err = origH.MarshalTo(nil)
	assert.Error(t, err)

	var newH fileHeader
	headerBytes := make([]byte, fileHeaderSize)
	// missing magic number should be an error
	err = newH.UnmarshalBytes(headerBytes)
	assert.Error(t, err)

	err = origH.MarshalTo(headerBytes)
	require.NoError(t, err)

	// too-short source should be an error
	err = newH.UnmarshalBytes(nil)
	assert.Error(t, err)

	err = newH.UnmarshalBytes(headerBytes)
	require.NoError(t, err)

	assert.Equal(t, origH, &newH)

	// deserializing an unknown version should be an error
	origH.formatVersion = 666
	err = origH.MarshalTo(headerBytes)
	require.NoError(t, err)
	err = newH.UnmarshalBytes(headerBytes)
	assert.Error(t, err)
}

func TestFileHeader_UpdateRecordCount(t *testing.T) {
	origH, err := newFileHeader()
	require.NoError(t, err)
	origH.recordCount = 3

	buf := safeBuffer{
		buf: make([]byte, fileHeaderSize),
	}
	require.NoError(t, origH.MarshalTo(buf.buf))

	const newRecordCount = uint64(999)

	err = origH.UpdateRecordCount(newRecordCount, &buf)
	require.NoError(t, err)

	var newH fileHeader
	err = newH.UnmarshalBytes(buf.Bytes())
	require.NoError(t, err)

	assert.Equal(t, origH, &newH)
	assert.Equal(t, newRecordCount, newH.recordCount)
}
