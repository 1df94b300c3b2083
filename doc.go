// Copyright 2023 The flatrec Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package flatrec reads and writes flat, self-describing binary
// records: fields packed in declaration order, with a trailing
// sequence whose element count lives in an earlier fixed field.
// Reads are zero-copy -- a validated view borrows directly from the
// input buffer -- and writes size the buffer exactly up front.
//
// The concrete record type here is SimpleArray, a float64 array with
// a reserved host-owned header word:
//
//	 0    1    2    3    4    5    6    7
//	+----+----+----+----+----+----+----+----+
//	| header (res.)     | len               |
//	+----+----+----+----+----+----+----+----+
//	| len float64s...                       |
//	+----+----+----+----+----+----+----+----+
//
// The header word is opaque to this package: it is written as 0 and
// left for the embedding host to assign (see PutHeader).  Generic
// layouts are declared with the layout package; persistence of many
// records in one file lives in recordlog.
package flatrec
