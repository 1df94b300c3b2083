// Copyright 2023 The flatrec Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package recordlog stores a sequence of flat record buffers in a
// single write-once file, for hosts that need durable framing around
// records built with the flatrec and layout packages.
//
// A log looks like:
//
//	┌───────────────────┐
//	│ file header       │
//	├───────────────────┤
//	│ repeated records  │
//	│                   │
//	│                   │
//	│                   │
//	└───────────────────┘
//
// Individual entries start with a fixed 8-byte header and are variable
// length:
//
//	 0    1    2    3    4    5    6    7
//	+----+----+----+----+----+----+----+----+
//	| record checksum   | record length     |
//	+----+----+----+----+----+----+----+----+
//	| record bytes...                       |
//	+----+----+----+----+----+----+----+----+
//
// The checksum is calculated from the record's bytes, so on-disk
// corruption is detected (with high probability) before a record is
// handed to a zero-copy view.  Reading is mmap-based and returns
// subslices of the mapping; records are never copied onto the heap on
// the read path.
package recordlog
