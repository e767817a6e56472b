// Copyright 2023 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package datafile contains the on-disk form of a built database: the
// merged tables, serialized once ahead of time so that a process can load
// them without re-reading and re-merging the source datasets.
//
// A datafile looks like:
//
//	┌───────────────────┐
//	│ file header       │
//	├───────────────────┤
//	│ repeated records  │
//	│                   │
//	│                   │
//	└───────────────────┘
//
// The 64-byte file header holds a magic number, the format version, the
// record count and a fingerprint of the tables the records describe.
//
// Individual records start with a fixed 8-byte header and are variable
// length:
//
//	 0    1    2    3    4    5    6    7
//	+----+----+----+----+----+----+----+----+
//	| checksum          |kind|klen| vlen    |
//	+----+----+----+----+----+----+----+----+
//	| key...       | value...               |
//	+----+----+----+----+----+----+----+----+
//
// This gives us a 255-byte max length for keys, and a 65-KB max length for
// values.  The checksum covers the key and value bytes, and is used to ensure
// we don't load a corrupted artifact (with high probability).
package datafile
