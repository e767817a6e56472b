// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package mimedb maps file extensions to media types and back, and
// identifies content by its leading magic bytes.
//
// The tables are merged from mime-db style JSON datasets by a Builder.  When
// several datasets describe the same media type the last one added wins
// outright.  When several media types claim the same extension they are
// ordered by the authority of the dataset that listed them (IANA, then
// Apache, then nginx, then anything else), and the first is the extension's
// canonical type:
//
//	mime, entry, ok := mimedb.TypeByFilename("photo.JPG")
//	// "image/jpeg", {Compressible: false, Extensions: [jpeg jpg jpe]}, true
//
// All lookups are case-insensitive and never fail: an unknown key simply
// reports false.  A built DB is immutable and may be shared between
// goroutines freely.  The package-level functions use a DB built on first use
// from datasets embedded in the binary.
//
// FromPrefix sniffs content against an ordered catalog of signatures: plain
// prefixes first, then the sub-type of RIFF containers, then signatures at
// fixed offsets (such as tar's "ustar" at byte 257).  The first match wins.
// Nothing beyond that fixed window is parsed, so for example OOXML
// documents identify as plain ZIP archives.
//
// A DB can be written to disk with Save and loaded back with Open, which
// skips decoding and merging the source datasets.
package mimedb
