// Copyright 2023 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package datafile

import (
	"encoding/binary"
	"fmt"
)

// Reader reads records out of a datafile held entirely in memory, usually
// an mmap'd artifact.
type Reader struct {
	h    fileHeader
	data []byte
}

func NewReader(data []byte) (*Reader, error) {
	var header fileHeader
	if err := header.UnmarshalBytes(data); err != nil {
		return nil, fmt.Errorf("fileHeader.UnmarshalBytes: %w", err)
	}
	// every record carries at least a header and a one-byte key
	if maxRecords := uint64(len(data)-fileHeaderSize) / (recordHeaderSize + 1); header.recordCount > maxRecords {
		return nil, fmt.Errorf("%w: %d records cannot fit in %d bytes", ErrCorrupt, header.recordCount, len(data))
	}

	return &Reader{
		h:    header,
		data: data,
	}, nil
}

// Len returns the number of records the header claims.  It is bounded by the
// size of the data, so callers may use it to size allocations.
func (r *Reader) Len() int64 {
	return int64(r.h.recordCount)
}

// Fingerprint returns the fingerprint sealed into the header.
func (r *Reader) Fingerprint() uint64 {
	return r.h.fingerprint
}

// Record is a single entry.  Key and Value alias the reader's backing memory
// and must not be written to.
type Record struct {
	Kind  uint8
	Key   []byte
	Value []byte
}

func (r *Reader) readAt(off int64) (rec Record, next int64, err error) {
	m := r.data
	mLen := int64(len(m))
	if off+recordHeaderSize > mLen {
		return Record{}, 0, fmt.Errorf("%w: off %d beyond bounds (%d)", ErrCorrupt, off, mLen)
	}
	header := m[off : off+recordHeaderSize]
	// bounds check elimination
	_ = header[recordHeaderSize-1]
	expectedChecksum := binary.LittleEndian.Uint32(header[:4])
	kind := header[headerKindOff]
	keyLen := int64(header[headerKeyLenOff])
	valueLen := int64(binary.LittleEndian.Uint16(header[headerValueLenOff : headerValueLenOff+2]))

	start := off + recordHeaderSize
	end := start + keyLen + valueLen
	if end > mLen {
		return Record{}, 0, fmt.Errorf("%w: off %d + keyLen %d + valueLen %d beyond bounds (%d)", ErrCorrupt, off, keyLen, valueLen, mLen)
	}
	if kind == 0 || keyLen == 0 {
		return Record{}, 0, fmt.Errorf("%w: malformed record header at off %d", ErrCorrupt, off)
	}
	if sum := checksum(m[start:end]); sum != expectedChecksum {
		return Record{}, 0, fmt.Errorf("%w: off %d checksum failed (%d != %d)", ErrCorrupt, off, expectedChecksum, sum)
	}

	rec = Record{
		Kind:  kind,
		Key:   m[start : start+keyLen],
		Value: m[start+keyLen : end],
	}
	return rec, end, nil
}

// Iter returns an iterator over the file's records in write order.
func (r *Reader) Iter() *Iter {
	it := &Iter{r: r, off: fileHeaderSize}
	if r.h.recordCount == 0 && int64(len(r.data)) != fileHeaderSize {
		it.err = fmt.Errorf("%w: %d trailing bytes after header", ErrCorrupt, int64(len(r.data))-fileHeaderSize)
	}
	return it
}

// Iter walks the records of a datafile.  Check Err once Next returns false.
type Iter struct {
	r    *Reader
	off  int64
	seen uint64
	err  error
}

func (i *Iter) Next() (Record, bool) {
	if i.err != nil || i.seen >= i.r.h.recordCount {
		return Record{}, false
	}

	rec, next, err := i.r.readAt(i.off)
	if err != nil {
		i.err = err
		return Record{}, false
	}
	i.off = next
	i.seen++

	if i.seen == i.r.h.recordCount && i.off != int64(len(i.r.data)) {
		i.err = fmt.Errorf("%w: %d trailing bytes after last record", ErrCorrupt, int64(len(i.r.data))-i.off)
	}

	return rec, true
}

// Err returns the first error encountered while iterating, if any.
func (i *Iter) Err() error {
	return i.err
}
