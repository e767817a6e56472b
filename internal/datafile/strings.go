// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package datafile

import (
	"encoding/binary"
	"fmt"
)

// AppendStrings encodes ss onto dst as a uvarint count followed by
// length-prefixed strings of at most MaxKeyLen bytes each.
func AppendStrings(dst []byte, ss []string) ([]byte, error) {
	dst = binary.AppendUvarint(dst, uint64(len(ss)))
	for _, s := range ss {
		if len(s) > MaxKeyLen {
			return nil, fmt.Errorf("string %q too long", s)
		}
		dst = append(dst, uint8(len(s)))
		dst = append(dst, s...)
	}
	return dst, nil
}

// DecodeStrings decodes a list written by AppendStrings, returning the
// strings and the remaining bytes.  The strings are copies.
func DecodeStrings(b []byte) ([]string, []byte, error) {
	n, w := binary.Uvarint(b)
	if w <= 0 {
		return nil, nil, fmt.Errorf("%w: bad string count", ErrCorrupt)
	}
	b = b[w:]
	if n > uint64(len(b)) {
		return nil, nil, fmt.Errorf("%w: string count %d exceeds %d remaining bytes", ErrCorrupt, n, len(b))
	}

	ss := make([]string, 0, n)
	for i := uint64(0); i < n; i++ {
		if len(b) == 0 {
			return nil, nil, fmt.Errorf("%w: truncated string list", ErrCorrupt)
		}
		l := int(b[0])
		b = b[1:]
		if l > len(b) {
			return nil, nil, fmt.Errorf("%w: truncated string", ErrCorrupt)
		}
		ss = append(ss, string(b[:l]))
		b = b[l:]
	}
	return ss, b, nil
}
