// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package fold produces the case-folded form of table keys.  Two keys
// are considered equal by the lookup tables iff their folded forms are
// byte-identical.
package fold

import (
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Key returns the folded form of s.  Keys that are already lower-case
// ASCII (the overwhelmingly common case for MIME types and extensions)
// are returned as-is without allocating.
func Key(s string) string {
	upper := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= utf8.RuneSelf {
			// a Caser carries state, so it can't be shared between goroutines
			return cases.Fold().String(s)
		}
		if 'A' <= c && c <= 'Z' {
			upper = true
		}
	}
	if !upper {
		return s
	}

	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		b[i] = c
	}
	return string(b)
}
