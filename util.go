// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package mimedb

import (
	"path/filepath"
	"strings"
)

type stringSet map[string]struct{}

func (set stringSet) Contains(s string) bool {
	_, ok := set[s]
	return ok
}

func (set stringSet) Add(s string) {
	set[s] = struct{}{}
}

// extOf returns the extension of a file name without its leading dot, or ""
// if it has none.
func extOf(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimPrefix(ext, ".")
}
