// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package mmap provides read-only access to artifact files, memory mapped
// where the platform supports it.
package mmap

import "sync/atomic"

// File holds the contents of an opened file.
type File struct {
	data   []byte
	closed atomic.Bool
}

// Data returns the file's bytes.  They must not be written to, and must not
// be used after Close.
func (f *File) Data() []byte {
	return f.data
}
