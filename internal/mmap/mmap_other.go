// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

//go:build !unix

package mmap

import "os"

// Open reads the named file into memory.
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &File{data: data}, nil
}

// Close releases the file's contents.  Closing twice is a no-op.
func (f *File) Close() error {
	f.closed.Store(true)
	f.data = nil
	return nil
}
