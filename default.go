// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package mimedb

import (
	"embed"
	"fmt"
	"io"
	"iter"
	"sync"
)

// data/db.json.gz is mime-db's db.json, stored compressed.
//
//go:embed data/extra.json data/db.json.gz
var embedded embed.FS

// embeddedDatasets are applied in order: the extras first, so that the
// comprehensive database overrides them.
var embeddedDatasets = []string{
	"data/extra.json",
	"data/db.json.gz",
}

var (
	defaultOnce sync.Once
	defaultDB   *DB
)

func buildEmbedded(opts ...BuilderOption) (*DB, error) {
	b := NewBuilder(opts...)
	for _, name := range embeddedDatasets {
		f, err := embedded.Open(name)
		if err != nil {
			return nil, fmt.Errorf("embedded.Open(%s): %w", name, err)
		}
		ds, err := decodeMaybeGzip(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		b.Add(ds)
	}
	return b.Finalize()
}

// Default returns the DB built from the embedded datasets.  It is built on
// first use; the embedded data is validated by the package tests, so a build
// failure here is a programming error and panics.
func Default() *DB {
	defaultOnce.Do(func() {
		db, err := buildEmbedded()
		if err != nil {
			panic(fmt.Sprintf("mimedb: building embedded database: %s", err))
		}
		defaultDB = db
	})
	return defaultDB
}

// LookupExt looks up ext in the default DB.
func LookupExt(ext string) (ExtEntry, bool) {
	return Default().LookupExt(ext)
}

// LookupMime looks up mime in the default DB.
func LookupMime(mime string) (MimeEntry, bool) {
	return Default().LookupMime(mime)
}

// Mimes enumerates the default DB's MIME entries.
func Mimes() iter.Seq2[string, MimeEntry] {
	return Default().Mimes()
}

// LookupMimeFromExt resolves ext against the default DB.
func LookupMimeFromExt(ext string) (MimeEntry, bool) {
	return Default().LookupMimeFromExt(ext)
}

// FromPrefix sniffs b, enriching the result from the default DB.
func FromPrefix(b []byte) (Match, bool) {
	return Default().FromPrefix(b)
}

// FromReader sniffs the start of r, enriching the result from the default DB.
func FromReader(r io.Reader) (Match, bool, error) {
	return Default().FromReader(r)
}

// TypeByFilename resolves the extension of name against the default DB.
func TypeByFilename(name string) (string, MimeEntry, bool) {
	return Default().TypeByFilename(name)
}
