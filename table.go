// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package mimedb

import (
	"fmt"
	"iter"

	"github.com/cespare/xxhash/v2"

	"github.com/bpowers/mimedb/internal/datafile"
	"github.com/bpowers/mimedb/internal/fold"
	"github.com/bpowers/mimedb/internal/index"
)

// MimeEntry describes one media type.  The order of Extensions carries no
// meaning.  Slices returned by lookups are shared and must not be modified.
type MimeEntry struct {
	Compressible bool
	Extensions   []string
}

// ExtEntry lists every media type that claims an extension, most
// authoritative first.  Types is never empty.
type ExtEntry struct {
	Types []string
}

const (
	kindMime uint8 = 1
	kindExt  uint8 = 2
)

// table is an immutable, case-insensitive mapping from string keys to V.
type table[V any] struct {
	idx    *index.Table
	keys   []string // as stored, original casing
	folded []string
	values []V
}

func newTable[V any](keys []string, values []V) (*table[V], error) {
	if len(keys) != len(values) {
		return nil, fmt.Errorf("len(keys) %d != len(values) %d", len(keys), len(values))
	}
	folded := make([]string, len(keys))
	for i, k := range keys {
		folded[i] = fold.Key(k)
	}
	idx, err := index.Build(folded)
	if err != nil {
		return nil, fmt.Errorf("index.Build: %w", err)
	}
	return &table[V]{
		idx:    idx,
		keys:   keys,
		folded: folded,
		values: values,
	}, nil
}

func (t *table[V]) get(key string) (*V, bool) {
	k := fold.Key(key)
	i, ok := t.idx.MaybeLookup(k)
	if !ok || t.folded[i] != k {
		// this is expected: a key that wasn't part of the build still
		// hashes to some slot
		return nil, false
	}
	return &t.values[i], true
}

func (t *table[V]) len() int {
	return t.idx.Len()
}

// DB holds the two lookup tables.  A DB is immutable once built and safe for
// concurrent use.
type DB struct {
	mimes       *table[MimeEntry]
	exts        *table[ExtEntry]
	fingerprint uint64
}

func newDB(mimeKeys []string, mimeValues []MimeEntry, extKeys []string, extValues []ExtEntry) (*DB, error) {
	mimes, err := newTable(mimeKeys, mimeValues)
	if err != nil {
		return nil, fmt.Errorf("mime table: %w", err)
	}
	exts, err := newTable(extKeys, extValues)
	if err != nil {
		return nil, fmt.Errorf("extension table: %w", err)
	}
	db := &DB{
		mimes: mimes,
		exts:  exts,
	}
	if db.fingerprint, err = db.computeFingerprint(); err != nil {
		return nil, err
	}
	return db, nil
}

func encodeMimeEntry(dst []byte, e *MimeEntry) ([]byte, error) {
	flag := byte(0)
	if e.Compressible {
		flag = 1
	}
	return datafile.AppendStrings(append(dst, flag), e.Extensions)
}

func encodeExtEntry(dst []byte, e *ExtEntry) ([]byte, error) {
	return datafile.AppendStrings(dst, e.Types)
}

// records yields every entry of both tables in their canonical encoding,
// MIME entries first.
func (db *DB) records(yield func(kind uint8, key string, value []byte) error) error {
	var buf []byte
	var err error
	for i, k := range db.mimes.keys {
		if buf, err = encodeMimeEntry(buf[:0], &db.mimes.values[i]); err != nil {
			return fmt.Errorf("mime %q: %w", k, err)
		}
		if err = yield(kindMime, k, buf); err != nil {
			return err
		}
	}
	for i, k := range db.exts.keys {
		if buf, err = encodeExtEntry(buf[:0], &db.exts.values[i]); err != nil {
			return fmt.Errorf("extension %q: %w", k, err)
		}
		if err = yield(kindExt, k, buf); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) computeFingerprint() (uint64, error) {
	d := xxhash.New()
	err := db.records(func(kind uint8, key string, value []byte) error {
		var hdr [3]byte
		hdr[0] = kind
		hdr[1] = uint8(len(key))
		hdr[2] = uint8(len(key) >> 8)
		_, _ = d.Write(hdr[:])
		_, _ = d.WriteString(key)
		_, _ = d.Write(value)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return d.Sum64(), nil
}

// Fingerprint returns a hash of the complete table contents, including
// storage order.  Two builds from the same datasets have equal fingerprints.
func (db *DB) Fingerprint() uint64 {
	return db.fingerprint
}

// MimeCount returns the number of MIME entries.
func (db *DB) MimeCount() int {
	return db.mimes.len()
}

// ExtCount returns the number of extension entries.
func (db *DB) ExtCount() int {
	return db.exts.len()
}

// LookupExt returns the entry for ext, compared case-insensitively.  ext is
// the bare extension, without a leading dot.
func (db *DB) LookupExt(ext string) (ExtEntry, bool) {
	e, ok := db.exts.get(ext)
	if !ok {
		return ExtEntry{}, false
	}
	return *e, true
}

// LookupMime returns the entry for mime, compared case-insensitively.
func (db *DB) LookupMime(mime string) (MimeEntry, bool) {
	e, ok := db.mimes.get(mime)
	if !ok {
		return MimeEntry{}, false
	}
	return *e, true
}

// Mimes yields every MIME entry exactly once, in storage order.  The
// sequence may be ranged over any number of times.
func (db *DB) Mimes() iter.Seq2[string, MimeEntry] {
	return func(yield func(string, MimeEntry) bool) {
		for i, k := range db.mimes.keys {
			if !yield(k, db.mimes.values[i]) {
				return
			}
		}
	}
}

func (db *DB) canonical(ext string) (string, *MimeEntry, bool) {
	e, ok := db.exts.get(ext)
	if !ok || len(e.Types) == 0 {
		return "", nil, false
	}
	mime := e.Types[0]
	m, ok := db.mimes.get(mime)
	if !ok {
		return "", nil, false
	}
	return mime, m, true
}

// LookupMimeFromExt resolves ext to the entry of its most authoritative MIME
// type.
func (db *DB) LookupMimeFromExt(ext string) (MimeEntry, bool) {
	_, m, ok := db.canonical(ext)
	if !ok {
		return MimeEntry{}, false
	}
	return *m, true
}
