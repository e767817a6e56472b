// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package mimedb

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bpowers/mimedb/internal/datafile"
	"github.com/bpowers/mimedb/internal/mmap"
)

// ErrCorrupt is returned, wrapped, when a datafile fails validation.
var ErrCorrupt = datafile.ErrCorrupt

// FileWriter is usually an *os.File, but specified as an interface for easier testing.
type FileWriter = datafile.FileWriter

// Write serializes db as a datafile onto f.
func (db *DB) Write(f FileWriter) error {
	w, err := datafile.NewWriter(f)
	if err != nil {
		return fmt.Errorf("datafile.NewWriter: %w", err)
	}
	err = db.records(func(kind uint8, key string, value []byte) error {
		return w.Write(kind, []byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	if err := w.Finish(db.fingerprint); err != nil {
		return fmt.Errorf("datafile.Finish: %w", err)
	}
	return nil
}

// Save writes db to path.  The file is written under a temporary name and
// atomically renamed into place, then made read-only.
func (db *DB) Save(path string) error {
	// we want to write to a new file and do an atomic rename when we're done on disk
	path, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("filepath.Abs: %w", err)
	}
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "mimedb.*.data")
	if err != nil {
		return fmt.Errorf("CreateTemp failed (may need permissions for dir %q): %w", dir, err)
	}
	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}

	if err := db.Write(f); err != nil {
		cleanup()
		return err
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("f.Sync: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("f.Close: %w", err)
	}
	// make the file read-only
	if err := os.Chmod(f.Name(), 0444); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("os.Chmod(0444): %w", err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("os.Rename: %w", err)
	}
	return nil
}

// Load decodes a datafile held in memory.  Every record is checksummed and
// the rebuilt tables must reproduce the fingerprint sealed into the header.
func Load(data []byte) (*DB, error) {
	r, err := datafile.NewReader(data)
	if err != nil {
		return nil, err
	}

	// most records are MIME types
	n := int(r.Len())
	var (
		mimeKeys   = make([]string, 0, n)
		mimeValues = make([]MimeEntry, 0, n)
		extKeys    []string
		extValues  []ExtEntry
	)

	it := r.Iter()
	for rec, ok := it.Next(); ok; rec, ok = it.Next() {
		switch rec.Kind {
		case kindMime:
			if len(rec.Value) == 0 {
				return nil, fmt.Errorf("%w: empty value for mime %q", ErrCorrupt, rec.Key)
			}
			exts, rest, err := datafile.DecodeStrings(rec.Value[1:])
			if err != nil {
				return nil, fmt.Errorf("mime %q: %w", rec.Key, err)
			}
			if len(rest) != 0 || rec.Value[0] > 1 {
				return nil, fmt.Errorf("%w: malformed value for mime %q", ErrCorrupt, rec.Key)
			}
			mimeKeys = append(mimeKeys, string(rec.Key))
			mimeValues = append(mimeValues, MimeEntry{
				Compressible: rec.Value[0] == 1,
				Extensions:   exts,
			})
		case kindExt:
			types, rest, err := datafile.DecodeStrings(rec.Value)
			if err != nil {
				return nil, fmt.Errorf("extension %q: %w", rec.Key, err)
			}
			if len(rest) != 0 || len(types) == 0 {
				return nil, fmt.Errorf("%w: malformed value for extension %q", ErrCorrupt, rec.Key)
			}
			extKeys = append(extKeys, string(rec.Key))
			extValues = append(extValues, ExtEntry{Types: types})
		default:
			return nil, fmt.Errorf("%w: unknown record kind %d", ErrCorrupt, rec.Kind)
		}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}

	db, err := newDB(mimeKeys, mimeValues, extKeys, extValues)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorrupt, err)
	}
	if db.fingerprint != r.Fingerprint() {
		return nil, fmt.Errorf("%w: fingerprint mismatch (%x != %x)", ErrCorrupt, db.fingerprint, r.Fingerprint())
	}
	return db, nil
}

// Open loads the datafile at path, as written by Save.
func Open(path string) (*DB, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mmap.Open(%s): %w", path, err)
	}
	defer func() {
		_ = m.Close()
	}()

	// Load copies every key and value out of the mapping
	db, err := Load(m.Data())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return db, nil
}
