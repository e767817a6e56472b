// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package mimedb

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memFile struct {
	buf []byte
}

func (m *memFile) Write(p []byte) (int, error) {
	m.buf = append(m.buf, p...)
	return len(p), nil
}

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	if int(off)+len(p) > len(m.buf) {
		return 0, errors.New("writeAt out of bounds")
	}
	return copy(m.buf[off:], p), nil
}

var _ FileWriter = &memFile{}

func requireSameDB(t *testing.T, expected, actual *DB) {
	t.Helper()
	require.Equal(t, expected.Fingerprint(), actual.Fingerprint())
	require.Equal(t, expected.MimeCount(), actual.MimeCount())
	require.Equal(t, expected.ExtCount(), actual.ExtCount())

	for mime, e := range expected.Mimes() {
		got, ok := actual.LookupMime(mime)
		require.True(t, ok, mime)
		require.Equal(t, e.Compressible, got.Compressible, mime)
		require.ElementsMatch(t, e.Extensions, got.Extensions, mime)
	}
	for _, ext := range expected.exts.keys {
		e, _ := expected.LookupExt(ext)
		got, ok := actual.LookupExt(ext)
		require.True(t, ok, ext)
		require.Equal(t, e.Types, got.Types, ext)
	}
}

func TestSaveOpen(t *testing.T) {
	db := Default()
	path := filepath.Join(t.TempDir(), "mime.data")
	require.NoError(t, db.Save(path))

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0444), fi.Mode().Perm())

	loaded, err := Open(path)
	require.NoError(t, err)
	requireSameDB(t, db, loaded)

	// the mapping is gone; everything must have been copied out
	m, ok := loaded.FromPrefix([]byte("\x89PNG\r\n\x1a\n"))
	require.True(t, ok)
	require.NotNil(t, m.Entry)
	assert.Equal(t, []string{"png"}, m.Entry.Extensions)

	// only the temporary file's rename target remains
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestWriteLoad(t *testing.T) {
	db := buildTestDB(t, decodeString(t, `{
		"text/plain": {"source": "iana", "compressible": true, "extensions": ["txt", "TEXT"]},
		"text/x-nothing": {},
		"application/x-rpm": {"source": "apache", "extensions": ["rpm"]},
		"application/x-redhat-package-manager": {"source": "nginx", "extensions": ["rpm"]}
	}`))

	var f memFile
	require.NoError(t, db.Write(&f))

	loaded, err := Load(f.buf)
	require.NoError(t, err)
	requireSameDB(t, db, loaded)

	e, ok := loaded.LookupExt("RPM")
	require.True(t, ok)
	assert.Equal(t, []string{"application/x-rpm", "application/x-redhat-package-manager"}, e.Types)

	e, ok = loaded.LookupExt("text")
	require.True(t, ok)
	assert.Equal(t, []string{"text/plain"}, e.Types)

	nothing, ok := loaded.LookupMime("text/x-nothing")
	require.True(t, ok)
	assert.Empty(t, nothing.Extensions)
}

func TestLoadEmpty(t *testing.T) {
	db := buildTestDB(t)
	var f memFile
	require.NoError(t, db.Write(&f))
	loaded, err := Load(f.buf)
	require.NoError(t, err)
	require.Zero(t, loaded.MimeCount())
	require.Equal(t, db.Fingerprint(), loaded.Fingerprint())

	_, err = Load(append(f.buf, 0))
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestLoadCorrupt(t *testing.T) {
	db := buildTestDB(t, decodeString(t, `{
		"image/png": {"source": "iana", "extensions": ["png"]},
		"image/gif": {"source": "iana", "extensions": ["gif"]}
	}`))
	var f memFile
	require.NoError(t, db.Write(&f))
	good := f.buf

	corrupt := func(fn func(b []byte) []byte) []byte {
		b := make([]byte, len(good))
		copy(b, good)
		return fn(b)
	}

	for _, testcase := range []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", good[:32]},
		{"bad magic", corrupt(func(b []byte) []byte {
			b[0] ^= 0xFF
			return b
		})},
		{"truncated", good[:len(good)-1]},
		{"trailing bytes", append(corrupt(func(b []byte) []byte { return b }), 0)},
		{"flipped value byte", corrupt(func(b []byte) []byte {
			b[len(b)-1] ^= 0x01
			return b
		})},
		{"fingerprint", corrupt(func(b []byte) []byte {
			fp := binary.LittleEndian.Uint64(b[16:24])
			binary.LittleEndian.PutUint64(b[16:24], fp+1)
			return b
		})},
		{"record count too large", corrupt(func(b []byte) []byte {
			binary.LittleEndian.PutUint64(b[8:16], 1<<62)
			return b
		})},
		{"record count", corrupt(func(b []byte) []byte {
			n := binary.LittleEndian.Uint64(b[8:16])
			binary.LittleEndian.PutUint64(b[8:16], n-1)
			return b
		})},
	} {
		t.Run(testcase.name, func(t *testing.T) {
			_, err := Load(testcase.data)
			require.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(filepath.Join(dir, "missing.data"))
	require.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(dir, "garbage.data")
	require.NoError(t, os.WriteFile(path, []byte("not a datafile, just some text that is long enough to be a header......"), 0o644))
	_, err = Open(path)
	require.ErrorIs(t, err, ErrCorrupt)

	// an empty file maps to an empty buffer
	empty := filepath.Join(dir, "empty.data")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = Open(empty)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestSaveBadDir(t *testing.T) {
	err := Default().Save(filepath.Join(t.TempDir(), "no", "such", "dir", "mime.data"))
	require.Error(t, err)
}
