// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package mimedb

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	benchExts     []string
	benchHashmap  map[string]ExtEntry
	benchExtsOnce sync.Once
)

func loadBenchExts() {
	db := Default()
	benchHashmap = make(map[string]ExtEntry)
	for _, e := range db.exts.keys {
		benchExts = append(benchExts, e)
		entry, _ := db.LookupExt(e)
		benchHashmap[e] = entry
	}
}

func buildTestDB(t testing.TB, datasets ...*Dataset) *DB {
	t.Helper()
	b := NewBuilder()
	for _, ds := range datasets {
		b.Add(ds)
	}
	db, err := b.Finalize()
	require.NoError(t, err)
	return db
}

func TestLookupExt(t *testing.T) {
	for _, testcase := range []struct {
		ext   string
		types []string
	}{
		{"png", []string{"image/png"}},
		{"mp3", []string{"audio/mpeg", "audio/mp3"}},
		{"rpm", []string{"application/x-redhat-package-manager"}},
		{"ico", []string{"image/x-icon"}},
		{"m4a", []string{"audio/mp4", "audio/x-m4a"}},
		{"xml", []string{"application/xml", "text/xml"}},
		{"tar", []string{"application/x-tar"}},
		{"avi", []string{"video/x-msvideo", "video/avi"}},
		{"wav", []string{"audio/x-wav", "audio/wav", "audio/wave"}},
	} {
		t.Run(testcase.ext, func(t *testing.T) {
			e, ok := LookupExt(testcase.ext)
			require.True(t, ok)
			assert.Equal(t, testcase.types, e.Types)
		})
	}
}

func TestLookupCaseInsensitive(t *testing.T) {
	lower, ok := LookupExt("jpg")
	require.True(t, ok)
	for _, ext := range []string{"JPG", "Jpg", "jPg"} {
		e, ok := LookupExt(ext)
		require.True(t, ok, ext)
		assert.Equal(t, lower, e)
	}

	lowerMime, ok := LookupMime("text/html")
	require.True(t, ok)
	for _, mime := range []string{"TEXT/HTML", "Text/Html"} {
		e, ok := LookupMime(mime)
		require.True(t, ok, mime)
		assert.Equal(t, lowerMime, e)
	}
}

func TestLookupMissing(t *testing.T) {
	for _, key := range []string{"", ".png", "definitely-not-an-extension", "\u00e9t\u00e9", "\x00"} {
		_, ok := LookupExt(key)
		assert.False(t, ok, key)
	}
	for _, key := range []string{"", "text/", "image/not-a-real-type", "png"} {
		_, ok := LookupMime(key)
		assert.False(t, ok, key)
	}
	_, ok := LookupMimeFromExt("definitely-not-an-extension")
	assert.False(t, ok)
}

func TestLookupMime(t *testing.T) {
	e, ok := LookupMime("image/jpeg")
	require.True(t, ok)
	assert.False(t, e.Compressible)
	assert.ElementsMatch(t, []string{"jpeg", "jpg", "jpe"}, e.Extensions)

	e, ok = LookupMime("text/plain")
	require.True(t, ok)
	assert.True(t, e.Compressible)
	assert.Contains(t, e.Extensions, "txt")

	// listed without extensions
	e, ok = LookupMime("image/vnd.radiance")
	require.True(t, ok)
	assert.Empty(t, e.Extensions)
}

func TestLookupMimeFromExt(t *testing.T) {
	e, ok := LookupMimeFromExt("mp3")
	require.True(t, ok)
	mpeg, _ := LookupMime("audio/mpeg")
	assert.Equal(t, mpeg, e)

	e, ok = LookupMimeFromExt("PNG")
	require.True(t, ok)
	assert.Equal(t, []string{"png"}, e.Extensions)
}

func TestEmbeddedOverride(t *testing.T) {
	// audio/mp3 is in both embedded datasets; the later one replaces it whole
	e, ok := LookupMime("audio/mp3")
	require.True(t, ok)
	assert.False(t, e.Compressible)
	assert.Equal(t, []string{"mp3"}, e.Extensions)

	// mpga came only from the replaced record
	ext, ok := LookupExt("mpga")
	require.True(t, ok)
	assert.Equal(t, []string{"audio/mpeg"}, ext.Types)

	// mime-db lists application/tar without extensions, so .tar no longer
	// reaches it
	e, ok = LookupMime("application/tar")
	require.True(t, ok)
	assert.True(t, e.Compressible)
	assert.Empty(t, e.Extensions)
	ext, ok = LookupExt("tar")
	require.True(t, ok)
	assert.Equal(t, []string{"application/x-tar"}, ext.Types)

	// types missing from mime-db keep their extra record
	e, ok = LookupMime("image/jxl")
	require.True(t, ok)
	assert.True(t, e.Compressible)
	assert.Equal(t, []string{"jxl"}, e.Extensions)
}

// Every MIME type reached through an extension is itself present, and every
// extension of every entry resolves back to a list containing that type.
func TestTablesConsistent(t *testing.T) {
	db := Default()
	require.Positive(t, db.MimeCount())
	require.Positive(t, db.ExtCount())

	seen := make(map[string]bool)
	for mime, e := range db.Mimes() {
		require.False(t, seen[mime], "duplicate %q", mime)
		seen[mime] = true
		assert.Equal(t, strings.ToLower(mime), mime)

		byMime, ok := db.LookupMime(mime)
		require.True(t, ok, mime)
		assert.Equal(t, e, byMime)

		for _, ext := range e.Extensions {
			exts, ok := db.LookupExt(ext)
			require.True(t, ok, ext)
			assert.Contains(t, exts.Types, mime)
		}
	}
	require.Equal(t, db.MimeCount(), len(seen))

	for _, ext := range db.exts.keys {
		e, ok := db.LookupExt(ext)
		require.True(t, ok, ext)
		require.NotEmpty(t, e.Types)
		for _, mime := range e.Types {
			_, ok := db.LookupMime(mime)
			assert.True(t, ok, "%s -> %s", ext, mime)
		}
	}
}

func TestMimesRestartable(t *testing.T) {
	db := Default()
	var first, second []string
	for mime := range db.Mimes() {
		first = append(first, mime)
	}
	for mime := range db.Mimes() {
		second = append(second, mime)
	}
	require.Equal(t, first, second)

	// early exit
	n := 0
	for range db.Mimes() {
		n++
		if n == 3 {
			break
		}
	}
	require.Equal(t, 3, n)
}

func TestConcurrentLookups(t *testing.T) {
	db := Default()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				e, ok := db.LookupExt("PNG")
				if !ok || e.Types[0] != "image/png" {
					t.Errorf("LookupExt(PNG) = %v, %v", e, ok)
					return
				}
				if _, ok := db.FromPrefix([]byte("GIF89a")); !ok {
					t.Errorf("FromPrefix(GIF89a) failed")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func BenchmarkLookupExt(b *testing.B) {
	benchExtsOnce.Do(loadBenchExts)
	db := Default()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ext := benchExts[i%len(benchExts)]
		if _, ok := db.LookupExt(ext); !ok {
			b.Fatal("not ok")
		}
	}
}

func BenchmarkHashmap(b *testing.B) {
	benchExtsOnce.Do(loadBenchExts)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ext := benchExts[i%len(benchExts)]
		if _, ok := benchHashmap[ext]; !ok {
			b.Fatal("not ok")
		}
	}
}
