// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestUsage(t *testing.T) {
	_, stderr, err := runCmd(t)
	require.ErrorIs(t, err, errUsage)
	assert.Contains(t, stderr, "usage: mimedb")

	_, stderr, err = runCmd(t, "frobnicate")
	require.ErrorIs(t, err, errUsage)
	assert.Contains(t, stderr, `unknown command "frobnicate"`)

	_, _, err = runCmd(t, "build", "-o", filepath.Join(t.TempDir(), "out.data"))
	require.ErrorIs(t, err, errUsage)
}

func TestBuildLookupSniff(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.json")
	override := filepath.Join(dir, "override.json")
	out := filepath.Join(dir, "mime.data")
	require.NoError(t, os.WriteFile(base, []byte(`{
		"image/png": {"source": "iana", "extensions": ["png"]},
		"text/plain": {"source": "iana", "compressible": true, "extensions": ["txt"]}
	}`), 0o644))
	require.NoError(t, os.WriteFile(override, []byte(`{
		"image/x-png": {"source": "apache", "extensions": ["png"]}
	}`), 0o644))

	stdout, stderr, err := runCmd(t, "build", "--verbose", "-o", out, base, override)
	require.NoError(t, err)
	assert.Contains(t, stdout, "3 mime types, 2 extensions")
	assert.Contains(t, stderr, "built mime database")

	stdout, _, err = runCmd(t, "lookup", "--db", out, ".PNG", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, ".PNG\timage/png,image/x-png\ntext/plain\tcompressible=true\textensions=txt\n", stdout)

	stdout, _, err = runCmd(t, "lookup", "--db", out, "gif")
	require.Error(t, err)
	assert.Equal(t, "gif\tnot found\n", stdout)

	png := filepath.Join(dir, "image.bin")
	require.NoError(t, os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 0o644))
	text := filepath.Join(dir, "notes")
	require.NoError(t, os.WriteFile(text, []byte("just words"), 0o644))

	stdout, _, err = runCmd(t, "sniff", "--db", out, png, text)
	require.NoError(t, err)
	assert.Equal(t, png+"\timage/png\tcompressible=false\n"+text+"\tunknown\n", stdout)
}

func TestSniffEmbedded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song")
	require.NoError(t, os.WriteFile(path, []byte("FLhd\x00\x00\x00\x06"), 0o644))
	stdout, _, err := runCmd(t, "sniff", path)
	require.NoError(t, err)
	assert.Equal(t, path+"\tapplication/vnd.fl-studio\n", stdout)

	_, _, err = runCmd(t, "sniff", filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuildBadDataset(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"text/plain": {"source": "w3c"}}`), 0o644))
	_, _, err := runCmd(t, "build", "-o", filepath.Join(dir, "out.data"), bad)
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "out.data"))
	require.ErrorIs(t, statErr, os.ErrNotExist)
}
