// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package mimedb

import (
	"bytes"
	"errors"
	"io"
)

// SniffLen is the number of leading bytes FromReader inspects.  Every
// signature in the catalog fits within it.
const SniffLen = 512

// signature is a magic byte sequence expected at a fixed offset.
type signature struct {
	offset int
	magic  []byte
	mime   string
}

func (s *signature) matches(b []byte) bool {
	return len(b) > s.offset && bytes.HasPrefix(b[s.offset:], s.magic)
}

// prefixSignatures are matched at offset 0, in order.  Order is priority:
// short prefixes must come after longer ones sharing their leading bytes.
// See https://en.wikipedia.org/wiki/List_of_file_signatures
var prefixSignatures = []signature{
	{magic: []byte("\x89PNG\r\n\x1a\n"), mime: "image/png"},
	{magic: []byte{0xFF, 0xD8, 0xFF}, mime: "image/jpeg"},
	{magic: []byte{0xCF, 0x84, 0x01}, mime: "image/jpeg"},
	{magic: []byte("GIF89a"), mime: "image/gif"},
	{magic: []byte("GIF87a"), mime: "image/gif"},
	{magic: []byte("MM\x00*"), mime: "image/tiff"},
	{magic: []byte("II*\x00"), mime: "image/tiff"},
	{magic: []byte("DDS "), mime: "image/vnd.ms-dds"},
	{magic: []byte("BM"), mime: "image/bmp"},
	{magic: []byte{0x00, 0x00, 0x01, 0x00}, mime: "image/x-icon"},
	{magic: []byte("icns"), mime: "image/x-icns"},
	{magic: []byte("#?RADIANCE"), mime: "image/vnd.radiance"},
	{magic: []byte("P1"), mime: "image/x-portable-anymap"},
	{magic: []byte("P2"), mime: "image/x-portable-anymap"},
	{magic: []byte("P3"), mime: "image/x-portable-anymap"},
	{magic: []byte("P4"), mime: "image/x-portable-anymap"},
	{magic: []byte("P5"), mime: "image/x-portable-anymap"},
	{magic: []byte("P6"), mime: "image/x-portable-anymap"},
	{magic: []byte("P7"), mime: "image/x-portable-anymap"},
	{magic: []byte("farbfeld"), mime: "image/x-farbfeld"},
	{magic: []byte("\x00\x00\x00 ftypavif"), mime: "image/avif"},
	{magic: []byte("\x00\x00\x00\x1cftypisom"), mime: "video/mp4"},
	{magic: []byte("\x00\x00\x00\x1cftypMSNV"), mime: "video/mp4"},
	{magic: []byte("\x00\x00\x00\x1cftypmmp4"), mime: "video/mp4"},
	{magic: []byte("ftypheicftypm"), mime: "image/heic"},
	{magic: []byte{0x76, 0x2F, 0x31, 0x01}, mime: "image/x-exr"},
	{magic: []byte("8BPS"), mime: "image/vnd.adobe.photoshop"},
	{magic: []byte("%PDF-"), mime: "application/pdf"},
	{magic: []byte("OggS"), mime: "audio/ogg"},
	{magic: []byte{0xFF, 0xFB}, mime: "audio/mp3"},
	{magic: []byte{0xFF, 0xF3}, mime: "audio/mp3"},
	{magic: []byte{0xFF, 0xF2}, mime: "audio/mp3"},
	{magic: []byte{0xFF, 0x0A}, mime: "image/jxl"},
	{magic: []byte{0x00, 0x00, 0x00, 0x0C, 'J', 'X', 'L', ' ', 0x0D, 0x0A, 0x87, 0x0A}, mime: "image/jxl"},
	{magic: []byte("ID3"), mime: "audio/mp3"},
	{magic: []byte("OTTO"), mime: "font/otf"},
	{magic: []byte{0x00, 0x01, 0x00, 0x00, 0x00}, mime: "font/ttf"},
	{magic: []byte("fLaC"), mime: "audio/x-flac"},
	// unreachable: shadowed by the identical JXL container signature above
	{magic: []byte{0x00, 0x00, 0x00, 0x0C, 'J', 'X', 'L', ' ', 0x0D, 0x0A, 0x87, 0x0A}, mime: "image/jxl"},
	{magic: []byte("MThd"), mime: "audio/midi"},
	{magic: []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, mime: "application/msword"},
	{magic: []byte{0x1F, 0x8B}, mime: "application/gzip"},
	{magic: []byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}, mime: "application/x-7z-compressed"},
	{magic: []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}, mime: "application/x-xz"},
	{magic: []byte("FLIF"), mime: "image/flif"},
	{magic: []byte{0x1A, 0x45, 0xDF, 0xA3}, mime: "video/x-matroska"},
	{magic: []byte{0x47}, mime: "video/mpeg"},
	{magic: []byte{0x78, 0x01}, mime: "application/z-lib"},
	{magic: []byte{0x78, 0x5E}, mime: "application/z-lib"},
	{magic: []byte{0x78, 0x9C}, mime: "application/z-lib"},
	{magic: []byte{0x78, 0xDA}, mime: "application/z-lib"},
	{magic: []byte{0x78, 0x20}, mime: "application/z-lib"},
	{magic: []byte{0x78, 0x7D}, mime: "application/z-lib"},
	{magic: []byte{0x78, 0xBB}, mime: "application/z-lib"},
	{magic: []byte{0x78, 0xF9}, mime: "application/z-lib"},
	{magic: []byte("FLhd"), mime: "application/vnd.fl-studio"},
	{magic: []byte("#EXTM3U"), mime: "audio/mpegurl"},
	{magic: []byte("BZh"), mime: "application/x-bzip2"},
	{magic: []byte("BLENDER"), mime: "application/x-blend"},
	{magic: []byte("FLV"), mime: "video/x-flv"},
	{magic: []byte("MSCF"), mime: "application/vnd.ms-cab-compressed"},
	{magic: []byte{0x30, 0x26, 0xB2, 0x75, 0x8E, 0x66, 0xCF, 0x11, 0xA6, 0xD9, 0x00, 0xAA, 0x00, 0x62, 0xCE, 0x6C}, mime: "video/x-ms-wmv"},
	{magic: []byte("SIMPLE  =                    T"), mime: "image/fits"},
	{magic: []byte{0x06, 0x06, 0xED, 0xF5, 0xD8, 0x1D, 0x46, 0xE5, 0xBD, 0x31, 0xEF, 0xE7, 0xFE, 0x74, 0xB7, 0x1D}, mime: "application/x-indesign"},
}

// riffSignatures are matched against the four bytes at offset 8 of a RIFF
// container.
var riffSignatures = []signature{
	{offset: 8, magic: []byte("WEBP"), mime: "image/webp"},
	{offset: 8, magic: []byte("WAVE"), mime: "audio/wav"},
	{offset: 8, magic: []byte("AVI "), mime: "video/x-msvideo"},
	{offset: 8, magic: []byte("CDDA"), mime: "audio/cda"},
	{offset: 8, magic: []byte("AVI "), mime: "video/avi"},
}

var riffMagic = []byte("RIFF")

const riffHeaderLen = 12

// offsetSignatures are matched at non-zero offsets once nothing else has.
var offsetSignatures = []signature{
	{offset: 4, magic: []byte("ftyp3g"), mime: "video/3gpp"},
	{offset: 257, magic: []byte("ustar\x0000"), mime: "application/tar"},
	{offset: 257, magic: []byte("ustar  \x00"), mime: "application/tar"},
}

// sniff returns the MIME type of the first signature matching b.
func sniff(b []byte) (string, bool) {
	for i := range prefixSignatures {
		if prefixSignatures[i].matches(b) {
			return prefixSignatures[i].mime, true
		}
	}

	if len(b) >= riffHeaderLen && bytes.HasPrefix(b, riffMagic) {
		for i := range riffSignatures {
			if riffSignatures[i].matches(b) {
				return riffSignatures[i].mime, true
			}
		}
	}

	for i := range offsetSignatures {
		if offsetSignatures[i].matches(b) {
			return offsetSignatures[i].mime, true
		}
	}

	return "", false
}

// Match is the result of sniffing content.
type Match struct {
	MIME string
	// Entry is nil when the sniffed type has no table entry.  It points into
	// the DB and must not be modified.
	Entry *MimeEntry
}

// FromPrefix identifies b by its leading magic bytes.
func (db *DB) FromPrefix(b []byte) (Match, bool) {
	mime, ok := sniff(b)
	if !ok {
		return Match{}, false
	}
	m := Match{MIME: mime}
	if e, ok := db.mimes.get(mime); ok {
		m.Entry = e
	}
	return m, true
}

// FromReader reads up to SniffLen bytes from r and identifies them with
// FromPrefix.  Short content is not an error.
func (db *DB) FromReader(r io.Reader) (Match, bool, error) {
	buf := make([]byte, SniffLen)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Match{}, false, err
	}
	m, ok := db.FromPrefix(buf[:n])
	return m, ok, nil
}

// TypeByFilename resolves the extension of name, if it has one, to its most
// authoritative MIME type and that type's entry.
func (db *DB) TypeByFilename(name string) (string, MimeEntry, bool) {
	ext := extOf(name)
	if ext == "" {
		return "", MimeEntry{}, false
	}
	mime, e, ok := db.canonical(ext)
	if !ok {
		return "", MimeEntry{}, false
	}
	return mime, *e, true
}
