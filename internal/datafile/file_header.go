// Copyright 2023 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package datafile

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	magicDataHeader   = uint32(0xC0FFEE03)
	fileFormatVersion = uint32(1)
	fileHeaderSize    = 64

	headerRecordCountOff = 8
	headerFingerprintOff = 16
)

type fileHeader struct {
	magic         uint32
	formatVersion uint32
	recordCount   uint64
	fingerprint   uint64
}

func newFileHeader() *fileHeader {
	return &fileHeader{
		magic:         magicDataHeader,
		formatVersion: fileFormatVersion,
	}
}

func (h *fileHeader) MarshalTo(buf []byte) error {
	if len(buf) < fileHeaderSize {
		return fmt.Errorf("buf too short: %d < %d", len(buf), fileHeaderSize)
	}
	binary.LittleEndian.PutUint32(buf[0:4], h.magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.formatVersion)
	binary.LittleEndian.PutUint64(buf[headerRecordCountOff:headerRecordCountOff+8], h.recordCount)
	binary.LittleEndian.PutUint64(buf[headerFingerprintOff:headerFingerprintOff+8], h.fingerprint)
	return nil
}

func (h *fileHeader) WriteTo(w io.Writer) (n int64, err error) {
	var headerBuf [fileHeaderSize]byte
	if err := h.MarshalTo(headerBuf[:]); err != nil {
		return 0, err
	}
	if _, err = w.Write(headerBuf[:]); err != nil {
		return 0, fmt.Errorf("write: %w", err)
	}
	return int64(fileHeaderSize), nil
}

// Seal records the final record count and fingerprint in the header of an
// already-written file.
func (h *fileHeader) Seal(recordCount, fingerprint uint64, w io.WriterAt) error {
	h.recordCount = recordCount
	h.fingerprint = fingerprint

	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], h.recordCount)
	binary.LittleEndian.PutUint64(buf[8:16], h.fingerprint)
	if _, err := w.WriteAt(buf[:], headerRecordCountOff); err != nil {
		return fmt.Errorf("f.WriteAt: %w", err)
	}

	return nil
}

func (h *fileHeader) UnmarshalBytes(headerBytes []byte) error {
	if len(headerBytes) < fileHeaderSize {
		return fmt.Errorf("%w: header too short: %d < %d", ErrCorrupt, len(headerBytes), fileHeaderSize)
	}

	headerBytes = headerBytes[:fileHeaderSize]

	h.magic = binary.LittleEndian.Uint32(headerBytes[:4])
	if h.magic != magicDataHeader {
		return fmt.Errorf("%w: bad magic number (%x) -- not a mimedb datafile", ErrCorrupt, h.magic)
	}

	h.formatVersion = binary.LittleEndian.Uint32(headerBytes[4:8])
	if h.formatVersion != fileFormatVersion {
		return fmt.Errorf("this version of mimedb can only read v%d data files; found v%d", fileFormatVersion, h.formatVersion)
	}

	h.recordCount = binary.LittleEndian.Uint64(headerBytes[headerRecordCountOff : headerRecordCountOff+8])
	h.fingerprint = binary.LittleEndian.Uint64(headerBytes[headerFingerprintOff : headerFingerprintOff+8])

	return nil
}
