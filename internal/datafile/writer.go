// Copyright 2023 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package datafile

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/dgryski/go-farm"
)

const (
	defaultBufferSize = 64 * 1024
	recordHeaderSize  = 4 + 1 + 1 + 2 // 32-bit checksum + kind + 8-bit key length + 16-bit value length

	MaxKeyLen   = (1 << 8) - 1
	MaxValueLen = (1 << 16) - 1

	headerKindOff     = 4
	headerKeyLenOff   = 5
	headerValueLenOff = 6
)

var (
	ErrCorrupt     = errors.New("datafile corrupted")
	errFinished    = errors.New("writer already finished")
	errEmptyKey    = errors.New("empty key not supported")
	errNoRecordKey = errors.New("record kind 0 is reserved")
)

type nopWriter struct{}

func (nopWriter) Write([]byte) (int, error) {
	return 0, io.EOF
}

// FileWriter is usually an *os.File, but specified as an interface for easier testing.
type FileWriter interface {
	io.Writer
	io.WriterAt
}

type Writer struct {
	f        FileWriter
	h        *fileHeader
	w        *bufio.Writer
	count    uint64
	scratch  []byte
	finished atomic.Bool
}

func NewWriter(f FileWriter) (*Writer, error) {
	w := &Writer{
		f: f,
		h: newFileHeader(),
		w: bufio.NewWriterSize(f, defaultBufferSize),
	}

	if _, err := w.h.WriteTo(w.w); err != nil {
		return nil, fmt.Errorf("fileHeader.WriteTo: %w", err)
	}

	// try to expose errors when writing to the backing file early
	if err := w.w.Flush(); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}

	return w, nil
}

func checksum(keyValue []byte) uint32 {
	return uint32(farm.Hash64(keyValue))
}

// Write appends a record.  kind distinguishes the tables records belong to
// and must be non-zero.
func (w *Writer) Write(kind uint8, key, value []byte) error {
	if w.finished.Load() {
		return errFinished
	}
	if kind == 0 {
		return errNoRecordKey
	}
	if len(key) == 0 {
		return errEmptyKey
	}
	if len(key) > MaxKeyLen {
		return fmt.Errorf("key %q too long", string(key))
	}
	if len(value) > MaxValueLen {
		return fmt.Errorf("value for key %q too long (%d bytes)", string(key), len(value))
	}

	w.scratch = append(append(w.scratch[:0], key...), value...)

	var header [recordHeaderSize]byte
	binary.LittleEndian.PutUint32(header[:4], checksum(w.scratch))
	header[headerKindOff] = kind
	header[headerKeyLenOff] = uint8(len(key))
	binary.LittleEndian.PutUint16(header[headerValueLenOff:headerValueLenOff+2], uint16(len(value)))

	if _, err := w.w.Write(header[:]); err != nil {
		return fmt.Errorf("bufio.Write: %w", err)
	}
	if _, err := w.w.Write(w.scratch); err != nil {
		return fmt.Errorf("bufio.Write: %w", err)
	}
	w.count++

	return nil
}

// Finish flushes buffered records and seals the header with the record count
// and the given fingerprint.  Calling Finish more than once is a no-op.
func (w *Writer) Finish(fingerprint uint64) error {
	if alreadyFinished := w.finished.Swap(true); alreadyFinished {
		// nothing to do - already cleaned up
		return nil
	}

	defer func() {
		w.w.Reset(&nopWriter{})
		w.w = nil
	}()

	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("bufio.Flush: %w", err)
	}

	return w.h.Seal(w.count, fingerprint, w.f)
}
