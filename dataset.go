// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package mimedb

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"iter"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/gzip"
)

// Record is a single MIME type as described by one dataset.
type Record struct {
	Compressible bool
	Extensions   []string
	Source       Source
}

// Dataset is an ordered mapping from MIME type to Record.  Iteration follows
// first-insertion order, which keeps builds reproducible.
type Dataset struct {
	keys    []string
	records map[string]Record
}

func NewDataset() *Dataset {
	return &Dataset{records: make(map[string]Record)}
}

// Set adds or replaces the record for mime.  A replaced record keeps the
// position of the original.
func (d *Dataset) Set(mime string, rec Record) {
	if _, ok := d.records[mime]; !ok {
		d.keys = append(d.keys, mime)
	}
	d.records[mime] = rec
}

func (d *Dataset) Get(mime string) (Record, bool) {
	rec, ok := d.records[mime]
	return rec, ok
}

func (d *Dataset) Len() int {
	return len(d.keys)
}

// All yields every record in insertion order.
func (d *Dataset) All() iter.Seq2[string, Record] {
	return func(yield func(string, Record) bool) {
		for _, k := range d.keys {
			if !yield(k, d.records[k]) {
				return
			}
		}
	}
}

type jsonRecord struct {
	Compressible bool     `json:"compressible"`
	Extensions   []string `json:"extensions"`
	Source       string   `json:"source"`
}

// DecodeDataset reads a JSON object mapping MIME types to records shaped like
// mime-db's db.json.  Unknown record fields are ignored.
func DecodeDataset(r io.Reader) (*Dataset, error) {
	it := jsoniter.Parse(jsoniter.ConfigCompatibleWithStandardLibrary, r, 4096)
	if next := it.WhatIsNext(); next != jsoniter.ObjectValue {
		if it.Error != nil && it.Error != io.EOF {
			return nil, fmt.Errorf("decode dataset: %w", it.Error)
		}
		return nil, fmt.Errorf("decode dataset: expected a JSON object")
	}

	ds := NewDataset()
	var recErr error
	ok := it.ReadObjectCB(func(it *jsoniter.Iterator, mime string) bool {
		var jr jsonRecord
		it.ReadVal(&jr)
		if it.Error != nil {
			return false
		}
		source, err := ParseSource(jr.Source)
		if err != nil {
			recErr = fmt.Errorf("decode dataset: record %q: %w", mime, err)
			return false
		}
		ds.Set(mime, Record{
			Compressible: jr.Compressible,
			Extensions:   jr.Extensions,
			Source:       source,
		})
		return true
	})
	if recErr != nil {
		return nil, recErr
	}
	if !ok || (it.Error != nil && it.Error != io.EOF) {
		switch it.Error {
		case nil:
			return nil, fmt.Errorf("decode dataset: malformed object")
		case io.EOF:
			return nil, fmt.Errorf("decode dataset: %w", io.ErrUnexpectedEOF)
		default:
			return nil, fmt.Errorf("decode dataset: %w", it.Error)
		}
	}

	return ds, nil
}

var gzipMagic = []byte{0x1F, 0x8B}

// LoadDataset decodes the dataset stored at path, which may be gzip
// compressed.
func LoadDataset(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("os.Open(%s): %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	ds, err := decodeMaybeGzip(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// decodeMaybeGzip decodes a dataset from r, decompressing it first if it
// starts with the gzip magic.
func decodeMaybeGzip(r io.Reader) (*Dataset, error) {
	br := bufio.NewReader(r)
	if magic, _ := br.Peek(len(gzipMagic)); !bytes.Equal(magic, gzipMagic) {
		return DecodeDataset(br)
	}
	zr, err := gzip.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("gzip.NewReader: %w", err)
	}
	defer func() {
		_ = zr.Close()
	}()
	return DecodeDataset(zr)
}
