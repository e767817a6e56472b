// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package mimedb

import (
	"io"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/bpowers/mimedb/internal/fold"
)

// BuilderOption configures the Builder.
type BuilderOption func(*builderOptions)

type builderOptions struct {
	logger *slog.Logger
}

// WithBuilderLogger sets an optional logger for the builder to use for progress updates.
// If not provided, no logging output will be produced.
func WithBuilderLogger(logger *slog.Logger) BuilderOption {
	return func(opts *builderOptions) {
		opts.logger = logger
	}
}

// Builder merges datasets and constructs an immutable DB from them.
type Builder struct {
	keys     []string
	records  []Record
	pos      map[string]int
	datasets int
	logger   *slog.Logger
}

// NewBuilder creates a Builder.  Building should happen once, ahead of
// serving lookups, and the resulting DB shared.
func NewBuilder(opts ...BuilderOption) *Builder {
	var options builderOptions
	// silent unless WithBuilderLogger is given
	options.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, opt := range opts {
		opt(&options)
	}
	return &Builder{
		pos:    make(map[string]int),
		logger: options.logger,
	}
}

// Add applies ds on top of everything added so far.  MIME types are
// lower-cased first, so a type present in ds replaces any earlier record
// spelled with different case.  Replacement is whole; fields are not merged,
// and the replacement keeps the position of the first record.
func (b *Builder) Add(ds *Dataset) {
	replaced := 0
	for mime, rec := range ds.All() {
		if mime == "" {
			b.logger.Warn("skipping record with empty MIME type")
			continue
		}
		lower := strings.ToLower(mime)
		k := fold.Key(lower)
		if i, ok := b.pos[k]; ok {
			if b.keys[i] != lower {
				b.logger.Debug("MIME type collides after lower-casing",
					"mime", mime,
					"previous", b.keys[i])
			}
			b.keys[i] = lower
			b.records[i] = rec
			replaced++
			continue
		}
		b.pos[k] = len(b.keys)
		b.keys = append(b.keys, lower)
		b.records = append(b.records, rec)
	}
	b.datasets++
	b.logger.Debug("added dataset",
		"dataset", b.datasets,
		"records", ds.Len(),
		"replaced", replaced)
}

type extClaim struct {
	mime   string
	source Source
}

// Finalize builds the MIME and extension tables from the merged datasets.
func (b *Builder) Finalize() (*DB, error) {
	// the DB must not see later Adds
	mimeKeys, records := slices.Clone(b.keys), b.records

	mimeValues := make([]MimeEntry, len(records))
	var (
		extKeys []string
		claims  = make(map[string][]extClaim)
		claimed = make(map[string]stringSet)
	)
	for i, rec := range records {
		mime := mimeKeys[i]
		exts := make([]string, 0, len(rec.Extensions))
		for _, ext := range rec.Extensions {
			if ext == "" {
				b.logger.Warn("skipping empty extension", "mime", mime)
				continue
			}
			exts = append(exts, ext)
		}
		mimeValues[i] = MimeEntry{
			Compressible: rec.Compressible,
			Extensions:   exts,
		}
		for _, ext := range exts {
			k := fold.Key(ext)
			if _, ok := claims[k]; !ok {
				extKeys = append(extKeys, ext)
				claimed[k] = make(stringSet)
			}
			if claimed[k].Contains(mime) {
				continue
			}
			claimed[k].Add(mime)
			claims[k] = append(claims[k], extClaim{mime: mime, source: rec.Source})
		}
	}

	extValues := make([]ExtEntry, len(extKeys))
	for i, ext := range extKeys {
		c := claims[fold.Key(ext)]
		// stable: equally ranked types keep their table order
		sort.SliceStable(c, func(i, j int) bool {
			return c[i].source < c[j].source
		})
		types := make([]string, len(c))
		for j := range c {
			types[j] = c[j].mime
		}
		extValues[i] = ExtEntry{Types: types}
	}

	db, err := newDB(mimeKeys, mimeValues, extKeys, extValues)
	if err != nil {
		return nil, err
	}

	b.logger.Info("built mime database",
		"datasets", b.datasets,
		"mimes", db.MimeCount(),
		"extensions", db.ExtCount(),
		"fingerprint", db.Fingerprint())

	return db, nil
}
