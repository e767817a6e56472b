// Copyright 2021 The bit Authors and Caleb Spare. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package index implements an immutable minimal perfect hash from string
// keys to their position in a caller-owned slice.
package index

import (
	"errors"
	"fmt"
	"math/bits"
	"sort"

	"github.com/dgryski/go-farm"

	"github.com/bpowers/mimedb/internal/bitset"
	"github.com/bpowers/mimedb/internal/unsafestring"
)

const (
	maxIndexEntries = (1 << 31) - 1
	maxUint32       = ^uint32(0)
)

var ErrDuplicateKey = errors.New("duplicate key")

// Table is an immutable hash table that provides constant-time lookups of key
// indices using a minimal perfect hash.  It doesn't store keys: a lookup of a
// key that wasn't part of the build returns an arbitrary index, so callers
// must compare the key stored at that index.
type Table struct {
	seeds     []uint32 // power of 2 size
	seedsMask uint64   // len(seeds) - 1
	slots     []uint32 // power of 2 size > len(keys); index+1, 0 is empty
	slotsMask uint64   // len(slots) - 1
	n         int
}

type bucket struct {
	n    uint64
	vals []uint32
}

// bySize is used to sort our buckets from most full to least full
type bySize []bucket

func (s bySize) Len() int           { return len(s) }
func (s bySize) Less(i, j int) bool { return len(s[i].vals) > len(s[j].vals) }
func (s bySize) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// nextPow2 returns the next highest power of two above a given number.
func nextPow2(n int64) int64 {
	return 1 << (64 - bits.LeadingZeros64(uint64(n)))
}

// Build builds a Table from keys using the "Hash, displace, and compress"
// algorithm described in http://cmph.sourceforge.net/papers/esa09.pdf.
// The index returned for keys[i] is i.
func Build(keys []string) (*Table, error) {
	if len(keys) > maxIndexEntries {
		return nil, fmt.Errorf("too many elements -- we only support %d items in an index (%d asked for)", maxIndexEntries, len(keys))
	}

	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, k)
		}
		seen[k] = struct{}{}
	}

	var (
		seedsLen = nextPow2(int64(len(keys)) / 4)
		slotsLen = nextPow2(int64(len(keys)))
	)
	if slotsLen >= int64(maxUint32) {
		return nil, fmt.Errorf("slotsLen too big %d (too many entries)", slotsLen)
	}

	var (
		seedsMask     = uint64(seedsLen - 1)
		slotsMask     = uint64(slotsLen - 1)
		seeds         = make([]uint32, seedsLen)
		slots         = make([]uint32, slotsLen)
		sparseBuckets = make([][]uint32, seedsLen)
	)

	for i, k := range keys {
		n := farm.Hash64WithSeed(unsafestring.ToBytes(k), 0) & seedsMask
		sparseBuckets[n] = append(sparseBuckets[n], uint32(i))
	}

	var buckets []bucket
	for n, vals := range sparseBuckets {
		if len(vals) > 0 {
			buckets = append(buckets, bucket{n: uint64(n), vals: vals})
		}
	}
	// stable so that identical key lists always pick identical seeds
	sort.Stable(bySize(buckets))

	occ := bitset.New(uint32(slotsLen))
	var tmpOcc []uint32
	for _, b := range buckets {
		seed := uint64(1)
	trySeed:
		if seed >= uint64(maxUint32) {
			return nil, errors.New("couldn't find 32-bit seed")
		}
		tmpOcc = tmpOcc[:0]
		for _, i := range b.vals {
			n := uint32(farm.Hash64WithSeed(unsafestring.ToBytes(keys[i]), seed) & slotsMask)
			if occ.IsSet(n) {
				for _, n := range tmpOcc {
					occ.Clear(n)
					slots[n] = 0
				}
				seed++
				goto trySeed
			}
			tmpOcc = append(tmpOcc, n)
			occ.Set(n)
			slots[n] = i + 1
		}
		seeds[b.n] = uint32(seed)
	}

	return &Table{
		seeds:     seeds,
		seedsMask: seedsMask,
		slots:     slots,
		slotsMask: slotsMask,
		n:         len(keys),
	}, nil
}

// Len returns the number of keys the table was built from.
func (t *Table) Len() int {
	return t.n
}

// MaybeLookup searches for key in t and returns its potential index.  ok is
// false when key certainly wasn't part of the build.
func (t *Table) MaybeLookup(key string) (i int, ok bool) {
	b := unsafestring.ToBytes(key)
	// first we hash the key with a fixed seed, giving us the offset
	// of a seed that perfectly hashes into our second-level table
	seed := uint64(t.seeds[farm.Hash64WithSeed(b, 0)&t.seedsMask])
	if seed == 0 {
		return 0, false
	}
	// next, we use that more-specific seed to re-hash the key, giving
	// us the slot holding the key's index
	n := t.slots[farm.Hash64WithSeed(b, seed)&t.slotsMask]
	if n == 0 {
		return 0, false
	}
	return int(n - 1), true
}
