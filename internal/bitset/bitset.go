// Copyright 2021 The bit Authors and Caleb Spare. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package bitset tracks which slots of the perfect hash's second level
// are already claimed while seeds are being searched for.
package bitset

// Bitset is conceptually a []bool, packed 64 slots to a word.
type Bitset struct {
	words []uint64
	n     uint32
}

// New returns a bitset with n slots, all clear.
func New(n uint32) *Bitset {
	return &Bitset{
		words: make([]uint64, (uint64(n)+63)/64),
		n:     n,
	}
}

// Set marks slot i. Out of range slots are ignored.
func (b *Bitset) Set(i uint32) {
	if i >= b.n {
		return
	}
	b.words[i/64] |= 1 << (i % 64)
}

// Clear unmarks slot i. Out of range slots are ignored.
func (b *Bitset) Clear(i uint32) {
	if i >= b.n {
		return
	}
	b.words[i/64] &^= 1 << (i % 64)
}

// IsSet reports whether slot i is marked.
func (b *Bitset) IsSet(i uint32) bool {
	if i >= b.n {
		return false
	}
	return b.words[i/64]&(1<<(i%64)) != 0
}
