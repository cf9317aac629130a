/*
 * Copyright 2024 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package mempool

import (
	"errors"
	"fmt"
	"unsafe"
)

const (
	// minBlockSize is the room needed to keep the free-list link inside a free slot.
	minBlockSize = 8

	// breakIncrement is how much memory is requested from the Provider at a time,
	// unless a single block is larger.
	breakIncrement = 4096

	// noSlot terminates the free list.
	noSlot = -1
)

// ErrInvalidBlockSize is returned by New for block sizes that are not a power of two >= 8.
var ErrInvalidBlockSize = errors.New("mempool: block size must be a power of two >= 8")

// Provider supplies the memory a Pool carves into blocks.
// See malloc.Provider for the contract.
type Provider interface {
	Extend(n int) ([]byte, error)
}

// Pool hands out blocks of one fixed size.
// Free blocks form a list threaded through their first 8 bytes,
// so Alloc and Free are a pop and a push.
//
// A Pool is not safe for concurrent use.
type Pool struct {
	p Provider

	mem  []byte
	base unsafe.Pointer

	blockSize int
	increment int

	// front is the offset of the first block never handed out.
	front int
	// free is the offset of the first free block, or noSlot.
	free int

	inuse int
}

// New creates a pool of blockSize blocks over p.
// No memory is requested until the first Alloc.
// The Provider must not be shared with anything else.
func New(blockSize int, p Provider) (*Pool, error) {
	if blockSize < minBlockSize || blockSize&(blockSize-1) != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBlockSize, blockSize)
	}
	inc := breakIncrement
	if blockSize > inc {
		inc = blockSize
	}
	return &Pool{p: p, blockSize: blockSize, increment: inc, free: noSlot}, nil
}

// Alloc returns a block of BlockSize bytes, or nil if the Provider is exhausted.
// Tips for usage:
// * the block is not initialized with zeros.
// * call `Free` when the block is no longer used, DO NOT REUSE it after calling `Free`.
// * DO NOT reslice the block from the front before calling `Free`.
func (p *Pool) Alloc() []byte {
	if p.free != noSlot {
		off := p.free
		p.free = int(*(*int64)(unsafe.Add(p.base, off)))
		p.inuse++
		return p.block(off)
	}
	if p.front+p.blockSize > len(p.mem) && !p.more() {
		return nil
	}
	off := p.front
	p.front += p.blockSize
	p.inuse++
	return p.block(off)
}

// Free puts a block returned by Alloc back on the free list.
// Panics if the block doesn't belong to this pool.
func (p *Pool) Free(b []byte) {
	if cap(b) == 0 {
		return
	}
	// Use slice header directly to avoid panic on zero-length slices.
	dataPtr := *(*uintptr)(unsafe.Pointer(&b))
	if p.base == nil || dataPtr < uintptr(p.base) {
		panic("mempool: block not in pool")
	}
	off := int(dataPtr - uintptr(p.base))
	if off >= p.front {
		panic("mempool: block not in pool")
	}
	if off&(p.blockSize-1) != 0 {
		panic("mempool: misaligned block")
	}
	*(*int64)(unsafe.Add(p.base, off)) = int64(p.free)
	p.free = off
	p.inuse--
}

// BlockSize returns the size of every block.
func (p *Pool) BlockSize() int { return p.blockSize }

// Len returns the number of blocks handed out and not freed.
func (p *Pool) Len() int { return p.inuse }

// Cap returns the number of blocks the memory obtained so far can hold.
func (p *Pool) Cap() int { return len(p.mem) / p.blockSize }

func (p *Pool) block(off int) []byte {
	return p.mem[off : off+p.blockSize : off+p.blockSize]
}

func (p *Pool) more() bool {
	mem, err := p.p.Extend(p.increment)
	if err != nil {
		return false
	}
	if p.base == nil {
		p.base = unsafe.Pointer(&mem[0])
	} else if unsafe.Pointer(&mem[0]) != p.base {
		panic("mempool: provider moved the pool")
	}
	p.mem = mem
	return true
}
