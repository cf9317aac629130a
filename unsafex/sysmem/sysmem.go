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

// Package sysmem provides growable memory ranges with a fixed base address,
// the building block for allocators that manage raw memory themselves.
//
// Mmap reserves address space up front and commits it page by page, like
// sbrk(2) extending a data segment. Buffer does the same inside one Go
// allocation and is available on every platform.
//
// Memory returned by both is not scanned by the garbage collector: do not
// store Go pointers in it.
package sysmem

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/bytedance/gopkg/lang/dirtmake"
)

var (
	// ErrOutOfMemory is returned when a range can not be extended any more.
	ErrOutOfMemory = errors.New("sysmem: out of memory")

	// ErrInvalidSize is returned for negative or zero sizes.
	ErrInvalidSize = errors.New("sysmem: invalid size")
)

// DefaultReserve returns the address space reserved by Default:
// 1GB on 64-bit platforms and 256MB on 32-bit ones.
func DefaultReserve() int {
	if bits.UintSize == 32 {
		return 256 << 20
	}
	return 1 << 30
}

// Default returns an Mmap reserving DefaultReserve bytes.
func Default() (*Mmap, error) {
	return NewMmap(DefaultReserve())
}

// Buffer is a growable range inside a single Go allocation of fixed capacity.
type Buffer struct {
	mem []byte
}

// NewBuffer allocates limit bytes of capacity without zeroing them.
// Nothing is committed until Extend is called.
func NewBuffer(limit int) (*Buffer, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit %d", ErrInvalidSize, limit)
	}
	return &Buffer{mem: dirtmake.Bytes(0, limit)}, nil
}

// Extend commits n more bytes and returns the whole committed range.
func (b *Buffer) Extend(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: extend %d", ErrInvalidSize, n)
	}
	if left := cap(b.mem) - len(b.mem); n > left {
		return nil, fmt.Errorf("%w: %d bytes requested, %d left", ErrOutOfMemory, n, left)
	}
	b.mem = b.mem[:len(b.mem)+n]
	return b.mem, nil
}

// Len returns the committed size.
func (b *Buffer) Len() int { return len(b.mem) }

// Cap returns the limit given to NewBuffer.
func (b *Buffer) Cap() int { return cap(b.mem) }

// Close drops the buffer. Ranges returned by Extend must not be used afterwards.
func (b *Buffer) Close() error {
	b.mem = b.mem[:0:0]
	return nil
}

func roundUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
