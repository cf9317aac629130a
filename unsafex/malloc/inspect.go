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

package malloc

import (
	"encoding/binary"
	"fmt"

	"github.com/bytedance/gopkg/lang/mcache"
	"github.com/bytedance/gopkg/util/xxhash3"
)

// Block describes one block of the heap.
type Block struct {
	Offset int  // offset of the header from the start of the heap
	Size   int  // total size including the header
	Used   bool // allocated to a caller
}

// Stats is a snapshot of heap usage.
type Stats struct {
	HeapSize   int // bytes obtained from the Provider
	Blocks     int
	UsedBlocks int
	UsedBytes  int // total size of used blocks, headers included
	FreeBytes  int // total size of free blocks, headers included
	Grows      int // successful Provider extensions after init
}

// Start returns the offset of the first block. It is always 0.
func (h *Heap) Start() int { return 0 }

// End returns the offset one past the last block.
// It never decreases.
func (h *Heap) End() int { return h.end }

// Cursor returns the offset of the block where the next search starts.
func (h *Heap) Cursor() int { return h.cursor }

// Walk calls fn for each block in address order until fn returns false.
// fn must not modify the heap.
func (h *Heap) Walk(fn func(b Block) bool) {
	for off := 0; off < h.end; off = h.next(off) {
		if !fn(Block{Offset: off, Size: h.sizeOf(off), Used: h.hdr(off).used != 0}) {
			return
		}
	}
}

// Blocks returns all blocks in address order.
func (h *Heap) Blocks() []Block {
	var blocks []Block
	h.Walk(func(b Block) bool {
		blocks = append(blocks, b)
		return true
	})
	return blocks
}

// Stats returns current usage counters.
func (h *Heap) Stats() Stats {
	s := Stats{HeapSize: h.end, Grows: h.grows}
	h.Walk(func(b Block) bool {
		s.Blocks++
		if b.Used {
			s.UsedBlocks++
			s.UsedBytes += b.Size
		} else {
			s.FreeBytes += b.Size
		}
		return true
	})
	return s
}

// Check verifies the block structure: headers intact, sizes power of two
// and not below MinBlockSize, every block aligned to its size, blocks tiling
// [Start, End) exactly, and the cursor on a block boundary.
// It returns an error wrapping ErrCorrupted on the first violation.
func (h *Heap) Check() error {
	if h.end != len(h.mem) {
		return fmt.Errorf("%w: end %d, committed %d", ErrCorrupted, h.end, len(h.mem))
	}
	cursorOK := false
	off := 0
	for off < h.end {
		b := h.hdr(off)
		if b.magic != magic {
			return fmt.Errorf("%w: bad magic %#x at offset %d", ErrCorrupted, b.magic, off)
		}
		if b.order >= 63 {
			return fmt.Errorf("%w: order %d at offset %d", ErrCorrupted, b.order, off)
		}
		size := 1 << b.order
		if size < h.minBlockSize {
			return fmt.Errorf("%w: block of %d bytes at offset %d", ErrCorrupted, size, off)
		}
		if off&(size-1) != 0 {
			return fmt.Errorf("%w: block of %d bytes misaligned at offset %d", ErrCorrupted, size, off)
		}
		if off == h.cursor {
			cursorOK = true
		}
		off += size
	}
	if off != h.end {
		return fmt.Errorf("%w: blocks end at %d, heap ends at %d", ErrCorrupted, off, h.end)
	}
	if !cursorOK {
		return fmt.Errorf("%w: cursor %d not on a block boundary", ErrCorrupted, h.cursor)
	}
	return nil
}

// fingerprintEntry is offset, size and used flag of one block.
const fingerprintEntry = 8 + 8 + 1

// Fingerprint returns a hash of the block layout (offsets, sizes, used flags).
// Two heaps with the same fingerprint have the same blocks; the cursor and
// payload bytes are not included.
func (h *Heap) Fingerprint() uint64 {
	n := 0
	h.Walk(func(Block) bool {
		n++
		return true
	})
	buf := mcache.Malloc(n * fingerprintEntry)
	i := 0
	h.Walk(func(b Block) bool {
		binary.LittleEndian.PutUint64(buf[i:], uint64(b.Offset))
		binary.LittleEndian.PutUint64(buf[i+8:], uint64(b.Size))
		buf[i+16] = 0
		if b.Used {
			buf[i+16] = 1
		}
		i += fingerprintEntry
		return true
	})
	sum := xxhash3.Hash(buf)
	mcache.Free(buf)
	return sum
}
