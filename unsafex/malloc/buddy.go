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
	"fmt"
	"log/slog"
	"unsafe"
)

// Heap is a buddy allocator over one growable range obtained from a Provider.
//
// The range is tiled by power-of-two blocks, each starting with a 16-byte header.
// Blocks are split to get the best fit, joined with their buddy when freed,
// and the range is grown through the Provider when nothing fits.
//
// A Heap is not safe for concurrent use. See SyncHeap.
type Heap struct {
	p Provider

	// mem is the committed range. Its base address never changes.
	mem []byte
	// base is a cached pointer to mem[0], used for header access.
	base unsafe.Pointer
	// end is len(mem), one past the last block.
	end int

	// cursor is the offset of the block where the next search starts.
	cursor int

	minBlockSize int
	grows        int

	logger *slog.Logger
}

// NewHeap requests the initial range from p and returns a heap made of one free block.
// The Provider must not be shared with anything else.
func NewHeap(p Provider, o *Option) (*Heap, error) {
	if o == nil {
		o = DefaultOption()
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	mem, err := p.Extend(o.InitSize)
	if err != nil {
		return nil, fmt.Errorf("%w: init %d bytes: %w", ErrOutOfMemory, o.InitSize, err)
	}
	if len(mem) != o.InitSize {
		return nil, fmt.Errorf("malloc: provider returned %d bytes for a fresh heap of %d", len(mem), o.InitSize)
	}
	h := &Heap{
		p:            p,
		mem:          mem,
		base:         unsafe.Pointer(&mem[0]),
		end:          len(mem),
		minBlockSize: o.MinBlockSize,
		logger:       o.Logger,
	}
	h.setBlock(0, h.end, false)
	if h.logger != nil {
		h.logger.Debug("heap initialized", "size", h.end, "min_block_size", h.minBlockSize)
	}
	return h, nil
}

// Alloc returns a Ptr to at least size bytes of payload.
// Requests smaller than MinBlockSize still reserve MinBlockSize bytes.
// It returns Null and an error wrapping ErrOutOfMemory if the heap can not grow.
func (h *Heap) Alloc(size int) (Ptr, error) {
	if size < 0 {
		return Null, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if size > maxAllocSize {
		return Null, fmt.Errorf("%w: %d bytes requested", ErrOutOfMemory, size)
	}
	need := size
	if need < h.minBlockSize {
		need = h.minBlockSize
	}

	off := h.cursor
	for h.hdr(off).used != 0 || capacity(h.sizeOf(off)) < need {
		off = h.wrap(h.next(off))
		if off == h.cursor {
			// went through every block
			var err error
			if off, err = h.grow(need); err != nil {
				return Null, err
			}
			break
		}
	}

	h.splitFit(off, need)
	b := h.hdr(off)
	b.used = 1
	b.length = uint64(size)
	h.cursor = h.wrap(h.next(off))
	return Ptr(off + headerSize), nil
}

// Free returns the allocation at p to the heap and joins it with free buddies.
// Free(Null) does nothing.
// It panics if p was not returned by this heap or was already freed.
func (h *Heap) Free(p Ptr) {
	if p == Null {
		return
	}
	h.release(h.blockOf(p))
}

// Realloc resizes the allocation at p to size bytes.
//
// Shrinking and growing into free right-hand buddies keep the address and move no data.
// Otherwise the block is freed and a new one allocated, and min(old capacity, size)
// bytes are copied over. If that allocation fails the original block is left exactly
// as it was and the error is returned.
//
// Realloc(p, 0) frees p and returns Null. Realloc(Null, size) is Alloc(size).
func (h *Heap) Realloc(p Ptr, size int) (Ptr, error) {
	if p == Null {
		return h.Alloc(size)
	}
	if size < 0 {
		return Null, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	off := h.blockOf(p)
	if size == 0 {
		h.release(off)
		return Null, nil
	}
	if size > maxAllocSize {
		return Null, fmt.Errorf("%w: %d bytes requested", ErrOutOfMemory, size)
	}
	need := size
	if need < h.minBlockSize {
		need = h.minBlockSize
	}

	if capacity(h.sizeOf(off)) >= need {
		h.splitFit(off, need)
		h.commit(off, size)
		return p, nil
	}
	if sz := h.growInPlace(off, need); sz != 0 {
		h.setSize(off, sz)
		h.commit(off, size)
		return p, nil
	}
	return h.relocate(off, size)
}

// Bytes returns the payload of p with len set to the requested size
// and cap set to the block capacity.
// The slice is valid until p is freed or moved by Realloc.
func (h *Heap) Bytes(p Ptr) []byte {
	off := h.blockOf(p)
	start := int(p)
	return h.mem[start : start+int(h.hdr(off).length) : off+h.sizeOf(off)]
}

// PtrOf returns the Ptr of a slice returned by Bytes.
// The slice must not be resliced from the front.
// It returns Null for slices with zero capacity.
func (h *Heap) PtrOf(buf []byte) Ptr {
	if cap(buf) == 0 {
		return Null
	}
	// Use slice header directly to avoid panic on zero-length slices.
	dataPtr := *(*uintptr)(unsafe.Pointer(&buf))
	if dataPtr < uintptr(h.base) || dataPtr >= uintptr(h.base)+uintptr(h.end) {
		panic("malloc: block not in heap")
	}
	return Ptr(dataPtr - uintptr(h.base))
}

func (h *Heap) commit(off, length int) {
	h.hdr(off).length = uint64(length)
	h.cursor = h.wrap(h.next(off))
}

func (h *Heap) wrap(off int) int {
	if off == h.end {
		return 0
	}
	return off
}

// blockOf validates p and returns the offset of its block.
func (h *Heap) blockOf(p Ptr) int {
	if p < Ptr(headerSize) || p >= Ptr(h.end) {
		panic("malloc: pointer not in heap")
	}
	off := int(p) - headerSize
	if off&(h.minBlockSize-1) != 0 {
		panic("malloc: misaligned pointer")
	}
	b := h.hdr(off)
	if b.magic != magic || b.used == 0 {
		panic("malloc: double free or invalid block")
	}
	if off&(h.sizeOf(off)-1) != 0 {
		panic("malloc: misaligned block")
	}
	return off
}

// splitFit halves the block at off while the lower half still holds need bytes.
func (h *Heap) splitFit(off, need int) {
	for size := h.sizeOf(off); capacity(size/2) >= need && size > h.minBlockSize; size /= 2 {
		h.split(off, size)
	}
}

func (h *Heap) split(off, size int) {
	half := size / 2
	h.setSize(off, half)
	h.setBlock(off+half, half, false)
}

// release marks the block at off free, joins it with its buddies
// and returns the offset of the resulting block.
func (h *Heap) release(off int) int {
	h.hdr(off).used = 0
	for {
		merged, ok := h.join(off)
		if !ok {
			break
		}
		off = merged
	}
	h.cursor = off
	return off
}

// join merges the free block at off with its buddy.
// It returns the merged block, or false if the buddy is missing, split or in use.
func (h *Heap) join(off int) (int, bool) {
	size := h.sizeOf(off)
	buddy, lower := off+size, off
	if off%(size*2) != 0 {
		buddy = off - size
		lower = buddy
	}
	if buddy >= h.end || h.sizeOf(buddy) != size || h.hdr(buddy).used != 0 {
		return 0, false
	}
	h.setSize(lower, size*2)
	h.hdr(lower).used = 0
	return lower, true
}

// growInPlace returns the size the block at off reaches by absorbing the free
// buddies on its right until it holds need bytes, or 0 if it can not get there.
// Headers are not touched.
func (h *Heap) growInPlace(off, need int) int {
	size := h.sizeOf(off)
	for capacity(size) < need {
		buddy := off + size
		if off%(size*2) != 0 || buddy >= h.end || h.sizeOf(buddy) != size || h.hdr(buddy).used != 0 {
			return 0
		}
		size *= 2
	}
	return size
}

func (h *Heap) relocate(off, length int) (Ptr, error) {
	old := *h.hdr(off)
	size := 1 << old.order

	merged := h.release(off)
	p, err := h.Alloc(length)
	if err != nil {
		h.unjoin(merged, off, size)
		*h.hdr(off) = old
		h.cursor = h.wrap(h.next(off))
		return Null, err
	}
	n := capacity(size)
	if length < n {
		n = length
	}
	move(h.mem, int(p), off+headerSize, n)
	return p, nil
}

// unjoin splits the free block at merged back into buddies until the block
// at off has its original size again. It undoes release after a failed
// relocation; merged may have grown in the meantime.
func (h *Heap) unjoin(merged, off, size int) {
	cur := merged
	for s := h.sizeOf(merged); s > size; s /= 2 {
		half := s / 2
		if off < cur+half {
			h.setBlock(cur+half, half, false)
		} else {
			h.setBlock(cur, half, false)
			cur += half
		}
	}
}

// grow extends the heap until a free block can hold need bytes and returns it.
// Growth that already happened is kept when the Provider fails.
func (h *Heap) grow(need int) (int, error) {
	want := blockSize(need)

	if h.sizeOf(0) == h.end && h.hdr(0).used == 0 {
		// the heap is one free block: extend it in place
		for h.end < want {
			from := h.end
			if err := h.extend(from); err != nil {
				return 0, err
			}
			h.setSize(0, h.end)
			h.logGrow("extend", from)
		}
		return 0, nil
	}

	for {
		from := h.end
		if err := h.extend(from); err != nil {
			return 0, err
		}
		h.setBlock(from, from, false)
		h.logGrow("double", from)
		if from >= want {
			return from, nil
		}
	}
}

func (h *Heap) extend(n int) error {
	mem, err := h.p.Extend(n)
	if err != nil {
		return fmt.Errorf("%w: extend %d bytes: %w", ErrOutOfMemory, n, err)
	}
	if len(mem) != h.end+n || unsafe.Pointer(&mem[0]) != h.base {
		panic("malloc: provider moved or resized the heap")
	}
	h.mem = mem
	h.end = len(mem)
	h.grows++
	return nil
}

func (h *Heap) logGrow(strategy string, from int) {
	if h.logger != nil {
		h.logger.Debug("heap grown", "strategy", strategy, "from", from, "to", h.end)
	}
}
