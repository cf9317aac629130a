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
	"math/bits"
	"unsafe"
)

// header is stored in-band at the start of every block.
// Its size is also the payload alignment, so it must stay 16 bytes.
type header struct {
	// length is the size requested by the caller, returned as len() by Bytes.
	length uint64
	// magic is checked on Free/Realloc to detect foreign pointers.
	magic uint32
	// order is log2 of the block size including the header.
	order uint8
	used  uint8
	_     [2]byte
}

const (
	// headerSize is the size of the header at the start of each block.
	headerSize = int(unsafe.Sizeof(header{}))

	// magic marks a header written by this package.
	magic uint32 = 0xB0DD1E5

	// DefaultInitSize is the size of the heap right after NewHeap.
	DefaultInitSize = 4096

	// DefaultMinBlockSize is the smallest block the heap splits down to.
	DefaultMinBlockSize = 16

	// maxAllocSize keeps size+headerSize and the doubling loops far from overflow.
	maxAllocSize = 1 << 48
)

// Ptr is the payload offset of an allocation from the start of its heap.
// Offset 0 always holds a header, so the zero value never names a payload.
type Ptr uint64

// Null is returned by failed allocations and by Realloc(p, 0).
const Null Ptr = 0

func (h *Heap) hdr(off int) *header {
	return (*header)(unsafe.Add(h.base, off))
}

func (h *Heap) sizeOf(off int) int {
	return 1 << h.hdr(off).order
}

// next returns the offset of the block following the one at off.
func (h *Heap) next(off int) int {
	return off + h.sizeOf(off)
}

// setBlock writes a complete header, clearing the caller length.
func (h *Heap) setBlock(off, size int, used bool) {
	b := h.hdr(off)
	b.length = 0
	b.magic = magic
	b.order = uint8(bits.TrailingZeros(uint(size)))
	b.used = 0
	if used {
		b.used = 1
	}
}

func (h *Heap) setSize(off, size int) {
	h.hdr(off).order = uint8(bits.TrailingZeros(uint(size)))
}

func capacity(size int) int {
	return size - headerSize
}

// blockSize returns the block size that holds memsize bytes of payload.
func blockSize(memsize int) int {
	return memsize + headerSize
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
