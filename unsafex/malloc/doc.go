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

// Package malloc implements a buddy allocator over memory obtained directly
// from the operating system.
//
// # Layout
//
// A Heap manages one contiguous range [Start, End) that only grows. The range
// is tiled by blocks whose sizes are powers of two, each starting with a
// 16-byte header followed by the payload:
//
//	+--------+---------------------------+
//	| header | payload (size - 16 bytes) |
//	+--------+---------------------------+
//
// A block of size S always starts at an offset that is a multiple of S, so the
// buddy of a block is found from its offset alone and is never stored.
//
// # Allocation
//
// Alloc scans blocks from a cursor in address order, takes the first free block
// large enough, and halves it while the lower half still fits. When no block
// fits, the heap is grown through its Provider: a heap made of a single free
// block is extended in place, otherwise the heap is doubled so the new tail
// block is large enough.
//
// Free joins a block with its buddy as long as the buddy is free and of equal
// size. Realloc shrinks in place, grows in place by absorbing free buddies on
// the right, and relocates otherwise, restoring the original block if the new
// allocation fails.
//
// # Pointers
//
// Allocations are identified by a Ptr, the payload offset inside the heap.
// Bytes turns a Ptr into a []byte view. Free and Realloc check the header
// once and panic on pointers that were never allocated or are already freed.
//
// Heap is not safe for concurrent use; SyncHeap wraps it with a mutex, and the
// package-level Malloc, Free, Realloc and Append use a process-wide SyncHeap.
package malloc
