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
	"sync"

	"github.com/cloudwego/memkit/unsafex/sysmem"
)

var (
	defaultOnce sync.Once
	defaultHeap *SyncHeap
)

// Default returns the process-wide heap used by Malloc, Free, Realloc and Append.
// It is created on first use over sysmem.Default and panics if that fails,
// since nothing in this package can work without it.
func Default() *SyncHeap {
	defaultOnce.Do(func() {
		p, err := sysmem.Default()
		if err != nil {
			panic(fmt.Sprintf("malloc: init default heap: %v", err))
		}
		h, err := NewSyncHeap(p, nil)
		if err != nil {
			panic(fmt.Sprintf("malloc: init default heap: %v", err))
		}
		defaultHeap = h
	})
	return defaultHeap
}

// Malloc returns a buf of len size from the default heap, or nil if the heap can not grow.
// Tips for usage:
// * buf returned by Malloc is not initialized with zeros.
// * call `Free` when buf is no longer used, DO NOT REUSE buf after calling `Free`.
// * buf can be resliced up to cap(buf) freely, but never from the front: `Free` finds the block from &buf[0].
// * DO NOT store Go pointers in buf, the garbage collector does not scan it.
func Malloc(size int) []byte {
	h := Default()
	p, err := h.Alloc(size)
	if err != nil {
		return nil
	}
	return h.Bytes(p)
}

// Free returns a buf created by Malloc, Realloc or Append to the default heap.
// Empty bufs with zero cap are ignored.
func Free(buf []byte) {
	h := Default()
	h.Free(h.PtrOf(buf))
}

// Realloc resizes buf, keeping min(cap(buf), size) leading bytes.
// It returns nil if size is 0 (buf is freed) or if the heap can not grow (buf is still valid).
func Realloc(buf []byte, size int) []byte {
	if size == 0 {
		Free(buf)
		return nil
	}
	h := Default()
	p, err := h.Realloc(h.PtrOf(buf), size)
	if err != nil {
		return nil
	}
	return h.Bytes(p)
}

// Cap returns the number of bytes buf can hold without moving.
func Cap(buf []byte) int {
	return cap(Default().Bytes(Default().PtrOf(buf)))
}

// Append appends bytes to the given `[]byte`.
// It grows `a` in place when its buddy is free, and moves it otherwise.
// Please make sure you're calling the func like `b = malloc.Append(b, data...)`
func Append(a []byte, b ...byte) []byte {
	if cap(a)-len(a) >= len(b) {
		return append(a, b...)
	}
	return appendSlow(a, b)
}

func appendSlow(a, b []byte) []byte {
	n := len(a)
	ret := Realloc(a, n+len(b))
	if ret == nil {
		panic(ErrOutOfMemory)
	}
	copy(ret[n:], b)
	return ret
}

// AppendStr ... same as Append for string.
// See comment of `Append` for details.
func AppendStr(a []byte, b string) []byte {
	if cap(a)-len(a) >= len(b) {
		return append(a, b...)
	}
	return appendStrSlow(a, b)
}

func appendStrSlow(a []byte, b string) []byte {
	n := len(a)
	ret := Realloc(a, n+len(b))
	if ret == nil {
		panic(ErrOutOfMemory)
	}
	copy(ret[n:], b)
	return ret
}
