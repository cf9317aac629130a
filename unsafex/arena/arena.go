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

// Package arena provides a bump allocator over a fixed buffer.
//
// Allocations are carved from the front of the buffer and never freed one by
// one: Clear drops all of them at once and keeps the buffer for reuse.
package arena

import (
	"errors"
	"fmt"

	"github.com/bytedance/gopkg/lang/mcache"
)

// ErrInvalidSize is returned by New for negative sizes.
var ErrInvalidSize = errors.New("arena: invalid size")

// Arena is a bump allocator. It is not safe for concurrent use.
type Arena struct {
	// mem is the buffer as obtained, kept whole so it can be returned to mcache.
	mem   []byte
	size  int
	front int
	owned bool
}

// New creates an arena of size bytes. The buffer comes from mcache
// and is returned to it by Free.
func New(size int) (*Arena, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	return &Arena{mem: mcache.Malloc(size), size: size, owned: true}, nil
}

// NewFromBuffer creates an arena over buf. Free does not release buf.
func NewFromBuffer(buf []byte) *Arena {
	return &Arena{mem: buf, size: len(buf)}
}

// Alloc returns the next n bytes of the arena, or nil if fewer than n are left.
// The bytes are not cleared; memory handed out before Clear is reused as is.
func (a *Arena) Alloc(n int) []byte {
	if n < 0 || n > a.size-a.front {
		return nil
	}
	b := a.mem[a.front : a.front+n : a.front+n]
	a.front += n
	return b
}

// Clear drops all allocations and keeps the buffer.
func (a *Arena) Clear() {
	a.front = 0
}

// Free drops all allocations and the buffer.
// The arena is empty afterwards and every Alloc with n > 0 returns nil.
func (a *Arena) Free() {
	if a.owned && a.mem != nil {
		mcache.Free(a.mem)
	}
	a.mem = nil
	a.size = 0
	a.front = 0
	a.owned = false
}

// Len returns the number of bytes handed out since the last Clear.
func (a *Arena) Len() int { return a.front }

// Cap returns the size of the arena.
func (a *Arena) Cap() int { return a.size }

// Available returns the number of bytes Alloc can still hand out.
func (a *Arena) Available() int { return a.size - a.front }
