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

//go:build linux || darwin || freebsd || netbsd || openbsd

package sysmem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Mmap is a range of anonymous memory. The whole reservation is mapped
// PROT_NONE by NewMmap and made readable and writable by Extend, so the base
// address stays put while the committed part grows.
type Mmap struct {
	// mem is the whole reservation.
	mem []byte

	// committed is the size handed out by Extend.
	committed int
	// protected is committed rounded up to the page size.
	protected int

	pageSize int
}

// NewMmap reserves reserve bytes of address space, rounded up to the page size.
func NewMmap(reserve int) (*Mmap, error) {
	if reserve <= 0 {
		return nil, fmt.Errorf("%w: reserve %d", ErrInvalidSize, reserve)
	}
	ps := unix.Getpagesize()
	reserve = roundUp(reserve, ps)
	mem, err := unix.Mmap(-1, 0, reserve, unix.PROT_NONE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("sysmem: reserve %d bytes: %w", reserve, err)
	}
	return &Mmap{mem: mem, pageSize: ps}, nil
}

// Extend commits n more bytes and returns the whole committed range.
func (m *Mmap) Extend(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: extend %d", ErrInvalidSize, n)
	}
	if left := len(m.mem) - m.committed; n > left {
		return nil, fmt.Errorf("%w: %d bytes requested, %d left", ErrOutOfMemory, n, left)
	}
	want := m.committed + n
	if want > m.protected {
		next := roundUp(want, m.pageSize)
		err := unix.Mprotect(m.mem[m.protected:next], unix.PROT_READ|unix.PROT_WRITE)
		if err != nil {
			return nil, fmt.Errorf("%w: commit %d bytes: %w", ErrOutOfMemory, next-m.protected, err)
		}
		m.protected = next
	}
	m.committed = want
	return m.mem[:want:want], nil
}

// Len returns the committed size.
func (m *Mmap) Len() int { return m.committed }

// Cap returns the reserved size.
func (m *Mmap) Cap() int { return len(m.mem) }

// Close unmaps the whole reservation. It is idempotent.
// Ranges returned by Extend must not be used afterwards.
func (m *Mmap) Close() error {
	if m.mem == nil {
		return nil
	}
	mem := m.mem
	m.mem, m.committed, m.protected = nil, 0, 0
	return unix.Munmap(mem)
}
