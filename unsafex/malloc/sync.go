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

import "sync"

// SyncHeap is a Heap guarded by a single mutex.
type SyncHeap struct {
	mu sync.Mutex
	h  *Heap
}

// NewSyncHeap is like NewHeap but returns a heap safe for concurrent use.
func NewSyncHeap(p Provider, o *Option) (*SyncHeap, error) {
	h, err := NewHeap(p, o)
	if err != nil {
		return nil, err
	}
	return &SyncHeap{h: h}, nil
}

// Alloc ... see (*Heap).Alloc
func (s *SyncHeap) Alloc(size int) (Ptr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h.Alloc(size)
}

// Free ... see (*Heap).Free
func (s *SyncHeap) Free(p Ptr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.h.Free(p)
}

// Realloc ... see (*Heap).Realloc
func (s *SyncHeap) Realloc(p Ptr, size int) (Ptr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h.Realloc(p, size)
}

// Bytes ... see (*Heap).Bytes
func (s *SyncHeap) Bytes(p Ptr) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h.Bytes(p)
}

// PtrOf ... see (*Heap).PtrOf
func (s *SyncHeap) PtrOf(buf []byte) Ptr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h.PtrOf(buf)
}

// Stats ... see (*Heap).Stats
func (s *SyncHeap) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h.Stats()
}

// Check ... see (*Heap).Check
func (s *SyncHeap) Check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h.Check()
}

// Do calls fn with the underlying heap while holding the lock.
func (s *SyncHeap) Do(fn func(h *Heap)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.h)
}
