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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/memkit/unsafex/sysmem"
)

func TestSyncHeap(t *testing.T) {
	p, err := sysmem.NewBuffer(64 << 20)
	require.NoError(t, err)
	h, err := NewSyncHeap(p, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(seed byte) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				n := 1 + (i*37)%2000
				p, err := h.Alloc(n)
				if !assert.NoError(t, err) {
					return
				}
				b := h.Bytes(p)
				for j := range b {
					b[j] = seed
				}
				p, err = h.Realloc(p, n*2)
				if !assert.NoError(t, err) {
					return
				}
				b = h.Bytes(p)
				for j := 0; j < n; j++ {
					if b[j] != seed {
						assert.Failf(t, "data race on payload", "goroutine %d byte %d", seed, j)
						return
					}
				}
				h.Free(p)
			}
		}(byte(g))
	}
	wg.Wait()

	require.NoError(t, h.Check())
	assert.Equal(t, 0, h.Stats().UsedBlocks)
	h.Do(func(h *Heap) {
		assert.Len(t, h.Blocks(), 1)
	})
}
