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

package sysmem

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type provider interface {
	Extend(n int) ([]byte, error)
	Len() int
	Cap() int
	Close() error
}

func TestProviders(t *testing.T) {
	tests := []struct {
		name string
		new  func(limit int) (provider, error)
	}{
		{"buffer", func(limit int) (provider, error) { return NewBuffer(limit) }},
		{"mmap", func(limit int) (provider, error) { return NewMmap(limit) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.new(64 << 10)
			require.NoError(t, err)
			defer p.Close()
			assert.GreaterOrEqual(t, p.Cap(), 64<<10)
			assert.Equal(t, 0, p.Len())

			mem, err := p.Extend(4096)
			require.NoError(t, err)
			require.Len(t, mem, 4096)
			base := unsafe.Pointer(&mem[0])
			for i := range mem {
				mem[i] = byte(i)
			}

			// odd sizes are fine, the base never moves and old bytes survive
			mem, err = p.Extend(100)
			require.NoError(t, err)
			require.Len(t, mem, 4196)
			assert.Equal(t, base, unsafe.Pointer(&mem[0]))
			mem[4195] = 1
			for i := 0; i < 4096; i++ {
				require.Equal(t, byte(i), mem[i])
			}

			mem, err = p.Extend(0)
			require.NoError(t, err)
			assert.Len(t, mem, 4196)

			_, err = p.Extend(p.Cap())
			assert.ErrorIs(t, err, ErrOutOfMemory)
			assert.Equal(t, 4196, p.Len())

			_, err = p.Extend(-1)
			assert.ErrorIs(t, err, ErrInvalidSize)

			mem, err = p.Extend(p.Cap() - p.Len())
			require.NoError(t, err)
			assert.Len(t, mem, p.Cap())
			mem[len(mem)-1] = 1
		})
	}
}

func TestInvalidSize(t *testing.T) {
	_, err := NewBuffer(0)
	assert.ErrorIs(t, err, ErrInvalidSize)
	_, err = NewMmap(-1)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestMmapClose(t *testing.T) {
	m, err := NewMmap(1 << 20)
	require.NoError(t, err)
	_, err = m.Extend(8192)
	require.NoError(t, err)
	assert.NoError(t, m.Close())
	assert.NoError(t, m.Close())
	_, err = m.Extend(1)
	assert.ErrorIs(t, err, ErrOutOfMemory)
}

func TestDefault(t *testing.T) {
	m, err := Default()
	require.NoError(t, err)
	defer m.Close()
	assert.GreaterOrEqual(t, m.Cap(), DefaultReserve())
	mem, err := m.Extend(1 << 20)
	require.NoError(t, err)
	mem[0], mem[len(mem)-1] = 1, 2
}
