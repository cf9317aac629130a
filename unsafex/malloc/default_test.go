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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMallocFree(t *testing.T) {
	for i := 0; i < 1<<20; i += 1000 { // it tests malloc 0B - 1MB, with step 1000
		b := Malloc(i)
		require.Equal(t, i, len(b))
		require.GreaterOrEqual(t, cap(b), i)
		Free(b)
	}
	assert.NotPanics(t, func() { Free(nil) })
	assert.NoError(t, Default().Check())
}

func TestCap(t *testing.T) {
	b := Malloc(100)
	assert.Equal(t, 128-headerSize, Cap(b))
	assert.Equal(t, cap(b), Cap(b))
	Free(b)
	assert.Panics(t, func() { Cap(make([]byte, 10)) })
}

func TestRealloc(t *testing.T) {
	b := Malloc(10)
	copy(b, "0123456789")
	b = Realloc(b, 5000)
	require.Len(t, b, 5000)
	assert.Equal(t, "0123456789", string(b[:10]))
	b = Realloc(b, 4)
	assert.Equal(t, "0123", string(b))
	assert.Nil(t, Realloc(b, 0))

	b = Realloc(nil, 3)
	assert.Len(t, b, 3)
	Free(b)
}

func TestAppend(t *testing.T) {
	str := "TestAppend"
	var b []byte
	for i := 0; i < 2000; i++ {
		b = Append(b, []byte(str)...)
	}
	require.Len(t, b, 2000*len(str))
	for i := 0; i < 2000; i++ {
		require.Equal(t, str, string(b[i*len(str):(i+1)*len(str)]))
	}
	Free(b)

	str = "TestAppendStr"
	b = Malloc(0)
	for i := 0; i < 2000; i++ {
		b = AppendStr(b, str)
	}
	require.Len(t, b, 2000*len(str))
	assert.Equal(t, str, string(b[len(b)-len(str):]))
	Free(b)
	assert.NoError(t, Default().Check())
}
