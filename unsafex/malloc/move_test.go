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
)

func TestMove(t *testing.T) {
	tests := []struct {
		name     string
		dst, src int
		n        int
		want     string
	}{
		{"disjoint", 10, 0, 4, "abcdefghijabcd"},
		{"forward_overlap", 2, 0, 6, "ababcdefijklmn"},
		{"backward_overlap", 0, 2, 6, "cdefghghijklmn"},
		{"same", 3, 3, 5, "abcdefghijklmn"},
		{"empty", 0, 5, 0, "abcdefghijklmn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := []byte("abcdefghijklmn")
			move(mem, tt.dst, tt.src, tt.n)
			assert.Equal(t, tt.want, string(mem))
		})
	}
}
