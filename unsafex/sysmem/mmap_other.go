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

//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package sysmem

// Mmap falls back to a Buffer where anonymous mappings with mprotect are not available.
type Mmap struct {
	*Buffer
}

// NewMmap allocates reserve bytes of capacity up front.
func NewMmap(reserve int) (*Mmap, error) {
	b, err := NewBuffer(reserve)
	if err != nil {
		return nil, err
	}
	return &Mmap{Buffer: b}, nil
}
