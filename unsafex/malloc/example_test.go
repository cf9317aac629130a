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

	"github.com/cloudwego/memkit/unsafex/sysmem"
)

func Example() {
	p, _ := sysmem.NewBuffer(1 << 20)
	h, _ := NewHeap(p, nil)

	b1, _ := h.Alloc(100) // 100 + 16 byte header fits in a 128-byte block
	b2, _ := h.Alloc(200) // needs a 256-byte block

	fmt.Printf("b1: len=%d cap=%d\n", len(h.Bytes(b1)), cap(h.Bytes(b1)))
	fmt.Printf("b2: len=%d cap=%d\n", len(h.Bytes(b2)), cap(h.Bytes(b2)))

	h.Free(b1)
	h.Free(b2)
	fmt.Println(h.Blocks())

	// Output:
	// b1: len=100 cap=112
	// b2: len=200 cap=240
	// [{0 4096 false}]
}
