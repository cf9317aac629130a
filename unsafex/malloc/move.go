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

// move copies n bytes of mem from src to dst.
// The ranges may overlap: copy moves backwards when dst is above src.
// This is the only place where payload bytes are moved between blocks.
func move(mem []byte, dst, src, n int) {
	if n <= 0 || dst == src {
		return
	}
	copy(mem[dst:dst+n], mem[src:src+n])
}
