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
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrOutOfMemory is returned when the provider can not extend the heap.
	ErrOutOfMemory = errors.New("malloc: out of memory")

	// ErrInvalidSize is returned for negative sizes and invalid options.
	ErrInvalidSize = errors.New("malloc: invalid size")

	// ErrCorrupted is returned by Check when the block structure is broken.
	// The heap can not be trusted after that.
	ErrCorrupted = errors.New("malloc: heap corrupted")
)

// Provider supplies the memory a Heap manages.
//
// Extend grows the committed range by n bytes and returns the whole range.
// The base address of the returned slice must never change between calls,
// and the range must never shrink.
type Provider interface {
	Extend(n int) ([]byte, error)
}

// Option ...
type Option struct {
	// InitSize is the number of bytes requested from the Provider by NewHeap.
	// It must be a power of two.
	InitSize int

	// MinBlockSize is the smallest block the heap splits down to,
	// and also the minimum payload reserved for any allocation.
	// It must be a power of two and not less than the 16-byte header.
	MinBlockSize int

	// Logger receives debug records about heap growth.
	// nil disables logging.
	Logger *slog.Logger
}

// DefaultOption returns the default values of Option.
func DefaultOption() *Option {
	return &Option{
		InitSize:     DefaultInitSize,
		MinBlockSize: DefaultMinBlockSize,
	}
}

func (o *Option) validate() error {
	if !isPowerOfTwo(o.MinBlockSize) || o.MinBlockSize < headerSize {
		return fmt.Errorf("%w: MinBlockSize must be a power of two >= %d, got %d",
			ErrInvalidSize, headerSize, o.MinBlockSize)
	}
	if !isPowerOfTwo(o.InitSize) || o.InitSize < 2*o.MinBlockSize {
		return fmt.Errorf("%w: InitSize must be a power of two >= %d, got %d",
			ErrInvalidSize, 2*o.MinBlockSize, o.InitSize)
	}
	return nil
}
