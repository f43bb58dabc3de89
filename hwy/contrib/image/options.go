// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package image

// Config holds the per-call settings of the kernels.
type Config struct {
	// Allocator reserves working memory. Defaults to HeapAllocator.
	Allocator Allocator

	// ChunkSize is the number of output elements a worker claims at a time
	// while applying a rotation. Zero means one image plane.
	ChunkSize int
}

// Option is a functional option for configuring a kernel call.
type Option func(*Config)

// WithAllocator reserves working memory through a.
func WithAllocator(a Allocator) Option {
	return func(c *Config) {
		if a != nil {
			c.Allocator = a
		}
	}
}

// WithChunkSize sets the rotation work granularity in elements.
// Non-positive values keep the default of one image plane.
func WithChunkSize(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.ChunkSize = n
		}
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{Allocator: HeapAllocator{}}
}

// ApplyOptions applies the given options to the default configuration.
func ApplyOptions(opts ...Option) Config {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return config
}

// chunkFor returns the rotation chunk size for planes of planeSize elements.
func (c Config) chunkFor(planeSize int) int {
	if c.ChunkSize > 0 {
		return c.ChunkSize
	}
	return max(planeSize, 1)
}
