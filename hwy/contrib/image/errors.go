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

import "errors"

var (
	// ErrShape reports a shape with fewer than two dims or a negative dim.
	ErrShape = errors.New("image: invalid stack shape")

	// ErrBufferSize reports an input or output buffer whose length does not
	// match the shape.
	ErrBufferSize = errors.New("image: buffer size does not match shape")

	// ErrAllocation reports that working memory could not be reserved.
	// No output buffer has been written when it is returned.
	ErrAllocation = errors.New("image: cannot allocate working memory")

	// ErrCleanup reports a per-worker accumulator that was missing when
	// working memory was released. Outputs are complete and valid.
	ErrCleanup = errors.New("image: accumulator missing at release")

	// ErrSense reports an unknown rotation sense name.
	ErrSense = errors.New(`image: sense must be "cw" or "ccw"`)
)

// Status is the integer result code of a kernel call.
type Status int

const (
	// StatusOK means the call completed.
	StatusOK Status = 0

	// StatusAllocFailed means working memory could not be reserved; the
	// operation was aborted and no output was written.
	StatusAllocFailed Status = 1

	// StatusCleanupAnomaly means the outputs are valid but an accumulator
	// was missing at release time.
	StatusCleanupAnomaly Status = 2

	// StatusInvalidArgument means the shape or a buffer length was rejected
	// before any work started.
	StatusInvalidArgument Status = 3
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusAllocFailed:
		return "alloc-failed"
	case StatusCleanupAnomaly:
		return "cleanup-anomaly"
	case StatusInvalidArgument:
		return "invalid-argument"
	default:
		return "unknown"
	}
}

// StatusOf maps an error returned by Rotate90 or StackMean to its Status.
// Errors outside this package map to StatusInvalidArgument.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrAllocation):
		return StatusAllocFailed
	case errors.Is(err, ErrCleanup):
		return StatusCleanupAnomaly
	default:
		return StatusInvalidArgument
	}
}
