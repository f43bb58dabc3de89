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

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Shape lists the dimension sizes of a stack as [batch dims..., height, width].
type Shape []int

// Validate reports ErrShape when s has fewer than two dims, a negative dim,
// or a plane size, image count or total length that overflows int.
func (s Shape) Validate() error {
	if len(s) < 2 {
		return fmt.Errorf("%w: need at least 2 dims (height, width), got %d", ErrShape, len(s))
	}
	if lo.ContainsBy(s, func(d int) bool { return d < 0 }) {
		return fmt.Errorf("%w: negative dim in %v", ErrShape, []int(s))
	}
	images, ok := product(s[:len(s)-2])
	if !ok {
		return fmt.Errorf("%w: image count of %v overflows int", ErrShape, []int(s))
	}
	plane, ok := product(s[len(s)-2:])
	if !ok {
		return fmt.Errorf("%w: plane size of %v overflows int", ErrShape, []int(s))
	}
	if _, ok := product([]int{images, plane}); !ok {
		return fmt.Errorf("%w: length of %v overflows int", ErrShape, []int(s))
	}
	return nil
}

// product multiplies non-negative dims, reporting false on overflow.
func product(dims []int) (int, bool) {
	p := 1
	for _, d := range dims {
		if d != 0 && p > math.MaxInt/d {
			return 0, false
		}
		p *= d
	}
	return p, true
}

// Height returns the second-to-last dim.
func (s Shape) Height() int {
	return s[len(s)-2]
}

// Width returns the last dim.
func (s Shape) Width() int {
	return s[len(s)-1]
}

// ImageCount returns the product of the batch dims, 1 when there are none.
func (s Shape) ImageCount() int {
	return lo.Reduce(s[:len(s)-2], func(acc, d int, _ int) int { return acc * d }, 1)
}

// PlaneSize returns height*width.
func (s Shape) PlaneSize() int {
	return s.Height() * s.Width()
}

// Len returns the total element count, ImageCount()*PlaneSize().
func (s Shape) Len() int {
	return s.ImageCount() * s.PlaneSize()
}

// Rotated returns a copy of s with height and width swapped: the shape of
// a stack after a 90 degree rotation.
func (s Shape) Rotated() Shape {
	r := slices.Clone(s)
	r[len(r)-2], r[len(r)-1] = r[len(r)-1], r[len(r)-2]
	return r
}

// String renders the shape as "3x512x512".
func (s Shape) String() string {
	return strings.Join(lo.Map(s, func(d int, _ int) string { return strconv.Itoa(d) }), "x")
}

// ParseShape parses a shape written as "3,512,512" or "3x512x512".
// Empty fields such as in "3,,512" or "3x" are rejected.
func ParseShape(str string) (Shape, error) {
	fields := strings.Split(strings.NewReplacer("x", ",", "X", ",").Replace(str), ",")
	s := make(Shape, 0, len(fields))
	for i, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			return nil, fmt.Errorf("%w: %q: empty dim %d", ErrShape, str, i)
		}
		d, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrShape, str, err)
		}
		s = append(s, d)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// check validates s and that a buffer of n elements holds exactly one stack
// of that shape.
func (s Shape) check(n int) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if want := s.Len(); n != want {
		return fmt.Errorf("%w: shape %v needs %d elements, buffer has %d", ErrBufferSize, s, want, n)
	}
	return nil
}
