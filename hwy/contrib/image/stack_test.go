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
	"errors"
	"slices"
	"testing"

	"github.com/ajroetker/go-imagestack/hwy/contrib/workerpool"
)

func TestNewStack(t *testing.T) {
	s, err := NewStack[float32](Shape{3, 4, 5})
	if err != nil {
		t.Fatal(err)
	}
	if s.ImageCount() != 3 || s.Height() != 4 || s.Width() != 5 {
		t.Errorf("dims = %d, %d, %d; want 3, 4, 5", s.ImageCount(), s.Height(), s.Width())
	}
	if len(s.Data()) != 60 {
		t.Errorf("len(Data()) = %d, want 60", len(s.Data()))
	}

	if _, err := NewStack[float32](Shape{5}); !errors.Is(err, ErrShape) {
		t.Errorf("NewStack(5) err = %v, want ErrShape", err)
	}
}

func TestWrapStack(t *testing.T) {
	data := iota64(12)
	shape := Shape{3, 2, 2}
	s, err := WrapStack(data, shape)
	if err != nil {
		t.Fatal(err)
	}

	// Shared buffer, private shape.
	s.Set(0, 0, 0, 100)
	if data[0] != 100 {
		t.Error("WrapStack copied the buffer")
	}
	shape[0] = 9
	if s.ImageCount() != 3 {
		t.Error("WrapStack kept a reference to the caller's shape")
	}

	if _, err := WrapStack(data[:11], Shape{3, 2, 2}); !errors.Is(err, ErrBufferSize) {
		t.Errorf("WrapStack short err = %v, want ErrBufferSize", err)
	}
}

func TestStackAtSetPlane(t *testing.T) {
	s, _ := NewStack[float64](Shape{2, 3, 4})
	s.Set(1, 3, 2, 42)
	if got := s.At(1, 3, 2); got != 42 {
		t.Errorf("At(1,3,2) = %v, want 42", got)
	}
	if got := s.Plane(1)[2*4+3]; got != 42 {
		t.Errorf("Plane(1)[11] = %v, want 42", got)
	}

	// Out of bounds
	for _, pos := range [][3]int{{-1, 0, 0}, {2, 0, 0}, {0, 4, 0}, {0, 0, 3}, {0, -1, 0}} {
		if got := s.At(pos[0], pos[1], pos[2]); got != 0 {
			t.Errorf("At(%v) = %v, want 0", pos, got)
		}
		s.Set(pos[0], pos[1], pos[2], 999)
	}
	if s.Plane(2) != nil || s.Plane(-1) != nil {
		t.Error("out of range Plane should return nil")
	}

	// Appending to a plane must not spill into the next one.
	p0 := s.Plane(0)
	_ = append(p0, 7)
	if s.At(1, 0, 0) != 0 {
		t.Error("append to Plane(0) overwrote Plane(1)")
	}
}

func TestStackCloneFill(t *testing.T) {
	s, _ := NewStack[float32](Shape{2, 2})
	s.Fill(3)
	c := s.Clone()
	c.Set(0, 0, 0, 1)
	if s.At(0, 0, 0) != 3 {
		t.Error("Clone shares data with the original")
	}
	if !slices.Equal(c.Shape(), s.Shape()) {
		t.Errorf("Clone shape = %v, want %v", c.Shape(), s.Shape())
	}
}

func TestStackRotate90(t *testing.T) {
	pool := workerpool.New(2)
	defer pool.Close()

	s, _ := WrapStack(iota64(12), Shape{2, 2, 3})
	r, err := s.Rotate90(pool, Clockwise)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(r.Shape(), Shape{2, 3, 2}) {
		t.Errorf("rotated shape = %v, want 2x3x2", r.Shape())
	}
	want := []float64{4, 1, 5, 2, 6, 3, 10, 7, 11, 8, 12, 9}
	if !slices.Equal(r.Data(), want) {
		t.Errorf("rotated data = %v, want %v", r.Data(), want)
	}

	back, err := r.Rotate90(pool, CounterClockwise)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(back.Data(), s.Data()) {
		t.Error("rotating back did not restore the stack")
	}

	if _, err := s.Rotate90(nil, Clockwise, WithAllocator(NewBudget(0))); !errors.Is(err, ErrAllocation) {
		t.Errorf("err = %v, want ErrAllocation", err)
	}
}

func TestStackMeanMethod(t *testing.T) {
	s, _ := WrapStack([]float64{1, 2, 3, nan, 5, 6}, Shape{3, 1, 2})
	mean, count, err := s.Mean(nil, true)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(mean, []float64{3, 4}) || !slices.Equal(count, []int64{3, 2}) {
		t.Errorf("Mean = %v, %v; want [3 4], [3 2]", mean, count)
	}

	mean, count, err = s.Mean(nil, true, WithAllocator(NewBudget(0)))
	if !errors.Is(err, ErrAllocation) || mean != nil || count != nil {
		t.Errorf("Mean with no budget = %v, %v, %v", mean, count, err)
	}
}
