// Package tensor provides dense multi-dimensional float64 arrays with
// row-major flat storage. The overlap statistics used by the balance
// estimator are six-dimensional, which rules out gonum's two-dimensional
// mat types; this package supplies the minimal strided representation the
// estimator needs, with gonum/floats handling the bulk slice operations.
package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Dense is a dense float64 tensor of arbitrary rank. Data is laid out in
// row-major order: the last axis varies fastest. Data is exported so hot
// loops can index via Offset arithmetic without per-element bounds checks.
type Dense struct {
	shape   []int
	strides []int
	Data    []float64
}

// NewDense allocates a zeroed tensor with the given shape.
// Panics if any dimension is non-positive.
func NewDense(shape ...int) *Dense {
	return &Dense{
		shape:   append([]int(nil), shape...),
		strides: rowMajorStrides(shape),
		Data:    make([]float64, size(shape)),
	}
}

func rowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		if shape[i] <= 0 {
			panic(fmt.Sprintf("tensor: non-positive dimension %d at axis %d", shape[i], i))
		}
		strides[i] = stride
		stride *= shape[i]
	}
	return strides
}

func size(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Rank returns the number of axes.
func (t *Dense) Rank() int { return len(t.shape) }

// Shape returns the tensor dimensions. The slice must not be mutated.
func (t *Dense) Shape() []int { return t.shape }

// Len returns the total number of elements.
func (t *Dense) Len() int { return len(t.Data) }

// Stride returns the flat-index stride of the given axis.
func (t *Dense) Stride(axis int) int { return t.strides[axis] }

// Offset converts a multi-index to a flat index into Data.
// Panics on rank mismatch or out-of-range indices.
func (t *Dense) Offset(idx ...int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("tensor: %d indices for rank-%d tensor", len(idx), len(t.shape)))
	}
	off := 0
	for i, x := range idx {
		if x < 0 || x >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of range [0,%d) on axis %d", x, t.shape[i], i))
		}
		off += x * t.strides[i]
	}
	return off
}

// At returns the element at the given multi-index.
func (t *Dense) At(idx ...int) float64 { return t.Data[t.Offset(idx...)] }

// Set stores v at the given multi-index.
func (t *Dense) Set(v float64, idx ...int) { t.Data[t.Offset(idx...)] = v }

// Add increments the element at the given multi-index by v.
func (t *Dense) Add(v float64, idx ...int) { t.Data[t.Offset(idx...)] += v }

// Fill sets every element to v.
func (t *Dense) Fill(v float64) {
	for i := range t.Data {
		t.Data[i] = v
	}
}

// Scale multiplies every element by v.
func (t *Dense) Scale(v float64) { floats.Scale(v, t.Data) }

// Sum returns the sum of all elements.
func (t *Dense) Sum() float64 { return floats.Sum(t.Data) }

// Max returns the largest element. Panics on an empty tensor.
func (t *Dense) Max() float64 { return floats.Max(t.Data) }

// Clone returns a deep copy.
func (t *Dense) Clone() *Dense {
	c := NewDense(t.shape...)
	copy(c.Data, t.Data)
	return c
}

// SameShape reports whether t and u have identical shapes.
func (t *Dense) SameShape(u *Dense) bool {
	if len(t.shape) != len(u.shape) {
		return false
	}
	for i := range t.shape {
		if t.shape[i] != u.shape[i] {
			return false
		}
	}
	return true
}

// Bool is a dense boolean tensor with the same layout rules as Dense.
// It is used for validity masks over Dense tensors of matching shape.
type Bool struct {
	shape   []int
	strides []int
	Data    []bool
}

// NewBool allocates an all-false boolean tensor with the given shape.
func NewBool(shape ...int) *Bool {
	return &Bool{
		shape:   append([]int(nil), shape...),
		strides: rowMajorStrides(shape),
		Data:    make([]bool, size(shape)),
	}
}

// Rank returns the number of axes.
func (t *Bool) Rank() int { return len(t.shape) }

// Shape returns the tensor dimensions. The slice must not be mutated.
func (t *Bool) Shape() []int { return t.shape }

// Len returns the total number of elements.
func (t *Bool) Len() int { return len(t.Data) }

// Offset converts a multi-index to a flat index into Data.
func (t *Bool) Offset(idx ...int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("tensor: %d indices for rank-%d tensor", len(idx), len(t.shape)))
	}
	off := 0
	for i, x := range idx {
		if x < 0 || x >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of range [0,%d) on axis %d", x, t.shape[i], i))
		}
		off += x * t.strides[i]
	}
	return off
}

// At returns the element at the given multi-index.
func (t *Bool) At(idx ...int) bool { return t.Data[t.Offset(idx...)] }

// Set stores v at the given multi-index.
func (t *Bool) Set(v bool, idx ...int) { t.Data[t.Offset(idx...)] = v }

// CountTrue returns the number of true elements.
func (t *Bool) CountTrue() int {
	n := 0
	for _, v := range t.Data {
		if v {
			n++
		}
	}
	return n
}
