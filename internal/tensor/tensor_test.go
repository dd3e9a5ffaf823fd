package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDenseIndexing(t *testing.T) {
	t.Parallel()

	d := NewDense(2, 3, 4)
	require.Equal(t, 3, d.Rank())
	require.Equal(t, 24, d.Len())

	// Row-major: last axis varies fastest.
	assert.Equal(t, 0, d.Offset(0, 0, 0))
	assert.Equal(t, 1, d.Offset(0, 0, 1))
	assert.Equal(t, 4, d.Offset(0, 1, 0))
	assert.Equal(t, 12, d.Offset(1, 0, 0))
	assert.Equal(t, 23, d.Offset(1, 2, 3))

	d.Set(2.5, 1, 2, 3)
	assert.Equal(t, 2.5, d.At(1, 2, 3))
	d.Add(0.5, 1, 2, 3)
	assert.Equal(t, 3.0, d.At(1, 2, 3))
}

func TestDenseOutOfRangePanics(t *testing.T) {
	t.Parallel()

	d := NewDense(2, 2)
	assert.Panics(t, func() { d.At(2, 0) })
	assert.Panics(t, func() { d.At(0, -1) })
	assert.Panics(t, func() { d.At(0) }) // rank mismatch
}

func TestNewDenseRejectsBadShape(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { NewDense(3, 0) })
	assert.Panics(t, func() { NewDense(-1) })
}

func TestDenseBulkOps(t *testing.T) {
	t.Parallel()

	d := NewDense(2, 2)
	d.Fill(1.5)
	assert.Equal(t, 6.0, d.Sum())

	d.Scale(2)
	assert.Equal(t, 12.0, d.Sum())
	assert.Equal(t, 3.0, d.Max())

	c := d.Clone()
	c.Set(0, 0, 0)
	assert.Equal(t, 3.0, d.At(0, 0), "clone must not alias the original")
	assert.True(t, d.SameShape(c))
	assert.False(t, d.SameShape(NewDense(2, 2, 1)))
}

func TestBoolMask(t *testing.T) {
	t.Parallel()

	b := NewBool(3, 3)
	assert.Equal(t, 0, b.CountTrue())

	b.Set(true, 0, 1)
	b.Set(true, 2, 2)
	assert.True(t, b.At(0, 1))
	assert.False(t, b.At(1, 0))
	assert.Equal(t, 2, b.CountTrue())

	assert.Panics(t, func() { b.At(3, 0) })
}
