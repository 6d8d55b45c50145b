package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingBufferTrimsToCapacity(t *testing.T) {
	rb := newRingBuffer[int](3)
	for i := 1; i <= 5; i++ {
		rb.Append(i)
	}
	assert.Equal(t, 3, rb.Len())
	assert.Equal(t, []int{3, 4, 5}, rb.Slice())
}

func TestRingBufferLast(t *testing.T) {
	rb := newRingBuffer[int](3)
	_, ok := rb.Last()
	assert.False(t, ok)

	rb.Append(7)
	v, ok := rb.Last()
	assert.True(t, ok)
	assert.Equal(t, 7, v)
}
