package vkres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeAlignUp(t *testing.T) {
	tests := []struct {
		a, align, want uint64
	}{
		{0, 16, 0},
		{1, 16, 16},
		{16, 16, 16},
		{17, 16, 32},
		{5, 4, 8},
		{7, 1, 7},
		{7, 0, 7},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, makeAlignUp(tt.a, tt.align), "makeAlignUp(%d, %d)", tt.a, tt.align)
	}
}

func TestStagingAllocator(t *testing.T) {
	s := stagingAllocator{size: 64}

	off, err := s.allocate(10, 16)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), off)

	off, err = s.allocate(20, 16)
	require.NoError(t, err)
	assert.Equal(t, uint64(16), off)

	off, err = s.allocate(16, 16)
	require.NoError(t, err)
	assert.Equal(t, uint64(48), off)
	assert.Equal(t, uint64(64), s.used())

	_, err = s.allocate(1, 1)
	assert.ErrorIs(t, err, ErrStagingExhausted)

	s.reset()
	off, err = s.allocate(64, 16)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), off)
}

func TestStagingAllocatorAlignmentPastEnd(t *testing.T) {
	s := stagingAllocator{size: 20}
	_, err := s.allocate(18, 1)
	require.NoError(t, err)

	// aligning the next range to 16 lands beyond the buffer
	_, err = s.allocate(1, 16)
	assert.ErrorIs(t, err, ErrStagingExhausted)
	assert.Equal(t, uint64(18), s.used())
}
