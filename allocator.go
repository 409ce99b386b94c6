package vkres

import (
	"github.com/cockroachdb/errors"
)

// stagingAllocator hands out aligned ranges of the staging buffer for one
// upload batch. Ranges are never freed individually; reset reclaims all of
// them once the batch has completed.
type stagingAllocator struct {
	size   uint64
	offset uint64
}

func makeAlignUp(a uint64, align uint64) uint64 {
	if align <= 1 {
		return a
	}
	m := a % align
	if m == 0 {
		return a
	}
	return a - m + align
}

// allocate returns the offset of size bytes aligned to align.
func (s *stagingAllocator) allocate(size, align uint64) (uint64, error) {
	start := makeAlignUp(s.offset, align)
	if start > s.size || s.size-start < size {
		return 0, errors.Wrapf(ErrStagingExhausted, "need %d bytes at offset %d of %d", size, start, s.size)
	}
	s.offset = start + size
	return start, nil
}

func (s *stagingAllocator) used() uint64 {
	return s.offset
}

func (s *stagingAllocator) reset() {
	s.offset = 0
}
