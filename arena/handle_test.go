package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleZeroValue(t *testing.T) {
	var h Handle
	assert.False(t, h.HasGeneration())
	assert.Equal(t, "handle(invalid)", h.String())
	requireAssertion(t, func() { h.Generation() })
}

func TestHandleEqualComparesGenerations(t *testing.T) {
	tests := []struct {
		name  string
		a, b  Handle
		equal bool
	}{
		{"same", newHandle(3, 9), newHandle(3, 9), true},
		{"reused slot", newHandle(3, 9), newHandle(3, 10), false},
		{"index ignored", newHandle(1, 4), newHandle(2, 4), true},
		{"zero values", Handle{}, Handle{}, true},
		{"zero vs live", Handle{}, newHandle(0, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, tt.a.Equal(tt.b))
		})
	}
}

func TestHandleString(t *testing.T) {
	assert.Equal(t, "handle(5@0)", newHandle(5, 0).String())
	assert.Equal(t, uint64(5), newHandle(5, 0).Index())
}
