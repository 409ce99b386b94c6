package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostPoolLimits(t *testing.T) {
	tests := []struct {
		name    string
		maxSets uint32
		sizes   []PoolSize
		layout  HostLayout
		fits    int
	}{
		{
			name:    "set limit",
			maxSets: 3,
			sizes:   []PoolSize{{Kind: uniformBuffer, Count: 100}},
			layout:  HostLayout{{Kind: uniformBuffer, Count: 1}},
			fits:    3,
		},
		{
			name:    "descriptor limit",
			maxSets: 10,
			sizes:   []PoolSize{{Kind: uniformBuffer, Count: 10}, {Kind: combinedImageSampler, Count: 5}},
			layout:  HostLayout{{Kind: uniformBuffer, Count: 1}, {Kind: combinedImageSampler, Count: 2}},
			fits:    2,
		},
		{
			name:    "missing kind",
			maxSets: 10,
			sizes:   []PoolSize{{Kind: uniformBuffer, Count: 10}},
			layout:  HostLayout{{Kind: combinedImageSampler, Count: 1}},
			fits:    0,
		},
		{
			name:    "empty layout",
			maxSets: 2,
			layout:  HostLayout{},
			fits:    2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b HostBackend
			p, err := b.CreatePool(tt.maxSets, tt.sizes)
			require.NoError(t, err)

			for i := 0; i < tt.fits; i++ {
				_, err := p.Allocate(tt.layout)
				require.NoError(t, err)
			}
			_, err = p.Allocate(tt.layout)
			assert.ErrorIs(t, err, ErrOutOfPoolMemory)

			require.NoError(t, p.Reset())
			if tt.fits > 0 {
				set, err := p.Allocate(tt.layout)
				require.NoError(t, err)
				assert.Equal(t, uint32(0), set.Slot)
			}
		})
	}
}

func TestHostBackendCounts(t *testing.T) {
	var b HostBackend
	p1, err := b.CreatePool(1, nil)
	require.NoError(t, err)
	_, err = b.CreatePool(1, nil)
	require.NoError(t, err)

	p1.Destroy()
	p1.Destroy()
	assert.Equal(t, 2, b.Created())
	assert.Equal(t, 1, b.Live())
	assert.Error(t, p1.Reset())

	_, err = b.CreatePool(0, nil)
	assert.Error(t, err)
}
