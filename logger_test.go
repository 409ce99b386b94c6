package vkres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLoggerNilFallsBackToNop(t *testing.T) {
	prev := Logger()
	defer SetLogger(prev)

	SetLogger(nil)
	require.NotNil(t, Logger())
	assert.NotNil(t, ResourceManagerConfig{}.withDefaults().Logger)
}
