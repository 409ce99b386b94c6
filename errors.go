package vkres

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

var (
	// ErrNotHostVisible is returned when mapping memory the host cannot see.
	ErrNotHostVisible = errors.New("vkres: memory is not host visible")

	// ErrStagingExhausted is returned when one upload batch needs more
	// staging memory than the uploader was created with.
	ErrStagingExhausted = errors.New("vkres: staging buffer exhausted")

	// ErrUploadInFlight marks an upload that could not be confirmed finished.
	// Its destinations may still be written by the GPU.
	ErrUploadInFlight = errors.New("vkres: upload may still be in flight")
)

// fatalf aborts on a misuse of a resource that no caller can recover from.
func fatalf(format string, args ...interface{}) {
	err := errors.AssertionFailedf(format, args...)
	Logger().Error("vkres assertion failed", zap.Error(err))
	panic(err)
}
