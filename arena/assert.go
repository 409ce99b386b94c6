package arena

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// fatalf aborts on a broken arena invariant. The error is logged first so the
// diagnostic survives even when the panic is recovered far up the stack.
func fatalf(log *zap.Logger, format string, args ...interface{}) {
	err := errors.AssertionFailedf(format, args...)
	log.Error("arena assertion failed", zap.Error(err))
	panic(err)
}
