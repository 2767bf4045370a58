// Package should holds cleanup helpers for calls whose failure can only
// be logged, typically in defer statements.
package should

import (
	"context"
	"errors"
	"io"
	"net"
	"os"

	"github.com/SatoshiAndKin/chandelier-or-not/logger"
)

// Close closes closer and logs msg with the error if that fails.
// Closing something already closed is not reported.
//
//	defer should.Close(ctx, store, "closing store")
func Close(ctx context.Context, closer io.Closer, msg string) {
	if closer == nil {
		return
	}

	err := closer.Close()
	if err == nil || errors.Is(err, os.ErrClosed) || errors.Is(err, net.ErrClosed) {
		return
	}

	logger.Get(ctx).Error(msg, "error", err)
}
