// Command chandelier runs the chandelier-or-not ingestion pipeline.
package main

import (
	"context"
	"os"

	"github.com/SatoshiAndKin/chandelier-or-not/logger"
)

const app = "chandelier"

func main() {
	ctx := logger.WithSubsystem(context.Background(), app)

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
