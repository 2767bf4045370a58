package actor

import (
	"context"
)

// Processor handles the requests of one actor. With a concurrency above
// one, Process is called from several goroutines at once and must guard
// any state it mutates.
type Processor[Request, Response any] interface {
	Process(ctx context.Context, req Request) (Response, error)
}

// Initializer is implemented by processors that need setup before the
// first request is admitted. An Init error stops the actor.
type Initializer interface {
	Init(ctx context.Context) error
}

// ProcessorFunc adapts a plain function to Processor.
type ProcessorFunc[Request, Response any] func(ctx context.Context, req Request) (Response, error)

// Process calls f.
func (f ProcessorFunc[Request, Response]) Process(ctx context.Context, req Request) (Response, error) { //nolint:ireturn
	return f(ctx, req)
}
