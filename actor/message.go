package actor

import "context"

// Reply is the outcome of one request.
type Reply[Response any] struct {
	Value Response
	Error error
}

// Get unpacks the reply.
func (r Reply[Response]) Get() (Response, error) { //nolint:ireturn
	return r.Value, r.Error
}

// Message is a request travelling through a mailbox together with the
// channel its single reply is delivered on.
type Message[Request, Response any] struct {
	// ctx is the sender's context. Handlers see its values but not its
	// cancellation.
	ctx context.Context //nolint:containedctx

	Request Request

	// ResponseChan has capacity 1, so the reply never blocks the actor.
	ResponseChan chan Reply[Response]
}

func newMessage[Request, Response any](ctx context.Context, req Request) Message[Request, Response] {
	return Message[Request, Response]{
		ctx:          ctx,
		Request:      req,
		ResponseChan: make(chan Reply[Response], 1),
	}
}

func (m Message[Request, Response]) reply(value Response, err error) {
	select {
	case m.ResponseChan <- Reply[Response]{Value: value, Error: err}:
	default:
	}
}

func (m Message[Request, Response]) reject(err error) {
	var zero Response

	m.reply(zero, err)
}
