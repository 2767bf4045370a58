package shutdown

import (
	"context"
	"sync"
)

// Token is the process-wide cancellation signal. Copies of a Token share
// the same underlying state, so cancelling any copy cancels all of them,
// and every copy observes the cancellation at the same moment.
//
// A Token is cancelled at most once; later calls to Cancel are no-ops.
// The zero Token is not usable, create one with NewToken.
type Token struct {
	state *tokenState
}

type tokenState struct {
	ctx    context.Context //nolint:containedctx // the token is a context owner by design
	cancel context.CancelFunc
}

// NewToken creates a fresh, uncancelled Token.
func NewToken() Token {
	return NewTokenFrom(context.Background())
}

// NewTokenFrom creates a Token that is also cancelled when parent is done.
// Values stored in parent are visible through Token.Context.
func NewTokenFrom(parent context.Context) Token {
	if parent == nil {
		parent = context.Background()
	}

	ctx, cancel := context.WithCancel(parent)

	return Token{
		state: &tokenState{
			ctx:    ctx,
			cancel: cancel,
		},
	}
}

// Cancel fires the signal. It is safe to call any number of times
// from any goroutine.
func (t Token) Cancel() {
	t.state.cancel()
}

// IsCancelled reports whether the signal has fired, without blocking.
func (t Token) IsCancelled() bool {
	return t.state.ctx.Err() != nil
}

// Done returns a channel that is closed once the signal fires.
func (t Token) Done() <-chan struct{} {
	return t.state.ctx.Done()
}

// Context returns a context that is cancelled together with the token.
func (t Token) Context() context.Context {
	return t.state.ctx
}

// OnCancel registers f to run in its own goroutine once the token is
// cancelled. The returned function unregisters f if it has not run yet.
func (t Token) OnCancel(f func()) (stop func() bool) {
	return context.AfterFunc(t.state.ctx, f)
}

// DropGuard ties the token's cancellation to a scope:
//
//	guard := token.DropGuard()
//	defer guard.Drop()
//
// Leaving the scope through any path, including an early error return,
// cancels the token exactly once.
func (t Token) DropGuard() *DropGuard {
	return &DropGuard{token: t, armed: true}
}

// DropGuard cancels its token when dropped, unless it has been disarmed.
type DropGuard struct {
	mut   sync.Mutex
	token Token
	armed bool
}

// Drop cancels the guarded token. Only the first call has an effect.
func (g *DropGuard) Drop() {
	g.mut.Lock()
	defer g.mut.Unlock()

	if !g.armed {
		return
	}

	g.armed = false
	g.token.Cancel()
}

// Disarm releases the guard without cancelling and hands back the token.
func (g *DropGuard) Disarm() Token {
	g.mut.Lock()
	defer g.mut.Unlock()

	g.armed = false

	return g.token
}
