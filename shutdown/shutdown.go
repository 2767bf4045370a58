// Package shutdown owns the process-wide cancellation signal and the OS
// signal handling that fires it.
//
// The first SIGINT/SIGTERM cancels the Token cooperatively: actors stop
// taking new work and drain what they already admitted. A second signal
// forces the process to exit immediately, abandoning in-flight work.
package shutdown

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// ExitCodeForced is the exit status used when a second signal forces exit.
const ExitCodeForced = 130

var (
	mut   sync.Mutex //nolint:gochecknoglobals
	hooks []func()   //nolint:gochecknoglobals

	// forceExit is swapped out by tests.
	forceExit = func() { os.Exit(ExitCodeForced) } //nolint:gochecknoglobals
)

// BeforeShutdown registers a function to be called when shutdown begins.
// Hooks run once, on the first cancellation of the token passed to
// SetupHandler, while admitted work is still draining.
func BeforeShutdown(h func()) {
	mut.Lock()
	defer mut.Unlock()

	hooks = append(hooks, h)
}

// SetupHandler installs a SIGINT/SIGTERM handler bound to token.
// The returned function uninstalls it; it is safe to call more than once.
func SetupHandler(token Token) (stop func()) {
	channel := make(chan os.Signal, 2) //nolint:mnd
	signal.Notify(channel, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})

	token.OnCancel(cleanup)

	go handleSignals(token, channel, done)

	var once sync.Once

	return func() {
		once.Do(func() {
			signal.Stop(channel)
			close(done)
		})
	}
}

func handleSignals(token Token, channel <-chan os.Signal, done <-chan struct{}) {
	received := 0

	for {
		select {
		case <-done:
			return
		case sig := <-channel:
			received++

			if received == 1 {
				slog.Warn("Received " + sig.String() + ", shutting down. Send it again to force exit")
				token.Cancel()

				continue
			}

			slog.Error("Received " + sig.String() + " again, forcing exit")
			forceExit()

			return
		}
	}
}

func cleanup() {
	mut.Lock()
	defer mut.Unlock()

	for _, h := range hooks {
		h()
	}

	hooks = nil
}
