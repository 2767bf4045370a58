package actor

import (
	"errors"
	"fmt"
)

// Task tracks the lifetime of an actor's run loop.
type Task struct {
	name string
	done chan struct{}
	err  error
}

func newTask(name string) *Task {
	return &Task{name: name, done: make(chan struct{})}
}

func (t *Task) finish(err error) {
	t.err = err
	close(t.done)
}

// Name returns the name of the actor the task belongs to.
func (t *Task) Name() string {
	return t.name
}

// Done is closed once the actor has stopped.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the actor has stopped and returns the error that
// stopped it, if any.
func (t *Task) Wait() error {
	<-t.done

	return t.err
}

// Join waits for every task and combines their errors.
func Join(tasks ...*Task) error {
	var errs []error

	for _, task := range tasks {
		if err := task.Wait(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", task.name, err))
		}
	}

	return errors.Join(errs...)
}

// Spawn runs fn on its own goroutine and returns a Task that finishes
// with fn's error. It lets non-actor workers be joined with actors.
func Spawn(name string, fn func() error) *Task {
	task := newTask(name)

	go func() {
		task.finish(fn())
	}()

	return task
}
