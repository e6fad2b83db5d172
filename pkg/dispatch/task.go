package dispatch

import (
	"context"

	"clinician-dashboard-be/internal/model"
)

// Task is the handle of one send or regenerate. It completes once the terminal
// bot message has landed in the conversation it was started for.
type Task struct {
	key  string
	done chan struct{}
	msg  model.Message
	err  error
}

func newTask(key string) *Task {
	return &Task{key: key, done: make(chan struct{})}
}

// Key is the conversation captured when the task was created.
func (t *Task) Key() string { return t.key }

func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the terminal message lands or ctx ends. The error is the
// upstream failure that produced a fallback message, nil on success.
func (t *Task) Wait(ctx context.Context) (model.Message, error) {
	select {
	case <-t.done:
		return t.msg, t.err
	case <-ctx.Done():
		return model.Message{}, ctx.Err()
	}
}

func (t *Task) complete(msg model.Message, err error) {
	t.msg = msg
	t.err = err
	close(t.done)
}
