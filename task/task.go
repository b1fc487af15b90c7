package task

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Status represents the status of a task
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusWarning   Status = "warning"
	StatusCancelled Status = "cancelled"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) Icon() string {
	switch s {
	case StatusPending:
		return "⏳"
	case StatusRunning:
		return "⟳"
	case StatusSuccess:
		return "✓"
	case StatusFailed:
		return "✗"
	case StatusWarning:
		return "⚠"
	case StatusCancelled:
		return "⊘"
	default:
		return ""
	}
}

// Done reports whether the status is final.
func (s Status) Done() bool {
	return s != StatusPending && s != StatusRunning
}

// Func is the body of a task.
type Func func(ctx context.Context, t *Task) error

// Task is a single unit of work tracked by a Manager
type Task struct {
	name string
	fn   Func

	mu        sync.Mutex
	status    Status
	message   string
	warning   bool
	err       error
	attempts  int
	startTime time.Time
	endTime   time.Time
	done      chan struct{}
}

func newTask(name string, fn Func) *Task {
	return &Task{name: name, fn: fn, status: StatusPending, done: make(chan struct{})}
}

func (t *Task) Name() string { return t.name }

func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Task) Message() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.message
}

// Attempts is the number of times the task body ran.
func (t *Task) Attempts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts
}

func (t *Task) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.startTime.IsZero() {
		return 0
	}
	if t.endTime.IsZero() {
		return time.Since(t.startTime)
	}
	return t.endTime.Sub(t.startTime)
}

// Done is closed once the task reaches a final status.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Infof sets the progress message shown next to the task.
func (t *Task) Infof(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	t.mu.Lock()
	t.message = msg
	t.mu.Unlock()
	log.Debugf("[%s] %s", t.name, msg)
}

// Warnf sets the message and makes a successful run end as a warning.
func (t *Task) Warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	t.mu.Lock()
	t.message = msg
	t.warning = true
	t.mu.Unlock()
	log.Warnf("[%s] %s", t.name, msg)
}

func (t *Task) begin() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.startTime.IsZero() {
		t.startTime = time.Now()
	}
	t.attempts++
	t.status = StatusRunning
}

func (t *Task) finish(status Status, err error) {
	t.mu.Lock()
	if status == StatusSuccess && t.warning {
		status = StatusWarning
	}
	t.status = status
	t.err = err
	if err != nil {
		t.message = err.Error()
	}
	t.endTime = time.Now()
	t.mu.Unlock()
	close(t.done)
}
