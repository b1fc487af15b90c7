package task

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/flanksource/commons/logger"
	"github.com/flanksource/commons/text"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var log = logger.GetLogger("task")

// Manager runs tasks on a bounded number of workers and shows their
// progress on stderr.
type Manager struct {
	opts   ManagerOptions
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	tasks     []*Task
	wg        sync.WaitGroup
	semaphore chan struct{}

	out         io.Writer
	output      *termenv.Output
	interactive bool
	styles      styleSet
	lines       int
	stopRender  chan struct{}
	renderDone  chan struct{}
	stopOnce    sync.Once
}

type styleSet struct {
	success   lipgloss.Style
	failed    lipgloss.Style
	warning   lipgloss.Style
	running   lipgloss.Style
	info      lipgloss.Style
	cancelled lipgloss.Style
	pending   lipgloss.Style
}

// NewManager creates a Manager that renders to stderr. Cancelling ctx
// cancels pending tasks and the context passed to running ones.
func NewManager(ctx context.Context, opts ManagerOptions) *Manager {
	return NewManagerWithOutput(ctx, opts, os.Stderr)
}

// NewManagerWithOutput is NewManager writing progress to out. Live
// redrawing is only used when out is a terminal.
func NewManagerWithOutput(ctx context.Context, opts ManagerOptions, out io.Writer) *Manager {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	interactive := false
	if f, ok := out.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}

	renderer := lipgloss.NewRenderer(out)
	if opts.NoColor {
		renderer.SetColorProfile(termenv.Ascii)
	}

	ctx, cancel := context.WithCancel(ctx)
	m := &Manager{
		opts:        opts,
		ctx:         ctx,
		cancel:      cancel,
		semaphore:   make(chan struct{}, opts.MaxConcurrent),
		out:         out,
		output:      termenv.NewOutput(out),
		interactive: interactive && !opts.NoProgress,
		stopRender:  make(chan struct{}),
		renderDone:  make(chan struct{}),
	}
	m.styles.success = renderer.NewStyle().Foreground(lipgloss.Color("10"))
	m.styles.failed = renderer.NewStyle().Foreground(lipgloss.Color("9"))
	m.styles.warning = renderer.NewStyle().Foreground(lipgloss.Color("11"))
	m.styles.running = renderer.NewStyle().Foreground(lipgloss.Color("14"))
	m.styles.info = renderer.NewStyle().Foreground(lipgloss.Color("8"))
	m.styles.cancelled = renderer.NewStyle().Foreground(lipgloss.Color("13"))
	m.styles.pending = renderer.NewStyle().Foreground(lipgloss.Color("7"))

	if m.interactive {
		go m.render()
	} else {
		close(m.renderDone)
	}
	return m
}

// Start queues fn and returns its task.
func (m *Manager) Start(name string, fn Func) *Task {
	t := newTask(name, fn)
	m.mu.Lock()
	m.tasks = append(m.tasks, t)
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		select {
		case m.semaphore <- struct{}{}:
		case <-m.ctx.Done():
			t.finish(StatusCancelled, m.ctx.Err())
			m.report(t)
			return
		}
		defer func() { <-m.semaphore }()
		m.execute(t)
		m.report(t)
	}()
	return t
}

// Tasks returns the tasks in the order they were started.
func (m *Manager) Tasks() []*Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Task(nil), m.tasks...)
}

func (m *Manager) execute(t *Task) {
	for attempt := 0; ; attempt++ {
		if err := m.ctx.Err(); err != nil {
			t.finish(StatusCancelled, err)
			return
		}
		t.begin()
		err := m.runOnce(t)
		if err == nil {
			t.finish(StatusSuccess, nil)
			return
		}
		if attempt >= m.opts.MaxRetries {
			log.Debugf("[%s] failed after %d attempt(s): %v", t.name, attempt+1, err)
			t.finish(StatusFailed, err)
			return
		}

		delay := m.opts.RetryDelay * time.Duration(1<<attempt)
		log.Warnf("[%s] attempt %d failed, retrying in %s: %v", t.name, attempt+1, text.HumanizeDuration(delay), err)
		select {
		case <-time.After(delay):
		case <-m.ctx.Done():
			t.finish(StatusCancelled, err)
			return
		}
	}
}

func (m *Manager) runOnce(t *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.fn(m.ctx, t)
}

// Wait blocks until every task is done and returns the number of tasks that
// did not succeed. After an interrupt, running tasks get GracefulTimeout to
// finish.
func (m *Manager) Wait() int {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-m.ctx.Done():
		log.Warnf("Interrupted, waiting up to %s for running tasks", text.HumanizeDuration(m.opts.GracefulTimeout))
		select {
		case <-done:
		case <-time.After(m.opts.GracefulTimeout):
			log.Errorf("Tasks still running after %s", text.HumanizeDuration(m.opts.GracefulTimeout))
		}
	}
	m.stop()

	failed := 0
	for _, t := range m.Tasks() {
		if s := t.Status(); s != StatusSuccess && s != StatusWarning {
			failed++
		}
	}
	return failed
}

func (m *Manager) stop() {
	m.stopOnce.Do(func() {
		close(m.stopRender)
		<-m.renderDone
		m.cancel()
	})
}
