// Package shutdown runs registered cleanup hooks in priority order when the
// process is asked to stop.
package shutdown

import (
	"container/heap"
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/flanksource/commons/logger"
)

// Lower priorities run first: stop accepting work, then release what the
// work was using.
const (
	PriorityIngress  = 0
	PriorityDefault  = 100
	PriorityWorkers  = 200
	PriorityDatabase = 300
)

type hook struct {
	label    string
	priority int
	seq      int
	fn       func()
	index    int
}

type hookHeap []*hook

func (h hookHeap) Len() int { return len(h) }
func (h hookHeap) Less(i, j int) bool {
	if h[i].priority == h[j].priority {
		return h[i].seq < h[j].seq
	}
	return h[i].priority < h[j].priority
}
func (h hookHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *hookHeap) Push(x any) {
	item := x.(*hook)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *hookHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[0 : n-1]
	return item
}

var (
	hooks    hookHeap
	hooksMux sync.Mutex
	seq      int
)

// AddHook registers fn with PriorityDefault.
func AddHook(label string, fn func()) {
	AddHookWithPriority(label, PriorityDefault, fn)
}

// AddHookWithPriority registers fn. Hooks with equal priority run in
// registration order.
func AddHookWithPriority(label string, priority int, fn func()) {
	hooksMux.Lock()
	defer hooksMux.Unlock()
	seq++
	heap.Push(&hooks, &hook{label: label, priority: priority, seq: seq, fn: fn})
}

// Shutdown runs and clears every registered hook. A panicking hook is
// logged and does not stop the others.
func Shutdown() {
	hooksMux.Lock()
	defer hooksMux.Unlock()

	if len(hooks) == 0 {
		return
	}
	logger.Debugf("Executing %d shutdown hooks", len(hooks))

	for hooks.Len() > 0 {
		h := heap.Pop(&hooks).(*hook)
		logger.Debugf("Executing shutdown hook: %s (priority=%d)", h.label, h.priority)
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("Panic in shutdown hook %s: %v", h.label, r)
				}
			}()
			h.fn()
		}()
	}
}

// WithSignals returns a context that is cancelled on SIGINT or SIGTERM.
// A second signal exits immediately.
func WithSignals(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			fmt.Fprintf(os.Stderr, "\nReceived %s, shutting down (press Ctrl+C again to force)\n", sig)
			cancel()
		case <-ctx.Done():
			signal.Stop(sigChan)
			return
		}
		<-sigChan
		fmt.Fprintf(os.Stderr, "\nForce exit\n")
		os.Exit(1)
	}()
	return ctx, cancel
}
