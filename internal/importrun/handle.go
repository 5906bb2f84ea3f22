package importrun

import (
	"context"
	"sync"

	"github.com/MrJamesThe3rd/tally/internal/reconcile"
	"github.com/MrJamesThe3rd/tally/internal/statement"
)

// Handle controls a run started with Start. It is not reusable: a retry
// needs a new Start.
type Handle struct {
	token CancelToken
	done  chan struct{}

	mu       sync.Mutex
	progress Progress
	subs     []chan Progress
	bufSize  int
}

// Start runs the import on its own goroutine. The run is detached from
// ctx cancellation but keeps its values, such as the logger.
func (o *Orchestrator) Start(ctx context.Context, batch *statement.Batch, table *reconcile.Table) *Handle {
	h := &Handle{
		done:     make(chan struct{}),
		progress: Progress{Status: StatusIdle},
		// One update per item, plus the running and terminal snapshots.
		bufSize: batch.Count(statement.KindIdle) + 3,
	}

	runCtx := context.WithoutCancel(ctx)

	go func() {
		defer close(h.done)

		o.Run(runCtx, batch, table, &h.token, h.publish)
	}()

	return h
}

func (h *Handle) Cancel() { h.token.Cancel() }

func (h *Handle) Progress() Progress {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.progress
}

// Subscribe returns a channel that receives the current progress and then
// every update. It is closed after the terminal update. Slow readers never
// block the run; when a reader falls behind, the oldest pending update is
// dropped so the terminal one always arrives.
func (h *Handle) Subscribe() <-chan Progress {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Progress, h.bufSize)
	ch <- h.progress

	if h.progress.Terminal() {
		close(ch)
		return ch
	}

	h.subs = append(h.subs, ch)

	return ch
}

// Done is closed when the run has finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the run finishes and returns its final progress.
func (h *Handle) Wait() Progress {
	<-h.done
	return h.Progress()
}

func (h *Handle) publish(p Progress) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.progress = p

	for _, ch := range h.subs {
		offer(ch, p)
	}

	if p.Terminal() {
		for _, ch := range h.subs {
			close(ch)
		}

		h.subs = nil
	}
}

func offer(ch chan Progress, p Progress) {
	select {
	case ch <- p:
		return
	default:
	}

	select {
	case <-ch:
	default:
	}

	select {
	case ch <- p:
	default:
	}
}
