package timer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const tickInterval = time.Second

// Hooks are invoked after the runner has released its lock, in the order the events happened.
// A hook may issue commands on the Runner but must not call Close.
type Hooks struct {
	OnTick         func(Snapshot)
	OnNotification func(Notification)
}

// Runner drives an Engine from a 1 Hz clock and serializes commands with ticks.
type Runner struct {
	clock clockwork.Clock
	hooks Hooks

	mu      sync.Mutex
	engine  *Engine
	pending []Notification
	stop    chan struct{}
	closed  bool

	// loops counts tick goroutines until they have returned from their last hook.
	loops sync.WaitGroup
}

func NewRunner(clock clockwork.Clock, hooks Hooks) *Runner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	r := &Runner{clock: clock, hooks: hooks}
	r.engine = NewEngine(func(n Notification) {
		r.pending = append(r.pending, n)
	})
	return r
}

func (r *Runner) SelectDuration(minutes int) Snapshot {
	return r.apply(func(e *Engine) { e.SelectDuration(minutes) })
}

func (r *Runner) Start() Snapshot {
	return r.apply(func(e *Engine) {
		if e.Start() {
			r.startTickerLocked()
		}
	})
}

func (r *Runner) End() Snapshot {
	return r.apply(func(e *Engine) { e.End() })
}

func (r *Runner) AcknowledgeCompletion() Snapshot {
	return r.apply(func(e *Engine) { e.AcknowledgeCompletion() })
}

func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine.Snapshot()
}

// Close stops the ticker and waits until every tick goroutine, including one already past its
// final tick and still running hooks, has exited. Commands after Close still mutate the engine
// but no longer schedule ticks.
func (r *Runner) Close() {
	r.mu.Lock()
	r.closed = true
	r.stopTickerLocked()
	r.mu.Unlock()
	r.loops.Wait()
}

func (r *Runner) apply(fn func(*Engine)) Snapshot {
	r.mu.Lock()
	fn(r.engine)
	snap := r.engine.Snapshot()
	if !r.engine.Running() {
		// the loop rechecks stop under the lock, so no tick lands after this point
		r.stopTickerLocked()
	}
	notes := r.takePendingLocked()
	r.mu.Unlock()
	r.dispatch(notes)
	return snap
}

func (r *Runner) startTickerLocked() {
	if r.stop != nil || r.closed {
		return
	}
	stop := make(chan struct{})
	r.stop = stop
	ticker := r.clock.NewTicker(tickInterval)
	r.loops.Add(1)
	go r.loop(ticker, stop)
}

func (r *Runner) stopTickerLocked() {
	if r.stop == nil {
		return
	}
	close(r.stop)
	r.stop = nil
}

func (r *Runner) loop(ticker clockwork.Ticker, stop chan struct{}) {
	defer r.loops.Done()
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			if !r.tick(stop) {
				return
			}
		}
	}
}

func (r *Runner) tick(stop chan struct{}) bool {
	r.mu.Lock()
	select {
	case <-stop:
		r.mu.Unlock()
		return false
	default:
	}
	r.engine.Tick()
	snap := r.engine.Snapshot()
	running := r.engine.Running()
	if !running {
		// the loop exits on its own; forget it so the next Start creates a fresh one
		r.stop = nil
	}
	notes := r.takePendingLocked()
	r.mu.Unlock()

	if r.hooks.OnTick != nil {
		r.hooks.OnTick(snap)
	}
	r.dispatch(notes)
	return running
}

func (r *Runner) takePendingLocked() []Notification {
	notes := r.pending
	r.pending = nil
	return notes
}

func (r *Runner) dispatch(notes []Notification) {
	if r.hooks.OnNotification == nil {
		return
	}
	for _, n := range notes {
		r.hooks.OnNotification(n)
	}
}
