// Package dispatch coordinates "content changed" signals between mutating
// goroutines, the query path and a single dispatcher goroutine.
//
// All coordination goes through one atomic word:
//
//	bits 0-1   dispatch state (Clean, Pending, Dispatched)
//	bits 2-63  number of queries currently executing
//
// Mutators and queries only run short compare-and-swap loops on the word.
// The dispatcher goroutine is the only party that ever blocks.
package dispatch

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRetryInterval is how long the dispatcher waits for a query after a
// dispatch before it assumes the signal was dropped and sends another one.
const DefaultRetryInterval = 500 * time.Millisecond

// State is the dispatch part of the machine word.
type State uint8

const (
	// Clean means no mutation is waiting to be observed.
	Clean State = iota
	// Pending means a mutation happened and no signal has been sent for it.
	Pending
	// Dispatched means a signal was sent and no query has started since.
	Dispatched
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case Pending:
		return "pending"
	case Dispatched:
		return "dispatched"
	default:
		return "invalid"
	}
}

const (
	stateBits = 2
	stateMask = 1<<stateBits - 1
	countUnit = 1 << stateBits
)

type word uint64

func (w word) state() State      { return State(w & stateMask) }
func (w word) executing() uint64 { return uint64(w) >> stateBits }
func (w word) with(s State) word { return w&^stateMask | word(s) }

// Machine is the change-dispatch state machine.
//
// The zero value is not usable; create instances with New.
type Machine struct {
	word atomic.Uint64

	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}

	startOnce sync.Once
	closeOnce sync.Once
	started   atomic.Bool

	notify func()
	retry  time.Duration
	log    *slog.Logger

	dispatches atomic.Uint64
	anomalies  atomic.Uint64
}

// New creates a machine that calls notify from its dispatcher goroutine.
// A non-positive retry uses DefaultRetryInterval. log must not be nil.
func New(notify func(), retry time.Duration, log *slog.Logger) *Machine {
	if notify == nil {
		notify = func() {}
	}
	if retry <= 0 {
		retry = DefaultRetryInterval
	}
	if log == nil {
		panic("dispatch: nil logger")
	}
	return &Machine{
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		notify:  notify,
		retry:   retry,
		log:     log,
	}
}

// Start launches the dispatcher goroutine. Calling Start more than once has no effect.
func (m *Machine) Start() {
	m.startOnce.Do(func() {
		m.started.Store(true)
		go m.run()
	})
}

// Close stops the dispatcher goroutine and waits for it to exit.
// It is safe to call Close more than once, and before Start.
func (m *Machine) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
	if m.started.Load() {
		<-m.stopped
	}
}

// MarkDirty records that a mutation happened. It never blocks.
func (m *Machine) MarkDirty() {
	for {
		old := word(m.word.Load())
		if old.state() == Pending {
			return
		}
		if m.word.CompareAndSwap(uint64(old), uint64(old.with(Pending))) {
			m.signal()
			return
		}
	}
}

// BeginQuery registers an executing query. A query that starts after a
// dispatch observes every mutation that led to it, so Dispatched falls back
// to Clean here; Pending is left for the dispatcher.
func (m *Machine) BeginQuery() {
	for {
		old := word(m.word.Load())
		next := old + countUnit
		if old.state() == Dispatched {
			next = next.with(Clean)
		}
		if m.word.CompareAndSwap(uint64(old), uint64(next)) {
			return
		}
	}
}

// EndQuery unregisters an executing query. When the last query finishes while
// the state is still dirty, the dispatcher is woken to re-evaluate.
//
// An unmatched EndQuery is normalised to Pending with the count untouched.
func (m *Machine) EndQuery() {
	for {
		old := word(m.word.Load())
		if old.executing() == 0 {
			if m.word.CompareAndSwap(uint64(old), uint64(old.with(Pending))) {
				m.anomalies.Add(1)
				m.log.Warn("dispatch: query count underflow", "state", old.state())
				m.signal()
				return
			}
			continue
		}
		next := old - countUnit
		if m.word.CompareAndSwap(uint64(old), uint64(next)) {
			if next.executing() == 0 && next.state() != Clean {
				m.signal()
			}
			return
		}
	}
}

// Load returns the current state and number of executing queries.
func (m *Machine) Load() (State, uint64) {
	w := word(m.word.Load())
	return w.state(), w.executing()
}

// Dispatches returns how many times the notify callback has been invoked.
func (m *Machine) Dispatches() uint64 { return m.dispatches.Load() }

// Anomalies returns how many impossible words have been normalised.
func (m *Machine) Anomalies() uint64 { return m.anomalies.Load() }

func (m *Machine) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Machine) run() {
	defer close(m.stopped)

	timer := time.NewTimer(m.retry)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-m.done:
			return
		default:
		}

		w := word(m.word.Load())
		switch w.state() {
		case Pending:
			if m.word.CompareAndSwap(uint64(w), uint64(w.with(Dispatched))) {
				m.dispatches.Add(1)
				m.fire()
			}

		case Clean:
			if !m.waitWake() {
				return
			}

		case Dispatched:
			if w.executing() > 0 {
				// The last query to finish wakes us.
				if !m.waitWake() {
					return
				}
				continue
			}
			timer.Reset(m.retry)
			select {
			case <-m.done:
				return
			case <-m.wake:
				timer.Stop()
			case <-timer.C:
				if m.word.CompareAndSwap(uint64(w), uint64(w.with(Pending))) {
					m.log.Debug("dispatch: no query after signal, resending", "retry", m.retry)
				}
			}

		default:
			if m.word.CompareAndSwap(uint64(w), uint64(w.with(Pending))) {
				m.anomalies.Add(1)
				m.log.Warn("dispatch: invalid state normalised", "word", uint64(w))
			}
		}
	}
}

func (m *Machine) waitWake() bool {
	select {
	case <-m.wake:
		return true
	case <-m.done:
		return false
	}
}

func (m *Machine) fire() {
	defer func() {
		if r := recover(); r != nil {
			m.log.Warn("dispatch: content changed callback panicked", "panic", r)
		}
	}()
	m.notify()
}
