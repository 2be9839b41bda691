// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pacing

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/bureau-foundation/trickle/lib/clock"
)

// Defaults applied by [New] to zero-valued options.
const (
	DefaultBaseDelay = 20 * time.Millisecond
	DefaultJitter    = 0.02
)

var (
	// ErrFinished is returned by Feed and Finish after Finish.
	ErrFinished = errors.New("pacing: turn already finished")

	// ErrAborted is returned by every operation after Abort.
	ErrAborted = errors.New("pacing: turn aborted")
)

// Event is one paced reveal: show Chunk after waiting Delay.
type Event struct {
	Chunk string
	Delay time.Duration
}

// Options configures a [Scheduler].
type Options struct {
	// BaseDelay is the per-chunk delay before scaling. Defaults to
	// DefaultBaseDelay.
	BaseDelay time.Duration

	// Jitter is the half-width of the uniform random factor applied to
	// each delay: 0.02 means [0.98, 1.02]. Zero means DefaultJitter;
	// use a negative value for no jitter.
	Jitter float64

	// Rand supplies jitter. Defaults to a randomly seeded PCG source.
	// The scheduler serializes access to it.
	Rand *rand.Rand

	// Clock is used by Run to wait out each delay. Defaults to
	// clock.Real().
	Clock clock.Clock
}

// Scheduler paces one assistant turn. Feed and Finish may be called
// from a different goroutine than Next and Run; all methods are safe
// for concurrent use.
type Scheduler struct {
	baseDelay time.Duration
	jitter    float64
	random    *rand.Rand
	clock     clock.Clock

	mu       sync.Mutex
	phase    Phase
	text     []rune
	revealed int

	// changed is closed and replaced whenever phase or text changes,
	// waking a blocked Next.
	changed chan struct{}

	// aborted is closed by Abort.
	aborted chan struct{}

	// dispatch is held by Run while it delivers an event.
	dispatch sync.Mutex
}

// New returns an idle scheduler.
func New(options Options) *Scheduler {
	if options.BaseDelay <= 0 {
		options.BaseDelay = DefaultBaseDelay
	}
	switch {
	case options.Jitter == 0:
		options.Jitter = DefaultJitter
	case options.Jitter < 0:
		options.Jitter = 0
	}
	if options.Rand == nil {
		options.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	return &Scheduler{
		baseDelay: options.BaseDelay,
		jitter:    options.Jitter,
		random:    options.Rand,
		clock:     options.Clock,
		changed:   make(chan struct{}),
		aborted:   make(chan struct{}),
	}
}

// Feed appends delta to the backlog. An empty delta is a no-op.
func (scheduler *Scheduler) Feed(delta string) error {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	switch scheduler.phase {
	case PhaseAborted:
		return ErrAborted
	case PhaseDraining, PhaseComplete:
		return ErrFinished
	}
	if delta == "" {
		return nil
	}
	scheduler.text = append(scheduler.text, []rune(delta)...)
	scheduler.phase = PhaseStreaming
	scheduler.notifyLocked()
	return nil
}

// Finish marks the end of the stream. The backlog keeps draining;
// the sequence ends once it is empty.
func (scheduler *Scheduler) Finish() error {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	switch scheduler.phase {
	case PhaseAborted:
		return ErrAborted
	case PhaseDraining, PhaseComplete:
		return ErrFinished
	}
	scheduler.phase = PhaseDraining
	if scheduler.revealed == len(scheduler.text) {
		scheduler.phase = PhaseComplete
	}
	scheduler.notifyLocked()
	return nil
}

// Abort discards all state. No event is emitted afterwards, including
// one Run is currently waiting out. If Run is inside onReveal, Abort
// waits for it to return, so onReveal must not call Abort. Abort is
// idempotent.
func (scheduler *Scheduler) Abort() {
	scheduler.mu.Lock()
	if scheduler.phase != PhaseAborted {
		scheduler.phase = PhaseAborted
		scheduler.text = nil
		scheduler.revealed = 0
		close(scheduler.aborted)
		scheduler.notifyLocked()
	}
	scheduler.mu.Unlock()

	scheduler.dispatch.Lock()
	//nolint:staticcheck // empty critical section waits out delivery
	scheduler.dispatch.Unlock()
}

// Phase returns the current lifecycle phase.
func (scheduler *Scheduler) Phase() Phase {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	return scheduler.phase
}

// State returns a snapshot of the fed text and revealed length.
func (scheduler *Scheduler) State() RevealState {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	return RevealState{Text: string(scheduler.text), Revealed: scheduler.revealed}
}

// Next returns the next reveal event, blocking until one can be
// decided. It returns io.EOF once the turn is complete, ErrAborted
// after Abort, and ctx.Err() if ctx ends first.
//
// Next does not wait out the event's delay; see Run.
func (scheduler *Scheduler) Next(ctx context.Context) (Event, error) {
	for {
		scheduler.mu.Lock()
		event, ok, err := scheduler.stepLocked()
		changed := scheduler.changed
		scheduler.mu.Unlock()

		if ok || err != nil {
			return event, err
		}

		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-changed:
		}
	}
}

// stepLocked emits the next event if the backlog allows one.
func (scheduler *Scheduler) stepLocked() (Event, bool, error) {
	switch scheduler.phase {
	case PhaseAborted:
		return Event{}, false, ErrAborted
	case PhaseComplete:
		return Event{}, false, io.EOF
	}

	final := scheduler.phase == PhaseDraining
	size := nextChunk(scheduler.text, scheduler.revealed, final)
	if size == 0 {
		return Event{}, false, nil
	}

	start := scheduler.revealed
	event := Event{
		Chunk: string(scheduler.text[start : start+size]),
		Delay: delayFor(scheduler.text, start, scheduler.baseDelay, scheduler.jitter, scheduler.random),
	}
	scheduler.revealed += size
	if final && scheduler.revealed == len(scheduler.text) {
		scheduler.phase = PhaseComplete
		scheduler.notifyLocked()
	}
	return event, true, nil
}

// Run drains the scheduler, waiting out each event's delay on the clock
// before calling onReveal. It returns nil when the turn completes,
// ErrAborted after Abort, or ctx.Err().
func (scheduler *Scheduler) Run(ctx context.Context, onReveal func(Event)) error {
	for {
		event, err := scheduler.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-scheduler.aborted:
			return ErrAborted
		case <-scheduler.clock.After(event.Delay):
		}
		if !scheduler.deliver(event, onReveal) {
			return ErrAborted
		}
	}
}

// deliver calls onReveal unless the turn has been aborted. The check
// and the call happen under dispatch, which Abort waits on.
func (scheduler *Scheduler) deliver(event Event, onReveal func(Event)) bool {
	scheduler.dispatch.Lock()
	defer scheduler.dispatch.Unlock()
	if scheduler.Phase() == PhaseAborted {
		return false
	}
	onReveal(event)
	return true
}

func (scheduler *Scheduler) notifyLocked() {
	close(scheduler.changed)
	scheduler.changed = make(chan struct{})
}
