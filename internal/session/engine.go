package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mverran/scrivano/internal/observe"
	"github.com/mverran/scrivano/internal/transcript"
	"github.com/mverran/scrivano/pkg/audio"
	"github.com/mverran/scrivano/pkg/provider/stt"
)

// defaultQueueSize bounds the frame queue between the capture pump and the
// recognition feeder. At 100 ms frames this buffers about three seconds of
// audio before capture blocks.
const defaultQueueSize = 32

// EngineConfig holds per-run tunables.
type EngineConfig struct {
	// Stream is passed to the recognition provider when the stream opens.
	Stream stt.StreamConfig

	// QueueSize bounds the capture-to-recognition frame queue. When the
	// recognizer falls behind, capture blocks once the queue is full —
	// frames are never dropped. 0 means defaultQueueSize.
	QueueSize int
}

// Engine drives one transcription session at a time: model loading, audio
// capture, recognition, and segment finalization. It is restartable — after
// Stop (or a failed Start) a new Start begins a fresh run with a fresh
// relative-time axis, appending to the same transcript store.
type Engine struct {
	cfg      EngineConfig
	factory  stt.Factory
	source   audio.Source
	store    *transcript.Store
	speakers *transcript.Registry
	outbox   *Outbox
	correct  CorrectFunc
	metrics  *observe.Metrics
	log      *slog.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
	ctrl   *Controller
	mapper *Mapper
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithCorrector installs a text-correction hook applied to every finalized
// result before it is committed to a segment.
func WithCorrector(fn CorrectFunc) EngineOption {
	return func(e *Engine) { e.correct = fn }
}

// WithMetrics installs the metrics instruments. Without it the engine
// records nothing.
func WithMetrics(m *observe.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates an idle engine. The factory is invoked on every Start
// so a failed model load can be retried; the source is opened per run and
// must support reopening after Close if restarts are wanted.
func NewEngine(factory stt.Factory, source audio.Source, store *transcript.Store, speakers *transcript.Registry, outbox *Outbox, cfg EngineConfig, opts ...EngineOption) *Engine {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	e := &Engine{
		cfg:      cfg,
		factory:  factory,
		source:   source,
		store:    store,
		speakers: speakers,
		outbox:   outbox,
		state:    StateIdle,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Controller returns the state machine of the current run, or nil when no
// run has started yet. The UI goroutine uses it to deliver speaker
// activations.
func (e *Engine) Controller() *Controller {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctrl
}

// StreamStart returns the wall-clock instant of the current run's first
// audio frame, or the zero time before the first frame arrives.
func (e *Engine) StreamStart() time.Time {
	e.mu.Lock()
	m := e.mapper
	e.mu.Unlock()
	if m == nil {
		return time.Time{}
	}
	return m.StreamStart()
}

// Start launches a session asynchronously. It returns immediately after
// transitioning to StateLoading; the model load, device open, and stream
// setup run in the background and report progress through StatusEvents.
// Starting while a session is loading or running fails with
// FailureInvalidOp.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateLoading || e.state == StateReady {
		e.mu.Unlock()
		return Failf(FailureInvalidOp, "session: already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.state = StateLoading
	e.cancel = cancel
	e.done = make(chan struct{})
	e.mapper = NewMapper()
	e.ctrl = NewController(e.mapper, e.store, e.speakers, e.outbox, e.correct, e.metrics)
	ctrl, mapper, done := e.ctrl, e.mapper, e.done
	e.mu.Unlock()

	e.outbox.Push(StatusEvent{State: StateLoading})
	if e.metrics != nil {
		e.metrics.ActiveSessions.Add(ctx, 1)
	}

	go e.run(runCtx, cancel, ctrl, mapper, done)
	return nil
}

// Stop ends the running session: the capture source is closed, queued
// frames are drained through the recognizer, the provider flushes its last
// utterance, and the open segment is closed. Stop blocks until the run has
// fully wound down. Stopping an engine that is not running is a no-op.
func (e *Engine) Stop() error {
	e.mu.Lock()
	switch e.state {
	case StateIdle, StateStopped, StateFailed:
		e.mu.Unlock()
		return nil
	case StateLoading:
		// The run goroutine has not reached the capture stage; cancelling
		// the context is the only way to interrupt it.
		cancel, done := e.cancel, e.done
		e.mu.Unlock()
		cancel()
		<-done
		return nil
	}
	done := e.done
	e.mu.Unlock()

	if err := e.source.Close(); err != nil {
		e.log.Warn("failed to close audio source", "error", err)
	}
	<-done
	return nil
}

// run is the session's root goroutine. It performs the blocking setup
// (model load, device open, stream open), then supervises the three pipeline
// stages until the source is exhausted or closed.
func (e *Engine) run(ctx context.Context, cancel context.CancelFunc, ctrl *Controller, mapper *Mapper, done chan struct{}) {
	defer close(done)
	defer cancel()
	defer func() {
		if e.metrics != nil {
			e.metrics.ActiveSessions.Add(context.Background(), -1)
		}
	}()

	provider, err := e.factory(ctx)
	if err != nil {
		e.fail(ctx, FailureModelLoad, err)
		return
	}
	closeProvider := func() {
		if c, ok := provider.(io.Closer); ok {
			if err := c.Close(); err != nil {
				e.log.Warn("failed to close recognition provider", "error", err)
			}
		}
	}

	frames, err := e.source.Open(ctx)
	if err != nil {
		closeProvider()
		e.fail(ctx, FailureCapture, err)
		return
	}
	// Not every source watches the context; closing it on cancellation
	// guarantees the frame channel terminates and the pumps wind down.
	go func() {
		<-ctx.Done()
		if err := e.source.Close(); err != nil {
			e.log.Warn("failed to close audio source", "error", err)
		}
	}()

	handle, err := provider.StartStream(ctx, e.cfg.Stream)
	if err != nil {
		if cerr := e.source.Close(); cerr != nil {
			e.log.Warn("failed to close audio source", "error", cerr)
		}
		closeProvider()
		e.fail(ctx, FailureModelLoad, err)
		return
	}

	e.mu.Lock()
	e.state = StateReady
	e.mu.Unlock()
	e.outbox.Push(StatusEvent{State: StateReady})
	e.log.Info("session ready",
		"sample_rate", e.cfg.Stream.SampleRate,
		"channels", e.cfg.Stream.Channels,
	)

	queue := make(chan audio.Frame, e.cfg.QueueSize)

	// Stage 1+2: capture pump and recognition feeder. They finish when
	// the source channel closes (Stop closed the source, or a file source
	// ran out) and the queue has drained.
	var feed errgroup.Group
	feed.Go(func() error {
		defer close(queue)
		for frame := range frames {
			if !mapper.Anchored() {
				now := time.Now()
				mapper.Anchor(now)
				ctrl.StartRun(now)
				e.log.Info("stream anchored", "start", now)
			}
			if e.metrics != nil {
				e.metrics.FramesCaptured.Add(ctx, 1)
			}
			select {
			case queue <- frame:
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	})
	feed.Go(func() error {
		for frame := range queue {
			if err := handle.SendAudio(frame.Data); err != nil {
				// One bad frame must not kill the run.
				e.log.Warn("recognizer rejected frame", "error", err)
				if e.metrics != nil {
					e.metrics.RecognitionErrors.Add(ctx, 1)
				}
			}
		}
		return nil
	})

	// Stage 3: event pump. Runs until the provider closes both channels,
	// which happens after handle.Close below flushes the last utterance.
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		partials, finals := handle.Partials(), handle.Finals()
		for partials != nil || finals != nil {
			select {
			case t, ok := <-partials:
				if !ok {
					partials = nil
					continue
				}
				if e.metrics != nil {
					e.metrics.PartialResults.Add(ctx, 1)
				}
				ctrl.HandlePartial(t.Text)
			case t, ok := <-finals:
				if !ok {
					finals = nil
					continue
				}
				if e.metrics != nil && mapper.Anchored() {
					// Recognition latency is the wall-clock lag between
					// the utterance ending in the audio and its final
					// arriving here. Clamped at zero for sources that
					// replay audio faster than real time.
					lag := time.Since(mapper.ToAbsolute(t.End()))
					if lag < 0 {
						lag = 0
					}
					e.metrics.RecognitionDuration.Record(ctx, lag.Seconds())
				}
				ctrl.HandleFinal(t.Text, t.End())
			}
		}
	}()

	if err := feed.Wait(); err != nil {
		e.log.Warn("audio pipeline error", "error", err)
	}
	if err := handle.Close(); err != nil {
		e.log.Warn("failed to close recognition stream", "error", err)
	}
	<-pumpDone

	ctrl.CloseRun(time.Now())
	closeProvider()

	e.mu.Lock()
	e.state = StateStopped
	e.mu.Unlock()
	e.outbox.Push(StatusEvent{State: StateStopped})
	e.log.Info("session stopped", "segments", e.store.Len())
}

// fail transitions the run to StateFailed, except when the failure is a
// plain context cancellation from Stop, which lands in StateStopped.
func (e *Engine) fail(ctx context.Context, kind FailureKind, err error) {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		e.mu.Lock()
		e.state = StateStopped
		e.mu.Unlock()
		e.outbox.Push(StatusEvent{State: StateStopped})
		return
	}

	failure := NewFailure(kind, err)
	e.mu.Lock()
	e.state = StateFailed
	e.mu.Unlock()
	e.outbox.Push(StatusEvent{State: StateFailed, Err: failure})
	e.log.Error("session failed", "kind", string(kind), "error", err)
}
