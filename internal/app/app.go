// Package app exposes the operations a user interface performs against a
// transcription session: speaker management, session start/stop, transcript
// editing, notes, and export. It owns the single consumer side of the
// session outbox; Poll drains pending events, folds closed segments into
// the editable document, and forwards captions to the live feed.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/mverran/scrivano/internal/export"
	"github.com/mverran/scrivano/internal/feed"
	"github.com/mverran/scrivano/internal/note"
	"github.com/mverran/scrivano/internal/observe"
	"github.com/mverran/scrivano/internal/session"
	"github.com/mverran/scrivano/internal/textmodel"
	"github.com/mverran/scrivano/internal/transcript"
)

// Archiver persists export documents beyond the local file. Satisfied by
// [export.Archiver].
type Archiver interface {
	Archive(ctx context.Context, doc export.Document) (string, error)
}

// App is the application facade. Methods are meant to be called from a
// single UI goroutine; the engine's background goroutines never call into
// App.
type App struct {
	log      *slog.Logger
	engine   *session.Engine
	store    *transcript.Store
	speakers *transcript.Registry
	outbox   *session.Outbox
	text     *textmodel.Model
	notes    *note.Store

	feed     *feed.Server
	archiver Archiver
	metrics  *observe.Metrics
}

// Option customises an App.
type Option func(*App)

// WithFeed connects the live caption broadcaster.
func WithFeed(f *feed.Server) Option {
	return func(a *App) { a.feed = f }
}

// WithArchiver enables PostgreSQL archiving of exports.
func WithArchiver(ar Archiver) Option {
	return func(a *App) { a.archiver = ar }
}

// WithMetrics installs metric instruments.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.log = l }
}

// New assembles the facade around an engine and its shared state.
func New(engine *session.Engine, store *transcript.Store, speakers *transcript.Registry, outbox *session.Outbox, opts ...Option) *App {
	a := &App{
		log:      slog.Default(),
		engine:   engine,
		store:    store,
		speakers: speakers,
		outbox:   outbox,
		text:     textmodel.New(),
		notes:    note.NewStore(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// State returns the engine lifecycle state.
func (a *App) State() session.State { return a.engine.State() }

// Document returns the rendered editable transcript.
func (a *App) Document() string { return a.text.Render() }

// Lines returns the transcript lines in document order.
func (a *App) Lines() []textmodel.Line { return a.text.Lines() }

// Speakers returns all registered speakers in registration order.
func (a *App) Speakers() []transcript.Speaker { return a.speakers.List() }

// Notes returns all notes in creation order.
func (a *App) Notes() []note.Note { return a.notes.List() }

// AddSpeaker registers a speaker. An empty color picks the next palette
// color.
func (a *App) AddSpeaker(name, color string) (transcript.Speaker, error) {
	sp, err := a.speakers.Add(name, color)
	if err != nil {
		return transcript.Speaker{}, session.NewFailure(session.FailureInvalidOp, err)
	}
	a.log.Info("speaker added", "id", sp.ID, "name", sp.Name, "color", sp.Color)
	return sp, nil
}

// RenameSpeaker changes a speaker's display name everywhere it is shown
// going forward: the registry, existing transcript prefixes, and future
// segments. Existing notes keep their creation-time snapshot.
func (a *App) RenameSpeaker(id, name string) error {
	if err := a.speakers.Rename(id, name); err != nil {
		return session.NewFailure(session.FailureInvalidOp, err)
	}
	a.text.RenameSpeaker(id, name)
	return nil
}

// SetSpeakerColor changes a speaker's display color. Existing notes keep
// their snapshot.
func (a *App) SetSpeakerColor(id, color string) error {
	if err := a.speakers.SetColor(id, color); err != nil {
		return session.NewFailure(session.FailureInvalidOp, err)
	}
	return nil
}

// ActivateSpeaker makes the speaker the attribution target. During a run
// this closes or discards the currently open segment per the finalization
// rules.
func (a *App) ActivateSpeaker(id string) error {
	if err := a.speakers.Activate(id); err != nil {
		return session.NewFailure(session.FailureInvalidOp, err)
	}
	if ctrl := a.engine.Controller(); ctrl != nil {
		ctrl.SetActiveSpeaker(id, time.Now())
	}
	return nil
}

// Start launches the session. At least one speaker must be registered;
// when none is active, the first registered speaker is activated so early
// speech is not silently unattributed.
func (a *App) Start(ctx context.Context) error {
	list := a.speakers.List()
	if len(list) == 0 {
		return session.Failf(session.FailureInvalidOp, "no speakers registered")
	}
	if _, ok := a.speakers.ActiveID(); !ok {
		if err := a.speakers.Activate(list[0].ID); err != nil {
			return session.NewFailure(session.FailureInvalidOp, err)
		}
		a.log.Info("no active speaker; defaulting to first registered", "name", list[0].Name)
	}
	return a.engine.Start(ctx)
}

// Stop ends the session, draining queued audio and flushing the last
// utterance before returning.
func (a *App) Stop() error { return a.engine.Stop() }

// ApplyEdit applies a byte-offset edit to the transcript document. Edits
// that would touch a protected prefix fail with FailureInvalidOp and leave
// the document untouched.
func (a *App) ApplyEdit(pos, delCount int, insert string) error {
	if a.text.ApplyEdit(pos, delCount, insert) {
		return nil
	}
	if a.metrics != nil {
		a.metrics.RejectedEdits.Add(context.Background(), 1)
	}
	return session.Failf(session.FailureInvalidOp, "edit at offset %d touches protected content", pos)
}

// CreateNoteAt creates a note bound to the transcript line containing the
// given document offset. The note snapshots the segment's time range and
// the speaker's current name and color; later renames never rewrite it.
func (a *App) CreateNoteAt(pos int, text string) (note.Note, error) {
	line, ok := a.text.LocateLine(pos)
	if !ok {
		return note.Note{}, session.Failf(session.FailureInvalidOp, "offset %d is not inside any transcript line", pos)
	}

	name, color := line.SpeakerName, ""
	if sp, found := a.speakers.Get(line.SpeakerID); found {
		name, color = sp.Name, sp.Color
	}
	n := a.notes.Create(line.SegmentID, line.Start, line.End, name, color, text)
	if a.metrics != nil {
		a.metrics.NotesCreated.Add(context.Background(), 1)
	}
	return n, nil
}

// EditNote replaces a note's text. The snapshot fields stay frozen.
func (a *App) EditNote(id, text string) error {
	if err := a.notes.Edit(id, text); err != nil {
		return session.NewFailure(session.FailureInvalidOp, err)
	}
	return nil
}

// Export writes the session document to path atomically and, when an
// archiver is configured, also stores it in PostgreSQL. The file write and
// the archive either both reflect the same document or the error says
// which stage failed.
func (a *App) Export(ctx context.Context, path string) error {
	doc := export.Build(a.speakers.List(), a.text.Lines(), a.notes.List(), time.Now())

	if err := export.Write(doc, path); err != nil {
		if a.metrics != nil {
			a.metrics.RecordExport(ctx, "error")
		}
		return session.NewFailure(session.FailureExport, err)
	}
	if a.archiver != nil {
		id, err := a.archiver.Archive(ctx, doc)
		if err != nil {
			if a.metrics != nil {
				a.metrics.RecordExport(ctx, "error")
			}
			return session.NewFailure(session.FailureExport, err)
		}
		a.log.Info("export archived", "id", id)
	}

	if a.metrics != nil {
		a.metrics.RecordExport(ctx, "ok")
	}
	a.log.Info("session exported", "path", path,
		"segments", len(doc.Transcript), "notes", len(doc.Notes))
	return nil
}

// Poll drains pending session events, folds them into the document, and
// returns them for display. Closed segments become new document lines and
// are broadcast on the feed; partials are broadcast as tentative captions.
func (a *App) Poll() []session.Event {
	events := a.outbox.Drain()
	for _, e := range events {
		switch ev := e.(type) {
		case session.SegmentEvent:
			a.appendSegment(ev.Segment)
		case session.PartialEvent:
			a.publish(feed.Caption{Kind: "partial", Text: ev.Text})
		case session.StatusEvent:
			if ev.Err != nil {
				a.log.Error("session status", "state", ev.State.String(), "error", ev.Err)
			} else {
				a.log.Info("session status", "state", ev.State.String())
			}
		}
	}
	return events
}

func (a *App) appendSegment(seg transcript.Segment) {
	name := seg.SpeakerID
	if sp, ok := a.speakers.Get(seg.SpeakerID); ok {
		name = sp.Name
	}
	a.text.AppendLine(seg, name)
	a.publish(feed.Caption{
		Kind:      "segment",
		Timestamp: transcript.FormatRange(seg.Start, seg.End),
		Speaker:   name,
		Text:      seg.Text,
	})
}

func (a *App) publish(c feed.Caption) {
	if a.feed == nil {
		return
	}
	if err := a.feed.Publish(c); err != nil {
		a.log.Warn("caption publish failed", "error", err)
	}
}
