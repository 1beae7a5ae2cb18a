// Command scrivano runs the live transcription session engine with an
// interactive terminal front end.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mverran/scrivano/internal/app"
	"github.com/mverran/scrivano/internal/config"
	"github.com/mverran/scrivano/internal/export"
	"github.com/mverran/scrivano/internal/feed"
	"github.com/mverran/scrivano/internal/health"
	"github.com/mverran/scrivano/internal/observe"
	"github.com/mverran/scrivano/internal/session"
	"github.com/mverran/scrivano/internal/transcript"
	"github.com/mverran/scrivano/internal/vocab"
	"github.com/mverran/scrivano/pkg/audio"
	"github.com/mverran/scrivano/pkg/audio/pcmfile"
	"github.com/mverran/scrivano/pkg/audio/portaudio"
	"github.com/mverran/scrivano/pkg/provider/stt"
	"github.com/mverran/scrivano/pkg/provider/stt/whisper"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "scrivano: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "scrivano: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("scrivano starting",
		"config", *configPath,
		"model", cfg.Model.Path,
		"audio_source", cfg.Audio.Source,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	telemetry, err := observe.Setup(ctx)
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Export archiver (optional) ────────────────────────────────────────────
	var (
		archiver *export.Archiver
		appOpts  []app.Option
		checkers = []health.Checker{health.ModelFile(cfg.Model.Path)}
	)
	if cfg.Export.ArchiveDSN != "" {
		ar, pool, err := export.Connect(ctx, cfg.Export.ArchiveDSN)
		if err != nil {
			slog.Error("failed to connect export archive", "err", err)
			return 1
		}
		defer pool.Close()
		archiver = ar
		appOpts = append(appOpts, app.WithArchiver(archiver))
		checkers = append(checkers, health.Archive(pool))
		slog.Info("export archive connected")
	}

	// ── Metrics / health endpoint ─────────────────────────────────────────────
	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", telemetry.MetricsHandler())
		health.New(checkers...).Register(mux)
		srv := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server error", "err", err)
			}
		}()
		defer srv.Close()
		slog.Info("metrics endpoint listening", "addr", cfg.Server.MetricsAddr)
	}

	// ── Live caption feed (optional) ──────────────────────────────────────────
	var captionFeed *feed.Server
	if cfg.Server.FeedAddr != "" {
		captionFeed = feed.NewServer(logger)
		defer captionFeed.Close()
		mux := http.NewServeMux()
		mux.Handle("/feed", captionFeed)
		srv := &http.Server{Addr: cfg.Server.FeedAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("caption feed server error", "err", err)
			}
		}()
		defer srv.Close()
		appOpts = append(appOpts, app.WithFeed(captionFeed))
		slog.Info("caption feed listening", "addr", cfg.Server.FeedAddr)
	}

	// ── Audio source ──────────────────────────────────────────────────────────
	source, err := buildSource(cfg)
	if err != nil {
		slog.Error("failed to create audio source", "err", err)
		return 1
	}

	// ── Recognition factory ───────────────────────────────────────────────────
	factory := func(ctx context.Context) (stt.Provider, error) {
		return whisper.New(cfg.Model.Path,
			whisper.WithLanguage(cfg.Model.Language),
			whisper.WithSampleRate(cfg.Audio.SampleRate),
		)
	}

	// ── Session engine ────────────────────────────────────────────────────────
	store := transcript.NewStore()
	speakers := transcript.NewRegistry()
	outbox := session.NewOutbox()

	engineOpts := []session.EngineOption{session.WithMetrics(metrics)}
	if len(cfg.Vocabulary) > 0 {
		corrector := vocab.New(cfg.Vocabulary)
		engineOpts = append(engineOpts, session.WithCorrector(corrector.Apply))
		slog.Info("vocabulary correction enabled", "terms", len(cfg.Vocabulary))
	}
	engine := session.NewEngine(factory, source, store, speakers, outbox,
		session.EngineConfig{
			Stream: stt.StreamConfig{
				SampleRate: cfg.Audio.SampleRate,
				Channels:   cfg.Audio.Channels,
				Language:   cfg.Model.Language,
			},
			QueueSize: cfg.Session.QueueSize,
		},
		engineOpts...,
	)

	appOpts = append(appOpts, app.WithMetrics(metrics), app.WithLogger(logger))
	application := app.New(engine, store, speakers, outbox, appOpts...)

	// ── Interactive loop ──────────────────────────────────────────────────────
	fmt.Println("scrivano ready — type 'help' for commands")
	code := interact(ctx, application, cfg)

	if err := application.Stop(); err != nil {
		slog.Warn("stop error", "err", err)
	}
	application.Poll()
	slog.Info("goodbye")
	return code
}

// interact runs the single UI goroutine: it polls session events on the
// configured interval and executes user commands from stdin. All App calls
// happen here.
func interact(ctx context.Context, a *app.App, cfg *config.Config) int {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	ticker := time.NewTicker(time.Duration(cfg.Session.PollMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return 0
		case <-ticker.C:
			for _, e := range a.Poll() {
				printEvent(e)
			}
		case line, ok := <-lines:
			if !ok {
				return 0
			}
			if quit := command(ctx, a, cfg, strings.Fields(line)); quit {
				return 0
			}
		}
	}
}

// command executes one user command. Returns true to exit.
func command(ctx context.Context, a *app.App, cfg *config.Config, args []string) bool {
	if len(args) == 0 {
		return false
	}
	switch args[0] {
	case "help":
		fmt.Print(helpText)
	case "models":
		models, err := config.ListModels(cfg.Model.Dir)
		if err != nil {
			fmt.Println("error:", err)
			break
		}
		if len(models) == 0 {
			fmt.Println("no models found in", cfg.Model.Dir)
			break
		}
		for _, m := range models {
			fmt.Println(" ", m)
		}
	case "speakers":
		for _, sp := range a.Speakers() {
			fmt.Printf("  %s  %s  %s\n", sp.ID, sp.Name, sp.Color)
		}
	case "add":
		if len(args) < 2 {
			fmt.Println("usage: add <name>")
			break
		}
		sp, err := a.AddSpeaker(strings.Join(args[1:], " "), "")
		if err != nil {
			fmt.Println("error:", err)
			break
		}
		fmt.Printf("added %s (%s)\n", sp.Name, sp.ID)
	case "rename":
		if len(args) < 3 {
			fmt.Println("usage: rename <id> <name>")
			break
		}
		if err := a.RenameSpeaker(args[1], strings.Join(args[2:], " ")); err != nil {
			fmt.Println("error:", err)
		}
	case "color":
		if len(args) != 3 {
			fmt.Println("usage: color <id> <hex>")
			break
		}
		if err := a.SetSpeakerColor(args[1], args[2]); err != nil {
			fmt.Println("error:", err)
		}
	case "activate":
		if len(args) != 2 {
			fmt.Println("usage: activate <id>")
			break
		}
		if err := a.ActivateSpeaker(args[1]); err != nil {
			fmt.Println("error:", err)
		}
	case "start":
		if err := a.Start(ctx); err != nil {
			fmt.Println("error:", err)
		}
	case "stop":
		if err := a.Stop(); err != nil {
			fmt.Println("error:", err)
		}
	case "show":
		fmt.Println(a.Document())
	case "edit":
		if len(args) < 3 {
			fmt.Println("usage: edit <pos> <delete-count> [text]")
			break
		}
		pos, err1 := strconv.Atoi(args[1])
		del, err2 := strconv.Atoi(args[2])
		if err1 != nil || err2 != nil {
			fmt.Println("usage: edit <pos> <delete-count> [text]")
			break
		}
		if err := a.ApplyEdit(pos, del, strings.Join(args[3:], " ")); err != nil {
			fmt.Println("error:", err)
		}
	case "note":
		if len(args) < 3 {
			fmt.Println("usage: note <pos> <text>")
			break
		}
		pos, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Println("usage: note <pos> <text>")
			break
		}
		n, err := a.CreateNoteAt(pos, strings.Join(args[2:], " "))
		if err != nil {
			fmt.Println("error:", err)
			break
		}
		fmt.Printf("note %s on [%s] %s\n", n.ID, transcript.FormatRange(n.Start, n.End), n.SpeakerName)
	case "notes":
		for _, n := range a.Notes() {
			fmt.Printf("  %s [%s] %s: %s\n", n.ID, transcript.FormatRange(n.Start, n.End), n.SpeakerName, n.Text)
		}
	case "export":
		if len(args) != 2 {
			fmt.Println("usage: export <path>")
			break
		}
		if err := a.Export(ctx, args[1]); err != nil {
			fmt.Println("error:", err)
			break
		}
		fmt.Println("exported to", args[1])
	case "quit", "exit":
		return true
	default:
		fmt.Printf("unknown command %q — type 'help'\n", args[0])
	}
	return false
}

// printEvent renders one session event on the terminal.
func printEvent(e session.Event) {
	switch ev := e.(type) {
	case session.PartialEvent:
		fmt.Printf("\r… %s\n", ev.Text)
	case session.SegmentEvent:
		seg := ev.Segment
		fmt.Printf("[%s] %s\n", transcript.FormatRange(seg.Start, seg.End), seg.Text)
	case session.StatusEvent:
		if ev.Err != nil {
			fmt.Printf("session %s: %v\n", ev.State, ev.Err)
		} else {
			fmt.Printf("session %s\n", ev.State)
		}
	}
}

// buildSource creates the configured audio capture source.
func buildSource(cfg *config.Config) (audio.Source, error) {
	frame := time.Duration(cfg.Audio.FrameMs) * time.Millisecond
	switch cfg.Audio.Source {
	case config.SourceFile:
		return pcmfile.New(cfg.Audio.File, cfg.Audio.SampleRate, cfg.Audio.Channels,
			pcmfile.WithFrameDuration(frame),
			pcmfile.WithRealtime(),
		)
	case config.SourceMicrophone:
		return portaudio.New(cfg.Audio.SampleRate, cfg.Audio.Channels,
			portaudio.WithFrameDuration(frame),
		)
	default:
		return nil, fmt.Errorf("unsupported audio source %q", cfg.Audio.Source)
	}
}

const helpText = `commands:
  models                     list model files in the configured model dir
  speakers                   list registered speakers
  add <name>                 register a speaker
  rename <id> <name>         rename a speaker (rewrites transcript prefixes)
  color <id> <hex>           change a speaker's color
  activate <id>              make a speaker the attribution target
  start                      start the transcription session
  stop                       stop the session (flushes the last utterance)
  show                       print the editable transcript document
  edit <pos> <del> [text]    edit the document at a byte offset
  note <pos> <text>          attach a note to the line at a byte offset
  notes                      list notes
  export <path>              export the session document as JSON
  quit                       exit
`

// newLogger builds the process logger at the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
