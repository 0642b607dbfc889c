// Command dropgate detects the end of voicemail greetings in WAV recordings
// and reports the compliant message-drop timestamp for each file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"golang.org/x/sync/errgroup"

	"github.com/clearpath-voice/dropgate/internal/config"
	"github.com/clearpath-voice/dropgate/internal/detect"
	"github.com/clearpath-voice/dropgate/internal/observe"
	"github.com/clearpath-voice/dropgate/internal/resilience"
	"github.com/clearpath-voice/dropgate/internal/store"
	"github.com/clearpath-voice/dropgate/internal/transcript"
	"github.com/clearpath-voice/dropgate/pkg/provider/phrase"
	"github.com/clearpath-voice/dropgate/pkg/provider/phrase/keyword"
	phrasellm "github.com/clearpath-voice/dropgate/pkg/provider/phrase/llm"
	"github.com/clearpath-voice/dropgate/pkg/provider/stt"
	"github.com/clearpath-voice/dropgate/pkg/provider/stt/deepgram"
	"github.com/clearpath-voice/dropgate/pkg/provider/stt/whisper"
	"github.com/clearpath-voice/dropgate/pkg/provider/vad"
	"github.com/clearpath-voice/dropgate/pkg/provider/vad/silero"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	input := flag.String("input", "", "WAV file or directory of WAV files to process")
	output := flag.String("output", "", "path of the JSON results file (default from config, results.json)")
	concurrency := flag.Int("concurrency", 4, "number of files processed in parallel")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "dropgate: -input is required (a .wav file or a directory)")
		flag.Usage()
		return 2
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dropgate: %v\n", err)
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "dropgate"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Inputs ────────────────────────────────────────────────────────────────
	files, err := collectFiles(*input)
	if err != nil {
		slog.Error("failed to collect input files", "err", err)
		return 1
	}
	if len(files) == 0 {
		slog.Error("no .wav files found", "input", *input)
		return 1
	}

	// ── Capabilities ──────────────────────────────────────────────────────────
	caps := buildCapabilities(ctx, cfg)

	slog.Info("dropgate starting",
		"config", *configPath,
		"files", len(files),
		"concurrency", *concurrency,
		"vad", caps.classifier != nil,
		"stt", caps.transcriber != nil,
		"phrase", cfg.Providers.Phrase.Name,
	)

	// ── Stores ────────────────────────────────────────────────────────────────
	outPath := *output
	if outPath == "" {
		outPath = cfg.Store.JSONPath
	}
	if outPath == "" {
		outPath = "results.json"
	}
	results := store.NewJSONStore(outPath)
	stores := []store.Store{results}

	if dsn := cfg.Store.PostgresDSN; dsn != "" {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			slog.Warn("audit store unavailable, continuing without it", "err", err)
		} else {
			defer pool.Close()
			pg := store.NewPostgresStore(pool)
			if err := pg.Migrate(ctx); err != nil {
				slog.Warn("audit store migration failed, continuing without it", "err", err)
			} else {
				stores = append(stores, pg)
				slog.Info("audit store connected")
			}
		}
	}

	// ── Process ───────────────────────────────────────────────────────────────
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*concurrency)
	for _, file := range files {
		g.Go(func() error {
			rec := processFile(gctx, cfg, caps, metrics, file)
			mu.Lock()
			defer mu.Unlock()
			for _, st := range stores {
				if err := st.Save(gctx, rec); err != nil {
					slog.Warn("failed to persist record", "file", file, "err", err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("processing error", "err", err)
		return 1
	}
	if err := ctx.Err(); err != nil {
		slog.Warn("interrupted before all files were processed")
	}

	if err := results.Flush(); err != nil {
		slog.Error("failed to write results", "err", err)
		return 1
	}
	printSummary(files, results)
	slog.Info("results written", "path", outPath, "files", results.Len())
	return 0
}

// loadConfig loads the YAML config at path. A missing file at the default
// location is not an error; the production defaults apply.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) && path == "config.yaml" {
		return config.Default(), nil
	}
	return nil, err
}

// collectFiles resolves the -input flag into a sorted list of WAV files.
func collectFiles(input string) ([]string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{input}, nil
	}
	files, err := filepath.Glob(filepath.Join(input, "*.wav"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// capabilities holds the optional external collaborators shared across files.
type capabilities struct {
	classifier  vad.Classifier
	transcriber stt.Transcriber
	analyzer    phrase.Analyzer
	corrector   *transcript.Corrector
}

// buildCapabilities instantiates the configured providers. Every one is
// optional: a provider that cannot be built is logged and skipped, and the
// pipeline runs on signal processing alone.
func buildCapabilities(ctx context.Context, cfg *config.Config) capabilities {
	caps := capabilities{analyzer: keyword.New()}

	if entry := cfg.Providers.VAD; entry.Name == "silero" {
		c, err := silero.New(ctx, entry.BaseURL, silero.WithSampleRate(cfg.Detection.SampleRate))
		if err != nil {
			slog.Warn("vad provider unavailable, using the energy gate", "name", entry.Name, "err", err)
		} else {
			caps.classifier = c
			slog.Info("provider created", "kind", "vad", "name", entry.Name)
		}
	}

	switch entry := cfg.Providers.STT; entry.Name {
	case "":
	case "deepgram":
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, deepgram.WithLanguage(lang))
		}
		tr, err := deepgram.New(entry.APIKey, opts...)
		if err != nil {
			slog.Warn("stt provider unavailable, continuing without transcription", "name", entry.Name, "err", err)
		} else {
			caps.transcriber = tr
		}
	case "whisper":
		var opts []whisper.Option
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		tr, err := whisper.New(entry.BaseURL, opts...)
		if err != nil {
			slog.Warn("stt provider unavailable, continuing without transcription", "name", entry.Name, "err", err)
		} else {
			caps.transcriber = tr
		}
	default:
		slog.Warn("unknown stt provider, continuing without transcription", "name", entry.Name)
	}
	if caps.transcriber != nil {
		caps.corrector = transcript.NewCorrector(transcript.VocabularyFromPhrases(keyword.DefaultPhrases))
		slog.Info("provider created", "kind", "stt", "name", cfg.Providers.STT.Name)
	}

	switch entry := cfg.Providers.Phrase; entry.Name {
	case "", "keyword":
	case "gemini", "openai", "ollama":
		var opts []anyllmlib.Option
		if entry.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
		}
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		primary, err := phrasellm.New(entry.Name, entry.Model, opts...)
		if err != nil {
			slog.Warn("phrase provider unavailable, using the keyword fallback", "name", entry.Name, "err", err)
		} else {
			caps.analyzer = resilience.NewPhraseChain(primary, keyword.New(), resilience.CircuitBreakerConfig{})
			slog.Info("provider created", "kind", "phrase", "name", entry.Name, "model", entry.Model)
		}
	default:
		slog.Warn("unknown phrase provider, using the keyword fallback", "name", entry.Name)
	}

	return caps
}

// processFile runs one file through the pipeline and returns its record. A
// failure to read or decode the file is recorded, never fatal for the batch.
func processFile(ctx context.Context, cfg *config.Config, caps capabilities, metrics *observe.Metrics, file string) store.Record {
	src, err := detect.OpenWAV(file, cfg.Detection.SampleRate, cfg.Detection.ChunkDuration())
	if err != nil {
		slog.Error("failed to open audio", "file", file, "err", err)
		return store.Record{File: file, Err: err.Error()}
	}

	opts := []detect.ControllerOption{detect.WithMetrics(metrics)}
	if caps.classifier != nil {
		opts = append(opts, detect.WithVADClassifier(caps.classifier))
	}
	if caps.analyzer != nil {
		opts = append(opts, detect.WithPhraseAnalyzer(caps.analyzer))
	}
	if caps.transcriber != nil {
		sess, err := caps.transcriber.StartSession(ctx, stt.StreamConfig{
			SampleRate: cfg.Detection.SampleRate,
			Channels:   1,
		})
		if err != nil {
			slog.Warn("transcription session failed, continuing without it", "file", file, "err", err)
			metrics.RecordCapabilityError(ctx, "stt")
		} else {
			defer sess.Close()
			opts = append(opts, detect.WithTranscription(sess))
			if caps.corrector != nil {
				opts = append(opts, detect.WithTranscriptCorrector(caps.corrector))
			}
		}
	}

	dc := detect.NewDecisionController(cfg, opts...)
	res, err := dc.Run(ctx, src)
	if err != nil {
		slog.Error("processing aborted", "file", file, "err", err)
		return store.Record{File: file, Err: err.Error()}
	}
	return store.Record{File: file, Result: res}
}

// printSummary writes the per-file result table to stdout.
func printSummary(files []string, results *store.JSONStore) {
	fmt.Printf("\n%-40s %10s %-18s %6s %-6s\n", "FILE", "DROP (s)", "REASON", "CONF", "STATUS")
	for _, file := range files {
		name := filepath.Base(file)
		res, ok := results.ResultFor(file)
		if !ok {
			fmt.Printf("%-40s %10s %-18s %6s %-6s\n", name, "-", "error", "-", "-")
			continue
		}
		fmt.Printf("%-40s %10.2f %-18s %6.2f %-6s\n",
			name, res.DropTimestamp, res.Reason, res.Confidence, res.ComplianceStatus)
	}
	fmt.Println()
}

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

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
