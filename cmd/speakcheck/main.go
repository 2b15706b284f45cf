// Command speakcheck is the main entry point for the SpeakCheck Discord bot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"speakcheck/internal/bot"
	"speakcheck/internal/catalog"
	"speakcheck/internal/config"
	"speakcheck/internal/correction"
	"speakcheck/internal/health"
	"speakcheck/internal/observe"
	"speakcheck/internal/practice"
	"speakcheck/internal/resilience"
	"speakcheck/pkg/provider/llm"
	"speakcheck/pkg/provider/llm/anyllm"
	oallm "speakcheck/pkg/provider/llm/openai"
	"speakcheck/pkg/provider/stt"
	"speakcheck/pkg/provider/stt/openaistt"
	"speakcheck/pkg/provider/stt/whisper"
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
			fmt.Fprintf(os.Stderr, "speakcheck: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "speakcheck: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger, logLevel := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("speakcheck starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "speakcheck"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg, cfg.Practice.Language)

	llmProvider, err := buildLLM(cfg, reg, metrics)
	if err != nil {
		slog.Error("failed to build llm provider", "err", err)
		return 1
	}
	sttProvider, err := buildSTT(cfg, reg, metrics)
	if err != nil {
		slog.Error("failed to build stt provider", "err", err)
		return 1
	}

	// ── Topic catalog ─────────────────────────────────────────────────────────
	var cat *catalog.Catalog
	if cfg.Practice.CatalogPath != "" {
		cat, err = catalog.LoadFile(cfg.Practice.CatalogPath)
	} else {
		cat, err = catalog.Default()
	}
	if err != nil {
		slog.Error("failed to load topic catalog", "err", err)
		return 1
	}

	// ── Core services ─────────────────────────────────────────────────────────
	records := correction.NewRecords()
	checkerOpts := []correction.Option{correction.WithLogger(logger)}
	if cfg.Practice.CorrectionTemperature > 0 {
		checkerOpts = append(checkerOpts, correction.WithTemperature(cfg.Practice.CorrectionTemperature))
	}
	checker := correction.NewChecker(llmProvider, checkerOpts...)

	store := practice.NewStore()
	engine := practice.NewEngine(cat, checker, records, store, practice.WithLogger(logger))
	if err := metrics.RegisterActivePracticeGauge(func() int64 {
		return int64(store.ActiveCount())
	}); err != nil {
		slog.Warn("failed to register active practice gauge", "err", err)
	}

	// ── Discord bot ───────────────────────────────────────────────────────────
	b, err := bot.New(bot.Config{
		Token:   cfg.Discord.Token,
		GuildID: cfg.Discord.GuildID,
	}, engine, checker, records, sttProvider,
		bot.WithLogger(logger),
		bot.WithMetrics(metrics),
	)
	if err != nil {
		slog.Error("failed to create Discord bot", "err", err)
		return 1
	}
	slog.Info("discord bot connected", "guild_id", cfg.Discord.GuildID)

	// ── Config watcher ────────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		applyConfigChange(logLevel, old, new)
	})
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	printStartupSummary(cfg)
	slog.Info("server ready — press Ctrl+C to shut down")

	// ── Run ───────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return b.Run(gctx)
	})

	if cfg.Server.ListenAddr != "" {
		srv := newHTTPServer(cfg, metrics, b, cat)
		g.Go(func() error {
			var err error
			if cfg.Server.TLS != nil {
				err = srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
			} else {
				err = srv.ListenAndServe()
			}
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()

	slog.Info("shutdown signal received, stopping…")
	if closeErr := b.Close(); closeErr != nil {
		slog.Warn("discord bot close error", "err", closeErr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── HTTP server ───────────────────────────────────────────────────────────────

func newHTTPServer(cfg *config.Config, metrics *observe.Metrics, b *bot.Bot, cat *catalog.Catalog) *http.Server {
	h := health.New(
		health.Checker{Name: "discord", Check: func(context.Context) error {
			if !b.Ready() {
				return errors.New("gateway not connected")
			}
			return nil
		}},
		health.Checker{Name: "catalog", Check: func(context.Context) error {
			if _, err := cat.Topics(catalog.PartOne); err != nil {
				return err
			}
			return nil
		}},
	)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           observe.Middleware(metrics)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// ── Config reload ─────────────────────────────────────────────────────────────

// applyConfigChange applies the parts of a config change that are safe to take
// hot. Everything else is logged as requiring a restart.
func applyConfigChange(logLevel *slog.LevelVar, old, new *config.Config) {
	diff := config.Diff(old, new)
	if !diff.Changed() {
		return
	}
	if diff.LogLevelChanged {
		logLevel.Set(slogLevel(diff.NewLogLevel))
		slog.Info("log level changed", "log_level", diff.NewLogLevel)
	}
	if diff.PracticeChanged {
		slog.Info("practice config changed; new sessions will pick it up after restart")
	}
	if diff.RestartRequired {
		slog.Warn("config change requires a restart to take effect")
	}
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages. defaultLanguage is used for
// STT providers that accept a language hint when the entry does not set one.
func registerBuiltinProviders(reg *config.Registry, defaultLanguage string) {
	// ── LLM ───────────────────────────────────────────────────────────────────

	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []oallm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oallm.WithBaseURL(entry.BaseURL))
		}
		return oallm.New(entry.APIKey, entry.Model, opts...)
	})

	// anthropic and groq share the same pattern: optional APIKey + BaseURL.
	for _, providerName := range []string{"anthropic", "groq"} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := sttLanguage(entry, defaultLanguage); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("whisper-native", func(entry config.ProviderEntry) (stt.Provider, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []whisper.NativeOption
		if lang := sttLanguage(entry, defaultLanguage); lang != "" {
			opts = append(opts, whisper.WithNativeLanguage(lang))
		}
		return whisper.NewNative(modelPath, opts...)
	})

	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []openaistt.Option
		if entry.BaseURL != "" {
			opts = append(opts, openaistt.WithBaseURL(entry.BaseURL))
		}
		return openaistt.New(entry.APIKey, entry.Model, opts...)
	})
}

// buildLLM creates the language model provider chain: the primary plus any
// configured fallbacks, each behind its own circuit breaker.
func buildLLM(cfg *config.Config, reg *config.Registry, metrics *observe.Metrics) (llm.Provider, error) {
	primary, err := reg.CreateLLM(cfg.Providers.LLM)
	if err != nil {
		return nil, fmt.Errorf("create llm provider %q: %w", cfg.Providers.LLM.Name, err)
	}
	slog.Info("provider created", "kind", "llm", "name", cfg.Providers.LLM.Name)

	// The group gives the primary its own circuit breaker even when no
	// fallbacks are configured.
	group := resilience.NewLLMFallback(primary, cfg.Providers.LLM.Name, resilience.FallbackConfig{
		OnResult: providerResultRecorder(metrics, "llm"),
	})
	for _, entry := range cfg.Providers.LLMFallbacks {
		p, err := reg.CreateLLM(entry)
		if err != nil {
			return nil, fmt.Errorf("create llm fallback %q: %w", entry.Name, err)
		}
		group.AddFallback(entry.Name, p)
		slog.Info("provider created", "kind", "llm", "name", entry.Name, "role", "fallback")
	}
	return group, nil
}

// buildSTT creates the transcription provider chain. Returns nil when no STT
// provider is configured; the bot then rejects voice notes.
func buildSTT(cfg *config.Config, reg *config.Registry, metrics *observe.Metrics) (stt.Provider, error) {
	if cfg.Providers.STT.Name == "" {
		return nil, nil
	}
	primary, err := reg.CreateSTT(cfg.Providers.STT)
	if err != nil {
		return nil, fmt.Errorf("create stt provider %q: %w", cfg.Providers.STT.Name, err)
	}
	slog.Info("provider created", "kind", "stt", "name", cfg.Providers.STT.Name)

	group := resilience.NewSTTFallback(primary, cfg.Providers.STT.Name, resilience.FallbackConfig{
		OnResult: providerResultRecorder(metrics, "stt"),
	})
	for _, entry := range cfg.Providers.STTFallbacks {
		p, err := reg.CreateSTT(entry)
		if err != nil {
			return nil, fmt.Errorf("create stt fallback %q: %w", entry.Name, err)
		}
		group.AddFallback(entry.Name, p)
		slog.Info("provider created", "kind", "stt", "name", entry.Name, "role", "fallback")
	}
	return group, nil
}

// providerResultRecorder feeds every provider attempt into the request and
// error counters, labelled by provider name and kind.
func providerResultRecorder(m *observe.Metrics, kind string) func(string, error) {
	return func(name string, err error) {
		ctx := context.Background()
		status := "ok"
		if err != nil {
			status = "error"
			m.RecordProviderError(ctx, name, kind)
		}
		m.RecordProviderRequest(ctx, name, kind, status)
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        SpeakCheck — startup summary   ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	fmt.Printf("║  LLM fallbacks   : %-19d ║\n", len(cfg.Providers.LLMFallbacks))
	fmt.Printf("║  STT fallbacks   : %-19d ║\n", len(cfg.Providers.STTFallbacks))
	catalogPath := cfg.Practice.CatalogPath
	if catalogPath == "" {
		catalogPath = "(built-in)"
	}
	printProvider("Catalog", catalogPath, "")
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

// newLogger builds the process logger. The returned LevelVar lets config
// reloads adjust verbosity without recreating handlers.
func newLogger(level config.LogLevel) (*slog.Logger, *slog.LevelVar) {
	lvl := new(slog.LevelVar)
	lvl.Set(slogLevel(level))
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), lvl
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

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

// sttLanguage resolves the language hint for a transcription provider: the
// entry's own option wins over the practice-level default.
func sttLanguage(entry config.ProviderEntry, defaultLanguage string) string {
	if lang := optString(entry.Options, "language"); lang != "" {
		return lang
	}
	return defaultLanguage
}
