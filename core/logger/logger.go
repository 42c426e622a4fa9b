package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/m3rciful/storybot/core/buildinfo"
	coreconfig "github.com/m3rciful/storybot/core/config"
)

const defaultDebugSample = "1/50"

var (
	initOnce sync.Once

	closeMu   sync.Mutex
	logWriter *asyncWriter
	logFiles  []io.Closer

	levelVar      slog.LevelVar
	debugSampler  = newRatioSampler(parseRatioSpec(defaultDebugSample))
	traceOverride bool

	// L is the base logger; prefer FromContext inside handlers.
	L *slog.Logger

	DB       *slog.Logger // database connections
	MIG      *slog.Logger // schema migrations
	SEED     *slog.Logger // catalog seeding
	TG       *slog.Logger // Telegram transport
	TWire    *slog.Logger // handler and route wiring
	SVCUsers *slog.Logger // users and admin roles

	SVCStory   *slog.Logger
	SVCContent *slog.Logger
	SVCIntent  *slog.Logger
)

func init() {
	// Until InitLogger runs (tests, CLI subcommands) warnings go to stderr as text.
	levelVar.Set(slog.LevelWarn)
	setBase(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &levelVar})))
}

func setBase(l *slog.Logger) {
	L = l
	DB = l.With("component", "db")
	MIG = l.With("component", "db.migrate")
	SEED = l.With("component", "db.seed")
	TG = l.With("component", "tg")
	TWire = l.With("component", "tg.wire")
	SVCUsers = l.With("component", "service.users")
	SVCStory = l.With("component", "service.story")
	SVCContent = l.With("component", "service.content")
	SVCIntent = l.With("component", "service.intent")
}

// settings is the logging section of the config with defaults applied.
type settings struct {
	level   slog.Level
	format  logFormat
	order   []string
	sample  [2]int
	profile string
	file    string
}

func resolveSettings(cfg *coreconfig.Config) settings {
	s := settings{
		level:   slog.LevelInfo,
		format:  formatJSON,
		order:   slices.Clone(defaultKeyOrder),
		profile: "prod",
	}
	num, den := parseRatioSpec(defaultDebugSample)
	s.sample = [2]int{num, den}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging

	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}
	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}
	if raw := strings.TrimSpace(lc.KeysOrder); raw != "" && raw != "default" {
		var order []string
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				order = append(order, k)
			}
		}
		if len(order) > 0 {
			s.order = order
		}
	}
	if spec := strings.TrimSpace(lc.DebugSample); spec != "" {
		// "0" disables sampling; anything unparsable keeps the default.
		if n, d := parseRatioSpec(spec); n == 0 && d == 0 && spec != "0" {
			s.sample = [2]int{num, den}
		} else {
			s.sample = [2]int{n, d}
		}
	}
	if dir, file := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile); dir != "" && file != "" {
		s.file = filepath.Join(dir, file)
	}
	return s
}

// InitLogger installs the structured logger as the slog default. Only the first call
// has an effect.
func InitLogger(cfg *coreconfig.Config) error {
	var initErr error
	initOnce.Do(func() {
		s := resolveSettings(cfg)
		levelVar.Set(s.level)
		debugSampler.Set(s.sample[0], s.sample[1])
		traceOverride = isTruthy(os.Getenv("TRACE")) || isTruthy(os.Getenv("LOG_TRACE"))

		outputs := []io.Writer{os.Stdout}
		if s.file != "" {
			f, err := openLogFile(s.file)
			if err != nil {
				initErr = err
				return
			}
			outputs = append(outputs, f)
			logFiles = append(logFiles, f)
		}

		closeMu.Lock()
		logWriter = newAsyncWriter(outputs, 64*1024)
		closeMu.Unlock()

		base := slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   logWriter,
			format:   s.format,
			keyOrder: s.order,
		}))
		slog.SetDefault(base)
		setBase(base)

		L.LogAttrs(context.Background(), slog.LevelInfo, "startup",
			slog.String("event", "startup"),
			slog.String("component", "app"),
			slog.String("go_version", runtime.Version()),
			slog.String("build_version", buildinfo.Version),
			slog.String("build_commit", buildinfo.Commit),
			slog.String("build_time", buildinfo.Date),
			slog.String("cfg_profile", s.profile),
		)
	})
	return initErr
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logger: log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: log file: %w", err)
	}
	return f, nil
}

// Shutdown flushes buffered output and closes log files. Later calls are no-ops.
func Shutdown() error {
	closeMu.Lock()
	defer closeMu.Unlock()

	var errs []error
	if logWriter != nil {
		errs = append(errs, logWriter.Close())
		logWriter = nil
	}
	for _, c := range logFiles {
		errs = append(errs, c.Close())
	}
	logFiles = nil
	return errors.Join(errs...)
}

// Background returns context.Background(); kept so call sites read uniformly.
func Background() context.Context {
	return context.Background()
}

// LogEvent logs attrs with the event attribute set, falling back to the context or base logger.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		logg = L
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Component returns the base logger scoped to name.
func Component(name string) *slog.Logger {
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// Event logs event under the given component.
func Event(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), level, event, attrs...)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// ShouldSampleDebug reports whether a high-volume debug event should be logged.
// TRACE=1 forces every event through.
func ShouldSampleDebug() bool {
	return traceOverride || debugSampler.Allow()
}
