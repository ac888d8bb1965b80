// Package logging provides categorized file-based logging for brandstudio.
// Each category writes to its own file under <dir>/logs/ so a noisy
// subsystem (embedding calls, HTTP access) never drowns out the rest.
// Before Initialize is called every logger is a no-op.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies a logging subsystem.
type Category string

const (
	CategoryBoot       Category = "boot"       // Startup and wiring
	CategoryKB         Category = "kb"         // Knowledge base loading
	CategoryValidator  Category = "validator"  // Compliance validation
	CategoryIndex      Category = "index"      // Embedding index build/search
	CategoryRetrieval  Category = "retrieval"  // Guideline retrieval
	CategoryRegen      Category = "regen"      // Regeneration loop
	CategoryGeneration Category = "generation" // Content generation calls
	CategoryEmbedding  Category = "embedding"  // Embedding engine
	CategoryStore      Category = "store"      // Campaign store
	CategoryServer     Category = "server"     // HTTP surface
)

// Logger wraps a zap sugared logger bound to one category.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu          sync.RWMutex
	loggers     = make(map[Category]*Logger)
	logsDir     string
	level       zapcore.Level
	initialized bool
)

// Initialize sets up the logs directory and the minimum level
// ("debug", "info", "warn", "error"). Must be called once at startup;
// calling it again re-points the directory and drops cached loggers.
func Initialize(dir, levelName string) error {
	if dir == "" {
		return fmt.Errorf("logging: directory required")
	}

	lvl, err := zapcore.ParseLevel(levelName)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	d := filepath.Join(dir, "logs")
	if err := os.MkdirAll(d, 0755); err != nil {
		return fmt.Errorf("logging: create %s: %w", d, err)
	}

	mu.Lock()
	defer mu.Unlock()
	logsDir = d
	level = lvl
	loggers = make(map[Category]*Logger)
	initialized = true
	return nil
}

// Get returns the logger for a category, creating it on first use.
func Get(cat Category) *Logger {
	mu.RLock()
	if l, ok := loggers[cat]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[cat]; ok {
		return l
	}
	l := newLogger(cat)
	loggers[cat] = l
	return l
}

func newLogger(cat Category) *Logger {
	if !initialized {
		return &Logger{category: cat, sugar: zap.NewNop().Sugar()}
	}

	path := filepath.Join(logsDir, string(cat)+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return &Logger{category: cat, sugar: zap.NewNop().Sugar()}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(f),
		level,
	)
	z := zap.New(core).Named(string(cat))
	return &Logger{category: cat, sugar: z.Sugar()}
}

// Sync flushes all category loggers. Safe to call on shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	for _, l := range loggers {
		_ = l.sugar.Sync()
	}
}

func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// Category convenience helpers, matching call sites like
// logging.KB("loaded %d categories", n).

func Boot(format string, args ...interface{})       { Get(CategoryBoot).Info(format, args...) }
func KB(format string, args ...interface{})         { Get(CategoryKB).Info(format, args...) }
func KBDebug(format string, args ...interface{})    { Get(CategoryKB).Debug(format, args...) }
func Validator(format string, args ...interface{})  { Get(CategoryValidator).Info(format, args...) }
func Index(format string, args ...interface{})      { Get(CategoryIndex).Info(format, args...) }
func IndexDebug(format string, args ...interface{}) { Get(CategoryIndex).Debug(format, args...) }
func Retrieval(format string, args ...interface{})  { Get(CategoryRetrieval).Info(format, args...) }
func Regen(format string, args ...interface{})      { Get(CategoryRegen).Info(format, args...) }
func Generation(format string, args ...interface{}) { Get(CategoryGeneration).Info(format, args...) }
func Embedding(format string, args ...interface{})  { Get(CategoryEmbedding).Info(format, args...) }
func Store(format string, args ...interface{})      { Get(CategoryStore).Info(format, args...) }
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }
func Server(format string, args ...interface{})     { Get(CategoryServer).Info(format, args...) }

// Timer measures an operation's duration and logs it on Stop.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation within a category.
func StartTimer(cat Category, op string) *Timer {
	return &Timer{category: cat, op: op, start: time.Now()}
}

// Stop logs the elapsed time at debug level.
func (t *Timer) Stop() {
	Get(t.category).Debug("%s completed in %v", t.op, time.Since(t.start))
}
