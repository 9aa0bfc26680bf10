// Package log provides structured logging for SciForest on top of zerolog.
//
// Components obtain a named logger once and attach their context with With:
//
//	logger := log.GetLoggerWithName("ensemble").With(
//		log.ModelNameKey, "ensemble/5f2a",
//		log.ComponentKey, "ensemble",
//	)
//	logger.Debug("Chunk resolved", log.ChunkKey, 2, log.ModelsKey, 200)
//
// Key/value pairs are given as alternating arguments. A trailing key without
// a value is logged under the "!BADKEY" key rather than dropped.
package log

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Logging keys shared by all packages.
const (
	ModelNameKey  = "model_name"
	ComponentKey  = "component"
	OperationKey  = "operation"
	StrategyKey   = "missing_strategy"
	MethodKey     = "method"
	ModelsKey     = "models"
	ChunkKey      = "chunk"
	NodesKey      = "nodes"
	FieldKey      = "field"
	DurationMsKey = "duration_ms"
	ErrorKey      = "error"
)

// Operation values for OperationKey.
const (
	OperationLoad    = "load"
	OperationPredict = "predict"
	OperationCombine = "combine"
	OperationResolve = "resolve"
)

// Logger is the logging interface used by every component.
type Logger interface {
	Debug(msg string, kv ...interface{})
	Info(msg string, kv ...interface{})
	Warn(msg string, kv ...interface{})
	Error(msg string, kv ...interface{})
	With(kv ...interface{}) Logger
}

type zeroLogger struct {
	zl zerolog.Logger
}

var (
	mu   sync.RWMutex
	base = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.InfoLevel)
)

// SetOutput replaces the destination of every logger created afterwards.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	base = base.Output(w)
}

// SetConsoleOutput switches to human-readable output on w.
func SetConsoleOutput(w io.Writer) {
	SetOutput(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"})
}

// SetLevel sets the minimum level ("debug", "info", "warn", "error").
// Unknown levels leave the current one untouched.
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	base = base.Level(lvl)
}

// GetLogger returns the root logger.
func GetLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return &zeroLogger{zl: base}
}

// GetLoggerWithName returns a logger tagged with a logger name.
func GetLoggerWithName(name string) Logger {
	mu.RLock()
	defer mu.RUnlock()
	return &zeroLogger{zl: base.With().Str("logger", name).Logger()}
}

// New wraps an existing zerolog logger.
func New(zl zerolog.Logger) Logger {
	return &zeroLogger{zl: zl}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return &zeroLogger{zl: zerolog.Nop()}
}

func (l *zeroLogger) Debug(msg string, kv ...interface{}) {
	emit(l.zl.Debug(), msg, kv)
}

func (l *zeroLogger) Info(msg string, kv ...interface{}) {
	emit(l.zl.Info(), msg, kv)
}

func (l *zeroLogger) Warn(msg string, kv ...interface{}) {
	emit(l.zl.Warn(), msg, kv)
}

func (l *zeroLogger) Error(msg string, kv ...interface{}) {
	emit(l.zl.Error(), msg, kv)
}

func (l *zeroLogger) With(kv ...interface{}) Logger {
	ctx := l.zl.With()
	for i := 0; i < len(kv); i += 2 {
		key, value := pair(kv, i)
		if err, ok := value.(error); ok {
			ctx = ctx.AnErr(key, err)
			continue
		}
		ctx = ctx.Interface(key, value)
	}
	return &zeroLogger{zl: ctx.Logger()}
}

func emit(e *zerolog.Event, msg string, kv []interface{}) {
	if e == nil {
		return
	}
	for i := 0; i < len(kv); i += 2 {
		key, value := pair(kv, i)
		if err, ok := value.(error); ok {
			e = e.AnErr(key, err)
			continue
		}
		e = e.Interface(key, value)
	}
	e.Msg(msg)
}

func pair(kv []interface{}, i int) (string, interface{}) {
	key, ok := kv[i].(string)
	if !ok || i+1 >= len(kv) {
		return "!BADKEY", kv[i]
	}
	return key, kv[i+1]
}
