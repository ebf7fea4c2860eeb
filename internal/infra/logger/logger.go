package logger

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Root  string
	Debug bool
	// Console receives human-readable progress; nil means os.Stderr.
	Console io.Writer
	// Quiet disables the console core; the JSON file is always written.
	Quiet bool
}

var (
	mu       sync.RWMutex
	global   = zap.NewNop()
	logFile  *os.File
	logPath  string
	initedAt time.Time
)

// Setup installs a logger that tees a console encoder and a JSON file at
// <root>/.smol/logs/smol.log. The returned cleanup flushes and closes the file.
func Setup(cfg Config) (func() error, error) {
	root := filepath.Clean(cfg.Root)
	if root == "" {
		root = "."
	}

	dir := filepath.Join(root, ".smol", "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		setNop()
		return nil, err
	}

	path := filepath.Join(dir, "smol.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		setNop()
		return nil, err
	}

	level := zapcore.InfoLevel
	if cfg.Debug {
		level = zapcore.DebugLevel
	}

	fileEnc := zap.NewProductionEncoderConfig()
	fileEnc.TimeKey = "timestamp"
	fileEnc.EncodeTime = utcISO8601

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(fileEnc), zapcore.AddSync(f), level),
	}

	if !cfg.Quiet {
		out := cfg.Console
		if out == nil {
			out = os.Stderr
		}
		consoleEnc := zap.NewDevelopmentEncoderConfig()
		consoleEnc.TimeKey = "timestamp"
		consoleEnc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		consoleEnc.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEnc), zapcore.AddSync(out), level))
	}

	opts := []zap.Option{}
	if cfg.Debug {
		opts = append(opts, zap.AddCaller())
	}
	l := zap.New(zapcore.NewTee(cores...), opts...)

	mu.Lock()
	global = l
	logFile = f
	logPath = path
	initedAt = time.Now().UTC()
	mu.Unlock()

	zap.ReplaceGlobals(l)
	l.Debug("logger.initialized", zap.String("path", path), zap.Bool("debug", cfg.Debug))

	cleanup := func() error {
		mu.Lock()
		defer mu.Unlock()

		_ = global.Sync()
		var cerr error
		if logFile != nil {
			cerr = logFile.Close()
		}
		logFile = nil
		logPath = ""
		initedAt = time.Time{}
		global = zap.NewNop()
		zap.ReplaceGlobals(global)
		return cerr
	}

	return cleanup, nil
}

func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

func S() *zap.SugaredLogger {
	return L().Sugar()
}

func Path() string {
	mu.RLock()
	defer mu.RUnlock()
	return logPath
}

func InitTime() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	return initedAt
}

func setNop() {
	mu.Lock()
	defer mu.Unlock()
	global = zap.NewNop()
	logFile = nil
	logPath = ""
	initedAt = time.Time{}
}

func IsReady() error {
	mu.RLock()
	defer mu.RUnlock()
	if logFile == nil || logPath == "" {
		return errors.New("logger not initialized")
	}
	return nil
}

func utcISO8601(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.UTC().Format(time.RFC3339Nano))
}
