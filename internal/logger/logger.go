package logger

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environment variables to configure the log file path and level.
const (
	envLogPath  = "WEB_OFFLINE_LOG"
	envLogLevel = "WEB_OFFLINE_LOG_LEVEL"
)

var (
	mu            sync.Mutex
	std           *zap.SugaredLogger
	logFile       *os.File
	isInitialized bool
)

// InitFromEnv initializes the logger using WEB_OFFLINE_LOG or a default path.
func InitFromEnv() error {
	path := os.Getenv(envLogPath)
	if path == "" {
		// Default to the directory where the executable is located
		if exePath, err := os.Executable(); err == nil {
			exeDir := filepath.Dir(exePath)
			path = filepath.Join(exeDir, "web-offline.log")
		} else {
			path = "./web-offline.log"
		}
	}
	return Init(path)
}

// Init initializes the logger to write JSON lines to the provided file path.
// It creates parent directories if needed and opens the file in append mode.
func Init(path string) error {
	mu.Lock()
	defer mu.Unlock()
	if isInitialized {
		return nil
	}
	if err := ensureParentDir(path); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), levelFromEnv())
	logFile = f
	std = zap.New(core).Sugar()
	isInitialized = true
	return nil
}

// UseNop routes all logging to a no-op logger. Intended for tests.
func UseNop() {
	mu.Lock()
	defer mu.Unlock()
	std = zap.NewNop().Sugar()
	isInitialized = true
}

// Close flushes and closes the underlying log file, if open.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if std != nil {
		_ = std.Sync()
	}
	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		std = nil
		isInitialized = false
		return err
	}
	return nil
}

// Printf logs a formatted message at info level.
func Printf(format string, args ...any) { get().Infof(format, args...) }

// Debugf logs verbose diagnostics.
func Debugf(format string, args ...any) { get().Debugf(format, args...) }

// Infof logs informational messages.
func Infof(format string, args ...any) { get().Infof(format, args...) }

// Warnf logs warnings.
func Warnf(format string, args ...any) { get().Warnf(format, args...) }

// Errorf logs errors.
func Errorf(format string, args ...any) { get().Errorf(format, args...) }

func get() *zap.SugaredLogger {
	mu.Lock()
	l := std
	mu.Unlock()
	if l != nil {
		return l
	}
	// Fallback: initialize with default if not already.
	if err := InitFromEnv(); err != nil {
		return zap.NewNop().Sugar()
	}
	mu.Lock()
	defer mu.Unlock()
	return std
}

func levelFromEnv() zapcore.Level {
	lvl := zapcore.InfoLevel
	if v := os.Getenv(envLogLevel); v != "" {
		if parsed, err := zapcore.ParseLevel(v); err == nil {
			lvl = parsed
		}
	}
	return lvl
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
