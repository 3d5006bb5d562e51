package utils

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environment variables read by InitLogger
const (
	EnvLogDir    = "ARBSCANNER_LOG_DIR"
	EnvLogFormat = "ARBSCANNER_LOG_FORMAT"
)

var (
	log  *zap.Logger
	once sync.Once
)

// LogOptions configures NewLogger
type LogOptions struct {
	Debug bool
	// Dir receives arbscanner.log and arbscanner-error.log; empty logs to
	// the standard streams only
	Dir string
	// Format is "json" (default) or "console"
	Format string
}

// NewLogger builds a structured logger tagged with the service name
func NewLogger(opts LogOptions) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if opts.Debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if opts.Format == "console" {
		config.Encoding = "console"
	}

	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}
	if opts.Dir != "" {
		config.OutputPaths = append(config.OutputPaths, filepath.Join(opts.Dir, "arbscanner.log"))
		config.ErrorOutputPaths = append(config.ErrorOutputPaths, filepath.Join(opts.Dir, "arbscanner-error.log"))
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.StacktraceKey = "stacktrace"

	return config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service", "arbscanner")),
	)
}

// InitLogger initializes the global logger once. Log files go to the
// working directory unless ARBSCANNER_LOG_DIR says otherwise.
func InitLogger(debug bool) *zap.Logger {
	once.Do(func() {
		dir, ok := os.LookupEnv(EnvLogDir)
		if !ok {
			dir = "."
		}
		opts := LogOptions{Debug: debug, Dir: dir, Format: os.Getenv(EnvLogFormat)}

		logger, err := NewLogger(opts)
		if err != nil {
			// unwritable log directory
			opts.Dir = ""
			logger, err = NewLogger(opts)
		}
		if err != nil {
			panic(err)
		}
		log = logger
	})

	return log
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if log == nil {
		return InitLogger(false)
	}
	return log
}

// CleanupLogger flushes any buffered log entries
func CleanupLogger() {
	if log != nil {
		_ = log.Sync()
	}
}
