// Package logger holds the process-wide zap logger.
//
// The global Logger starts as a no-op so packages can log before the CLI has
// parsed its flags. Components receive a named child via ComponentLogger.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the global sugared logger.
	Logger *zap.SugaredLogger
	// JSONOutput reports whether Initialize selected the JSON encoder.
	JSONOutput bool
)

func init() {
	Logger = zap.NewNop().Sugar()
}

// Initialize replaces the global logger. jsonOutput selects the production
// JSON encoder; otherwise a console encoder writes to stderr so command
// output on stdout stays clean.
func Initialize(jsonOutput bool, level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	JSONOutput = jsonOutput

	var zapLogger *zap.Logger
	if jsonOutput {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(lvl)
		config.OutputPaths = []string{"stderr"}
		zapLogger, err = config.Build()
		if err != nil {
			return err
		}
	} else {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapLogger = zap.New(zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.AddSync(os.Stderr),
			lvl,
		))
	}

	Logger = zapLogger.Sugar()
	return nil
}

// ParseLevel maps a level name to a zap level. Empty means warn, which keeps
// CLI runs quiet unless asked otherwise.
func ParseLevel(level string) (zapcore.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zapcore.WarnLevel, nil
	}
	return zapcore.ParseLevel(strings.ToLower(level))
}

// ComponentLogger returns a named logger for a specific component.
//
// Example:
//
//	m := &Manager{log: logger.ComponentLogger("concept.manager")}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// Sync flushes buffered entries. Errors from syncing stderr are ignored.
func Sync() {
	_ = Logger.Sync()
}
