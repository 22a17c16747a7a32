// Package log holds the process-wide logger.
package log

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log *zap.SugaredLogger

	// errorsFile is the file where the errors are being written
	errorsFile *os.File
	errorsMu   sync.Mutex
)

func init() {
	// default level: info, so that library users see warnings without
	// configuring anything
	if err := Init("info", ""); err != nil {
		panic(err)
	}
}

// Init the logger with defined level. errorsPath defines the file where to
// store the errors, if set to "" will not store errors.
func Init(levelStr, errorsPath string) error {
	var level zap.AtomicLevel
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		return fmt.Errorf("error on setting log level: %w", err)
	}
	cfg := zap.Config{
		Level:            level,
		Encoding:         "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey: "message",

			LevelKey:    "level",
			EncodeLevel: zapcore.CapitalLevelEncoder,

			TimeKey: "timestamp",
			EncodeTime: func(ts time.Time, encoder zapcore.PrimitiveArrayEncoder) {
				encoder.AppendString(ts.Local().Format(time.RFC3339))
			},
			EncodeDuration: zapcore.StringDurationEncoder,

			CallerKey:    "caller",
			EncodeCaller: zapcore.ShortCallerEncoder,

			StacktraceKey: "stacktrace",
			LineEnding:    zapcore.DefaultLineEnding,
		},
	}

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	log = logger.Sugar()

	errorsMu.Lock()
	defer errorsMu.Unlock()
	if errorsFile != nil {
		//nolint:errcheck
		errorsFile.Close()
		errorsFile = nil
	}
	if errorsPath != "" {
		errorsFile, err = os.OpenFile(errorsPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
	}
	return nil
}

// Logger returns the underlying sugared logger, for packages that need to
// derive named or field-scoped loggers.
func Logger() *zap.SugaredLogger {
	return log
}

// Sync flushes buffered log entries.
func Sync() {
	//nolint:errcheck
	log.Sync()
}

func writeToErrorsFile(msg string) {
	errorsMu.Lock()
	defer errorsMu.Unlock()
	if errorsFile == nil {
		return
	}
	//nolint:errcheck
	errorsFile.WriteString(fmt.Sprintf("%s %s\n", time.Now().Format(time.RFC3339), msg))
}

// Debug calls log.Debug
func Debug(args ...interface{}) {
	log.Debug(args...)
}

// Info calls log.Info
func Info(args ...interface{}) {
	log.Info(args...)
}

// Warn calls log.Warn
func Warn(args ...interface{}) {
	log.Warn(args...)
}

// Error calls log.Error and stores the error message into the ErrorFile
func Error(args ...interface{}) {
	log.Error(args...)
	writeToErrorsFile(fmt.Sprint(args...))
}

// Debugf calls log.Debugf
func Debugf(template string, args ...interface{}) {
	log.Debugf(template, args...)
}

// Infof calls log.Infof
func Infof(template string, args ...interface{}) {
	log.Infof(template, args...)
}

// Warnf calls log.Warnf
func Warnf(template string, args ...interface{}) {
	log.Warnf(template, args...)
}

// Errorf calls log.Errorf and stores the error message into the ErrorFile
func Errorf(template string, args ...interface{}) {
	log.Errorf(template, args...)
	writeToErrorsFile(fmt.Sprintf(template, args...))
}

// Debugw calls log.Debugw
func Debugw(msg string, kv ...interface{}) {
	log.Debugw(msg, kv...)
}

// Infow calls log.Infow
func Infow(msg string, kv ...interface{}) {
	log.Infow(msg, kv...)
}

// Warnw calls log.Warnw
func Warnw(msg string, kv ...interface{}) {
	log.Warnw(msg, kv...)
}

// Errorw calls log.Errorw and stores the message and fields into the ErrorFile
func Errorw(msg string, kv ...interface{}) {
	log.Errorw(msg, kv...)
	writeToErrorsFile(fmt.Sprint(append([]interface{}{msg, " "}, kv...)...))
}
