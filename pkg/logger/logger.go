// Package logger wraps a process-wide zap logger behind printf-style helpers
// that are safe to call before initialization. Warnings, errors and recovered
// panics are mirrored to the error tracking provider once one is installed.
package logger

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/bitechdev/ChannelSpec/pkg/errortracking"
)

// Logger is the shared sugared logger. It stays nil until Init runs; the
// helpers below fall back to the standard library log while it is nil.
var Logger *zap.SugaredLogger

var errorTracker errortracking.Provider

// Init builds the process logger. Development mode uses the console encoder,
// production mode emits JSON to stderr.
func Init(dev bool) {
	rebuild(dev, "")
}

// UpdateLoggerPath rebuilds the logger so output lands in the given file
// instead of stderr
func UpdateLoggerPath(path string, dev bool) {
	rebuild(dev, path)
}

func rebuild(dev bool, path string) {
	cfg := zap.NewProductionConfig()
	if dev {
		cfg = zap.NewDevelopmentConfig()
	}
	if path != "" {
		cfg.OutputPaths = []string{path}
	}
	built, err := cfg.Build()
	if err != nil {
		log.Printf("failed to build logger: %v", err)
		return
	}
	Logger = built.Sugar()
	Info("ChannelSpec logger initialized")
}

// InitErrorTracking mirrors warnings, errors and panics to the given provider
// in addition to the regular log output
func InitErrorTracking(provider errortracking.Provider) {
	errorTracker = provider
	if provider != nil {
		Info("Error tracking initialized")
	}
}

// CloseErrorTracking flushes buffered reports and releases the provider
func CloseErrorTracking() error {
	if errorTracker == nil {
		return nil
	}
	errorTracker.Flush(5)
	return errorTracker.Close()
}

// Debug logs at debug level with printf formatting
func Debug(template string, args ...interface{}) {
	message := fmt.Sprintf(template, args...)
	if Logger == nil {
		log.Print(message)
		return
	}
	Logger.Debugw(message, "process_id", os.Getpid())
}

// Info logs at info level with printf formatting
func Info(template string, args ...interface{}) {
	message := fmt.Sprintf(template, args...)
	if Logger == nil {
		log.Print(message)
		return
	}
	Logger.Infow(message, "process_id", os.Getpid())
}

// Warn logs at warn level and reports the message to the error tracker
func Warn(template string, args ...interface{}) {
	message := fmt.Sprintf(template, args...)
	if Logger == nil {
		log.Print(message)
	} else {
		Logger.Warnw(message, "process_id", os.Getpid())
	}
	report(message, errortracking.SeverityWarning)
}

// Error logs at error level and reports the message to the error tracker
func Error(template string, args ...interface{}) {
	message := fmt.Sprintf(template, args...)
	if Logger == nil {
		log.Print(message)
	} else {
		Logger.Errorw(message, "process_id", os.Getpid())
	}
	report(message, errortracking.SeverityError)
}

func report(message string, severity errortracking.Severity) {
	if errorTracker == nil {
		return
	}
	errorTracker.CaptureMessage(context.Background(), message, severity, map[string]interface{}{
		"process_id": os.Getpid(),
	})
}

// CatchPanic recovers a panic, logs it with the call stack and reports it to
// the error tracker. It must be deferred directly:
//
//	defer logger.CatchPanic("connection.readPump")
func CatchPanic(location string) {
	if r := recover(); r != nil {
		reportPanic(location, r, nil)
	}
}

// CatchPanicCallback is CatchPanic with a hook that receives the recovered
// value after it was logged and reported. It must be deferred directly.
func CatchPanicCallback(location string, cb func(err any)) {
	if r := recover(); r != nil {
		reportPanic(location, r, cb)
	}
}

func reportPanic(location string, r any, cb func(err any)) {
	stack := debug.Stack()
	if Logger != nil {
		Error("Panic in %s : %v", location, r)
	} else {
		fmt.Printf("%s:PANIC->%+v", location, r)
		debug.PrintStack()
	}
	if errorTracker != nil {
		errorTracker.CapturePanic(context.Background(), r, stack, map[string]interface{}{
			"location":   location,
			"process_id": os.Getpid(),
		})
	}
	if cb != nil {
		cb(r)
	}
}

// HandlePanic logs an already recovered panic and converts it into an error.
// Call it with the result of recover from a deferred function:
//
//	defer func() {
//	    if r := recover(); r != nil {
//	        err = logger.HandlePanic("MethodName", r)
//	    }
//	}()
func HandlePanic(methodName string, r any) error {
	stack := debug.Stack()
	Error("Panic in %s: %v\nStack trace:\n%s", methodName, r, stack)
	if errorTracker != nil {
		errorTracker.CapturePanic(context.Background(), r, stack, map[string]interface{}{
			"method":     methodName,
			"process_id": os.Getpid(),
		})
	}
	return fmt.Errorf("panic in %s: %v", methodName, r)
}
