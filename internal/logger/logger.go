package logger

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Rotator implements io.Writer and handles log file rotation based on size.
// It is the file sink behind the zap core built in Setup.
type Rotator struct {
	Filename   string
	MaxSize    int64 // Bytes
	MaxBackups int
	file       *os.File
	size       int64
	mu         sync.Mutex
}

// Setup builds the process logger: human-readable lines on stderr and JSON lines in a
// size-rotated file. It replaces zap's globals so packages can fall back to zap.S().
// If the log file cannot be opened the logger degrades to stderr only.
func Setup(level, filename string, maxSizeMB int64, maxBackups int) *zap.Logger {
	lvl := ParseLevel(level)

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stderr), lvl),
	}

	rotator := &Rotator{
		Filename:   filename,
		MaxSize:    maxSizeMB * 1024 * 1024,
		MaxBackups: maxBackups,
	}
	if err := rotator.open(false); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file, using stderr only: %v\n", err)
	} else {
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(rotator), lvl))
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
	zap.ReplaceGlobals(l)
	return l
}

// ParseLevel maps the LOG_LEVEL vocabulary onto zap levels. Unknown values mean INFO.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// open opens Filename for appending, or empties it first when truncate is set.
func (r *Rotator) open(truncate bool) error {
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if truncate {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(r.Filename, flags, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	r.file = f
	r.size = info.Size()
	return nil
}

// Sync flushes the current file. zapcore calls it on Logger.Sync.
func (r *Rotator) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	return r.file.Sync()
}

// Write appends p, rotating first when p would push the file past MaxSize.
// A failed rotation is reported on stderr and the line still goes to the current file.
func (r *Rotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		if err := r.open(false); err != nil {
			return 0, err
		}
	}
	if r.size+int64(len(p)) > r.MaxSize {
		if err := r.rotate(); err != nil {
			fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", err)
		}
		if r.file == nil {
			return 0, fmt.Errorf("log file %s unavailable after rotation", r.Filename)
		}
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *Rotator) backup(i int) string { return fmt.Sprintf("%s.%d", r.Filename, i) }

// rotate shifts name.N-1 to name.N down to name to name.1, then starts an empty file.
// If the live file cannot be moved aside it is reopened for appending, never truncated.
func (r *Rotator) rotate() error {
	var errs []error
	if r.file != nil {
		if err := r.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", r.Filename, err))
		}
		r.file = nil
	}

	for i := r.MaxBackups - 1; i >= 1; i-- {
		if err := os.Rename(r.backup(i), r.backup(i+1)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}

	truncate := true
	if r.MaxBackups > 0 {
		if err := os.Rename(r.Filename, r.backup(1)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			truncate = false
		}
	}

	if err := r.open(truncate); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
