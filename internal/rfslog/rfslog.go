// Package rfslog is a small leveled logging facility: named loggers,
// each with its own io.Writer and level, and package-level convenience
// functions that fan a message out to every registered logger whose
// level admits it.
package rfslog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level orders the five supported severities from least to most
// urgent.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "debug"
	case INFO:
		return "info"
	case WARN:
		return "warn"
	case ERROR:
		return "error"
	case FATAL:
		return "fatal"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseLevel maps a flag/config string to a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warn":
		return WARN, nil
	case "error":
		return ERROR, nil
	case "fatal":
		return FATAL, nil
	}
	return 0, fmt.Errorf("rfslog: invalid level %q", s)
}

type logger struct {
	w     io.Writer
	level Level
	mu    sync.Mutex
}

var (
	mu      sync.Mutex
	loggers = map[string]*logger{}
)

// AddLogger registers a named logger writing to w, filtered at level.
// Registering a name that already exists replaces it.
func AddLogger(name string, w io.Writer, level Level) {
	mu.Lock()
	defer mu.Unlock()
	loggers[name] = &logger{w: w, level: level}
}

// DelLogger removes a named logger. It is a no-op if name is unknown.
func DelLogger(name string) {
	mu.Lock()
	defer mu.Unlock()
	delete(loggers, name)
}

// Loggers returns the names of all registered loggers.
func Loggers() []string {
	mu.Lock()
	defer mu.Unlock()
	names := make([]string, 0, len(loggers))
	for n := range loggers {
		names = append(names, n)
	}
	return names
}

// SetLevel changes the filter level of a registered logger.
func SetLevel(name string, level Level) error {
	mu.Lock()
	defer mu.Unlock()
	l, ok := loggers[name]
	if !ok {
		return fmt.Errorf("rfslog: no such logger %q", name)
	}
	l.level = level
	return nil
}

// GetLevel returns the filter level of a registered logger.
func GetLevel(name string) (Level, error) {
	mu.Lock()
	defer mu.Unlock()
	l, ok := loggers[name]
	if !ok {
		return 0, fmt.Errorf("rfslog: no such logger %q", name)
	}
	return l.level, nil
}

// WillLog reports whether any registered logger would emit a message
// at the given level. Callers can use this to skip building an
// expensive log line entirely.
func WillLog(level Level) bool {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range loggers {
		if level >= l.level {
			return true
		}
	}
	return false
}

func dispatch(level Level, msg string) {
	mu.Lock()
	targets := make([]*logger, 0, len(loggers))
	for _, l := range loggers {
		if level >= l.level {
			targets = append(targets, l)
		}
	}
	mu.Unlock()

	line := fmt.Sprintf("%s %s %s\n", time.Now().Format(time.RFC3339), level, msg)
	for _, l := range targets {
		l.mu.Lock()
		io.WriteString(l.w, line)
		l.mu.Unlock()
	}

	if level == FATAL {
		os.Exit(1)
	}
}

func Debug(args ...interface{})                 { dispatch(DEBUG, fmt.Sprint(args...)) }
func Debugf(format string, args ...interface{}) { dispatch(DEBUG, fmt.Sprintf(format, args...)) }
func Info(args ...interface{})                  { dispatch(INFO, fmt.Sprint(args...)) }
func Infof(format string, args ...interface{})  { dispatch(INFO, fmt.Sprintf(format, args...)) }
func Warn(args ...interface{})                  { dispatch(WARN, fmt.Sprint(args...)) }
func Warnf(format string, args ...interface{})  { dispatch(WARN, fmt.Sprintf(format, args...)) }
func Error(args ...interface{})                 { dispatch(ERROR, fmt.Sprint(args...)) }
func Errorf(format string, args ...interface{}) { dispatch(ERROR, fmt.Sprintf(format, args...)) }
func Fatal(args ...interface{})                 { dispatch(FATAL, fmt.Sprint(args...)) }
func Fatalf(format string, args ...interface{}) { dispatch(FATAL, fmt.Sprintf(format, args...)) }

// FileWriter is a buffered, append-only file sink suitable for
// AddLogger's w argument, opened by NewFileWriter. Buffered output
// reaches the file only on Flush or Close; callers are responsible for
// calling one of them at shutdown.
type FileWriter struct {
	f *os.File
	b *bufio.Writer
}

func NewFileWriter(path string) (*FileWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &FileWriter{f: f, b: bufio.NewWriter(f)}, nil
}

func (fw *FileWriter) Write(p []byte) (int, error) { return fw.b.Write(p) }
func (fw *FileWriter) Flush() error                { return fw.b.Flush() }
func (fw *FileWriter) Close() error {
	if err := fw.b.Flush(); err != nil {
		fw.f.Close()
		return err
	}
	return fw.f.Close()
}
