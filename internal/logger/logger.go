package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"kidneystone/internal/config"
)

// Log files kept in the log directory, one per level.
const (
	InfoFile    = "info.log"
	WarningFile = "warning.log"
	ErrorFile   = "error.log"
)

// Logger provides leveled logging (info/warning/error) to files and stdout.
type Logger struct {
	log    *logrus.Logger
	logDir string
	hook   *fileHook
	mu     sync.Mutex
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(cfg *config.Config) (*Logger, error) {
	if err := os.MkdirAll(cfg.LogDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &Logger{
		logDir: cfg.LogDirectory,
		hook: &fileHook{
			files:     make(map[logrus.Level]*os.File),
			formatter: &logrus.TextFormatter{FullTimestamp: true, DisableColors: true},
		},
	}

	if err := l.setupLoggers(); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

// setupLoggers opens one file per level and attaches them through a hook.
func (l *Logger) setupLoggers() error {
	levels := map[logrus.Level]string{
		logrus.InfoLevel:  InfoFile,
		logrus.WarnLevel:  WarningFile,
		logrus.ErrorLevel: ErrorFile,
	}

	for level, name := range levels {
		file, err := openLogFile(filepath.Join(l.logDir, name))
		if err != nil {
			return err
		}
		l.hook.files[level] = file
	}

	l.log = logrus.New()
	l.log.SetOutput(os.Stdout)
	l.log.SetLevel(logrus.InfoLevel)
	l.log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.log.AddHook(l.hook)
	return nil
}

func openLogFile(filename string) (*os.File, error) {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", filename, err)
	}
	return file, nil
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.log.Infof(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.log.Warnf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.log.Errorf(format, v...)
}

// Writer returns a pipe whose lines are logged at info level. The caller
// closes it when done.
func (l *Logger) Writer() *io.PipeWriter {
	return l.log.Writer()
}

// Dir returns the directory holding the log files.
func (l *Logger) Dir() string {
	return l.logDir
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	filePath := filepath.Join(l.logDir, filepath.Base(fileName))
	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("error opening log file: %w", err)
	}
	defer file.Close()

	l.log.Infof("Log file %s has been cleared", fileName)
	return nil
}

// Close releases the level files.
func (l *Logger) Close() {
	l.hook.mu.Lock()
	defer l.hook.mu.Unlock()

	for level, file := range l.hook.files {
		file.Close()
		delete(l.hook.files, level)
	}
}

// fileHook mirrors entries of a level into that level's file.
type fileHook struct {
	files     map[logrus.Level]*os.File
	formatter logrus.Formatter
	mu        sync.Mutex
}

func (h *fileHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.InfoLevel, logrus.WarnLevel, logrus.ErrorLevel}
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	file, ok := h.files[entry.Level]
	if !ok {
		return nil
	}

	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = file.Write(line)
	return err
}
