package logger

import (
	"log"
	"os"
	"sync"
)

// LogLevel controls the minimum severity that gets written.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// LogTag groups log lines by subsystem so noisy areas can be muted at runtime.
type LogTag string

const (
	TagSession LogTag = "SESSION" // websocket session lifecycle
	TagMQ      LogTag = "MQ"      // broker publish/subscribe
	TagStore   LogTag = "STORE"   // postgres persistence
	TagHTTP    LogTag = "HTTP"    // REST surface
	TagAuth    LogTag = "AUTH"    // token verification
)

// Logger is a leveled, tag-filtered printf logger.
type Logger struct {
	mu          sync.RWMutex
	enabledTags map[LogTag]bool
	minLevel    LogLevel
	logger      *log.Logger
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Init sets up the process-wide logger. Safe to call more than once.
func Init() {
	once.Do(func() {
		defaultLogger = &Logger{
			enabledTags: make(map[LogTag]bool),
			minLevel:    INFO,
			logger:      log.New(os.Stdout, "", log.LstdFlags),
		}

		defaultLogger.EnableTag(TagSession)
		defaultLogger.EnableTag(TagMQ)
		defaultLogger.EnableTag(TagStore)
		defaultLogger.EnableTag(TagHTTP)
		defaultLogger.EnableTag(TagAuth)
	})
}

func (l *Logger) EnableTag(tag LogTag) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabledTags[tag] = true
}

func (l *Logger) DisableTag(tag LogTag) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabledTags[tag] = false
}

func (l *Logger) IsTagEnabled(tag LogTag) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.enabledTags[tag]
}

// SetLevel sets the minimum severity that gets written.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
}

func (l *Logger) Debug(tag LogTag, format string, v ...interface{}) {
	if l.IsTagEnabled(tag) && l.minLevel <= DEBUG {
		l.logger.Printf("[DEBUG][%s] "+format, append([]interface{}{tag}, v...)...)
	}
}

func (l *Logger) Info(tag LogTag, format string, v ...interface{}) {
	if l.IsTagEnabled(tag) && l.minLevel <= INFO {
		l.logger.Printf("[INFO][%s] "+format, append([]interface{}{tag}, v...)...)
	}
}

func (l *Logger) Warn(tag LogTag, format string, v ...interface{}) {
	if l.IsTagEnabled(tag) && l.minLevel <= WARN {
		l.logger.Printf("[WARN][%s] "+format, append([]interface{}{tag}, v...)...)
	}
}

func (l *Logger) Error(tag LogTag, format string, v ...interface{}) {
	if l.IsTagEnabled(tag) && l.minLevel <= ERROR {
		l.logger.Printf("[ERROR][%s] "+format, append([]interface{}{tag}, v...)...)
	}
}

// Package-level wrappers around the default logger.
func EnableTag(tag LogTag)    { defaultLogger.EnableTag(tag) }
func DisableTag(tag LogTag)   { defaultLogger.DisableTag(tag) }
func SetLevel(level LogLevel) { defaultLogger.SetLevel(level) }

func Debug(tag LogTag, format string, v ...interface{}) { defaultLogger.Debug(tag, format, v...) }
func Info(tag LogTag, format string, v ...interface{})  { defaultLogger.Info(tag, format, v...) }
func Warn(tag LogTag, format string, v ...interface{})  { defaultLogger.Warn(tag, format, v...) }
func Error(tag LogTag, format string, v ...interface{}) { defaultLogger.Error(tag, format, v...) }
