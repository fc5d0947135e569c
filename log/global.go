package log

import (
	"fmt"
	"os"
	"sync"
)

var (
	global Logger = defaultLogger

	filterMu     sync.RWMutex
	filterLevels = make(map[Level]struct{})

	exit   = os.Exit
	osExit = os.Exit
)

// SetLogger replace default std logger
func SetLogger(l Logger) {
	global = l
}

// GetLogger returns global logger
func GetLogger() Logger {
	return global
}

// FilterLevel sets not logging level
func FilterLevel(level ...Level) {
	filterMu.Lock()
	defer filterMu.Unlock()
	for _, l := range level {
		switch l {
		case LevelDebug, LevelInfo, LevelWarn, LevelError, LevelFatal:
			filterLevels[l] = struct{}{}
		default:
		}
	}
}

// SetLevel filters every level below min.
func SetLevel(min Level) {
	filterMu.Lock()
	filterLevels = make(map[Level]struct{})
	filterMu.Unlock()
	for l := LevelDebug; l < min; l++ {
		FilterLevel(l)
	}
}

func filtered(level Level) bool {
	filterMu.RLock()
	_, ok := filterLevels[level]
	filterMu.RUnlock()
	return ok
}

func Log(level Level, kvs ...interface{}) {
	global.Log(level, kvs...)
}

func Debugf(format string, v ...interface{}) {
	global.Log(LevelDebug, DefaultMsgKey, fmt.Sprintf(format, v...))
}

func Infof(format string, v ...interface{}) {
	global.Log(LevelInfo, DefaultMsgKey, fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...interface{}) {
	global.Log(LevelWarn, DefaultMsgKey, fmt.Sprintf(format, v...))
}

func Warnw(kvs ...interface{}) {
	global.Log(LevelWarn, kvs...)
}

func Errorf(format string, v ...interface{}) {
	global.Log(LevelError, DefaultMsgKey, fmt.Sprintf(format, v...))
}

func Errorw(kvs ...interface{}) {
	global.Log(LevelError, kvs...)
}

// Fatalf logs at LevelFatal and exits the process with status 1.
func Fatalf(format string, v ...interface{}) {
	global.Log(LevelFatal, DefaultMsgKey, fmt.Sprintf(format, v...))
	exit(1)
}
