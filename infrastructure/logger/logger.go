package logger

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level is the level at which a logger is configured. All messages sent
// to a level which is below the current level are filtered.
type Level uint32

// Level constants.
const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
	LevelOff
)

// levelStrs defines the human-readable names for each logging level.
var levelStrs = [...]string{"TRC", "DBG", "INF", "WRN", "ERR", "CRT", "OFF"}

// LevelFromString returns a level based on the input string s. If the input
// can't be interpreted as a valid log level, the info level and false is
// returned.
func LevelFromString(s string) (l Level, ok bool) {
	switch strings.ToLower(s) {
	case "trace", "trc":
		return LevelTrace, true
	case "debug", "dbg":
		return LevelDebug, true
	case "info", "inf":
		return LevelInfo, true
	case "warn", "wrn":
		return LevelWarn, true
	case "error", "err":
		return LevelError, true
	case "critical", "crt":
		return LevelCritical, true
	case "off":
		return LevelOff, true
	default:
		return LevelInfo, false
	}
}

// String returns the tag of the logger used in log messages, or "OFF" if
// the level will not produce any log output.
func (l Level) String() string {
	if l >= LevelOff {
		return "OFF"
	}
	return levelStrs[l]
}

// defaultLogLevel is the level assigned to subsystem loggers created by
// RegisterSubSystem before any explicit configuration.
const defaultLogLevel = LevelInfo

// Loggers per subsystem. A single backend logger is created and all subsystem
// loggers created from it will write to the backend. When adding a new
// subsystem, declare the logger in the subsystem's package as a global
// variable using RegisterSubSystem.
var (
	// BackendLog is the logging backend used to create all subsystem loggers.
	BackendLog = NewBackend()

	loggersMutex sync.Mutex
	loggers      = make(map[string]*Logger)
)

// InitLog attaches log file and error log file to the backend log and starts
// the backend. Failure to initialize logging is not recoverable.
func InitLog(logFile, errLogFile string) {
	err := BackendLog.AddLogFile(logFile, LevelTrace)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding log file %s as log rotator for level %s: %s\n", logFile, LevelTrace, err)
		os.Exit(1)
	}
	err = BackendLog.AddLogFile(errLogFile, LevelWarn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding log file %s as log rotator for level %s: %s\n", errLogFile, LevelWarn, err)
		os.Exit(1)
	}
	InitLogStdout(LevelInfo)
}

// InitLogStdout attaches a stdout writer to the backend log and starts the
// backend if it is not already running.
func InitLogStdout(logLevel Level) {
	if BackendLog.IsRunning() {
		return
	}
	err := BackendLog.AddLogWriter(os.Stdout, logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding stdout to the logger: %s\n", err)
		os.Exit(1)
	}
	err = BackendLog.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting the logger: %s\n", err)
		os.Exit(1)
	}
}

// RegisterSubSystem registers a new subsystem logger, should be called in a
// global variable. Returns the existing logger if the subsystem is already
// registered.
func RegisterSubSystem(subsystem string) *Logger {
	loggersMutex.Lock()
	defer loggersMutex.Unlock()
	logger, ok := loggers[subsystem]
	if !ok {
		logger = BackendLog.Logger(subsystem)
		logger.SetLevel(defaultLogLevel)
		loggers[subsystem] = logger
	}
	return logger
}

// SetLogLevel sets the logging level for the provided subsystem. Unregistered
// subsystems are ignored.
func SetLogLevel(subsystem string, level Level) {
	loggersMutex.Lock()
	defer loggersMutex.Unlock()
	if logger, ok := loggers[subsystem]; ok {
		logger.SetLevel(level)
	}
}

// SetLogLevels sets the log level for all registered subsystem loggers.
func SetLogLevels(level Level) {
	loggersMutex.Lock()
	defer loggersMutex.Unlock()
	for _, logger := range loggers {
		logger.SetLevel(level)
	}
}

// LogAndMeasureExecutionTime logs that the named function has started and
// returns a function that, when deferred, logs its total execution time.
func LogAndMeasureExecutionTime(log *Logger, functionName string) (onEnd func()) {
	start := time.Now()
	log.Debugf("%s start", functionName)
	return func() {
		log.Debugf("%s end. Took: %s", functionName, time.Since(start))
	}
}

type logEntry struct {
	log   []byte
	level Level
}

// Logger is a subsystem logger. All messages are tagged with the subsystem
// name and routed through the owning Backend.
type Logger struct {
	lvl       Level
	tag       string
	b         *Backend
	writeChan chan<- logEntry
}

// Backend returns the log backend this logger writes to.
func (l *Logger) Backend() *Backend {
	return l.b
}

// Level returns the current logging level.
func (l *Logger) Level() Level {
	return Level(atomic.LoadUint32((*uint32)(&l.lvl)))
}

// SetLevel changes the logging level to the passed level.
func (l *Logger) SetLevel(logLevel Level) {
	atomic.StoreUint32((*uint32)(&l.lvl), uint32(logLevel))
}

// Trace formats message using the default formats for its operands and writes
// to log with LevelTrace.
func (l *Logger) Trace(args ...interface{}) {
	l.Write(LevelTrace, args...)
}

// Tracef formats message according to format specifier and writes to log with
// LevelTrace.
func (l *Logger) Tracef(format string, args ...interface{}) {
	l.Writef(LevelTrace, format, args...)
}

// Debug formats message using the default formats for its operands and writes
// to log with LevelDebug.
func (l *Logger) Debug(args ...interface{}) {
	l.Write(LevelDebug, args...)
}

// Debugf formats message according to format specifier and writes to log with
// LevelDebug.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.Writef(LevelDebug, format, args...)
}

// Info formats message using the default formats for its operands and writes
// to log with LevelInfo.
func (l *Logger) Info(args ...interface{}) {
	l.Write(LevelInfo, args...)
}

// Infof formats message according to format specifier and writes to log with
// LevelInfo.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Writef(LevelInfo, format, args...)
}

// Warn formats message using the default formats for its operands and writes
// to log with LevelWarn.
func (l *Logger) Warn(args ...interface{}) {
	l.Write(LevelWarn, args...)
}

// Warnf formats message according to format specifier and writes to log with
// LevelWarn.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.Writef(LevelWarn, format, args...)
}

// Error formats message using the default formats for its operands and writes
// to log with LevelError.
func (l *Logger) Error(args ...interface{}) {
	l.Write(LevelError, args...)
}

// Errorf formats message according to format specifier and writes to log with
// LevelError.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Writef(LevelError, format, args...)
}

// Critical formats message using the default formats for its operands and
// writes to log with LevelCritical.
func (l *Logger) Critical(args ...interface{}) {
	l.Write(LevelCritical, args...)
}

// Criticalf formats message according to format specifier and writes to log
// with LevelCritical.
func (l *Logger) Criticalf(format string, args ...interface{}) {
	l.Writef(LevelCritical, format, args...)
}

// Write formats message using the default formats for its operands and writes
// to log with the given logLevel.
func (l *Logger) Write(logLevel Level, args ...interface{}) {
	if l.Level() <= logLevel {
		l.print(logLevel, args...)
	}
}

// Writef formats message according to format specifier and writes to log with
// the given logLevel.
func (l *Logger) Writef(logLevel Level, format string, args ...interface{}) {
	if l.Level() <= logLevel {
		l.printf(logLevel, format, args...)
	}
}

func (l *Logger) print(lvl Level, args ...interface{}) {
	buf := l.header(lvl)
	fmt.Fprintln(buf, args...)
	l.send(lvl, buf)
}

func (l *Logger) printf(lvl Level, format string, args ...interface{}) {
	buf := l.header(lvl)
	fmt.Fprintf(buf, format, args...)
	buf.WriteString("\n")
	l.send(lvl, buf)
}

func (l *Logger) header(lvl Level) *bytes.Buffer {
	t := time.Now() // get as early as possible
	bytebuf := make([]byte, 0, normalLogSize)
	var file string
	var line int
	if l.b.flag&(LogFlagShortFile|LogFlagLongFile) != 0 {
		file, line = callsite(l.b.flag)
	}
	bytebuf = formatHeader(bytebuf, t, lvl.String(), l.tag, file, line)
	return bytes.NewBuffer(bytebuf)
}

// send hands the formatted entry to the backend goroutine. Entries written
// before the backend is started go directly to stderr so that early or
// test-time logging can never block on the unserviced write channel.
func (l *Logger) send(lvl Level, buf *bytes.Buffer) {
	if !l.b.IsRunning() {
		_, _ = os.Stderr.Write(buf.Bytes())
		return
	}
	l.writeChan <- logEntry{buf.Bytes(), lvl}
}

// calldepth is the call depth of the callsite function relative to the caller
// of the subsystem logger.
const calldepth = 4

// callsite returns the file name and line number of the callsite to the
// subsystem logger.
func callsite(flag uint32) (string, int) {
	_, file, line, ok := runtime.Caller(calldepth)
	if !ok {
		return "???", 0
	}
	if flag&LogFlagShortFile != 0 {
		short := file
		for i := len(file) - 1; i > 0; i-- {
			if os.IsPathSeparator(file[i]) {
				short = file[i+1:]
				break
			}
		}
		file = short
	}
	return file, line
}

// formatHeader appends a header in the default format 'YYYY-MM-DD hh:mm:ss.sss
// [LVL] TAG: '. If either of the LogFlagShortFile or LogFlagLongFile flags are
// specified, the file and line number are included after the tag:
// 'YYYY-MM-DD hh:mm:ss.sss [LVL] TAG file.go:123: '.
func formatHeader(buf []byte, t time.Time, lvl, tag, file string, line int) []byte {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()
	ms := t.Nanosecond() / 1e6

	buf = itoa(buf, year, 4)
	buf = append(buf, '-')
	buf = itoa(buf, int(month), 2)
	buf = append(buf, '-')
	buf = itoa(buf, day, 2)
	buf = append(buf, ' ')
	buf = itoa(buf, hour, 2)
	buf = append(buf, ':')
	buf = itoa(buf, min, 2)
	buf = append(buf, ':')
	buf = itoa(buf, sec, 2)
	buf = append(buf, '.')
	buf = itoa(buf, ms, 3)
	buf = append(buf, " ["...)
	buf = append(buf, lvl...)
	buf = append(buf, "] "...)
	buf = append(buf, tag...)
	if file != "" {
		buf = append(buf, ' ')
		buf = append(buf, file...)
		buf = append(buf, ':')
		buf = itoa(buf, line, -1)
	}
	buf = append(buf, ": "...)
	return buf
}

// itoa converts the integer to ASCII and appends it to buf, padded with zeros
// to the given width. A negative width avoids zero-padding.
func itoa(buf []byte, i int, wid int) []byte {
	var b [20]byte
	bp := len(b) - 1
	for i >= 10 || wid > 1 {
		wid--
		q := i / 10
		b[bp] = byte('0' + i - q*10)
		bp--
		i = q
	}
	b[bp] = byte('0' + i)
	return append(buf, b[bp:]...)
}
