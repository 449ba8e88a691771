package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/crytic/medusa-statecache/logging/colors"
	"github.com/rs/zerolog"
)

// GlobalLogger describes a Logger that is disabled by default and is instantiated when a command starts. Each package
// should create its own sub-logger so that output can be filtered by service.
var GlobalLogger = NewLogger(zerolog.Disabled, false)

// Logger describes a custom logging object that can log events to any number of writers and can handle specialized
// output to console as well.
type Logger struct {
	// level describes the log level
	level zerolog.Level

	// multiLogger describes a logger that outputs to every writer in either structured or unstructured format.
	multiLogger zerolog.Logger

	// consoleLogger describes a logger that outputs colorized, unstructured text to stdout.
	consoleLogger zerolog.Logger

	// writers describes the io.Writer objects the multiLogger outputs to.
	writers []io.Writer

	// context describes the key-value pairs attached through NewSubLogger, re-applied when the writers change.
	context [][2]string
}

// LogFormat describes what format to log in
type LogFormat string

const (
	// STRUCTURED describes that logging should be done in structured JSON format
	STRUCTURED LogFormat = "structured"
	// UNSTRUCTURED describes that logging should be done in an unstructured format
	UNSTRUCTURED LogFormat = "unstructured"
)

// StructuredLogInfo describes a key-value mapping that can be used to log structured data
type StructuredLogInfo map[string]any

// NewLogger will create a new Logger object with a specific log level. The Logger can output to console, if enabled,
// and output logs to any number of arbitrary io.Writer channels
func NewLogger(level zerolog.Level, consoleEnabled bool, writers ...io.Writer) *Logger {
	// Disabled loggers stand in for the channels that were not requested
	baseConsoleLogger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	if consoleEnabled {
		consoleWriter := setupDefaultFormatting(zerolog.ConsoleWriter{Out: os.Stdout}, level)
		baseConsoleLogger = zerolog.New(consoleWriter).Level(level)
	}

	l := &Logger{
		level:         level,
		consoleLogger: baseConsoleLogger,
		writers:       writers,
	}
	l.rebuildMultiLogger()
	return l
}

// NewSubLogger will create a new Logger with unique context in the form of a key-value pair. The expected use of this
// function is for each package to have their own unique logger so that logs are "grep-able" based on some key
func (l *Logger) NewSubLogger(key string, value string) *Logger {
	return &Logger{
		level:         l.level,
		multiLogger:   l.multiLogger.With().Str(key, value).Logger(),
		consoleLogger: l.consoleLogger.With().Str(key, value).Logger(),
		writers:       append([]io.Writer(nil), l.writers...),
		context:       append(append([][2]string(nil), l.context...), [2]string{key, value}),
	}
}

// AddWriter will add a writer to the list of channels where log output will be sent. Adding a writer twice is a no-op.
func (l *Logger) AddWriter(writer io.Writer, format LogFormat) {
	for _, w := range l.writers {
		if unwrapWriter(w) == writer {
			return
		}
	}

	// Unstructured output to a writer never carries ANSI coloring
	if format == UNSTRUCTURED {
		writer = unstructuredWriter{ConsoleWriter: zerolog.ConsoleWriter{Out: writer, NoColor: true}, out: writer}
	}

	l.writers = append(l.writers, writer)
	l.rebuildMultiLogger()
}

// RemoveWriter will remove a writer from the list of writers that the logger manages. If the writer does not exist, this
// function is a no-op
func (l *Logger) RemoveWriter(writer io.Writer) {
	for i, w := range l.writers {
		if unwrapWriter(w) == writer {
			l.writers = append(l.writers[:i], l.writers[i+1:]...)
			l.rebuildMultiLogger()
			return
		}
	}
}

// Writers returns the number of writers the logger outputs to, excluding the console.
func (l *Logger) Writers() int {
	return len(l.writers)
}

// Level will get the log level of the Logger
func (l *Logger) Level() zerolog.Level {
	return l.level
}

// SetLevel will update the log level of the Logger
func (l *Logger) SetLevel(level zerolog.Level) {
	l.level = level
	l.multiLogger = l.multiLogger.Level(level)
	l.consoleLogger = l.consoleLogger.Level(level)
}

// Trace is a wrapper function that will log a trace event
func (l *Logger) Trace(args ...any) {
	l.log(l.consoleLogger.Trace(), l.multiLogger.Trace(), false, args...)
}

// Debug is a wrapper function that will log a debug event
func (l *Logger) Debug(args ...any) {
	l.log(l.consoleLogger.Debug(), l.multiLogger.Debug(), false, args...)
}

// Info is a wrapper function that will log an info event
func (l *Logger) Info(args ...any) {
	l.log(l.consoleLogger.Info(), l.multiLogger.Info(), false, args...)
}

// Warn is a wrapper function that will log a warning event
func (l *Logger) Warn(args ...any) {
	l.log(l.consoleLogger.Warn(), l.multiLogger.Warn(), false, args...)
}

// Error is a wrapper function that will log an error event.
func (l *Logger) Error(args ...any) {
	l.log(l.consoleLogger.Error(), l.multiLogger.Error(), false, args...)
}

// Panic is a wrapper function that will log a panic event
func (l *Logger) Panic(args ...any) {
	l.log(l.consoleLogger.Panic(), l.multiLogger.Panic(), true, args...)
}

func (l *Logger) log(consoleLog *zerolog.Event, multiLog *zerolog.Event, forceStack bool, args ...any) {
	consoleMsg, multiMsg, err, info := buildMsgs(args...)
	chainError(consoleLog, multiLog, err, forceStack || l.level <= zerolog.DebugLevel)
	chainStructuredLogInfoAndMsgs(consoleLog, multiLog, info, consoleMsg, multiMsg)
}

func (l *Logger) rebuildMultiLogger() {
	if len(l.writers) == 0 {
		l.multiLogger = zerolog.New(os.Stdout).Level(zerolog.Disabled)
		return
	}

	ctx := zerolog.New(zerolog.MultiLevelWriter(l.writers...)).Level(l.level).With().Timestamp()
	for _, kv := range l.context {
		ctx = ctx.Str(kv[0], kv[1])
	}
	l.multiLogger = ctx.Logger()
}

// unstructuredWriter is a zerolog.ConsoleWriter that remembers the writer it wraps so it can be found for removal.
type unstructuredWriter struct {
	zerolog.ConsoleWriter
	out io.Writer
}

func unwrapWriter(writer io.Writer) io.Writer {
	if w, ok := writer.(unstructuredWriter); ok {
		return w.out
	}
	return writer
}

// buildMsgs takes in a variadic list of arguments of any type and returns two strings and, optionally, an error and a
// StructuredLogInfo object. The first string is colorized for console logging while the second is plain text for
// file/structured logging.
func buildMsgs(args ...any) (string, string, error, StructuredLogInfo) {
	if len(args) == 0 {
		return "", "", nil, nil
	}

	colorCtx := colors.Reset
	consoleOutput := make([]string, 0)
	fileOutput := make([]string, 0)
	var info StructuredLogInfo
	var err error

	for _, arg := range args {
		switch t := arg.(type) {
		case colors.ColorFunc:
			// Switch the color context for every following argument
			colorCtx = t
		case StructuredLogInfo:
			// Only one structured log info can be provided for each log message
			info = t
		case error:
			// Only one error can be provided for each log message
			err = t
		case *LogBuffer:
			// Buffers carry their own color context
			console, file, _, _ := buildMsgs(t.Elements()...)
			consoleOutput = append(consoleOutput, console)
			fileOutput = append(fileOutput, file)
		default:
			consoleOutput = append(consoleOutput, colorCtx(t))
			fileOutput = append(fileOutput, fmt.Sprintf("%v", t))
		}
	}

	return strings.Join(consoleOutput, ""), strings.Join(fileOutput, ""), err, info
}

// chainError chains an error to both events. If debug is true, then a stack trace is added to both events as well.
func chainError(consoleLog *zerolog.Event, multiLog *zerolog.Event, err error, debug bool) {
	// Err is a no-op for a nil error
	consoleLog.Err(err)
	multiLog.Err(err)

	if debug {
		consoleLog.Stack()
		multiLog.Stack()
	}
}

// chainStructuredLogInfoAndMsgs chains any StructuredLogInfo provided to it, adds the associated messages, and sends
// out the logs to their respective channels.
func chainStructuredLogInfoAndMsgs(consoleLog *zerolog.Event, multiLog *zerolog.Event, info StructuredLogInfo, consoleMsg string, multiMsg string) {
	if info != nil {
		consoleLog.Any("info", info)
		multiLog.Any("info", info)
	}

	// The multi logger message is deferred so every channel receives a panic log
	defer multiLog.Msg(multiMsg)
	consoleLog.Msg(consoleMsg)
}

// setupDefaultFormatting will update the console logger's formatting to the statecache standard
func setupDefaultFormatting(writer zerolog.ConsoleWriter, level zerolog.Level) zerolog.ConsoleWriter {
	// No timestamps on console
	writer.FormatTimestamp = func(i interface{}) string {
		return ""
	}

	writer.FormatLevel = func(i any) string {
		level, err := zerolog.ParseLevel(fmt.Sprintf("%v", i))
		if err != nil {
			return fmt.Sprintf("%v", i)
		}

		switch level {
		case zerolog.TraceLevel:
			return colors.CyanBold(zerolog.LevelTraceValue)
		case zerolog.DebugLevel:
			return colors.BlueBold(zerolog.LevelDebugValue)
		case zerolog.InfoLevel:
			return colors.GreenBold(colors.LEFT_ARROW)
		case zerolog.WarnLevel:
			return colors.YellowBold(zerolog.LevelWarnValue)
		case zerolog.ErrorLevel:
			return colors.RedBold(zerolog.LevelErrorValue)
		case zerolog.FatalLevel:
			return colors.RedBold(zerolog.LevelFatalValue)
		case zerolog.PanicLevel:
			return colors.RedBold(zerolog.LevelPanicValue)
		default:
			return fmt.Sprintf("%v", i)
		}
	}

	// Above debug level, the service component is noise on console
	if level > zerolog.DebugLevel {
		writer.FieldsExclude = []string{SERVICE_KEY}
	}

	return writer
}
