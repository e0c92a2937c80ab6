// Package logger holds the process-wide leveled logger. It is the same
// gommon logger echo uses internally, so request logs and application logs
// share one format.
package logger

import (
	"io"
	"os"

	"github.com/labstack/gommon/log"
)

const (
	textHeader = `${time_rfc3339} ${level} ${short_file}:${line}`
	jsonHeader = `{"time":"${time_rfc3339}","level":"${level}","file":"${short_file}","line":"${line}"}`
)

var std = newLogger(os.Stdout, false)

func newLogger(out io.Writer, production bool) *log.Logger {
	l := log.New("social-graph")
	l.SetOutput(out)
	if production {
		l.SetHeader(jsonHeader)
		l.SetLevel(log.INFO)
	} else {
		l.SetHeader(textHeader)
		l.SetLevel(log.DEBUG)
		l.EnableColor()
	}
	return l
}

// Setup replaces the default logger. Call once from main.
func Setup(out io.Writer, production bool) *log.Logger {
	std = newLogger(out, production)
	return std
}

// Default returns the current logger, e.g. for assigning to echo.Logger.
func Default() *log.Logger {
	return std
}

func Debugf(format string, args ...interface{}) { std.Debugf(format, args...) }
func Infof(format string, args ...interface{})  { std.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { std.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { std.Errorf(format, args...) }

// Infoj writes a structured entry.
func Infoj(fields log.JSON) { std.Infoj(fields) }
