package logger

import (
	"log"
	"os"
)

type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

type stdLogger struct {
	info  *log.Logger
	err   *log.Logger
	debug *log.Logger
}

func New() Logger {
	return &stdLogger{
		info:  log.New(os.Stdout, "[INFO] ", log.LstdFlags),
		err:   log.New(os.Stderr, "[ERROR] ", log.LstdFlags),
		debug: log.New(os.Stdout, "[DEBUG] ", log.LstdFlags),
	}
}

func (l *stdLogger) Info(msg string, args ...any)  { write(l.info, msg, args) }
func (l *stdLogger) Error(msg string, args ...any) { write(l.err, msg, args) }
func (l *stdLogger) Debug(msg string, args ...any) { write(l.debug, msg, args) }

func write(out *log.Logger, msg string, args []any) {
	if len(args) > 0 {
		out.Printf(msg+" %v", args...)
		return
	}
	out.Println(msg)
}

// Nop discards everything. Handy for tests that assert on returned values only.
func Nop() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Debug(string, ...any) {}
