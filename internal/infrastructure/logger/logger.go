package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

var (
	Info  *log.Logger
	Error *log.Logger
	Debug *log.Logger
	Warn  *log.Logger
)

type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var level atomic.Int32

func init() {
	SetOutput(os.Stdout)
	level.Store(int32(LevelInfo))
}

// SetOutput redirects all four loggers.
func SetOutput(w io.Writer) {
	logFlags := log.Ldate | log.Ltime | log.LUTC | log.Lshortfile

	Info = log.New(w, "INFO: ", logFlags)
	Error = log.New(w, "ERROR: ", logFlags)
	Debug = log.New(w, "DEBUG: ", logFlags)
	Warn = log.New(w, "WARN: ", logFlags)
}

func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func SetLevel(l Level) {
	level.Store(int32(l))
}

func enabled(l Level) bool {
	return Level(level.Load()) <= l
}

// Component is a leveled logger that tags every line with a component name.
type Component struct {
	prefix string
}

func New(component string) *Component {
	if component == "" {
		return &Component{}
	}
	return &Component{prefix: "[" + component + "] "}
}

const callDepth = 3

func (c *Component) output(l Level, dst *log.Logger, format string, args []any) {
	if !enabled(l) {
		return
	}
	_ = dst.Output(callDepth, c.prefix+fmt.Sprintf(format, args...))
}

func (c *Component) Debugf(format string, args ...any) {
	c.output(LevelDebug, Debug, format, args)
}

func (c *Component) Infof(format string, args ...any) {
	c.output(LevelInfo, Info, format, args)
}

func (c *Component) Warnf(format string, args ...any) {
	c.output(LevelWarn, Warn, format, args)
}

func (c *Component) Errorf(format string, args ...any) {
	c.output(LevelError, Error, format, args)
}
