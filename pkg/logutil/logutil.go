// Package logutil owns the process-wide diagnostic sink.
//
// Every package obtains its logger with GetLogger. Loggers follow the sink:
// after SetOutput or SetLevel, loggers obtained earlier write to the new
// destination.
package logutil

import (
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu    sync.RWMutex
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	core  zapcore.Core
)

func init() {
	setOutput(zapcore.Lock(os.Stderr),
		isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()))
}

// GetLogger gets a logger with the given name. The name is included in every
// entry.
func GetLogger(name string) *zap.SugaredLogger {
	return zap.New(sinkCore{}).Named(name).Sugar()
}

// SetOutput redirects the diagnostic sink to the given writer. Output written
// to anything other than a terminal is never colored.
func SetOutput(w io.Writer) {
	f, ok := w.(*os.File)
	setOutput(zapcore.AddSync(w), ok && isatty.IsTerminal(f.Fd()))
}

// SetLevel sets the minimal level of entries written to the sink.
func SetLevel(l zapcore.Level) {
	level.SetLevel(l)
}

func setOutput(ws zapcore.WriteSyncer, color bool) {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = ""
	if color {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	mu.Lock()
	defer mu.Unlock()
	core = zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), ws, level)
}

func currentCore() zapcore.Core {
	mu.RLock()
	defer mu.RUnlock()
	return core
}

// sinkCore forwards to whatever core is current when an entry is written.
type sinkCore struct{ fields []zapcore.Field }

func (c sinkCore) Enabled(l zapcore.Level) bool { return level.Enabled(l) }

func (c sinkCore) With(fields []zapcore.Field) zapcore.Core {
	all := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	all = append(all, c.fields...)
	return sinkCore{append(all, fields...)}
}

func (c sinkCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(e.Level) {
		return ce.AddCore(e, c)
	}
	return ce
}

func (c sinkCore) Write(e zapcore.Entry, fields []zapcore.Field) error {
	all := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	all = append(all, c.fields...)
	return currentCore().Write(e, append(all, fields...))
}

func (c sinkCore) Sync() error { return currentCore().Sync() }
