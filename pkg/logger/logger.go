package logx

import (
	"io"

	"github.com/esg-screener/server/internal/core"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var DefaultLoggerOpts = &LoggerOpts{
	Environment: core.Development,
}

type LoggerOpts struct {
	Environment core.Environment
	// Output overrides the destination; nil keeps stderr.
	Output io.Writer
}

func safe(opts ...LoggerOpts) *LoggerOpts {
	if len(opts) == 0 {
		return DefaultLoggerOpts
	}
	return &opts[0]
}

func Init(opts ...LoggerOpts) {
	o := safe(opts...)
	switch {
	case o.Environment == core.Production:
		l := log.Logger
		if o.Output != nil {
			l = zerolog.New(o.Output).With().Timestamp().Logger()
		}
		log.Logger = l.Level(zerolog.InfoLevel)
	case o.Environment == core.Testing:
		log.Logger = zerolog.New(io.Discard)
	default:
		cw := zerolog.NewConsoleWriter()
		if o.Output != nil {
			cw.Out = o.Output
		}
		log.Logger = zerolog.New(cw).With().Timestamp().Caller().Logger()
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	}
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Panic() *zerolog.Event {
	return log.Panic()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}
