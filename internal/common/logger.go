package common

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogger configures the global zerolog logger. dev gets a console writer,
// every other environment logs JSON.
func SetupLogger(level, env string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if env == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// ServiceIdentifier names the component a ServiceLogger belongs to. It has the
// shape of dicontainer-go's instance ID so containers can register the same types.
type ServiceIdentifier interface {
	ID() string
}

// ServiceLogger tags every event with the owning service's ID.
type ServiceLogger struct {
	logger zerolog.Logger
}

func NewServiceLogger(svc ServiceIdentifier) *ServiceLogger {
	return &ServiceLogger{
		logger: log.With().Str("service", svc.ID()).Logger(),
	}
}

// NewServiceLoggerWith builds a ServiceLogger on top of an explicit base logger.
func NewServiceLoggerWith(base zerolog.Logger, svc ServiceIdentifier) *ServiceLogger {
	return &ServiceLogger{
		logger: base.With().Str("service", svc.ID()).Logger(),
	}
}

func (l *ServiceLogger) Info() *zerolog.Event {
	return l.logger.Info()
}

func (l *ServiceLogger) Error() *zerolog.Event {
	return l.logger.Error()
}

func (l *ServiceLogger) Warn() *zerolog.Event {
	return l.logger.Warn()
}

func (l *ServiceLogger) Debug() *zerolog.Event {
	return l.logger.Debug()
}
