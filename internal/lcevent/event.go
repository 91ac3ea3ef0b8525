// Package lcevent is the event-service collaborator named in spec.md §6:
// emit(event_id, severity, formatted_text).
package lcevent

import (
	"github.com/sirupsen/logrus"
)

// Severity is the event classification the bus's event service expects.
type Severity uint8

const (
	Debug Severity = iota
	Info
	Error
	Critical
)

func (s Severity) String() string {
	switch s {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Error:
		return "ERROR"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Emitter is the event service's inbound contract. Every component that
// reports a classified event (command handler, actionpoint evaluator)
// takes one of these rather than logging directly.
type Emitter interface {
	Emit(id uint16, severity Severity, text string)
}

// LogrusEmitter routes events through a structured logger, the way the app
// would forward them onto the bus's event pipe in absence of an actual
// flight event service.
type LogrusEmitter struct {
	Log *logrus.Logger
}

func NewLogrusEmitter(log *logrus.Logger) *LogrusEmitter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LogrusEmitter{Log: log}
}

func (e *LogrusEmitter) Emit(id uint16, severity Severity, text string) {
	entry := e.Log.WithFields(logrus.Fields{
		"event_id": id,
		"severity": severity.String(),
	})
	switch severity {
	case Debug:
		entry.Debug(text)
	case Info:
		entry.Info(text)
	case Error, Critical:
		entry.Error(text)
	default:
		entry.Warn(text)
	}
}
