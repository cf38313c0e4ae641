// Package logger is a standardized event logging framework for the shell.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"time"
)

// EventType names what happened.
type EventType string

const (
	EventSessionStart EventType = "session_start"
	EventSessionEnd   EventType = "session_end"
	EventPipelineRun  EventType = "pipeline_run"
	EventJobStarted   EventType = "job_started"
	EventJobCompleted EventType = "job_completed"
	EventInvalidInput EventType = "invalid_input"
)

// Event is one log record.
type Event struct {
	TimestampMicros int64     `json:"timestamp_micros"`
	SessionID       string    `json:"session_id,omitempty"`
	Type            EventType `json:"type"`

	// Command is the raw input line for pipeline and job events.
	Command string `json:"command,omitempty"`
	// JobID is set for job events.
	JobID int `json:"job_id,omitempty"`
	// Pid is the lead process of the job, for job events.
	Pid int `json:"pid,omitempty"`
	// Error carries the message for invalid_input events.
	Error string `json:"error,omitempty"`
}

// LogRecorder is a callback that stores events in an external datastore.
type LogRecorder func(e *Event) error

// Logger captures interaction events for the shell session log.
type Logger struct {
	Record LogRecorder
}

// NewJsonLinesLogRecorder creates a Logger that exports logs in newline
// delimited JSON object format.
func NewJsonLinesLogRecorder(w io.Writer) *Logger {
	return &Logger{
		Record: func(e *Event) error {
			entry, err := json.Marshal(e)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, string(entry))
			return err
		},
	}
}

// NewNopLogger creates a Logger that discards every event.
func NewNopLogger() *Logger {
	return &Logger{
		Record: func(e *Event) error { return nil },
	}
}

func (l *Logger) recordEvent(sessionID string, e Event) error {
	e.TimestampMicros = time.Now().UnixNano() / int64(time.Microsecond)
	e.SessionID = sessionID

	return l.Record(&e)
}

// NewSession creates a logger with an attached session ID.
func (l *Logger) NewSession() *SessionLogger {
	return &SessionLogger{Logger: l, sessionID: fmt.Sprintf("%d", rand.Uint64())}
}

// Sessionless creates a logger without a session ID.
func (l *Logger) Sessionless() *SessionLogger {
	return &SessionLogger{Logger: l, sessionID: ""}
}

// SessionLogger logs events with a shared session ID.
type SessionLogger struct {
	*Logger
	sessionID string
}

// Record stamps the event with the session ID and current time and stores it.
func (l *SessionLogger) Record(e Event) error {
	return l.recordEvent(l.sessionID, e)
}
