package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

const (
	SourceSecure   = "secure"
	SourceFrontend = "frontend"
)

const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeReceived = "received"
)

// ErrLogNotFound is returned by repositories when nothing has been persisted yet.
var ErrLogNotFound = errors.New("log not found")

type LogEntry struct {
	Seq       int64           `json:"seq" bson:"seq" db:"seq"`
	ID        string          `json:"id" bson:"_id" db:"id"`
	Timestamp time.Time       `json:"timestamp" bson:"timestamp" db:"logged_at"`
	Source    string          `json:"source" bson:"source" db:"source"`
	ClientIP  string          `json:"client_ip" bson:"client_ip" db:"client_ip"`
	Headers   Headers         `json:"headers" bson:"headers" db:"headers"`
	Body      json.RawMessage `json:"body,omitempty" bson:"body,omitempty" db:"body"`
	Path      string          `json:"path" bson:"path" db:"path"`
	Result    Result          `json:"result" bson:"result" db:"result"`
}

// Result is the outcome recorded alongside each entry.
type Result struct {
	Outcome    string `json:"outcome" bson:"outcome"`
	Reason     string `json:"reason,omitempty" bson:"reason,omitempty"`
	Detail     string `json:"detail,omitempty" bson:"detail,omitempty"`
	StatusCode int    `json:"status_code,omitempty" bson:"status_code,omitempty"`
}

// Clone returns a copy that shares no mutable state with e.
func (e LogEntry) Clone() LogEntry {
	out := e
	out.Headers = e.Headers.Clone()
	if e.Body != nil {
		out.Body = append(json.RawMessage(nil), e.Body...)
	}
	return out
}

// MarshalLogArray encodes entries as a JSON array with one compact entry per line.
func MarshalLogArray(entries []LogEntry) ([]byte, error) {
	lines := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		line, err := json.Marshal(e)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return JoinArrayLines(lines), nil
}

// JoinArrayLines writes already encoded items as a JSON array, one per line.
func JoinArrayLines(lines []json.RawMessage) []byte {
	var buf bytes.Buffer
	buf.WriteString("[")
	for i, line := range lines {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n")
		buf.Write(line)
	}
	if len(lines) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("]\n")
	return buf.Bytes()
}
