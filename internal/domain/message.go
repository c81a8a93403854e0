package domain

import (
	"fmt"
	"time"
)

// LogTimeLayout is the timestamp prefix of audit log entries (YY/MM/DD HH:MM:SS).
const LogTimeLayout = "06/01/02 15:04:05"

// Station identifies the CWOP submitter.
type Station struct {
	Callsign      string
	Passcode      string
	ClientName    string
	ClientVersion string
}

// Message is one CWOP submission built from a single feed line.
type Message struct {
	Header string // login line, CRLF terminated
	Report string // "<callsign>><line>", CRLF terminated
}

// NewMessage builds the CWOP submission for a matched feed line.
func NewMessage(st Station, line string) Message {
	return Message{
		Header: fmt.Sprintf("user %s pass %s vers %s %s\r\n",
			st.Callsign, st.Passcode, st.ClientName, st.ClientVersion),
		Report: fmt.Sprintf("%s>%s\r\n", st.Callsign, line),
	}
}

// Payload is the HTTP request body: header followed by report.
func (m Message) Payload() []byte {
	return []byte(m.Header + m.Report)
}

// LogEntry formats the audit log line for the report at t, in t's location.
// The report's own CRLF terminates the entry.
func (m Message) LogEntry(t time.Time) string {
	return t.Format(LogTimeLayout) + " " + m.Report
}
