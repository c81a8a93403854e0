package auditlog

import (
	"fmt"
	"os"
)

// File appends audit entries to a local text file. The file is opened and
// closed on every append so nothing is buffered between reports and external
// log rotation needs no signal.
type File struct {
	path string
}

// NewFile returns an appender for path. The file is created on first use.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the log file location.
func (f *File) Path() string {
	return f.path
}

// Append writes entry verbatim at the end of the file.
func (f *File) Append(entry string) error {
	fd, err := os.OpenFile(f.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	if _, err := fd.WriteString(entry); err != nil {
		_ = fd.Close()
		return fmt.Errorf("write audit log: %w", err)
	}
	if err := fd.Close(); err != nil {
		return fmt.Errorf("close audit log: %w", err)
	}
	return nil
}
