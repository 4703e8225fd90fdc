// Package oplog keeps an append-only, human-readable record of the
// operations performed on a volume.
//
// Recording is best-effort: a failure to write the log is reported through
// the diagnostic logger and never fails the operation being recorded.
package oplog

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/marmos91/blockfs/internal/logger"
)

// TimestampFormat is the layout of the bracketed timestamp on each line.
const TimestampFormat = "2006-01-02 15:04:05"

// Recorder receives one description per mutating or listing call.
type Recorder interface {
	Record(description string)
}

// Nop discards every record.
type Nop struct{}

func (Nop) Record(string) {}

// FileLog appends "[timestamp] description" lines to a file.
//
// The file is opened for each record so that rotation or deletion by an
// operator is picked up without restarting.
type FileLog struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewFileLog returns a recorder appending to path.
func NewFileLog(path string) *FileLog {
	return &FileLog{path: path, now: time.Now}
}

// Path returns the log file path.
func (l *FileLog) Path() string {
	return l.path
}

func (l *FileLog) Record(description string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := fmt.Sprintf("[%s] %s\n", l.now().Format(TimestampFormat), description)

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logger.Warn("oplog: cannot open %s: %v", l.path, err)
		return
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString(line); err != nil {
		logger.Warn("oplog: cannot append to %s: %v", l.path, err)
	}
}

// Memory keeps records in memory; used by tests and embedders that surface
// the log themselves.
type Memory struct {
	mu      sync.Mutex
	entries []string
}

func (m *Memory) Record(description string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, description)
}

// Entries returns a copy of the recorded descriptions.
func (m *Memory) Entries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.entries...)
}
