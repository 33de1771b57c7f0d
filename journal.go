package ballot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// OpenJournal opens (or creates) the durable event journal at the given
// path. The journal is an append-only JSON lines file: one StreamRecord per
// line in global sequence order. Existing records are never rewritten;
// reopening an existing journal appends after its last record.
func OpenJournal(path string) (*Journal, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("could not open journal at %s: %s", path, err)
	}

	return &Journal{path: path, file: file, buf: bufio.NewWriter(file)}, nil
}

// Journal persists the event stream to disk so that external consumers can
// replay the complete ordered history of the ledger. Appends happen on the
// single stream goroutine; the lock only protects against a Close racing a
// late append.
type Journal struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	buf    *bufio.Writer
	writes uint64
}

// Append serializes the record as one JSON line at the end of the journal.
func (j *Journal) Append(record *StreamRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return fmt.Errorf("journal at %s is closed", j.path)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	if _, err = j.buf.Write(data); err != nil {
		return err
	}
	if err = j.buf.WriteByte('\n'); err != nil {
		return err
	}

	j.writes++
	return j.buf.Flush()
}

// Writes returns the number of records appended since the journal was opened.
func (j *Journal) Writes() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.writes
}

// Close flushes and syncs the journal to disk. Appends after Close fail.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return nil
	}

	if err := j.buf.Flush(); err != nil {
		return err
	}
	if err := j.file.Sync(); err != nil {
		return err
	}

	err := j.file.Close()
	j.file = nil
	j.buf = nil
	return err
}
