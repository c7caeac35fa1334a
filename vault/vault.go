// Package vault stores negative prompt examples. The vault is an explicitly
// owned, injectable object with an optional append-only newline-delimited
// JSON log behind it; there is no process-wide instance.
package vault

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

// maxLogLine caps a single NDJSON log line on replay.
const maxLogLine = 4 * 1024 * 1024

// Record is one vault entry: a single JSON object per log line.
type Record struct {
	ID       string         `json:"id,omitempty"`
	Role     string         `json:"role"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Vault is a mutex-guarded in-memory example store. When opened with a path
// it replays the log on open and appends one line per added record.
type Vault struct {
	mu      sync.Mutex
	records []Record
	path    string
}

// New creates an in-memory vault with no persistence.
func New() *Vault {
	return &Vault{}
}

// Open creates a vault backed by an NDJSON log at path. A missing file is
// fine; it is created on the first add.
func Open(path string) (*Vault, error) {
	v := &Vault{path: path}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return v, nil
		}
		return nil, fmt.Errorf("open vault log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	// Stored examples can exceed bufio's default 64 KiB line limit.
	scanner.Buffer(make([]byte, 0, 64*1024), maxLogLine)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("corrupt vault log line: %w", err)
		}
		v.records = append(v.records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vault log: %w", err)
	}
	return v, nil
}

// Add stores a record, skipping exact duplicate content. The record gets an
// id when it has none.
func (v *Vault) Add(role, content string, metadata map[string]any) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, rec := range v.records {
		if rec.Content == content {
			return nil
		}
	}

	rec := Record{ID: uuid.New().String(), Role: role, Content: content, Metadata: metadata}
	if err := v.appendToLog(rec); err != nil {
		return err
	}
	v.records = append(v.records, rec)
	return nil
}

// AddExample stores a bare negative example string.
func (v *Vault) AddExample(content string) error {
	return v.Add("negative", content, nil)
}

// Remove drops the record with the given content. Removing an absent record
// is a no-op.
func (v *Vault) Remove(content string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	kept := v.records[:0:0]
	removed := false
	for _, rec := range v.records {
		if !removed && rec.Content == content {
			removed = true
			continue
		}
		kept = append(kept, rec)
	}
	if !removed {
		return nil
	}
	v.records = kept
	return v.rewriteLog()
}

// List returns a copy of every record in insertion order.
func (v *Vault) List() []Record {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Record(nil), v.records...)
}

// Examples returns the stored contents, for feeding a prompt build's
// negative examples.
func (v *Vault) Examples() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	examples := make([]string, len(v.records))
	for i, rec := range v.records {
		examples[i] = rec.Content
	}
	return examples
}

func (v *Vault) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.records)
}

func (v *Vault) appendToLog(rec Record) error {
	if v.path == "" {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode vault record: %w", err)
	}
	file, err := os.OpenFile(v.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open vault log for append: %w", err)
	}
	defer file.Close()
	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append vault record: %w", err)
	}
	return nil
}

// rewriteLog replaces the log after a removal, via temp file and atomic
// rename.
func (v *Vault) rewriteLog() error {
	if v.path == "" {
		return nil
	}
	tmp := v.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create vault temp log: %w", err)
	}
	writer := bufio.NewWriter(file)
	for _, rec := range v.records {
		data, err := json.Marshal(rec)
		if err != nil {
			file.Close()
			os.Remove(tmp)
			return fmt.Errorf("encode vault record: %w", err)
		}
		writer.Write(data)
		writer.WriteByte('\n')
	}
	if err := writer.Flush(); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("flush vault log: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close vault temp log: %w", err)
	}
	if err := os.Rename(tmp, v.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace vault log: %w", err)
	}
	return nil
}

// Path returns the backing log path, empty for in-memory vaults.
func (v *Vault) Path() string {
	return v.path
}
