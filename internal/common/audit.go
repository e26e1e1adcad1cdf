package common

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FieldSet is one assignment as the caller wrote it.
type FieldSet struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// EncodeEntry records one word edit: the layout used, the assignments in
// the order they were applied and the raw word before and after. A field
// written twice appears twice.
type EncodeEntry struct {
	Layout    string     `json:"layout"`
	Set       []FieldSet `json:"set"`
	BeforeHex string     `json:"beforeHex"`
	AfterHex  string     `json:"afterHex"`
	Overflows []string   `json:"overflows,omitempty"`
	Source    string     `json:"source,omitempty"`
	Ts        time.Time  `json:"ts"`
}

// WordHex formats a raw word the way audit entries store it.
func WordHex(raw uint32) string {
	return fmt.Sprintf("%08X", raw)
}

func parseWordHex(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty word")
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// Before decodes BeforeHex.
func (e EncodeEntry) Before() (uint32, error) {
	return parseWordHex(e.BeforeHex)
}

// After decodes AfterHex.
func (e EncodeEntry) After() (uint32, error) {
	return parseWordHex(e.AfterHex)
}

// AuditLog provides append-only access to a JSONL log of encode operations.
type AuditLog struct {
	path string
	mu   sync.Mutex
}

func NewAuditLog(path string) *AuditLog {
	return &AuditLog{path: path}
}

func (a *AuditLog) Path() string {
	if a == nil {
		return ""
	}
	return a.path
}

// Append writes entry as one JSON line, creating the file and its
// directory on first use.
func (a *AuditLog) Append(entry EncodeEntry) error {
	if a == nil {
		return errors.New("nil audit log")
	}
	if entry.Layout == "" {
		return errors.New("audit entry missing layout")
	}
	if entry.Ts.IsZero() {
		entry.Ts = time.Now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	dir := filepath.Dir(a.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return f.Sync()
}

// ReadAuditLog loads every entry from a JSONL audit file.
func ReadAuditLog(path string) ([]EncodeEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	var entries []EncodeEntry
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var entry EncodeEntry
		if err := json.Unmarshal([]byte(text), &entry); err != nil {
			return nil, fmt.Errorf("decode audit entry on line %d: %w", line, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
