package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/harunnryd/statusrole/internal/logger"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"
)

const (
	journalFile     = "transitions.jsonl"
	journalLockFile = "transitions.lock"
)

// Transition is one journaled role decision.
type Transition struct {
	Timestamp     time.Time `json:"ts"`
	TraceID       string    `json:"trace_id,omitempty"`
	Handler       string    `json:"handler"`
	Action        string    `json:"action"`
	Outcome       string    `json:"outcome"`
	MemberID      string    `json:"member_id"`
	MemberName    string    `json:"member_name,omitempty"`
	RoleID        string    `json:"role_id"`
	RoleName      string    `json:"role_name,omitempty"`
	Pattern       string    `json:"pattern"`
	Error         string    `json:"error,omitempty"`
	ErrorCategory string    `json:"error_category,omitempty"`
}

type JournalConfig struct {
	// RotateMaxBytes rotates the active file once it grows past this size. Zero disables rotation.
	RotateMaxBytes int64
}

// Journal appends transitions as JSON lines. Appends are serialized in-process by a mutex
// and across processes by an advisory file lock.
type Journal struct {
	mu       sync.Mutex
	dir      string
	path     string
	lock     *flock.Flock
	maxBytes int64
	now      func() time.Time
}

func NewJournal(dir string, cfg JournalConfig) (*Journal, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	return &Journal{
		dir:      dir,
		path:     filepath.Join(dir, journalFile),
		lock:     flock.New(filepath.Join(dir, journalLockFile)),
		maxBytes: cfg.RotateMaxBytes,
		now:      time.Now,
	}, nil
}

func (j *Journal) Path() string {
	return j.path
}

func (j *Journal) Record(ctx context.Context, t Transition) error {
	if t.Timestamp.IsZero() {
		t.Timestamp = j.now()
	}
	if t.TraceID == "" {
		t.TraceID = logger.GetTraceID(ctx)
	}

	line, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal transition: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.lock.Lock(); err != nil {
		return fmt.Errorf("lock journal: %w", err)
	}
	defer func() {
		if err := j.lock.Unlock(); err != nil {
			slog.Warn("Failed to unlock journal", "path", j.path, "error", err)
		}
	}()

	if err := j.rotateIfNeeded(); err != nil {
		slog.Warn("Journal rotation failed", "path", j.path, "error", err)
	}

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return nil
}

func (j *Journal) rotateIfNeeded() error {
	if j.maxBytes <= 0 {
		return nil
	}
	info, err := os.Stat(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Size() < j.maxBytes {
		return nil
	}

	rotated := filepath.Join(j.dir, fmt.Sprintf("transitions-%s.jsonl", j.now().UTC().Format("20060102T150405.000000000")))
	if err := atomic.ReplaceFile(j.path, rotated); err != nil {
		return fmt.Errorf("rotate journal: %w", err)
	}
	slog.Info("Journal rotated", "path", rotated, "size", info.Size())
	return nil
}

// Read returns every transition in the active journal file, skipping malformed lines.
func (j *Journal) Read() ([]Transition, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(j.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Transition
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var t Transition
		if err := json.Unmarshal(line, &t); err != nil {
			slog.Warn("Failed to parse journal line", "line", string(line), "error", err)
			continue
		}
		out = append(out, t)
	}
	return out, scanner.Err()
}
