package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/harunnryd/statusrole/internal/config"
	"github.com/harunnryd/statusrole/internal/errors"

	"github.com/gofrs/flock"
)

const instanceLockFile = "instance.lock"

// FileLock guards a workspace against a second bot instance applying the same rules.
type FileLock struct {
	fileLock    *flock.Flock
	lockPath    string
	workspaceID string
	acquiredAt  time.Time
	mu          sync.RWMutex
}

type FileLockConfig struct {
	LockTimeout  time.Duration
	LockRetry    time.Duration
	LockMaxRetry int
}

func DefaultFileLockConfig() *FileLockConfig {
	lockTimeout, _ := config.DurationOrDefault(config.DefaultStoreLockTimeout, config.DefaultStoreLockTimeout)
	lockRetry, _ := config.DurationOrDefault(config.DefaultStoreLockRetry, config.DefaultStoreLockRetry)

	return &FileLockConfig{
		LockTimeout:  lockTimeout,
		LockRetry:    lockRetry,
		LockMaxRetry: config.DefaultStoreLockMaxRetry,
	}
}

// NewFileLock acquires the instance lock under basePath, retrying until cfg.LockTimeout.
func NewFileLock(workspaceID, basePath string, cfg *FileLockConfig) (*FileLock, error) {
	if cfg == nil {
		cfg = DefaultFileLockConfig()
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lockPath := filepath.Join(basePath, instanceLockFile)
	fl := &FileLock{
		fileLock:    flock.New(lockPath),
		lockPath:    lockPath,
		workspaceID: workspaceID,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.LockTimeout)
	defer cancel()

	if err := fl.acquireWithRetry(ctx, cfg); err != nil {
		return nil, err
	}

	fl.acquiredAt = time.Now()
	slog.Info("Instance lock acquired",
		"workspace", workspaceID,
		"path", lockPath,
		"acquired_at", fl.acquiredAt.Format(time.RFC3339Nano),
	)

	return fl, nil
}

// acquireWithRetry polls TryLock every LockRetry. Running out of attempts and reaching
// the ctx deadline while another process holds the lock are both conflicts.
func (fl *FileLock) acquireWithRetry(ctx context.Context, cfg *FileLockConfig) error {
	attempts := max(cfg.LockMaxRetry, 1)
	for i := 0; i < attempts; i++ {
		locked, err := fl.fileLock.TryLock()
		if err != nil {
			return fmt.Errorf("failed to attempt lock: %w", err)
		}
		if locked {
			return nil
		}
		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return fl.contended(cfg)
		case <-time.After(cfg.LockRetry):
		}
	}
	return fl.contended(cfg)
}

func (fl *FileLock) contended(cfg *FileLockConfig) error {
	return errors.Conflict(fmt.Sprintf("workspace %s is locked by another instance (timeout after %v)",
		fl.workspaceID, cfg.LockTimeout))
}

func (fl *FileLock) Unlock() {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.fileLock == nil {
		slog.Warn("Instance lock already released", "workspace", fl.workspaceID)
		return
	}

	if err := fl.fileLock.Unlock(); err != nil {
		slog.Error("Failed to release instance lock",
			"workspace", fl.workspaceID,
			"path", fl.lockPath,
			"error", err,
		)
	} else {
		slog.Info("Instance lock released",
			"workspace", fl.workspaceID,
			"held_duration_ms", time.Since(fl.acquiredAt).Milliseconds(),
		)
	}

	fl.fileLock = nil
}

func (fl *FileLock) IsLocked() bool {
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	return fl.fileLock != nil
}

func (fl *FileLock) HeldDuration() time.Duration {
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	if fl.acquiredAt.IsZero() {
		return 0
	}
	return time.Since(fl.acquiredAt)
}

// CleanupStaleLocks reports lock files older than maxAge and removes them when forceCleanup is set.
func CleanupStaleLocks(basePath string, maxAge time.Duration, forceCleanup bool) error {
	lockPath := filepath.Join(basePath, instanceLockFile)
	info, err := os.Stat(lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	age := time.Since(info.ModTime())
	if age <= maxAge {
		return nil
	}

	slog.Warn("Found stale lock file", "path", lockPath, "age", age, "max_age", maxAge)
	if !forceCleanup {
		slog.Info("Stale lock detected but not cleaning (use --force-clean-locks to remove)", "path", lockPath)
		return nil
	}

	if err := os.Remove(lockPath); err != nil {
		slog.Error("Failed to remove stale lock file", "path", lockPath, "error", err)
		return err
	}

	slog.Info("Stale lock file removed", "path", lockPath)
	return nil
}
