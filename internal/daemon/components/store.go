package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/statusrole/internal/config"
	"github.com/harunnryd/statusrole/internal/daemon"
	"github.com/harunnryd/statusrole/internal/errors"
	"github.com/harunnryd/statusrole/internal/store"
)

// StoreComponent holds the workspace instance lock and, when enabled, the
// transition journal.
type StoreComponent struct {
	workspaceID       string
	workspaceRootPath string
	storeCfg          *config.StoreConfig
	lock              *store.FileLock
	journal           *store.Journal
	initialized       bool
	started           bool
	mu                sync.RWMutex
	startTime         time.Time
}

func NewStoreComponent(workspaceID string, workspaceRootPath string, storeCfg *config.StoreConfig) *StoreComponent {
	return &StoreComponent{
		workspaceID:       workspaceID,
		workspaceRootPath: workspaceRootPath,
		storeCfg:          storeCfg,
	}
}

func (s *StoreComponent) Name() string {
	return "Store"
}

func (s *StoreComponent) Dependencies() []string {
	return []string{}
}

func (s *StoreComponent) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("Store init cancelled: %w", err)
	}
	if s.storeCfg == nil {
		return fmt.Errorf("store config not provided")
	}

	lockTimeout, err := config.DurationOrDefault(s.storeCfg.LockTimeout, config.DefaultStoreLockTimeout)
	if err != nil {
		return fmt.Errorf("parse store lock timeout: %w", err)
	}
	lockRetry, err := config.DurationOrDefault(s.storeCfg.LockRetry, config.DefaultStoreLockRetry)
	if err != nil {
		return fmt.Errorf("parse store lock retry: %w", err)
	}
	lockMaxRetry := s.storeCfg.LockMaxRetry
	if lockMaxRetry <= 0 {
		lockMaxRetry = config.DefaultStoreLockMaxRetry
	}

	workspacePath, err := store.GetWorkspacePath(s.workspaceID, s.workspaceRootPath)
	if err != nil {
		return fmt.Errorf("resolve workspace path: %w", err)
	}

	lock, err := store.NewFileLock(s.workspaceID, workspacePath, &store.FileLockConfig{
		LockTimeout:  lockTimeout,
		LockRetry:    lockRetry,
		LockMaxRetry: lockMaxRetry,
	})
	if err != nil {
		if errors.IsCategory(err, errors.ErrConflict) {
			return fmt.Errorf("workspace %s is locked by another instance: %w", s.workspaceID, err)
		}
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	s.lock = lock

	if s.storeCfg.JournalEnabled {
		dir, err := store.GetJournalDir(s.workspaceID, s.workspaceRootPath)
		if err != nil {
			lock.Unlock()
			return fmt.Errorf("resolve journal dir: %w", err)
		}
		rotate := s.storeCfg.JournalRotateMaxBytes
		if rotate <= 0 {
			rotate = config.DefaultStoreJournalRotateMaxBytes
		}
		journal, err := store.NewJournal(dir, store.JournalConfig{RotateMaxBytes: rotate})
		if err != nil {
			lock.Unlock()
			return fmt.Errorf("open transition journal: %w", err)
		}
		s.journal = journal
	}

	s.initialized = true
	slog.Info("Store initialized", "component", s.Name(), "workspace", s.workspaceID, "journal", s.journal != nil)
	return nil
}

func (s *StoreComponent) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return fmt.Errorf("Store not initialized")
	}
	s.started = true
	s.startTime = time.Now()
	return nil
}

func (s *StoreComponent) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lock != nil {
		s.lock.Unlock()
	}
	s.started = false
	slog.Info("Store stopped", "component", s.Name())
	return nil
}

func (s *StoreComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case !s.initialized:
		return daemon.Unhealthy(s.Name(), fmt.Errorf("not initialized")), nil
	case !s.started:
		return daemon.Unhealthy(s.Name(), fmt.Errorf("not started")), nil
	case !s.lock.IsLocked():
		return daemon.Unhealthy(s.Name(), fmt.Errorf("lock not held")), nil
	}
	return daemon.Healthy(s.Name()), nil
}

// Journal returns nil when journaling is disabled.
func (s *StoreComponent) Journal() *store.Journal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.journal
}
