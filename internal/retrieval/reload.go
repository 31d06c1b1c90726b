package retrieval

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	logx "github.com/Chative-core-poc-v1/router/pkg/logger"
)

// Reloader swaps in the on-disk snapshot whenever the file changes.
type Reloader struct {
	store    *MemoryStore
	path     string
	interval time.Duration

	mu        sync.Mutex
	lastMod   time.Time
	scheduler gocron.Scheduler
}

func NewReloader(store *MemoryStore, path string, interval time.Duration) *Reloader {
	return &Reloader{store: store, path: path, interval: interval}
}

// Check loads the snapshot when its modification time moved. It reports
// whether a new snapshot was installed. A missing file is not an error.
func (r *Reloader) Check() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, err := os.Stat(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat vault snapshot: %w", err)
	}
	if !info.ModTime().After(r.lastMod) {
		return false, nil
	}

	idx, err := LoadMemoryIndex(r.path)
	if err != nil {
		return false, err
	}
	r.store.Replace(idx)
	r.lastMod = info.ModTime()
	logx.Info().Str("path", r.path).Int("entries", idx.Len()).Msg("vault snapshot loaded")
	return true, nil
}

// Start loads once, then schedules periodic checks when interval > 0.
func (r *Reloader) Start() error {
	if _, err := r.Check(); err != nil {
		logx.Error().Err(err).Str("path", r.path).Msg("initial vault load failed")
	}
	if r.interval <= 0 {
		return nil
	}

	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(func() {
			if _, err := r.Check(); err != nil {
				logx.Error().Err(err).Str("path", r.path).Msg("vault reload failed")
			}
		}),
		gocron.WithName("vault-reload"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return fmt.Errorf("failed to schedule vault reload: %w", err)
	}
	s.Start()
	r.scheduler = s
	logx.Debug().Dur("interval", r.interval).Msg("vault reload scheduled")
	return nil
}

func (r *Reloader) Stop() error {
	if r.scheduler == nil {
		return nil
	}
	if err := r.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to shutdown scheduler: %w", err)
	}
	return nil
}
