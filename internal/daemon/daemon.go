package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"voiceforge/internal/config"
	"voiceforge/internal/deps"
	"voiceforge/internal/jobs"
	"voiceforge/internal/logging"
	"voiceforge/internal/transcripts"
)

// Daemon coordinates the API server and enforces single-instance execution.
type Daemon struct {
	cfg         *config.Config
	logger      *slog.Logger
	store       *jobs.Store
	coordinator *jobs.Coordinator
	transcripts *transcripts.Store

	lockPath string
	lock     *flock.Flock

	api *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool          `json:"running"`
	JobDBPath    string        `json:"job_db_path"`
	LockFilePath string        `json:"lock_file_path"`
	APIAddress   string        `json:"api_address"`
	Dependencies []deps.Status `json:"dependencies"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *jobs.Store, coordinator *jobs.Coordinator, transcriptStore *transcripts.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || coordinator == nil || transcriptStore == nil {
		return nil, errors.New("daemon requires config, store, coordinator, and transcript store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "voiceforged.lock")
	d := &Daemon{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		coordinator: coordinator,
		transcripts: transcriptStore,
		lockPath:    lockPath,
		lock:        flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock and brings up the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another voiceforged instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	if err := d.api.start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("voiceforged started", slog.String("lock", d.lockPath))
	return nil
}

// Stop shuts the API server down, waits for in-flight jobs, and releases the
// daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.coordinator.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", slog.String("error", err.Error()))
	}
	d.running.Store(false)
	d.logger.Info("voiceforged stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Addr returns the listen address the API is actually bound to, or "" before
// Start.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		JobDBPath:    filepath.Join(d.cfg.Paths.DataDir, "jobs.db"),
		LockFilePath: d.lockPath,
		APIAddress:   d.api.addr(),
		Dependencies: deps.CheckBinaries(deps.Requirements(d.cfg.Media.FFmpegBinary)),
	}
}
