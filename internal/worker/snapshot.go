package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/arcade-catalog/internal/config"
	"github.com/arcade-catalog/internal/domain"
	"github.com/arcade-catalog/internal/filestore"
)

const (
	snapshotPrefix = "backup-"
	snapshotSuffix = ".json"
	stampLayout    = "20060102T150405Z"
)

// Exporter produces a full catalog backup
type Exporter interface {
	ExportBackup(ctx context.Context) (*domain.Backup, error)
}

// SnapshotWorker periodically writes catalog backups to a directory and
// keeps only the newest ones
type SnapshotWorker struct {
	exporter Exporter
	config   *config.SnapshotConfig
	logger   *slog.Logger
	now      func() time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewSnapshotWorker creates a new snapshot worker
func NewSnapshotWorker(exporter Exporter, cfg *config.SnapshotConfig, logger *slog.Logger) *SnapshotWorker {
	return &SnapshotWorker{
		exporter: exporter,
		config:   cfg,
		logger:   logger,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background snapshot loop
func (w *SnapshotWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := os.MkdirAll(w.config.Dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}

	w.logger.Info("snapshot worker started", "interval", w.config.Interval, "dir", w.config.Dir)

	go w.run(ctx)
	return nil
}

// Stop stops the background snapshot loop
func (w *SnapshotWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("snapshot worker stopped")
	return nil
}

// run is the main worker loop
func (w *SnapshotWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.Error("snapshot failed", "error", err)
			}
		}
	}
}

// RunOnce writes one snapshot, prunes old ones and returns the path written
func (w *SnapshotWorker) RunOnce(ctx context.Context) (string, error) {
	startTime := time.Now()

	backup, err := w.exporter.ExportBackup(ctx)
	if err != nil {
		return "", fmt.Errorf("exporting backup: %w", err)
	}

	name := snapshotPrefix + w.now().UTC().Format(stampLayout) + snapshotSuffix
	path := filepath.Join(w.config.Dir, name)
	if err := filestore.WriteJSON(path, backup); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}

	removed, err := w.prune()
	if err != nil {
		w.logger.Warn("failed to prune snapshots", "error", err)
	}

	w.logger.Info("snapshot written",
		"path", path,
		"games", len(backup.Games),
		"pruned", removed,
		"duration", time.Since(startTime),
	)
	return path, nil
}

// Snapshots lists snapshot file names in the directory, oldest first
func (w *SnapshotWorker) Snapshots() ([]string, error) {
	entries, err := os.ReadDir(w.config.Dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, snapshotPrefix) || !strings.HasSuffix(name, snapshotSuffix) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// prune removes all but the newest Keep snapshots
func (w *SnapshotWorker) prune() (int, error) {
	if w.config.Keep <= 0 {
		return 0, nil
	}

	names, err := w.Snapshots()
	if err != nil {
		return 0, err
	}

	removed := 0
	for len(names)-removed > w.config.Keep {
		if err := os.Remove(filepath.Join(w.config.Dir, names[removed])); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// IsRunning returns whether the worker is currently running
func (w *SnapshotWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
