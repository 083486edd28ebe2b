package core

// autosave.go periodically snapshots the live document to the snapshot store.
//
// A snapshot is written only when the document changed since the last Save
// or snapshot. Failures are logged and retried on the next tick; they never
// affect the live document.

import (
	"context"
	"time"

	"github.com/JonMunkholm/gridedit/internal/logging"
)

// DefaultAutosaveInterval is used when AutosaveConfig.Interval is zero.
const DefaultAutosaveInterval = time.Minute

// AutosaveConfig holds configuration for the autosave scheduler.
type AutosaveConfig struct {
	Interval time.Duration
	// Key names the snapshot. Empty means the document's session id.
	Key string
}

// RunAutosave snapshots on every tick until ctx is cancelled. It returns
// ErrNoSnapshotStore at once when the workbook has no snapshot store.
func (w *Workbook) RunAutosave(ctx context.Context, cfg AutosaveConfig) error {
	if w.snapshots == nil {
		return ErrNoSnapshotStore
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultAutosaveInterval
	}

	log := logging.Component("autosave")
	log.Info("autosave started", "interval", cfg.Interval)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("autosave stopped")
			return nil
		case <-ticker.C:
			start := time.Now()
			key, err := w.SnapshotIfDirty(ctx, cfg.Key)
			if err != nil {
				log.Error("autosave failed", "error", err)
				continue
			}
			if key != "" {
				log.Info("document snapshot written",
					"key", key,
					"duration_ms", time.Since(start).Milliseconds(),
				)
			}
		}
	}
}

// SnapshotIfDirty writes the document to the snapshot store under key (or
// the session id) when it has unsaved changes. It returns the key written,
// or "" when there was nothing to do.
func (w *Workbook) SnapshotIfDirty(ctx context.Context, key string) (string, error) {
	if w.snapshots == nil {
		return "", ErrNoSnapshotStore
	}

	w.mu.RLock()
	if w.engine == nil || w.engine.Version() == w.savedVersion {
		w.mu.RUnlock()
		return "", nil
	}
	doc := w.engine.Document().Clone()
	session, version := w.session, w.engine.Version()
	w.mu.RUnlock()

	if key == "" {
		key = session
	}
	if err := w.store(ctx, w.snapshots, key, doc); err != nil {
		return "", err
	}

	w.mu.Lock()
	if w.session == session && version > w.savedVersion {
		w.savedVersion = version
	}
	w.mu.Unlock()
	return key, nil
}
