package service

import (
	"context"
	"sync"
	"time"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/rs/zerolog"
)

// SystemActor is recorded as the actor for background maintenance
const SystemActor = "system:trash-purge"

// TrashPurgeWorker periodically removes documents that stayed in the trash past the retention period
type TrashPurgeWorker struct {
	documents     *DocumentService
	workspaceRepo domain.WorkspaceRepository
	logger        zerolog.Logger
	interval      time.Duration
	retention     time.Duration
	now           func() time.Time
	stopCh        chan struct{}
	doneCh        chan struct{}
	mu            sync.Mutex
	running       bool
}

// TrashPurgeWorkerConfig holds configuration for the trash purge worker
type TrashPurgeWorkerConfig struct {
	Interval      time.Duration
	RetentionDays int
}

// DefaultTrashPurgeWorkerConfig returns the default schedule
func DefaultTrashPurgeWorkerConfig() TrashPurgeWorkerConfig {
	return TrashPurgeWorkerConfig{
		Interval:      6 * time.Hour,
		RetentionDays: 30,
	}
}

// NewTrashPurgeWorker creates a new trash purge worker
func NewTrashPurgeWorker(
	documents *DocumentService,
	workspaceRepo domain.WorkspaceRepository,
	logger zerolog.Logger,
	config TrashPurgeWorkerConfig,
) *TrashPurgeWorker {
	defaults := DefaultTrashPurgeWorkerConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.RetentionDays <= 0 {
		config.RetentionDays = defaults.RetentionDays
	}

	return &TrashPurgeWorker{
		documents:     documents,
		workspaceRepo: workspaceRepo,
		logger:        logger.With().Str("component", "trash_purge_worker").Logger(),
		interval:      config.Interval,
		retention:     time.Duration(config.RetentionDays) * 24 * time.Hour,
		now:           time.Now,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Start begins purging in the background
func (w *TrashPurgeWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info().
		Dur("interval", w.interval).
		Dur("retention", w.retention).
		Msg("Starting trash purge worker")

	go w.run(ctx)
}

// Stop gracefully stops the worker and waits for the current pass to finish
func (w *TrashPurgeWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	w.logger.Info().Msg("Stopping trash purge worker")
	close(w.stopCh)
	<-w.doneCh
	w.logger.Info().Msg("Trash purge worker stopped")
}

func (w *TrashPurgeWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	w.PurgeAll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.setStopped()
			return
		case <-w.stopCh:
			w.setStopped()
			return
		case <-ticker.C:
			w.PurgeAll(ctx)
		}
	}
}

func (w *TrashPurgeWorker) setStopped() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
}

// PurgeAll runs one purge pass over every workspace and returns the number of documents removed
func (w *TrashPurgeWorker) PurgeAll(ctx context.Context) int {
	startTime := w.now()
	cutoff := startTime.Add(-w.retention)

	workspaces, err := w.workspaceRepo.GetAllWorkspaces(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to get workspaces for trash purge")
		return 0
	}

	totalPurged := 0
	totalErrors := 0
	for _, ws := range workspaces {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Context cancelled, stopping purge")
			return totalPurged
		case <-w.stopCh:
			w.logger.Info().Msg("Stop signal received, stopping purge")
			return totalPurged
		default:
		}

		scope := domain.Scope{WorkspaceID: ws.ID, ActorEmail: SystemActor}
		purged, err := w.documents.PurgeTrash(ctx, scope, cutoff)
		totalPurged += purged
		if err != nil {
			w.logger.Error().
				Err(err).
				Str("workspace_id", ws.ID.String()).
				Msg("Failed to purge trash for workspace")
			totalErrors++
			continue
		}
		if purged > 0 {
			w.logger.Debug().
				Str("workspace_id", ws.ID.String()).
				Int("purged", purged).
				Msg("Purged trashed documents")
		}
	}

	w.logger.Info().
		Int("workspaces", len(workspaces)).
		Int("total_purged", totalPurged).
		Int("total_errors", totalErrors).
		Dur("elapsed", time.Since(startTime)).
		Msg("Completed trash purge")
	return totalPurged
}

// IsRunning returns whether the worker is currently running
func (w *TrashPurgeWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
