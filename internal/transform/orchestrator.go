// Package transform runs the asynchronous styling pipeline: a single worker
// drains an in-memory FIFO of jobs, dispatches each photo to the resolved
// provider, applies the watermark, and persists the outcome on the photo
// record.
package transform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"photomaton/internal/config"
	"photomaton/internal/logging"
	"photomaton/internal/photo"
	"photomaton/internal/provider"
	"photomaton/internal/services"
	"photomaton/internal/storage"
	"photomaton/internal/watermark"
)

// ErrPhotoBusy rejects enqueue attempts for photos already being processed
// within the stuck-detection window.
var ErrPhotoBusy = errors.New("photo transform already in progress")

// Orchestrator owns the transform queue. One worker goroutine processes jobs
// strictly in enqueue order.
type Orchestrator struct {
	photos    *photo.Store
	files     *storage.Manager
	providers *provider.Registry
	watermark *watermark.Engine
	logger    *slog.Logger

	providerTimeout time.Duration
	stuckWindow     time.Duration
	historyLimit    int

	mu   sync.Mutex
	jobs map[string]*Job
	fifo []string
	wake chan struct{}

	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs the orchestrator. Start must be called before enqueued jobs
// make progress.
func New(cfg *config.Config, photos *photo.Store, files *storage.Manager, providers *provider.Registry, wm *watermark.Engine, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		photos:          photos,
		files:           files,
		providers:       providers,
		watermark:       wm,
		logger:          logging.NewComponentLogger(logger, "transform"),
		providerTimeout: cfg.ProviderTimeout(),
		stuckWindow:     cfg.StuckWindow(),
		historyLimit:    cfg.Transform.JobHistoryLimit,
		jobs:            make(map[string]*Job),
		wake:            make(chan struct{}, 1),
	}
}

// Start launches the worker goroutine.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return errors.New("transform orchestrator already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.running = true
	o.wg.Add(1)
	go o.run(runCtx)
	return nil
}

// Stop cancels the worker and waits for the in-flight job to finish.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	cancel := o.cancel
	o.running = false
	o.cancel = nil
	o.mu.Unlock()

	cancel()
	o.wg.Wait()
}

// Enqueue requests a transform for the photo. Completed photos short-circuit
// without creating a job; photos freshly processing are rejected with
// ErrPhotoBusy; photos stuck in processing beyond the configured window are
// reset and re-queued.
func (o *Orchestrator) Enqueue(ctx context.Context, photoID, preset, providerName string) (*EnqueueResult, error) {
	p, err := o.photos.GetByID(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, services.Wrap(services.ErrPhotoNotFound, "transform", "enqueue",
			fmt.Sprintf("photo %s does not exist", photoID), nil)
	}

	if p.Status == photo.StatusCompleted {
		return &EnqueueResult{AlreadyCompleted: true, TransformedPath: p.TransformedPath}, nil
	}

	now := time.Now().UTC()
	if p.Status == photo.StatusProcessing {
		if !p.StuckSince(now, o.stuckWindow) {
			return nil, services.Wrap(ErrPhotoBusy, "transform", "enqueue",
				fmt.Sprintf("photo %s is processing", photoID), nil)
		}
		o.logger.Warn("resetting stuck photo",
			logging.String(logging.FieldPhotoID, photoID),
			logging.Duration("stuck_for", now.Sub(p.UpdatedAt)))
		p.Status = photo.StatusPending
		p.UpdatedAt = now
		if err := o.photos.Update(ctx, p); err != nil {
			return nil, err
		}
	}

	if preset == "" {
		preset = p.Preset
	}
	if preset != p.Preset {
		p.Preset = preset
		p.UpdatedAt = now
		if err := o.photos.Update(ctx, p); err != nil {
			return nil, err
		}
	}

	job := &Job{
		ID:         uuid.NewString(),
		PhotoID:    photoID,
		Preset:     preset,
		Provider:   providerName,
		Status:     JobQueued,
		EnqueuedAt: now,
	}

	o.mu.Lock()
	o.jobs[job.ID] = job
	o.fifo = append(o.fifo, job.ID)
	o.evictHistoryLocked()
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}

	o.logger.Info("transform queued",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldPhotoID, photoID),
		logging.String(logging.FieldPreset, preset))
	return &EnqueueResult{JobID: job.ID}, nil
}

func (o *Orchestrator) run(ctx context.Context) {
	defer o.wg.Done()
	for {
		job := o.nextJob()
		if job == nil {
			select {
			case <-ctx.Done():
				return
			case <-o.wake:
				continue
			}
		}
		o.process(ctx, job)
		if ctx.Err() != nil {
			return
		}
	}
}

// nextJob pops the head of the FIFO, skipping jobs that were evicted while
// still queued.
func (o *Orchestrator) nextJob() *Job {
	o.mu.Lock()
	defer o.mu.Unlock()
	for len(o.fifo) > 0 {
		id := o.fifo[0]
		o.fifo = o.fifo[1:]
		if job, ok := o.jobs[id]; ok && job.Status == JobQueued {
			return job
		}
	}
	return nil
}

func (o *Orchestrator) process(ctx context.Context, job *Job) {
	started := time.Now().UTC()
	o.mu.Lock()
	job.Status = JobRunning
	job.StartedAt = started
	o.mu.Unlock()

	logger := o.logger.With(
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldPhotoID, job.PhotoID))

	p, err := o.photos.GetByID(ctx, job.PhotoID)
	if err == nil && p == nil {
		err = services.Wrap(services.ErrPhotoNotFound, "transform", "process",
			fmt.Sprintf("photo %s disappeared before processing", job.PhotoID), nil)
	}
	if err != nil {
		o.fail(ctx, job, nil, err)
		return
	}

	p.Status = photo.StatusProcessing
	p.ErrorMessage = ""
	p.UpdatedAt = started
	if err := o.photos.Update(ctx, p); err != nil {
		o.fail(ctx, job, nil, err)
		return
	}

	backend, err := o.providers.Resolve(ctx, job.Provider)
	if err != nil {
		o.fail(ctx, job, p, err)
		return
	}

	inputPath, err := o.files.GetPath(job.PhotoID, storage.VariantOriginal)
	if err != nil {
		o.fail(ctx, job, p, err)
		return
	}
	data, err := os.ReadFile(inputPath)
	if err != nil {
		o.fail(ctx, job, p, services.Wrap(services.ErrStorage, "transform", "process", "read original", err))
		return
	}

	transformCtx, cancel := context.WithTimeout(ctx, o.providerTimeout)
	result, err := backend.Transform(transformCtx, provider.Request{
		PhotoID:    job.PhotoID,
		InputPath:  inputPath,
		OutputPath: o.files.VariantPath(job.PhotoID, job.Preset),
		Preset:     job.Preset,
		Data:       data,
	})
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = services.Wrap(services.ErrTimeout, "transform", "process",
				fmt.Sprintf("provider %s exceeded %s deadline", backend.Name(), o.providerTimeout), err)
		}
		o.fail(ctx, job, p, err)
		return
	}

	if o.watermark != nil {
		wmResult, wmErr := o.watermark.Apply(result.OutputPath)
		switch {
		case wmErr != nil:
			logger.Warn("watermark failed, keeping unmarked result", logging.Error(wmErr))
		case !wmResult.Applied && wmResult.Reason != watermark.ReasonDisabled:
			logger.Info("watermark skipped", logging.String("reason", wmResult.Reason))
		}
	}

	o.complete(ctx, job, backend.Name(), result, time.Since(started))
}

// complete persists the styled result, unless the photo's state changed while
// the job ran (a stuck reset re-queued it); such completions are discarded.
func (o *Orchestrator) complete(ctx context.Context, job *Job, providerName string, result *provider.Result, elapsed time.Duration) {
	current, err := o.photos.GetByID(ctx, job.PhotoID)
	if err == nil && current == nil {
		err = services.Wrap(services.ErrPhotoNotFound, "transform", "complete",
			fmt.Sprintf("photo %s disappeared during processing", job.PhotoID), nil)
	}
	if err != nil {
		o.fail(ctx, job, nil, err)
		return
	}

	now := time.Now().UTC()
	if current.Status != photo.StatusProcessing {
		o.logger.Warn("discarding stale completion",
			logging.String(logging.FieldJobID, job.ID),
			logging.String(logging.FieldPhotoID, job.PhotoID),
			logging.String("photo_status", string(current.Status)))
		o.mu.Lock()
		job.Status = JobFailed
		job.Error = "photo state changed during processing; result discarded"
		job.FinishedAt = now
		o.evictHistoryLocked()
		o.mu.Unlock()
		return
	}

	current.Status = photo.StatusCompleted
	current.TransformedPath = result.OutputPath
	current.Provider = providerName
	current.ErrorMessage = ""
	current.ProcessingMS = elapsed.Milliseconds()
	current.UpdatedAt = now
	if err := o.photos.Update(ctx, current); err != nil {
		o.fail(ctx, job, nil, err)
		return
	}

	o.mu.Lock()
	job.Status = JobCompleted
	job.TransformedPath = result.OutputPath
	job.Elapsed = elapsed
	job.FinishedAt = now
	o.evictHistoryLocked()
	o.mu.Unlock()

	o.logger.Info("transform completed",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldPhotoID, job.PhotoID),
		logging.String(logging.FieldProvider, providerName),
		logging.Duration("elapsed", elapsed))
}

// fail records the failure on the job and, best effort, on the photo record.
// p may be nil when the photo could not be loaded.
func (o *Orchestrator) fail(ctx context.Context, job *Job, p *photo.Photo, cause error) {
	retryable := services.IsRetryable(cause)
	now := time.Now().UTC()

	o.mu.Lock()
	job.Status = JobFailed
	job.Error = cause.Error()
	job.Retryable = retryable
	job.FinishedAt = now
	o.evictHistoryLocked()
	o.mu.Unlock()

	o.logger.Error("transform failed",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldPhotoID, job.PhotoID),
		logging.Bool("retryable", retryable),
		logging.Error(cause))

	if p == nil {
		fetched, err := o.photos.GetByID(ctx, job.PhotoID)
		if err != nil || fetched == nil {
			return
		}
		p = fetched
	}
	p.Status = photo.StatusFailed
	p.ErrorMessage = cause.Error()
	p.UpdatedAt = now
	if err := o.photos.Update(ctx, p); err != nil {
		o.logger.Warn("failed to persist photo failure state",
			logging.String(logging.FieldPhotoID, job.PhotoID),
			logging.Error(err))
	}
}
