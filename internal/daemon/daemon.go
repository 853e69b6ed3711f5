// Package daemon wires the photomaton services together behind a
// single-instance background process and its HTTP API.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"photomaton/internal/config"
	"photomaton/internal/export"
	"photomaton/internal/logging"
	"photomaton/internal/photo"
	"photomaton/internal/preset"
	"photomaton/internal/provider"
	"photomaton/internal/services"
	"photomaton/internal/storage"
	"photomaton/internal/transform"
)

// Daemon coordinates the transform pipeline, photo storage, and the HTTP API,
// and enforces single-instance execution via a file lock.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	photos     *photo.Store
	presets    *preset.Store
	files      *storage.Manager
	providers  *provider.Registry
	transforms *transform.Orchestrator
	exports    *export.Archiver

	lockPath string
	lock     *flock.Flock

	api *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running         bool
	PID             int
	DatabasePath    string
	LockFilePath    string
	QueueDepth      int
	PhotoCounts     map[photo.Status]int
	Providers       []string
	CurrentProvider string
	Storage         storage.Stats
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, photos *photo.Store, presets *preset.Store, files *storage.Manager, providers *provider.Registry, transforms *transform.Orchestrator, exports *export.Archiver) (*Daemon, error) {
	if cfg == nil || logger == nil || photos == nil || files == nil || providers == nil || transforms == nil {
		return nil, errors.New("daemon requires config, logger, stores, providers, and orchestrator")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "photomatond.lock")
	d := &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		photos:     photos,
		presets:    presets,
		files:      files,
		providers:  providers,
		transforms: transforms,
		exports:    exports,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}

	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = srv
	return d, nil
}

// Start acquires the daemon lock, validates providers, and launches the
// worker and the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another photomaton daemon instance is already running")
	}

	if err := d.providers.Validate(ctx); err != nil {
		// Availability problems should not keep the booth from starting;
		// configuration problems should.
		if !services.IsRetryable(err) {
			_ = d.lock.Unlock()
			return err
		}
		d.logger.Warn("provider unavailable at startup", logging.Error(err))
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.transforms.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start transform worker: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		d.transforms.Stop()
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("photomaton daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldProvider, d.providers.Current()))
	return nil
}

// Stop shuts down the API server and the transform worker and releases the
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
	d.transforms.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("photomaton daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	if d.presets != nil {
		errs = append(errs, d.presets.Close())
	}
	if d.photos != nil {
		errs = append(errs, d.photos.Close())
	}
	return errors.Join(errs...)
}

// APIAddr reports the address the HTTP API is listening on, for tests and
// status output.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// UploadPhoto validates and stores a new photo and its database record.
func (d *Daemon) UploadPhoto(ctx context.Context, data []byte, ownerID, presetName string) (*photo.Photo, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, services.Wrap(services.ErrValidation, "daemon", "upload", "owner id is required", nil)
	}

	saved, err := d.files.SaveOriginal(ctx, data, "")
	if err != nil {
		return nil, err
	}

	p := &photo.Photo{
		ID:            saved.ID,
		OwnerID:       ownerID,
		Preset:        strings.TrimSpace(presetName),
		OriginalPath:  saved.OriginalPath,
		ThumbnailPath: saved.ThumbnailPath,
		Width:         saved.Width,
		Height:        saved.Height,
		Format:        saved.Format,
		SizeBytes:     saved.SizeBytes,
	}
	if err := d.photos.Create(ctx, p); err != nil {
		if delErr := d.files.Delete(saved.ID); delErr != nil {
			d.logger.Warn("failed to clean up files for unrecorded photo",
				logging.String(logging.FieldPhotoID, saved.ID),
				logging.Error(delErr))
		}
		return nil, err
	}
	return p, nil
}

// GetPhoto fetches a photo record.
func (d *Daemon) GetPhoto(ctx context.Context, id string) (*photo.Photo, error) {
	p, err := d.photos.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, services.Wrap(services.ErrPhotoNotFound, "daemon", "get photo",
			fmt.Sprintf("photo %s does not exist", id), nil)
	}
	return p, nil
}

// ListPhotos lists photo records matching the filter.
func (d *Daemon) ListPhotos(ctx context.Context, filter photo.Filter) ([]*photo.Photo, error) {
	return d.photos.List(ctx, filter)
}

// DeletePhoto removes the photo record and trashes its files.
func (d *Daemon) DeletePhoto(ctx context.Context, id string) error {
	if _, err := d.GetPhoto(ctx, id); err != nil {
		return err
	}
	if err := d.files.Delete(id); err != nil && !errors.Is(err, services.ErrFileNotFound) {
		return err
	}
	return d.photos.Delete(ctx, id)
}

// PhotoFile resolves the on-disk path for a photo variant.
func (d *Daemon) PhotoFile(ctx context.Context, id, variant string) (string, error) {
	if _, err := d.GetPhoto(ctx, id); err != nil {
		return "", err
	}
	return d.files.GetPath(id, variant)
}

// Transform enqueues a styling job for the photo.
func (d *Daemon) Transform(ctx context.Context, id, presetName, providerName string) (*transform.EnqueueResult, error) {
	return d.transforms.Enqueue(ctx, id, presetName, providerName)
}

// Jobs returns all tracked transform jobs, oldest first.
func (d *Daemon) Jobs() []transform.Job {
	return d.transforms.Jobs()
}

// Job returns one tracked transform job.
func (d *Daemon) Job(id string) (transform.Job, bool) {
	return d.transforms.Job(id)
}

// Presets lists configured presets.
func (d *Daemon) Presets(ctx context.Context, enabledOnly bool) ([]preset.Preset, error) {
	if d.presets == nil {
		return nil, errors.New("preset store unavailable")
	}
	return d.presets.List(ctx, enabledOnly)
}

// ImportPresets loads a preset export document into the store.
func (d *Daemon) ImportPresets(ctx context.Context, r io.Reader) (preset.ImportSummary, error) {
	if d.presets == nil {
		return preset.ImportSummary{}, errors.New("preset store unavailable")
	}
	return d.presets.Import(ctx, r)
}

// EstimateExport previews an export without building the archive.
func (d *Daemon) EstimateExport(ctx context.Context, filter export.Filter) (*export.Estimate, error) {
	return d.exports.Estimate(ctx, filter)
}

// WriteExport streams a ZIP archive of the filtered photos to w.
func (d *Daemon) WriteExport(ctx context.Context, filter export.Filter, w io.Writer) (*export.Manifest, error) {
	return d.exports.WriteArchive(ctx, filter, w)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:         d.running.Load(),
		PID:             os.Getpid(),
		DatabasePath:    d.photos.Path(),
		LockFilePath:    d.lockPath,
		QueueDepth:      d.transforms.QueueDepth(),
		Providers:       d.providers.Names(),
		CurrentProvider: d.providers.Current(),
	}
	if counts, err := d.photos.CountByStatus(ctx); err == nil {
		status.PhotoCounts = counts
	}
	if stats, err := d.files.Stats(ctx); err == nil {
		status.Storage = stats
	}
	return status
}
