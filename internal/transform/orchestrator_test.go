package transform_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"photomaton/internal/config"
	"photomaton/internal/logging"
	"photomaton/internal/photo"
	"photomaton/internal/provider"
	"photomaton/internal/services"
	"photomaton/internal/storage"
	"photomaton/internal/testsupport"
	"photomaton/internal/transform"
	"photomaton/internal/watermark"
)

// stubProvider copies the input bytes to the output path, optionally failing
// or stalling first. It records the order photos were processed in.
type stubProvider struct {
	name  string
	delay time.Duration
	err   error

	mu    sync.Mutex
	order []string
}

func (s *stubProvider) Name() string                        { return s.name }
func (s *stubProvider) Available(context.Context) error     { return nil }
func (s *stubProvider) ValidateConfig() error               { return nil }
func (s *stubProvider) Capabilities() provider.Capabilities { return provider.Capabilities{} }
func (s *stubProvider) RequiredCredentials() []string       { return nil }

func (s *stubProvider) Transform(ctx context.Context, req provider.Request) (*provider.Result, error) {
	s.mu.Lock()
	s.order = append(s.order, req.PhotoID)
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	if err := os.WriteFile(req.OutputPath, req.Data, 0o644); err != nil {
		return nil, err
	}
	return &provider.Result{OutputPath: req.OutputPath, Provider: s.name}, nil
}

func (s *stubProvider) processed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

type fixture struct {
	cfg    *config.Config
	photos *photo.Store
	files  *storage.Manager
	orch   *transform.Orchestrator
	stub   *stubProvider
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	photos := testsupport.MustOpenPhotoStore(t, cfg)
	files, err := storage.NewManager(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	stub := &stubProvider{name: "stub"}
	registry := provider.NewRegistry()
	if err := registry.Register(stub); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	wm := watermark.NewEngine(cfg, logging.NewNop())
	orch := transform.New(cfg, photos, files, registry, wm, logging.NewNop())
	return &fixture{cfg: cfg, photos: photos, files: files, orch: orch, stub: stub}
}

func (f *fixture) addPhoto(t *testing.T, preset string) *photo.Photo {
	t.Helper()
	ctx := context.Background()
	saved, err := f.files.SaveOriginal(ctx, testsupport.JPEGBytes(t, 64, 64), "")
	if err != nil {
		t.Fatalf("SaveOriginal failed: %v", err)
	}
	p := &photo.Photo{
		ID:            saved.ID,
		OwnerID:       "owner-1",
		Preset:        preset,
		OriginalPath:  saved.OriginalPath,
		ThumbnailPath: saved.ThumbnailPath,
		Width:         saved.Width,
		Height:        saved.Height,
		Format:        saved.Format,
		SizeBytes:     saved.SizeBytes,
	}
	if err := f.photos.Create(ctx, p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return p
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	if err := f.orch.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(f.orch.Stop)
}

func waitForJob(t *testing.T, orch *transform.Orchestrator, jobID string) transform.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := orch.Job(jobID)
		if ok && job.Status.IsTerminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish in time", jobID)
	return transform.Job{}
}

func TestEnqueueUnknownPhoto(t *testing.T) {
	f := newFixture(t)
	if _, err := f.orch.Enqueue(context.Background(), "ghost", "", ""); !errors.Is(err, services.ErrPhotoNotFound) {
		t.Fatalf("expected photo-not-found, got %v", err)
	}
}

func TestEnqueueAndComplete(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	p := f.addPhoto(t, "noir")
	result, err := f.orch.Enqueue(context.Background(), p.ID, "", "")
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if result.AlreadyCompleted || result.JobID == "" {
		t.Fatalf("unexpected enqueue result: %#v", result)
	}

	job := waitForJob(t, f.orch, result.JobID)
	if job.Status != transform.JobCompleted {
		t.Fatalf("expected completed job, got %s (%s)", job.Status, job.Error)
	}
	if _, err := os.Stat(job.TransformedPath); err != nil {
		t.Fatalf("styled file missing: %v", err)
	}

	fetched, err := f.photos.GetByID(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != photo.StatusCompleted {
		t.Fatalf("expected completed photo, got %s", fetched.Status)
	}
	if fetched.TransformedPath != job.TransformedPath || fetched.Provider != "stub" {
		t.Fatalf("photo record not updated: %#v", fetched)
	}
}

func TestEnqueueCompletedShortCircuits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.addPhoto(t, "noir")
	p.Status = photo.StatusCompleted
	p.TransformedPath = "/styled/result.jpg"
	if err := f.photos.Update(ctx, p); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	result, err := f.orch.Enqueue(ctx, p.ID, "", "")
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if !result.AlreadyCompleted || result.TransformedPath != "/styled/result.jpg" {
		t.Fatalf("expected short-circuit, got %#v", result)
	}
	if result.JobID != "" {
		t.Fatal("short-circuit must not create a job")
	}
}

func TestEnqueueRejectsFreshProcessing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.addPhoto(t, "noir")
	p.Status = photo.StatusProcessing
	p.UpdatedAt = time.Now().UTC()
	if err := f.photos.Update(ctx, p); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if _, err := f.orch.Enqueue(ctx, p.ID, "", ""); !errors.Is(err, transform.ErrPhotoBusy) {
		t.Fatalf("expected busy rejection, got %v", err)
	}
}

func TestEnqueueResetsStuckPhoto(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	ctx := context.Background()

	p := f.addPhoto(t, "noir")
	p.Status = photo.StatusProcessing
	p.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	if err := f.photos.Update(ctx, p); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	result, err := f.orch.Enqueue(ctx, p.ID, "", "")
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	job := waitForJob(t, f.orch, result.JobID)
	if job.Status != transform.JobCompleted {
		t.Fatalf("stuck photo should be re-processed, got %s (%s)", job.Status, job.Error)
	}
}

func TestJobsRunInEnqueueOrder(t *testing.T) {
	f := newFixture(t)

	var ids []string
	var jobIDs []string
	for i := 0; i < 3; i++ {
		p := f.addPhoto(t, "noir")
		ids = append(ids, p.ID)
		result, err := f.orch.Enqueue(context.Background(), p.ID, "", "")
		if err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
		jobIDs = append(jobIDs, result.JobID)
	}
	if depth := f.orch.QueueDepth(); depth != 3 {
		t.Fatalf("expected queue depth 3 before start, got %d", depth)
	}

	f.start(t)
	for _, jobID := range jobIDs {
		waitForJob(t, f.orch, jobID)
	}

	processed := f.stub.processed()
	if len(processed) != 3 {
		t.Fatalf("expected 3 processed photos, got %d", len(processed))
	}
	for i, id := range ids {
		if processed[i] != id {
			t.Fatalf("processing order %v does not match enqueue order %v", processed, ids)
		}
	}
}

func TestPermanentFailureMarksPhotoFailed(t *testing.T) {
	f := newFixture(t)
	f.stub.err = provider.NewFailure("stub", "transform", "unknown preset", false, nil)
	f.start(t)

	p := f.addPhoto(t, "bogus")
	result, err := f.orch.Enqueue(context.Background(), p.ID, "", "")
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	job := waitForJob(t, f.orch, result.JobID)
	if job.Status != transform.JobFailed || job.Retryable {
		t.Fatalf("expected permanent failure, got %#v", job)
	}

	fetched, err := f.photos.GetByID(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != photo.StatusFailed || fetched.ErrorMessage == "" {
		t.Fatalf("photo failure not recorded: %#v", fetched)
	}
}

func TestRetryableFailureIsFlagged(t *testing.T) {
	f := newFixture(t)
	f.stub.err = provider.NewFailure("stub", "transform", "rate limited", true, nil)
	f.start(t)

	p := f.addPhoto(t, "noir")
	result, err := f.orch.Enqueue(context.Background(), p.ID, "", "")
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	job := waitForJob(t, f.orch, result.JobID)
	if job.Status != transform.JobFailed || !job.Retryable {
		t.Fatalf("expected retryable failure, got %#v", job)
	}
}

func TestProviderDeadlineIsRetryable(t *testing.T) {
	f := newFixture(t)
	f.cfg.Transform.ProviderTimeout = 1
	f.stub.delay = 3 * time.Second

	// Rebuild so the shortened deadline takes effect.
	registry := provider.NewRegistry()
	registry.Register(f.stub)
	orch := transform.New(f.cfg, f.photos, f.files, registry, watermark.NewEngine(f.cfg, logging.NewNop()), logging.NewNop())
	if err := orch.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(orch.Stop)

	p := f.addPhoto(t, "noir")
	result, err := orch.Enqueue(context.Background(), p.ID, "", "")
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	job := waitForJob(t, orch, result.JobID)
	if job.Status != transform.JobFailed {
		t.Fatalf("expected deadline failure, got %s", job.Status)
	}
	if !job.Retryable {
		t.Fatalf("deadline failures should be retryable: %s", job.Error)
	}
}

func TestJobHistoryEviction(t *testing.T) {
	f := newFixture(t)
	f.cfg.Transform.JobHistoryLimit = 2

	registry := provider.NewRegistry()
	registry.Register(f.stub)
	orch := transform.New(f.cfg, f.photos, f.files, registry, watermark.NewEngine(f.cfg, logging.NewNop()), logging.NewNop())
	if err := orch.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(orch.Stop)

	var lastJobID string
	for i := 0; i < 4; i++ {
		p := f.addPhoto(t, "noir")
		result, err := orch.Enqueue(context.Background(), p.ID, "", "")
		if err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
		waitForJob(t, orch, result.JobID)
		lastJobID = result.JobID
	}

	jobs := orch.Jobs()
	if len(jobs) > 2 {
		t.Fatalf("history should be capped at 2, got %d", len(jobs))
	}
	if _, ok := orch.Job(lastJobID); !ok {
		t.Fatal("newest job must survive eviction")
	}
}

func TestPresetOverrideUpdatesPhoto(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	ctx := context.Background()

	p := f.addPhoto(t, "noir")
	result, err := f.orch.Enqueue(ctx, p.ID, "sepia", "")
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	job := waitForJob(t, f.orch, result.JobID)
	if job.Preset != "sepia" {
		t.Fatalf("expected preset override, got %q", job.Preset)
	}

	fetched, err := f.photos.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Preset != "sepia" {
		t.Fatalf("photo preset not updated: %q", fetched.Preset)
	}
}
