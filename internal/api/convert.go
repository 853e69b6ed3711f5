package api

import (
	"time"

	"photomaton/internal/photo"
	"photomaton/internal/preset"
	"photomaton/internal/transform"
)

// FromPhoto converts a photo record into its API view.
func FromPhoto(p *photo.Photo) PhotoView {
	if p == nil {
		return PhotoView{}
	}
	return PhotoView{
		ID:           p.ID,
		OwnerID:      p.OwnerID,
		Preset:       p.Preset,
		Status:       string(p.Status),
		Provider:     p.Provider,
		ErrorMessage: p.ErrorMessage,
		Width:        p.Width,
		Height:       p.Height,
		Format:       p.Format,
		SizeBytes:    p.SizeBytes,
		ProcessingMS: p.ProcessingMS,
		HasTransform: p.TransformedPath != "",
		CreatedAt:    formatTime(p.CreatedAt),
		UpdatedAt:    formatTime(p.UpdatedAt),
	}
}

// FromPhotos converts a slice of photo records.
func FromPhotos(photos []*photo.Photo) []PhotoView {
	out := make([]PhotoView, 0, len(photos))
	for _, p := range photos {
		out = append(out, FromPhoto(p))
	}
	return out
}

// FromJob converts a transform job into its API view.
func FromJob(j transform.Job) JobView {
	return JobView{
		ID:              j.ID,
		PhotoID:         j.PhotoID,
		Preset:          j.Preset,
		Provider:        j.Provider,
		Status:          string(j.Status),
		Error:           j.Error,
		Retryable:       j.Retryable,
		TransformedPath: j.TransformedPath,
		ElapsedMS:       j.Elapsed.Milliseconds(),
		EnqueuedAt:      formatTime(j.EnqueuedAt),
		FinishedAt:      formatTime(j.FinishedAt),
	}
}

// FromJobs converts a slice of jobs.
func FromJobs(jobs []transform.Job) []JobView {
	out := make([]JobView, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, FromJob(j))
	}
	return out
}

// FromPreset converts a preset record into its API view.
func FromPreset(p preset.Preset) PresetView {
	return PresetView{
		PresetID:    p.PresetID,
		Name:        p.Name,
		Description: p.Description,
		Icon:        p.Icon,
		Enabled:     p.Enabled,
		OrderIndex:  p.OrderIndex,
	}
}

// FromPresets converts a slice of preset records.
func FromPresets(presets []preset.Preset) []PresetView {
	out := make([]PresetView, 0, len(presets))
	for _, p := range presets {
		out = append(out, FromPreset(p))
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
