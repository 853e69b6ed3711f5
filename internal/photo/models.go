package photo

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a photo record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether the status ends the transform lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Photo is a stored booth photo and its transform state.
type Photo struct {
	ID              string
	OwnerID         string
	Preset          string
	OriginalPath    string
	ThumbnailPath   string
	TransformedPath string
	Provider        string
	Status          Status
	ErrorMessage    string
	Width           int
	Height          int
	Format          string
	SizeBytes       int64
	ProcessingMS    int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ProcessingDuration returns the recorded transform duration.
func (p *Photo) ProcessingDuration() time.Duration {
	return time.Duration(p.ProcessingMS) * time.Millisecond
}

// StuckSince reports whether the photo has been in processing longer than
// window, measured against its last update.
func (p *Photo) StuckSince(now time.Time, window time.Duration) bool {
	if p.Status != StatusProcessing {
		return false
	}
	return now.Sub(p.UpdatedAt) > window
}

// Filter selects photos for listing and export.
type Filter struct {
	OwnerID string
	Preset  string
	Status  Status
	From    time.Time
	To      time.Time
}
