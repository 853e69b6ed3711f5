// Package api defines the transport-facing payload types shared by the
// daemon's HTTP server and the CLI client.
package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// PhotoView describes a photo record in a transport-friendly format.
type PhotoView struct {
	ID              string `json:"id"`
	OwnerID         string `json:"ownerId"`
	Preset          string `json:"preset,omitempty"`
	Status          string `json:"status"`
	Provider        string `json:"provider,omitempty"`
	ErrorMessage    string `json:"errorMessage,omitempty"`
	Width           int    `json:"width,omitempty"`
	Height          int    `json:"height,omitempty"`
	Format          string `json:"format,omitempty"`
	SizeBytes       int64  `json:"sizeBytes,omitempty"`
	ProcessingMS    int64  `json:"processingMs,omitempty"`
	HasTransform    bool   `json:"hasTransform"`
	CreatedAt       string `json:"createdAt,omitempty"`
	UpdatedAt       string `json:"updatedAt,omitempty"`
}

// JobView describes a transform job.
type JobView struct {
	ID              string `json:"id"`
	PhotoID         string `json:"photoId"`
	Preset          string `json:"preset"`
	Provider        string `json:"provider,omitempty"`
	Status          string `json:"status"`
	Error           string `json:"error,omitempty"`
	Retryable       bool   `json:"retryable"`
	TransformedPath string `json:"transformedPath,omitempty"`
	ElapsedMS       int64  `json:"elapsedMs,omitempty"`
	EnqueuedAt      string `json:"enqueuedAt,omitempty"`
	FinishedAt      string `json:"finishedAt,omitempty"`
}

// PresetView describes a styling preset.
type PresetView struct {
	PresetID    string `json:"presetId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Enabled     bool   `json:"enabled"`
	OrderIndex  int    `json:"orderIndex"`
}

// StorageStats summarizes disk usage of the photo store.
type StorageStats struct {
	Photos       int    `json:"photos"`
	Files        int    `json:"files"`
	Bytes        int64  `json:"bytes"`
	TrashEntries int    `json:"trashEntries"`
	FreeBytes    uint64 `json:"freeBytes,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running         bool           `json:"running"`
	PID             int            `json:"pid"`
	DatabasePath    string         `json:"databasePath"`
	LockFilePath    string         `json:"lockFilePath"`
	QueueDepth      int            `json:"queueDepth"`
	PhotoCounts     map[string]int `json:"photoCounts"`
	Providers       []string       `json:"providers"`
	CurrentProvider string         `json:"currentProvider"`
	Storage         StorageStats   `json:"storage"`
}

// UploadResponse is returned after a successful photo upload.
type UploadResponse struct {
	Photo PhotoView `json:"photo"`
}

// PhotoListResponse wraps a collection of photos.
type PhotoListResponse struct {
	Photos []PhotoView `json:"photos"`
}

// PhotoResponse wraps a single photo.
type PhotoResponse struct {
	Photo PhotoView `json:"photo"`
}

// TransformRequest asks the daemon to style a photo.
type TransformRequest struct {
	Preset   string `json:"preset,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// TransformResponse reports the enqueue outcome.
type TransformResponse struct {
	JobID            string `json:"jobId,omitempty"`
	AlreadyCompleted bool   `json:"alreadyCompleted"`
	TransformedPath  string `json:"transformedPath,omitempty"`
}

// JobListResponse wraps tracked transform jobs.
type JobListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job JobView `json:"job"`
}

// PresetListResponse wraps the configured presets.
type PresetListResponse struct {
	Presets []PresetView `json:"presets"`
}

// PresetImportResponse reports an import outcome.
type PresetImportResponse struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

// ExportEstimateResponse previews an export.
type ExportEstimateResponse struct {
	Count      int   `json:"count"`
	TotalBytes int64 `json:"totalBytes"`
}
