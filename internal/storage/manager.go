// Package storage owns the on-disk layout of booth photos: one directory per
// photo holding a normalized original, a thumbnail, and preset-named styled
// variants. Deletion is soft (trash-then-purge) and every write lands through
// the atomic-rename discipline in fileutil.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	// Decoders for the upload allow-list. WebP is decode-only; normalized
	// output is always JPEG.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"photomaton/internal/config"
	"photomaton/internal/fileutil"
	"photomaton/internal/logging"
	"photomaton/internal/services"
)

// Variant names understood by every component that reads photo files.
const (
	VariantOriginal  = "original"
	VariantThumbnail = "thumbnail"
)

const trashDirName = ".trash"

// Manager performs all filesystem operations under the photo storage root.
type Manager struct {
	root      string
	maxBytes  int64
	allowed   map[string]struct{}
	thumbSize int
	quality   int
	logger    *slog.Logger
}

// SavedPhoto describes the outcome of persisting an upload.
type SavedPhoto struct {
	ID            string
	OriginalPath  string
	ThumbnailPath string
	Width         int
	Height        int
	Format        string
	SizeBytes     int64
}

// Stats aggregates storage usage for administrative callers.
type Stats struct {
	Photos       int
	Files        int
	Bytes        int64
	TrashEntries int
	FreeBytes    uint64
}

// NewManager constructs a storage manager rooted at the configured directory.
func NewManager(cfg *config.Config, logger *slog.Logger) (*Manager, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrStorage, "storage", "init", "create storage root", err)
	}
	if err := os.MkdirAll(filepath.Join(cfg.Paths.StorageDir, trashDirName), 0o755); err != nil {
		return nil, services.Wrap(services.ErrStorage, "storage", "init", "create trash directory", err)
	}

	allowed := make(map[string]struct{}, len(cfg.Storage.AllowedFormats))
	for _, format := range cfg.Storage.AllowedFormats {
		allowed[format] = struct{}{}
	}

	return &Manager{
		root:      cfg.Paths.StorageDir,
		maxBytes:  cfg.MaxUploadBytes(),
		allowed:   allowed,
		thumbSize: cfg.Storage.ThumbnailSize,
		quality:   cfg.Storage.JPEGQuality,
		logger:    logging.NewComponentLogger(logger, "storage"),
	}, nil
}

// Root returns the storage root directory.
func (m *Manager) Root() string {
	return m.root
}

// PhotoDir returns the directory that holds all variants of a photo.
func (m *Manager) PhotoDir(id string) string {
	return filepath.Join(m.root, id)
}

// VariantPath maps a variant name to its file path without checking the disk.
func (m *Manager) VariantPath(id, variant string) string {
	switch variant {
	case VariantOriginal:
		return filepath.Join(m.root, id, "original.jpg")
	case VariantThumbnail:
		return filepath.Join(m.root, id, "thumbnail.jpg")
	default:
		return filepath.Join(m.root, id, "styled-"+variant+".jpg")
	}
}

// GetPath resolves a variant to an on-disk path, verifying existence. Callers
// must not assume existence from database state alone: deletion can race with
// serving.
func (m *Manager) GetPath(id, variant string) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}
	path := m.VariantPath(id, variant)
	if !fileutil.FileExists(path) {
		return "", services.Wrap(services.ErrFileNotFound, "storage", "get path",
			fmt.Sprintf("photo %s has no %s variant", id, variant), nil)
	}
	return path, nil
}

// SaveOriginal validates and persists an uploaded image: size cap, format
// allow-list, normalized JPEG re-encode, and a center-cropped thumbnail. Any
// failure removes the partially created photo directory.
func (m *Manager) SaveOriginal(ctx context.Context, data []byte, id string) (*SavedPhoto, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, services.Wrap(services.ErrStorage, "storage", "save original", "empty upload", nil)
	}
	if int64(len(data)) > m.maxBytes {
		return nil, services.Wrap(services.ErrStorage, "storage", "save original",
			fmt.Sprintf("upload of %d bytes exceeds limit of %d bytes", len(data), m.maxBytes), nil)
	}

	meta, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "storage", "save original", "unrecognized image data", err)
	}
	if _, ok := m.allowed[format]; !ok {
		return nil, services.Wrap(services.ErrStorage, "storage", "save original",
			fmt.Sprintf("format %q not allowed", format), nil)
	}

	dir := m.PhotoDir(id)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrStorage, "storage", "save original", "create photo directory", err)
	}

	saved, err := m.writeNormalized(data, id, meta, format)
	if err != nil {
		// Remove the partial directory so a failed upload leaves no orphans.
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			m.logger.Warn("failed to clean up partial photo directory",
				logging.String(logging.FieldPhotoID, id),
				logging.Error(rmErr))
		}
		return nil, err
	}

	m.logger.Info("photo stored",
		logging.String(logging.FieldPhotoID, id),
		logging.String("format", format),
		logging.Int("width", saved.Width),
		logging.Int("height", saved.Height),
		logging.Int64("size_bytes", saved.SizeBytes))
	return saved, nil
}

func (m *Manager) writeNormalized(data []byte, id string, meta image.Config, format string) (*SavedPhoto, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "storage", "save original", "decode image", err)
	}

	originalPath := m.VariantPath(id, VariantOriginal)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(m.quality)); err != nil {
		return nil, services.Wrap(services.ErrStorage, "storage", "save original", "encode normalized original", err)
	}
	normalizedSize := int64(buf.Len())
	if err := fileutil.WriteFileAtomic(originalPath, buf.Bytes(), 0o644); err != nil {
		return nil, services.Wrap(services.ErrStorage, "storage", "save original", "write normalized original", err)
	}

	thumb := imaging.Fill(img, m.thumbSize, m.thumbSize, imaging.Center, imaging.Lanczos)
	thumbnailPath := m.VariantPath(id, VariantThumbnail)
	buf.Reset()
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(m.quality)); err != nil {
		return nil, services.Wrap(services.ErrStorage, "storage", "save original", "encode thumbnail", err)
	}
	if err := fileutil.WriteFileAtomic(thumbnailPath, buf.Bytes(), 0o644); err != nil {
		return nil, services.Wrap(services.ErrStorage, "storage", "save original", "write thumbnail", err)
	}

	return &SavedPhoto{
		ID:            id,
		OriginalPath:  originalPath,
		ThumbnailPath: thumbnailPath,
		Width:         meta.Width,
		Height:        meta.Height,
		Format:        format,
		SizeBytes:     normalizedSize,
	}, nil
}

// Delete moves the photo's directory into a time-stamped trash entry so
// deletion stays reversible. A permissions failure on the move falls back to
// immediate recursive removal rather than failing silently.
func (m *Manager) Delete(id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	dir := m.PhotoDir(id)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return services.Wrap(services.ErrFileNotFound, "storage", "delete",
				fmt.Sprintf("photo %s has no stored files", id), nil)
		}
		return services.Wrap(services.ErrStorage, "storage", "delete", "stat photo directory", err)
	}

	stamp := time.Now().UTC().Format("20060102T150405")
	trashPath := filepath.Join(m.root, trashDirName, stamp+"-"+id)
	if err := os.Rename(dir, trashPath); err != nil {
		if !os.IsPermission(err) {
			return services.Wrap(services.ErrStorage, "storage", "delete", "move to trash", err)
		}
		m.logger.Warn("trash move denied, removing photo directly",
			logging.String(logging.FieldPhotoID, id),
			logging.Error(err))
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			return services.Wrap(services.ErrStorage, "storage", "delete", "remove photo directory", rmErr)
		}
		return nil
	}

	m.logger.Info("photo trashed",
		logging.String(logging.FieldPhotoID, id),
		logging.String("trash_path", trashPath))
	return nil
}

// PurgeTrash permanently removes trash entries older than the retention
// window, returning the number of purged entries.
func (m *Manager) PurgeTrash(olderThan time.Duration) (int, error) {
	trashDir := filepath.Join(m.root, trashDirName)
	entries, err := os.ReadDir(trashDir)
	if err != nil {
		return 0, services.Wrap(services.ErrStorage, "storage", "purge trash", "read trash directory", err)
	}

	cutoff := time.Now().UTC().Add(-olderThan)
	purged := 0
	for _, entry := range entries {
		stamp, _, ok := strings.Cut(entry.Name(), "-")
		if !ok {
			continue
		}
		ts, err := time.Parse("20060102T150405", stamp)
		if err != nil || ts.After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(trashDir, entry.Name())); err != nil {
			return purged, services.Wrap(services.ErrStorage, "storage", "purge trash", "remove trash entry", err)
		}
		purged++
	}
	return purged, nil
}

// Stats walks the storage tree and reports aggregate usage. O(n) over stored
// files; intended for infrequent administrative calls.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	entries, err := os.ReadDir(m.root)
	if err != nil {
		return stats, services.Wrap(services.ErrStorage, "storage", "stats", "read storage root", err)
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if !entry.IsDir() {
			continue
		}
		if entry.Name() == trashDirName {
			trashEntries, err := os.ReadDir(filepath.Join(m.root, trashDirName))
			if err != nil {
				return stats, services.Wrap(services.ErrStorage, "storage", "stats", "read trash directory", err)
			}
			stats.TrashEntries = len(trashEntries)
			continue
		}
		stats.Photos++
		walkErr := filepath.WalkDir(filepath.Join(m.root, entry.Name()), func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			stats.Files++
			stats.Bytes += info.Size()
			return nil
		})
		if walkErr != nil {
			return stats, services.Wrap(services.ErrStorage, "storage", "stats", "walk photo directory", walkErr)
		}
	}

	if free, err := freeBytes(m.root); err == nil {
		stats.FreeBytes = free
	}
	return stats, nil
}

func validateID(id string) error {
	if id == "" || id == trashDirName || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return services.Wrap(services.ErrStorage, "storage", "validate id",
			fmt.Sprintf("invalid photo id %q", id), nil)
	}
	return nil
}
