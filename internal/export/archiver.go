// Package export streams filtered photo sets as ZIP archives. Entries are
// copied straight from disk into the archive writer, so memory use stays flat
// regardless of export size.
package export

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"photomaton/internal/logging"
	"photomaton/internal/photo"
	"photomaton/internal/services"
	"photomaton/internal/storage"
)

// Filter selects which completed photos an export covers. Zero values match
// everything.
type Filter struct {
	OwnerID          string
	Preset           string
	From             time.Time
	To               time.Time
	IncludeOriginals bool
}

// Estimate previews an export without building it.
type Estimate struct {
	Count      int
	TotalBytes int64
}

// Manifest summarizes a written archive.
type Manifest struct {
	Count      int
	TotalBytes int64
	CreatedAt  time.Time
}

// Archiver builds export archives from the photo store and file storage.
type Archiver struct {
	photos *photo.Store
	files  *storage.Manager
	logger *slog.Logger
}

// NewArchiver constructs an archiver.
func NewArchiver(photos *photo.Store, files *storage.Manager, logger *slog.Logger) *Archiver {
	return &Archiver{
		photos: photos,
		files:  files,
		logger: logging.NewComponentLogger(logger, "export"),
	}
}

// entry is one file destined for the archive.
type entry struct {
	name string
	path string
	size int64
}

// Estimate counts matching photos and sums the real on-disk sizes of the
// files an archive would contain.
func (a *Archiver) Estimate(ctx context.Context, filter Filter) (*Estimate, error) {
	photos, entries, err := a.collect(ctx, filter)
	if err != nil {
		return nil, err
	}
	est := &Estimate{Count: len(photos)}
	for _, e := range entries {
		est.TotalBytes += e.size
	}
	return est, nil
}

// WriteArchive streams the export as a ZIP to w. The archive holds the styled
// variant of every matching photo, plus originals when the filter asks for
// them. Returns ErrNoPhotos when the filter matches nothing.
func (a *Archiver) WriteArchive(ctx context.Context, filter Filter, w io.Writer) (*Manifest, error) {
	photos, entries, err := a.collect(ctx, filter)
	if err != nil {
		return nil, err
	}

	zw := zip.NewWriter(w)
	manifest := &Manifest{Count: len(photos), CreatedAt: time.Now().UTC()}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			zw.Close()
			return nil, err
		}
		written, err := a.writeEntry(zw, e, manifest.CreatedAt)
		if err != nil {
			zw.Close()
			return nil, err
		}
		manifest.TotalBytes += written
	}
	if err := zw.Close(); err != nil {
		return nil, services.Wrap(services.ErrStorage, "export", "write archive", "finalize zip", err)
	}

	a.logger.Info("export archive written",
		logging.Int("photos", manifest.Count),
		logging.Int64("bytes", manifest.TotalBytes))
	return manifest, nil
}

func (a *Archiver) writeEntry(zw *zip.Writer, e entry, modified time.Time) (int64, error) {
	f, err := os.Open(e.path)
	if err != nil {
		return 0, services.Wrap(services.ErrStorage, "export", "write archive",
			fmt.Sprintf("open %s", e.name), err)
	}
	defer f.Close()

	header := &zip.FileHeader{Name: e.name, Method: zip.Deflate, Modified: modified}
	ew, err := zw.CreateHeader(header)
	if err != nil {
		return 0, services.Wrap(services.ErrStorage, "export", "write archive",
			fmt.Sprintf("create entry %s", e.name), err)
	}
	written, err := io.Copy(ew, f)
	if err != nil {
		return 0, services.Wrap(services.ErrStorage, "export", "write archive",
			fmt.Sprintf("copy %s", e.name), err)
	}
	return written, nil
}

// collect lists matching completed photos and resolves their archive entries.
// Photos whose files vanished since completion are skipped with a warning
// rather than failing the whole export.
func (a *Archiver) collect(ctx context.Context, filter Filter) ([]*photo.Photo, []entry, error) {
	matched, err := a.photos.List(ctx, photo.Filter{
		OwnerID: filter.OwnerID,
		Preset:  filter.Preset,
		Status:  photo.StatusCompleted,
		From:    filter.From,
		To:      filter.To,
	})
	if err != nil {
		return nil, nil, err
	}

	var photos []*photo.Photo
	var entries []entry
	for _, p := range matched {
		styled := p.TransformedPath
		if styled == "" {
			styled = a.files.VariantPath(p.ID, p.Preset)
		}
		info, err := os.Stat(styled)
		if err != nil {
			a.logger.Warn("skipping photo with missing styled file",
				logging.String(logging.FieldPhotoID, p.ID),
				logging.Error(err))
			continue
		}
		photos = append(photos, p)
		entries = append(entries, entry{
			name: p.ID + "-" + p.Preset + ".jpg",
			path: styled,
			size: info.Size(),
		})

		if filter.IncludeOriginals {
			original := a.files.VariantPath(p.ID, storage.VariantOriginal)
			if origInfo, err := os.Stat(original); err == nil {
				entries = append(entries, entry{
					name: p.ID + "-original.jpg",
					path: original,
					size: origInfo.Size(),
				})
			}
		}
	}

	if len(photos) == 0 {
		return nil, nil, services.Wrap(services.ErrNoPhotos, "export", "collect", "no completed photos match filter", nil)
	}
	return photos, entries, nil
}
