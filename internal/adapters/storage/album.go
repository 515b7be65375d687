// Package storage archives aligned face crops and caller-supplied analyses
// as timestamped files, optionally mirrored to an S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/faceattr/pkg/logger"
	"github.com/okian/faceattr/pkg/metrics"
)

// Artifact kinds, also used as metric labels.
const (
	KindAligned  = "aligned"
	KindAnalysis = "analysis"
)

const (
	timestampLayout = "20060102_150405"
	maxSuffix       = 1000
	filePerm        = 0o644
	dirPerm         = 0o755
)

// Album is a write-only archive rooted at a directory.
type Album struct {
	dir         string
	now         func() time.Time
	jpegQuality int
	mirror      Mirror
	log         logger.Logger
}

// NewAlbum creates dir if needed and returns an Album writing into it.
func NewAlbum(dir string, opts ...Option) (*Album, error) {
	a := &Album{
		dir:         dir,
		now:         time.Now,
		jpegQuality: 95,
		log:         logger.Named("storage"),
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("create albums dir %s: %w", dir, err)
	}
	return a, nil
}

// Dir returns the archive directory.
func (a *Album) Dir() string { return a.dir }

// SaveAligned writes img as aligned_<YYYYMMDD_HHMMSS>.jpg and returns the path.
func (a *Album) SaveAligned(ctx context.Context, img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: a.jpegQuality}); err != nil {
		return "", fmt.Errorf("encode aligned face: %w", err)
	}
	ts := a.now().Format(timestampLayout)
	return a.store(ctx, KindAligned, "aligned_"+ts, ".jpg", "image/jpeg", buf.Bytes())
}

// SaveAnalysis writes data verbatim as analysis_<YYYYMMDD_HHMMSS>_predictions.json
// and returns the path.
func (a *Album) SaveAnalysis(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyPayload
	}
	ts := a.now().Format(timestampLayout)
	return a.store(ctx, KindAnalysis, "analysis_"+ts+"_predictions", ".json", "application/json", data)
}

func (a *Album) store(ctx context.Context, kind, stem, ext, contentType string, data []byte) (string, error) {
	path, err := writeExclusive(a.dir, stem, ext, data)
	metrics.RecordArchiveWrite(kind, "disk", err == nil)
	if err != nil {
		return "", err
	}

	if a.mirror != nil {
		key := filepath.Base(path)
		merr := a.mirror.Put(ctx, key, contentType, data)
		metrics.RecordArchiveWrite(kind, "s3", merr == nil)
		if merr != nil {
			a.log.Warn(ctx, "mirror upload failed",
				logger.String("key", key),
				logger.Error(merr))
		}
	}
	return path, nil
}

// writeExclusive creates stem+ext in dir, or stem_2+ext, stem_3+ext, ... when
// the name is taken. Existing files are never overwritten.
func writeExclusive(dir, stem, ext string, data []byte) (string, error) {
	for n := 1; n <= maxSuffix; n++ {
		name := stem + ext
		if n > 1 {
			name = fmt.Sprintf("%s_%d%s", stem, n, ext)
		}
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", path, err)
		}

		_, werr := f.Write(data)
		cerr := f.Close()
		if werr != nil || cerr != nil {
			_ = os.Remove(path)
			return "", fmt.Errorf("write %s: %w", path, errors.Join(werr, cerr))
		}
		return path, nil
	}
	return "", fmt.Errorf("%w: %s%s", ErrNameExhausted, stem, ext)
}
