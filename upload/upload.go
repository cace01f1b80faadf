// Package upload stores input images and derives what the editor needs from
// them: a reference to submit and the native pixel size.
package upload

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/meikuraledutech/pipeline"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/semaphore"
)

var (
	ErrTooLarge    = errors.New("upload: file too large")
	ErrUnsupported = errors.New("upload: unsupported image format")
	ErrEmpty       = errors.New("upload: empty file")
)

// DefaultMaxBytes is the upload limit when none is configured.
const DefaultMaxBytes = 10 << 20

// Image describes one stored upload.
type Image struct {
	Filename string        `json:"filename"`
	Path     string        `json:"filepath"`
	URL      string        `json:"url"`
	Size     int64         `json:"size"`
	Native   pipeline.Size `json:"native"`
	DataURL  string        `json:"base64"`
	Preview  string        `json:"preview,omitempty"`
}

// Store writes uploads under a directory served at urlPrefix.
type Store struct {
	dir         string
	urlPrefix   string
	maxBytes    int64
	previewEdge int
	previews    *semaphore.Weighted
	log         *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithMaxBytes sets the largest accepted upload.
func WithMaxBytes(n int64) Option {
	return func(s *Store) {
		s.maxBytes = n
	}
}

// WithPreviewEdge sets the longest edge of generated previews. Zero disables them.
func WithPreviewEdge(px int) Option {
	return func(s *Store) {
		s.previewEdge = px
	}
}

// WithURLPrefix sets the public path the upload directory is served under.
func WithURLPrefix(p string) Option {
	return func(s *Store) {
		s.urlPrefix = strings.TrimRight(p, "/")
	}
}

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// New creates dir if needed and returns a Store writing into it.
func New(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload: create dir: %w", err)
	}
	s := &Store{
		dir:         dir,
		urlPrefix:   "/uploads",
		maxBytes:    DefaultMaxBytes,
		previewEdge: 512,
		previews:    semaphore.NewWeighted(3),
		log:         slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir is the directory uploads are written to.
func (s *Store) Dir() string {
	return s.dir
}

var mimeTypes = map[imaging.Format]string{
	imaging.JPEG: "image/jpeg",
	imaging.PNG:  "image/png",
	imaging.GIF:  "image/gif",
	imaging.BMP:  "image/bmp",
	imaging.TIFF: "image/tiff",
}

// Save stores the image read from r under a fresh name. The original name
// only contributes its extension, which must be a decodable image format.
func (s *Store) Save(ctx context.Context, name string, r io.Reader) (Image, error) {
	format, err := imaging.FormatFromFilename(name)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(name))
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return Image{}, fmt.Errorf("upload: read: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return Image{}, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, s.maxBytes)
	}
	if len(data) == 0 {
		return Image{}, ErrEmpty
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	bounds := img.Bounds()

	id := ulid.Make().String()
	filename := id + strings.ToLower(filepath.Ext(name))
	path := filepath.Join(s.dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Image{}, fmt.Errorf("upload: write: %w", err)
	}

	out := Image{
		Filename: filename,
		Path:     path,
		URL:      s.urlPrefix + "/" + filename,
		Size:     int64(len(data)),
		Native:   pipeline.Size{Width: float64(bounds.Dx()), Height: float64(bounds.Dy())},
		DataURL:  "data:" + mimeTypes[format] + ";base64," + base64.StdEncoding.EncodeToString(data),
	}

	if s.previewEdge > 0 {
		preview, err := s.writePreview(ctx, id, img)
		if err != nil {
			// The upload itself is usable without a preview.
			s.log.WarnContext(ctx, "preview failed", "filename", filename, "error", err)
		} else {
			out.Preview = preview
		}
	}

	s.log.InfoContext(ctx, "image uploaded",
		"filename", filename,
		"size", out.Size,
		"width", bounds.Dx(),
		"height", bounds.Dy(),
	)
	return out, nil
}

func (s *Store) writePreview(ctx context.Context, id string, img image.Image) (string, error) {
	if err := s.previews.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer s.previews.Release(1)

	name := id + "_preview.png"
	thumb := imaging.Fit(img, s.previewEdge, s.previewEdge, imaging.Lanczos)
	if err := imaging.Save(thumb, filepath.Join(s.dir, name)); err != nil {
		return "", err
	}
	return s.urlPrefix + "/" + name, nil
}
