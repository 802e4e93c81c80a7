// Package media stores uploaded post images on the local filesystem.
//
// Uploads are decoded just far enough to read their header
// (image.DecodeConfig), so anything that is not a GIF, PNG, JPEG, WebP or
// BMP image is rejected before it touches the disk.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/xid"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/sakif/yatube/internal/apperror"
)

const (
	// MaxImageSize is the largest accepted upload.
	MaxImageSize = 5 << 20

	// PostsDir is the subdirectory post images live in, relative to the root.
	PostsDir = "posts"

	imageField = "image"
)

// Store writes files below Root and hands back paths relative to it.
type Store struct {
	Root   string
	logger *slog.Logger
}

// NewStore returns a store rooted at dir. The directory is created on
// first Save.
func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{Root: dir, logger: logger}
}

// Save validates the upload and writes it to <Root>/posts/<name>.
//
// The returned path is relative to Root with forward slashes, e.g.
// "posts/small.gif". If the name is taken, an "_<xid>" suffix is added
// before the extension. Validation failures are apperror.ValidationFailed
// on the "image" field.
func (s *Store) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return "", fmt.Errorf("media: reading upload: %w", err)
	}
	if len(data) > MaxImageSize {
		return "", apperror.ValidationFailed(imageField, "The image must be 5 MB or smaller.")
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", apperror.ValidationFailed(imageField,
			"Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}
	s.logger.DebugContext(ctx, "accepted upload",
		slog.String("filename", filename),
		slog.String("format", format),
		slog.Int("bytes", len(data)),
	)

	dir := filepath.Join(s.Root, PostsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("media: creating %s: %w", dir, err)
	}

	name := cleanName(filename)
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		ext := filepath.Ext(name)
		name = strings.TrimSuffix(name, ext) + "_" + xid.New().String() + ext
		f, err = os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	}
	if err != nil {
		return "", fmt.Errorf("media: creating %s: %w", name, err)
	}

	rel := path.Join(PostsDir, name)
	_, err = f.Write(data)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		s.Remove(ctx, rel)
		return "", fmt.Errorf("media: writing %s: %w", name, err)
	}

	return rel, nil
}

// Remove deletes a stored file. A missing file is not an error; other
// failures are logged, since callers are already on an error path.
func (s *Store) Remove(ctx context.Context, rel string) {
	if err := os.Remove(s.Path(rel)); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.WarnContext(ctx, "failed to remove image",
			slog.String("path", rel),
			slog.String("error", err.Error()),
		)
	}
}

// Path maps a stored relative path back to its location on disk.
func (s *Store) Path(rel string) string {
	return filepath.Join(s.Root, filepath.FromSlash(rel))
}

// cleanName strips any directory part of a client-supplied filename.
// Browsers on Windows send full paths with backslashes.
func cleanName(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	switch name {
	case "", ".", "/", "..":
		return "upload"
	}
	return name
}
