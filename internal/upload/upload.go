// Package upload validates avatar images and stores them on disk or in an
// S3-compatible bucket under a flat namespace.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

const (
	MaxAvatarBytes = 2 << 20
	URLPrefix      = "/uploads/"
)

var (
	ErrNoFile   = fmt.Errorf("%w: no file", domain.ErrInvalidUpload)
	ErrNotImage = fmt.Errorf("%w: not an image", domain.ErrInvalidUpload)
	ErrTooLarge = fmt.Errorf("%w: file too large", domain.ErrInvalidUpload)
	ErrNotFound = errors.New("upload: object not found")
)

type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
	ModTime     time.Time
}

type Store interface {
	Save(ctx context.Context, name, contentType string, data []byte) error
	Open(ctx context.Context, name string) (*Object, error)
	Delete(ctx context.Context, name string) error
}

// Image is an upload that passed Validate.
type Image struct {
	Data        []byte
	ContentType string
	Ext         string
}

// Validate reads at most MaxAvatarBytes+1 bytes from r and sniffs the
// content. The client-supplied content type is never consulted; filename is
// only used for the extension when the sniffed type has none.
func Validate(r io.Reader, filename string) (Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxAvatarBytes+1))
	if err != nil {
		return Image{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return Image{}, ErrNoFile
	}
	if len(data) > MaxAvatarBytes {
		return Image{}, ErrTooLarge
	}

	mt := mimetype.Detect(data)
	ctype, _, _ := strings.Cut(mt.String(), ";")
	if !RasterType(ctype) {
		return Image{}, ErrNotImage
	}
	ext := mt.Extension()
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(filename))
	}
	return Image{Data: data, ContentType: ctype, Ext: ext}, nil
}

// rasterTypes are the accepted avatar formats. SVG is not one: it can carry
// script.
var rasterTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// RasterType reports whether ctype is an accepted avatar format.
func RasterType(ctype string) bool {
	return rasterTypes[strings.ToLower(strings.TrimSpace(ctype))]
}

// ObjectName is "<userID>-<unixMillis><ext>".
func ObjectName(userID string, now time.Time, ext string) string {
	return fmt.Sprintf("%s-%d%s", userID, now.UnixMilli(), ext)
}

func PublicURL(name string) string { return URLPrefix + name }

// NameFromURL returns the object name behind an avatar URL we issued, or
// false for anything else (default avatar, provider-hosted images).
func NameFromURL(u string) (string, bool) {
	name, ok := strings.CutPrefix(u, URLPrefix)
	if !ok || !ValidName(name) {
		return "", false
	}
	return name, true
}

// ValidName rejects anything that could escape the flat namespace.
func ValidName(name string) bool {
	if name == "" || len(name) > 200 || strings.HasPrefix(name, ".") {
		return false
	}
	if strings.ContainsAny(name, `/\`) || path.Clean(name) != name {
		return false
	}
	return true
}
