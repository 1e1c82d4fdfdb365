// Package upload stores user-submitted images under a public directory.
package upload

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	// MaxImageSize is the upload cap, 5 MiB.
	MaxImageSize = 5 << 20

	sniffLen = 512
)

var (
	ErrUnsupportedType = errors.New("upload: unsupported image type")
	ErrTooLarge        = errors.New("upload: file exceeds 5MB limit")
)

// Content type decides the stored extension; the client-supplied filename is
// only used for logging.
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Stored describes a persisted upload.
type Stored struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
}

// Service writes validated images to dir and exposes them under baseURL.
type Service struct {
	dir     string
	baseURL string
}

// NewService ensures the target directory exists.
func NewService(dir, baseURL string) (*Service, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("upload: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload: create dir: %w", err)
	}
	return &Service{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// SaveImage sniffs the content type, enforces the size cap and writes the
// file under a random-suffixed name so uploads cannot clobber each other.
func (s *Service) SaveImage(r io.Reader) (Stored, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return Stored{}, err
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	ext, ok := allowedTypes[contentType]
	if !ok {
		return Stored{}, ErrUnsupportedType
	}

	name := uuid.NewString() + ext
	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Stored{}, err
	}
	defer f.Close()

	// +1 so an exactly-at-limit read can be told apart from an overflow.
	limited := io.LimitReader(r, MaxImageSize-int64(len(head))+1)
	written, err := f.Write(head)
	if err != nil {
		_ = os.Remove(path)
		return Stored{}, err
	}
	copied, err := io.Copy(f, limited)
	if err != nil {
		_ = os.Remove(path)
		return Stored{}, err
	}
	total := int64(written) + copied
	if total > MaxImageSize {
		_ = os.Remove(path)
		return Stored{}, ErrTooLarge
	}

	return Stored{
		Filename: name,
		URL:      s.baseURL + "/" + name,
		Size:     total,
	}, nil
}
