// Package media reads scene reference images for image-to-video prompts.
package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/jywlabs/scriptwiz/internal/llm"
)

// MaxImageSize is the largest image accepted.
const MaxImageSize = 20 << 20

// Allowed lists the accepted media types.
var Allowed = []string{"image/png", "image/jpeg", "image/webp"}

// UnsupportedError is returned for images whose content is not an accepted type.
type UnsupportedError struct {
	Name     string
	Detected string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported image %q: detected %s (accepted: png, jpeg, webp)", e.Name, e.Detected)
}

// ReadFile loads an image from disk.
func ReadFile(path string) (*llm.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()
	return Read(filepath.Base(path), f)
}

// Read loads an image from r. The media type is detected from the content,
// not from the name.
func Read(name string, r io.Reader) (*llm.Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image %q is empty", name)
	}
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("image %q exceeds %d MB", name, MaxImageSize>>20)
	}

	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), Allowed...) {
		return nil, &UnsupportedError{Name: name, Detected: mt.String()}
	}

	return &llm.Image{
		Name:      name,
		MediaType: mt.String(),
		Data:      data,
	}, nil
}
