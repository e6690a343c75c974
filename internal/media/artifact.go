package media

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"presence/internal/services"
)

// MaxUploadBytes is the client-side ceiling on artifact size. Enforced before
// any network call; the server applies the same limit.
const MaxUploadBytes = 200 << 20

// DefaultMIMEType is assumed when the container format cannot be determined.
const DefaultMIMEType = "video/webm"

// Artifact is a finalized recorded or selected media object. Immutable after
// creation; one artifact is produced per capture session or file selection.
type Artifact struct {
	name     string
	mimeType string
	size     int64
	data     []byte
	path     string
}

// New builds an in-memory artifact from finalized recording data.
func New(name, mimeType string, data []byte) *Artifact {
	if strings.TrimSpace(mimeType) == "" {
		mimeType = DefaultMIMEType
	}
	return &Artifact{
		name:     name,
		mimeType: mimeType,
		size:     int64(len(data)),
		data:     data,
	}
}

// FromFile builds an artifact backed by an existing file. The file must remain
// in place until the artifact has been uploaded.
func FromFile(path string) (*Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat media file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("media path %q is a directory", path)
	}
	return &Artifact{
		name:     filepath.Base(path),
		mimeType: mimeTypeForExtension(filepath.Ext(path)),
		size:     info.Size(),
		path:     path,
	}, nil
}

// Name returns the upload filename.
func (a *Artifact) Name() string { return a.name }

// MIMEType returns the container MIME type.
func (a *Artifact) MIMEType() string { return a.mimeType }

// SizeBytes returns the artifact size.
func (a *Artifact) SizeBytes() int64 { return a.size }

// WithName returns a copy of the artifact carrying a different upload
// filename. The underlying bytes are shared, never copied.
func (a *Artifact) WithName(name string) *Artifact {
	clone := *a
	clone.name = name
	return &clone
}

// Open returns a reader over the artifact bytes.
func (a *Artifact) Open() (io.ReadCloser, error) {
	if a.path != "" {
		file, err := os.Open(a.path)
		if err != nil {
			return nil, fmt.Errorf("open media file: %w", err)
		}
		return file, nil
	}
	return io.NopCloser(bytes.NewReader(a.data)), nil
}

// Validate checks the artifact against the upload size contract. It must pass
// before any upload is attempted.
func (a *Artifact) Validate() error {
	if a.size <= 0 {
		return services.Wrap(services.ErrEmptyCapture, "media", "validate", "artifact has no data", nil)
	}
	if a.size > MaxUploadBytes {
		return services.Wrap(services.ErrArtifactTooLarge, "media", "validate",
			fmt.Sprintf("artifact is %d bytes, limit is %d", a.size, int64(MaxUploadBytes)), nil)
	}
	return nil
}

func mimeTypeForExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".webm":
		return "video/webm"
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".mkv":
		return "video/x-matroska"
	case ".avi":
		return "video/x-msvideo"
	default:
		return DefaultMIMEType
	}
}
