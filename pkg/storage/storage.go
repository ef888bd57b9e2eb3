package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// AttachmentStore persists work order attachment files. Only the path
// reference goes into the database.
type AttachmentStore interface {
	// Save writes src under a work-order-scoped directory and returns
	// the stored path.
	Save(workOrderID uuid.UUID, fileName string, src io.Reader) (string, error)

	// Open returns a reader for a previously stored path.
	Open(path string) (io.ReadCloser, error)
}

type fileStore struct {
	baseDir string
}

// NewFileStore creates an AttachmentStore rooted at baseDir.
func NewFileStore(baseDir string) (AttachmentStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create attachments dir: %w", err)
	}
	return &fileStore{baseDir: baseDir}, nil
}

var _ AttachmentStore = (*fileStore)(nil)

func (s *fileStore) Save(workOrderID uuid.UUID, fileName string, src io.Reader) (string, error) {
	// Strip any directory components a client might smuggle in.
	fileName = filepath.Base(fileName)
	if fileName == "." || fileName == string(filepath.Separator) {
		return "", fmt.Errorf("invalid attachment file name")
	}

	dir := filepath.Join(s.baseDir, workOrderID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create work order dir: %w", err)
	}

	// Prefix with a fresh UUID so repeated uploads of the same name
	// never clobber each other.
	path := filepath.Join(dir, uuid.NewString()+"_"+fileName)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create attachment file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write attachment: %w", err)
	}

	return path, nil
}

func (s *fileStore) Open(path string) (io.ReadCloser, error) {
	// Refuse paths that escape the store.
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve attachment path: %w", err)
	}
	base, err := filepath.Abs(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve attachments dir: %w", err)
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil || !filepath.IsLocal(rel) {
		return nil, fmt.Errorf("attachment path outside store")
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open attachment: %w", err)
	}
	return f, nil
}
