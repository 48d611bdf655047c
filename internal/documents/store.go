package documents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore persists evaluation documents under their generated reference
type FileStore interface {
	Save(ctx context.Context, ref string, data []byte) error
	Read(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
}

// LocalStore stores documents on the local filesystem
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create document directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// validateRef rejects references that could escape the store directory
func (s *LocalStore) validateRef(ref string) error {
	if ref == "" {
		return fmt.Errorf("document ref is empty")
	}
	if strings.Contains(ref, "/") || strings.Contains(ref, "\\") || strings.Contains(ref, "..") {
		return fmt.Errorf("invalid document ref %q", ref)
	}
	return nil
}

func (s *LocalStore) Save(ctx context.Context, ref string, data []byte) error {
	if err := s.validateRef(ref); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(s.dir, ref), data, 0o644); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

func (s *LocalStore) Read(ctx context.Context, ref string) ([]byte, error) {
	if err := s.validateRef(ref); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, ref))
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return data, nil
}

func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	if err := s.validateRef(ref); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, ref)); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
