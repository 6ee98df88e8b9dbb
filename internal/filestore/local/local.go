package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chrishenyard/ai-receipts/internal/filestore"
)

type LocalFileStore struct {
	basePath string
}

func NewLocalFileStore(basePath string) (*LocalFileStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalFileStore{basePath: basePath}, nil
}

// Save writes data under a YYYYMMDD partition directory, created on demand.
// The stored name is the original stem plus a uuid suffix, so concurrent
// uploads with identical names never collide and nothing is overwritten.
func (s *LocalFileStore) Save(ctx context.Context, originalName string, data []byte) (string, error) {
	ext := filepath.Ext(originalName)
	stem := strings.TrimSuffix(filepath.Base(originalName), ext)
	if stem == "" || stem == "." {
		stem = "upload"
	}

	partition := time.Now().UTC().Format("20060102")
	dir := filepath.Join(s.basePath, partition)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create partition directory: %w", err)
	}

	filename := fmt.Sprintf("%s_%s%s", stem, uuid.NewString(), ext)
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return filepath.ToSlash(filepath.Join(partition, filename)), nil
}

func (s *LocalFileStore) Download(ctx context.Context, relativePath string) ([]byte, error) {
	filePath, err := s.safeJoin(relativePath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, filestore.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func (s *LocalFileStore) Delete(ctx context.Context, relativePath string) error {
	filePath, err := s.safeJoin(relativePath)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return filestore.ErrNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// safeJoin resolves relativePath against basePath and rejects directory
// traversal.
func (s *LocalFileStore) safeJoin(relativePath string) (string, error) {
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(s.basePath, filepath.FromSlash(relativePath)))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt")
	}
	return absPath, nil
}
