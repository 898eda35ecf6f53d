// Package media stores uploaded files for development deployments.
package media

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
	"github.com/Riddimental/Backend-Noctra/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LocalStorage writes uploads under root/<kind>/<category>/ and hands out
// references under baseURL with the same layout
type LocalStorage struct {
	root    string
	baseURL string
}

func NewLocalStorage(root, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	if baseURL == "" {
		baseURL = "/media"
	}
	return &LocalStorage{root: root, baseURL: "/" + strings.Trim(baseURL, "/")}, nil
}

// Root is the directory served under BaseURL
func (s *LocalStorage) Root() string { return s.root }

// BaseURL prefixes every reference
func (s *LocalStorage) BaseURL() string { return s.baseURL }

// Put writes the upload under a fresh name. The file appears atomically.
func (s *LocalStorage) Put(ctx context.Context, upload *domain.MediaUpload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := filepath.Join(s.root, string(upload.Kind), string(upload.Category))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	name := uuid.New().String() + strings.ToLower(filepath.Ext(upload.Filename))
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(upload.Data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write media: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close media: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return "", fmt.Errorf("publish media: %w", err)
	}

	ref := path.Join(s.baseURL, string(upload.Kind), string(upload.Category), name)
	logger.DebugCtx(ctx, "media stored", zap.String("ref", ref), zap.Int("bytes", len(upload.Data)))
	return ref, nil
}
