package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-report-service/internal/domain"
)

// ArtifactStore persists rendered report bytes under a reports directory.
// The report pipeline itself never touches the filesystem; everything file
// shaped lives here.
type ArtifactStore struct {
	dir    string
	logger *zap.Logger
}

// NewArtifactStore ensures the reports directory exists.
func NewArtifactStore(dir string, logger *zap.Logger) (*ArtifactStore, error) {
	if dir == "" {
		dir = "reports"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create reports dir: %w", err)
	}
	return &ArtifactStore{dir: dir, logger: logger}, nil
}

// Save writes the artifact, returning the final name. When the derived name
// already exists a short random suffix disambiguates; base names alone are
// not collision-resistant within a second.
func (s *ArtifactStore) Save(name string, data []byte) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err == nil {
		ext := filepath.Ext(name)
		name = strings.TrimSuffix(name, ext) + "_" + uuid.NewString()[:8] + ext
		path = filepath.Join(s.dir, name)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("stored report artifact", zap.String("name", name), zap.Int("bytes", len(data)))
	}
	return name, nil
}

// Read returns the stored bytes for an artifact name.
func (s *ArtifactStore) Read(name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(s.dir, name))
}

// Exists reports whether an artifact is present on disk.
func (s *ArtifactStore) Exists(name string) bool {
	if err := validName(name); err != nil {
		return false
	}
	_, err := os.Stat(filepath.Join(s.dir, name))
	return err == nil
}

// List scans the reports directory, newest first. Used as the listing
// source when no metadata database is configured.
func (s *ArtifactStore) List() ([]domain.ReportArtifact, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read reports dir: %w", err)
	}
	artifacts := make([]domain.ReportArtifact, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		artifacts = append(artifacts, domain.ReportArtifact{
			Name:        entry.Name(),
			ContentType: ContentTypeFor(entry.Name()),
			SizeBytes:   info.Size(),
			CreatedAt:   info.ModTime(),
		})
	}
	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].CreatedAt.After(artifacts[j].CreatedAt)
	})
	return artifacts, nil
}

// validName rejects path traversal in artifact names.
func validName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid artifact name %q", name)
	}
	return nil
}

// ContentTypeFor maps an artifact extension to its media type.
func ContentTypeFor(name string) string {
	switch filepath.Ext(name) {
	case ".pdf":
		return "application/pdf"
	case ".md":
		return "text/markdown"
	default:
		return "application/octet-stream"
	}
}
