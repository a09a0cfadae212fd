// Package localstorage keeps CLI download jobs on the local filesystem.
package localstorage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	inputFile    = "input.json"
	metadataFile = "record.json"
	defaultVideo = "video.mp4"
)

// LocalStorage implements ports.Storage. Each job gets jobs/<id>/ under BaseDir.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a new LocalStorage instance.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

// InitJob creates the job directory.
func (s *LocalStorage) InitJob(ctx context.Context, jobID string) error {
	path := s.GetJobPath(jobID)
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create job directory %s: %w", path, err)
	}
	return nil
}

// SaveInput saves the job description.
func (s *LocalStorage) SaveInput(ctx context.Context, jobID string, data []byte) error {
	return s.writeFile(jobID, inputFile, data)
}

// SaveMetadata saves the record that described the media.
func (s *LocalStorage) SaveMetadata(ctx context.Context, jobID string, data []byte) error {
	return s.writeFile(jobID, metadataFile, data)
}

// SaveVideo streams the media into the job directory. The file only appears
// under its final name once fully written.
func (s *LocalStorage) SaveVideo(ctx context.Context, jobID string, reader io.Reader, filename string) error {
	filename = safeName(filename)
	if filename == "" {
		filename = defaultVideo
	}
	dir := s.GetJobPath(jobID)

	tmp, err := os.CreateTemp(dir, filename+".part-*")
	if err != nil {
		return fmt.Errorf("failed to create video file in %s: %w", dir, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: reader}); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write video file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close video file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, filename)); err != nil {
		return fmt.Errorf("failed to finalize video file: %w", err)
	}
	return nil
}

// GetJobPath returns the path for a job directory.
func (s *LocalStorage) GetJobPath(jobID string) string {
	return filepath.Join(s.BaseDir, "jobs", safeName(jobID))
}

func (s *LocalStorage) writeFile(jobID, name string, data []byte) error {
	path := filepath.Join(s.GetJobPath(jobID), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	return nil
}

// safeName keeps a single path element.
func safeName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return ""
	}
	return name
}

// ctxReader stops a copy when the context is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
