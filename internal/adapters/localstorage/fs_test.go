package localstorage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestJobLifecycle(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir)
	ctx := context.Background()

	if err := s.InitJob(ctx, "job-1"); err != nil {
		t.Fatalf("InitJob() error = %v", err)
	}
	if err := s.SaveInput(ctx, "job-1", []byte(`{"url":"x"}`)); err != nil {
		t.Fatalf("SaveInput() error = %v", err)
	}
	if err := s.SaveMetadata(ctx, "job-1", []byte(`{"videoUrl":"y"}`)); err != nil {
		t.Fatalf("SaveMetadata() error = %v", err)
	}
	if err := s.SaveVideo(ctx, "job-1", strings.NewReader("mp4 bytes"), "../../escape.mp4"); err != nil {
		t.Fatalf("SaveVideo() error = %v", err)
	}

	jobDir := filepath.Join(dir, "jobs", "job-1")
	if s.GetJobPath("job-1") != jobDir {
		t.Errorf("GetJobPath() = %s", s.GetJobPath("job-1"))
	}
	for _, name := range []string{"input.json", "record.json", "escape.mp4"} {
		if _, err := os.Stat(filepath.Join(jobDir, name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}

	entries, err := os.ReadDir(jobDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("job dir has %d entries, want 3 (no leftover temp files)", len(entries))
	}
}

func TestSaveVideoCancelled(t *testing.T) {
	s := NewLocalStorage(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	if err := s.InitJob(ctx, "j"); err != nil {
		t.Fatal(err)
	}
	cancel()

	if err := s.SaveVideo(ctx, "j", strings.NewReader("data"), ""); err == nil {
		t.Fatal("SaveVideo() succeeded with cancelled context")
	}
	if _, err := os.Stat(filepath.Join(s.GetJobPath("j"), "video.mp4")); !os.IsNotExist(err) {
		t.Errorf("partial video left behind: %v", err)
	}
}
