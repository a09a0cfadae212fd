package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"videominer/internal/core/domain"
	"videominer/internal/core/ports"
)

// DownloadJob resolves a page URL to its media and stores both on disk.
type DownloadJob struct {
	extractors *Extractors
	downloader ports.Downloader
	storage    ports.Storage
	logger     zerolog.Logger
}

// NewDownloadJob creates a new DownloadJob.
func NewDownloadJob(
	extractors *Extractors,
	downloader ports.Downloader,
	storage ports.Storage,
	logger zerolog.Logger,
) *DownloadJob {
	return &DownloadJob{
		extractors: extractors,
		downloader: downloader,
		storage:    storage,
		logger:     logger.With().Str("component", "download").Logger(),
	}
}

// RunJob executes a complete download job for the given URL.
func (d *DownloadJob) RunJob(ctx context.Context, rawURL string) (*domain.JobResult, error) {
	jobID := uuid.New().String()
	job := domain.Job{
		ID:        jobID,
		URL:       rawURL,
		Source:    DetectSource(rawURL),
		CreatedAt: time.Now().UTC(),
	}

	result := &domain.JobResult{Job: job, Success: false}
	logger := d.logger.With().Str("job_id", jobID).Logger()
	logger.Info().Str("url", rawURL).Msg("starting job")

	fail := func(msg string, err error) (*domain.JobResult, error) {
		result.ErrorMessage = fmt.Sprintf("%s: %v", msg, err)
		logger.Error().Err(err).Msg(msg)
		return result, fmt.Errorf("%s: %w", msg, err)
	}

	if err := d.storage.InitJob(ctx, jobID); err != nil {
		return fail("failed to init job", err)
	}

	inputData, _ := json.MarshalIndent(job, "", "  ")
	if err := d.storage.SaveInput(ctx, jobID, inputData); err != nil {
		logger.Warn().Err(err).Msg("failed to save input")
	}

	logger.Info().Msg("resolving media URL")
	video := d.resolve(ctx, rawURL)
	if !video.Success || video.VideoURL == "" {
		return fail("failed to resolve media", fmt.Errorf("%s: %w", video.Error, domain.ErrNothingFound))
	}
	logger.Info().Str("method", video.Method).Msg("media resolved")

	metadata, _ := json.MarshalIndent(video, "", "  ")
	if err := d.storage.SaveMetadata(ctx, jobID, metadata); err != nil {
		return fail("failed to save metadata", err)
	}
	result.MetadataPath = filepath.Join(d.storage.GetJobPath(jobID), "record.json")

	logger.Info().Msg("downloading video stream")
	reader, err := d.downloader.Download(ctx, video.VideoURL)
	if err != nil {
		return fail("failed to download video", err)
	}
	defer reader.Close()

	filename := "video" + mediaExt(video.VideoURL)
	if err := d.storage.SaveVideo(ctx, jobID, reader, filename); err != nil {
		return fail("failed to save video", err)
	}
	result.VideoPath = filepath.Join(d.storage.GetJobPath(jobID), filename)

	result.Success = true
	result.CompletedAt = time.Now().UTC()
	logger.Info().Str("path", d.storage.GetJobPath(jobID)).Msg("job completed")
	return result, nil
}

// resolve picks the extraction chain by host.
func (d *DownloadJob) resolve(ctx context.Context, rawURL string) domain.ExtractedVideo {
	host := hostOf(rawURL)
	switch {
	case strings.Contains(host, "sora"):
		sora := d.extractors.ExtractSoraVideo(ctx, rawURL)
		return domain.ExtractedVideo{
			Success:      sora.Success,
			VideoURL:     sora.VideoURL,
			ThumbnailURL: sora.ThumbnailURL,
			Title:        sora.Title,
			Description:  sora.Prompt,
			Author:       sora.Creator,
			SourceURL:    sora.SourceURL,
			Method:       sora.Method,
			Error:        sora.Error,
		}
	case strings.Contains(host, "shopee"):
		return d.extractors.ExtractShopeeVideo(ctx, rawURL)
	}
	return d.extractors.ExtractVideo(ctx, rawURL)
}

// DetectSource guesses the platform from the URL host. Unknown hosts yield "".
func DetectSource(rawURL string) domain.Source {
	host := hostOf(rawURL)
	switch {
	case strings.Contains(host, "youtube.com"), host == "youtu.be":
		return domain.SourceYouTube
	case strings.Contains(host, "tiktok.com"):
		return domain.SourceTikTok
	case strings.Contains(host, "shopee"):
		return domain.SourceShopee
	case strings.Contains(host, "instagram.com"):
		return domain.SourceInstagram
	case strings.Contains(host, "facebook.com"), host == "fb.watch":
		return domain.SourceFacebook
	case strings.Contains(host, "pinterest."), host == "pin.it":
		return domain.SourcePinterest
	case strings.Contains(host, "aliexpress."):
		return domain.SourceAliExpress
	}
	return ""
}

func hostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func mediaExt(mediaURL string) string {
	u, err := url.Parse(mediaURL)
	if err == nil {
		switch ext := strings.ToLower(path.Ext(u.Path)); ext {
		case ".webm", ".mov", ".m4v":
			return ext
		}
	}
	return ".mp4"
}
