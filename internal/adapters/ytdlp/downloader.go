// Package ytdlp wraps the yt-dlp binary for direct media URLs and YouTube search.
package ytdlp

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultSearchLimit is the number of YouTube results requested per search.
const DefaultSearchLimit = 5

// Runner executes a command and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out.Bytes(), nil
}

// SearchResult is one entry of a ytsearch lookup.
type SearchResult struct {
	ID       string
	Title    string
	Duration string
	Channel  string
}

// WatchURL returns the canonical watch page of the result.
func (r SearchResult) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + r.ID
}

// ThumbnailURL returns the high quality default thumbnail of the result.
func (r SearchResult) ThumbnailURL() string {
	return "https://i.ytimg.com/vi/" + r.ID + "/hqdefault.jpg"
}

// Client uses the local yt-dlp binary.
type Client struct {
	binaryPath string
	runner     Runner
	lookPath   func(string) (string, error)
	timeout    time.Duration
	logger     zerolog.Logger
}

// NewClient creates a new Client. An empty binaryPath prefers yt-dlp.exe in
// the working directory and falls back to yt-dlp on PATH.
func NewClient(binaryPath string, logger zerolog.Logger) *Client {
	if binaryPath == "" {
		binaryPath = "yt-dlp"
		if _, err := os.Stat("yt-dlp.exe"); err == nil {
			binaryPath = ".\\yt-dlp.exe"
		}
	}
	return NewClientWithRunner(binaryPath, execRunner{}, exec.LookPath, logger)
}

// NewClientWithRunner wires a custom runner, mainly for tests.
func NewClientWithRunner(binaryPath string, runner Runner, lookPath func(string) (string, error), logger zerolog.Logger) *Client {
	return &Client{
		binaryPath: binaryPath,
		runner:     runner,
		lookPath:   lookPath,
		timeout:    2 * time.Minute,
		logger:     logger.With().Str("component", "ytdlp").Logger(),
	}
}

// Available reports whether the binary can be found.
func (c *Client) Available() bool {
	_, err := c.lookPath(c.binaryPath)
	return err == nil
}

// GetVideoURL fetches the direct download link using yt-dlp --get-url.
func (c *Client) GetVideoURL(ctx context.Context, videoURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// -f b: best single file with audio and video
	out, err := c.runner.Run(ctx, c.binaryPath, "-f", "b", "--get-url", "--no-warnings", videoURL)
	if err != nil {
		return "", err
	}

	urlStr := strings.TrimSpace(string(out))
	if urlStr == "" {
		return "", fmt.Errorf("yt-dlp returned empty URL")
	}

	// Separate video and audio streams come back one per line; the first is the video.
	return strings.SplitN(urlStr, "\n", 2)[0], nil
}

// Search runs a ytsearch lookup without resolving formats.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.runner.Run(ctx, c.binaryPath,
		fmt.Sprintf("ytsearch%d:%s", limit, query),
		"--flat-playlist",
		"--no-warnings",
		"--print", "%(id)s\t%(title)s\t%(duration)s\t%(channel)s",
	)
	if err != nil {
		return nil, err
	}

	results := ParseSearchOutput(out)
	c.logger.Debug().Str("query", query).Int("results", len(results)).Msg("youtube search")
	return results, nil
}

// ParseSearchOutput parses the tab-separated --print lines of a search.
func ParseSearchOutput(out []byte) []SearchResult {
	var results []SearchResult
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Split(strings.TrimRight(line, "\r"), "\t")
		id := strings.TrimSpace(fields[0])
		if id == "" || id == "NA" {
			continue
		}
		r := SearchResult{ID: id}
		if len(fields) > 1 {
			r.Title = naToEmpty(fields[1])
		}
		if len(fields) > 2 {
			r.Duration = formatSeconds(naToEmpty(fields[2]))
		}
		if len(fields) > 3 {
			r.Channel = naToEmpty(fields[3])
		}
		results = append(results, r)
	}
	return results
}

func naToEmpty(s string) string {
	s = strings.TrimSpace(s)
	if s == "NA" {
		return ""
	}
	return s
}

func formatSeconds(s string) string {
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil || secs <= 0 {
		return ""
	}
	total := int(secs)
	if total >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", total/3600, total%3600/60, total%60)
	}
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
