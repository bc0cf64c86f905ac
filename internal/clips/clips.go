// Package clips turns a time range of an episode into a shareable clip.
package clips

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"podscribe/internal/config"
	"podscribe/internal/db"
	"podscribe/internal/models"
	"podscribe/internal/storage"
)

var execCommand = exec.CommandContext

var (
	ErrInvalidRange        = errors.New("start_time must be >= 0 and less than end_time")
	ErrMissingTranscript   = errors.New("transcript_text is required")
	ErrMissingEpisode      = errors.New("episode_id is required")
	ErrUnsupportedStrategy = errors.New("unsupported clip strategy")
)

// Request describes the clip to create.
type Request struct {
	EpisodeID      string  `json:"episode_id"`
	StartTime      float64 `json:"start_time"`
	EndTime        float64 `json:"end_time"`
	TranscriptText string  `json:"transcript_text"`
	SearchQuery    *string `json:"search_query,omitempty"`
}

// Validate checks the request without touching storage.
func (r Request) Validate() error {
	if r.EpisodeID == "" {
		return ErrMissingEpisode
	}
	if r.StartTime < 0 || r.StartTime >= r.EndTime {
		return ErrInvalidRange
	}
	if strings.TrimSpace(r.TranscriptText) == "" {
		return ErrMissingTranscript
	}
	return nil
}

// Store is the persistence the builder needs.
type Store interface {
	GetEpisode(ctx context.Context, id string) (models.Episode, error)
	CreateClip(ctx context.Context, in db.ClipInput) (models.Clip, error)
}

// Builder creates clips using either a playback fragment or a trimmed file.
type Builder struct {
	store      Store
	objects    storage.ObjectStore
	strategy   string
	ffmpegPath string
	tmpDir     string
}

// NewBuilder creates a Builder. strategy is config.ClipStrategyFragment or config.ClipStrategyTrim.
func NewBuilder(store Store, objects storage.ObjectStore, strategy, ffmpegPath string) *Builder {
	return &Builder{
		store:      store,
		objects:    objects,
		strategy:   strategy,
		ffmpegPath: ffmpegPath,
		tmpDir:     os.TempDir(),
	}
}

// Create validates req, resolves the clip URL for the configured strategy and persists the clip.
func (b *Builder) Create(ctx context.Context, req Request) (models.Clip, error) {
	if err := req.Validate(); err != nil {
		return models.Clip{}, err
	}

	episode, err := b.store.GetEpisode(ctx, req.EpisodeID)
	if err != nil {
		return models.Clip{}, err
	}

	var clipURL string
	switch b.strategy {
	case config.ClipStrategyFragment, "":
		clipURL = FragmentURL(episode.AudioURL, req.StartTime, req.EndTime)
	case config.ClipStrategyTrim:
		clipURL, err = b.trim(ctx, episode.AudioURL, req.StartTime, req.EndTime)
		if err != nil {
			return models.Clip{}, err
		}
	default:
		return models.Clip{}, fmt.Errorf("%w: %q", ErrUnsupportedStrategy, b.strategy)
	}

	return b.store.CreateClip(ctx, db.ClipInput{
		EpisodeID:      episode.ID,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		TranscriptText: req.TranscriptText,
		SearchQuery:    req.SearchQuery,
		AudioClipURL:   clipURL,
	})
}

// FragmentURL appends a media fragment selecting [start, end] seconds to audioURL.
func FragmentURL(audioURL string, start, end float64) string {
	base, _, _ := strings.Cut(audioURL, "#")
	return fmt.Sprintf("%s#t=%s,%s", base, formatSeconds(start), formatSeconds(end))
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}

// trim cuts the range out of the source with ffmpeg and uploads the result.
func (b *Builder) trim(ctx context.Context, audioURL string, start, end float64) (string, error) {
	out := filepath.Join(b.tmpDir, "clip-"+uuid.NewString()+".mp3")
	defer os.Remove(out)

	cmd := execCommand(ctx, b.ffmpegPath,
		"-y",
		"-ss", formatSeconds(start),
		"-to", formatSeconds(end),
		"-i", audioURL,
		"-vn",
		"-acodec", "libmp3lame",
		out,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		slog.Error("ffmpeg trim failed", "error", err, "output", string(output))
		return "", fmt.Errorf("ffmpeg: %w", err)
	}

	f, err := os.Open(out)
	if err != nil {
		return "", fmt.Errorf("open trimmed clip: %w", err)
	}
	defer f.Close()

	url, err := b.objects.Upload(ctx, storage.ObjectPath("clips", out), f, "audio/mpeg")
	if err != nil {
		return "", err
	}
	return url, nil
}

// IsNotFound reports whether err means the referenced episode does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
