// Package transcription talks to an AssemblyAI-compatible speech-to-text API.
package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"podscribe/internal/segmenter"
)

// JobStatus is the provider-side state of a transcription job.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobError      JobStatus = "error"
)

var ErrMissingAPIKey = errors.New("transcription API key is not configured")

// Word is a single recognised word. Start and End are in milliseconds.
type Word struct {
	Text       string  `json:"text"`
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Job is a transcription job as reported by the provider.
type Job struct {
	ID            string    `json:"id"`
	Status        JobStatus `json:"status"`
	Error         string    `json:"error,omitempty"`
	Words         []Word    `json:"words,omitempty"`
	AudioDuration float64   `json:"audio_duration,omitempty"` // milliseconds

	// Raw is the response body exactly as received.
	Raw json.RawMessage `json:"-"`
}

// DurationSeconds converts the reported audio length to whole seconds, rounding up.
func (j *Job) DurationSeconds() int {
	return int(math.Ceil(j.AudioDuration / 1000))
}

// SegmenterWords converts the job's words for the segmenter.
func (j *Job) SegmenterWords() []segmenter.Word {
	words := make([]segmenter.Word, len(j.Words))
	for i, w := range j.Words {
		words[i] = segmenter.Word{Text: w.Text, Start: w.Start, End: w.End}
	}
	return words
}

// Client submits audio and fetches transcription results.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a transcription client for baseURL authenticated with apiKey.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Submit queues audioURL for transcription and returns the provider job id.
func (c *Client) Submit(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(map[string]string{"audio_url": audioURL})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var job Job
	if err := c.do(ctx, http.MethodPost, "/v2/transcript", body, &job); err != nil {
		return "", err
	}
	if job.ID == "" {
		return "", fmt.Errorf("transcription API returned no job id")
	}
	return job.ID, nil
}

// Get fetches the current state of a job.
func (c *Client) Get(ctx context.Context, jobID string) (*Job, error) {
	var job Job
	if err := c.do(ctx, http.MethodGet, "/v2/transcript/"+url.PathEscape(jobID), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, job *Job) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("authorization", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("transcription API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err := json.Unmarshal(raw, job); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	job.Raw = raw
	return nil
}
