package transcription

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"podscribe/internal/segmenter"
)

func TestSubmit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/transcript", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://cdn.example.com/ep1.mp3", body["audio_url"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"job-123","status":"queued"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", "test-key")
	jobID, err := c.Submit(context.Background(), "https://cdn.example.com/ep1.mp3")

	require.NoError(t, err)
	assert.Equal(t, "job-123", jobID)
}

func TestSubmitErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Authentication error"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "bad-key").Submit(context.Background(), "https://cdn.example.com/ep1.mp3")

	assert.ErrorContains(t, err, "status 401")
	assert.ErrorContains(t, err, "Authentication error")
}

func TestSubmitWithoutAPIKey(t *testing.T) {
	_, err := NewClient("http://unused", "").Submit(context.Background(), "https://cdn.example.com/ep1.mp3")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestGetCompletedJob(t *testing.T) {
	payload := `{"id":"job-123","status":"completed","audio_duration":45200,
		"words":[{"text":"hello","start":0,"end":1000,"confidence":0.98},
		{"text":"world","start":1100,"end":1800,"confidence":0.91}]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v2/transcript/job-123", r.URL.Path)
		w.Write([]byte(payload))
	}))
	defer server.Close()

	job, err := NewClient(server.URL, "test-key").Get(context.Background(), "job-123")

	require.NoError(t, err)
	assert.Equal(t, JobCompleted, job.Status)
	assert.Equal(t, 46, job.DurationSeconds())
	assert.JSONEq(t, payload, string(job.Raw))
	assert.Equal(t, []segmenter.Word{
		{Text: "hello", Start: 0, End: 1000},
		{Text: "world", Start: 1100, End: 1800},
	}, job.SegmenterWords())
}

func TestDurationSecondsRoundsUp(t *testing.T) {
	assert.Equal(t, 0, (&Job{}).DurationSeconds())
	assert.Equal(t, 45, (&Job{AudioDuration: 45000}).DurationSeconds())
	assert.Equal(t, 46, (&Job{AudioDuration: 45001}).DurationSeconds())
}
