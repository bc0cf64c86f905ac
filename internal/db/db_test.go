package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"podscribe/internal/models"
	"podscribe/internal/segmenter"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	mockDb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { mockDb.Close() })
	return New(sqlx.NewDb(mockDb, "postgres")), mock
}

func TestDeletePodcastRemovesDescendantsFirst(t *testing.T) {
	store, mock := newMockStore(t)

	// Two episodes, each with one transcript, three segments and one clip.
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM segments WHERE episode_id IN \(SELECT id FROM episodes WHERE podcast_id = \$1\)`).
		WithArgs("pod-1").WillReturnResult(sqlmock.NewResult(0, 6))
	mock.ExpectExec(`DELETE FROM transcripts WHERE episode_id IN`).
		WithArgs("pod-1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM clips WHERE episode_id IN`).
		WithArgs("pod-1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM episodes WHERE podcast_id = \$1`).
		WithArgs("pod-1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM podcasts WHERE id = \$1`).
		WithArgs("pod-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	counts, err := store.DeletePodcast(context.Background(), "pod-1")

	require.NoError(t, err)
	assert.Equal(t, DeleteCounts{Segments: 6, Transcripts: 2, Clips: 2, Episodes: 2, Podcasts: 1}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePodcastRollsBackOnFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE episodes`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM segments`).WillReturnResult(sqlmock.NewResult(0, 6))
	mock.ExpectExec(`DELETE FROM transcripts`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := store.DeletePodcast(context.Background(), "pod-1")

	assert.ErrorContains(t, err, "delete transcripts")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePodcastNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE episodes`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM segments`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM transcripts`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM clips`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM episodes`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM podcasts`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := store.DeletePodcast(context.Background(), "missing")

	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveTranscription(t *testing.T) {
	store, mock := newMockStore(t)
	segments := []segmenter.Segment{
		{StartTime: 0, EndTime: 21, Text: "hello podcast"},
		{StartTime: 44, EndTime: 45, Text: "listeners"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE episodes\s+SET transcription_status = \$1, duration = \$2`).
		WithArgs(models.StatusCompleted, 45, "ep-1", models.StatusInProgress, "job-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM segments WHERE episode_id = \$1`).WithArgs("ep-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM transcripts WHERE episode_id = \$1`).WithArgs("ep-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO transcripts`).WithArgs("ep-1", `{"id":"job-1"}`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "episode_id", "raw_payload", "created_at"}).
			AddRow("tr-1", "ep-1", []byte(`{"id":"job-1"}`), time.Now()))
	mock.ExpectExec(`INSERT INTO segments`).WithArgs("tr-1", "ep-1", 0.0, 21.0, "hello podcast").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO segments`).WithArgs("tr-1", "ep-1", 44.0, 45.0, "listeners").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tr, err := store.SaveTranscription(context.Background(), SaveTranscriptionInput{
		EpisodeID:  "ep-1",
		JobID:      "job-1",
		RawPayload: []byte(`{"id":"job-1"}`),
		Segments:   segments,
		Duration:   45,
	})

	require.NoError(t, err)
	assert.Equal(t, "tr-1", tr.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveTranscriptionRollsBackWhenSegmentInsertFails(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE episodes`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM segments`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM transcripts`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO transcripts`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "episode_id", "raw_payload", "created_at"}).
			AddRow("tr-1", "ep-1", []byte(`{}`), time.Now()))
	mock.ExpectExec(`INSERT INTO segments`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := store.SaveTranscription(context.Background(), SaveTranscriptionInput{
		EpisodeID:  "ep-1",
		RawPayload: []byte(`{}`),
		Segments:   []segmenter.Segment{{StartTime: 0, EndTime: 1, Text: "hi"}},
	})

	assert.ErrorContains(t, err, "insert segment")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveTranscriptionForSupersededJob(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE episodes\s+SET transcription_status = \$1, duration = \$2`).
		WithArgs(models.StatusCompleted, 0, "ep-1", models.StatusInProgress, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := store.SaveTranscription(context.Background(), SaveTranscriptionInput{
		EpisodeID:  "ep-1",
		JobID:      "job-1",
		RawPayload: []byte(`{}`),
		Segments:   []segmenter.Segment{{StartTime: 0, EndTime: 1, Text: "hi"}},
	})

	assert.ErrorIs(t, err, ErrSuperseded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkTranscriptionFailedGuardsAttempt(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`WHERE id = \$3 AND transcription_status = \$4 AND COALESCE\(transcription_job_id, ''\) = \$5`).
		WithArgs(models.StatusFailed, "boom", "ep-1", models.StatusInProgress, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`WHERE id = \$3 AND transcription_status = \$4 AND COALESCE\(transcription_job_id, ''\) = \$5`).
		WithArgs(models.StatusFailed, "boom", "ep-1", models.StatusInProgress, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE episodes SET updated_at = NOW\(\)`).
		WithArgs("ep-1", models.StatusInProgress, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	assert.NoError(t, store.MarkTranscriptionFailed(ctx, "ep-1", "job-1", "boom"))
	assert.ErrorIs(t, store.MarkTranscriptionFailed(ctx, "ep-1", "job-1", "boom"), ErrSuperseded)
	assert.ErrorIs(t, store.TouchEpisode(ctx, "ep-1", "job-1"), ErrSuperseded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimEpisodeForTranscription(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE episodes\s+SET transcription_status = \$1`).
		WithArgs(models.StatusInProgress, "ep-1", models.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE episodes\s+SET transcription_status = \$1`).
		WithArgs(models.StatusInProgress, "ep-1", models.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := store.ClaimEpisodeForTranscription(context.Background(), "ep-1")
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = store.ClaimEpisodeForTranscription(context.Background(), "ep-1")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetEpisodeForRetryRefusesInProgress(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`WHERE id = \$2 AND transcription_status <> \$3`).
		WithArgs(models.StatusPending, "ep-1", models.StatusInProgress).
		WillReturnResult(sqlmock.NewResult(0, 0))

	reset, err := store.ResetEpisodeForRetry(context.Background(), "ep-1")
	require.NoError(t, err)
	assert.False(t, reset)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchSegmentsWithPodcastFilter(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"segment_id", "episode_id", "episode_title", "podcast_id", "podcast_title", "start_time", "end_time", "text", "audio_url"}).
		AddRow("seg-1", "ep-1", "Pilot", "pod-1", "Test Show", 0.0, 21.0, "hello podcast", "https://cdn.example.com/ep1.mp3")
	mock.ExpectQuery(`(?s)plainto_tsquery\('english', \$1\)\s+AND p.id = \$2\s+ORDER BY ts_rank.*LIMIT \$3`).
		WithArgs("podcast", "pod-1", 20).WillReturnRows(rows)

	results, err := store.SearchSegments(context.Background(), SearchParams{Query: "podcast", PodcastID: "pod-1", Limit: 20})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Test Show", results[0].PodcastTitle)
	assert.Equal(t, 21.0, results[0].EndTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchSegmentsWithoutFilter(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`(?s)plainto_tsquery\('english', \$1\)\s+ORDER BY ts_rank.*LIMIT \$2`).
		WithArgs("zzyzx", 5).
		WillReturnRows(sqlmock.NewRows([]string{"segment_id"}))

	results, err := store.SearchSegments(context.Background(), SearchParams{Query: "zzyzx", Limit: 5})

	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSegmentTextsMatchingAny(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT text FROM segments WHERE text ILIKE ANY\(\$1\) LIMIT \$2`).
		WithArgs(pq.Array([]string{"%coffee%", "%brewing%"}), 50).
		WillReturnRows(sqlmock.NewRows([]string{"text"}).AddRow("Coffee brewing at home"))

	texts, err := store.SegmentTextsMatchingAny(context.Background(), []string{"coffee", "brewing"}, 50)

	require.NoError(t, err)
	assert.Equal(t, []string{"Coffee brewing at home"}, texts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO users`).WithArgs("admin@example.com", "hash", models.RoleAdmin).
		WillReturnError(&pq.Error{Code: "23505", Detail: "Key (email) already exists."})

	_, err := store.CreateUser(context.Background(), "Admin@Example.com", "hash", models.RoleAdmin)

	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailStaleTranscriptions(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`WHERE transcription_status = \$3 AND updated_at < \$4`).
		WithArgs(models.StatusFailed, sqlmock.AnyArg(), models.StatusInProgress, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.FailStaleTranscriptions(context.Background(), 20*time.Minute)

	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
