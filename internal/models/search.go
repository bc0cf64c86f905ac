package models

// SearchResult is a matching segment with its episode and podcast metadata.
type SearchResult struct {
	SegmentID    string  `db:"segment_id" json:"segment_id"`
	EpisodeID    string  `db:"episode_id" json:"episode_id"`
	EpisodeTitle string  `db:"episode_title" json:"episode_title"`
	PodcastID    string  `db:"podcast_id" json:"podcast_id"`
	PodcastTitle string  `db:"podcast_title" json:"podcast_title"`
	StartTime    float64 `db:"start_time" json:"start_time"`
	EndTime      float64 `db:"end_time" json:"end_time"`
	Text         string  `db:"text" json:"text"`
	AudioURL     string  `db:"audio_url" json:"audio_url"`
}
