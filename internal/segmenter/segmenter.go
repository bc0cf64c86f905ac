// Package segmenter splits word-timed transcripts into fixed-span text segments.
package segmenter

import "strings"

// MaxSegmentMillis is the span a segment may reach before the next word starts a new one.
const MaxSegmentMillis = 30_000

// Word is a single transcribed word with millisecond timestamps.
type Word struct {
	Text  string
	Start int64
	End   int64
}

// Segment is a run of consecutive words. Times are in seconds.
type Segment struct {
	StartTime float64
	EndTime   float64
	Text      string
}

// Split groups words into segments. A segment is closed when adding the current
// word would stretch it past MaxSegmentMillis, measured from the segment's first
// word start to the current word's end. An empty running segment always accepts
// the word, so a single long word is never split.
func Split(words []Word) []Segment {
	var (
		segments []Segment
		current  []string
		start    int64
		end      int64
	)

	flush := func() {
		segments = append(segments, Segment{
			StartTime: millisToSeconds(start),
			EndTime:   millisToSeconds(end),
			Text:      strings.Join(current, " "),
		})
		current = current[:0]
	}

	for _, w := range words {
		if len(current) > 0 && w.End-start > MaxSegmentMillis {
			flush()
		}
		if len(current) == 0 {
			start = w.Start
		}
		current = append(current, w.Text)
		end = w.End
	}
	if len(current) > 0 {
		flush()
	}

	return segments
}

func millisToSeconds(ms int64) float64 {
	return float64(ms) / 1000
}
