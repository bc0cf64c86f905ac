// Package search runs full-text queries over transcript segments and
// suggests related keywords for a query.
package search

import (
	"context"
	"errors"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"podscribe/internal/db"
	"podscribe/internal/models"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100

	// relatedSampleSize caps how many segments are scanned for keywords.
	relatedSampleSize = 50
	relatedMax        = 10
	minWordLength     = 4
)

var ErrEmptyQuery = errors.New("query is required")

// Store is the persistence the service reads from.
type Store interface {
	SearchSegments(ctx context.Context, p db.SearchParams) ([]models.SearchResult, error)
	SegmentTextsMatchingAny(ctx context.Context, words []string, limit int) ([]string, error)
}

// Query is a search request.
type Query struct {
	Text      string
	PodcastID string
	Limit     int
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Search returns segments matching q.Text, best match first.
func (s *Service) Search(ctx context.Context, q Query) ([]models.SearchResult, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, ErrEmptyQuery
	}
	return s.store.SearchSegments(ctx, db.SearchParams{
		Query:     text,
		PodcastID: q.PodcastID,
		Limit:     clampLimit(q.Limit),
	})
}

// RelatedKeywords returns up to ten words that co-occur with the query's
// significant words, most frequent first.
func (s *Service) RelatedKeywords(ctx context.Context, q string) ([]string, error) {
	words := significantWords(q)
	if len(words) == 0 {
		return []string{}, nil
	}

	texts, err := s.store.SegmentTextsMatchingAny(ctx, words, relatedSampleSize)
	if err != nil {
		return nil, err
	}

	exclude := make(map[string]struct{}, len(words))
	for _, w := range words {
		exclude[w] = struct{}{}
	}

	counts := map[string]int{}
	for _, text := range texts {
		for _, tok := range tokenize(text) {
			if utf8.RuneCountInString(tok) < minWordLength {
				continue
			}
			if _, skip := exclude[tok]; skip {
				continue
			}
			counts[tok]++
		}
	}

	return topKeywords(counts, relatedMax), nil
}

func clampLimit(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

func significantWords(q string) []string {
	var words []string
	seen := map[string]struct{}{}
	for _, tok := range tokenize(q) {
		if utf8.RuneCountInString(tok) < minWordLength {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		words = append(words, tok)
	}
	return words
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func topKeywords(counts map[string]int, n int) []string {
	keywords := make([]string, 0, len(counts))
	for k := range counts {
		keywords = append(keywords, k)
	}
	sort.Slice(keywords, func(i, j int) bool {
		if counts[keywords[i]] != counts[keywords[j]] {
			return counts[keywords[i]] > counts[keywords[j]]
		}
		return keywords[i] < keywords[j]
	})
	if len(keywords) > n {
		keywords = keywords[:n]
	}
	return keywords
}
