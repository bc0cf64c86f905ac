package models

import "time"

// Podcast is a show that owns episodes.
type Podcast struct {
	ID            string    `db:"id" json:"id"`
	Title         string    `db:"title" json:"title"`
	Description   *string   `db:"description" json:"description,omitempty"`
	Author        *string   `db:"author" json:"author,omitempty"`
	CoverImageURL *string   `db:"cover_image_url" json:"cover_image_url,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
