// Package storage uploads audio files to object storage and resolves their public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	storage_go "github.com/supabase-community/storage-go"
	supabase "github.com/supabase-community/supabase-go"
)

var ErrNotConfigured = errors.New("object storage is not configured")

// ObjectStore stores files and returns a URL they can be fetched from.
type ObjectStore interface {
	Upload(ctx context.Context, objectPath string, data io.Reader, contentType string) (string, error)
}

// bucketClient is the part of the storage-go client used here.
type bucketClient interface {
	UploadFile(bucketId string, relativePath string, data io.Reader, fileOptions ...storage_go.FileOptions) (storage_go.FileUploadResponse, error)
	GetPublicUrl(bucketId string, filePath string, urlOptions ...storage_go.UrlOptions) storage_go.SignedUrlResponse
}

// SupabaseStore keeps objects in one Supabase Storage bucket.
type SupabaseStore struct {
	client bucketClient
	bucket string
}

// NewSupabaseStore creates a store for bucket using the project URL and service key.
func NewSupabaseStore(projectURL, key, bucket string) (*SupabaseStore, error) {
	if projectURL == "" || key == "" {
		return nil, ErrNotConfigured
	}
	client, err := supabase.NewClient(projectURL, key, nil)
	if err != nil {
		return nil, fmt.Errorf("initialize supabase SDK: %w", err)
	}
	return &SupabaseStore{client: client.Storage, bucket: bucket}, nil
}

func (s *SupabaseStore) Upload(ctx context.Context, objectPath string, data io.Reader, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	upsert := false
	opts := storage_go.FileOptions{Upsert: &upsert}
	if contentType != "" {
		opts.ContentType = &contentType
	}
	if _, err := s.client.UploadFile(s.bucket, objectPath, data, opts); err != nil {
		return "", fmt.Errorf("upload %s: %w", objectPath, err)
	}
	return s.client.GetPublicUrl(s.bucket, objectPath).SignedURL, nil
}

// Unconfigured is an ObjectStore that rejects every upload.
type Unconfigured struct{}

func (Unconfigured) Upload(context.Context, string, io.Reader, string) (string, error) {
	return "", ErrNotConfigured
}

// ObjectPath builds a collision-free key under prefix, keeping the file extension.
func ObjectPath(prefix, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return path.Join(prefix, uuid.NewString()+ext)
}
