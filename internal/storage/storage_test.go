package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	storage_go "github.com/supabase-community/storage-go"
)

type fakeBucket struct {
	uploads     map[string]string
	contentType string
	err         error
}

func (f *fakeBucket) UploadFile(bucketId string, relativePath string, data io.Reader, fileOptions ...storage_go.FileOptions) (storage_go.FileUploadResponse, error) {
	if f.err != nil {
		return storage_go.FileUploadResponse{}, f.err
	}
	b, _ := io.ReadAll(data)
	f.uploads[bucketId+"/"+relativePath] = string(b)
	if len(fileOptions) > 0 && fileOptions[0].ContentType != nil {
		f.contentType = *fileOptions[0].ContentType
	}
	return storage_go.FileUploadResponse{}, nil
}

func (f *fakeBucket) GetPublicUrl(bucketId string, filePath string, urlOptions ...storage_go.UrlOptions) storage_go.SignedUrlResponse {
	return storage_go.SignedUrlResponse{SignedURL: "https://abc.supabase.co/storage/v1/object/public/" + bucketId + "/" + filePath}
}

func TestSupabaseStoreUpload(t *testing.T) {
	bucket := &fakeBucket{uploads: map[string]string{}}
	store := &SupabaseStore{client: bucket, bucket: "podcasts"}

	url, err := store.Upload(context.Background(), "clips/abc.mp3", strings.NewReader("audio"), "audio/mpeg")

	require.NoError(t, err)
	assert.Equal(t, "https://abc.supabase.co/storage/v1/object/public/podcasts/clips/abc.mp3", url)
	assert.Equal(t, "audio", bucket.uploads["podcasts/clips/abc.mp3"])
	assert.Equal(t, "audio/mpeg", bucket.contentType)
}

func TestSupabaseStoreUploadError(t *testing.T) {
	store := &SupabaseStore{client: &fakeBucket{err: errors.New("bucket not found")}, bucket: "podcasts"}

	_, err := store.Upload(context.Background(), "clips/abc.mp3", strings.NewReader("audio"), "")

	assert.ErrorContains(t, err, "bucket not found")
}

func TestNewSupabaseStoreRequiresCredentials(t *testing.T) {
	_, err := NewSupabaseStore("", "", "podcasts")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = Unconfigured{}.Upload(context.Background(), "x", strings.NewReader(""), "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestObjectPath(t *testing.T) {
	p := ObjectPath("episodes", "My Show.MP3")
	assert.True(t, strings.HasPrefix(p, "episodes/"))
	assert.True(t, strings.HasSuffix(p, ".mp3"))
	assert.NotEqual(t, p, ObjectPath("episodes", "My Show.MP3"))
}
