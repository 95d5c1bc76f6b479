package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nijaru/yt-blog/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	status  int
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.objects[r.URL.Path] = body
	f.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func newTestArchive(t *testing.T, fake *fakeS3) *Archive {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	archive, err := NewArchive(context.Background(), ArchiveConfig{
		AccessKey: "key",
		SecretKey: "secret",
		Region:    "us-east-1",
		Endpoint:  server.URL,
		Bucket:    "blogs",
	})
	require.NoError(t, err)
	return archive
}

func TestArchive(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	archive := newTestArchive(t, fake)

	article := &models.Article{
		ID: 5, OwnerID: 2, SourceTitle: "Demo Video",
		SourceLink: "https://example.com/video", Content: "Article about hello world.",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, archive.Archive(context.Background(), article, "hello world"))

	data, ok := fake.objects["/blogs/articles/2/5.json"]
	require.True(t, ok, "object stored under path-style key, got %v", fake.objects)

	var stored archivedArticle
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, "hello world", stored.Transcript)
	assert.Equal(t, "Article about hello world.", stored.Content)
	assert.Equal(t, int64(2), stored.OwnerID)
}

func TestArchiveFailure(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}, status: http.StatusForbidden}
	archive := newTestArchive(t, fake)

	err := archive.Archive(context.Background(), &models.Article{ID: 1, OwnerID: 1}, "t")
	assert.Error(t, err)
}

func TestNewArchiveRequiresBucket(t *testing.T) {
	_, err := NewArchive(context.Background(), ArchiveConfig{})
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "articles/3/9.json", Key(&models.Article{ID: 9, OwnerID: 3}))
}
