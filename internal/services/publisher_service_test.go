package services

import (
	"context"
	"fmt"
	"testing"

	"vitrina/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPublisher(host *fakeContentHost) PublisherService {
	return NewPublisherService(newTestGitHubService(host), zap.NewNop())
}

func testJob(files ...models.RemoteFile) *models.PublishJob {
	return &models.PublishJob{
		AccountKey: "owner@example.com",
		RepoName:   "catalog-owner-abc",
		Branch:     "main",
		Files:      files,
	}
}

func TestPublish_FirstPublishCreatesEverything(t *testing.T) {
	host := newFakeContentHost()
	defer host.Close()
	publisher := newTestPublisher(host)

	job := testJob(
		models.RemoteFile{Path: "index.html", Content: []byte("<html>v1</html>")},
		models.RemoteFile{Path: "static/img/wp.png", Content: []byte{0x89, 0x50}},
		models.RemoteFile{Path: "static/img/fb.png", Content: []byte{0x89, 0x50}},
	)

	result := publisher.Publish(context.Background(), job)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 3, result.Written)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, "ok", result.Status())
	for _, f := range result.Files {
		assert.Equal(t, "written", f.Status)
		assert.NotEmpty(t, f.URL)
	}
	assert.Equal(t, []byte("<html>v1</html>"), host.files["catalog-owner-abc/index.html"].content)
}

func TestPublish_RepublishOverwritesWithFreshSHA(t *testing.T) {
	host := newFakeContentHost()
	defer host.Close()
	publisher := newTestPublisher(host)

	first := publisher.Publish(context.Background(), testJob(models.RemoteFile{Path: "index.html", Content: []byte("v1")}))
	require.Equal(t, 1, first.Written)

	second := publisher.Publish(context.Background(), testJob(models.RemoteFile{Path: "index.html", Content: []byte("v2")}))
	assert.Equal(t, 1, second.Written)
	assert.Equal(t, []byte("v2"), host.files["catalog-owner-abc/index.html"].content)
}

func TestPublish_RecoversFromOneStaleSHA(t *testing.T) {
	host := newFakeContentHost()
	defer host.Close()
	publisher := newTestPublisher(host)

	publisher.Publish(context.Background(), testJob(models.RemoteFile{Path: "index.html", Content: []byte("v1")}))

	// the next write finds the blob moved; one refetch must recover it
	host.mu.Lock()
	host.conflictOnce["catalog-owner-abc/index.html"] = true
	host.mu.Unlock()

	result := publisher.Publish(context.Background(), testJob(models.RemoteFile{Path: "index.html", Content: []byte("v2")}))

	assert.Equal(t, 1, result.Written)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, []byte("v2"), host.files["catalog-owner-abc/index.html"].content)
}

func TestPublish_RepublishIdenticalContentSucceeds(t *testing.T) {
	host := newFakeContentHost()
	defer host.Close()
	publisher := newTestPublisher(host)

	content := []byte("<html>stable</html>")
	first := publisher.Publish(context.Background(), testJob(models.RemoteFile{Path: "index.html", Content: content}))
	require.Equal(t, 1, first.Written)

	second := publisher.Publish(context.Background(), testJob(models.RemoteFile{Path: "index.html", Content: content}))

	assert.Equal(t, 1, second.Written)
	assert.Equal(t, 0, second.Failed)
	assert.Len(t, second.Files, 1)
	host.mu.Lock()
	assert.Len(t, host.files, 1, "republish must not grow a second path")
	assert.Equal(t, content, host.files["catalog-owner-abc/index.html"].content)
	host.mu.Unlock()
}

func TestPublish_ShaLookupFailureDegradesToCreate(t *testing.T) {
	host := newFakeContentHost()
	defer host.Close()
	publisher := newTestPublisher(host)

	// metadata endpoint is down for a brand-new file; the write must land
	// without a precondition instead of failing the file
	host.mu.Lock()
	host.failGetAlways["catalog-owner-abc/index.html"] = true
	host.mu.Unlock()

	result := publisher.Publish(context.Background(), testJob(models.RemoteFile{Path: "index.html", Content: []byte("v1")}))

	assert.Equal(t, 1, result.Written)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, []byte("v1"), host.files["catalog-owner-abc/index.html"].content)
}

func TestPublish_ShaLookupFailureOnExistingFileRecoversViaConflict(t *testing.T) {
	host := newFakeContentHost()
	defer host.Close()
	publisher := newTestPublisher(host)

	publisher.Publish(context.Background(), testJob(models.RemoteFile{Path: "index.html", Content: []byte("v1")}))

	// one failed sha lookup forces a blind write, the host answers with a
	// conflict, and the retry's refetch must recover the real sha
	host.mu.Lock()
	host.failGetOnce["catalog-owner-abc/index.html"] = true
	host.mu.Unlock()

	result := publisher.Publish(context.Background(), testJob(models.RemoteFile{Path: "index.html", Content: []byte("v2")}))

	assert.Equal(t, 1, result.Written)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, []byte("v2"), host.files["catalog-owner-abc/index.html"].content)
}

func TestPublish_ExhaustedRetriesFailOnlyThatFile(t *testing.T) {
	host := newFakeContentHost()
	defer host.Close()
	publisher := newTestPublisher(host)

	host.mu.Lock()
	host.conflictAlways["catalog-owner-abc/index.html"] = true
	host.mu.Unlock()

	job := testJob(
		models.RemoteFile{Path: "index.html", Content: []byte("v1")},
		models.RemoteFile{Path: "static/img/wp.png", Content: []byte{1}},
	)
	result := publisher.Publish(context.Background(), job)

	assert.Equal(t, 1, result.Written)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, "partial", result.Status())

	var failed models.FileOutcome
	for _, f := range result.Files {
		if f.Status == "failed" {
			failed = f
		}
	}
	assert.Equal(t, "index.html", failed.Path)
	assert.Contains(t, failed.Error, "conflict")
}

func TestPublish_DuplicatePathWritesSerialized(t *testing.T) {
	host := newFakeContentHost()
	defer host.Close()
	publisher := newTestPublisher(host)

	job := testJob(
		models.RemoteFile{Path: "index.html", Content: []byte("first")},
		models.RemoteFile{Path: "index.html", Content: []byte("second")},
	)
	result := publisher.Publish(context.Background(), job)

	// both writes land; the per-path lock and sha cache keep them from
	// tripping over each other's preconditions
	assert.Equal(t, 2, result.Written)
	assert.Equal(t, 0, result.Failed)
}

func TestPublish_ManyDistinctFilesConcurrently(t *testing.T) {
	host := newFakeContentHost()
	defer host.Close()
	publisher := newTestPublisher(host)

	files := make([]models.RemoteFile, 20)
	for i := range files {
		files[i] = models.RemoteFile{
			Path:    fmt.Sprintf("static/img/icon-%02d.png", i),
			Content: []byte{byte(i)},
		}
	}
	result := publisher.Publish(context.Background(), testJob(files...))

	assert.Equal(t, 20, result.Written)
	assert.Equal(t, 0, result.Failed)
	host.mu.Lock()
	assert.Len(t, host.files, 20)
	host.mu.Unlock()
}

func TestPublish_CancelledContextSkipsUnstartedFiles(t *testing.T) {
	host := newFakeContentHost()
	defer host.Close()
	publisher := newTestPublisher(host)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := testJob(models.RemoteFile{Path: "index.html", Content: []byte("v1")})
	result := publisher.Publish(ctx, job)

	assert.Equal(t, 0, result.Written)
	assert.Equal(t, 1, result.Failed)
	assert.Contains(t, result.Files[0].Error, "cancelled")
}
