package services

import (
	"context"
	"fmt"
	"sync"

	"vitrina/internal/errs"
	"vitrina/internal/models"

	"go.uber.org/zap"
)

const (
	publishWorkers = 3
	putAttempts    = 3
)

// PublisherService mirrors a PublishJob into the content host, best effort.
// Each file reaches its own terminal state independently; a partial publish
// is a valid outcome and nothing is ever rolled back.
type PublisherService interface {
	Publish(ctx context.Context, job *models.PublishJob) *models.PublishResult
}

type publisherService struct {
	github GitHubService
	logger *zap.Logger
}

func NewPublisherService(github GitHubService, logger *zap.Logger) PublisherService {
	return &publisherService{github: github, logger: logger}
}

// publishRun holds per-job state: a sha cache so repeated writes to the same
// path skip the metadata round trip, and a per-path mutex so two writes to
// one path never interleave their get-sha/put pairs.
type publishRun struct {
	mu    sync.Mutex
	shas  map[string]string
	locks map[string]*sync.Mutex
}

func newPublishRun() *publishRun {
	return &publishRun{shas: make(map[string]string), locks: make(map[string]*sync.Mutex)}
}

func (r *publishRun) pathLock(path string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[path]
	if !ok {
		l = &sync.Mutex{}
		r.locks[path] = l
	}
	return l
}

func (r *publishRun) cachedSHA(path string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sha, ok := r.shas[path]
	return sha, ok
}

func (r *publishRun) storeSHA(path, sha string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shas[path] = sha
}

// Publish writes every file in the job with up to three workers. Cancelling
// ctx stops new files from starting; in-flight writes run to completion so a
// file is never left half-written, and files that never started are reported
// as failed.
func (s *publisherService) Publish(ctx context.Context, job *models.PublishJob) *models.PublishResult {
	run := newPublishRun()
	outcomes := make([]models.FileOutcome, len(job.Files))

	var wg sync.WaitGroup
	sem := make(chan struct{}, publishWorkers)
	for i, file := range job.Files {
		if ctx.Err() != nil {
			outcomes[i] = models.FileOutcome{Path: file.Path, Status: "failed", Error: "publish cancelled before write started"}
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, f models.RemoteFile) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[idx] = s.writeFile(run, job, f)
		}(i, file)
	}
	wg.Wait()

	result := &models.PublishResult{Total: len(job.Files), Files: outcomes}
	for _, o := range outcomes {
		if o.Status == "written" {
			result.Written++
		} else {
			result.Failed++
		}
	}

	s.logger.Info("publish finished",
		zap.String("account_key", job.AccountKey),
		zap.String("repo", job.RepoName),
		zap.Int("written", result.Written),
		zap.Int("failed", result.Failed))
	return result
}

func (s *publisherService) writeFile(run *publishRun, job *models.PublishJob, file models.RemoteFile) models.FileOutcome {
	lock := run.pathLock(file.Path)
	lock.Lock()
	defer lock.Unlock()

	// Writes already dispatched always run to completion, so every call below
	// carries its own timeout rather than the job context.
	ctx := context.Background()

	sha, ok := run.cachedSHA(file.Path)
	if !ok {
		sha = s.fetchSHA(ctx, job, file.Path)
	}

	message := fmt.Sprintf("site publish: %s", file.Path)
	var lastErr error
	for attempt := 1; attempt <= putAttempts; attempt++ {
		res, err := s.github.PutContents(ctx, job.RepoName, file.Path, job.Branch, message, file.Content, sha)
		if err == nil {
			run.storeSHA(file.Path, res.SHA)
			return models.FileOutcome{Path: file.Path, Status: "written", URL: res.HTMLURL}
		}
		lastErr = err
		if !errs.IsConflict(err) || attempt == putAttempts {
			break
		}
		// Someone moved the blob under us; refetch the sha and retry.
		s.logger.Warn("stale sha, retrying",
			zap.String("repo", job.RepoName),
			zap.String("path", file.Path),
			zap.Int("attempt", attempt))
		sha = s.fetchSHA(ctx, job, file.Path)
	}

	s.logger.Error("file publish failed",
		zap.String("repo", job.RepoName),
		zap.String("path", file.Path),
		zap.Error(lastErr))
	return models.FileOutcome{Path: file.Path, Status: "failed", Error: lastErr.Error()}
}

// fetchSHA resolves the current blob sha for path. A missing path means
// create, so it maps to the empty sha. A transient metadata failure also
// degrades to a preconditionless write: with a single active publisher per
// repo that risks nothing worse than a conflict on the PUT itself.
func (s *publisherService) fetchSHA(ctx context.Context, job *models.PublishJob, path string) string {
	info, err := s.github.GetContents(ctx, job.RepoName, path, job.Branch)
	switch {
	case err == nil:
		return info.SHA
	case errs.IsNotFound(err):
		return ""
	default:
		s.logger.Warn("sha lookup failed, writing without precondition",
			zap.String("repo", job.RepoName),
			zap.String("path", path),
			zap.Error(err))
		return ""
	}
}
