package services

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"vitrina/internal/models"
	"vitrina/internal/render"

	"go.uber.org/zap"
)

const logoFetchTimeout = 10 * time.Second

// SiteService runs the final wizard stage: read back the persisted catalog,
// render the page, assemble the file set and hand it to the publisher. Each
// stage gates the next; nothing is published from half-built state.
type SiteService interface {
	PublishSite(ctx context.Context, session *models.SessionContext) (*models.PublishResult, error)
}

type siteService struct {
	catalog   CatalogService
	renderer  render.Renderer
	publisher PublisherService
	github    GitHubService
	store     MinioService
	assetsDir string
	logger    *zap.Logger
}

func NewSiteService(catalog CatalogService, renderer render.Renderer, publisher PublisherService, github GitHubService, store MinioService, assetsDir string, logger *zap.Logger) SiteService {
	return &siteService{
		catalog:   catalog,
		renderer:  renderer,
		publisher: publisher,
		github:    github,
		store:     store,
		assetsDir: assetsDir,
		logger:    logger,
	}
}

// PublishSite renders from the persisted snapshot, never from the submitted
// draft: what the tenant sees published is exactly what survived the sync.
func (s *siteService) PublishSite(ctx context.Context, session *models.SessionContext) (*models.PublishResult, error) {
	products, err := s.catalog.Snapshot(ctx, session.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("read catalog snapshot: %w", err)
	}

	html, err := s.renderer.Render(products, &session.Style)
	if err != nil {
		return nil, fmt.Errorf("render site: %w", err)
	}

	files := []models.RemoteFile{{Path: "index.html", Content: html}}
	files = append(files, s.collectAssets(ctx, session)...)

	if err := s.github.CreateRepo(ctx, session.RepoName); err != nil {
		return nil, fmt.Errorf("provision repo %s: %w", session.RepoName, err)
	}

	job := &models.PublishJob{
		AccountKey: session.AccountKey,
		RepoName:   session.RepoName,
		Branch:     session.Branch,
		Files:      files,
	}

	s.logger.Info("publishing site",
		zap.String("account_key", session.AccountKey),
		zap.String("repo", session.RepoName),
		zap.Int("products", len(products)),
		zap.Int("files", len(files)))
	return s.publisher.Publish(ctx, job), nil
}

// collectAssets gathers the static files the page references: the shared
// icons from the assets directory, the visual-style background, and the
// tenant logo pulled back from the object store. A missing asset is logged
// and skipped; assets never block the page itself.
func (s *siteService) collectAssets(ctx context.Context, session *models.SessionContext) []models.RemoteFile {
	var files []models.RemoteFile

	entries, err := os.ReadDir(s.assetsDir)
	if err != nil {
		s.logger.Warn("assets directory unreadable", zap.String("dir", s.assetsDir), zap.Error(err))
		entries = nil
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".png") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.assetsDir, entry.Name()))
		if err != nil {
			s.logger.Warn("asset unreadable", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		files = append(files, models.RemoteFile{Path: "static/img/" + entry.Name(), Content: data})
	}

	if style := session.Style.VisualStyle; style != "" {
		bgPath := filepath.Join(s.assetsDir, style+".jpeg")
		if data, err := os.ReadFile(bgPath); err == nil {
			files = append(files, models.RemoteFile{Path: "static/img/" + style + ".jpeg", Content: data})
		} else {
			s.logger.Warn("background asset missing", zap.String("file", bgPath), zap.Error(err))
		}
	}

	if logo := session.Style.LogoURL; logo != "" {
		if objectName, ok := s.store.ObjectNameFromURL(logo); ok {
			fetchCtx, cancel := context.WithTimeout(ctx, logoFetchTimeout)
			defer cancel()
			if data, err := s.store.Fetch(fetchCtx, objectName); err == nil {
				files = append(files, models.RemoteFile{Path: "static/img/logo" + path.Ext(logo), Content: data})
			} else {
				s.logger.Warn("logo fetch failed", zap.String("object", objectName), zap.Error(err))
			}
		}
	}

	return files
}
