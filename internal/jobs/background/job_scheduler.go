package background

import (
	"context"
	"time"

	"vitrina/internal/repositories"
	"vitrina/internal/services"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

const (
	snapshotRefreshInterval = 15 * time.Minute
	refreshPageSize         = 100
	refreshWorkers          = 5
)

// JobScheduler runs the background maintenance jobs: keeping every tenant's
// cached catalog snapshot warm so the publish step rarely pays the full
// repository read.
type JobScheduler struct {
	scheduler  gocron.Scheduler
	catalogSvc services.CatalogService
	tenantRepo repositories.TenantRepository
	logger     *zap.Logger
}

func NewJobScheduler(catalogSvc services.CatalogService, tenantRepo repositories.TenantRepository, logger *zap.Logger) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &JobScheduler{
		scheduler:  scheduler,
		catalogSvc: catalogSvc,
		tenantRepo: tenantRepo,
		logger:     logger,
	}, nil
}

// Start registers and launches all background jobs
func (js *JobScheduler) Start() error {
	_, err := js.scheduler.NewJob(
		gocron.DurationJob(snapshotRefreshInterval),
		gocron.NewTask(js.refreshCatalogSnapshots, context.Background()),
		gocron.WithName("catalog-snapshot-refresh"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	js.scheduler.Start()
	js.logger.Info("background jobs started")
	return nil
}

// Stop shuts down the scheduler
func (js *JobScheduler) Stop() error {
	return js.scheduler.Shutdown()
}

// refreshCatalogSnapshots walks every tenant and repopulates the cached
// catalog snapshot. Per-tenant failures are logged and skipped; one broken
// tenant never stalls the sweep.
func (js *JobScheduler) refreshCatalogSnapshots(ctx context.Context) {
	offset := 0
	refreshed := 0
	for {
		tenants, err := js.tenantRepo.List(ctx, refreshPageSize, offset)
		if err != nil {
			js.logger.Error("tenant page fetch failed", zap.Int("offset", offset), zap.Error(err))
			return
		}
		if len(tenants) == 0 {
			break
		}

		sem := make(chan struct{}, refreshWorkers)
		for _, tenant := range tenants {
			sem <- struct{}{}
			go func(accountKey string) {
				defer func() { <-sem }()
				if err := js.catalogSvc.RefreshSnapshot(ctx, accountKey); err != nil {
					js.logger.Warn("snapshot refresh failed", zap.String("account_key", accountKey), zap.Error(err))
				}
			}(tenant.AccountKey)
		}
		for i := 0; i < refreshWorkers; i++ {
			sem <- struct{}{}
		}

		refreshed += len(tenants)
		offset += refreshPageSize
	}
	js.logger.Info("catalog snapshot sweep finished", zap.Int("tenants", refreshed))
}
