package services

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"vitrina/internal/caching"
	"vitrina/internal/errs"
	"vitrina/internal/models"
	"vitrina/internal/repositories"

	"github.com/go-playground/validator/v10"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

const (
	syncBatchSize = 10
	syncWorkers   = 3
	snapshotTTL   = 15 * time.Minute

	idSuffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	idSuffixLength   = 8
)

// CatalogService validates draft rows, assigns stable ids and persists them
// as per-tenant documents, and serves the catalog snapshot the renderer
// consumes.
type CatalogService interface {
	Sync(ctx context.Context, accountKey string, rows []models.DraftRow) *models.SyncResult
	Snapshot(ctx context.Context, accountKey string) ([]*models.Product, error)
	RefreshSnapshot(ctx context.Context, accountKey string) error
	GetProduct(ctx context.Context, accountKey, idBase string) (*models.Product, error)
	UpdatePrice(ctx context.Context, accountKey, idBase string, priceText string) error
	UpdateSizes(ctx context.Context, accountKey, idBase string, sizes []string, sizesText string) error
	PatchProduct(ctx context.Context, accountKey, idBase string, patch *models.ProductPatch) error
}

type catalogService struct {
	productRepo  repositories.ProductRepository
	cacheService caching.CacheService
	validate     *validator.Validate
	logger       *zap.Logger
}

func NewCatalogService(productRepo repositories.ProductRepository, cacheService caching.CacheService, logger *zap.Logger) CatalogService {
	return &catalogService{
		productRepo:  productRepo,
		cacheService: cacheService,
		validate:     validator.New(),
		logger:       logger,
	}
}

// Sync ingests draft rows in batches of ten with three workers per batch.
// Each row validates, gets an id and persists independently; the result is
// always "N of M persisted" with a per-row reason for every skip.
func (s *catalogService) Sync(ctx context.Context, accountKey string, rows []models.DraftRow) *models.SyncResult {
	outcomes := make([]models.RowOutcome, len(rows))

	for start := 0; start < len(rows); start += syncBatchSize {
		end := start + syncBatchSize
		if end > len(rows) {
			end = len(rows)
		}

		var wg sync.WaitGroup
		sem := make(chan struct{}, syncWorkers)
		for i := start; i < end; i++ {
			wg.Add(1)
			sem <- struct{}{}
			go func(idx int) {
				defer wg.Done()
				defer func() { <-sem }()
				outcomes[idx] = s.syncRow(ctx, accountKey, idx, rows[idx])
			}(i)
		}
		wg.Wait()
	}

	result := &models.SyncResult{Total: len(rows), Rows: outcomes}
	for _, o := range outcomes {
		if o.Status == "persisted" {
			result.Persisted++
		} else {
			result.Skipped++
		}
	}

	if result.Persisted > 0 {
		if err := s.cacheService.DeleteCatalog(ctx, accountKey); err != nil {
			s.logger.Warn("catalog cache invalidation failed", zap.String("account_key", accountKey), zap.Error(err))
		}
	}

	s.logger.Info("catalog sync finished",
		zap.String("account_key", accountKey),
		zap.Int("total", result.Total),
		zap.Int("persisted", result.Persisted),
		zap.Int("skipped", result.Skipped))
	return result
}

func (s *catalogService) syncRow(ctx context.Context, accountKey string, idx int, row models.DraftRow) models.RowOutcome {
	product, err := s.buildProduct(accountKey, row)
	if err != nil {
		s.logger.Warn("draft row skipped",
			zap.String("account_key", accountKey),
			zap.Int("index", idx),
			zap.Error(err))
		return models.RowOutcome{Index: idx, Status: "skipped", Error: err.Error()}
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		s.logger.Warn("draft row persist failed",
			zap.String("account_key", accountKey),
			zap.Int("index", idx),
			zap.String("id_base", product.IDBase),
			zap.Error(err))
		return models.RowOutcome{Index: idx, Status: "skipped", Error: err.Error()}
	}

	return models.RowOutcome{Index: idx, IDBase: product.IDBase, Status: "persisted"}
}

func (s *catalogService) buildProduct(accountKey string, row models.DraftRow) (*models.Product, error) {
	if err := s.validate.Struct(row); err != nil {
		return nil, errs.Validation("missing required fields: %v", err)
	}

	price, err := ParsePrice(row.PriceText)
	if err != nil {
		return nil, err
	}

	idBase, err := NewIDBase(row.Name, row.Group, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	displayOrder := row.DisplayOrder
	if displayOrder == 0 {
		displayOrder = 999
	}

	return &models.Product{
		IDBase:       idBase,
		TenantID:     accountKey,
		Name:         strings.TrimSpace(row.Name),
		Price:        price,
		Group:        strings.TrimSpace(row.Group),
		Subgroup:     strings.TrimSpace(row.Subgroup),
		Description:  strings.TrimSpace(row.Description),
		ImageURL:     strings.TrimSpace(row.ImageURL),
		DisplayOrder: displayOrder,
		Sizes:        NormalizeSizes(row.Sizes, row.SizesText),
	}, nil
}

// Snapshot returns the tenant's full catalog, cache-aside. Cache failures are
// logged and fall through to the repository; the snapshot never fails because
// redis is down.
func (s *catalogService) Snapshot(ctx context.Context, accountKey string) ([]*models.Product, error) {
	cached, err := s.cacheService.GetCatalog(ctx, accountKey)
	if err != nil {
		s.logger.Warn("catalog cache read failed", zap.String("account_key", accountKey), zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	products, err := s.productRepo.ListByTenant(ctx, accountKey)
	if err != nil {
		return nil, err
	}

	if err := s.cacheService.SetCatalog(ctx, accountKey, products, snapshotTTL); err != nil {
		s.logger.Warn("catalog cache write failed", zap.String("account_key", accountKey), zap.Error(err))
	}
	return products, nil
}

// RefreshSnapshot repopulates the cached snapshot from the repository.
func (s *catalogService) RefreshSnapshot(ctx context.Context, accountKey string) error {
	products, err := s.productRepo.ListByTenant(ctx, accountKey)
	if err != nil {
		return err
	}
	return s.cacheService.SetCatalog(ctx, accountKey, products, snapshotTTL)
}

func (s *catalogService) GetProduct(ctx context.Context, accountKey, idBase string) (*models.Product, error) {
	return s.productRepo.GetByIDBase(ctx, accountKey, idBase)
}

// UpdatePrice re-parses the price text with the same rules as ingestion, so
// an edit can never store a value ingestion would have rejected.
func (s *catalogService) UpdatePrice(ctx context.Context, accountKey, idBase string, priceText string) error {
	price, err := ParsePrice(priceText)
	if err != nil {
		return err
	}
	patch := &models.ProductPatch{Price: &price}
	return s.patchAndInvalidate(ctx, accountKey, idBase, patch)
}

func (s *catalogService) UpdateSizes(ctx context.Context, accountKey, idBase string, sizes []string, sizesText string) error {
	normalized := NormalizeSizes(sizes, sizesText)
	patch := &models.ProductPatch{Sizes: &normalized}
	return s.patchAndInvalidate(ctx, accountKey, idBase, patch)
}

func (s *catalogService) PatchProduct(ctx context.Context, accountKey, idBase string, patch *models.ProductPatch) error {
	if patch == nil || patch.Empty() {
		return errs.Validation("patch names no fields")
	}
	if patch.Sizes != nil {
		normalized := NormalizeSizes(*patch.Sizes, "")
		patch.Sizes = &normalized
	}
	return s.patchAndInvalidate(ctx, accountKey, idBase, patch)
}

func (s *catalogService) patchAndInvalidate(ctx context.Context, accountKey, idBase string, patch *models.ProductPatch) error {
	if err := s.productRepo.Patch(ctx, accountKey, idBase, patch); err != nil {
		return err
	}
	if err := s.cacheService.DeleteCatalog(ctx, accountKey); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.String("account_key", accountKey), zap.Error(err))
	}
	return nil
}

// ParsePrice turns user-entered price text into minor currency units. It is
// deterministic and total: currency symbols, thousands separators and spaces
// are stripped, every digit is kept in order, and anything else rejects the
// value. "$1.234" and "1,234" both parse to 1234; "abc" and "" never parse.
func ParsePrice(raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, errs.Validation("price is empty")
	}

	var digits strings.Builder
	for _, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '$' || r == '.' || r == ',' || r == ' ':
			// separators and currency markers carry no value
		default:
			return 0, errs.Validation("price %q contains invalid character %q", raw, string(r))
		}
	}
	if digits.Len() == 0 {
		return 0, errs.Validation("price %q has no digits", raw)
	}

	value, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil {
		return 0, errs.Validation("price %q out of range", raw)
	}
	return value, nil
}

// NormalizeSizes prefers the already-split list and falls back to splitting
// the comma-separated text. Entries are trimmed and empties dropped; the
// result is never nil so the document always stores a list.
func NormalizeSizes(sizes []string, sizesText string) []string {
	source := sizes
	if len(source) == 0 && sizesText != "" {
		source = strings.Split(sizesText, ",")
	}

	normalized := make([]string, 0, len(source))
	for _, s := range source {
		if t := strings.TrimSpace(s); t != "" {
			normalized = append(normalized, t)
		}
	}
	return normalized
}

// NewIDBase builds the stable document id: normalized name, ingestion date,
// normalized group and a random suffix. The id never changes after assignment
// and later edits locate the document by it.
func NewIDBase(name, group string, now time.Time) (string, error) {
	suffix, err := gonanoid.Generate(idSuffixAlphabet, idSuffixLength)
	if err != nil {
		return "", err
	}
	return normalizeIDPart(name) + now.Format("20060102") + normalizeIDPart(group) + suffix, nil
}

func normalizeIDPart(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "_"))
}
