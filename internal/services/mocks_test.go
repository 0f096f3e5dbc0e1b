package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"vitrina/internal/errs"
	"vitrina/internal/models"
)

// In-memory doubles for the layers underneath the services. They hold state
// under a mutex because the batch operations hit them from several workers.

type fakeProductRepo struct {
	mu       sync.Mutex
	products map[string]*models.Product
	failName string // Create fails for products with this name
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: make(map[string]*models.Product)}
}

func (f *fakeProductRepo) key(tenantID, idBase string) string { return tenantID + "/" + idBase }

func (f *fakeProductRepo) Create(_ context.Context, product *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failName != "" && product.Name == f.failName {
		return errors.New("simulated store failure")
	}
	clone := *product
	f.products[f.key(product.TenantID, product.IDBase)] = &clone
	return nil
}

func (f *fakeProductRepo) GetByIDBase(_ context.Context, tenantID, idBase string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[f.key(tenantID, idBase)]
	if !ok {
		return nil, errs.NotFound("product %s", idBase)
	}
	clone := *p
	return &clone, nil
}

func (f *fakeProductRepo) Patch(_ context.Context, tenantID, idBase string, patch *models.ProductPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if patch.Empty() {
		return errs.Validation("patch names no fields")
	}
	p, ok := f.products[f.key(tenantID, idBase)]
	if !ok {
		return errs.NotFound("product %s", idBase)
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Sizes != nil {
		p.Sizes = *patch.Sizes
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	return nil
}

func (f *fakeProductRepo) ListByTenant(_ context.Context, tenantID string) ([]*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Product
	for _, p := range f.products {
		if p.TenantID == tenantID {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeProductRepo) CountByTenant(_ context.Context, tenantID string) (int, error) {
	list, _ := f.ListByTenant(context.Background(), tenantID)
	return len(list), nil
}

type fakeTenantRepo struct {
	mu      sync.Mutex
	tenants map[string]*models.Tenant
	styles  map[string]*models.StyleConfig
}

func newFakeTenantRepo() *fakeTenantRepo {
	return &fakeTenantRepo{tenants: make(map[string]*models.Tenant), styles: make(map[string]*models.StyleConfig)}
}

func (f *fakeTenantRepo) Upsert(_ context.Context, tenant *models.Tenant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.tenants[tenant.AccountKey]
	if ok {
		existing.AdminKeyHash = tenant.AdminKeyHash
		return nil
	}
	clone := *tenant
	f.tenants[tenant.AccountKey] = &clone
	return nil
}

func (f *fakeTenantRepo) GetByAccountKey(_ context.Context, accountKey string) (*models.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tenants[accountKey]
	if !ok {
		return nil, errs.NotFound("tenant %s", accountKey)
	}
	clone := *t
	return &clone, nil
}

func (f *fakeTenantRepo) List(_ context.Context, limit, offset int) ([]*models.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Tenant
	for _, t := range f.tenants {
		clone := *t
		out = append(out, &clone)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeTenantRepo) SetRepoName(_ context.Context, accountKey, repoName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tenants[accountKey]
	if !ok {
		return errs.NotFound("tenant %s", accountKey)
	}
	t.RepoName = repoName
	return nil
}

func (f *fakeTenantRepo) GetStyle(_ context.Context, accountKey string) (*models.StyleConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tenants[accountKey]; !ok {
		return nil, errs.NotFound("tenant %s", accountKey)
	}
	style, ok := f.styles[accountKey]
	if !ok {
		return &models.StyleConfig{}, nil
	}
	clone := *style
	return &clone, nil
}

func (f *fakeTenantRepo) SetStyle(_ context.Context, accountKey string, style *models.StyleConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tenants[accountKey]; !ok {
		return errs.NotFound("tenant %s", accountKey)
	}
	clone := *style
	f.styles[accountKey] = &clone
	return nil
}

type fakeCache struct {
	mu       sync.Mutex
	catalogs map[string][]*models.Product
	sessions map[string]*models.SessionContext
	strings  map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		catalogs: make(map[string][]*models.Product),
		sessions: make(map[string]*models.SessionContext),
		strings:  make(map[string]string),
	}
}

func (f *fakeCache) GetCatalog(_ context.Context, accountKey string) ([]*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.catalogs[accountKey], nil
}

func (f *fakeCache) SetCatalog(_ context.Context, accountKey string, products []*models.Product, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.catalogs[accountKey] = products
	return nil
}

func (f *fakeCache) DeleteCatalog(_ context.Context, accountKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.catalogs, accountKey)
	return nil
}

func (f *fakeCache) GetSession(_ context.Context, sessionID string) (*models.SessionContext, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[sessionID], nil
}

func (f *fakeCache) SetSession(_ context.Context, sessionID string, session *models.SessionContext, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[sessionID] = session
	return nil
}

func (f *fakeCache) DeleteSession(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, sessionID)
	return nil
}

func (f *fakeCache) SetString(_ context.Context, key, value string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.strings[key] = value
	return nil
}

func (f *fakeCache) GetString(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.strings[key], nil
}

func (f *fakeCache) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.strings, key)
	return nil
}

type fakeObjectStore struct {
	mu               sync.Mutex
	objects          map[string][]byte
	failAll          bool
	base             string
	fetchHadDeadline bool
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte), base: "https://cdn.test/bucket"}
}

func (f *fakeObjectStore) EnsureBucketExists(context.Context) error { return nil }

func (f *fakeObjectStore) Upload(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) (string, error) {
	if f.failAll {
		return "", errors.New("simulated upload failure")
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[objectName] = data
	return f.base + "/" + objectName, nil
}

func (f *fakeObjectStore) Fetch(ctx context.Context, objectName string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, f.fetchHadDeadline = ctx.Deadline()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, ok := f.objects[objectName]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

func (f *fakeObjectStore) Remove(_ context.Context, objectName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, objectName)
	return nil
}

func (f *fakeObjectStore) ObjectNameFromURL(url string) (string, bool) {
	if !strings.HasPrefix(url, f.base+"/") {
		return "", false
	}
	return strings.TrimPrefix(url, f.base+"/"), true
}
