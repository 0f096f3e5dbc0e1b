package repositories

import (
	"context"
	"encoding/json"
	"errors"

	"vitrina/internal/errs"
	"vitrina/internal/models"

	"github.com/jackc/pgx/v5"
)

type TenantRepository interface {
	Upsert(ctx context.Context, tenant *models.Tenant) error
	GetByAccountKey(ctx context.Context, accountKey string) (*models.Tenant, error)
	List(ctx context.Context, limit, offset int) ([]*models.Tenant, error)
	SetRepoName(ctx context.Context, accountKey, repoName string) error
	GetStyle(ctx context.Context, accountKey string) (*models.StyleConfig, error)
	SetStyle(ctx context.Context, accountKey string, style *models.StyleConfig) error
}

type tenantRepo struct {
	db DB
}

func NewTenantRepo(db DB) TenantRepository {
	return &tenantRepo{db: db}
}

func (r *tenantRepo) Upsert(ctx context.Context, tenant *models.Tenant) error {
	query := `
		INSERT INTO tenants (account_key, admin_key_hash, repo_name, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (account_key) DO UPDATE SET admin_key_hash = EXCLUDED.admin_key_hash
	`
	_, err := r.db.Exec(ctx, query, tenant.AccountKey, tenant.AdminKeyHash, tenant.RepoName)
	return err
}

func (r *tenantRepo) GetByAccountKey(ctx context.Context, accountKey string) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	query := `
		SELECT account_key, admin_key_hash, repo_name, created_at
		FROM tenants
		WHERE account_key = $1
	`
	err := r.db.QueryRow(ctx, query, accountKey).Scan(&tenant.AccountKey, &tenant.AdminKeyHash, &tenant.RepoName, &tenant.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFound("tenant %s", accountKey)
		}
		return nil, err
	}
	return tenant, nil
}

func (r *tenantRepo) List(ctx context.Context, limit, offset int) ([]*models.Tenant, error) {
	query := `
		SELECT account_key, admin_key_hash, repo_name, created_at
		FROM tenants
		ORDER BY created_at
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		tenant := &models.Tenant{}
		if err := rows.Scan(&tenant.AccountKey, &tenant.AdminKeyHash, &tenant.RepoName, &tenant.CreatedAt); err != nil {
			return nil, err
		}
		tenants = append(tenants, tenant)
	}
	return tenants, rows.Err()
}

func (r *tenantRepo) SetRepoName(ctx context.Context, accountKey, repoName string) error {
	tag, err := r.db.Exec(ctx, `UPDATE tenants SET repo_name = $2 WHERE account_key = $1`, accountKey, repoName)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("tenant %s", accountKey)
	}
	return nil
}

func (r *tenantRepo) GetStyle(ctx context.Context, accountKey string) (*models.StyleConfig, error) {
	var raw []byte
	err := r.db.QueryRow(ctx, `SELECT style FROM tenants WHERE account_key = $1`, accountKey).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFound("tenant %s", accountKey)
		}
		return nil, err
	}

	style := &models.StyleConfig{}
	if err := json.Unmarshal(raw, style); err != nil {
		return nil, err
	}
	return style, nil
}

func (r *tenantRepo) SetStyle(ctx context.Context, accountKey string, style *models.StyleConfig) error {
	raw, err := json.Marshal(style)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `UPDATE tenants SET style = $2 WHERE account_key = $1`, accountKey, raw)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("tenant %s", accountKey)
	}
	return nil
}
