package repositories

import (
	"context"
	"errors"
	"fmt"

	"vitrina/internal/errs"
	"vitrina/internal/models"

	"github.com/jackc/pgx/v5"
)

// ProductRepository is the per-tenant document store for catalog products.
//
// Create and Patch are deliberately distinct operations. Create writes the
// full document at its known id_base key and is used only for brand-new rows.
// Patch looks the document up by id_base and updates only the fields the
// patch names. Calling Create for an edit would silently discard every field
// the caller did not resend, so there is no generic "update".
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByIDBase(ctx context.Context, tenantID, idBase string) (*models.Product, error)
	Patch(ctx context.Context, tenantID, idBase string, patch *models.ProductPatch) error
	ListByTenant(ctx context.Context, tenantID string) ([]*models.Product, error)
	CountByTenant(ctx context.Context, tenantID string) (int, error)
}

type productRepo struct {
	db DB
}

func NewProductRepo(db DB) ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) Create(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (tenant_id, id_base, name, price, grp, subgrp, description, image_url, display_order, sizes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
	`
	_, err := r.db.Exec(ctx, query, product.TenantID, product.IDBase, product.Name, product.Price, product.Group, product.Subgroup, product.Description, product.ImageURL, product.DisplayOrder, product.Sizes)
	return err
}

func (r *productRepo) GetByIDBase(ctx context.Context, tenantID, idBase string) (*models.Product, error) {
	product := &models.Product{}
	query := `
		SELECT tenant_id, id_base, name, price, grp, subgrp, description, image_url, display_order, sizes, created_at
		FROM products
		WHERE tenant_id = $1 AND id_base = $2
	`
	err := r.db.QueryRow(ctx, query, tenantID, idBase).Scan(&product.TenantID, &product.IDBase, &product.Name, &product.Price, &product.Group, &product.Subgroup, &product.Description, &product.ImageURL, &product.DisplayOrder, &product.Sizes, &product.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFound("product %s", idBase)
		}
		return nil, err
	}
	return product, nil
}

func (r *productRepo) Patch(ctx context.Context, tenantID, idBase string, patch *models.ProductPatch) error {
	if patch.Empty() {
		return errs.Validation("patch names no fields")
	}

	// Build the SET list dynamically from the fields the patch names.
	setClauses := ""
	args := []any{tenantID, idBase}
	argPos := 2

	add := func(column string, value any) {
		argPos++
		if setClauses != "" {
			setClauses += ", "
		}
		setClauses += fmt.Sprintf("%s = $%d", column, argPos)
		args = append(args, value)
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Price != nil {
		if *patch.Price < 0 {
			return errs.Validation("price cannot be negative")
		}
		add("price", *patch.Price)
	}
	if patch.Group != nil {
		add("grp", *patch.Group)
	}
	if patch.Subgroup != nil {
		add("subgrp", *patch.Subgroup)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.ImageURL != nil {
		add("image_url", *patch.ImageURL)
	}
	if patch.DisplayOrder != nil {
		add("display_order", *patch.DisplayOrder)
	}
	if patch.Sizes != nil {
		add("sizes", *patch.Sizes)
	}

	query := fmt.Sprintf(`UPDATE products SET %s WHERE tenant_id = $1 AND id_base = $2`, setClauses)
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("product %s", idBase)
	}
	return nil
}

func (r *productRepo) ListByTenant(ctx context.Context, tenantID string) ([]*models.Product, error) {
	query := `
		SELECT tenant_id, id_base, name, price, grp, subgrp, description, image_url, display_order, sizes, created_at
		FROM products
		WHERE tenant_id = $1
		ORDER BY display_order, id_base
	`
	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		product := &models.Product{}
		if err := rows.Scan(&product.TenantID, &product.IDBase, &product.Name, &product.Price, &product.Group, &product.Subgroup, &product.Description, &product.ImageURL, &product.DisplayOrder, &product.Sizes, &product.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func (r *productRepo) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE tenant_id = $1`, tenantID).Scan(&count)
	return count, err
}
