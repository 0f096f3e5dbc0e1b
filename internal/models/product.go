package models

import "time"

// Product is one catalog document inside a tenant's collection.
// IDBase is the stable key assigned at ingestion and never changes afterwards.
type Product struct {
	IDBase       string    `json:"id_base" db:"id_base"`
	TenantID     string    `json:"tenant_id" db:"tenant_id"`
	Name         string    `json:"name" db:"name"`
	Price        int64     `json:"price" db:"price"` // minor currency units, never negative
	Group        string    `json:"group" db:"grp"`
	Subgroup     string    `json:"subgroup" db:"subgrp"`
	Description  string    `json:"description" db:"description"`
	ImageURL     string    `json:"image_url" db:"image_url"`
	DisplayOrder int       `json:"display_order" db:"display_order"`
	Sizes        []string  `json:"sizes" db:"sizes"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// ProductPatch is a field-level partial update applied to an existing
// document looked up by id_base. Nil fields are left untouched. This is
// deliberately a different shape from Product: a patch can never overwrite
// fields it does not name.
type ProductPatch struct {
	Name         *string   `json:"name,omitempty"`
	Price        *int64    `json:"price,omitempty"`
	Group        *string   `json:"group,omitempty"`
	Subgroup     *string   `json:"subgroup,omitempty"`
	Description  *string   `json:"description,omitempty"`
	ImageURL     *string   `json:"image_url,omitempty"`
	DisplayOrder *int      `json:"display_order,omitempty"`
	Sizes        *[]string `json:"sizes,omitempty"`
}

// Empty reports whether the patch names no fields at all.
func (p *ProductPatch) Empty() bool {
	return p.Name == nil && p.Price == nil && p.Group == nil && p.Subgroup == nil &&
		p.Description == nil && p.ImageURL == nil && p.DisplayOrder == nil && p.Sizes == nil
}
