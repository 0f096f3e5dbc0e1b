package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"vitrina/internal/errs"
	"vitrina/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

func TestParsePrice(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"plain digits", "1500", 1500, false},
		{"dollar and dot separator", "$1.234", 1234, false},
		{"comma separator", "1,234", 1234, false},
		{"mixed separators", "$ 1.234,56", 123456, false},
		{"surrounding spaces", " 99 ", 99, false},
		{"zero", "0", 0, false},
		{"letters rejected", "abc", 0, true},
		{"trailing letter rejected", "12a", 0, true},
		{"empty rejected", "", 0, true},
		{"only separators rejected", "$.,", 0, true},
		{"negative sign rejected", "-15", 0, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParsePrice(tc.input)
			if tc.wantErr {
				assert.True(t, errs.IsValidation(err), "expected validation error for %q", tc.input)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParsePrice_SeparatorStylesAgree(t *testing.T) {
	a, err := ParsePrice("$1.234,00")
	require.NoError(t, err)
	b, err := ParsePrice("$1,234.00")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNormalizeSizes(t *testing.T) {
	assert.Equal(t, []string{"S", "M", "L"}, NormalizeSizes([]string{" S", "M ", "", "L"}, ""))
	assert.Equal(t, []string{"S", "M", "L"}, NormalizeSizes(nil, " S , M ,,L "))
	// the already-split list wins over the text form
	assert.Equal(t, []string{"XL"}, NormalizeSizes([]string{"XL"}, "S,M"))
	assert.NotNil(t, NormalizeSizes(nil, ""))
	assert.Empty(t, NormalizeSizes(nil, ""))
}

func TestNewIDBase_Shape(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	id, err := NewIDBase("Remera Basica", "Indumentaria Urbana", now)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "remera_basica20260829indumentaria_urbana"))
	assert.Len(t, id, len("remera_basica20260829indumentaria_urbana")+8)
}

func TestNewIDBase_Uniqueness(t *testing.T) {
	now := time.Now().UTC()
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		id, err := NewIDBase("Same Name", "Same Group", now)
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id after %d draws: %s", i, id)
		seen[id] = struct{}{}
	}
}

type CatalogServiceTestSuite struct {
	suite.Suite
	repo    *fakeProductRepo
	cache   *fakeCache
	service CatalogService
	context context.Context
}

func (suite *CatalogServiceTestSuite) SetupTest() {
	suite.repo = newFakeProductRepo()
	suite.cache = newFakeCache()
	suite.service = NewCatalogService(suite.repo, suite.cache, zap.NewNop())
	suite.context = context.Background()
}

func TestCatalogServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CatalogServiceTestSuite))
}

func validRow(name string) models.DraftRow {
	return models.DraftRow{
		Name:      name,
		PriceText: "$1.500",
		Group:     "Indumentaria",
		Subgroup:  "Remeras",
		SizesText: "S,M,L",
	}
}

func (suite *CatalogServiceTestSuite) TestSync_PartialResult() {
	rows := []models.DraftRow{
		validRow("Remera"),
		{Name: "Pantalon", PriceText: "abc", Group: "Indumentaria", Subgroup: "Pantalones"},
		validRow("Campera"),
	}

	result := suite.service.Sync(suite.context, "owner@example.com", rows)

	assert.Equal(suite.T(), 3, result.Total)
	assert.Equal(suite.T(), 2, result.Persisted)
	assert.Equal(suite.T(), 1, result.Skipped)
	assert.Equal(suite.T(), "partial", result.Status())

	assert.Equal(suite.T(), "persisted", result.Rows[0].Status)
	assert.NotEmpty(suite.T(), result.Rows[0].IDBase)
	assert.Equal(suite.T(), "skipped", result.Rows[1].Status)
	assert.Contains(suite.T(), result.Rows[1].Error, "price")
	assert.Equal(suite.T(), "persisted", result.Rows[2].Status)

	stored, err := suite.repo.ListByTenant(suite.context, "owner@example.com")
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), stored, 2)
}

func (suite *CatalogServiceTestSuite) TestSync_MissingRequiredField() {
	rows := []models.DraftRow{{Name: "Solo nombre", PriceText: "100"}}

	result := suite.service.Sync(suite.context, "owner@example.com", rows)

	assert.Equal(suite.T(), 0, result.Persisted)
	assert.Equal(suite.T(), 1, result.Skipped)
	assert.Equal(suite.T(), "error", result.Status())
}

func (suite *CatalogServiceTestSuite) TestSync_StoreFailureIsolatedPerRow() {
	suite.repo.failName = "Rota"
	rows := []models.DraftRow{validRow("Buena"), validRow("Rota")}

	result := suite.service.Sync(suite.context, "owner@example.com", rows)

	assert.Equal(suite.T(), 1, result.Persisted)
	assert.Equal(suite.T(), 1, result.Skipped)
	assert.Contains(suite.T(), result.Rows[1].Error, "simulated")
}

func (suite *CatalogServiceTestSuite) TestSync_NormalizesFields() {
	result := suite.service.Sync(suite.context, "owner@example.com", []models.DraftRow{validRow("Remera")})
	assert.Equal(suite.T(), 1, result.Persisted)

	product, err := suite.repo.GetByIDBase(suite.context, "owner@example.com", result.Rows[0].IDBase)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1500), product.Price)
	assert.Equal(suite.T(), []string{"S", "M", "L"}, product.Sizes)
	assert.Equal(suite.T(), 999, product.DisplayOrder) // unset order sinks to the end
}

func (suite *CatalogServiceTestSuite) TestSync_LargeBatchAllPersisted() {
	rows := make([]models.DraftRow, 25)
	for i := range rows {
		rows[i] = validRow("Producto")
	}

	result := suite.service.Sync(suite.context, "owner@example.com", rows)

	assert.Equal(suite.T(), 25, result.Persisted)
	assert.Equal(suite.T(), "ok", result.Status())
	count, _ := suite.repo.CountByTenant(suite.context, "owner@example.com")
	assert.Equal(suite.T(), 25, count)
}

func (suite *CatalogServiceTestSuite) TestSnapshot_PopulatesCache() {
	suite.service.Sync(suite.context, "owner@example.com", []models.DraftRow{validRow("Remera")})

	products, err := suite.service.Snapshot(suite.context, "owner@example.com")
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), products, 1)

	cached, _ := suite.cache.GetCatalog(suite.context, "owner@example.com")
	assert.Len(suite.T(), cached, 1)
}

func (suite *CatalogServiceTestSuite) TestUpdatePrice_ReparsesText() {
	result := suite.service.Sync(suite.context, "owner@example.com", []models.DraftRow{validRow("Remera")})
	idBase := result.Rows[0].IDBase

	err := suite.service.UpdatePrice(suite.context, "owner@example.com", idBase, "$2.000")
	assert.NoError(suite.T(), err)

	product, _ := suite.repo.GetByIDBase(suite.context, "owner@example.com", idBase)
	assert.Equal(suite.T(), int64(2000), product.Price)
}

func (suite *CatalogServiceTestSuite) TestUpdatePrice_RejectsBadText() {
	err := suite.service.UpdatePrice(suite.context, "owner@example.com", "whatever", "abc")
	assert.True(suite.T(), errs.IsValidation(err))
}

func (suite *CatalogServiceTestSuite) TestUpdatePrice_MissingProduct() {
	err := suite.service.UpdatePrice(suite.context, "owner@example.com", "missing", "100")
	assert.True(suite.T(), errs.IsNotFound(err))
}

func (suite *CatalogServiceTestSuite) TestUpdateSizes_Normalizes() {
	result := suite.service.Sync(suite.context, "owner@example.com", []models.DraftRow{validRow("Remera")})
	idBase := result.Rows[0].IDBase

	err := suite.service.UpdateSizes(suite.context, "owner@example.com", idBase, nil, " 38 , 40 ,,42 ")
	assert.NoError(suite.T(), err)

	product, _ := suite.repo.GetByIDBase(suite.context, "owner@example.com", idBase)
	assert.Equal(suite.T(), []string{"38", "40", "42"}, product.Sizes)
}

func (suite *CatalogServiceTestSuite) TestPatchProduct_EmptyRejected() {
	err := suite.service.PatchProduct(suite.context, "owner@example.com", "any", &models.ProductPatch{})
	assert.True(suite.T(), errs.IsValidation(err))
}

func (suite *CatalogServiceTestSuite) TestPatchProduct_EditInvalidatesCache() {
	result := suite.service.Sync(suite.context, "owner@example.com", []models.DraftRow{validRow("Remera")})
	idBase := result.Rows[0].IDBase
	suite.service.Snapshot(suite.context, "owner@example.com") // warm the cache

	name := "Remera nueva"
	err := suite.service.PatchProduct(suite.context, "owner@example.com", idBase, &models.ProductPatch{Name: &name})
	assert.NoError(suite.T(), err)

	cached, _ := suite.cache.GetCatalog(suite.context, "owner@example.com")
	assert.Nil(suite.T(), cached)
}
