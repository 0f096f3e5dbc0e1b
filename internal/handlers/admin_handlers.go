package handlers

import (
	"net/http"

	"vitrina/internal/common"
	"vitrina/internal/errs"
	"vitrina/internal/middleware"
	"vitrina/internal/models"
	"vitrina/internal/services"

	"github.com/labstack/echo/v4"
)

// AdminHandlers exposes the storefront owner's edit surface: credentials,
// catalog listing, and field-level product updates by id_base.
type AdminHandlers struct {
	tenantService  services.TenantService
	catalogService services.CatalogService
}

func NewAdminHandlers(tenantService services.TenantService, catalogService services.CatalogService) *AdminHandlers {
	return &AdminHandlers{tenantService: tenantService, catalogService: catalogService}
}

// Signup handles POST /admin/signup
func (h *AdminHandlers) Signup(c echo.Context) error {
	var req struct {
		AccountKey string `json:"account_key"`
		AdminKey   string `json:"admin_key"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request body")
	}

	if err := h.tenantService.CreateAdmin(c.Request().Context(), req.AccountKey, req.AdminKey); err != nil {
		return sendServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"status": "ok"})
}

// Login handles POST /admin/login
func (h *AdminHandlers) Login(c echo.Context) error {
	var req struct {
		AccountKey string `json:"account_key"`
		AdminKey   string `json:"admin_key"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request body")
	}

	token, err := h.tenantService.Login(c.Request().Context(), req.AccountKey, req.AdminKey)
	if err != nil {
		if errs.IsValidation(err) || errs.IsNotFound(err) {
			return common.SendUnauthorizedError(c)
		}
		return sendServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"token": token})
}

// ListProducts handles GET /admin/products
func (h *AdminHandlers) ListProducts(c echo.Context) error {
	accountKey, err := middleware.AccountKeyFromRequest(c)
	if err != nil {
		return err
	}

	products, err := h.catalogService.Snapshot(c.Request().Context(), accountKey)
	if err != nil {
		return sendServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"total": len(products), "products": products})
}

// UpdatePrice handles PUT /admin/products/:id_base/price
func (h *AdminHandlers) UpdatePrice(c echo.Context) error {
	accountKey, err := middleware.AccountKeyFromRequest(c)
	if err != nil {
		return err
	}
	idBase := c.Param("id_base")
	if idBase == "" {
		return common.SendValidationError(c, "id_base", "product id is required")
	}

	var req struct {
		Price string `json:"price"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request body")
	}

	if err := h.catalogService.UpdatePrice(c.Request().Context(), accountKey, idBase, req.Price); err != nil {
		return sendServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "id_base": idBase})
}

// UpdateSizes handles PUT /admin/products/:id_base/sizes
func (h *AdminHandlers) UpdateSizes(c echo.Context) error {
	accountKey, err := middleware.AccountKeyFromRequest(c)
	if err != nil {
		return err
	}
	idBase := c.Param("id_base")
	if idBase == "" {
		return common.SendValidationError(c, "id_base", "product id is required")
	}

	var req struct {
		Sizes     []string `json:"sizes"`
		SizesText string   `json:"sizes_text"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request body")
	}

	if err := h.catalogService.UpdateSizes(c.Request().Context(), accountKey, idBase, req.Sizes, req.SizesText); err != nil {
		return sendServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "id_base": idBase})
}

// PatchProduct handles PATCH /admin/products/:id_base
func (h *AdminHandlers) PatchProduct(c echo.Context) error {
	accountKey, err := middleware.AccountKeyFromRequest(c)
	if err != nil {
		return err
	}
	idBase := c.Param("id_base")
	if idBase == "" {
		return common.SendValidationError(c, "id_base", "product id is required")
	}

	patch := &models.ProductPatch{}
	if err := c.Bind(patch); err != nil {
		return common.SendClientError(c, "Invalid request body")
	}

	if err := h.catalogService.PatchProduct(c.Request().Context(), accountKey, idBase, patch); err != nil {
		return sendServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "id_base": idBase})
}
