package handlers

import (
	"fmt"
	"io"
	"net/http"

	"vitrina/internal/common"
	"vitrina/internal/errs"
	"vitrina/internal/models"
	"vitrina/internal/services"

	"github.com/labstack/echo/v4"
)

// WizardHandlers drives the publishing wizard: start a session, upload
// images, sync the catalog, publish the site. Every step after start is
// keyed by the session id issued at start.
type WizardHandlers struct {
	tenantService  services.TenantService
	imageService   services.ImageService
	catalogService services.CatalogService
	siteService    services.SiteService
}

func NewWizardHandlers(tenantService services.TenantService, imageService services.ImageService, catalogService services.CatalogService, siteService services.SiteService) *WizardHandlers {
	return &WizardHandlers{
		tenantService:  tenantService,
		imageService:   imageService,
		catalogService: catalogService,
		siteService:    siteService,
	}
}

// StartWizard handles POST /wizard/start
func (h *WizardHandlers) StartWizard(c echo.Context) error {
	var req struct {
		AccountKey string              `json:"account_key"`
		Style      *models.StyleConfig `json:"style"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request body")
	}

	sessionID, session, err := h.tenantService.StartSession(c.Request().Context(), req.AccountKey, req.Style)
	if err != nil {
		return sendServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"session_id":  sessionID,
		"account_key": session.AccountKey,
		"repo_name":   session.RepoName,
	})
}

// UploadImages handles POST /wizard/:session_id/images (multipart form,
// field "images"). Bad images are reported per file, never as a batch error.
func (h *WizardHandlers) UploadImages(c echo.Context) error {
	session, err := h.session(c)
	if err != nil {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return common.SendClientError(c, "Expected multipart form upload")
	}
	fileHeaders := form.File["images"]
	if len(fileHeaders) == 0 {
		return common.SendValidationError(c, "images", "at least one image file is required")
	}

	uploads := make([][]byte, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			return common.SendClientError(c, "Unreadable upload: "+fh.Filename)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return common.SendClientError(c, "Unreadable upload: "+fh.Filename)
		}
		uploads = append(uploads, data)
	}

	result := h.imageService.ProcessBatch(c.Request().Context(), session.AccountKey, uploads)
	return c.JSON(http.StatusOK, result)
}

// SyncCatalog handles POST /wizard/:session_id/catalog
func (h *WizardHandlers) SyncCatalog(c echo.Context) error {
	session, err := h.session(c)
	if err != nil {
		return err
	}

	var req struct {
		Rows []models.DraftRow `json:"rows"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request body")
	}
	if len(req.Rows) == 0 {
		return common.SendValidationError(c, "rows", "at least one catalog row is required")
	}

	result := h.catalogService.Sync(c.Request().Context(), session.AccountKey, req.Rows)
	return c.JSON(http.StatusOK, map[string]any{
		"status":    result.Status(),
		"message":   fmt.Sprintf("%d of %d rows persisted", result.Persisted, result.Total),
		"total":     result.Total,
		"persisted": result.Persisted,
		"skipped":   result.Skipped,
		"rows":      result.Rows,
	})
}

// PublishSite handles POST /wizard/:session_id/publish
func (h *WizardHandlers) PublishSite(c echo.Context) error {
	session, err := h.session(c)
	if err != nil {
		return err
	}

	result, err := h.siteService.PublishSite(c.Request().Context(), session)
	if err != nil {
		return sendServiceError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":  result.Status(),
		"message": fmt.Sprintf("%d of %d files written", result.Written, result.Total),
		"total":   result.Total,
		"written": result.Written,
		"failed":  result.Failed,
		"files":   result.Files,
	})
}

func (h *WizardHandlers) session(c echo.Context) (*models.SessionContext, error) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		return nil, common.SendValidationError(c, "session_id", "session id is required")
	}
	session, err := h.tenantService.GetSession(c.Request().Context(), sessionID)
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, common.SendNotFoundError(c, "Session")
		}
		return nil, common.SendServerError(c, "Session lookup failed")
	}
	return session, nil
}

// sendServiceError maps the service error taxonomy onto HTTP statuses.
func sendServiceError(c echo.Context, err error) error {
	switch {
	case errs.IsValidation(err):
		return common.SendClientError(c, err.Error())
	case errs.IsNotFound(err):
		return common.SendNotFoundError(c, "Resource")
	case errs.IsConfig(err):
		return common.SendServerError(c, err.Error())
	default:
		return common.SendServerError(c, err.Error())
	}
}
