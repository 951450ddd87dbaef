package handlers

import (
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-report-service/internal/api/dto"
	"github.com/spec-kit/incident-report-service/internal/auth"
	"github.com/spec-kit/incident-report-service/internal/ingest"
	"github.com/spec-kit/incident-report-service/internal/service"
	apperrors "github.com/spec-kit/incident-report-service/pkg/util"
)

// ReportsHandler manages report generation, listing, and download
// endpoints.
type ReportsHandler struct {
	service        *service.ReportService
	keys           *auth.KeyChecker
	tokens         *auth.DownloadTokenManager
	sampleDataPath string
}

// NewReportsHandler constructs the handler.
func NewReportsHandler(reportService *service.ReportService, keys *auth.KeyChecker, tokens *auth.DownloadTokenManager, sampleDataPath string) *ReportsHandler {
	return &ReportsHandler{
		service:        reportService,
		keys:           keys,
		tokens:         tokens,
		sampleDataPath: sampleDataPath,
	}
}

// Generate POST /reports.
func (h *ReportsHandler) Generate(c *fiber.Ctx) error {
	var req dto.GenerateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Incidents == nil {
		return apperrors.NewValidationError("incidents field required", nil)
	}

	records := make([]ingest.RawRecord, 0, len(req.Incidents))
	for _, raw := range req.Incidents {
		records = append(records, ingest.RawRecord(raw))
	}

	result, err := h.service.Generate(c.UserContext(), service.GenerateInput{
		Records:     records,
		Title:       req.Title,
		Locale:      req.Locale,
		Format:      req.Format,
		PeriodFrom:  req.PeriodStart,
		PeriodTo:    req.PeriodEnd,
		AsOf:        req.AsOf,
		RequestedBy: auth.CallerFromContext(c),
	})
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, result.Artifact.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", result.Artifact.Name))
	return c.Status(http.StatusCreated).Send(result.Data)
}

// List GET /reports.
func (h *ReportsHandler) List(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "20"))

	items, total, err := h.service.List(c.UserContext(), page, pageSize)
	if err != nil {
		return err
	}

	data := make([]dto.ArtifactResponse, 0, len(items))
	for _, item := range items {
		data = append(data, dto.ArtifactFromDomain(item))
	}
	return c.JSON(dto.ListReportsResponse{
		Data: data,
		Pagination: dto.Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
		},
	})
}

// Download GET /reports/:name. Authorized either by API key or by a signed
// download token bound to the artifact name.
func (h *ReportsHandler) Download(c *fiber.Ctx) error {
	name := c.Params("name")
	actor := "token"

	if token := c.Query("token"); token != "" {
		claims, err := h.tokens.ParseToken(token)
		if err != nil || claims.Artifact != name {
			return apperrors.NewForbidden("invalid download token")
		}
	} else {
		key := c.Get(auth.HeaderAPIKey)
		if key == "" {
			return apperrors.NewUnauthorized("missing API key")
		}
		if !h.keys.Validate(key) {
			return apperrors.NewForbidden("invalid API key")
		}
		actor = auth.CallerID(key)
	}

	data, contentType, err := h.service.Download(c.UserContext(), name, actor)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Send(data)
}

// CreateLink POST /reports/:name/link issues a signed, short-lived link for
// one artifact.
func (h *ReportsHandler) CreateLink(c *fiber.Ctx) error {
	name := c.Params("name")
	if !h.service.Exists(name) {
		return apperrors.NewNotFound("report", map[string]any{"name": name})
	}

	token, expiresAt, err := h.tokens.GenerateToken(name)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(dto.DownloadLinkResponse{
		Token:     token,
		URL:       fmt.Sprintf("/reports/%s?token=%s", name, token),
		ExpiresAt: expiresAt,
	})
}

// SampleData GET /sample-data serves the bundled example incident batch.
func (h *ReportsHandler) SampleData(c *fiber.Ctx) error {
	data, err := os.ReadFile(h.sampleDataPath)
	if err != nil {
		return apperrors.NewNotFound("sample data", nil)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}
