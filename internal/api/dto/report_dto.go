package dto

import (
	"time"

	"github.com/spec-kit/incident-report-service/internal/domain"
)

// GenerateReportRequest payload. Incident entries are passed through to
// the validator untyped so aliased field names survive decoding.
type GenerateReportRequest struct {
	Incidents   []map[string]any `json:"incidents"`
	Title       string           `json:"title"`
	Locale      string           `json:"locale"`
	Format      string           `json:"format"`
	PeriodStart *time.Time       `json:"period_start"`
	PeriodEnd   *time.Time       `json:"period_end"`
	AsOf        *time.Time       `json:"as_of"`
}

// ArtifactResponse describes one stored report.
type ArtifactResponse struct {
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

// Pagination carries listing metadata.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// ListReportsResponse is the paginated artifact listing.
type ListReportsResponse struct {
	Data       []ArtifactResponse `json:"data"`
	Pagination Pagination         `json:"pagination"`
}

// DownloadLinkResponse carries a signed single-artifact download link.
type DownloadLinkResponse struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ArtifactFromDomain converts a domain artifact for responses.
func ArtifactFromDomain(a domain.ReportArtifact) ArtifactResponse {
	return ArtifactResponse{
		Name:        a.Name,
		ContentType: a.ContentType,
		SizeBytes:   a.SizeBytes,
		CreatedAt:   a.CreatedAt,
	}
}
