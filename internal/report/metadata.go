package report

import (
	"fmt"
	"time"

	"github.com/spec-kit/incident-report-service/internal/domain"
)

const artifactTimeFormat = "20060102_150405"

// ArtifactBaseName derives the artifact name stem from the generation
// timestamp. Names are not collision-resistant within the same second; the
// storage layer disambiguates with a random suffix when needed.
func ArtifactBaseName(generatedAt time.Time) string {
	return fmt.Sprintf("incident_report_%s", generatedAt.Format(artifactTimeFormat))
}

// NewArtifact builds listing metadata for a rendered report. This layer
// never touches the filesystem; sizes come from the caller.
func NewArtifact(name, contentType string, sizeBytes int64, createdAt time.Time, requestedBy string) domain.ReportArtifact {
	return domain.ReportArtifact{
		Name:        name,
		ContentType: contentType,
		SizeBytes:   sizeBytes,
		RequestedBy: requestedBy,
		CreatedAt:   createdAt,
	}
}
