package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestArtifactBaseName(t *testing.T) {
	ts := time.Date(2025, 1, 27, 14, 5, 9, 0, time.UTC)
	assert.Equal(t, "incident_report_20250127_140509", ArtifactBaseName(ts))
}

func TestNewArtifact(t *testing.T) {
	ts := time.Date(2025, 1, 27, 14, 5, 9, 0, time.UTC)
	artifact := NewArtifact("incident_report_20250127_140509.pdf", "application/pdf", 2048, ts, "caller-1")

	assert.Equal(t, "incident_report_20250127_140509.pdf", artifact.Name)
	assert.Equal(t, "application/pdf", artifact.ContentType)
	assert.Equal(t, int64(2048), artifact.SizeBytes)
	assert.Equal(t, ts, artifact.CreatedAt)
	assert.Equal(t, "caller-1", artifact.RequestedBy)
	assert.Empty(t, artifact.ID)
}
