package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-report-service/internal/events"
	"github.com/spec-kit/incident-report-service/internal/ingest"
	"github.com/spec-kit/incident-report-service/internal/observability"
	"github.com/spec-kit/incident-report-service/internal/report"
	"github.com/spec-kit/incident-report-service/internal/storage"
	apperrors "github.com/spec-kit/incident-report-service/pkg/util"
)

type fakeSummarizer struct {
	text string
	err  error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, prompt, locale string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeRenderer struct {
	err error
}

func (f *fakeRenderer) Render(ctx context.Context, markdown string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.4 " + markdown[:20]), nil
}

func (f *fakeRenderer) ContentType() string { return "application/pdf" }

func newTestService(t *testing.T, summarizer report.Summarizer, rend *fakeRenderer) *ReportService {
	t.Helper()
	store, err := storage.NewArtifactStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	return NewReportService(Dependencies{
		SLA:           report.DefaultSLAThresholds(),
		Narrative:     report.NewNarrativeBuilder(summarizer, time.Second, zap.NewNop()),
		Renderer:      rend,
		Store:         store,
		Dispatcher:    events.NewInMemoryDispatcher(),
		Metrics:       observability.NewMetrics(),
		Logger:        zap.NewNop(),
		DefaultLocale: "en",
	})
}

func rawIncident(id string) ingest.RawRecord {
	return ingest.RawRecord{
		"id":           id,
		"title":        "Email outage",
		"status":       "resolved",
		"priority":     "High",
		"department":   "IT",
		"category":     "Email",
		"created_date": "2025-01-01T00:00:00",
		"resolved_at":  "2025-01-01T02:00:00",
	}
}

func TestGenerateMarkdownReport(t *testing.T) {
	svc := newTestService(t, &fakeSummarizer{text: "All systems recovered quickly."}, &fakeRenderer{})

	result, err := svc.Generate(context.Background(), GenerateInput{
		Records:     []ingest.RawRecord{rawIncident("INC001")},
		Title:       "Weekly Report",
		Format:      "markdown",
		RequestedBy: "tester",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.Artifact.Name, "incident_report_"))
	assert.True(t, strings.HasSuffix(result.Artifact.Name, ".md"))
	assert.Equal(t, "text/markdown", result.Artifact.ContentType)
	assert.Equal(t, int64(len(result.Data)), result.Artifact.SizeBytes)
	assert.Equal(t, result.Document.Body, string(result.Data))
	assert.Contains(t, result.Document.Body, "# Weekly Report")
	assert.Contains(t, result.Document.Body, "All systems recovered quickly.")
	assert.False(t, result.Document.NarrativeFallback)
	assert.True(t, svc.Exists(result.Artifact.Name))
}

func TestGeneratePDFUsesRenderer(t *testing.T) {
	svc := newTestService(t, &fakeSummarizer{text: "ok"}, &fakeRenderer{})

	result, err := svc.Generate(context.Background(), GenerateInput{
		Records: []ingest.RawRecord{rawIncident("INC001")},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(result.Artifact.Name, ".pdf"))
	assert.Equal(t, "application/pdf", result.Artifact.ContentType)
	assert.True(t, strings.HasPrefix(string(result.Data), "%PDF"))
}

func TestGenerateValidationFailure(t *testing.T) {
	svc := newTestService(t, &fakeSummarizer{text: "ok"}, &fakeRenderer{})

	bad := rawIncident("INC001")
	delete(bad, "created_date")

	_, err := svc.Generate(context.Background(), GenerateInput{Records: []ingest.RawRecord{bad}})
	require.Error(t, err)

	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestGenerateNarrativeFailureDoesNotAbort(t *testing.T) {
	svc := newTestService(t, &fakeSummarizer{err: errors.New("upstream down")}, &fakeRenderer{})

	result, err := svc.Generate(context.Background(), GenerateInput{
		Records: []ingest.RawRecord{rawIncident("INC001")},
		Format:  "markdown",
	})
	require.NoError(t, err)

	assert.True(t, result.Document.NarrativeFallback)
	assert.NotEmpty(t, result.Document.Narrative)
	assert.Contains(t, result.Document.Body, result.Document.Narrative)
}

func TestGenerateRenderFailure(t *testing.T) {
	svc := newTestService(t, &fakeSummarizer{text: "ok"}, &fakeRenderer{err: errors.New("binary missing")})

	_, err := svc.Generate(context.Background(), GenerateInput{
		Records: []ingest.RawRecord{rawIncident("INC001")},
		Format:  "pdf",
	})
	require.Error(t, err)

	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "RENDER_FAILED", domainErr.Code)
}

func TestGenerateEmptyBatchProducesReport(t *testing.T) {
	svc := newTestService(t, &fakeSummarizer{text: "nothing happened"}, &fakeRenderer{})

	result, err := svc.Generate(context.Background(), GenerateInput{
		Records: []ingest.RawRecord{},
		Format:  "markdown",
	})
	require.NoError(t, err)
	assert.Contains(t, result.Document.Body, "Total Incidents: 0")
}

func TestGenerateExplicitPeriodWins(t *testing.T) {
	svc := newTestService(t, &fakeSummarizer{text: "ok"}, &fakeRenderer{})

	from := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	result, err := svc.Generate(context.Background(), GenerateInput{
		Records:    []ingest.RawRecord{rawIncident("INC001")},
		Format:     "markdown",
		PeriodFrom: &from,
		PeriodTo:   &to,
	})
	require.NoError(t, err)

	assert.Equal(t, from, result.Document.Period.From)
	assert.Equal(t, to, result.Document.Period.To)
	assert.Contains(t, result.Document.Body, "2024-12-01 to 2024-12-31")
}

func TestGeneratePublishesEvent(t *testing.T) {
	svc := newTestService(t, &fakeSummarizer{text: "ok"}, &fakeRenderer{})

	received := make(chan events.Event, 1)
	svc.dispatcher.Subscribe(events.EventReportGenerated, func(ctx context.Context, event events.Event) error {
		received <- event
		return nil
	})

	result, err := svc.Generate(context.Background(), GenerateInput{
		Records:     []ingest.RawRecord{rawIncident("INC001")},
		Format:      "markdown",
		RequestedBy: "tester",
	})
	require.NoError(t, err)

	select {
	case event := <-received:
		assert.Equal(t, result.Artifact.Name, event.Artifact)
		assert.Equal(t, "tester", event.Actor)
		payload, ok := event.Payload.(events.ReportGeneratedPayload)
		require.True(t, ok)
		assert.Equal(t, 1, payload.TotalIncidents)
	default:
		t.Fatal("expected a report generated event")
	}
}

func TestListFilesystemFallbackPagination(t *testing.T) {
	svc := newTestService(t, &fakeSummarizer{text: "ok"}, &fakeRenderer{})

	for _, name := range []string{"a.md", "b.md", "c.md"} {
		_, err := svc.store.Save(name, []byte("body"))
		require.NoError(t, err)
	}

	first, total, err := svc.List(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, first, 2)

	second, total, err := svc.List(context.Background(), 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, second, 1)

	empty, total, err := svc.List(context.Background(), 5, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Empty(t, empty)
}

func TestDownloadRoundTrip(t *testing.T) {
	svc := newTestService(t, &fakeSummarizer{text: "ok"}, &fakeRenderer{})

	result, err := svc.Generate(context.Background(), GenerateInput{
		Records: []ingest.RawRecord{rawIncident("INC001")},
		Format:  "markdown",
	})
	require.NoError(t, err)

	data, contentType, err := svc.Download(context.Background(), result.Artifact.Name, "tester")
	require.NoError(t, err)
	assert.Equal(t, result.Data, data)
	assert.Equal(t, "text/markdown", contentType)
}

func TestDownloadMissingArtifact(t *testing.T) {
	svc := newTestService(t, &fakeSummarizer{text: "ok"}, &fakeRenderer{})

	_, _, err := svc.Download(context.Background(), "no_such_report.pdf", "tester")
	require.Error(t, err)

	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestGenerateCountsMetrics(t *testing.T) {
	svc := newTestService(t, &fakeSummarizer{err: errors.New("down")}, &fakeRenderer{})

	_, err := svc.Generate(context.Background(), GenerateInput{
		Records: []ingest.RawRecord{rawIncident("INC001")},
		Format:  "markdown",
	})
	require.NoError(t, err)

	reports, fallbacks := svc.metrics.ReportCounts()
	assert.Equal(t, int64(1), reports)
	assert.Equal(t, int64(1), fallbacks)
}
