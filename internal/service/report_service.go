package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-report-service/internal/domain"
	"github.com/spec-kit/incident-report-service/internal/events"
	"github.com/spec-kit/incident-report-service/internal/ingest"
	"github.com/spec-kit/incident-report-service/internal/observability"
	"github.com/spec-kit/incident-report-service/internal/renderer"
	"github.com/spec-kit/incident-report-service/internal/report"
	"github.com/spec-kit/incident-report-service/internal/repository"
	"github.com/spec-kit/incident-report-service/internal/storage"
	apperrors "github.com/spec-kit/incident-report-service/pkg/util"
)

// ReportService coordinates the report generation pipeline: validate,
// aggregate, narrate, assemble, render, persist. All pipeline state is
// request-scoped; concurrent generations share nothing mutable.
type ReportService struct {
	sla           report.SLAThresholds
	narrative     *report.NarrativeBuilder
	renderer      renderer.Renderer
	store         *storage.ArtifactStore
	artifacts     repository.ReportArtifactRepository
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
	template      string
	defaultLocale string
}

// Dependencies bundles collaborators for the report service. Artifacts may
// be nil when no database is configured; listings then scan the reports
// directory.
type Dependencies struct {
	SLA           report.SLAThresholds
	Narrative     *report.NarrativeBuilder
	Renderer      renderer.Renderer
	Store         *storage.ArtifactStore
	Artifacts     repository.ReportArtifactRepository
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	Template      string
	DefaultLocale string
}

// GenerateInput describes one report generation request.
type GenerateInput struct {
	Records     []ingest.RawRecord
	Title       string
	Locale      string
	Format      string // "pdf" (default) or "markdown"
	PeriodFrom  *time.Time
	PeriodTo    *time.Time
	AsOf        *time.Time
	RequestedBy string
}

// GenerateResult carries the assembled document, the stored artifact
// metadata, and the rendered bytes.
type GenerateResult struct {
	Document *domain.ReportDocument
	Artifact domain.ReportArtifact
	Data     []byte
}

// NewReportService constructs the service.
func NewReportService(deps Dependencies) *ReportService {
	return &ReportService{
		sla:           deps.SLA,
		narrative:     deps.Narrative,
		renderer:      deps.Renderer,
		store:         deps.Store,
		artifacts:     deps.Artifacts,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		template:      deps.Template,
		defaultLocale: deps.DefaultLocale,
	}
}

// Generate runs the full pipeline for one batch of raw records.
func (s *ReportService) Generate(ctx context.Context, input GenerateInput) (*GenerateResult, error) {
	started := time.Now()

	records, err := ingest.Validate(input.Records)
	if err != nil {
		return nil, err
	}

	asOf := time.Now().UTC()
	if input.AsOf != nil {
		asOf = *input.AsOf
	}

	bundle, err := report.Aggregate(records, s.sla, asOf)
	if err != nil {
		return nil, err
	}

	locale := input.Locale
	if locale == "" {
		locale = s.defaultLocale
	}

	// The narrative call is the only suspension point in the pipeline; it
	// runs alongside assembly preparation and resolves before substitution.
	narrativeCh := make(chan report.NarrativeResult, 1)
	go func() {
		narrativeCh <- s.narrative.Generate(ctx, bundle, locale)
	}()

	generatedAt := time.Now().UTC()
	period := resolvePeriod(input, records, asOf)
	narrative := <-narrativeCh

	body, err := report.Assemble(report.AssembleInput{
		Title:     input.Title,
		Period:    period,
		Generated: generatedAt,
		Metrics:   bundle,
		Narrative: narrative.Text,
		Incidents: records,
		Template:  s.template,
	})
	if err != nil {
		return nil, err
	}

	doc := &domain.ReportDocument{
		Title:             input.Title,
		Period:            period,
		GeneratedAt:       generatedAt,
		Narrative:         narrative.Text,
		NarrativeFallback: narrative.FallbackUsed,
		Metrics:           *bundle,
		Incidents:         records,
		Body:              body,
	}

	data, contentType, ext, err := s.render(ctx, input.Format, body)
	if err != nil {
		return nil, err
	}

	name, err := s.store.Save(report.ArtifactBaseName(generatedAt)+ext, data)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	artifact := report.NewArtifact(name, contentType, int64(len(data)), generatedAt, input.RequestedBy)
	if s.artifacts != nil {
		if err := s.artifacts.Insert(ctx, &artifact); err != nil {
			// The artifact itself is stored; a metadata insert failure only
			// degrades listings.
			s.logger.Warn("artifact metadata insert failed", zap.String("name", name), zap.Error(err))
		}
	}

	s.metrics.RecordReport(narrative.FallbackUsed)
	s.publish(ctx, events.Event{
		Type:     events.EventReportGenerated,
		Artifact: name,
		Actor:    input.RequestedBy,
		Payload: events.ReportGeneratedPayload{
			TotalIncidents:    bundle.Total,
			SizeBytes:         artifact.SizeBytes,
			ContentType:       contentType,
			NarrativeFallback: narrative.FallbackUsed,
			DurationMillis:    time.Since(started).Milliseconds(),
		},
	})

	return &GenerateResult{Document: doc, Artifact: artifact, Data: data}, nil
}

func (s *ReportService) render(ctx context.Context, format, body string) (data []byte, contentType, ext string, err error) {
	if format == "markdown" || format == "md" {
		return []byte(body), "text/markdown", ".md", nil
	}
	rendered, err := s.renderer.Render(ctx, body)
	if err != nil {
		return nil, "", "", apperrors.NewRenderError(err)
	}
	return rendered, s.renderer.ContentType(), ".pdf", nil
}

// List returns stored artifacts, newest first, with the total count for
// pagination.
func (s *ReportService) List(ctx context.Context, page, pageSize int) ([]domain.ReportArtifact, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	if s.artifacts != nil {
		items, err := s.artifacts.List(ctx, pageSize, offset)
		if err != nil {
			return nil, 0, apperrors.NewInternalError(err)
		}
		total, err := s.artifacts.Count(ctx)
		if err != nil {
			return nil, 0, apperrors.NewInternalError(err)
		}
		return items, total, nil
	}

	all, err := s.store.List()
	if err != nil {
		return nil, 0, apperrors.NewInternalError(err)
	}
	total := len(all)
	if offset >= total {
		return []domain.ReportArtifact{}, total, nil
	}
	end := offset + pageSize
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// Download returns the stored bytes and content type for an artifact.
func (s *ReportService) Download(ctx context.Context, name, actor string) ([]byte, string, error) {
	if !s.store.Exists(name) {
		return nil, "", apperrors.NewNotFound("report", map[string]any{"name": name})
	}
	data, err := s.store.Read(name)
	if err != nil {
		return nil, "", apperrors.NewInternalError(err)
	}
	s.publish(ctx, events.Event{Type: events.EventReportDownloaded, Artifact: name, Actor: actor})
	return data, storage.ContentTypeFor(name), nil
}

// Exists reports whether an artifact is stored.
func (s *ReportService) Exists(name string) bool {
	return s.store.Exists(name)
}

func (s *ReportService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// resolvePeriod derives the reporting window: explicit bounds win, then the
// earliest record creation and the as-of time.
func resolvePeriod(input GenerateInput, records []domain.IncidentRecord, asOf time.Time) domain.ReportPeriod {
	period := domain.ReportPeriod{From: asOf, To: asOf}
	if len(records) > 0 {
		earliest := records[0].CreatedAt
		for _, rec := range records[1:] {
			if rec.CreatedAt.Before(earliest) {
				earliest = rec.CreatedAt
			}
		}
		period.From = earliest
	}
	if input.PeriodFrom != nil {
		period.From = *input.PeriodFrom
	}
	if input.PeriodTo != nil {
		period.To = *input.PeriodTo
	}
	return period
}
