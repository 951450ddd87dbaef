package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-report-service/internal/events"
)

// StartAuditWorker subscribes an audit trail logger to report lifecycle
// events. Handlers run synchronously on the dispatcher.
func StartAuditWorker(dispatcher events.Dispatcher, logger *zap.Logger) {
	if dispatcher == nil || logger == nil {
		return
	}

	dispatcher.Subscribe(events.EventReportGenerated, func(_ context.Context, event events.Event) error {
		fields := []zap.Field{
			zap.String("artifact", event.Artifact),
			zap.String("actor", event.Actor),
		}
		if payload, ok := event.Payload.(events.ReportGeneratedPayload); ok {
			fields = append(fields,
				zap.Int("total_incidents", payload.TotalIncidents),
				zap.Int64("size_bytes", payload.SizeBytes),
				zap.String("content_type", payload.ContentType),
				zap.Bool("narrative_fallback", payload.NarrativeFallback),
				zap.Int64("duration_ms", payload.DurationMillis),
			)
		}
		logger.Info("report generated", fields...)
		return nil
	})

	dispatcher.Subscribe(events.EventReportDownloaded, func(_ context.Context, event events.Event) error {
		logger.Info("report downloaded",
			zap.String("artifact", event.Artifact),
			zap.String("actor", event.Actor),
		)
		return nil
	})
}
