package events

// EventType identifies a report lifecycle event.
type EventType string

const (
	EventReportGenerated  EventType = "report.generated"
	EventReportDownloaded EventType = "report.downloaded"
)

// Event carries a lifecycle notification.
type Event struct {
	Type     EventType
	Artifact string
	Actor    string
	Payload  any
}

// ReportGeneratedPayload describes a completed generation run.
type ReportGeneratedPayload struct {
	TotalIncidents    int
	SizeBytes         int64
	ContentType       string
	NarrativeFallback bool
	DurationMillis    int64
}
