package domain

import "time"

// BreakdownRow holds per-group counts for one dimension value. Rows keep
// the insertion order of first appearance in the input.
type BreakdownRow struct {
	Key        string
	Total      int
	Resolved   int
	Unresolved int
	WithinSLA  int
	Breached   int
	Pending    int
	// ComplianceRate is within-SLA over resolved in this group, in [0,1];
	// zero resolved yields 0.
	ComplianceRate float64
}

// MetricsBundle is the immutable computed result of one aggregation run.
type MetricsBundle struct {
	Total              int
	Resolved           int
	Unresolved         int
	WithinSLA          int
	Breached           int
	Pending            int
	AvgResolutionHours float64
	// ComplianceRate is within-SLA over all records with a determinable
	// outcome (pending excluded), in [0,1].
	ComplianceRate float64
	ByPriority     []BreakdownRow
	ByDepartment   []BreakdownRow
	ByCategory     []BreakdownRow
}

// ReportPeriod bounds the reporting window shown in the header.
type ReportPeriod struct {
	From time.Time
	To   time.Time
}

// ReportDocument is the assembled report, created once per generate call
// and not mutated afterwards.
type ReportDocument struct {
	Title             string
	Period            ReportPeriod
	GeneratedAt       time.Time
	Narrative         string
	NarrativeFallback bool
	Metrics           MetricsBundle
	Incidents         []IncidentRecord
	Body              string
}

// ReportArtifact describes a stored rendered report.
type ReportArtifact struct {
	ID          string
	Name        string
	ContentType string
	SizeBytes   int64
	RequestedBy string
	CreatedAt   time.Time
}
