package report

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-report-service/internal/domain"
	apperrors "github.com/spec-kit/incident-report-service/pkg/util"
)

func sampleBundle(t *testing.T) (*domain.MetricsBundle, []domain.IncidentRecord) {
	t.Helper()
	records := []domain.IncidentRecord{
		resolvedRecord(t, "INC001", domain.IncidentPriorityHigh, "2025-01-01T00:00:00", "2025-01-01T02:00:00"),
		openRecord(t, "INC002", domain.IncidentPriorityHigh, "2025-01-01T00:00:00"),
	}
	bundle, err := Aggregate(records, DefaultSLAThresholds(), mustTime(t, "2025-01-01T10:00:00"))
	require.NoError(t, err)
	return bundle, records
}

func assembleInput(t *testing.T) AssembleInput {
	bundle, records := sampleBundle(t)
	return AssembleInput{
		Title:     "January Incident Report",
		Period:    domain.ReportPeriod{From: mustTime(t, "2025-01-01T00:00:00"), To: mustTime(t, "2025-01-31T00:00:00")},
		Generated: mustTime(t, "2025-02-01T09:00:00"),
		Metrics:   bundle,
		Narrative: "All quiet.",
		Incidents: records,
	}
}

func TestAssembleSubstitutesAllPlaceholders(t *testing.T) {
	body, err := Assemble(assembleInput(t))
	require.NoError(t, err)

	assert.NotContains(t, body, "{{")
	assert.Contains(t, body, "# January Incident Report")
	assert.Contains(t, body, "Reporting period: 2025-01-01 to 2025-01-31")
	assert.Contains(t, body, "All quiet.")
	assert.Contains(t, body, "Total Incidents: 2")
	assert.Contains(t, body, "Report generated on: 2025-02-01 09:00:00")
}

func TestAssembleDefaultsTitle(t *testing.T) {
	input := assembleInput(t)
	input.Title = ""

	body, err := Assemble(input)
	require.NoError(t, err)
	assert.Contains(t, body, "# Incident Report - 2025-02-01 09:00:00")
}

func TestAssembleFixedDecimalPrecision(t *testing.T) {
	body, err := Assemble(assembleInput(t))
	require.NoError(t, err)

	// avg 2h, overall rate 1 within / 2 determinable.
	assert.Contains(t, body, "Average Resolution Time: 2.00 hours")
	assert.Contains(t, body, "SLA Compliance Rate: 0.50")
}

func TestAssembleUnknownPlaceholderFails(t *testing.T) {
	input := assembleInput(t)
	input.Template = "# Report\n{{no_such_placeholder}}\n"

	_, err := Assemble(input)
	require.Error(t, err)

	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "TEMPLATE_ERROR", domainErr.Code)
	assert.Equal(t, "no_such_placeholder", domainErr.Details["placeholder"])
}

func TestBreakdownTableHeaderAndColumns(t *testing.T) {
	bundle, _ := sampleBundle(t)
	table := BreakdownTable("Priority", bundle.ByPriority)

	lines := strings.Split(table, "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, "| Priority | Total | Resolved | Unresolved | Within SLA | Breached | Pending | Compliance Rate |", lines[0])

	cells := splitRow(lines[2])
	require.Len(t, cells, 8)
	assert.Equal(t, "High", cells[0])
}

func TestBreakdownTableEmptyRows(t *testing.T) {
	table := BreakdownTable("Department", nil)
	assert.Contains(t, table, "| (none) | 0 | 0 | 0 | 0 | 0 | 0 | 0.00 |")
}

func TestIncidentTableEscapesDelimiters(t *testing.T) {
	rec := openRecord(t, "INC|03", domain.IncidentPriorityLow, "2025-01-01T00:00:00")
	rec.Title = "multi\nline | title"

	table := IncidentTable([]domain.IncidentRecord{rec})
	assert.Contains(t, table, `INC\|03`)
	assert.NotContains(t, table, "multi\nline")
}

// Re-parsing the rendered breakdown cells must reproduce the computed
// numbers at the configured precision.
func TestBreakdownTableRoundTrip(t *testing.T) {
	bundle, _ := sampleBundle(t)
	table := BreakdownTable("Priority", bundle.ByPriority)

	lines := strings.Split(table, "\n")
	for i, row := range bundle.ByPriority {
		cells := splitRow(lines[i+2])
		require.Len(t, cells, 8)

		total, err := strconv.Atoi(cells[1])
		require.NoError(t, err)
		assert.Equal(t, row.Total, total)

		within, err := strconv.Atoi(cells[4])
		require.NoError(t, err)
		assert.Equal(t, row.WithinSLA, within)

		rate, err := strconv.ParseFloat(cells[7], 64)
		require.NoError(t, err)
		expected, err := strconv.ParseFloat(strconv.FormatFloat(row.ComplianceRate, 'f', 2, 64), 64)
		require.NoError(t, err)
		assert.InDelta(t, expected, rate, 1e-9)
	}
}

func TestAssembleCustomTemplate(t *testing.T) {
	input := assembleInput(t)
	input.Template = "total={{total_incidents}} rate={{sla_compliance_rate}}"

	body, err := Assemble(input)
	require.NoError(t, err)
	assert.Equal(t, "total=2 rate=0.50", body)
}

func TestAssembleGeneratedTimestampFormat(t *testing.T) {
	input := assembleInput(t)
	input.Generated = time.Date(2025, 3, 5, 7, 9, 11, 0, time.UTC)

	body, err := Assemble(input)
	require.NoError(t, err)
	assert.Contains(t, body, "2025-03-05 07:09:11")
}

func splitRow(line string) []string {
	trimmed := strings.Trim(line, "|")
	parts := strings.Split(trimmed, " | ")
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		cells = append(cells, strings.TrimSpace(p))
	}
	return cells
}
