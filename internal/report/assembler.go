package report

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spec-kit/incident-report-service/internal/domain"
	apperrors "github.com/spec-kit/incident-report-service/pkg/util"
)

const (
	dateFormat     = "2006-01-02"
	datetimeFormat = "2006-01-02 15:04:05"
)

// DefaultTemplate is the built-in report layout. Deployments may override
// it via REPORT_TEMPLATE_PATH; placeholders use {{name}} tokens.
const DefaultTemplate = `# {{title}}

Reporting period: {{period_start}} to {{period_end}}

## Executive Summary

{{narrative}}

## Metrics Overview

- Total Incidents: {{total_incidents}}
- Resolved Incidents: {{resolved_incidents}}
- Unresolved Incidents: {{unresolved_incidents}}
- Average Resolution Time: {{avg_resolution_hours}} hours
- SLA Compliance Rate: {{sla_compliance_rate}}
- Within SLA: {{within_sla}} / Breached: {{breached}} / Pending: {{pending}}

## Priority Breakdown

{{priority_breakdown}}

## Department Breakdown

{{department_breakdown}}

## Category Breakdown

{{category_breakdown}}

## Incident List

{{incident_list}}

---
Report generated on: {{generated_at}}
`

var placeholderPattern = regexp.MustCompile(`\{\{([a-z_]+)\}\}`)

// AssembleInput bundles everything the assembler substitutes into the
// template.
type AssembleInput struct {
	Title     string
	Period    domain.ReportPeriod
	Generated time.Time
	Metrics   *domain.MetricsBundle
	Narrative string
	Incidents []domain.IncidentRecord
	Template  string
}

// Assemble substitutes the report values into the template's named
// placeholders and returns the final document text. A placeholder with no
// value and no default fails with TEMPLATE_ERROR naming it.
func Assemble(input AssembleInput) (string, error) {
	template := input.Template
	if template == "" {
		template = DefaultTemplate
	}

	title := input.Title
	if title == "" {
		title = "Incident Report - " + input.Generated.Format(datetimeFormat)
	}

	values := map[string]string{
		"title":                title,
		"period_start":         input.Period.From.Format(dateFormat),
		"period_end":           input.Period.To.Format(dateFormat),
		"generated_at":         input.Generated.Format(datetimeFormat),
		"narrative":            input.Narrative,
		"total_incidents":      fmt.Sprintf("%d", input.Metrics.Total),
		"resolved_incidents":   fmt.Sprintf("%d", input.Metrics.Resolved),
		"unresolved_incidents": fmt.Sprintf("%d", input.Metrics.Unresolved),
		"within_sla":           fmt.Sprintf("%d", input.Metrics.WithinSLA),
		"breached":             fmt.Sprintf("%d", input.Metrics.Breached),
		"pending":              fmt.Sprintf("%d", input.Metrics.Pending),
		"avg_resolution_hours": formatRate(input.Metrics.AvgResolutionHours),
		"sla_compliance_rate":  formatRate(input.Metrics.ComplianceRate),
		"priority_breakdown":   BreakdownTable("Priority", input.Metrics.ByPriority),
		"department_breakdown": BreakdownTable("Department", input.Metrics.ByDepartment),
		"category_breakdown":   BreakdownTable("Category", input.Metrics.ByCategory),
		"incident_list":        IncidentTable(input.Incidents),
	}

	var missing string
	body := placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		name := placeholderPattern.FindStringSubmatch(token)[1]
		val, ok := values[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return token
		}
		return val
	})
	if missing != "" {
		return "", apperrors.NewTemplateError(missing)
	}
	return body, nil
}

// formatRate renders rates and durations at the fixed two-decimal precision
// the downstream renderer and tests depend on.
func formatRate(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// BreakdownTable renders one dimension's rows as a pipe-delimited block.
// Column order and the header row are fixed.
func BreakdownTable(dimension string, rows []domain.BreakdownRow) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "| %s | Total | Resolved | Unresolved | Within SLA | Breached | Pending | Compliance Rate |\n", dimension)
	sb.WriteString("|---|---|---|---|---|---|---|---|\n")
	if len(rows) == 0 {
		sb.WriteString("| (none) | 0 | 0 | 0 | 0 | 0 | 0 | 0.00 |\n")
		return strings.TrimRight(sb.String(), "\n")
	}
	for _, row := range rows {
		fmt.Fprintf(&sb, "| %s | %d | %d | %d | %d | %d | %d | %s |\n",
			escapeCell(row.Key), row.Total, row.Resolved, row.Unresolved,
			row.WithinSLA, row.Breached, row.Pending, formatRate(row.ComplianceRate))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// IncidentTable renders the full incident list in display form. The list is
// bounded only by input size; pagination is the caller's concern.
func IncidentTable(records []domain.IncidentRecord) string {
	var sb strings.Builder
	sb.WriteString("| ID | Title | Status | Priority | Department | Category | Created At | Resolved At | SLA Status |\n")
	sb.WriteString("|---|---|---|---|---|---|---|---|---|\n")
	if len(records) == 0 {
		sb.WriteString("| (none) | | | | | | | | |\n")
		return strings.TrimRight(sb.String(), "\n")
	}
	for _, rec := range records {
		resolvedAt := ""
		if rec.ResolvedAt != nil {
			resolvedAt = rec.ResolvedAt.Format(datetimeFormat)
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			escapeCell(rec.ID), escapeCell(rec.Title), escapeCell(string(rec.Status)),
			escapeCell(string(rec.Priority)), escapeCell(rec.Department), escapeCell(rec.Category),
			rec.CreatedAt.Format(datetimeFormat), resolvedAt, rec.SLAOutcome)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
