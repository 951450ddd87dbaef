package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-report-service/internal/domain"
)

// Summarizer is the external text-generation collaborator.
type Summarizer interface {
	Summarize(ctx context.Context, prompt, locale string) (string, error)
}

// NarrativeResult is the two-outcome result of narrative generation. The
// builder never returns an error: when the collaborator fails the text is
// the deterministic fallback and FallbackUsed is set.
type NarrativeResult struct {
	Text         string
	FallbackUsed bool
}

// NarrativeBuilder turns a metrics bundle into the report's executive
// summary, best-effort via the summarizer with a bounded timeout and a
// single retry.
type NarrativeBuilder struct {
	summarizer Summarizer
	timeout    time.Duration
	logger     *zap.Logger
}

// NewNarrativeBuilder constructs the builder. A nil summarizer always
// yields the fallback text.
func NewNarrativeBuilder(summarizer Summarizer, timeout time.Duration, logger *zap.Logger) *NarrativeBuilder {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &NarrativeBuilder{summarizer: summarizer, timeout: timeout, logger: logger}
}

// Generate produces the narrative for a bundle. Failures of the external
// service never propagate; report generation must not abort on them.
func (b *NarrativeBuilder) Generate(ctx context.Context, m *domain.MetricsBundle, locale string) NarrativeResult {
	if b.summarizer == nil {
		return NarrativeResult{Text: FallbackNarrative(m), FallbackUsed: true}
	}

	prompt := BuildPrompt(m)

	for attempt := 0; attempt < 2; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, b.timeout)
		text, err := b.summarizer.Summarize(callCtx, prompt, locale)
		cancel()
		if err == nil && strings.TrimSpace(text) != "" {
			return NarrativeResult{Text: strings.TrimSpace(text)}
		}
		if b.logger != nil {
			b.logger.Warn("narrative generation attempt failed",
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
		}
	}

	return NarrativeResult{Text: FallbackNarrative(m), FallbackUsed: true}
}

// BuildPrompt formats a deterministic, size-bounded prompt from aggregate
// numbers only. Raw incident free text never reaches the prompt, keeping
// its size independent of batch size.
func BuildPrompt(m *domain.MetricsBundle) string {
	var sb strings.Builder
	sb.WriteString("Analyze the following incident report metrics and provide a clear, concise summary:\n\n")
	fmt.Fprintf(&sb, "- Total incidents: %d\n", m.Total)
	fmt.Fprintf(&sb, "- Resolved: %d\n", m.Resolved)
	fmt.Fprintf(&sb, "- Unresolved: %d\n", m.Unresolved)
	fmt.Fprintf(&sb, "- Average resolution time: %.2f hours\n", m.AvgResolutionHours)
	fmt.Fprintf(&sb, "- SLA compliance rate: %.2f\n", m.ComplianceRate)
	fmt.Fprintf(&sb, "- SLA outcomes: %d within, %d breached, %d pending\n", m.WithinSLA, m.Breached, m.Pending)

	if top := topBreachGroups(m.ByCategory, 3); len(top) > 0 {
		sb.WriteString("\nCategories with most SLA breaches:\n")
		for _, row := range top {
			fmt.Fprintf(&sb, "- %s: %d breached of %d\n", row.Key, row.Breached, row.Total)
		}
	}
	if top := topBreachGroups(m.ByDepartment, 3); len(top) > 0 {
		sb.WriteString("\nDepartments with most SLA breaches:\n")
		for _, row := range top {
			fmt.Fprintf(&sb, "- %s: %d breached of %d\n", row.Key, row.Breached, row.Total)
		}
	}

	sb.WriteString("\nProvide a brief overview, notable trends in resolution and SLA compliance, and recommendations for improvement. Respond in clear paragraphs.")
	return sb.String()
}

// topBreachGroups returns up to n rows with nonzero breach counts, highest
// first; ties keep input order.
func topBreachGroups(rows []domain.BreakdownRow, n int) []domain.BreakdownRow {
	withBreaches := make([]domain.BreakdownRow, 0, len(rows))
	for _, row := range rows {
		if row.Breached > 0 {
			withBreaches = append(withBreaches, row)
		}
	}
	sort.SliceStable(withBreaches, func(i, j int) bool {
		return withBreaches[i].Breached > withBreaches[j].Breached
	})
	if len(withBreaches) > n {
		withBreaches = withBreaches[:n]
	}
	return withBreaches
}

// FallbackNarrative builds the deterministic summary used when the external
// service is unavailable. It is derived purely from numeric fields.
func FallbackNarrative(m *domain.MetricsBundle) string {
	if m.Total == 0 {
		return "No incidents were reported in this period."
	}
	summary := fmt.Sprintf(
		"This period covers %d incidents, of which %d were resolved and %d remain open. The average resolution time was %.2f hours and the overall SLA compliance rate was %.2f. %d incidents are within SLA, %d have breached, and %d are pending.",
		m.Total, m.Resolved, m.Unresolved, m.AvgResolutionHours, m.ComplianceRate,
		m.WithinSLA, m.Breached, m.Pending,
	)
	if top := topBreachGroups(m.ByCategory, 1); len(top) > 0 {
		summary += fmt.Sprintf(" The category with the most SLA breaches was %s (%d).", top[0].Key, top[0].Breached)
	}
	return summary
}
