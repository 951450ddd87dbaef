package report

import (
	"time"

	"github.com/spec-kit/incident-report-service/internal/config"
	"github.com/spec-kit/incident-report-service/internal/domain"
	apperrors "github.com/spec-kit/incident-report-service/pkg/util"
)

// SLAThresholds maps priority levels to their allotted resolution time.
// Other covers priorities outside the known set.
type SLAThresholds struct {
	thresholds map[domain.IncidentPriority]time.Duration
	other      time.Duration
}

// DefaultSLAThresholds returns the documented default table: Critical 4h,
// High 8h, Medium 24h, Low 72h, everything else 72h.
func DefaultSLAThresholds() SLAThresholds {
	return NewSLAThresholds(config.SLAConfig{
		CriticalHours: 4,
		HighHours:     8,
		MediumHours:   24,
		LowHours:      72,
		OtherHours:    72,
	})
}

// NewSLAThresholds builds the threshold table from configuration.
func NewSLAThresholds(cfg config.SLAConfig) SLAThresholds {
	return SLAThresholds{
		thresholds: map[domain.IncidentPriority]time.Duration{
			domain.IncidentPriorityCritical: time.Duration(cfg.CriticalHours) * time.Hour,
			domain.IncidentPriorityHigh:     time.Duration(cfg.HighHours) * time.Hour,
			domain.IncidentPriorityMedium:   time.Duration(cfg.MediumHours) * time.Hour,
			domain.IncidentPriorityLow:      time.Duration(cfg.LowHours) * time.Hour,
		},
		other: time.Duration(cfg.OtherHours) * time.Hour,
	}
}

// For returns the threshold for a priority.
func (t SLAThresholds) For(p domain.IncidentPriority) time.Duration {
	if d, ok := t.thresholds[p]; ok {
		return d
	}
	return t.other
}

// breakdown accumulates per-key rows in first-appearance order. Department
// and category keys are open-ended, so rows are never driven by a fixed
// list.
type breakdown struct {
	index map[string]int
	rows  []domain.BreakdownRow
}

func newBreakdown() *breakdown {
	return &breakdown{index: make(map[string]int)}
}

func (b *breakdown) row(key string) *domain.BreakdownRow {
	if i, ok := b.index[key]; ok {
		return &b.rows[i]
	}
	b.index[key] = len(b.rows)
	b.rows = append(b.rows, domain.BreakdownRow{Key: key})
	return &b.rows[len(b.rows)-1]
}

func (b *breakdown) finish() []domain.BreakdownRow {
	for i := range b.rows {
		row := &b.rows[i]
		row.ComplianceRate = groupComplianceRate(row.WithinSLA, row.Resolved)
	}
	if b.rows == nil {
		return []domain.BreakdownRow{}
	}
	return b.rows
}

// groupComplianceRate is within-SLA over resolved; zero resolved is defined
// as rate 0, not an error.
func groupComplianceRate(within, resolved int) float64 {
	if resolved == 0 {
		return 0
	}
	return float64(within) / float64(resolved)
}

// Aggregate computes the metrics bundle for a validated batch. asOf is the
// reference time against which unresolved records are classified as Breach
// or Pending. The records slice is annotated in place with each record's
// derived SLA outcome.
func Aggregate(records []domain.IncidentRecord, sla SLAThresholds, asOf time.Time) (*domain.MetricsBundle, error) {
	bundle := &domain.MetricsBundle{Total: len(records)}

	byPriority := newBreakdown()
	byDepartment := newBreakdown()
	byCategory := newBreakdown()

	var resolutionHours float64

	for i := range records {
		rec := &records[i]
		threshold := sla.For(rec.Priority)

		resolved := rec.Resolved()
		if resolved {
			bundle.Resolved++
			resolutionHours += rec.ResolutionTime().Hours()
			if rec.ResolutionTime() <= threshold {
				rec.SLAOutcome = domain.SLAWithin
			} else {
				rec.SLAOutcome = domain.SLABreach
			}
		} else {
			bundle.Unresolved++
			if asOf.Sub(rec.CreatedAt) > threshold {
				rec.SLAOutcome = domain.SLABreach
			} else {
				rec.SLAOutcome = domain.SLAPending
			}
		}

		for _, row := range []*domain.BreakdownRow{
			byPriority.row(groupKey(string(rec.Priority))),
			byDepartment.row(groupKey(rec.Department)),
			byCategory.row(groupKey(rec.Category)),
		} {
			row.Total++
			if resolved {
				row.Resolved++
			} else {
				row.Unresolved++
			}
			switch rec.SLAOutcome {
			case domain.SLAWithin:
				row.WithinSLA++
			case domain.SLABreach:
				row.Breached++
			case domain.SLAPending:
				row.Pending++
			}
		}

		switch rec.SLAOutcome {
		case domain.SLAWithin:
			bundle.WithinSLA++
		case domain.SLABreach:
			bundle.Breached++
		case domain.SLAPending:
			bundle.Pending++
		}
	}

	// Average over zero resolved records is 0, never NaN.
	if bundle.Resolved > 0 {
		bundle.AvgResolutionHours = resolutionHours / float64(bundle.Resolved)
	}

	determinable := bundle.WithinSLA + bundle.Breached
	if determinable == 0 {
		if bundle.WithinSLA > 0 {
			return nil, apperrors.NewComputationInvariant("within-SLA count is nonzero with no determinable outcomes")
		}
		bundle.ComplianceRate = 0
	} else {
		bundle.ComplianceRate = float64(bundle.WithinSLA) / float64(determinable)
	}

	bundle.ByPriority = byPriority.finish()
	bundle.ByDepartment = byDepartment.finish()
	bundle.ByCategory = byCategory.finish()

	return bundle, nil
}

func groupKey(key string) string {
	if key == "" {
		return "Unspecified"
	}
	return key
}
