package domain

import (
	"strings"
	"time"
)

// IncidentStatus enumerates known lifecycle states. Unknown values are
// preserved as-is and grouped under their literal text.
type IncidentStatus string

const (
	IncidentStatusOpen       IncidentStatus = "Open"
	IncidentStatusInProgress IncidentStatus = "In Progress"
	IncidentStatusResolved   IncidentStatus = "Resolved"
	IncidentStatusClosed     IncidentStatus = "Closed"
)

// IncidentPriority enumerates known SLA urgency levels.
type IncidentPriority string

const (
	IncidentPriorityCritical IncidentPriority = "Critical"
	IncidentPriorityHigh     IncidentPriority = "High"
	IncidentPriorityMedium   IncidentPriority = "Medium"
	IncidentPriorityLow      IncidentPriority = "Low"
)

// SLAOutcome is the three-way SLA classification for a record. Pending is
// distinct from both other outcomes: an unresolved incident whose threshold
// has not elapsed yet is neither within nor in breach.
type SLAOutcome string

const (
	SLAWithin  SLAOutcome = "Within SLA"
	SLABreach  SLAOutcome = "Breach"
	SLAPending SLAOutcome = "Pending"
)

// IncidentRecord is one normalized reported incident. Instances are
// request-scoped: built fresh by the validator per generation call.
type IncidentRecord struct {
	ID          string
	Title       string
	Description string
	Status      IncidentStatus
	Priority    IncidentPriority
	Department  string
	Category    string
	CreatedAt   time.Time
	ResolvedAt  *time.Time
	// SLAOutcome is derived by the aggregator, never trusted from input.
	SLAOutcome SLAOutcome
}

// Resolved reports whether the record counts as resolved. The resolution
// timestamp is authoritative; status text is advisory only.
func (r *IncidentRecord) Resolved() bool {
	return r.ResolvedAt != nil && !r.ResolvedAt.Before(r.CreatedAt)
}

// ResolutionTime returns the time to resolution, zero for unresolved records.
func (r *IncidentRecord) ResolutionTime() time.Duration {
	if !r.Resolved() {
		return 0
	}
	return r.ResolvedAt.Sub(r.CreatedAt)
}

// NormalizeStatus maps case-insensitive status text onto the known set,
// passing unrecognized values through trimmed.
func NormalizeStatus(raw string) IncidentStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "open":
		return IncidentStatusOpen
	case "in progress", "in_progress", "inprogress":
		return IncidentStatusInProgress
	case "resolved":
		return IncidentStatusResolved
	case "closed":
		return IncidentStatusClosed
	default:
		return IncidentStatus(strings.TrimSpace(raw))
	}
}

// NormalizePriority maps case-insensitive priority text onto the known set,
// passing unrecognized values through trimmed.
func NormalizePriority(raw string) IncidentPriority {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "critical":
		return IncidentPriorityCritical
	case "high":
		return IncidentPriorityHigh
	case "medium":
		return IncidentPriorityMedium
	case "low":
		return IncidentPriorityLow
	default:
		return IncidentPriority(strings.TrimSpace(raw))
	}
}

// KnownPriority reports whether p is one of the four configured levels.
func KnownPriority(p IncidentPriority) bool {
	switch p {
	case IncidentPriorityCritical, IncidentPriorityHigh, IncidentPriorityMedium, IncidentPriorityLow:
		return true
	}
	return false
}
