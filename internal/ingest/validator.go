package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/incident-report-service/internal/domain"
	apperrors "github.com/spec-kit/incident-report-service/pkg/util"
)

// RawRecord is one incoming incident entry before validation. Keys may use
// canonical names or the documented aliases in any casing.
type RawRecord map[string]any

// fieldAliases maps canonical field names to accepted input keys, all
// compared after lowercasing.
var fieldAliases = map[string][]string{
	"id":          {"id", "incident_id"},
	"title":       {"title"},
	"description": {"description"},
	"status":      {"status"},
	"priority":    {"priority"},
	"department":  {"department"},
	"category":    {"category"},
	"created_at":  {"created_at", "created_date", "created_on", "createdat"},
	"resolved_at": {"resolved_at", "resolution_date", "resolved_on", "resolvedat"},
}

// timestampLayouts are the accepted ISO-8601-like input formats, tried in
// order.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FieldError describes one rejected field of one record.
type FieldError struct {
	Index  int    `json:"index"`
	Field  string `json:"field"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason"`
}

// Validate normalizes a batch of raw records, preserving input order. It is
// a pure transform: every offending record is reported with field-level
// detail in a single VALIDATION_FAILED error, and no partial output is
// returned on failure.
func Validate(records []RawRecord) ([]domain.IncidentRecord, error) {
	out := make([]domain.IncidentRecord, 0, len(records))
	var fieldErrors []FieldError

	for i, raw := range records {
		rec, errs := validateOne(i, raw)
		if len(errs) > 0 {
			fieldErrors = append(fieldErrors, errs...)
			continue
		}
		out = append(out, rec)
	}

	if len(fieldErrors) > 0 {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("%d record(s) failed validation", countIndexes(fieldErrors)),
			map[string]any{"fields": fieldErrors},
		)
	}
	return out, nil
}

func validateOne(index int, raw RawRecord) (domain.IncidentRecord, []FieldError) {
	lookup := normalizeKeys(raw)
	var errs []FieldError

	requireString := func(field string) string {
		val, ok := lookupField(lookup, field)
		if !ok || val == nil {
			errs = append(errs, FieldError{Index: index, Field: field, Reason: "required field missing"})
			return ""
		}
		s := coerceString(val)
		if strings.TrimSpace(s) == "" {
			errs = append(errs, FieldError{Index: index, Field: field, Reason: "required field empty"})
			return ""
		}
		return strings.TrimSpace(s)
	}
	optionalString := func(field string) string {
		val, ok := lookupField(lookup, field)
		if !ok || val == nil {
			return ""
		}
		return strings.TrimSpace(coerceString(val))
	}

	rec := domain.IncidentRecord{
		ID:          requireString("id"),
		Title:       requireString("title"),
		Description: optionalString("description"),
		Department:  optionalString("department"),
		Category:    optionalString("category"),
	}
	rec.Status = domain.NormalizeStatus(requireString("status"))
	rec.Priority = domain.NormalizePriority(requireString("priority"))

	if val, ok := lookupField(lookup, "created_at"); !ok || val == nil {
		errs = append(errs, FieldError{Index: index, Field: "created_at", Reason: "required field missing"})
	} else if ts, err := parseTimestamp(val); err != nil {
		errs = append(errs, FieldError{Index: index, Field: "created_at", Value: coerceString(val), Reason: "unparseable timestamp"})
	} else {
		rec.CreatedAt = ts
	}

	if val, ok := lookupField(lookup, "resolved_at"); ok && val != nil && coerceString(val) != "" {
		ts, err := parseTimestamp(val)
		if err != nil {
			errs = append(errs, FieldError{Index: index, Field: "resolved_at", Value: coerceString(val), Reason: "unparseable timestamp"})
		} else if !rec.CreatedAt.IsZero() && ts.Before(rec.CreatedAt) {
			// Never silently swapped or clamped.
			errs = append(errs, FieldError{Index: index, Field: "resolved_at", Value: coerceString(val), Reason: "resolved_at precedes created_at"})
		} else {
			rec.ResolvedAt = &ts
		}
	}

	return rec, errs
}

func normalizeKeys(raw RawRecord) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}

func lookupField(lookup map[string]any, field string) (any, bool) {
	for _, alias := range fieldAliases[field] {
		if val, ok := lookup[alias]; ok {
			return val, true
		}
	}
	return nil, false
}

func coerceString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	case float64:
		// JSON numbers decode as float64; integral values render without
		// a trailing fraction.
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func parseTimestamp(val any) (time.Time, error) {
	if ts, ok := val.(time.Time); ok {
		return ts, nil
	}
	s := strings.TrimSpace(coerceString(val))
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

func countIndexes(errs []FieldError) int {
	seen := map[int]struct{}{}
	for _, e := range errs {
		seen[e.Index] = struct{}{}
	}
	return len(seen)
}
