package schedule

import (
	"fmt"
	"time"
)

// Type discriminates one-time from recurring schedules.
type Type string

const (
	TypeOneTime   Type = "one_time"
	TypeRecurring Type = "recurring"
)

// Schedule is a stored pipeline schedule. Exactly one of RunAt and
// CronExpression is populated, matching Type.
type Schedule struct {
	ID             string `json:"id"`
	Type           Type   `json:"type"`
	RunAt          string `json:"run_at,omitempty"`          // RFC 3339, one_time only
	CronExpression string `json:"cron_expression,omitempty"` // 5-field cron, recurring only
	NextRun        string `json:"next_run,omitempty"`        // RFC 3339, backend-computed
	Active         bool   `json:"active"`
}

// Summary renders the schedule for display: a formatted timestamp for
// one-time schedules, a humanized cron for recurring ones.
func (s Schedule) Summary() string {
	if s.Type == TypeOneTime && s.RunAt != "" {
		if t, err := time.Parse(time.RFC3339, s.RunAt); err == nil {
			return FormatRunAt(t)
		}
		return s.RunAt
	}
	if s.CronExpression != "" {
		return Humanize(s.CronExpression)
	}
	return ""
}

// CreateRequest is the body of POST /pipeline/schedule.
type CreateRequest struct {
	Type  Type   `json:"type"`
	RunAt string `json:"runAt,omitempty"`
	Cron  string `json:"cron,omitempty"`
}

// NewOneTime builds a create request for a single run at t.
func NewOneTime(t time.Time) CreateRequest {
	return CreateRequest{Type: TypeOneTime, RunAt: t.UTC().Format(time.RFC3339)}
}

// NewRecurring builds a create request for a cron expression. The
// expression is passed through verbatim; advanced callers own its
// validity.
func NewRecurring(expr string) CreateRequest {
	return CreateRequest{Type: TypeRecurring, Cron: expr}
}

// Validate enforces the type/payload invariant: one_time carries runAt,
// recurring carries a non-empty cron, never both.
func (r CreateRequest) Validate() error {
	switch r.Type {
	case TypeOneTime:
		if r.RunAt == "" || r.Cron != "" {
			return fmt.Errorf("one_time schedule requires runAt and no cron")
		}
		if _, err := time.Parse(time.RFC3339, r.RunAt); err != nil {
			return fmt.Errorf("invalid runAt: %w", err)
		}
	case TypeRecurring:
		if r.Cron == "" || r.RunAt != "" {
			return fmt.Errorf("recurring schedule requires cron and no runAt")
		}
	default:
		return fmt.Errorf("invalid schedule type %q", r.Type)
	}
	return nil
}
