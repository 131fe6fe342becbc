package health

import (
	"context"
	"time"

	"compliance-backend/internal/llm"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Check status values.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusDown     = "down"
	StatusSkipped  = "skipped"
)

// Report is the health payload.
type Report struct {
	OK     bool              `json:"ok"`
	Checks map[string]string `json:"checks"`
}

// Service encapsulates health-related checks.
type Service struct {
	DB      Pinger
	LLM     llm.Client
	Timeout time.Duration
}

// NewService constructs a new health service. db may be nil for file and
// memory stores.
func NewService(db Pinger, client llm.Client) *Service {
	return &Service{DB: db, LLM: client, Timeout: 2 * time.Second}
}

// Status reports database reachability and whether the LLM client has
// credentials. Missing credentials degrade but do not fail the report.
func (s *Service) Status(ctx context.Context) Report {
	r := Report{OK: true, Checks: map[string]string{}}

	if s.DB == nil {
		r.Checks["database"] = StatusSkipped
	} else {
		pingCtx, cancel := context.WithTimeout(ctx, s.timeout())
		err := s.DB.PingContext(pingCtx)
		cancel()
		if err != nil {
			r.OK = false
			r.Checks["database"] = StatusDown
		} else {
			r.Checks["database"] = StatusOK
		}
	}

	switch {
	case s.LLM == nil:
		r.Checks["llm"] = StatusSkipped
	case llm.HasCredentials(s.LLM):
		r.Checks["llm"] = StatusOK
	default:
		r.Checks["llm"] = StatusDegraded
	}
	return r
}

func (s *Service) timeout() time.Duration {
	if s.Timeout <= 0 {
		return 2 * time.Second
	}
	return s.Timeout
}
