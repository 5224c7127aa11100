package monitor

import (
	"time"

	"github.com/hamed0406/uptimeworker/internal/domain"
)

type CheckStatus string

const (
	StatusProbed         CheckStatus = "probed"
	StatusSkippedInvalid CheckStatus = "skipped_invalid"
	StatusSkippedStorage CheckStatus = "skipped_storage"
	StatusFailed         CheckStatus = "failed"
)

// CheckReport is what happened to one check during a gather cycle.
type CheckReport struct {
	ID       domain.CheckID  `json:"id"`
	Status   CheckStatus     `json:"status"`
	Outcome  *domain.Outcome `json:"outcome,omitempty"`
	State    domain.State    `json:"state,omitempty"`
	Alert    bool            `json:"alert"`
	AlertErr string          `json:"alert_error,omitempty"`
	LogErr   string          `json:"log_error,omitempty"`
	Err      string          `json:"error,omitempty"`
}

type CycleReport struct {
	ID         string        `json:"id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Err        string        `json:"error,omitempty"`
	Checks     []CheckReport `json:"checks"`
}

// Count returns how many checks ended with status s.
func (r CycleReport) Count(s CheckStatus) int {
	n := 0
	for _, c := range r.Checks {
		if c.Status == s {
			n++
		}
	}
	return n
}

func (r CycleReport) Alerts() int {
	n := 0
	for _, c := range r.Checks {
		if c.Alert {
			n++
		}
	}
	return n
}
