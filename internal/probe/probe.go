package probe

import (
	"context"

	"github.com/hamed0406/uptimeworker/internal/domain"
)

// Prober issues exactly one request for a check and always returns exactly one
// Outcome: either a response code or a NetworkError/TimeoutError, never both.
// The check is assumed to have passed domain.Validate.
type Prober interface {
	Probe(ctx context.Context, c domain.Check) domain.Outcome
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, c domain.Check) domain.Outcome

func (f ProberFunc) Probe(ctx context.Context, c domain.Check) domain.Outcome { return f(ctx, c) }
