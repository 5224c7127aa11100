package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimeworker/internal/domain"
	"github.com/hamed0406/uptimeworker/internal/probe"
	"github.com/hamed0406/uptimeworker/internal/repo"
)

// Alerter delivers a state-change notice for a check. Delivery is best-effort.
type Alerter interface {
	Alert(ctx context.Context, c domain.Check) error
}

// OutcomeLogger records one evaluated outcome for a check.
type OutcomeLogger interface {
	Append(id domain.CheckID, rec domain.LogRecord) error
}

type Engine struct {
	Logger      *zap.Logger
	Checks      repo.CheckStore
	Prober      probe.Prober
	Alerts      Alerter
	Outcomes    OutcomeLogger
	Limits      domain.Limits
	MaxInFlight int // 0 means unbounded
	Now         func() time.Time
}

func NewEngine(
	logger *zap.Logger,
	checks repo.CheckStore,
	prober probe.Prober,
	alerts Alerter,
	outcomes OutcomeLogger,
	limits domain.Limits,
	maxInFlight int,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxInFlight < 0 {
		maxInFlight = 0
	}
	return &Engine{
		Logger:      logger,
		Checks:      checks,
		Prober:      prober,
		Alerts:      alerts,
		Outcomes:    outcomes,
		Limits:      limits,
		MaxInFlight: maxInFlight,
		Now:         time.Now,
	}
}

// Gather runs one pass over every stored check. Each check is handled in its
// own goroutine; a failure on one never affects the others. Gather returns
// once every check has been fully processed.
func (e *Engine) Gather(ctx context.Context) CycleReport {
	rep := CycleReport{ID: uuid.NewString(), StartedAt: e.Now().UTC()}
	log := e.Logger.With(zap.String("cycle_id", rep.ID))

	ids, err := e.Checks.List(ctx)
	if err != nil {
		log.Warn("gather_list_error", zap.Error(err))
		rep.Err = err.Error()
		rep.FinishedAt = e.Now().UTC()
		return rep
	}

	rep.Checks = make([]CheckReport, len(ids))
	var sem chan struct{}
	if e.MaxInFlight > 0 {
		sem = make(chan struct{}, e.MaxInFlight)
	}
	var wg sync.WaitGroup

	for i, id := range ids {
		if sem != nil {
			sem <- struct{}{}
		}
		wg.Add(1)
		go func(i int, id domain.CheckID) {
			defer wg.Done()
			if sem != nil {
				defer func() { <-sem }()
			}
			rep.Checks[i] = e.gatherOne(ctx, log, id)
		}(i, id)
	}
	wg.Wait()

	rep.FinishedAt = e.Now().UTC()
	log.Info("gather_cycle_done",
		zap.Int("checks", len(ids)),
		zap.Int("probed", rep.Count(StatusProbed)),
		zap.Int("skipped_invalid", rep.Count(StatusSkippedInvalid)),
		zap.Int("skipped_storage", rep.Count(StatusSkippedStorage)),
		zap.Int("failed", rep.Count(StatusFailed)),
		zap.Int("alerts", rep.Alerts()),
		zap.Duration("took", rep.FinishedAt.Sub(rep.StartedAt)),
	)
	return rep
}

func (e *Engine) gatherOne(ctx context.Context, log *zap.Logger, id domain.CheckID) (cr CheckReport) {
	cr = CheckReport{ID: id}
	defer func() {
		if p := recover(); p != nil {
			log.Error("gather_check_panic", zap.String("check_id", string(id)), zap.Any("panic", p))
			cr.Status = StatusFailed
			cr.Err = fmt.Sprint(p)
		}
	}()

	c, err := e.Checks.Read(ctx, id)
	if err == nil && c.ID != id {
		// Writing this document back would land on another check's key.
		err = fmt.Errorf("stored under %q but names %q: %w", id, c.ID, repo.ErrCorrupt)
	}
	if err != nil {
		log.Warn("gather_read_error", zap.String("check_id", string(id)), zap.Error(err))
		cr.Status = StatusSkippedStorage
		cr.Err = err.Error()
		return cr
	}
	if err := domain.Validate(c, e.Limits); err != nil {
		log.Warn("gather_invalid_check", zap.String("check_id", string(id)), zap.Error(err))
		cr.Status = StatusSkippedInvalid
		cr.Err = err.Error()
		return cr
	}

	out := e.Prober.Probe(ctx, c)
	state := Evaluate(out, c.SuccessCodes)
	now := e.Now()
	updated, alert := Transition(c, state, now)

	if err := e.Checks.Update(ctx, updated); err != nil {
		log.Warn("gather_update_error", zap.String("check_id", string(id)), zap.Error(err))
		cr.Status = StatusSkippedStorage
		cr.Err = err.Error()
		return cr
	}

	cr.Status = StatusProbed
	cr.Outcome = &out
	cr.State = state
	cr.Alert = alert

	if alert && e.Alerts != nil {
		if err := e.Alerts.Alert(ctx, updated); err != nil {
			log.Warn("gather_alert_error", zap.String("check_id", string(id)), zap.Error(err))
			cr.AlertErr = err.Error()
		}
	}

	if e.Outcomes != nil {
		rec := domain.LogRecord{
			Check:         c,
			Outcome:       out,
			State:         state,
			AlertRequired: alert,
			Time:          now.UTC(),
		}
		if err := e.Outcomes.Append(id, rec); err != nil {
			log.Warn("gather_log_error", zap.String("check_id", string(id)), zap.Error(err))
			cr.LogErr = err.Error()
		}
	}

	log.Debug("gather_checked",
		zap.String("check_id", string(id)),
		zap.String("url", c.Target()),
		zap.Stringer("state", state),
		zap.Bool("alert", alert),
		zap.Float64("latency_ms", out.LatencyMS),
	)
	return cr
}
