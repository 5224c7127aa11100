package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimeworker/internal/logbook"
	"github.com/hamed0406/uptimeworker/internal/monitor"
)

var (
	ErrBusy    = errors.New("cycle already running")
	ErrStopped = errors.New("scheduler stopped")
)

type Gatherer interface {
	Gather(ctx context.Context) monitor.CycleReport
}

type Rotator interface {
	Rotate(ctx context.Context) logbook.RotationReport
}

// Scheduler drives the gather and rotation cycles on independent timers.
// Each cycle type has its own in-progress guard, so a tick (or trigger) that
// arrives while the previous run of the same cycle is still going is dropped.
// The two cycle types may overlap each other.
type Scheduler struct {
	Logger           *zap.Logger
	Gather           Gatherer
	Rotate           Rotator
	MonitorInterval  time.Duration
	RotationInterval time.Duration

	cron      *cron.Cron
	gathering atomic.Bool
	rotating  atomic.Bool

	life    sync.Mutex
	started bool
	stopped bool
	wg      sync.WaitGroup

	mu           sync.RWMutex
	lastGather   *monitor.CycleReport
	lastRotation *logbook.RotationReport
}

func New(
	logger *zap.Logger,
	g Gatherer,
	r Rotator,
	monitorInterval time.Duration,
	rotationInterval time.Duration,
) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if monitorInterval < 0 {
		monitorInterval = 0
	}
	if rotationInterval < 0 {
		rotationInterval = 0
	}
	return &Scheduler{
		Logger:           logger,
		Gather:           g,
		Rotate:           r,
		MonitorInterval:  monitorInterval,
		RotationInterval: rotationInterval,
		cron: cron.New(
			cron.WithLogger(cronLogger{logger.Sugar()}),
			cron.WithChain(cron.Recover(cronLogger{logger.Sugar()})),
		),
	}
}

// Start runs both cycles once immediately and then on their intervals.
// A zero interval disables the timer for that cycle.
func (s *Scheduler) Start() error {
	s.life.Lock()
	if s.stopped {
		s.life.Unlock()
		return ErrStopped
	}
	if s.started {
		s.life.Unlock()
		return nil
	}
	s.started = true
	s.life.Unlock()

	if s.MonitorInterval > 0 {
		s.cron.Schedule(cron.Every(s.MonitorInterval), cron.FuncJob(s.gatherTick))
	} else {
		s.Logger.Info("gather_timer_disabled")
	}
	if s.RotationInterval > 0 {
		s.cron.Schedule(cron.Every(s.RotationInterval), cron.FuncJob(s.rotateTick))
	} else {
		s.Logger.Info("rotation_timer_disabled")
	}
	s.cron.Start()

	// immediate pass
	_ = s.TriggerGather()
	_ = s.TriggerRotate()

	s.Logger.Info("scheduler_started",
		zap.Duration("monitor_interval", s.MonitorInterval),
		zap.Duration("rotation_interval", s.RotationInterval),
	)
	return nil
}

// Stop cancels both timers and waits for in-flight cycles to finish, or for
// ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.life.Lock()
	if s.stopped {
		s.life.Unlock()
		return nil
	}
	s.stopped = true
	s.life.Unlock()

	done := make(chan struct{})
	go func() {
		<-s.cron.Stop().Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.Logger.Info("scheduler_stopped")
		return nil
	case <-ctx.Done():
		s.Logger.Warn("scheduler_stop_timeout", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}

// TriggerGather starts a gather cycle in the background unless one is running.
func (s *Scheduler) TriggerGather() error {
	return s.trigger(&s.gathering, "gather", s.runGather)
}

// TriggerRotate starts a rotation cycle in the background unless one is running.
func (s *Scheduler) TriggerRotate() error {
	return s.trigger(&s.rotating, "rotation", s.runRotate)
}

func (s *Scheduler) trigger(guard *atomic.Bool, name string, run func()) error {
	s.life.Lock()
	defer s.life.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if !guard.CompareAndSwap(false, true) {
		s.Logger.Info(name+"_cycle_skipped", zap.String("reason", "in_progress"))
		return ErrBusy
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer guard.Store(false)
		run()
	}()
	return nil
}

func (s *Scheduler) gatherTick() {
	if !s.gathering.CompareAndSwap(false, true) {
		s.Logger.Info("gather_cycle_skipped", zap.String("reason", "in_progress"))
		return
	}
	defer s.gathering.Store(false)
	s.runGather()
}

func (s *Scheduler) rotateTick() {
	if !s.rotating.CompareAndSwap(false, true) {
		s.Logger.Info("rotation_cycle_skipped", zap.String("reason", "in_progress"))
		return
	}
	defer s.rotating.Store(false)
	s.runRotate()
}

// Cycles run on a context that Stop never cancels, so a cycle is not cut
// off mid-write. Probes are bounded by their own timeouts.
func (s *Scheduler) runGather() {
	rep := s.Gather.Gather(context.Background())
	s.mu.Lock()
	s.lastGather = &rep
	s.mu.Unlock()
}

func (s *Scheduler) runRotate() {
	rep := s.Rotate.Rotate(context.Background())
	if rep.Err != nil {
		s.Logger.Warn("rotation_cycle_errors", zap.Error(rep.Err))
	}
	s.mu.Lock()
	s.lastRotation = &rep
	s.mu.Unlock()
}

func (s *Scheduler) LastGather() (monitor.CycleReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastGather == nil {
		return monitor.CycleReport{}, false
	}
	return *s.lastGather, true
}

func (s *Scheduler) LastRotation() (logbook.RotationReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastRotation == nil {
		return logbook.RotationReport{}, false
	}
	return *s.lastRotation, true
}

func (s *Scheduler) Running() (gather, rotate bool) {
	return s.gathering.Load(), s.rotating.Load()
}

// cronLogger routes cron's own logging into zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw("cron_"+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw("cron_"+msg, append(keysAndValues, "error", err)...)
}
