// Package scheduler runs named jobs on fixed intervals inside the API
// process.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Locker guards a job across instances. A nil Locker runs every tick.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

type Scheduler struct {
	jobs    []Job
	locker  Locker
	timeout time.Duration
	log     *zap.Logger
}

// New builds a scheduler. Each run gets at most timeout; the lock, if any,
// is held for the same span.
func New(jobs []Job, locker Locker, timeout time.Duration, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{jobs: jobs, locker: locker, timeout: timeout, log: log}
}

// Start runs one ticker goroutine per job until ctx is cancelled. The
// returned func blocks until every goroutine has exited.
func (s *Scheduler) Start(ctx context.Context) (wait func()) {
	var wg sync.WaitGroup
	for _, j := range s.jobs {
		if j.Interval <= 0 {
			s.log.Warn("job disabled", zap.String("job", j.Name))
			continue
		}
		wg.Add(1)
		go func(j Job) {
			defer wg.Done()
			s.loop(ctx, j)
		}(j)
	}
	return wg.Wait
}

func (s *Scheduler) loop(ctx context.Context, j Job) {
	t := time.NewTicker(j.Interval)
	defer t.Stop()
	s.log.Info("job scheduled", zap.String("job", j.Name), zap.Duration("interval", j.Interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.RunOnce(ctx, j)
		}
	}
}

// RunOnce executes j a single time under the lock and timeout. It reports
// whether the job ran.
func (s *Scheduler) RunOnce(ctx context.Context, j Job) bool {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if s.locker != nil {
		release, ok, err := s.locker.TryLock(runCtx, j.Name, s.timeout)
		if err != nil {
			s.log.Error("job lock failed", zap.String("job", j.Name), zap.Error(err))
			return false
		}
		if !ok {
			s.log.Debug("job held elsewhere", zap.String("job", j.Name))
			return false
		}
		defer func() {
			if err := release(context.Background()); err != nil {
				s.log.Warn("job unlock failed", zap.String("job", j.Name), zap.Error(err))
			}
		}()
	}

	start := time.Now()
	if err := j.Run(runCtx); err != nil {
		s.log.Error("job failed", zap.String("job", j.Name), zap.Duration("took", time.Since(start)), zap.Error(err))
		return true
	}
	s.log.Debug("job done", zap.String("job", j.Name), zap.Duration("took", time.Since(start)))
	return true
}
