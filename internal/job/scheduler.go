package job

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler runs a fixed list of jobs on a cron schedule. The jobs of one
// tick run one after another, and a tick that fires while the previous one
// is still running is skipped.
type Scheduler struct {
	cron   *cron.Cron
	tick   cron.Job
	logger *slog.Logger
	manual sync.WaitGroup
}

// NewScheduler registers jobs under spec. Standard five-field expressions and
// descriptors such as "@every 1h" are accepted.
func NewScheduler(ctx context.Context, spec string, jobs []Job, logger *slog.Logger) (*Scheduler, error) {
	cl := cronLogger{logger: logger}
	c := cron.New(cron.WithLogger(cl))

	// Recover sits outside the overlap guard so manual runs are covered too.
	tick := cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(func() {
		for _, j := range jobs {
			if ctx.Err() != nil {
				return
			}
			j.Run(ctx)
		}
	}))

	if _, err := c.AddJob(spec, tick); err != nil {
		return nil, err
	}
	return &Scheduler{cron: c, tick: tick, logger: logger}, nil
}

// RunNow triggers a tick outside the schedule, subject to the same
// overlap guard.
func (s *Scheduler) RunNow() {
	s.manual.Add(1)
	go func() {
		defer s.manual.Done()
		s.tick.Run()
	}()
}

// Start begins firing on schedule.
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.logger.Info("scheduler started", "next_run", e.Next)
	}
}

// Stop halts the schedule and waits for a running tick to finish or ctx to
// expire.
func (s *Scheduler) Stop(ctx context.Context) {
	stopped := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-stopped.Done()
		s.manual.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out with a run in progress")
	}
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
