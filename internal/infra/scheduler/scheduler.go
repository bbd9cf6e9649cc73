package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CycleRunner is implemented by app.Poller.
type CycleRunner interface {
	RunCycle(ctx context.Context) error
}

// PollScheduler runs one poll cycle immediately and then every interval.
// A cycle that is still running when the next one is due causes that tick to be skipped.
type PollScheduler struct {
	cronEngine *cron.Cron
	runner     CycleRunner
	logger     *logrus.Entry
	interval   time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
	initial sync.WaitGroup
}

func NewPollScheduler(runner CycleRunner, interval time.Duration, logger *logrus.Entry) *PollScheduler {
	return &PollScheduler{
		cronEngine: cron.New(
			cron.WithLocation(time.Local),
			cron.WithLogger(cronLogger{entry: logger}),
		),
		runner:   runner,
		logger:   logger,
		interval: interval,
	}
}

func (s *PollScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	s.logger.WithField("interval", s.interval.String()).Info("Starting poll scheduler...")

	ctx, s.cancel = context.WithCancel(ctx)
	job := cron.NewChain(
		cron.Recover(cronLogger{entry: s.logger}),
		cron.SkipIfStillRunning(cronLogger{entry: s.logger}),
	).Then(cron.FuncJob(func() { s.executeCycle(ctx) }))

	// cron.Every rounds down to whole seconds with a one second minimum.
	s.cronEngine.Schedule(cron.Every(s.interval), job)
	s.cronEngine.Start()

	// The first cycle does not wait for the first tick.
	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		job.Run()
	}()

	s.logger.Info("Poll scheduler started.")
}

func (s *PollScheduler) executeCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := s.runner.RunCycle(ctx); err != nil {
		// RunCycle already logged and reported the failure.
		s.logger.WithError(err).Debug("Poll cycle ended with error")
	}
}

// Stop cancels the running cycle, if any, and waits for it to return. Safe to call more than once.
func (s *PollScheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	s.logger.Info("Stopping poll scheduler...")
	cancel()
	stopCtx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-stopCtx.Done()
	s.initial.Wait()
	s.logger.Info("Poll scheduler gracefully stopped.")
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	entry *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(toFields(keysAndValues)).Debug("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithError(err).WithFields(toFields(keysAndValues)).Error("cron: " + msg)
}

func toFields(keysAndValues []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}
