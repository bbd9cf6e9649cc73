package scheduler

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type countingRunner struct {
	calls atomic.Int32
	block bool
	err   error
}

func (r *countingRunner) RunCycle(ctx context.Context) error {
	r.calls.Add(1)
	if r.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return r.err
}

func waitFor(t *testing.T, cond func() bool, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

// TestPollScheduler_RunsImmediately verifies the first cycle starts without waiting for the interval.
func TestPollScheduler_RunsImmediately(t *testing.T) {
	runner := &countingRunner{}
	s := NewPollScheduler(runner, time.Hour, testLogger())
	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, func() bool { return runner.calls.Load() == 1 }, time.Second)
}

// TestPollScheduler_RepeatsOnInterval verifies cycles keep running, including after failures.
func TestPollScheduler_RepeatsOnInterval(t *testing.T) {
	runner := &countingRunner{err: errors.New("homework API returned status 500")}
	s := NewPollScheduler(runner, time.Second, testLogger())
	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, func() bool { return runner.calls.Load() >= 2 }, 3*time.Second)
}

// TestPollScheduler_StopCancelsRunningCycle verifies Stop does not hang on an in-flight cycle.
func TestPollScheduler_StopCancelsRunningCycle(t *testing.T) {
	runner := &countingRunner{block: true}
	s := NewPollScheduler(runner, time.Hour, testLogger())
	s.Start(context.Background())

	waitFor(t, func() bool { return runner.calls.Load() == 1 }, time.Second)

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return while a cycle was running")
	}
}

// TestPollScheduler_SkipsOverlappingCycles verifies a long cycle is not run twice concurrently.
func TestPollScheduler_SkipsOverlappingCycles(t *testing.T) {
	runner := &countingRunner{block: true}
	s := NewPollScheduler(runner, time.Second, testLogger())
	s.Start(context.Background())

	time.Sleep(2500 * time.Millisecond)
	if got := runner.calls.Load(); got != 1 {
		t.Errorf("expected the blocked cycle to suppress further runs, got %d calls", got)
	}
	s.Stop()
}

func TestPollScheduler_StopTwiceAndBeforeStart(t *testing.T) {
	s := NewPollScheduler(&countingRunner{}, time.Minute, testLogger())
	s.Stop() // must not panic

	s.Start(context.Background())
	s.Stop()
	s.Stop()
}

func TestToFields(t *testing.T) {
	fields := toFields([]interface{}{"now", 1, 42, "ignored", "dangling"})
	if len(fields) != 1 || fields["now"] != 1 {
		t.Errorf("fields = %v", fields)
	}
}
