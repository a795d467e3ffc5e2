package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingJob struct {
	ticks atomic.Int32
	err   error
}

func (j *countingJob) Tick(context.Context) error {
	j.ticks.Add(1)
	return j.err
}

func TestRunTicksUntilCanceled(t *testing.T) {
	job := &countingJob{}
	ctx, cancel := context.WithCancel(context.Background())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, "test-job", 10*time.Millisecond, job, logger)
	}()

	assert.Eventually(t, func() bool { return job.ticks.Load() >= 3 },
		time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRunSurvivesTickErrors(t *testing.T) {
	job := &countingJob{err: errors.New("tick failed")}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, "flaky-job", 10*time.Millisecond, job, logger)
	}()

	assert.Eventually(t, func() bool { return job.ticks.Load() >= 2 },
		time.Second, 5*time.Millisecond, "errors must not stop the loop")
	cancel()
	<-done
}
