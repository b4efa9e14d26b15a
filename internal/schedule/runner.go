// Package schedule runs the daily job in-process on its cron schedule and
// applies the same hold/release policy the batch scheduler would: a
// failed run holds the job, and a held job is released and re-run once
// the release delay has passed.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/mesh-intelligence/storagereport/internal/jobspec"
	"github.com/mesh-intelligence/storagereport/internal/logging"
	"github.com/mesh-intelligence/storagereport/internal/metrics"
)

// State of the scheduled job.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateHeld
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateHeld:
		return "held"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Task is one execution of the job. runID identifies the execution.
type Task func(ctx context.Context, runID string) error

// ErrPanic wraps a panic raised by a task.
var ErrPanic = errors.New("task panicked")

const (
	triggerCron    = "cron"
	triggerManual  = "manual"
	triggerRelease = "release"
)

type (
	// Runner runs one task on a descriptor's schedule with at most one
	// execution in flight.
	Runner struct {
		desc     jobspec.Descriptor
		task     Task
		logger   *zap.Logger
		recorder *metrics.Recorder
		textfile string

		sem    *semaphore.Weighted
		ctx    context.Context
		cancel context.CancelFunc

		mu      sync.Mutex
		wg      sync.WaitGroup
		state   State
		release *time.Timer
		cron    *cron.Cron
		stopped bool
	}

	// Option configures a Runner.
	Option func(*Runner)
)

var _ cron.Job = (*Runner)(nil)

// WithRecorder counts runs by result and exposes the held state.
func WithRecorder(rec *metrics.Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithTextfile writes the recorder's series to path after every state
// change. It has no effect without WithRecorder.
func WithTextfile(path string) Option {
	return func(r *Runner) { r.textfile = path }
}

// NewRunner returns an idle runner. Nothing is scheduled until Start.
func NewRunner(desc jobspec.Descriptor, task Task, logger *zap.Logger, opts ...Option) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		desc:   desc,
		task:   task,
		logger: logging.WithPackage(logger),
		sem:    semaphore.NewWeighted(1),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State reports the current state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start schedules the job on the descriptor's cron expression.
func (r *Runner) Start() error {
	sched, err := r.desc.Schedule()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return errors.New("runner already stopped")
	}
	if r.cron != nil {
		return errors.New("runner already started")
	}

	r.cron = cron.New()
	r.cron.Schedule(sched, r)
	r.cron.Start()
	r.logger.Info("starting schedule",
		zap.String("cron", r.desc.CronSpec()),
		zap.Time("next", sched.Next(time.Now())))
	return nil
}

// Stop cancels a running task, drops a pending release and waits for
// in-flight work until ctx is done.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	r.stopped = true
	if r.release != nil {
		r.release.Stop()
		r.release = nil
	}
	c := r.cron
	r.mu.Unlock()

	r.logger.Info("stopping schedule")
	r.cancel()

	done := make(chan struct{})
	go func() {
		if c != nil {
			<-c.Stop().Done()
		}
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("stopped schedule")
		return nil
	case <-ctx.Done():
		r.logger.Error("timed out while stopping schedule")
		return fmt.Errorf("stop schedule: %w", ctx.Err())
	}
}

// Run is the cron entry point. A trigger while the job is running or held
// is skipped.
func (r *Runner) Run() {
	r.trigger(triggerCron)
}

// RunNow runs the job outside the schedule, under the same rules as a
// cron trigger.
func (r *Runner) RunNow() {
	r.trigger(triggerManual)
}

func (r *Runner) trigger(trigger string) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()
	defer r.wg.Done()

	if !r.sem.TryAcquire(1) {
		r.skip(trigger, StateRunning)
		return
	}
	defer r.sem.Release(1)

	r.mu.Lock()
	if r.state == StateHeld {
		r.mu.Unlock()
		r.skip(trigger, StateHeld)
		return
	}
	r.state = StateRunning
	r.mu.Unlock()

	r.execute(trigger)
}

// execute runs the task. The caller holds the semaphore and has moved the
// state to Running.
func (r *Runner) execute(trigger string) {
	runID := newRunID()
	logger := r.logger.With(zap.String("run_id", runID), zap.String("trigger", trigger))
	logger.Info("job started")
	start := time.Now()

	err := r.safeRun(runID)

	r.mu.Lock()
	switch {
	case err == nil:
		r.state = StateIdle
		r.count(metrics.ResultSuccess)
		logger.Info("job finished", zap.Duration("elapsed", time.Since(start)))
	case !r.desc.HoldOnExit || r.stopped:
		r.state = StateIdle
		r.count(metrics.ResultFailure)
		logger.Error("job failed", zap.Error(err))
	default:
		r.state = StateHeld
		r.count(metrics.ResultFailure)
		r.setHeld(1)
		r.release = time.AfterFunc(r.desc.ReleaseAfter, r.releaseHeld)
		logger.Error("job failed; holding",
			zap.Error(err),
			zap.Duration("release_after", r.desc.ReleaseAfter))
	}
	r.mu.Unlock()

	r.writeTextfile()
}

// releaseHeld takes the job out of Held and runs it. The semaphore is
// taken before the state changes, so a cron trigger cannot slip in
// between; one that holds it while the job is Held only skips and lets go.
func (r *Runner) releaseHeld() {
	r.mu.Lock()
	if r.stopped || r.state != StateHeld {
		r.mu.Unlock()
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()
	defer r.wg.Done()

	if err := r.sem.Acquire(r.ctx, 1); err != nil {
		return
	}
	defer r.sem.Release(1)

	r.mu.Lock()
	if r.stopped || r.state != StateHeld {
		r.mu.Unlock()
		return
	}
	r.state = StateRunning
	r.release = nil
	r.setHeld(0)
	r.mu.Unlock()

	r.writeTextfile()
	r.logger.Info("releasing held job")
	r.execute(triggerRelease)
}

func (r *Runner) safeRun(runID string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, p)
		}
	}()
	return r.task(r.ctx, runID)
}

func (r *Runner) skip(trigger string, state State) {
	r.count(metrics.ResultSkipped)
	r.logger.Info("skipped job", zap.String("trigger", trigger), zap.Stringer("state", state))
	r.writeTextfile()
}

func (r *Runner) count(result string) {
	if r.recorder != nil {
		r.recorder.JobRuns.WithLabelValues(result).Inc()
	}
}

func (r *Runner) setHeld(v float64) {
	if r.recorder != nil {
		r.recorder.JobHeld.Set(v)
	}
}

func (r *Runner) writeTextfile() {
	if r.recorder == nil || r.textfile == "" {
		return
	}
	if err := r.recorder.WriteTextfile(r.textfile); err != nil {
		r.logger.Warn("write metrics textfile", zap.Error(err))
	}
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
