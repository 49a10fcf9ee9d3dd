// Package pipeline runs stages asynchronously on a bounded worker pool and
// keeps the job status in the record store in step with them.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	apperrors "smart-audio/internal/app/errors"
	"smart-audio/internal/app/metrics"
	"smart-audio/internal/app/model"
	"smart-audio/internal/app/repository"
	"smart-audio/internal/app/stages"
)

// storeTimeout bounds the status writes that follow a run
const storeTimeout = 10 * time.Second

// Options sizes the worker pool
type Options struct {
	PoolSize     int
	QueueSize    int
	StageTimeout time.Duration
	// ResultBuffer is the capacity of the Results channel
	ResultBuffer int
}

// DefaultOptions mirrors the configuration defaults
func DefaultOptions() Options {
	return Options{PoolSize: 4, QueueSize: 64, StageTimeout: 30 * time.Minute, ResultBuffer: 128}
}

// RunResult describes one finished stage run
type RunResult struct {
	JobID     string
	Stage     model.Stage
	Status    model.JobStatus
	Artifacts []string
	Err       error
	Duration  time.Duration
}

// task is an accepted dispatch: one stage, or the whole pipeline
type task struct {
	id     string
	record model.JobRecord
	stages []stages.Stage
	ctx    context.Context
	cancel context.CancelFunc
	unlock func()
}

// Dispatcher accepts stage requests and runs them in the background
type Dispatcher struct {
	store    repository.RecordStore
	registry *stages.Registry
	locker   JobLocker
	logger   *zap.Logger
	opts     Options

	sem     *semaphore.Weighted
	results chan RunResult
	base    context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	pending int
	running map[string]context.CancelFunc
	closed  bool
}

// NewDispatcher creates a dispatcher. A nil locker means process local locks.
func NewDispatcher(store repository.RecordStore, registry *stages.Registry, locker JobLocker, opts Options, logger *zap.Logger) *Dispatcher {
	defaults := DefaultOptions()
	if opts.PoolSize < 1 {
		opts.PoolSize = defaults.PoolSize
	}
	if opts.QueueSize < 0 {
		opts.QueueSize = 0
	}
	if opts.StageTimeout <= 0 {
		opts.StageTimeout = defaults.StageTimeout
	}
	if opts.ResultBuffer < 1 {
		opts.ResultBuffer = defaults.ResultBuffer
	}
	if locker == nil {
		locker = NewMemoryLocker()
	}

	base, stop := context.WithCancel(context.Background())
	return &Dispatcher{
		store:    store,
		registry: registry,
		locker:   locker,
		logger:   logger.Named("dispatcher"),
		opts:     opts,
		sem:      semaphore.NewWeighted(int64(opts.PoolSize)),
		results:  make(chan RunResult, opts.ResultBuffer),
		base:     base,
		stop:     stop,
		running:  make(map[string]context.CancelFunc),
	}
}

// Results publishes every finished stage run. Runs are dropped, with a
// warning, when nobody drains the channel.
func (d *Dispatcher) Results() <-chan RunResult {
	return d.results
}

// Dispatch validates the request, marks the job as running the stage and
// returns the updated record. The stage runs in the background.
func (d *Dispatcher) Dispatch(ctx context.Context, id string, name model.Stage) (model.JobRecord, error) {
	st, ok := d.registry.Get(name)
	if !ok {
		return model.JobRecord{}, apperrors.Newf("unknown stage %q", name)
	}
	return d.submit(ctx, id, []stages.Stage{st})
}

// Process runs every registered stage in pipeline order as one task. The
// task stops at the first failing stage.
func (d *Dispatcher) Process(ctx context.Context, id string) (model.JobRecord, error) {
	ordered := d.registry.Ordered()
	if len(ordered) == 0 {
		return model.JobRecord{}, apperrors.New("no stages registered")
	}
	return d.submit(ctx, id, ordered)
}

func (d *Dispatcher) submit(ctx context.Context, id string, plan []stages.Stage) (model.JobRecord, error) {
	first := plan[0]

	rec, err := d.store.FindByID(ctx, id)
	if err != nil {
		return model.JobRecord{}, err
	}
	if err := first.Check(*rec); err != nil {
		metrics.RecordRejection("missing_input")
		return *rec, err
	}

	unlock, err := d.locker.TryLock(ctx, id)
	if err != nil {
		metrics.RecordRejection("busy")
		return *rec, err
	}

	// The slot is reserved before the status flips, so a rejection leaves
	// the record as it was.
	if err := d.reserve(); err != nil {
		unlock()
		return *rec, err
	}

	updated, err := d.store.Update(ctx, id, func(r *model.JobRecord) error {
		r.Status = first.Name().RunningStatus()
		r.Stage = first.Name()
		r.Cause = ""
		return nil
	})
	if err != nil {
		d.unreserve()
		d.wg.Done()
		unlock()
		return *rec, err
	}

	runCtx, cancel := context.WithCancel(d.base)
	t := &task{id: id, record: updated, stages: plan, ctx: runCtx, cancel: cancel, unlock: unlock}

	d.mu.Lock()
	d.running[id] = cancel
	d.mu.Unlock()

	go d.execute(t)

	d.logger.Info("stage dispatched", zap.String("job", id), zap.String("stage", string(first.Name())), zap.Int("stages", len(plan)))
	return updated, nil
}

// reserve claims a queue slot and registers the task with the wait group
// under the same lock that Close takes, so Close never misses it
func (d *Dispatcher) reserve() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		metrics.RecordRejection("closed")
		return apperrors.Wrap(apperrors.ErrQueueFull, "dispatcher is shutting down")
	}
	if d.pending >= d.opts.PoolSize+d.opts.QueueSize {
		metrics.RecordRejection("queue_full")
		return apperrors.ErrQueueFull
	}
	d.pending++
	d.wg.Add(1)
	metrics.StagesInFlight.Inc()
	return nil
}

func (d *Dispatcher) unreserve() {
	d.mu.Lock()
	d.pending--
	d.mu.Unlock()
	metrics.StagesInFlight.Dec()
}

// Cancel stops the stage running, or queued, for job id
func (d *Dispatcher) Cancel(id string) error {
	d.mu.Lock()
	cancel, ok := d.running[id]
	d.mu.Unlock()

	if !ok {
		return apperrors.Wrapf(apperrors.ErrNotFound, "no stage running for job %s", id)
	}
	cancel()
	return nil
}

// Running reports whether a stage task is active for job id
func (d *Dispatcher) Running(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.running[id]
	return ok
}

func (d *Dispatcher) execute(t *task) {
	defer d.wg.Done()
	defer t.unlock()
	defer d.unreserve()
	defer func() {
		t.cancel()
		d.mu.Lock()
		delete(d.running, t.id)
		d.mu.Unlock()
	}()

	if err := d.sem.Acquire(t.ctx, 1); err != nil {
		d.complete(t.ctx, t.id, t.stages[0], stages.Fail(err), 0)
		return
	}
	defer d.sem.Release(1)

	rec := t.record
	for i, st := range t.stages {
		if i > 0 {
			next, err := d.markRunning(t.id, st.Name())
			if err != nil {
				d.logger.Error("failed to mark stage running", zap.String("job", t.id), zap.Error(err))
				return
			}
			rec = next
			if err := st.Check(rec); err != nil {
				d.complete(t.ctx, t.id, st, stages.Fail(err), 0)
				return
			}
		}

		next, ok := d.runOne(t.ctx, st, rec)
		if !ok {
			return
		}
		rec = next
	}
}

// runOne runs st under its own timeout and records the outcome. It reports
// whether the pipeline may continue.
func (d *Dispatcher) runOne(parent context.Context, st stages.Stage, rec model.JobRecord) (model.JobRecord, bool) {
	ctx, cancel := context.WithTimeout(parent, d.opts.StageTimeout)
	defer cancel()

	start := time.Now()
	res := d.safeRun(ctx, st, rec)
	return d.complete(ctx, rec.ID, st, res, time.Since(start))
}

func (d *Dispatcher) safeRun(ctx context.Context, st stages.Stage, rec model.JobRecord) (res stages.Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("stage panicked", zap.String("job", rec.ID), zap.String("stage", string(st.Name())),
				zap.Any("panic", r), zap.Stack("stack"))
			res = stages.Fail(apperrors.Newf("stage %s panicked: %v", st.Name(), r))
		}
	}()
	return st.Run(ctx, rec)
}

// complete writes the outcome of a run into the record store and publishes it
func (d *Dispatcher) complete(ctx context.Context, id string, st stages.Stage, res stages.Result, elapsed time.Duration) (model.JobRecord, bool) {
	if res.Err != nil && ctx.Err() != nil {
		res.Err = d.interrupted(ctx.Err(), st.Name(), res.Err)
	}

	status := res.Status
	cause := ""
	outcome := "success"
	if res.Err != nil {
		status = model.StatusFailed
		cause = apperrors.Cause(res.Err)
		outcome = outcomeOf(res.Err)
	} else if status == "" {
		status = st.Name().DoneStatus()
	}

	storeCtx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	rec, err := d.store.Update(storeCtx, id, func(r *model.JobRecord) error {
		r.Status = status
		r.Stage = st.Name()
		r.Cause = cause
		return nil
	})
	if err != nil {
		d.logger.Error("failed to record stage outcome", zap.String("job", id), zap.String("stage", string(st.Name())), zap.Error(err))
	}

	metrics.RecordStageRun(string(st.Name()), outcome, elapsed)
	if res.Err != nil {
		d.logger.Warn("stage failed", zap.String("job", id), zap.String("stage", string(st.Name())),
			zap.Duration("elapsed", elapsed), zap.String("cause", cause))
	} else {
		d.logger.Info("stage finished", zap.String("job", id), zap.String("stage", string(st.Name())),
			zap.Duration("elapsed", elapsed), zap.String("status", string(status)))
	}

	d.publish(RunResult{
		JobID:     id,
		Stage:     st.Name(),
		Status:    status,
		Artifacts: res.Artifacts,
		Err:       res.Err,
		Duration:  elapsed,
	})
	return rec, res.Err == nil && err == nil
}

// interrupted reclassifies a failure caused by the run context ending
func (d *Dispatcher) interrupted(ctxErr error, name model.Stage, cause error) error {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return apperrors.Wrapf(apperrors.ErrTimeout, "stage %s exceeded %s (%v)", name, d.opts.StageTimeout, cause)
	}
	return apperrors.Wrapf(apperrors.ErrCanceled, "stage %s canceled (%v)", name, cause)
}

func outcomeOf(err error) string {
	switch apperrors.KindOf(err) {
	case apperrors.KindTimeout:
		return "timeout"
	case apperrors.KindCanceled:
		return "canceled"
	}
	return "failed"
}

func (d *Dispatcher) markRunning(id string, name model.Stage) (model.JobRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	return d.store.Update(ctx, id, func(r *model.JobRecord) error {
		r.Status = name.RunningStatus()
		r.Stage = name
		r.Cause = ""
		return nil
	})
}

func (d *Dispatcher) publish(r RunResult) {
	select {
	case d.results <- r:
	default:
		d.logger.Warn("result dropped, channel full", zap.String("job", r.JobID), zap.String("stage", string(r.Stage)))
	}
}

// Close stops accepting work, cancels running stages and waits for them to
// record their outcome
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.stop()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher shutdown: %w", ctx.Err())
	}
}
