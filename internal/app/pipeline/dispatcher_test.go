package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "smart-audio/internal/app/errors"
	"smart-audio/internal/app/model"
	"smart-audio/internal/app/repository"
	"smart-audio/internal/app/stages"
	"smart-audio/internal/app/testutil"
)

const jobID = "1b9d6bcd-bbfd-4b2d-9b5d-ab8dfbbd4bed"

// fakeStage is a configurable stages.Stage
type fakeStage struct {
	name  model.Stage
	check error
	run   func(ctx context.Context, rec model.JobRecord) stages.Result
	calls int32
}

func (f *fakeStage) Name() model.Stage { return f.name }

func (f *fakeStage) Check(model.JobRecord) error { return f.check }

func (f *fakeStage) Run(ctx context.Context, rec model.JobRecord) stages.Result {
	atomic.AddInt32(&f.calls, 1)
	if f.run == nil {
		return stages.Result{}
	}
	return f.run(ctx, rec)
}

func succeed(name model.Stage) *fakeStage {
	return &fakeStage{name: name}
}

// blockUntilDone runs until its context ends
func blockUntilDone(ctx context.Context, _ model.JobRecord) stages.Result {
	<-ctx.Done()
	return stages.Fail(ctx.Err())
}

func newDispatcher(t *testing.T, opts Options, ss ...stages.Stage) (*Dispatcher, repository.RecordStore) {
	store := testutil.SetupRecordStore(t, testutil.JSONStore)
	testutil.SeedRecords(t, store, testutil.SampleRecord(jobID))

	d := NewDispatcher(store, stages.NewRegistry(ss...), NewMemoryLocker(), opts, zap.NewNop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = d.Close(ctx)
	})
	return d, store
}

func waitResult(t *testing.T, d *Dispatcher) RunResult {
	t.Helper()
	select {
	case r := <-d.Results():
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a stage result")
		return RunResult{}
	}
}

func status(t *testing.T, store repository.RecordStore, id string) model.JobRecord {
	t.Helper()
	rec, err := store.FindByID(context.Background(), id)
	require.NoError(t, err)
	return *rec
}

func TestDispatchSuccess(t *testing.T) {
	stage := succeed(model.StageDiarization)
	d, store := newDispatcher(t, DefaultOptions(), stage)

	rec, err := d.Dispatch(context.Background(), jobID, model.StageDiarization)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDiarizing, rec.Status)
	assert.Equal(t, model.StageDiarization, rec.Stage)

	res := waitResult(t, d)
	require.NoError(t, res.Err)
	assert.Equal(t, model.StatusDiarized, res.Status)

	final := status(t, store, jobID)
	assert.Equal(t, model.StatusDiarized, final.Status)
	assert.Empty(t, final.Cause)
	assert.False(t, d.Running(jobID))
}

func TestDispatchStatusOverride(t *testing.T) {
	stage := &fakeStage{name: model.StageRecognition, run: func(context.Context, model.JobRecord) stages.Result {
		return stages.Result{Status: model.StatusLanguageIdentified}
	}}
	d, store := newDispatcher(t, DefaultOptions(), stage)

	_, err := d.Dispatch(context.Background(), jobID, model.StageRecognition)
	require.NoError(t, err)
	waitResult(t, d)

	assert.Equal(t, model.StatusLanguageIdentified, status(t, store, jobID).Status)
}

func TestDispatchMissingInputLeavesStatus(t *testing.T) {
	stage := &fakeStage{
		name:  model.StageRecognition,
		check: apperrors.MissingInput(string(model.StageRecognition), "cropped_segments/index.json"),
	}
	d, store := newDispatcher(t, DefaultOptions(), stage)
	before := status(t, store, jobID)

	_, err := d.Dispatch(context.Background(), jobID, model.StageRecognition)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindMissingInputArtifact, apperrors.KindOf(err))

	after := status(t, store, jobID)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.Version, after.Version)
	assert.Zero(t, atomic.LoadInt32(&stage.calls))
}

func TestDispatchUnknownJobAndStage(t *testing.T) {
	d, _ := newDispatcher(t, DefaultOptions(), succeed(model.StageDiarization))

	_, err := d.Dispatch(context.Background(), "nope", model.StageDiarization)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	_, err = d.Dispatch(context.Background(), jobID, model.StageTranslation)
	assert.Error(t, err)
}

func TestDispatchFailureRecordsCause(t *testing.T) {
	tests := []struct {
		name      string
		run       func(context.Context, model.JobRecord) stages.Result
		wantCause string
	}{
		{
			name: "model failure",
			run: func(context.Context, model.JobRecord) stages.Result {
				return stages.Fail(apperrors.ModelFailure("pyannote", errors.New("503 Service Unavailable")))
			},
			wantCause: "ModelInvocationFailure: ",
		},
		{
			name: "panic",
			run: func(context.Context, model.JobRecord) stages.Result {
				panic("index out of range")
			},
			wantCause: "Internal: stage speaker-diarization panicked: index out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, store := newDispatcher(t, DefaultOptions(), &fakeStage{name: model.StageDiarization, run: tt.run})

			_, err := d.Dispatch(context.Background(), jobID, model.StageDiarization)
			require.NoError(t, err)

			res := waitResult(t, d)
			require.Error(t, res.Err)
			assert.Equal(t, model.StatusFailed, res.Status)

			rec := status(t, store, jobID)
			assert.Equal(t, model.StatusFailed, rec.Status)
			assert.Equal(t, model.StageDiarization, rec.Stage)
			assert.Contains(t, rec.Cause, tt.wantCause)
		})
	}
}

func TestDispatchRecoversAfterFailure(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	stage := &fakeStage{name: model.StageDiarization, run: func(context.Context, model.JobRecord) stages.Result {
		if fail.Load() {
			return stages.Fail(errors.New("boom"))
		}
		return stages.Result{}
	}}
	d, store := newDispatcher(t, DefaultOptions(), stage)

	_, err := d.Dispatch(context.Background(), jobID, model.StageDiarization)
	require.NoError(t, err)
	waitResult(t, d)
	assert.Equal(t, model.StatusFailed, status(t, store, jobID).Status)

	fail.Store(false)
	_, err = d.Dispatch(context.Background(), jobID, model.StageDiarization)
	require.NoError(t, err)
	waitResult(t, d)

	rec := status(t, store, jobID)
	assert.Equal(t, model.StatusDiarized, rec.Status)
	assert.Empty(t, rec.Cause)
}

func TestConcurrentDispatchRunsOnce(t *testing.T) {
	release := make(chan struct{})
	stage := &fakeStage{name: model.StageDiarization, run: func(context.Context, model.JobRecord) stages.Result {
		<-release
		return stages.Result{}
	}}
	d, _ := newDispatcher(t, DefaultOptions(), stage)

	const n = 16
	var (
		wg       sync.WaitGroup
		accepted int32
		rejected int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Dispatch(context.Background(), jobID, model.StageDiarization)
			switch {
			case err == nil:
				atomic.AddInt32(&accepted, 1)
			case apperrors.KindOf(err) == apperrors.KindConcurrentModification:
				atomic.AddInt32(&rejected, 1)
			}
		}()
	}
	wg.Wait()
	close(release)
	waitResult(t, d)

	assert.Equal(t, int32(1), accepted)
	assert.Equal(t, int32(n-1), rejected)
	assert.Equal(t, int32(1), atomic.LoadInt32(&stage.calls))
}

func TestDispatchTimeout(t *testing.T) {
	opts := DefaultOptions()
	opts.StageTimeout = 50 * time.Millisecond
	d, store := newDispatcher(t, opts, &fakeStage{name: model.StageTranslation, run: blockUntilDone})

	_, err := d.Dispatch(context.Background(), jobID, model.StageTranslation)
	require.NoError(t, err)

	res := waitResult(t, d)
	assert.Equal(t, apperrors.KindTimeout, apperrors.KindOf(res.Err))

	rec := status(t, store, jobID)
	assert.Equal(t, model.StatusFailed, rec.Status)
	assert.Contains(t, rec.Cause, "Timeout: ")
}

func TestCancel(t *testing.T) {
	started := make(chan struct{})
	stage := &fakeStage{name: model.StageRecognition, run: func(ctx context.Context, rec model.JobRecord) stages.Result {
		close(started)
		return blockUntilDone(ctx, rec)
	}}
	d, store := newDispatcher(t, DefaultOptions(), stage)

	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(d.Cancel(jobID)))

	_, err := d.Dispatch(context.Background(), jobID, model.StageRecognition)
	require.NoError(t, err)
	<-started
	assert.True(t, d.Running(jobID))
	require.NoError(t, d.Cancel(jobID))

	res := waitResult(t, d)
	assert.Equal(t, apperrors.KindCanceled, apperrors.KindOf(res.Err))
	assert.Contains(t, status(t, store, jobID).Cause, "Canceled: ")
}

func TestQueueFull(t *testing.T) {
	const other = "a7f3c1de-0000-4c1b-8e7d-1234567890ab"
	started := make(chan struct{})
	stage := &fakeStage{name: model.StageDiarization, run: func(ctx context.Context, rec model.JobRecord) stages.Result {
		close(started)
		return blockUntilDone(ctx, rec)
	}}
	d, store := newDispatcher(t, Options{PoolSize: 1, QueueSize: 0, StageTimeout: time.Minute}, stage)
	testutil.SeedRecords(t, store, testutil.SampleRecord(other))

	_, err := d.Dispatch(context.Background(), jobID, model.StageDiarization)
	require.NoError(t, err)
	<-started

	_, err = d.Dispatch(context.Background(), other, model.StageDiarization)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindQueueFull, apperrors.KindOf(err))
	assert.Equal(t, model.StatusUploaded, status(t, store, other).Status)

	require.NoError(t, d.Cancel(jobID))
	waitResult(t, d)
}

func TestProcessRunsStagesInOrder(t *testing.T) {
	var (
		mu    sync.Mutex
		order []model.Stage
	)
	record := func(name model.Stage) *fakeStage {
		return &fakeStage{name: name, run: func(_ context.Context, rec model.JobRecord) stages.Result {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			if rec.Status != name.RunningStatus() {
				return stages.Fail(errors.New("stage started without running status"))
			}
			return stages.Result{}
		}}
	}
	var ss []stages.Stage
	for _, name := range model.PipelineOrder {
		ss = append(ss, record(name))
	}
	d, store := newDispatcher(t, DefaultOptions(), ss...)

	rec, err := d.Process(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDiarizing, rec.Status)

	for range model.PipelineOrder {
		require.NoError(t, waitResult(t, d).Err)
	}
	assert.Equal(t, model.PipelineOrder, order)
	assert.Equal(t, model.StatusConverted, status(t, store, jobID).Status)
}

func TestProcessStopsAtFailure(t *testing.T) {
	failing := &fakeStage{name: model.StageRecognition, run: func(context.Context, model.JobRecord) stages.Result {
		return stages.Fail(apperrors.ModelFailure("whisper-1", errors.New("quota exceeded")))
	}}
	last := succeed(model.StageTranslation)
	d, store := newDispatcher(t, DefaultOptions(), succeed(model.StageDiarization), failing, last)

	_, err := d.Process(context.Background(), jobID)
	require.NoError(t, err)

	require.NoError(t, waitResult(t, d).Err)
	require.Error(t, waitResult(t, d).Err)

	rec := status(t, store, jobID)
	assert.Equal(t, model.StatusFailed, rec.Status)
	assert.Equal(t, model.StageRecognition, rec.Stage)
	assert.Zero(t, atomic.LoadInt32(&last.calls))
}

func TestCloseCancelsRunningStages(t *testing.T) {
	started := make(chan struct{})
	stage := &fakeStage{name: model.StageDiarization, run: func(ctx context.Context, rec model.JobRecord) stages.Result {
		close(started)
		return blockUntilDone(ctx, rec)
	}}
	d, store := newDispatcher(t, DefaultOptions(), stage)

	_, err := d.Dispatch(context.Background(), jobID, model.StageDiarization)
	require.NoError(t, err)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))

	assert.Equal(t, model.StatusFailed, status(t, store, jobID).Status)

	_, err = d.Dispatch(context.Background(), jobID, model.StageDiarization)
	assert.Equal(t, apperrors.KindQueueFull, apperrors.KindOf(err))
}

func TestCloseWaitsForAcceptedDispatches(t *testing.T) {
	store := testutil.SetupRecordStore(t, testutil.JSONStore)
	ids := make([]string, 24)
	for i := range ids {
		ids[i] = uuid.NewString()
		testutil.SeedRecords(t, store, testutil.SampleRecord(ids[i]))
	}
	d := NewDispatcher(store, stages.NewRegistry(succeed(model.StageRecognition)), NewMemoryLocker(), DefaultOptions(), zap.NewNop())

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted []string
	)
	start := make(chan struct{})
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			<-start
			if _, err := d.Dispatch(context.Background(), id, model.StageRecognition); err == nil {
				mu.Lock()
				accepted = append(accepted, id)
				mu.Unlock()
			}
		}(id)
	}

	close(start)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	for _, id := range accepted {
		rec := status(t, store, id)
		assert.NotEqual(t, model.StageRecognition.RunningStatus(), rec.Status, "job %s left running after Close", id)
		assert.False(t, d.Running(id))
	}
}
