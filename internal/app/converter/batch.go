// Package converter runs the whole pipeline over a folder of local audio
// files, the same way the HTTP API would for uploaded ones.
package converter

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"smart-audio/internal/api/v1/dto"
	apperrors "smart-audio/internal/app/errors"
	"smart-audio/internal/app/model"
	"smart-audio/internal/app/pipeline"
	"smart-audio/internal/app/util/files"
)

// Intake stores a local file as a new job
type Intake interface {
	Upload(ctx context.Context, req dto.UploadRequest, filename string, content io.Reader) (*dto.FileResponse, error)
}

// Runner starts the pipeline and reports stage outcomes
type Runner interface {
	Process(ctx context.Context, id string) (model.JobRecord, error)
	Results() <-chan pipeline.RunResult
	Running(id string) bool
}

// StatusReader looks up the stored state of a job
type StatusReader interface {
	FindByID(ctx context.Context, id string) (*model.JobRecord, error)
}

// Outcome is the final state of one file of a batch
type Outcome struct {
	File   string
	JobID  string
	Status model.JobStatus
	Cause  string
}

// Failed reports whether the file did not make it through the pipeline
func (o Outcome) Failed() bool {
	return o.Status != model.StatusConverted
}

// BatchProcessor feeds a folder of files through intake and the pipeline
type BatchProcessor struct {
	intake   Intake
	runner   Runner
	store    StatusReader
	progress *Progress
	logger   *zap.Logger

	// PollInterval is how often outstanding jobs are checked in the store,
	// covering results dropped by a full result channel
	PollInterval time.Duration
}

func NewBatchProcessor(intake Intake, runner Runner, store StatusReader, progress *Progress, logger *zap.Logger) *BatchProcessor {
	return &BatchProcessor{
		intake:       intake,
		runner:       runner,
		store:        store,
		progress:     progress,
		logger:       logger,
		PollInterval: 2 * time.Second,
	}
}

// batch tracks the jobs of one run
type batch struct {
	mu       sync.Mutex
	files    map[string]string // job id -> file name
	outcomes map[string]Outcome
	done     chan string
	freed    chan struct{}
}

func (b *batch) track(id, file string) {
	b.mu.Lock()
	b.files[id] = file
	b.mu.Unlock()
}

func (b *batch) untrack(id string) {
	b.mu.Lock()
	delete(b.files, id)
	b.mu.Unlock()
}

// finish records the outcome once; later reports for the same job are ignored
func (b *batch) finish(id string, status model.JobStatus, cause string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	file, ok := b.files[id]
	if !ok {
		return false
	}
	if _, seen := b.outcomes[id]; seen {
		return false
	}
	b.outcomes[id] = Outcome{File: file, JobID: id, Status: status, Cause: cause}
	return true
}

func (b *batch) outstanding() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var ids []string
	for id := range b.files {
		if _, seen := b.outcomes[id]; !seen {
			ids = append(ids, id)
		}
	}
	return ids
}

// Run uploads up to limit files of dir whose extension is in extensions
// (0 means all), processes each and waits until every job has finished.
// Files that fail intake are reported with an empty JobID; files refused by
// the dispatcher keep theirs.
func (p *BatchProcessor) Run(ctx context.Context, dir string, extensions []string, limit int) ([]Outcome, error) {
	found, err := files.GetAllFiles(dir, extensions...)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	if len(found) == 0 {
		return nil, nil
	}

	stagesPerJob := len(model.PipelineOrder)
	bar := p.progress.StageBar(len(found), stagesPerJob, filepath.Base(dir))
	defer func() {
		if ctx.Err() != nil {
			bar.Abort()
		}
		p.progress.Wait()
	}()

	b := &batch{
		files:    make(map[string]string),
		outcomes: make(map[string]Outcome),
		done:     make(chan string, len(found)),
		freed:    make(chan struct{}, 1),
	}

	collectCtx, stopCollect := context.WithCancel(ctx)
	defer stopCollect()
	go p.collect(collectCtx, b, bar)

	var rejected []Outcome
	submitted := 0
	for _, f := range found {
		id, err := p.submit(ctx, b, f)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.logger.Warn("file not processed", zap.String("file", f.Name), zap.Error(err))
			rejected = append(rejected, Outcome{File: f.Name, JobID: id, Status: model.StatusFailed, Cause: apperrors.Cause(err)})
			bar.JobEnded(stagesPerJob, true)
			continue
		}
		p.logger.Info("file submitted", zap.String("file", f.Name), zap.String("job", id))
		submitted++
	}

	for finished := 0; finished < submitted; finished++ {
		select {
		case <-b.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	b.mu.Lock()
	outcomes := make([]Outcome, 0, len(found))
	for _, o := range b.outcomes {
		outcomes = append(outcomes, o)
	}
	b.mu.Unlock()
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].File < outcomes[j].File })
	return append(outcomes, rejected...), nil
}

// submit uploads one file and starts the pipeline, waiting for a free slot
// while the worker queue is full
func (p *BatchProcessor) submit(ctx context.Context, b *batch, f model.FileInfo) (string, error) {
	content, err := os.Open(f.FullPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", f.FullPath, err)
	}
	resp, err := p.intake.Upload(ctx, dto.UploadRequest{Name: f.Name}, f.Name, content)
	content.Close()
	if err != nil {
		return "", err
	}
	b.track(resp.ID, f.Name)

	for {
		_, err := p.runner.Process(ctx, resp.ID)
		if err == nil {
			return resp.ID, nil
		}
		if apperrors.KindOf(err) != apperrors.KindQueueFull {
			b.untrack(resp.ID)
			return resp.ID, err
		}
		select {
		case <-b.freed:
		case <-time.After(p.PollInterval):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// collect turns stage results into outcomes and progress
func (p *BatchProcessor) collect(ctx context.Context, b *batch, bar *StageBar) {
	ticker := time.NewTicker(p.PollInterval)
	defer ticker.Stop()

	completed := make(map[string]int)
	last := model.PipelineOrder[len(model.PipelineOrder)-1]

	done := func(id string, status model.JobStatus, cause string) {
		if !b.finish(id, status, cause) {
			return
		}
		bar.JobEnded(len(model.PipelineOrder)-completed[id], status == model.StatusFailed)
		b.done <- id
		select {
		case b.freed <- struct{}{}:
		default:
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case res := <-p.runner.Results():
			switch {
			case res.Err != nil:
				done(res.JobID, model.StatusFailed, apperrors.Cause(res.Err))
			case res.Stage == last:
				done(res.JobID, res.Status, "")
			default:
				completed[res.JobID]++
				bar.StageDone()
			}
		case <-ticker.C:
			for _, id := range b.outstanding() {
				if p.runner.Running(id) {
					continue
				}
				rec, err := p.store.FindByID(ctx, id)
				if err != nil {
					continue
				}
				if rec.Status == model.StatusFailed || rec.Status == model.StatusConverted {
					done(id, rec.Status, rec.Cause)
				}
			}
		}
	}
}
