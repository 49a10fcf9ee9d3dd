// Package stages holds the pipeline steps. Each stage reads the artifacts of
// the stages before it from the job folder and writes its own.
package stages

import (
	"context"
	"fmt"
	"os"

	apperrors "smart-audio/internal/app/errors"
	"smart-audio/internal/app/model"
	"smart-audio/internal/app/util/files"
)

// Result is the outcome of one stage run
type Result struct {
	Artifacts []string
	// Status overrides the stage's done status when set
	Status model.JobStatus
	Err    error
}

// Fail wraps err into a failed result
func Fail(err error) Result {
	return Result{Err: err}
}

// Stage is one pipeline step
type Stage interface {
	Name() model.Stage

	// Check verifies that the upstream artifacts exist. It is cheap and
	// runs synchronously before the job is marked in progress.
	Check(rec model.JobRecord) error

	Run(ctx context.Context, rec model.JobRecord) Result
}

// Registry looks stages up by name
type Registry struct {
	stages map[model.Stage]Stage
}

// NewRegistry indexes stages by name
func NewRegistry(stages ...Stage) *Registry {
	r := &Registry{stages: make(map[model.Stage]Stage, len(stages))}
	for _, s := range stages {
		r.stages[s.Name()] = s
	}
	return r
}

// Get returns the stage registered under name
func (r *Registry) Get(name model.Stage) (Stage, bool) {
	s, ok := r.stages[name]
	return s, ok
}

// Ordered returns the registered stages in pipeline order
func (r *Registry) Ordered() []Stage {
	out := make([]Stage, 0, len(r.stages))
	for _, name := range model.PipelineOrder {
		if s, ok := r.stages[name]; ok {
			out = append(out, s)
		}
	}
	return out
}

func requireFiles(stage model.Stage, paths ...string) error {
	for _, p := range paths {
		if !files.Exists(p) {
			return apperrors.MissingInput(string(stage), p)
		}
	}
	return nil
}

// clearDownstream removes whatever later stages derived from the previous
// outputs of stage
func clearDownstream(layout Layout, id string, stage model.Stage) error {
	for _, p := range layout.Downstream(id, stage) {
		if err := os.RemoveAll(p); err != nil {
			return fmt.Errorf("remove stale %s: %w", p, err)
		}
	}
	return nil
}
