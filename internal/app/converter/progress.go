package converter

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Progress draws batch progress on a terminal. The zero value and a
// Progress built with a nil writer draw nothing.
type Progress struct {
	container *mpb.Progress
}

func NewProgress(w io.Writer) *Progress {
	if w == nil {
		return &Progress{}
	}
	return &Progress{container: mpb.New(
		mpb.WithOutput(w),
		mpb.WithRefreshRate(150*time.Millisecond),
	)}
}

// StageBar counts pipeline stages across a batch of jobs. Its methods are
// safe on a bar from a disabled Progress.
type StageBar struct {
	bar    *mpb.Bar
	failed atomic.Int64
}

// StageBar adds a bar sized for jobs runs of stagesPerJob stages each.
func (p *Progress) StageBar(jobs, stagesPerJob int, label string) *StageBar {
	sb := &StageBar{}
	if p == nil || p.container == nil {
		return sb
	}
	sb.bar = p.container.AddBar(int64(jobs*stagesPerJob),
		mpb.PrependDecorators(
			decor.Name(label, decor.WCSyncSpaceR),
			decor.CountersNoUnit("%d/%d stages", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Any(func(decor.Statistics) string {
				if n := sb.failed.Load(); n > 0 {
					return fmt.Sprintf("%d failed", n)
				}
				return ""
			}, decor.WCSyncSpace),
			decor.OnComplete(decor.Elapsed(decor.ET_STYLE_GO, decor.WCSyncSpace), " done"),
		),
	)
	return sb
}

// StageDone advances the bar by one completed stage.
func (b *StageBar) StageDone() {
	if b.bar != nil {
		b.bar.Increment()
	}
}

// JobEnded accounts for a finished job whose remaining stages will never
// run.
func (b *StageBar) JobEnded(remaining int, failed bool) {
	if failed {
		b.failed.Add(1)
	}
	if b.bar != nil && remaining > 0 {
		b.bar.IncrBy(remaining)
	}
}

// Abort drops the bar, leaving what it showed so far.
func (b *StageBar) Abort() {
	if b.bar != nil {
		b.bar.Abort(false)
	}
}

// Failed returns how many jobs ended in failure.
func (b *StageBar) Failed() int {
	return int(b.failed.Load())
}

// Wait blocks until every bar has completed or been aborted.
func (p *Progress) Wait() {
	if p != nil && p.container != nil {
		p.container.Wait()
	}
}

// Interactive reports whether bars should be drawn: always when forced,
// otherwise only when stderr is a terminal.
func Interactive(forced bool) bool {
	if forced {
		return true
	}
	info, err := os.Stderr.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
