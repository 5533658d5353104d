package feed

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// maxReportedErrors caps Result.Errors; the rest are only counted.
const maxReportedErrors = 20

// Job describes one configured feed.
type Job struct {
	Name       string            `json:"name" mapstructure:"name"`
	Source     string            `json:"source" mapstructure:"source"`
	Config     SourceConfig      `json:"config" mapstructure:"config"`
	Mapping    Mapping           `json:"mapping" mapstructure:"mapping"`
	Transforms []TransformConfig `json:"transforms,omitempty" mapstructure:"transforms"`
	DedupeKey  string            `json:"dedupeKey,omitempty" mapstructure:"dedupe_key"`
}

// Result is the outcome of one import.
type Result struct {
	Feed     string        `json:"feed"`
	Status   string        `json:"status"` // success | partial | error
	RowsRead int           `json:"rowsRead"`
	Dropped  int           `json:"dropped"` // removed by transforms
	Created  int           `json:"created"`
	Updated  int           `json:"updated"`
	Failed   int           `json:"failed"`
	Errors   []string      `json:"errors,omitempty"`
	Duration time.Duration `json:"duration"`
}

func (r *Result) fail(msg string) {
	r.Failed++
	if len(r.Errors) < maxReportedErrors {
		r.Errors = append(r.Errors, msg)
	}
}

// Destination receives mapped items. created reports whether the item
// was new.
type Destination interface {
	ImportItem(ctx context.Context, it Item) (created bool, err error)
}

// Engine runs feed imports into a destination.
type Engine struct {
	Dest Destination
	Log  *zap.Logger
}

// Run reads the feed, applies its transforms and mapping and hands every
// item to the destination. Bad rows are counted and reported in the
// result; only a source failure makes Run return an error.
func (e *Engine) Run(ctx context.Context, job Job) (*Result, error) {
	log := e.Log
	if log == nil {
		log = zap.NewNop()
	}
	start := time.Now()
	res := &Result{Feed: job.Name}
	finish := func(err error) (*Result, error) {
		res.Duration = time.Since(start)
		switch {
		case err != nil:
			res.Status = "error"
			res.Errors = append(res.Errors, err.Error())
		case res.Failed > 0:
			res.Status = "partial"
		default:
			res.Status = "success"
		}
		return res, err
	}

	source, err := GetSource(job.Source)
	if err != nil {
		return finish(err)
	}
	transformers, err := buildTransformers(job.Transforms, job.DedupeKey)
	if err != nil {
		return finish(err)
	}

	recCh, errCh := source.Read(ctx, job.Config)
	for rec := range recCh {
		res.RowsRead++
		rec, keep := ApplyTransformers(rec, transformers)
		if !keep {
			res.Dropped++
			continue
		}
		it, err := job.Mapping.Item(rec)
		if err != nil {
			res.fail(fmt.Sprintf("row %d: %s", res.RowsRead, err))
			continue
		}
		created, err := e.Dest.ImportItem(ctx, it)
		if err != nil {
			log.Debug("feed item rejected", zap.String("feed", job.Name), zap.Int("row", res.RowsRead), zap.Error(err))
			res.fail(fmt.Sprintf("row %d: %s", res.RowsRead, err))
			continue
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}
	if err := <-errCh; err != nil {
		return finish(fmt.Errorf("read feed %s: %w", job.Name, err))
	}
	if err := ctx.Err(); err != nil {
		return finish(err)
	}
	return finish(nil)
}
