package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/ivlev/storyvideo/internal/config"
	"github.com/ivlev/storyvideo/internal/system"
)

var ErrNoStories = errors.New("no story files found")

// BatchResult is the outcome of one story in a batch.
type BatchResult struct {
	Story  string
	Result *Result
	Err    error
}

// RunBatch renders every story file in dir into outDir, at most workers at a
// time. Each story gets its own compositor; a failure does not stop the
// others. The returned error joins all failures.
func (r *Renderer) RunBatch(ctx context.Context, dir, outDir string, workers int) ([]BatchResult, error) {
	stories, err := system.ListFiles(dir, system.StoryExts)
	if err != nil {
		return nil, err
	}
	if len(stories) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoStories)
	}
	if workers < 1 {
		workers = 1
	}

	pool, err := ants.NewPool(min(workers, len(stories)))
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	results := make([]BatchResult, len(stories))
	now := time.Now()
	var wg sync.WaitGroup
	for i, path := range stories {
		i, path := i, path
		ext := ".mp4"
		if r.Config.Format == config.FormatFrames {
			ext = ""
		}
		cfg := *r.Config
		cfg.OutputVideo = system.OutputName(outDir, path, ext, now)

		job := &Renderer{Config: &cfg, Explicit: r.Explicit, Probe: r.Probe, Log: r.Log, Out: r.Out, OutputDir: outDir}
		results[i].Story = path

		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				results[i].Err = ctx.Err()
				return
			}
			res, err := job.Render(ctx, path)
			results[i].Result, results[i].Err = res, err
			if err != nil {
				r.Log.Error().Err(err).Str("story", filepath.Base(path)).Msg("render failed")
			}
		})
		if err != nil {
			wg.Done()
			results[i].Err = err
		}
	}
	wg.Wait()

	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(res.Story), res.Err))
		}
	}
	return results, errors.Join(errs...)
}
