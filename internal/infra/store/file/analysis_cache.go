package file

import (
	"context"
	"sync"

	"github.com/bryanwahyu/speech-coach/internal/domain/feedback"
)

// AnalysisCache keeps only the latest analysis, overwritten on every save.
type AnalysisCache struct {
	path string
	opts options
	mu   sync.Mutex
}

func NewAnalysisCache(path string, opts ...Option) *AnalysisCache {
	return &AnalysisCache{path: path, opts: buildOptions(opts)}
}

func (c *AnalysisCache) Save(ctx context.Context, a feedback.Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := writeJSON(c.path, a); err != nil {
		return feedback.E(feedback.KindPersistence, "AnalysisCache.Save", "", err)
	}
	return nil
}

// Latest returns nil when nothing has been cached yet.
func (c *AnalysisCache) Latest(ctx context.Context) (*feedback.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var a feedback.Analysis
	found, err := readJSON(c.path, &a)
	if err != nil {
		c.opts.corrupt("AnalysisCache.Latest", c.path, err)
		return nil, nil
	}
	if !found {
		return nil, nil
	}
	return &a, nil
}
