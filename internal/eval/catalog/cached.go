package catalog

import (
	"context"

	"codeval/internal/eval/model"
	"codeval/pkg/utils/logger"

	"go.uber.org/zap"
)

// SnapshotCache is the subset of the problem cache the catalog needs.
type SnapshotCache interface {
	Get(ctx context.Context, problemID string) (model.Problem, bool, error)
	Put(ctx context.Context, p model.Problem) error
}

// CachedSource decorates a Source with snapshot caching. Cache faults
// degrade to a direct fetch; they never fail an evaluation.
type CachedSource struct {
	src   Source
	cache SnapshotCache
}

func NewCachedSource(src Source, cache SnapshotCache) *CachedSource {
	return &CachedSource{src: src, cache: cache}
}

func (s *CachedSource) Problem(ctx context.Context, problemID string) (model.Problem, error) {
	p, found, err := s.cache.Get(ctx, problemID)
	if err != nil {
		logger.Warn(ctx, "problem snapshot cache read failed",
			zap.String("problem_id", problemID), zap.Error(err))
	} else if found {
		return p, nil
	}

	p, err = s.src.Problem(ctx, problemID)
	if err != nil {
		return model.Problem{}, err
	}
	if err := s.cache.Put(ctx, p); err != nil {
		logger.Warn(ctx, "problem snapshot cache write failed",
			zap.String("problem_id", problemID), zap.Error(err))
	}
	return p, nil
}
