// Package redis keeps the analysis cache in a single Redis key so several
// service replicas can share it.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/bryanwahyu/speech-coach/internal/domain/feedback"
)

type AnalysisCache struct {
	rdb *redis.Client
	key string
	log logrus.FieldLogger
}

// NewClient accepts either host:port or a redis:// URL.
func NewClient(addr string) (*redis.Client, error) {
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opt, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: addr}), nil
}

func NewAnalysisCache(rdb *redis.Client, key string, log logrus.FieldLogger) *AnalysisCache {
	return &AnalysisCache{rdb: rdb, key: key, log: log}
}

func (c *AnalysisCache) Save(ctx context.Context, a feedback.Analysis) error {
	b, err := json.Marshal(a)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, c.key, b, 0).Err(); err != nil {
		return feedback.E(feedback.KindPersistence, "AnalysisCache.Save", "", err)
	}
	return nil
}

func (c *AnalysisCache) Latest(ctx context.Context) (*feedback.Analysis, error) {
	s, err := c.rdb.Get(ctx, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, feedback.E(feedback.KindPersistence, "AnalysisCache.Latest", "", err)
	}
	var a feedback.Analysis
	if err := json.Unmarshal([]byte(s), &a); err != nil {
		// data corrupt: treat as miss
		if c.log != nil {
			c.log.WithError(err).WithField("key", c.key).Warn("cached analysis is unreadable, treating it as empty")
		}
		return nil, nil
	}
	return &a, nil
}

// Ping is used by the readiness check.
func (c *AnalysisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
