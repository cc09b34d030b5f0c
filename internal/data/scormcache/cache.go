// Package scormcache keeps live SCORM attempts in Redis so a running session's
// LMSGetValue/Initialize round-trips skip the relational store.
package scormcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
	"github.com/yungbote/trainforge-backend/internal/platform/logger"
)

const (
	defaultPrefix = "scorm"
	defaultTTL    = 30 * time.Minute
	// cache writes are detached from the caller so an aborted request cannot strand a stale copy
	writeTimeout = 2 * time.Second
)

// Store is the persistent attempt store the cache fronts.
type Store interface {
	LoadAttempt(ctx context.Context, learnerID, sceneID uuid.UUID) (*training.ScormAttempt, error)
	SaveAttempt(ctx context.Context, attempt *training.ScormAttempt, progress *training.SceneProgress) error
}

type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// NewClient dials Redis and pings it once.
func NewClient(ctx context.Context, cfg Config) (*goredis.Client, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Cache is a read-through, write-through attempt store. Redis failures never fail a
// call: the cache degrades to the backing store and logs.
type Cache struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	store  Store
	prefix string
	ttl    time.Duration
}

func New(log *logger.Logger, rdb goredis.UniversalClient, store Store, cfg Config) *Cache {
	if log == nil {
		log = logger.NewNop()
	}
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{
		log:    log.With("service", "ScormAttemptCache"),
		rdb:    rdb,
		store:  store,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *Cache) attemptKey(learnerID, sceneID uuid.UUID) string {
	return fmt.Sprintf("%s:attempt:%s:%s", c.prefix, learnerID, sceneID)
}

func (c *Cache) moduleKey(moduleID uuid.UUID) string {
	return fmt.Sprintf("%s:module:%s", c.prefix, moduleID)
}

func (c *Cache) LoadAttempt(ctx context.Context, learnerID, sceneID uuid.UUID) (*training.ScormAttempt, error) {
	key := c.attemptKey(learnerID, sceneID)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var a training.ScormAttempt
		if jerr := json.Unmarshal(raw, &a); jerr == nil {
			return &a, nil
		}
		c.log.Warn("dropping undecodable cached attempt", "key", key)
		_ = c.rdb.Del(ctx, key).Err()
	case !errors.Is(err, goredis.Nil):
		c.log.Warn("attempt cache read failed", "key", key, "error", err)
	}

	a, err := c.store.LoadAttempt(ctx, learnerID, sceneID)
	if err != nil || a == nil {
		return a, err
	}
	_ = c.put(ctx, a)
	return a, nil
}

// SaveAttempt drops the cached copy before writing the store and refreshes it after, so
// a failed refresh leaves a miss rather than an older attempt.
func (c *Cache) SaveAttempt(ctx context.Context, attempt *training.ScormAttempt, progress *training.SceneProgress) error {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	c.Invalidate(wctx, attempt.LearnerID, attempt.SceneID)
	if err := c.store.SaveAttempt(ctx, attempt, progress); err != nil {
		return err
	}
	if err := c.put(wctx, attempt); err != nil {
		c.Invalidate(wctx, attempt.LearnerID, attempt.SceneID)
	}
	return nil
}

func (c *Cache) put(ctx context.Context, a *training.ScormAttempt) error {
	raw, err := json.Marshal(a)
	if err != nil {
		c.log.Warn("attempt cache encode failed", "error", err)
		return err
	}
	key := c.attemptKey(a.LearnerID, a.SceneID)
	_, err = c.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Set(ctx, key, raw, c.ttl)
		if a.ModuleID != uuid.Nil {
			mk := c.moduleKey(a.ModuleID)
			p.SAdd(ctx, mk, key)
			p.Expire(ctx, mk, c.ttl)
		}
		return nil
	})
	if err != nil {
		c.log.Warn("attempt cache write failed", "key", key, "error", err)
	}
	return err
}

// Invalidate drops one cached attempt.
func (c *Cache) Invalidate(ctx context.Context, learnerID, sceneID uuid.UUID) {
	if err := c.rdb.Del(ctx, c.attemptKey(learnerID, sceneID)).Err(); err != nil {
		c.log.Warn("attempt cache invalidate failed", "error", err)
	}
}

// InvalidateModule drops every cached attempt written for moduleID.
func (c *Cache) InvalidateModule(ctx context.Context, moduleID uuid.UUID) {
	mk := c.moduleKey(moduleID)
	keys, err := c.rdb.SMembers(ctx, mk).Result()
	if err != nil {
		c.log.Warn("attempt cache module lookup failed", "module_id", moduleID, "error", err)
		return
	}
	keys = append(keys, mk)
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("attempt cache module invalidate failed", "module_id", moduleID, "error", err)
	}
}
