package workers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/matchfit/matchfit/internal/models"
	"github.com/matchfit/matchfit/internal/services"
)

// WarmCachePool consumes warm-cache jobs from a redis stream and runs the
// full matching pipeline for each profile with no consumer attached, so the
// results land in the cache before any interactive request asks for them.
type WarmCachePool struct {
	Redis      *redis.Client
	Overview   services.OverviewService
	Orch       *services.MatchOrchestrator
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

func (p *WarmCachePool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Overview == nil || p.Orch == nil {
		return errors.New("WarmCachePool missing dependency: Redis/Overview/Orch must be set")
	}
	if p.Stream == "" {
		p.Stream = "matching:warm"
	}
	if p.Group == "" {
		p.Group = "warm-cache-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

// Enqueue adds one warm-cache job. Callers treat failures as non-fatal; the
// job only pre-populates the cache.
func (p *WarmCachePool) Enqueue(ctx context.Context, profile models.IntakeProfile) error {
	payload, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	stream := p.Stream
	if stream == "" {
		stream = "matching:warm"
	}
	return p.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{"profile": string(payload)},
	}).Err()
}

func (p *WarmCachePool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    5,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *WarmCachePool) handleMsg(ctx context.Context, msg redis.XMessage) {
	raw, _ := msg.Values["profile"].(string)
	if raw == "" {
		return
	}

	var profile models.IntakeProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		p.Logger.WithError(err).WithField("redis_id", msg.ID).Warn("malformed warm-cache job")
		return
	}

	log := p.Logger.WithField("redis_id", msg.ID)

	res, err := p.Overview.Generate(ctx, profile)
	if err != nil {
		log.WithError(err).Warn("warm-cache overview generation failed")
		return
	}

	start := time.Now()
	if _, err := p.Orch.Run(ctx, res.Overview, services.RunOptions{}, services.NopSink{}); err != nil {
		log.WithError(err).Warn("warm-cache matching run failed")
		return
	}

	log.WithFields(logrus.Fields{
		"overview_cached": res.Cached,
		"elapsed_ms":      time.Since(start).Milliseconds(),
	}).Info("warm-cache job complete")
}
