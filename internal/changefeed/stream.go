package changefeed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// StreamFeed publishes change events onto a Redis Stream. Entries are
// acknowledged per consumer group, so every write is delivered at least once
// to the reconciler and redelivered while unacknowledged.
type StreamFeed struct {
	rdb    *redis.Client
	stream string
}

func NewStreamFeed(rdb *redis.Client, stream string) *StreamFeed {
	return &StreamFeed{rdb: rdb, stream: stream}
}

func (f *StreamFeed) Publish(ctx context.Context, ev Event) error {
	values := map[string]interface{}{
		"entity_type": string(ev.EntityType),
		"entity_id":   ev.EntityID,
		"occurred_at": ev.OccurredAt.Format(time.RFC3339Nano),
	}
	if len(ev.Before) > 0 {
		values["before"] = string(ev.Before)
	}
	if len(ev.After) > 0 {
		values["after"] = string(ev.After)
	}

	if err := f.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: f.stream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}

type ConsumerConfig struct {
	Stream        string
	Group         string
	Consumer      string
	Block         time.Duration
	ClaimMinIdle  time.Duration
	ClaimInterval time.Duration
	MaxDeliveries int
}

// Consumer reads the stream through a consumer group and hands each entry to
// the dispatcher. Successful dispatches are acked; failed ones stay pending
// and are reclaimed by the claim loop until MaxDeliveries, then parked.
type Consumer struct {
	rdb     *redis.Client
	cfg     ConsumerConfig
	handler Handler
}

func NewConsumer(rdb *redis.Client, cfg ConsumerConfig, handler Handler) *Consumer {
	if cfg.Consumer == "" {
		cfg.Consumer = "reconciler-1"
	}
	if cfg.MaxDeliveries <= 0 {
		cfg.MaxDeliveries = 5
	}
	return &Consumer{rdb: rdb, cfg: cfg, handler: handler}
}

// Run blocks until ctx is cancelled. The redelivery claim loop runs
// alongside the main read loop.
func (c *Consumer) Run(ctx context.Context) {
	if err := c.ensureGroup(ctx); err != nil {
		log.Printf("changefeed: failed to create consumer group: %v", err)
		return
	}

	go c.claimLoop(ctx)

	log.Printf("changefeed: consumer %s listening on stream %q", c.cfg.Consumer, c.cfg.Stream)

	for {
		if ctx.Err() != nil {
			return
		}

		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.cfg.Group,
			Consumer: c.cfg.Consumer,
			Streams:  []string{c.cfg.Stream, ">"},
			Count:    16,
			Block:    c.cfg.Block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			log.Printf("changefeed: read error: %v", err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				c.process(ctx, msg)
			}
		}
	}
}

func (c *Consumer) ensureGroup(ctx context.Context) error {
	err := c.rdb.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (c *Consumer) process(ctx context.Context, msg redis.XMessage) {
	ev, err := decodeMessage(msg)
	if err != nil {
		// Malformed entries can never succeed; ack them away.
		log.Printf("changefeed: dropping malformed entry %s: %v", msg.ID, err)
		c.ack(ctx, msg.ID)
		return
	}

	if err := c.handler(ctx, ev); err != nil {
		log.Printf("changefeed: dispatch failed for %s %s (entry %s), leaving pending: %v",
			ev.EntityType, ev.EntityID, msg.ID, err)
		return
	}

	c.ack(ctx, msg.ID)
}

// claimLoop re-reads entries another (or a crashed) consumer left pending.
// Entries that keep failing past MaxDeliveries are parked with a log line so
// a poison message cannot wedge the feed.
func (c *Consumer) claimLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.ClaimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.claimOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) claimOnce(ctx context.Context) {
	msgs, _, err := c.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   c.cfg.Stream,
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		MinIdle:  c.cfg.ClaimMinIdle,
		Start:    "0",
		Count:    16,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			log.Printf("changefeed: autoclaim error: %v", err)
		}
		return
	}

	for _, msg := range msgs {
		if c.deliveries(ctx, msg.ID) > int64(c.cfg.MaxDeliveries) {
			log.Printf("changefeed: parking entry %s after %d deliveries", msg.ID, c.cfg.MaxDeliveries)
			c.ack(ctx, msg.ID)
			continue
		}
		c.process(ctx, msg)
	}
}

func (c *Consumer) deliveries(ctx context.Context, id string) int64 {
	pending, err := c.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.cfg.Stream,
		Group:  c.cfg.Group,
		Start:  id,
		End:    id,
		Count:  1,
	}).Result()
	if err != nil || len(pending) == 0 {
		return 0
	}
	return pending[0].RetryCount
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.rdb.XAck(ctx, c.cfg.Stream, c.cfg.Group, id).Err(); err != nil {
		log.Printf("changefeed: ack failed for %s: %v", id, err)
	}
}

func decodeMessage(msg redis.XMessage) (Event, error) {
	ev := Event{}

	entityType, _ := msg.Values["entity_type"].(string)
	if entityType == "" {
		return ev, fmt.Errorf("missing entity_type")
	}
	ev.EntityType = EntityType(entityType)

	entityID, _ := msg.Values["entity_id"].(string)
	if entityID == "" {
		return ev, fmt.Errorf("missing entity_id")
	}
	ev.EntityID = entityID

	if raw, ok := msg.Values["before"].(string); ok && raw != "" {
		ev.Before = []byte(raw)
	}
	if raw, ok := msg.Values["after"].(string); ok && raw != "" {
		ev.After = []byte(raw)
	}
	if raw, ok := msg.Values["occurred_at"].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			ev.OccurredAt = ts
		}
	}

	return ev, nil
}
