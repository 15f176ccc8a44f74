package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Handler consumes one decoded event. Delivery is at-least-once, so
// handlers must tolerate duplicates.
type Handler func(ctx context.Context, event Event) error

// Subscriber reads a Redis Stream through a consumer group and feeds
// each event to its Handler. Messages whose handler fails are left
// unACKed for redelivery.
type Subscriber struct {
	client  *redis.Client
	cfg     SubscriberConfig
	handler Handler
}

type SubscriberConfig struct {
	Group         string
	Consumer      string
	Stream        string
	BatchSize     int64
	BlockDuration time.Duration
}

func NewSubscriber(client *redis.Client, cfg SubscriberConfig, handler Handler) *Subscriber {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 10
	}
	if cfg.BlockDuration == 0 {
		cfg.BlockDuration = 5 * time.Second
	}
	return &Subscriber{client: client, cfg: cfg, handler: handler}
}

// Start blocks until ctx is cancelled, polling the stream in batches.
func (s *Subscriber) Start(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.cfg.Stream, s.cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	log.Printf("Subscriber started: stream=%s, group=%s, consumer=%s", s.cfg.Stream, s.cfg.Group, s.cfg.Consumer)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Subscriber stopping: %s", s.cfg.Stream)
			return ctx.Err()
		default:
		}
		if err := s.consumeBatch(ctx); err != nil && ctx.Err() == nil {
			log.Printf("Error reading stream %s: %v", s.cfg.Stream, err)
			time.Sleep(time.Second)
		}
	}
}

func (s *Subscriber) consumeBatch(ctx context.Context) error {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.cfg.Group,
		Consumer: s.cfg.Consumer,
		Streams:  []string{s.cfg.Stream, ">"},
		Count:    s.cfg.BatchSize,
		Block:    s.cfg.BlockDuration,
	}).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}

	for _, stream := range streams {
		for _, msg := range stream.Messages {
			if err := s.dispatch(ctx, msg); err != nil {
				log.Printf("Failed to process message %s: %v", msg.ID, err)
				continue
			}
			if err := s.client.XAck(ctx, s.cfg.Stream, s.cfg.Group, msg.ID).Err(); err != nil {
				log.Printf("Failed to ACK message %s: %v", msg.ID, err)
			}
		}
	}
	return nil
}

func (s *Subscriber) dispatch(ctx context.Context, msg redis.XMessage) error {
	raw, ok := msg.Values["event"].(string)
	if !ok {
		return fmt.Errorf("invalid message format")
	}
	var event Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return s.handler(ctx, event)
}
