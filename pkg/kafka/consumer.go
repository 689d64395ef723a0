package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"time"

	applogger "QuoteCache/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// Handler processes one message. A returned error is retried with backoff.
type Handler = func(ctx context.Context, msg kafka.Message) error

// Consumer reads one topic as part of a consumer group.
type Consumer struct {
	cfg    *ConsumerConfig
	reader *kafka.Reader
	log    *applogger.Logger
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:    "default",
		RetryMax:   3,
		BackoffMin: 50 * time.Millisecond,
		BackoffMax: 2 * time.Second,
		MinBytes:   1,
		MaxBytes:   1e6,
		Logger:     applogger.Nop(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	start := kafka.FirstOffset
	if cfg.LatestOnly {
		start = kafka.LastOffset
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		StartOffset: start,
	})

	return &Consumer{
		cfg:    cfg,
		reader: reader,
		log:    cfg.Logger.With(applogger.String("topic", cfg.Topic), applogger.String("group", cfg.GroupID)),
	}, nil
}

// Run feeds messages to h until ctx is done. Offsets are committed after
// handling, including when every retry failed, so a bad message cannot stall
// the group.
func (c *Consumer) Run(ctx context.Context, h Handler) error {
	c.log.Info("kafka consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				c.log.Info("kafka consumer stopped")
				return nil
			}
			c.log.Warn("kafka fetch failed", applogger.Error(err))
			if !sleepCtx(ctx, c.cfg.BackoffMax) {
				return nil
			}
			continue
		}

		if err := c.handle(ctx, h, msg); err != nil {
			c.log.Error("kafka message dropped",
				applogger.Int("partition", msg.Partition),
				applogger.Int64("offset", msg.Offset),
				applogger.Error(err),
			)
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.log.Warn("kafka commit failed", applogger.Error(err))
		}
	}
}

func (c *Consumer) handle(ctx context.Context, h Handler, msg kafka.Message) (err error) {
	for attempt := 1; ; attempt++ {
		err = safeHandle(ctx, h, msg)
		if err == nil || attempt > c.cfg.RetryMax {
			return err
		}
		if !sleepCtx(ctx, backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)) {
			return ctx.Err()
		}
	}
}

func safeHandle(ctx context.Context, h Handler, msg kafka.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, msg)
}

// Close closes the reader and leaves the group.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	exp := min * time.Duration(1<<uint(attempt-1))
	if exp > max || exp <= 0 {
		exp = max
	}
	// jitter up to 50%
	jitter := time.Duration(rand.Int63n(int64(exp)/2 + 1))
	return exp - jitter
}
