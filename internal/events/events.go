// Package events carries detection events over kafka. The publisher is fed
// by the detection pipeline; the consumer keeps the app_stats daily rows
// current.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"onion-detect/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	w messageWriter
}

func NewPublisher(broker, topic string) *Publisher {
	return &Publisher{w: kafka.NewWriter(kafka.WriterConfig{
		Brokers:  []string{broker},
		Topic:    topic,
		Balancer: &kafka.Hash{},
	})}
}

func (p *Publisher) PublishDetection(ctx context.Context, ev models.DetectionEvent) error {
	const op = "events.PublishDetection"
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := p.w.WriteMessages(ctx, kafka.Message{Key: []byte(ev.ImageHash), Value: value}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.w.Close()
}

type StatsRefresher interface {
	RefreshDailyStats(ctx context.Context, day time.Time) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	r       messageReader
	stats   StatsRefresher
	backoff time.Duration
}

func NewConsumer(broker, topic, groupID string, stats StatsRefresher) *Consumer {
	return &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers: []string{broker},
			Topic:   topic,
			GroupID: groupID,
		}),
		stats:   stats,
		backoff: time.Second,
	}
}

// Run reads until ctx is cancelled. Read and handling errors are logged and
// the loop carries on.
func (c *Consumer) Run(ctx context.Context) {
	defer c.r.Close()

	for {
		msg, err := c.r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			log.Printf("error reading message: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.backoff):
			}
			continue
		}
		if err := c.Handle(ctx, msg); err != nil {
			log.Printf("error handling detection event: %v", err)
		}
	}
}

func (c *Consumer) Handle(ctx context.Context, msg kafka.Message) error {
	const op = "events.Handle"
	var ev models.DetectionEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = msg.Time
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	if err := c.stats.RefreshDailyStats(ctx, ev.Timestamp); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
