package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"go-mas-sim/internal/core"
)

// RedisBus publishes records on Redis channels named <topic>:<subject>.
// It is also a kernel observer.
type RedisBus struct {
	mu            sync.Mutex
	client        *redis.Client
	options       *redis.Options
	topic         string
	subscriptions []*redis.PubSub
	logger        *log.Logger
}

// NewRedisBus creates a bus publishing under topic.
func NewRedisBus(opts *redis.Options, topic string, logger *log.Logger) *RedisBus {
	if logger == nil {
		logger = log.Default()
	}
	return &RedisBus{
		client:  redis.NewClient(opts),
		options: opts,
		topic:   topic,
		logger:  logger,
	}
}

// Channel returns the Redis channel records of subject go to.
func (b *RedisBus) Channel(subject string) string {
	if subject == "" {
		subject = "none"
	}
	return b.topic + ":" + subject
}

// ensureConnection pings the server and reconnects if necessary.
func (b *RedisBus) ensureConnection(ctx context.Context) {
	if err := b.client.Ping(ctx).Err(); err != nil {
		b.logger.Println("eventbus reconnecting to Redis", err)
		b.client = redis.NewClient(b.options)
	}
}

// Publish sends rec on its subject channel. A failed publish is retried
// once on a fresh connection.
func (b *RedisBus) Publish(ctx context.Context, rec core.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ch := b.Channel(rec.Subject)
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.client.Publish(ctx, ch, data).Err(); err == nil || ctx.Err() != nil {
		return err
	}
	b.ensureConnection(ctx)
	return b.client.Publish(ctx, ch, data).Err()
}

func (b *RedisBus) ObserveOutput(ctx context.Context, rec core.Record) error {
	return b.Publish(ctx, rec)
}

// ObserveState ignores observations; they go to the blackboard.
func (b *RedisBus) ObserveState(ctx context.Context, obs core.Observation) error { return nil }

func (b *RedisBus) Subscribe(ctx context.Context, subjects ...string) (<-chan core.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ensureConnection(ctx)
	var ps *redis.PubSub
	if len(subjects) == 0 {
		ps = b.client.PSubscribe(ctx, b.Channel("*"))
	} else {
		channels := make([]string, len(subjects))
		for i, s := range subjects {
			channels[i] = b.Channel(s)
		}
		ps = b.client.Subscribe(ctx, channels...)
	}
	// Wait for the confirmation so records published right after
	// Subscribe returns are not missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	b.subscriptions = append(b.subscriptions, ps)
	return b.receive(ctx, ps), nil
}

func (b *RedisBus) receive(ctx context.Context, ps *redis.PubSub) <-chan core.Record {
	ch := make(chan core.Record)
	go func() {
		defer close(ch)
		for {
			msg, err := ps.ReceiveMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, redis.ErrClosed) {
					return
				}
				b.logger.Println("eventbus receive error", err)
				time.Sleep(time.Second)
				continue
			}
			var rec core.Record
			if err := json.Unmarshal([]byte(msg.Payload), &rec); err != nil {
				b.logger.Println("eventbus decode error", err)
				continue
			}
			select {
			case ch <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// Close terminates all subscriptions and closes the client.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ps := range b.subscriptions {
		_ = ps.Close()
	}
	b.subscriptions = nil
	return b.client.Close()
}
