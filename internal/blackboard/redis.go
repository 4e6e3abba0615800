package blackboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"go-mas-sim/internal/core"
)

const (
	keyPrefix   = "obs:"
	notifPrefix = "blackboard:update:"
)

// Key returns the hash key an agent's observation is stored under.
func Key(agent string) string { return keyPrefix + agent }

// RedisStore keeps observations in Redis hashes with a version field and
// announces every change on blackboard:update:<agent>. As a kernel
// observer it buffers the observations of one instant and commits them
// in a single transaction.
type RedisStore struct {
	mu      sync.Mutex
	client  *redis.Client
	options *redis.Options
	ttl     time.Duration
	logger  *log.Logger

	at      core.Time
	pending map[string]core.Observation
}

// NewRedisStore returns a store whose keys expire after ttl, or never
// when ttl is 0.
func NewRedisStore(opts *redis.Options, ttl time.Duration, logger *log.Logger) *RedisStore {
	if logger == nil {
		logger = log.Default()
	}
	return &RedisStore{
		client:  redis.NewClient(opts),
		options: opts,
		ttl:     ttl,
		logger:  logger,
		pending: make(map[string]core.Observation),
	}
}

// ensureConnection pings Redis and reconnects if needed.
func (s *RedisStore) ensureConnection(ctx context.Context) {
	if err := s.client.Ping(ctx).Err(); err != nil {
		s.logger.Println("blackboard reconnecting to Redis", err)
		s.client = redis.NewClient(s.options)
	}
}

// Put stores obs under its agent and returns the new version.
func (s *RedisStore) Put(ctx context.Context, obs core.Observation) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureConnection(ctx)

	key := Key(obs.Agent)
	data, err := json.Marshal(obs)
	if err != nil {
		return 0, err
	}
	var ver int64
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.HGet(ctx, key, "version").Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		ver = cur + 1
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "value", data, "version", ver)
			if s.ttl > 0 {
				pipe.Expire(ctx, key, s.ttl)
			}
			return nil
		})
		return err
	}, key)
	if err != nil {
		return 0, fmt.Errorf("put %s: %w", key, err)
	}
	s.notify(ctx, Update{Agent: obs.Agent, Version: ver, Observation: obs})
	return ver, nil
}

func (s *RedisStore) notify(ctx context.Context, upd Update) {
	payload, err := json.Marshal(upd)
	if err != nil {
		s.logger.Println("blackboard notify error", err)
		return
	}
	if err := s.client.Publish(ctx, notifPrefix+upd.Agent, payload).Err(); err != nil {
		s.logger.Println("blackboard notify error", err)
	}
}

// Get returns the latest observation of agent and its version.
func (s *RedisStore) Get(ctx context.Context, agent string) (core.Observation, int64, error) {
	s.ensureConnection(ctx)
	res, err := s.client.HGetAll(ctx, Key(agent)).Result()
	if err != nil {
		return core.Observation{}, 0, err
	}
	return decode(agent, res)
}

func decode(agent string, h map[string]string) (core.Observation, int64, error) {
	var obs core.Observation
	if len(h) == 0 {
		return obs, 0, fmt.Errorf("%s: %w", agent, ErrNotFound)
	}
	if err := json.Unmarshal([]byte(h["value"]), &obs); err != nil {
		return obs, 0, fmt.Errorf("%s: %w", agent, err)
	}
	ver, _ := strconv.ParseInt(h["version"], 10, 64)
	return obs, ver, nil
}

// Txn stores a batch atomically. Each key's version is incremented once.
func (s *RedisStore) Txn(ctx context.Context, batch []core.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txnLocked(ctx, batch)
}

func (s *RedisStore) txnLocked(ctx context.Context, batch []core.Observation) error {
	if len(batch) == 0 {
		return nil
	}
	s.ensureConnection(ctx)
	pipe := s.client.TxPipeline()
	versions := make([]*redis.IntCmd, len(batch))
	for i, obs := range batch {
		data, err := json.Marshal(obs)
		if err != nil {
			return err
		}
		key := Key(obs.Agent)
		versions[i] = pipe.HIncrBy(ctx, key, "version", 1)
		pipe.HSet(ctx, key, "value", data)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("commit %d observations: %w", len(batch), err)
	}
	for i, obs := range batch {
		s.notify(ctx, Update{Agent: obs.Agent, Version: versions[i].Val(), Observation: obs})
	}
	return nil
}

// Snapshot returns the latest observation of every stored agent.
func (s *RedisStore) Snapshot(ctx context.Context) (map[string]core.Observation, error) {
	s.ensureConnection(ctx)
	out := make(map[string]core.Observation)
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		agent := strings.TrimPrefix(iter.Val(), keyPrefix)
		res, err := s.client.HGetAll(ctx, iter.Val()).Result()
		if err != nil {
			return nil, err
		}
		obs, _, err := decode(agent, res)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[agent] = obs
	}
	return out, iter.Err()
}

// Watch subscribes to the updates of agents matching a glob pattern.
func (s *RedisStore) Watch(ctx context.Context, agentPattern string) (<-chan Update, error) {
	s.ensureConnection(ctx)
	pubsub := s.client.PSubscribe(ctx, notifPrefix+agentPattern)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}
	ch := make(chan Update)
	go func() {
		defer close(ch)
		defer pubsub.Close()
		for {
			msg, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, redis.ErrClosed) {
					return
				}
				s.logger.Println("blackboard watch error", err)
				time.Sleep(time.Second)
				continue
			}
			var upd Update
			if err := json.Unmarshal([]byte(msg.Payload), &upd); err != nil {
				s.logger.Println("blackboard decode error", err)
				continue
			}
			select {
			case ch <- upd:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// Delete removes an agent's observation.
func (s *RedisStore) Delete(ctx context.Context, agent string) error {
	s.ensureConnection(ctx)
	return s.client.Del(ctx, Key(agent)).Err()
}

// ObserveOutput ignores records; they go to the event bus.
func (s *RedisStore) ObserveOutput(ctx context.Context, rec core.Record) error { return nil }

// ObserveState buffers obs. An observation of a later instant commits the
// buffered instant first.
func (s *RedisStore) ObserveState(ctx context.Context, obs core.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if len(s.pending) > 0 && obs.Time != s.at {
		err = s.flushLocked(ctx)
	}
	s.at = obs.Time
	s.pending[obs.Agent] = obs
	return err
}

// Flush commits the buffered instant.
func (s *RedisStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

func (s *RedisStore) flushLocked(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	batch := make([]core.Observation, 0, len(s.pending))
	for _, obs := range s.pending {
		batch = append(batch, obs)
	}
	s.pending = make(map[string]core.Observation)
	return s.txnLocked(ctx, batch)
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
