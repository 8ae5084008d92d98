package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/luoxifan/agentgraph/flow"
	"github.com/luoxifan/agentgraph/types"
)

const defaultKeyPrefix = "agentgraph:"

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	PoolSize  int           `yaml:"pool_size"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// RedisStore persists snapshots in Redis, with a set indexing the known run
// IDs. Suitable for distributed deployments where several processes resume
// each other's runs.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, types.NewError(types.ErrStoreUnavailable, "connect to redis").WithCause(err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, keyPrefix: prefix, ttl: cfg.TTL}, nil
}

// NewRedisStoreWithClient wraps an existing client, e.g. a miniredis-backed
// one in tests.
func NewRedisStoreWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (s *RedisStore) snapKey(runID string) string { return s.keyPrefix + "snapshot:" + runID }
func (s *RedisStore) runsKey() string             { return s.keyPrefix + "runs" }

func (s *RedisStore) Save(ctx context.Context, snap *flow.Snapshot) error {
	if snap == nil || snap.RunID == "" {
		return errInvalidSnapshot()
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.snapKey(snap.RunID), data, s.ttl)
	pipe.SAdd(ctx, s.runsKey(), snap.RunID)
	if _, err := pipe.Exec(ctx); err != nil {
		return types.NewError(types.ErrStoreUnavailable, "save snapshot").WithCause(err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, runID string) (*flow.Snapshot, error) {
	data, err := s.client.Get(ctx, s.snapKey(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errSnapshotNotFound(runID)
	}
	if err != nil {
		return nil, types.NewError(types.ErrStoreUnavailable, "load snapshot").WithCause(err)
	}
	var snap flow.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

func (s *RedisStore) Delete(ctx context.Context, runID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.snapKey(runID))
	pipe.SRem(ctx, s.runsKey(), runID)
	if _, err := pipe.Exec(ctx); err != nil {
		return types.NewError(types.ErrStoreUnavailable, "delete snapshot").WithCause(err)
	}
	return nil
}

func (s *RedisStore) ListRuns(ctx context.Context) ([]string, error) {
	runs, err := s.client.SMembers(ctx, s.runsKey()).Result()
	if err != nil {
		return nil, types.NewError(types.ErrStoreUnavailable, "list runs").WithCause(err)
	}
	return runs, nil
}

// Ping checks store health.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
