// Package signal reads model position rows from the signal store.
// Models append rows over time; the engine consumes the latest row per
// model. The production store is Redis; a mock source covers
// credential-less runs and tests.
package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"maker-systemv1/internal/model"
)

const (
	modelsKey  = "signals:models"
	rowsPrefix = "signals:rows:"
)

// RedisConfig configures the Redis signal source.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisSource reads position rows from per-model sorted sets, scored by
// row timestamp.
type RedisSource struct {
	client *goredis.Client
}

// NewRedisSource creates a Redis signal source and pings the server.
func NewRedisSource(cfg RedisConfig) (*RedisSource, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisSource{client: client}, nil
}

// GetPositions returns every row with timestamp >= minTimestamp across
// all known models, oldest first per model.
func (s *RedisSource) GetPositions(ctx context.Context, minTimestamp time.Time) ([]model.PositionRow, error) {
	models, err := s.client.SMembers(ctx, modelsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers %s: %w", modelsKey, err)
	}

	var rows []model.PositionRow
	for _, m := range models {
		raw, err := s.client.ZRangeByScore(ctx, rowsPrefix+m, &goredis.ZRangeBy{
			Min: strconv.FormatInt(minTimestamp.Unix(), 10),
			Max: "+inf",
		}).Result()
		if err != nil {
			return nil, fmt.Errorf("zrangebyscore %s: %w", rowsPrefix+m, err)
		}
		for _, item := range raw {
			var row model.PositionRow
			if err := json.Unmarshal([]byte(item), &row); err != nil {
				return nil, fmt.Errorf("decode row for model %s: %w", m, err)
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// Publish appends a row to the store. Used by publishers and tests.
func (s *RedisSource) Publish(ctx context.Context, row model.PositionRow) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, modelsKey, row.Model)
	pipe.ZAdd(ctx, rowsPrefix+row.Model, &goredis.Z{
		Score:  float64(row.Timestamp.Unix()),
		Member: string(data),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish row: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (s *RedisSource) Close() error {
	return s.client.Close()
}
