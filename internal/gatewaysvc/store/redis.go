package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Key prefixes for Redis
	gameKeyPrefix   = "game:"
	playerKeyPrefix = "player:"
)

// Config holds configuration for the Redis store
type Config struct {
	RedisClient *redis.Client
}

// RedisStore keeps games and players as hashes and ordered collections as
// sorted sets. Multi-key writes run as Lua scripts so each one is atomic.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(cfg *Config) (*RedisStore, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	if err := cfg.RedisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: cfg.RedisClient}, nil
}

func (s *RedisStore) Close(ctx context.Context) error {
	return s.client.Close()
}

func gameKey(gameID string) string {
	return gameKeyPrefix + gameID
}

func gamePlayersKey(gameID string) string {
	return gameKeyPrefix + gameID + ":players"
}

func gamePlayerLookupKey(gameID, playerID string) string {
	return gameKeyPrefix + gameID + ":player:" + playerID
}

func gameMessagesKey(gameID string) string {
	return gameKeyPrefix + gameID + ":messages"
}

func gameVotesKey(gameID string) string {
	return gameKeyPrefix + gameID + ":votes"
}

func gameStatsKey(gameID string) string {
	return gameKeyPrefix + gameID + ":stats"
}

func playerKey(recordID string) string {
	return playerKeyPrefix + recordID
}

// score orders sorted-set members by time; microseconds stay exact in a float64.
func score(t time.Time) float64 {
	return float64(t.UnixMicro())
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, v)
}

func formatBool(b bool) string {
	return strconv.FormatBool(b)
}

func parseInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
