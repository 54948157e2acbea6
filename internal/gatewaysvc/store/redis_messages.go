package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/avvvet/persona-echo/internal/gatewaysvc/models"
	"github.com/redis/go-redis/v9"
)

func (s *RedisStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = s.client.ZAdd(ctx, gameMessagesKey(msg.GameID), redis.Z{
		Score:  score(msg.Timestamp),
		Member: string(b),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	return nil
}

func (s *RedisStore) ListMessages(ctx context.Context, gameID string, order SortOrder, limit int) ([]*models.Message, error) {
	stop := int64(limit - 1)
	if limit <= 0 {
		stop = -1
	}

	var (
		members []string
		err     error
	)
	if order == Descending {
		members, err = s.client.ZRevRange(ctx, gameMessagesKey(gameID), 0, stop).Result()
	} else {
		members, err = s.client.ZRange(ctx, gameMessagesKey(gameID), 0, stop).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := make([]*models.Message, 0, len(members))
	for _, m := range members {
		msg := &models.Message{}
		if err := json.Unmarshal([]byte(m), msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

func (s *RedisStore) InsertVote(ctx context.Context, vote *models.Vote) error {
	b, err := json.Marshal(vote)
	if err != nil {
		return fmt.Errorf("failed to marshal vote: %w", err)
	}

	if err := s.client.RPush(ctx, gameVotesKey(vote.GameID), b).Err(); err != nil {
		return fmt.Errorf("failed to insert vote: %w", err)
	}
	return nil
}

func (s *RedisStore) ListVotes(ctx context.Context, gameID string, round int) ([]*models.Vote, error) {
	items, err := s.client.LRange(ctx, gameVotesKey(gameID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}

	votes := make([]*models.Vote, 0, len(items))
	for _, item := range items {
		v := &models.Vote{}
		if err := json.Unmarshal([]byte(item), v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal vote: %w", err)
		}
		if round > 0 && v.Round != round {
			continue
		}
		votes = append(votes, v)
	}

	return votes, nil
}

func (s *RedisStore) InsertStats(ctx context.Context, stats *models.GameStats) error {
	b, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal game stats: %w", err)
	}

	if err := s.client.RPush(ctx, gameStatsKey(stats.GameID), b).Err(); err != nil {
		return fmt.Errorf("failed to insert game stats: %w", err)
	}
	return nil
}

// ListStats returns the stats snapshots recorded for a game, oldest first.
func (s *RedisStore) ListStats(ctx context.Context, gameID string) ([]*models.GameStats, error) {
	items, err := s.client.LRange(ctx, gameStatsKey(gameID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list game stats: %w", err)
	}

	out := make([]*models.GameStats, 0, len(items))
	for _, item := range items {
		st := &models.GameStats{}
		if err := json.Unmarshal([]byte(item), st); err != nil {
			return nil, fmt.Errorf("failed to unmarshal game stats: %w", err)
		}
		out = append(out, st)
	}
	return out, nil
}
