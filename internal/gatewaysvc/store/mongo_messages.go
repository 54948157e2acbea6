package store

import (
	"context"
	"fmt"

	"github.com/avvvet/persona-echo/internal/gatewaysvc/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *MongoStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	if _, err := s.messages.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *MongoStore) ListMessages(ctx context.Context, gameID string, order SortOrder, limit int) ([]*models.Message, error) {
	dir := 1
	if order == Descending {
		dir = -1
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: dir}, {Key: "_id", Value: dir}}).
		SetLimit(int64(limit))

	cur, err := s.messages.Find(ctx, bson.M{"gameId": gameID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := []*models.Message{}
	if err := cur.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}

	return messages, nil
}

func (s *MongoStore) InsertVote(ctx context.Context, vote *models.Vote) error {
	if _, err := s.votes.InsertOne(ctx, vote); err != nil {
		return fmt.Errorf("failed to insert vote: %w", err)
	}
	return nil
}

func (s *MongoStore) ListVotes(ctx context.Context, gameID string, round int) ([]*models.Vote, error) {
	filter := bson.M{"gameId": gameID}
	if round > 0 {
		filter["round"] = round
	}

	cur, err := s.votes.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}

	votes := []*models.Vote{}
	if err := cur.All(ctx, &votes); err != nil {
		return nil, fmt.Errorf("failed to decode votes: %w", err)
	}

	return votes, nil
}

func (s *MongoStore) InsertStats(ctx context.Context, stats *models.GameStats) error {
	if _, err := s.stats.InsertOne(ctx, stats); err != nil {
		return fmt.Errorf("failed to insert game stats: %w", err)
	}
	return nil
}

func (s *MongoStore) ListStats(ctx context.Context, gameID string) ([]*models.GameStats, error) {
	opts := options.Find().SetSort(bson.D{{Key: "gameEndedAt", Value: 1}})
	cur, err := s.stats.Find(ctx, bson.M{"gameId": gameID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list game stats: %w", err)
	}

	out := []*models.GameStats{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode game stats: %w", err)
	}
	return out, nil
}
