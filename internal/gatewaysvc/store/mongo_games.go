package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/persona-echo/internal/gatewaysvc/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func (s *MongoStore) InsertGame(ctx context.Context, game *models.Game) error {
	if _, err := s.games.InsertOne(ctx, game); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert game: %w", err)
	}
	return nil
}

func (s *MongoStore) GetGame(ctx context.Context, gameID string) (*models.Game, error) {
	game := &models.Game{}
	err := s.games.FindOne(ctx, bson.M{"_id": gameID}).Decode(game)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get game by ID: %w", err)
	}

	return game, nil
}

func (s *MongoStore) UpdateGame(ctx context.Context, gameID string, upd GameUpdate) error {
	set := bson.M{"updatedAt": upd.UpdatedAt}
	if upd.Phase != nil {
		set["phase"] = *upd.Phase
	}
	if upd.Round != nil {
		set["round"] = *upd.Round
	}
	if upd.TimeRemaining != nil {
		set["timeRemaining"] = *upd.TimeRemaining
	}
	if upd.IsActive != nil {
		set["isActive"] = *upd.IsActive
	}
	if upd.MaxPlayers != nil {
		set["maxPlayers"] = *upd.MaxPlayers
	}

	res, err := s.games.UpdateOne(ctx, bson.M{"_id": gameID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

// incrementPlayers applies a server-side $inc to the player counter.
func (s *MongoStore) incrementPlayers(ctx context.Context, gameID string, delta int, at any) (bool, error) {
	res, err := s.games.UpdateOne(ctx, bson.M{"_id": gameID}, bson.M{
		"$inc": bson.M{"currentPlayers": delta},
		"$set": bson.M{"updatedAt": at},
	})
	if err != nil {
		return false, fmt.Errorf("failed to update player count: %w", err)
	}
	return res.MatchedCount > 0, nil
}
