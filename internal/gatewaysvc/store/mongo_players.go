package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/persona-echo/internal/gatewaysvc/models"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func playerFilter(gameID, playerID string) bson.M {
	return bson.M{"gameId": gameID, "playerId": playerID}
}

// InsertPlayer bumps the counter first so a missing game is detected before
// anything is written, then inserts the player. A failed insert takes the
// increment back.
func (s *MongoStore) InsertPlayer(ctx context.Context, player *models.Player) error {
	ok, err := s.incrementPlayers(ctx, player.GameID, 1, player.JoinedAt)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}

	if _, err := s.players.InsertOne(ctx, player); err != nil {
		if _, rerr := s.incrementPlayers(ctx, player.GameID, -1, player.JoinedAt); rerr != nil {
			log.Errorf("player count for game %s is off by one: %s", player.GameID, rerr)
		}
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert player: %w", err)
	}

	return nil
}

func (s *MongoStore) UpdatePlayer(ctx context.Context, gameID, playerID string, upd PlayerUpdate) (bool, error) {
	set := bson.M{"updatedAt": upd.UpdatedAt}
	if upd.Persona != nil {
		set["persona"] = upd.Persona
	}
	if upd.IsReady != nil {
		set["isReady"] = *upd.IsReady
	}
	if upd.IsConnected != nil {
		set["isConnected"] = *upd.IsConnected
	}
	if upd.LastSeen != nil {
		set["lastSeen"] = *upd.LastSeen
	}

	err := s.players.FindOneAndUpdate(ctx, playerFilter(gameID, playerID), bson.M{"$set": set}).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("failed to update player: %w", err)
	}

	return true, nil
}

func (s *MongoStore) DeletePlayer(ctx context.Context, gameID, playerID string, at time.Time) (bool, error) {
	res, err := s.players.DeleteOne(ctx, playerFilter(gameID, playerID))
	if err != nil {
		return false, fmt.Errorf("failed to delete player: %w", err)
	}
	if res.DeletedCount == 0 {
		return false, nil
	}

	if _, err := s.incrementPlayers(ctx, gameID, -1, at); err != nil {
		return true, err
	}

	return true, nil
}

func (s *MongoStore) GetPlayer(ctx context.Context, gameID, playerID string) (*models.Player, error) {
	player := &models.Player{}
	err := s.players.FindOne(ctx, playerFilter(gameID, playerID)).Decode(player)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return player, nil
}

func (s *MongoStore) ListPlayers(ctx context.Context, gameID string) ([]*models.Player, error) {
	opts := options.Find().SetSort(bson.D{{Key: "joinedAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.players.Find(ctx, bson.M{"gameId": gameID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}

	players := []*models.Player{}
	if err := cur.All(ctx, &players); err != nil {
		return nil, fmt.Errorf("failed to decode players: %w", err)
	}

	return players, nil
}
