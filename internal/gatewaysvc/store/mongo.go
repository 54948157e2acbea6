package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	gamesCollection    = "games"
	playersCollection  = "players"
	messagesCollection = "messages"
	votesCollection    = "votes"
	statsCollection    = "gameStats"
)

type MongoStore struct {
	db       *mongo.Database
	games    *mongo.Collection
	players  *mongo.Collection
	messages *mongo.Collection
	votes    *mongo.Collection
	stats    *mongo.Collection
}

func NewMongoStore(db *mongo.Database) (*MongoStore, error) {
	if db == nil {
		return nil, errors.New("mongo database cannot be nil")
	}

	return &MongoStore{
		db:       db,
		games:    db.Collection(gamesCollection),
		players:  db.Collection(playersCollection),
		messages: db.Collection(messagesCollection),
		votes:    db.Collection(votesCollection),
		stats:    db.Collection(statsCollection),
	}, nil
}

// EnsureIndexes creates the indexes backing the gateway queries. The unique
// (gameId, playerId) index is what makes the composite player filter address
// exactly one document.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.players: {
			{
				Keys:    bson.D{{Key: "gameId", Value: 1}, {Key: "playerId", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "gameId", Value: 1}, {Key: "joinedAt", Value: 1}}},
		},
		s.messages: {
			{Keys: bson.D{{Key: "gameId", Value: 1}, {Key: "timestamp", Value: 1}}},
		},
		s.votes: {
			{Keys: bson.D{{Key: "gameId", Value: 1}, {Key: "round", Value: 1}}},
		},
		s.stats: {
			{Keys: bson.D{{Key: "gameId", Value: 1}}},
		},
	}

	for coll, models := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll.Name(), err)
		}
	}

	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}
