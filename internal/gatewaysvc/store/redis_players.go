package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/avvvet/persona-echo/internal/gatewaysvc/models"
	"github.com/redis/go-redis/v9"
)

// KEYS[1] game hash, KEYS[2] join-ordered player set, KEYS[3] (game, player)
// lookup, KEYS[4] player hash. ARGV[1] record id, ARGV[2] join score,
// ARGV[3] update time, ARGV[4..] player field/value pairs.
var insertPlayerScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
if redis.call('EXISTS', KEYS[3]) == 1 then
  return -1
end
redis.call('HSET', KEYS[4], unpack(ARGV, 4))
redis.call('ZADD', KEYS[2], ARGV[2], ARGV[1])
redis.call('SET', KEYS[3], ARGV[1])
redis.call('HINCRBY', KEYS[1], 'currentPlayers', 1)
redis.call('HSET', KEYS[1], 'updatedAt', ARGV[3])
return 1
`)

// KEYS[1] (game, player) lookup. ARGV[1] player key prefix, ARGV[2..] fields.
var updatePlayerScript = redis.NewScript(`
local id = redis.call('GET', KEYS[1])
if not id then
  return 0
end
redis.call('HSET', ARGV[1] .. id, unpack(ARGV, 2))
return 1
`)

// KEYS[1] (game, player) lookup, KEYS[2] player set, KEYS[3] game hash.
// ARGV[1] player key prefix, ARGV[2] update time.
var deletePlayerScript = redis.NewScript(`
local id = redis.call('GET', KEYS[1])
if not id then
  return 0
end
redis.call('DEL', ARGV[1] .. id)
redis.call('ZREM', KEYS[2], id)
redis.call('DEL', KEYS[1])
if redis.call('EXISTS', KEYS[3]) == 1 then
  redis.call('HINCRBY', KEYS[3], 'currentPlayers', -1)
  redis.call('HSET', KEYS[3], 'updatedAt', ARGV[2])
end
return 1
`)

func (s *RedisStore) InsertPlayer(ctx context.Context, player *models.Player) error {
	fields, err := playerFields(player)
	if err != nil {
		return err
	}

	keys := []string{
		gameKey(player.GameID),
		gamePlayersKey(player.GameID),
		gamePlayerLookupKey(player.GameID, player.PlayerID),
		playerKey(player.ID),
	}
	args := append([]interface{}{player.ID, score(player.JoinedAt), formatTime(player.JoinedAt)}, fields...)

	n, err := insertPlayerScript.Run(ctx, s.client, keys, args...).Int()
	if err != nil {
		return fmt.Errorf("failed to insert player: %w", err)
	}

	switch n {
	case 0:
		return ErrNotFound
	case -1:
		return ErrDuplicate
	}
	return nil
}

func (s *RedisStore) UpdatePlayer(ctx context.Context, gameID, playerID string, upd PlayerUpdate) (bool, error) {
	args := []interface{}{playerKeyPrefix, "updatedAt", formatTime(upd.UpdatedAt)}
	if upd.Persona != nil {
		persona, err := json.Marshal(upd.Persona)
		if err != nil {
			return false, fmt.Errorf("failed to marshal persona: %w", err)
		}
		args = append(args, "persona", string(persona))
	}
	if upd.IsReady != nil {
		args = append(args, "isReady", formatBool(*upd.IsReady))
	}
	if upd.IsConnected != nil {
		args = append(args, "isConnected", formatBool(*upd.IsConnected))
	}
	if upd.LastSeen != nil {
		args = append(args, "lastSeen", formatTime(*upd.LastSeen))
	}

	n, err := updatePlayerScript.Run(ctx, s.client, []string{gamePlayerLookupKey(gameID, playerID)}, args...).Int()
	if err != nil {
		return false, fmt.Errorf("failed to update player: %w", err)
	}

	return n == 1, nil
}

func (s *RedisStore) DeletePlayer(ctx context.Context, gameID, playerID string, at time.Time) (bool, error) {
	keys := []string{
		gamePlayerLookupKey(gameID, playerID),
		gamePlayersKey(gameID),
		gameKey(gameID),
	}

	n, err := deletePlayerScript.Run(ctx, s.client, keys, playerKeyPrefix, formatTime(at)).Int()
	if err != nil {
		return false, fmt.Errorf("failed to delete player: %w", err)
	}

	return n == 1, nil
}

func (s *RedisStore) GetPlayer(ctx context.Context, gameID, playerID string) (*models.Player, error) {
	recordID, err := s.client.Get(ctx, gamePlayerLookupKey(gameID, playerID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	values, err := s.client.HGetAll(ctx, playerKey(recordID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	if len(values) == 0 {
		// removed between the two reads
		return nil, ErrNotFound
	}

	return parsePlayer(values)
}

func (s *RedisStore) ListPlayers(ctx context.Context, gameID string) ([]*models.Player, error) {
	recordIDs, err := s.client.ZRange(ctx, gamePlayersKey(gameID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get player IDs for game: %w", err)
	}

	players := make([]*models.Player, 0, len(recordIDs))
	if len(recordIDs) == 0 {
		return players, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(recordIDs))
	for i, id := range recordIDs {
		cmds[i] = pipe.HGetAll(ctx, playerKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to get players: %w", err)
	}

	for i, cmd := range cmds {
		values := cmd.Val()
		if len(values) == 0 {
			// Player was deleted between reading the set and the hashes
			continue
		}
		p, err := parsePlayer(values)
		if err != nil {
			return nil, fmt.Errorf("failed to parse player %s: %w", recordIDs[i], err)
		}
		players = append(players, p)
	}

	return players, nil
}

func playerFields(p *models.Player) ([]interface{}, error) {
	persona := ""
	if p.Persona != nil {
		b, err := json.Marshal(p.Persona)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal persona: %w", err)
		}
		persona = string(b)
	}

	return []interface{}{
		"id", p.ID,
		"gameId", p.GameID,
		"playerId", p.PlayerID,
		"playerName", p.PlayerName,
		"isReady", formatBool(p.IsReady),
		"isConnected", formatBool(p.IsConnected),
		"score", strconv.Itoa(p.Score),
		"persona", persona,
		"joinedAt", formatTime(p.JoinedAt),
		"lastSeen", formatTime(p.LastSeen),
		"updatedAt", formatTime(p.UpdatedAt),
	}, nil
}

func parsePlayer(v map[string]string) (*models.Player, error) {
	p := &models.Player{
		ID:          v["id"],
		GameID:      v["gameId"],
		PlayerID:    v["playerId"],
		PlayerName:  v["playerName"],
		IsReady:     v["isReady"] == "true",
		IsConnected: v["isConnected"] == "true",
	}

	var err error
	if p.Score, err = parseInt(v["score"]); err != nil {
		return nil, fmt.Errorf("failed to parse player score: %w", err)
	}
	if s := v["persona"]; s != "" {
		p.Persona = &models.Persona{}
		if err := json.Unmarshal([]byte(s), p.Persona); err != nil {
			return nil, fmt.Errorf("failed to unmarshal persona: %w", err)
		}
	}
	if p.JoinedAt, err = parseTime(v["joinedAt"]); err != nil {
		return nil, fmt.Errorf("failed to parse player joinedAt: %w", err)
	}
	if p.LastSeen, err = parseTime(v["lastSeen"]); err != nil {
		return nil, fmt.Errorf("failed to parse player lastSeen: %w", err)
	}
	if p.UpdatedAt, err = parseTime(v["updatedAt"]); err != nil {
		return nil, fmt.Errorf("failed to parse player updatedAt: %w", err)
	}

	return p, nil
}
