package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/avvvet/persona-echo/internal/gatewaysvc/models"
	"github.com/redis/go-redis/v9"
)

// KEYS[1] game hash; ARGV field/value pairs.
var insertGameScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV))
return 1
`)

// KEYS[1] game hash; ARGV field/value pairs.
var updateGameScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV))
return 1
`)

func (s *RedisStore) InsertGame(ctx context.Context, game *models.Game) error {
	fields, err := gameFields(game)
	if err != nil {
		return err
	}

	args := make([]interface{}, 0, 2*len(fields))
	for k, v := range fields {
		args = append(args, k, v)
	}

	n, err := insertGameScript.Run(ctx, s.client, []string{gameKey(game.ID)}, args...).Int()
	if err != nil {
		return fmt.Errorf("failed to insert game: %w", err)
	}
	if n == 0 {
		return ErrDuplicate
	}
	return nil
}

func (s *RedisStore) GetGame(ctx context.Context, gameID string) (*models.Game, error) {
	values, err := s.client.HGetAll(ctx, gameKey(gameID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get game by ID: %w", err)
	}
	if len(values) == 0 {
		return nil, ErrNotFound
	}

	return parseGame(values)
}

func (s *RedisStore) UpdateGame(ctx context.Context, gameID string, upd GameUpdate) error {
	args := []interface{}{"updatedAt", formatTime(upd.UpdatedAt)}
	if upd.Phase != nil {
		args = append(args, "phase", string(*upd.Phase))
	}
	if upd.Round != nil {
		args = append(args, "round", strconv.Itoa(*upd.Round))
	}
	if upd.TimeRemaining != nil {
		args = append(args, "timeRemaining", strconv.Itoa(*upd.TimeRemaining))
	}
	if upd.IsActive != nil {
		args = append(args, "isActive", formatBool(*upd.IsActive))
	}
	if upd.MaxPlayers != nil {
		args = append(args, "maxPlayers", strconv.Itoa(*upd.MaxPlayers))
	}

	n, err := updateGameScript.Run(ctx, s.client, []string{gameKey(gameID)}, args...).Int()
	if err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

func gameFields(g *models.Game) (map[string]interface{}, error) {
	settings, err := json.Marshal(g.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal game settings: %w", err)
	}

	return map[string]interface{}{
		"id":             g.ID,
		"hostId":         g.HostID,
		"hostName":       g.HostName,
		"phase":          string(g.Phase),
		"round":          strconv.Itoa(g.Round),
		"maxPlayers":     strconv.Itoa(g.MaxPlayers),
		"currentPlayers": strconv.Itoa(g.CurrentPlayers),
		"timeRemaining":  strconv.Itoa(g.TimeRemaining),
		"isActive":       formatBool(g.IsActive),
		"settings":       string(settings),
		"createdAt":      formatTime(g.CreatedAt),
		"updatedAt":      formatTime(g.UpdatedAt),
	}, nil
}

func parseGame(v map[string]string) (*models.Game, error) {
	g := &models.Game{
		ID:       v["id"],
		HostID:   v["hostId"],
		HostName: v["hostName"],
		Phase:    models.GamePhase(v["phase"]),
		IsActive: v["isActive"] == "true",
	}

	var err error
	ints := []struct {
		field string
		dst   *int
	}{
		{"round", &g.Round},
		{"maxPlayers", &g.MaxPlayers},
		{"currentPlayers", &g.CurrentPlayers},
		{"timeRemaining", &g.TimeRemaining},
	}
	for _, f := range ints {
		if *f.dst, err = parseInt(v[f.field]); err != nil {
			return nil, fmt.Errorf("failed to parse game %s: %w", f.field, err)
		}
	}

	if s := v["settings"]; s != "" {
		if err := json.Unmarshal([]byte(s), &g.Settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal game settings: %w", err)
		}
	}
	if g.CreatedAt, err = parseTime(v["createdAt"]); err != nil {
		return nil, fmt.Errorf("failed to parse game createdAt: %w", err)
	}
	if g.UpdatedAt, err = parseTime(v["updatedAt"]); err != nil {
		return nil, fmt.Errorf("failed to parse game updatedAt: %w", err)
	}

	return g, nil
}
