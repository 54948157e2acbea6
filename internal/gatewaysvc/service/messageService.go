package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/avvvet/persona-echo/internal/gatewaysvc/broker"
	"github.com/avvvet/persona-echo/internal/gatewaysvc/models"
	"github.com/avvvet/persona-echo/internal/gatewaysvc/store"
)

func (g *Gateway) SendMessage(ctx context.Context, gameID, playerID, playerName, body string) error {
	return g.appendMessage(ctx, &models.Message{
		GameID:     gameID,
		PlayerID:   playerID,
		PlayerName: playerName,
		Message:    body,
	})
}

func (g *Gateway) SendSystemMessage(ctx context.Context, gameID, body string) error {
	return g.appendMessage(ctx, &models.Message{
		GameID:          gameID,
		PlayerID:        models.SystemSenderID,
		PlayerName:      models.SystemSenderName,
		Message:         body,
		IsSystemMessage: true,
	})
}

func (g *Gateway) appendMessage(ctx context.Context, msg *models.Message) error {
	if strings.TrimSpace(msg.Message) == "" {
		return fmt.Errorf("message cannot be empty: %w", ErrInvalidInput)
	}

	msg.ID = g.ids.NewUUID()
	msg.Timestamp = g.clock.Now()

	if err := g.store.InsertMessage(ctx, msg); err != nil {
		return err
	}

	g.notify(ctx, msg.GameID, broker.KindMessages)
	return nil
}

// GetGameMessages returns the newest limit messages in chronological order.
// A limit of zero or less means the default of 50.
func (g *Gateway) GetGameMessages(ctx context.Context, gameID string, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		limit = defaultMessageLimit
	}

	messages, err := g.store.ListMessages(ctx, gameID, store.Descending, limit)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// SubmitVote records a guess of targetID's persona. The round is always
// voteRound, whatever round the game is in.
func (g *Gateway) SubmitVote(ctx context.Context, gameID, voterID, targetID, guess string) error {
	if voterID == "" || targetID == "" || strings.TrimSpace(guess) == "" {
		return fmt.Errorf("voter, target and guess are required: %w", ErrInvalidInput)
	}

	return g.store.InsertVote(ctx, &models.Vote{
		ID:        g.ids.NewUUID(),
		GameID:    gameID,
		VoterID:   voterID,
		TargetID:  targetID,
		Guess:     guess,
		Round:     voteRound,
		Timestamp: g.clock.Now(),
	})
}

// GetGameVotes lists the game's votes; round <= 0 means every round.
func (g *Gateway) GetGameVotes(ctx context.Context, gameID string, round int) ([]*models.Vote, error) {
	return g.store.ListVotes(ctx, gameID, round)
}
