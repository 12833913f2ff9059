package session

import (
	"context"

	"couplesync/internal/store"
)

// priorSession returns the newest session row of this (pairing, game type),
// active or retired, or nil when none exists.
func (c *Controller) priorSession(ctx context.Context) (*store.GameSession, error) {
	row, err := store.QueryOne(ctx, c.store, store.TableSessions, store.Predicate{
		"couple_id": c.info.CoupleId,
		"game_type": c.gameType,
	})
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sess := store.SessionFromRow(row)
	return &sess, nil
}

// nextRoles computes the answerer/guesser assignment for the round being
// created. The duty alternates: whoever answered last round guesses this one.
// With no prior round the caller starts as answerer. Roles are written on the
// session row so both clients observe the same assignment without
// negotiation.
func (c *Controller) nextRoles(prior *store.GameSession) (answererId, guesserId string) {
	if prior != nil && prior.AnswererId == c.info.UserId {
		return c.info.PartnerId, c.info.UserId
	}
	return c.info.UserId, c.info.PartnerId
}
