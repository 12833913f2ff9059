package score

import (
	"context"
	"fmt"
	"log"
	"sort"

	"couplesync/internal/identity"
	"couplesync/internal/store"
)

// Outcome is one round's result for one participant.
type Outcome string

const (
	Win  Outcome = "win"
	Loss Outcome = "loss"
	Draw Outcome = "draw"
)

// Points returns the point value of the outcome: win 3, draw 1, loss 0.
func (o Outcome) Points() int {
	switch o {
	case Win:
		return 3
	case Draw:
		return 1
	}
	return 0
}

// Score is one (user, game type) tally enriched with the display name.
type Score struct {
	UserId      string
	DisplayName string
	GameType    string
	Wins        int
	Losses      int
	Draws       int
	TotalPoints int
}

// Ledger accumulates win/loss/draw counters per (pairing, user, game type).
type Ledger struct {
	store store.Store
	log   *log.Logger
	info  identity.CoupleInfo
}

func NewLedger(logger *log.Logger, st store.Store, info identity.CoupleInfo) *Ledger {
	return &Ledger{store: st, log: logger, info: info}
}

// Add records one outcome for the caller. The update is a read-modify-write:
// select the existing record and increment it, or insert a fresh one. Two
// concurrent Adds for the same key can lose an update; callers invoke Add
// once per round, guarded by the controller's scoring token. Without a
// pairing this is a no-op.
func (l *Ledger) Add(ctx context.Context, gameType string, outcome Outcome) error {
	if !l.info.Paired() {
		return nil
	}

	where := store.Predicate{
		"couple_id": l.info.CoupleId,
		"user_id":   l.info.UserId,
		"game_type": gameType,
	}

	row, err := store.QueryOne(ctx, l.store, store.TableScores, where)
	if err != nil && err != store.ErrNotFound {
		return fmt.Errorf("load score: %w", err)
	}

	if err == store.ErrNotFound {
		rec := store.GameScore{
			CoupleId:    l.info.CoupleId,
			UserId:      l.info.UserId,
			GameType:    gameType,
			TotalPoints: outcome.Points(),
		}
		switch outcome {
		case Win:
			rec.Wins = 1
		case Loss:
			rec.Losses = 1
		case Draw:
			rec.Draws = 1
		}
		if _, err := l.store.Insert(ctx, store.TableScores, rec.Row()); err != nil {
			return fmt.Errorf("insert score: %w", err)
		}
		return nil
	}

	rec := store.ScoreFromRow(row)
	patch := store.Row{
		"wins":         rec.Wins,
		"losses":       rec.Losses,
		"draws":        rec.Draws,
		"total_points": rec.TotalPoints + outcome.Points(),
	}
	switch outcome {
	case Win:
		patch["wins"] = rec.Wins + 1
	case Loss:
		patch["losses"] = rec.Losses + 1
	case Draw:
		patch["draws"] = rec.Draws + 1
	}

	if err := l.store.Update(ctx, store.TableScores, store.Predicate{"id": rec.Id}, patch); err != nil {
		return fmt.Errorf("update score: %w", err)
	}

	return nil
}

// Scores returns both members' tallies for one game type.
func (l *Ledger) Scores(ctx context.Context, gameType string) ([]Score, error) {
	if !l.info.Paired() {
		return nil, nil
	}

	rows, err := l.store.Query(ctx, store.TableScores, store.Predicate{
		"couple_id": l.info.CoupleId,
		"game_type": gameType,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}

	names, err := l.displayNames(ctx)
	if err != nil {
		return nil, err
	}

	scores := make([]Score, 0, len(rows))
	for _, row := range rows {
		scores = append(scores, enrich(store.ScoreFromRow(row), names))
	}

	return scores, nil
}

// Leaderboard aggregates every game type per member, sorted by total points
// descending.
func (l *Ledger) Leaderboard(ctx context.Context) ([]Score, error) {
	if !l.info.Paired() {
		return nil, nil
	}

	rows, err := l.store.Query(ctx, store.TableScores, store.Predicate{"couple_id": l.info.CoupleId}, nil)
	if err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}

	names, err := l.displayNames(ctx)
	if err != nil {
		return nil, err
	}

	byUser := make(map[string]*Score)
	var order []string
	for _, row := range rows {
		rec := store.ScoreFromRow(row)
		entry, ok := byUser[rec.UserId]
		if !ok {
			entry = &Score{UserId: rec.UserId, DisplayName: nameOr(names, rec.UserId)}
			byUser[rec.UserId] = entry
			order = append(order, rec.UserId)
		}
		entry.Wins += rec.Wins
		entry.Losses += rec.Losses
		entry.Draws += rec.Draws
		entry.TotalPoints += rec.TotalPoints
	}

	board := make([]Score, 0, len(order))
	for _, userId := range order {
		board = append(board, *byUser[userId])
	}
	sort.SliceStable(board, func(i, j int) bool {
		return board[i].TotalPoints > board[j].TotalPoints
	})

	return board, nil
}

func (l *Ledger) displayNames(ctx context.Context) (map[string]string, error) {
	rows, err := l.store.Query(ctx, store.TableProfiles, store.Predicate{"couple_id": l.info.CoupleId}, nil)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}

	names := make(map[string]string, len(rows))
	for _, row := range rows {
		profile := store.ProfileFromRow(row)
		names[profile.UserId] = profile.DisplayName
	}

	return names, nil
}

func nameOr(names map[string]string, userId string) string {
	if name := names[userId]; name != "" {
		return name
	}
	return "Anonim"
}

func enrich(rec store.GameScore, names map[string]string) Score {
	return Score{
		UserId:      rec.UserId,
		DisplayName: nameOr(names, rec.UserId),
		GameType:    rec.GameType,
		Wins:        rec.Wins,
		Losses:      rec.Losses,
		Draws:       rec.Draws,
		TotalPoints: rec.TotalPoints,
	}
}
