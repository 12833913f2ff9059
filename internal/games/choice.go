package games

import (
	"context"
	"fmt"
	"log"
	"math/rand"

	"couplesync/internal/identity"
	"couplesync/internal/score"
	"couplesync/internal/session"
	"couplesync/internal/store"
)

// ChoiceGame runs the symmetric binary-choice games: both members pick one of
// two options, matching picks score a win for each side and differing picks a
// draw for each. It deals rounds in one of two modes: option pairs drawn from
// a pair bank (this-or-that), or prompts drawn from a question bank with the
// two members' display names as the fixed options (who's-more-likely).
type ChoiceGame struct {
	log    *log.Logger
	ctrl   *session.Controller
	ledger *score.Ledger
	rand   *rand.Rand

	pairs            [][2]string
	questions        []string
	optionA, optionB string

	// OnUpdate receives every state change, after any scoring side effect.
	OnUpdate func(session.Snapshot)
}

func newChoiceGame(logger *log.Logger, st store.Store, info identity.CoupleInfo, gameType string) *ChoiceGame {
	g := &ChoiceGame{
		log:    logger,
		ledger: score.NewLedger(logger, st, info),
		rand:   rand.New(rand.NewSource(rand.Int63())),
	}
	g.ctrl = session.NewController(logger, st, info, gameType)
	g.ctrl.OnChange = g.handleChange
	return g
}

// NewChoiceGame deals option pairs from bank and renders the prompt from the
// pair itself.
func NewChoiceGame(logger *log.Logger, st store.Store, info identity.CoupleInfo, gameType string, bank [][2]string) *ChoiceGame {
	g := newChoiceGame(logger, st, info, gameType)
	g.pairs = bank
	return g
}

// NewWhosMoreLikelyGame deals prompts from the who's-more-likely bank; the
// options are the caller's and the partner's display names, written on the
// session row so both members vote over the same two names.
func NewWhosMoreLikelyGame(logger *log.Logger, st store.Store, info identity.CoupleInfo) *ChoiceGame {
	g := newChoiceGame(logger, st, info, WhosMoreLikely)
	g.questions = WhosMoreLikelyQuestions
	g.optionA = info.MyName
	g.optionB = info.PartnerName
	return g
}

func (g *ChoiceGame) Start(ctx context.Context) error {
	if err := g.ctrl.Start(ctx); err != nil {
		return err
	}

	// first visitor starts the round for both members
	if g.ctrl.Snapshot().State() == session.NoSession {
		return g.NextQuestion(ctx)
	}
	return nil
}

// NextQuestion retires the current round and deals a fresh prompt.
func (g *ChoiceGame) NextQuestion(ctx context.Context) error {
	var question, optA, optB string
	if len(g.questions) > 0 {
		question = PickQuestion(g.rand, g.questions)
		optA, optB = g.optionA, g.optionB
	} else {
		optA, optB = PickPair(g.rand, g.pairs)
		question = fmt.Sprintf("%s vs %s", optA, optB)
	}

	_, err := g.ctrl.NewRound(ctx, question, optA, optB, false)
	return err
}

// Choose submits the caller's pick. Picking again is a no-op.
func (g *ChoiceGame) Choose(ctx context.Context, option string) error {
	return g.ctrl.SubmitAnswer(ctx, option)
}

func (g *ChoiceGame) Snapshot() session.Snapshot {
	return g.ctrl.Snapshot()
}

func (g *ChoiceGame) Scores(ctx context.Context) ([]score.Score, error) {
	return g.ledger.Scores(ctx, g.ctrl.GameType())
}

func (g *ChoiceGame) Close() {
	g.ctrl.Close()
}

func (g *ChoiceGame) handleChange(snap session.Snapshot) {
	if snap.State() == session.BothAnswered && g.ctrl.MarkScored() {
		outcome := score.Draw
		if snap.MyAnswer == snap.PartnerAnswer {
			outcome = score.Win
		}
		if err := g.ledger.Add(context.Background(), g.ctrl.GameType(), outcome); err != nil {
			g.log.Println("add score:", err)
		}
		snap = g.ctrl.Snapshot()
	}

	if g.OnUpdate != nil {
		g.OnUpdate(snap)
	}
}
