package games

import (
	"context"
	"log"
	"math/rand"

	"couplesync/internal/identity"
	"couplesync/internal/score"
	"couplesync/internal/session"
	"couplesync/internal/store"
)

// QuizGame runs the role-alternating love quiz. Each round one member is the
// answerer (writes the true answer) and the other the guesser; the duty swaps
// every round. Only the guesser judges the guess, and only the guesser
// scores: a win for a correct guess, a loss otherwise.
type QuizGame struct {
	log    *log.Logger
	ctrl   *session.Controller
	ledger *score.Ledger
	rand   *rand.Rand
	info   identity.CoupleInfo

	OnUpdate func(session.Snapshot)
}

func NewQuizGame(logger *log.Logger, st store.Store, info identity.CoupleInfo) *QuizGame {
	g := &QuizGame{
		log:    logger,
		ledger: score.NewLedger(logger, st, info),
		rand:   rand.New(rand.NewSource(rand.Int63())),
		info:   info,
	}
	g.ctrl = session.NewController(logger, st, info, LoveQuiz)
	g.ctrl.OnChange = g.handleChange
	return g
}

func (g *QuizGame) Start(ctx context.Context) error {
	if err := g.ctrl.Start(ctx); err != nil {
		return err
	}

	if g.ctrl.Snapshot().State() == session.NoSession {
		return g.NextQuestion(ctx)
	}
	return nil
}

// NextQuestion starts a new round with a fresh question and swapped roles.
func (g *QuizGame) NextQuestion(ctx context.Context) error {
	question := PickQuestion(g.rand, LoveQuizQuestions)
	_, err := g.ctrl.NewRound(ctx, question, "", "", true)
	return err
}

// Submit records the caller's text for the round: the true answer when the
// caller is the answerer, the guess when the caller is the guesser.
func (g *QuizGame) Submit(ctx context.Context, text string) error {
	return g.ctrl.SubmitAnswer(ctx, text)
}

// IsGuesser reports whether the caller holds the guesser duty this round.
func (g *QuizGame) IsGuesser() bool {
	return g.ctrl.Snapshot().GuesserId == g.info.UserId
}

// Judge lets the guesser rule their own guess right or wrong once both
// answers are in, and records the outcome. The answerer never judges.
func (g *QuizGame) Judge(ctx context.Context, correct bool) error {
	snap := g.ctrl.Snapshot()
	if snap.State() != session.BothAnswered || !g.IsGuesser() {
		return nil
	}
	if !g.ctrl.MarkScored() {
		return nil
	}

	outcome := score.Loss
	if correct {
		outcome = score.Win
	}
	if err := g.ledger.Add(ctx, LoveQuiz, outcome); err != nil {
		return err
	}

	return g.NextQuestion(ctx)
}

func (g *QuizGame) Snapshot() session.Snapshot {
	return g.ctrl.Snapshot()
}

func (g *QuizGame) Scores(ctx context.Context) ([]score.Score, error) {
	return g.ledger.Scores(ctx, LoveQuiz)
}

func (g *QuizGame) Close() {
	g.ctrl.Close()
}

func (g *QuizGame) handleChange(snap session.Snapshot) {
	if g.OnUpdate != nil {
		g.OnUpdate(snap)
	}
}
