package games

import (
	"context"
	"log"
	"math/rand"

	"couplesync/internal/identity"
	"couplesync/internal/session"
	"couplesync/internal/store"
)

// TruthGame runs truth-or-love: both members answer the same open question
// and the answers are revealed side by side. Nothing is scored.
type TruthGame struct {
	log  *log.Logger
	ctrl *session.Controller
	rand *rand.Rand

	OnUpdate func(session.Snapshot)
}

func NewTruthGame(logger *log.Logger, st store.Store, info identity.CoupleInfo) *TruthGame {
	g := &TruthGame{
		log:  logger,
		rand: rand.New(rand.NewSource(rand.Int63())),
	}
	g.ctrl = session.NewController(logger, st, info, TruthOrLove)
	g.ctrl.OnChange = func(snap session.Snapshot) {
		if g.OnUpdate != nil {
			g.OnUpdate(snap)
		}
	}
	return g
}

func (g *TruthGame) Start(ctx context.Context) error {
	if err := g.ctrl.Start(ctx); err != nil {
		return err
	}

	if g.ctrl.Snapshot().State() == session.NoSession {
		return g.NextQuestion(ctx)
	}
	return nil
}

func (g *TruthGame) NextQuestion(ctx context.Context) error {
	question := PickQuestion(g.rand, TruthOrLoveQuestions)
	_, err := g.ctrl.NewRound(ctx, question, "", "", false)
	return err
}

func (g *TruthGame) Share(ctx context.Context, text string) error {
	return g.ctrl.SubmitAnswer(ctx, text)
}

func (g *TruthGame) Snapshot() session.Snapshot {
	return g.ctrl.Snapshot()
}

func (g *TruthGame) Close() {
	g.ctrl.Close()
}
