package games

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/teris-io/shortid"

	"couplesync/internal/identity"
	"couplesync/internal/realtime"
	"couplesync/internal/session"
	"couplesync/internal/shuffle"
	"couplesync/internal/store"
)

// DialFunc opens a broadcast channel by name. Production passes a closure
// over realtime.Dial; tests pass a loopback pair.
type DialFunc func(channel string, onEvent func(realtime.BoardEvent)) (realtime.Broadcaster, error)

// BoardCard is one card plus its table state.
type BoardCard struct {
	Id      int
	Emoji   string
	Flipped bool
	Matched bool
}

// Board is a point-in-time copy of the table.
type Board struct {
	SessionId string
	Cards     []BoardCard
	Moves     int
	Complete  bool
}

// MatchGame runs the paired memory-match board. The round's seed rides in
// the session question field, so both clients deal the identical layout; the
// per-flip events are ephemeral and go through the broadcast relay, never
// the store.
type MatchGame struct {
	log  *log.Logger
	ctrl *session.Controller
	info identity.CoupleInfo
	dial DialFunc

	mu        sync.Mutex
	sessionId string
	cards     []BoardCard
	flipped   []int
	moves     int
	bc        realtime.Broadcaster

	OnBoard func(Board)
}

func NewMatchGame(logger *log.Logger, st store.Store, info identity.CoupleInfo, dial DialFunc) *MatchGame {
	g := &MatchGame{
		log:  logger,
		info: info,
		dial: dial,
	}
	g.ctrl = session.NewController(logger, st, info, MemoryMatch)
	g.ctrl.OnChange = g.handleChange
	return g
}

func (g *MatchGame) Start(ctx context.Context) error {
	if err := g.ctrl.Start(ctx); err != nil {
		return err
	}

	if g.ctrl.Snapshot().State() == session.NoSession {
		return g.NewRound(ctx)
	}
	return nil
}

// NewRound deals a fresh board under a new shared seed.
func (g *MatchGame) NewRound(ctx context.Context) error {
	seed, err := shortid.Generate()
	if err != nil {
		return fmt.Errorf("generate seed: %w", err)
	}

	_, err = g.ctrl.NewRound(ctx, seed, "", "", false)
	return err
}

// Flip turns one card face up and relays the flip. The second flip of a pair
// resolves to a match or no-match, which is relayed too so both boards
// animate in lock-step.
func (g *MatchGame) Flip(cardId int) error {
	g.mu.Lock()

	if cardId < 0 || cardId >= len(g.cards) {
		g.mu.Unlock()
		return fmt.Errorf("no card %d", cardId)
	}
	if len(g.flipped) >= 2 || g.cards[cardId].Flipped || g.cards[cardId].Matched {
		g.mu.Unlock()
		return nil
	}

	g.cards[cardId].Flipped = true
	g.flipped = append(g.flipped, cardId)

	events := []realtime.BoardEvent{realtime.FlipEvent(cardId, g.info.UserId)}
	if len(g.flipped) == 2 {
		a, b := g.flipped[0], g.flipped[1]
		g.moves++
		if g.cards[a].Emoji == g.cards[b].Emoji {
			g.resolveMatchLocked(a, b)
			events = append(events, realtime.MatchEvent(a, b))
		} else {
			g.resolveNoMatchLocked(a, b)
			events = append(events, realtime.NoMatchEvent(a, b))
		}
		g.flipped = nil
	}

	bc := g.bc
	g.mu.Unlock()

	if bc != nil {
		for _, ev := range events {
			if err := bc.Send(ev); err != nil {
				g.log.Println("relay board event:", err)
			}
		}
	}

	g.notifyBoard()
	return nil
}

// Board returns a copy of the current table.
func (g *MatchGame) Board() Board {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.boardLocked()
}

func (g *MatchGame) Snapshot() session.Snapshot {
	return g.ctrl.Snapshot()
}

func (g *MatchGame) Close() {
	g.ctrl.Close()

	g.mu.Lock()
	bc := g.bc
	g.bc = nil
	g.mu.Unlock()
	if bc != nil {
		bc.Close()
	}
}

// handleChange rebuilds the board whenever a new round appears, whichever
// member started it.
func (g *MatchGame) handleChange(snap session.Snapshot) {
	g.mu.Lock()
	if snap.SessionId == "" || snap.SessionId == g.sessionId {
		g.mu.Unlock()
		return
	}

	g.sessionId = snap.SessionId
	g.moves = 0
	g.flipped = nil
	g.cards = dealBoard(snap.Question)

	old := g.bc
	g.bc = nil
	g.mu.Unlock()

	if old != nil {
		old.Close()
	}

	bc, err := g.dial("board:"+snap.SessionId, g.applyRemote)
	if err != nil {
		// flips fall back to local-only until the next round
		g.log.Println("dial board channel:", err)
	} else {
		g.mu.Lock()
		g.bc = bc
		g.mu.Unlock()
	}

	g.notifyBoard()
}

// applyRemote mirrors the partner's board activity.
func (g *MatchGame) applyRemote(ev realtime.BoardEvent) {
	g.mu.Lock()
	switch ev.Event {
	case realtime.EventFlip:
		if ev.UserId != g.info.UserId && ev.CardId >= 0 && ev.CardId < len(g.cards) {
			g.cards[ev.CardId].Flipped = true
		}
	case realtime.EventMatch:
		if g.validPair(ev.A, ev.B) {
			g.resolveMatchLocked(ev.A, ev.B)
		}
	case realtime.EventNoMatch:
		if g.validPair(ev.A, ev.B) {
			g.resolveNoMatchLocked(ev.A, ev.B)
		}
	}
	g.mu.Unlock()

	g.notifyBoard()
}

func (g *MatchGame) resolveMatchLocked(a, b int) {
	g.cards[a].Matched = true
	g.cards[b].Matched = true
	g.cards[a].Flipped = false
	g.cards[b].Flipped = false
}

func (g *MatchGame) resolveNoMatchLocked(a, b int) {
	g.cards[a].Flipped = false
	g.cards[b].Flipped = false
}

func (g *MatchGame) validPair(a, b int) bool {
	return a >= 0 && a < len(g.cards) && b >= 0 && b < len(g.cards)
}

func (g *MatchGame) boardLocked() Board {
	board := Board{
		SessionId: g.sessionId,
		Cards:     make([]BoardCard, len(g.cards)),
		Moves:     g.moves,
		Complete:  len(g.cards) > 0,
	}
	copy(board.Cards, g.cards)
	for _, card := range g.cards {
		if !card.Matched {
			board.Complete = false
			break
		}
	}
	return board
}

func (g *MatchGame) notifyBoard() {
	if g.OnBoard == nil {
		return
	}
	g.OnBoard(g.Board())
}

func dealBoard(seed string) []BoardCard {
	cards := make([]BoardCard, 0, shuffle.DeckSize)
	for _, card := range shuffle.Deal(seed) {
		cards = append(cards, BoardCard{Id: card.Id, Emoji: card.Emoji})
	}
	return cards
}
