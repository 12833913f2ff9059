package session

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"couplesync/internal/identity"
	"couplesync/internal/realtime"
	"couplesync/internal/store"
)

// ErrEmptyAnswer is returned when a submitted answer is blank. No row is
// inserted.
var ErrEmptyAnswer = errors.New("session: answer is empty")

// Controller owns the shared round state for one (pairing, game type) from a
// single client's perspective. The remote rows are authoritative; local state
// is a read-through cache kept fresh by insert subscriptions. Two controllers
// on the two devices of a couple coordinate purely through the store.
type Controller struct {
	log      *log.Logger
	store    store.Store
	bus      *realtime.Bus
	info     identity.CoupleInfo
	gameType string

	// OnChange, when set before Start, is invoked with a fresh snapshot
	// after every local or remote state change. Called without internal
	// locks held.
	OnChange func(Snapshot)

	mu            sync.Mutex
	cur           Snapshot
	submitPending bool
	scored        map[string]struct{}
	sessionSub    store.Subscription
	answerSub     store.Subscription
}

func NewController(logger *log.Logger, st store.Store, info identity.CoupleInfo, gameType string) *Controller {
	return &Controller{
		log:      logger,
		store:    st,
		bus:      realtime.NewBus(logger, st),
		info:     info,
		gameType: gameType,
		scored:   make(map[string]struct{}),
	}
}

// Start subscribes to partner-created sessions and loads the newest active
// round, if any. Without a pairing it does nothing: the controller stays
// quiescent and every operation no-ops.
func (c *Controller) Start(ctx context.Context) error {
	if !c.info.Paired() {
		return nil
	}

	sub, err := c.bus.SessionInserts(c.info.CoupleId, c.gameType, c.info.UserId, c.adoptSession)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.sessionSub = sub
	c.mu.Unlock()

	row, err := store.QueryOne(ctx, c.store, store.TableSessions, store.Predicate{
		"couple_id": c.info.CoupleId,
		"game_type": c.gameType,
		"status":    store.StatusActive,
	})
	if err == store.ErrNotFound {
		c.notify()
		return nil
	}
	if err != nil {
		return err
	}

	sess := store.SessionFromRow(row)

	c.mu.Lock()
	c.setSessionLocked(sess)
	c.mu.Unlock()

	// load answers already present on the resumed round
	rows, err := c.store.Query(ctx, store.TableAnswers, store.Predicate{"session_id": sess.Id}, nil)
	if err != nil {
		return err
	}
	c.mu.Lock()
	for _, row := range rows {
		ans := store.AnswerFromRow(row)
		if c.cur.SessionId != ans.SessionId {
			continue
		}
		if ans.UserId == c.info.UserId {
			c.cur.MyAnswer = ans.Answer
		} else {
			c.cur.PartnerAnswer = ans.Answer
		}
	}
	c.mu.Unlock()

	c.subscribeAnswers(ctx, sess.Id)
	c.notify()
	return nil
}

// NewRound retires any active round of this game type and inserts a fresh
// one. Retirement and insert are two separate writes, so a simultaneous new
// round from both members can transiently yield two active rows; both clients
// converge on whichever insert their subscription delivers. withRoles assigns
// alternating answerer/guesser roles on the new row.
//
// Returns the new session id. Without a pairing this is a no-op.
func (c *Controller) NewRound(ctx context.Context, question, optionA, optionB string, withRoles bool) (string, error) {
	if !c.info.Paired() {
		return "", nil
	}

	prior, err := c.priorSession(ctx)
	if err != nil {
		return "", err
	}

	sess := store.GameSession{
		CoupleId:     c.info.CoupleId,
		GameType:     c.gameType,
		Question:     question,
		OptionA:      optionA,
		OptionB:      optionB,
		Status:       store.StatusActive,
		CreatedBy:    c.info.UserId,
		CurrentRound: 1,
	}
	if prior != nil {
		sess.CurrentRound = prior.CurrentRound + 1
	}
	if withRoles {
		sess.AnswererId, sess.GuesserId = c.nextRoles(prior)
	}

	// mark-old-then-insert-new; not a transaction
	err = c.store.Update(ctx, store.TableSessions, store.Predicate{
		"couple_id": c.info.CoupleId,
		"game_type": c.gameType,
		"status":    store.StatusActive,
	}, store.Row{"status": store.StatusDone})
	if err != nil {
		return "", err
	}

	saved, err := c.store.Insert(ctx, store.TableSessions, sess.Row())
	if err != nil {
		// local state untouched; the caller may retry
		return "", err
	}

	created := store.SessionFromRow(saved)

	c.mu.Lock()
	c.setSessionLocked(created)
	c.mu.Unlock()

	c.subscribeAnswers(ctx, created.Id)
	c.notify()
	return created.Id, nil
}

// SubmitAnswer inserts the caller's answer for the current round. Blank
// answers are rejected. Submitting with no known session, or after the caller
// already answered, is a silent no-op: duplicates are prevented here, not by
// the store.
func (c *Controller) SubmitAnswer(ctx context.Context, answer string) error {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return ErrEmptyAnswer
	}

	c.mu.Lock()
	if c.cur.SessionId == "" || c.cur.MyAnswer != "" || c.submitPending {
		c.mu.Unlock()
		return nil
	}
	c.submitPending = true
	sessionId := c.cur.SessionId
	round := c.cur.CurrentRound
	c.mu.Unlock()

	ans := store.GameAnswer{
		SessionId: sessionId,
		UserId:    c.info.UserId,
		Answer:    answer,
		Round:     round,
	}
	_, err := c.store.Insert(ctx, store.TableAnswers, ans.Row())

	c.mu.Lock()
	c.submitPending = false
	if err == nil && c.cur.SessionId == sessionId {
		c.cur.MyAnswer = answer
	}
	c.mu.Unlock()

	if err != nil {
		return err
	}

	c.notify()
	return nil
}

// MarkScored claims the one scoring slot for the current round. It returns
// true exactly once per session, guarding the score ledger against a
// re-running trigger.
func (c *Controller) MarkScored() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cur.SessionId == "" {
		return false
	}
	if _, done := c.scored[c.cur.SessionId]; done {
		return false
	}
	c.scored[c.cur.SessionId] = struct{}{}
	c.cur.Scored = true
	return true
}

// Snapshot returns a copy of the current round state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

// GameType returns the game type tag this controller coordinates.
func (c *Controller) GameType() string {
	return c.gameType
}

// Info returns the couple context the controller was built with.
func (c *Controller) Info() identity.CoupleInfo {
	return c.info
}

// Close tears down the subscriptions. In-flight writes are not cancelled.
func (c *Controller) Close() {
	c.mu.Lock()
	sessionSub, answerSub := c.sessionSub, c.answerSub
	c.sessionSub, c.answerSub = nil, nil
	c.mu.Unlock()

	if sessionSub != nil {
		sessionSub.Unsubscribe()
	}
	if answerSub != nil {
		answerSub.Unsubscribe()
	}
}

// adoptSession replaces local state with a partner-created round. The bus has
// already filtered out our own inserts and inactive rows.
func (c *Controller) adoptSession(sess store.GameSession) {
	c.mu.Lock()
	if sess.Id == c.cur.SessionId {
		c.mu.Unlock()
		return
	}
	c.setSessionLocked(sess)
	c.mu.Unlock()

	c.subscribeAnswers(context.Background(), sess.Id)
	c.notify()
}

// setSessionLocked loads a session row into local state and resets both
// answer slots. Caller holds c.mu.
func (c *Controller) setSessionLocked(sess store.GameSession) {
	c.cur = Snapshot{
		SessionId:    sess.Id,
		Question:     sess.Question,
		OptionA:      sess.OptionA,
		OptionB:      sess.OptionB,
		AnswererId:   sess.AnswererId,
		GuesserId:    sess.GuesserId,
		CurrentRound: sess.CurrentRound,
	}
}

func (c *Controller) subscribeAnswers(ctx context.Context, sessionId string) {
	c.mu.Lock()
	old := c.answerSub
	c.answerSub = nil
	c.mu.Unlock()
	if old != nil {
		old.Unsubscribe()
	}

	sub, err := c.bus.AnswerInserts(ctx, sessionId, c.info.UserId, func(ans store.GameAnswer) {
		c.applyPartnerAnswer(ans)
	})
	if err != nil {
		c.log.Println("subscribe answers:", err)
		return
	}

	c.mu.Lock()
	if c.cur.SessionId != sessionId {
		// round changed while subscribing
		c.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	c.answerSub = sub
	c.mu.Unlock()
}

func (c *Controller) applyPartnerAnswer(ans store.GameAnswer) {
	c.mu.Lock()
	if ans.SessionId != c.cur.SessionId {
		c.mu.Unlock()
		return
	}
	c.cur.PartnerAnswer = ans.Answer
	c.mu.Unlock()

	c.notify()
}

func (c *Controller) notify() {
	if c.OnChange == nil {
		return
	}
	c.OnChange(c.Snapshot())
}
