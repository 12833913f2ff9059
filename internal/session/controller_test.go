package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"couplesync/internal/identity"
	"couplesync/internal/store"
	"couplesync/internal/testutil"
)

func coupleInfo(userId, partnerId string) identity.CoupleInfo {
	return identity.CoupleInfo{
		UserId:    userId,
		CoupleId:  "c1",
		PartnerId: partnerId,
	}
}

func newTestController(t *testing.T, m *store.MemoryStore, userId, partnerId, gameType string) *Controller {
	c := NewController(testutil.TestLogger(t), m, coupleInfo(userId, partnerId), gameType)
	t.Cleanup(c.Close)
	return c
}

func TestControllerUnpaired(t *testing.T) {
	m := store.NewMemoryStore()
	defer m.Close()

	c := NewController(testutil.TestLogger(t), m, identity.CoupleInfo{UserId: "user-a"}, "this_or_that")
	defer c.Close()

	assert.NoError(t, c.Start(context.Background()), "expected start without a pairing to no-op")

	id, err := c.NewRound(context.Background(), "q", "A", "B", false)
	assert.NoError(t, err, "expected no error starting a round unpaired")
	assert.Empty(t, id, "expected no session to be created unpaired")

	assert.NoError(t, c.SubmitAnswer(context.Background(), "A"), "expected submit to no-op unpaired")

	rows, err := m.Query(context.Background(), store.TableSessions, store.Predicate{}, nil)
	assert.NoError(t, err, "expected query to succeed")
	assert.Empty(t, rows, "expected no rows written by an unpaired controller")
}

func TestControllerNewRound(t *testing.T) {
	t.Run("creates an active session", func(t *testing.T) {
		m := store.NewMemoryStore()
		defer m.Close()

		c := newTestController(t, m, "user-a", "user-b", "this_or_that")
		assert.NoError(t, c.Start(context.Background()), "expected start to succeed")

		id, err := c.NewRound(context.Background(), "Pantai vs Gunung", "Pantai", "Gunung", false)
		assert.NoError(t, err, "expected new round to succeed")
		assert.NotEmpty(t, id, "expected a session id")

		snap := c.Snapshot()
		assert.Equal(t, id, snap.SessionId, "expected local state to adopt the new round")
		assert.Equal(t, "Pantai vs Gunung", snap.Question, "expected the question to be set")
		assert.Equal(t, "Pantai", snap.OptionA, "expected option A")
		assert.Equal(t, "Gunung", snap.OptionB, "expected option B")
		assert.Equal(t, 1, snap.CurrentRound, "expected the first round to be numbered 1")
		assert.Equal(t, AwaitingMyAnswer, snap.State(), "expected a fresh round to await the caller")
	})

	t.Run("retires the prior round and increments the counter", func(t *testing.T) {
		m := store.NewMemoryStore()
		defer m.Close()

		c := newTestController(t, m, "user-a", "user-b", "this_or_that")
		assert.NoError(t, c.Start(context.Background()), "expected start to succeed")

		first, err := c.NewRound(context.Background(), "q1", "A", "B", false)
		assert.NoError(t, err, "expected first round to succeed")
		time.Sleep(time.Millisecond)

		second, err := c.NewRound(context.Background(), "q2", "A", "B", false)
		assert.NoError(t, err, "expected second round to succeed")
		assert.NotEqual(t, first, second, "expected a fresh session")
		assert.Equal(t, 2, c.Snapshot().CurrentRound, "expected the round counter to increment")

		rows, err := m.Query(context.Background(), store.TableSessions, store.Predicate{"id": first}, nil)
		assert.NoError(t, err, "expected query to succeed")
		assert.Len(t, rows, 1, "expected the prior row to remain")
		assert.Equal(t, store.StatusDone, rows[0]["status"], "expected the prior round to be retired")
	})

	t.Run("alternates roles", func(t *testing.T) {
		m := store.NewMemoryStore()
		defer m.Close()

		a := newTestController(t, m, "user-a", "user-b", "love_quiz")
		b := newTestController(t, m, "user-b", "user-a", "love_quiz")
		assert.NoError(t, a.Start(context.Background()), "expected start to succeed")
		assert.NoError(t, b.Start(context.Background()), "expected start to succeed")

		// round 1: the creator answers
		first, err := a.NewRound(context.Background(), "q1", "", "", true)
		assert.NoError(t, err, "expected round 1 to succeed")
		snap := a.Snapshot()
		assert.Equal(t, "user-a", snap.AnswererId, "expected the creator to answer round 1")
		assert.Equal(t, "user-b", snap.GuesserId, "expected the partner to guess round 1")

		testutil.WaitUntil(t, func() bool { return b.Snapshot().SessionId == first },
			"partner adopts round 1")
		time.Sleep(time.Millisecond)

		// round 2, started by the other member: duties swap
		_, err = b.NewRound(context.Background(), "q2", "", "", true)
		assert.NoError(t, err, "expected round 2 to succeed")
		snap = b.Snapshot()
		assert.Equal(t, "user-b", snap.AnswererId, "expected last round's guesser to answer round 2")
		assert.Equal(t, "user-a", snap.GuesserId, "expected last round's answerer to guess round 2")
		time.Sleep(time.Millisecond)

		// round 3, started by the same member again: duties swap back
		_, err = b.NewRound(context.Background(), "q3", "", "", true)
		assert.NoError(t, err, "expected round 3 to succeed")
		snap = b.Snapshot()
		assert.Equal(t, "user-a", snap.AnswererId, "expected duties to alternate every round")
		assert.Equal(t, "user-b", snap.GuesserId, "expected duties to alternate every round")
	})
}

func TestControllerSubmitAnswer(t *testing.T) {
	t.Run("rejects blank answers", func(t *testing.T) {
		m := store.NewMemoryStore()
		defer m.Close()

		c := newTestController(t, m, "user-a", "user-b", "truth_or_love")
		assert.NoError(t, c.Start(context.Background()), "expected start to succeed")
		_, err := c.NewRound(context.Background(), "q", "", "", false)
		assert.NoError(t, err, "expected new round to succeed")

		assert.ErrorIs(t, c.SubmitAnswer(context.Background(), "   "), ErrEmptyAnswer,
			"expected a whitespace answer to be rejected")

		rows, err := m.Query(context.Background(), store.TableAnswers, store.Predicate{}, nil)
		assert.NoError(t, err, "expected query to succeed")
		assert.Empty(t, rows, "expected no answer row for a rejected submit")
	})

	t.Run("no-ops without a session", func(t *testing.T) {
		m := store.NewMemoryStore()
		defer m.Close()

		c := newTestController(t, m, "user-a", "user-b", "truth_or_love")
		assert.NoError(t, c.Start(context.Background()), "expected start to succeed")

		assert.NoError(t, c.SubmitAnswer(context.Background(), "hello"),
			"expected submit without a session to no-op")

		rows, err := m.Query(context.Background(), store.TableAnswers, store.Predicate{}, nil)
		assert.NoError(t, err, "expected query to succeed")
		assert.Empty(t, rows, "expected no answer row without a session")
	})

	t.Run("writes one row and ignores duplicates", func(t *testing.T) {
		m := store.NewMemoryStore()
		defer m.Close()

		c := newTestController(t, m, "user-a", "user-b", "this_or_that")
		assert.NoError(t, c.Start(context.Background()), "expected start to succeed")
		id, err := c.NewRound(context.Background(), "q", "Kopi", "Teh", false)
		assert.NoError(t, err, "expected new round to succeed")

		assert.NoError(t, c.SubmitAnswer(context.Background(), "Kopi"), "expected submit to succeed")
		assert.NoError(t, c.SubmitAnswer(context.Background(), "Teh"), "expected a repeat submit to no-op")

		snap := c.Snapshot()
		assert.Equal(t, "Kopi", snap.MyAnswer, "expected the first answer to stick")
		assert.Equal(t, AwaitingPartner, snap.State(), "expected to wait on the partner")

		rows, err := m.Query(context.Background(), store.TableAnswers, store.Predicate{"session_id": id}, nil)
		assert.NoError(t, err, "expected query to succeed")
		assert.Len(t, rows, 1, "expected exactly one answer row")
		assert.Equal(t, "Kopi", rows[0]["answer"], "expected the first answer persisted")
	})
}

func TestControllerPartnerFlow(t *testing.T) {
	m := store.NewMemoryStore()
	defer m.Close()

	a := newTestController(t, m, "user-a", "user-b", "this_or_that")
	b := newTestController(t, m, "user-b", "user-a", "this_or_that")
	assert.NoError(t, a.Start(context.Background()), "expected start to succeed")
	assert.NoError(t, b.Start(context.Background()), "expected start to succeed")

	id, err := a.NewRound(context.Background(), "Pantai vs Gunung", "Pantai", "Gunung", false)
	assert.NoError(t, err, "expected new round to succeed")

	testutil.WaitUntil(t, func() bool { return b.Snapshot().SessionId == id },
		"partner adopts the new round")
	assert.Equal(t, "Pantai vs Gunung", b.Snapshot().Question, "expected the partner to see the question")

	assert.NoError(t, b.SubmitAnswer(context.Background(), "Gunung"), "expected partner submit to succeed")
	testutil.WaitUntil(t, func() bool { return a.Snapshot().PartnerAnswer == "Gunung" },
		"partner answer reaches the creator")
	assert.Equal(t, AwaitingMyAnswer, a.Snapshot().State(), "expected the creator to still owe an answer")

	assert.NoError(t, a.SubmitAnswer(context.Background(), "Pantai"), "expected submit to succeed")
	assert.Equal(t, BothAnswered, a.Snapshot().State(), "expected both slots filled for the creator")
	testutil.WaitUntil(t, func() bool { return b.Snapshot().State() == BothAnswered },
		"creator answer reaches the partner")
}

func TestControllerResumesActiveRound(t *testing.T) {
	m := store.NewMemoryStore()
	defer m.Close()

	ctx := context.Background()
	sess, err := m.Insert(ctx, store.TableSessions, store.Row{
		"couple_id": "c1", "game_type": "truth_or_love", "question": "q",
		"status": store.StatusActive, "created_by": "user-b", "current_round": 3,
	})
	assert.NoError(t, err, "expected insert to succeed")

	// answers written while this client was away
	for _, row := range []store.Row{
		{"session_id": sess["id"], "user_id": "user-a", "answer": "mine", "round": 3},
		{"session_id": sess["id"], "user_id": "user-b", "answer": "theirs", "round": 3},
	} {
		_, err := m.Insert(ctx, store.TableAnswers, row)
		assert.NoError(t, err, "expected insert to succeed")
	}

	c := newTestController(t, m, "user-a", "user-b", "truth_or_love")
	assert.NoError(t, c.Start(ctx), "expected start to succeed")

	snap := c.Snapshot()
	assert.Equal(t, sess["id"], snap.SessionId, "expected the active round to be resumed")
	assert.Equal(t, 3, snap.CurrentRound, "expected the stored round number")
	assert.Equal(t, "mine", snap.MyAnswer, "expected the caller's answer to be loaded")
	assert.Equal(t, "theirs", snap.PartnerAnswer, "expected the partner's answer to be loaded")
	assert.Equal(t, BothAnswered, snap.State(), "expected a fully answered resumed round")
}

func TestControllerStoreErrors(t *testing.T) {
	t.Run("start surfaces query failures", func(t *testing.T) {
		db := &store.MockStore{}
		defer db.AssertExpectations(t)

		sub := &store.MockSubscription{}
		sub.On("Unsubscribe").Once()
		defer sub.AssertExpectations(t)

		db.On("Subscribe", store.TableSessions, mock.Anything, mock.Anything).Return(sub, nil).Once()
		db.On("Query", mock.Anything, store.TableSessions, mock.Anything, mock.Anything).
			Return(nil, assert.AnError).Once()

		c := NewController(testutil.TestLogger(t), db, coupleInfo("user-a", "user-b"), "this_or_that")
		assert.Error(t, c.Start(context.Background()), "expected the load failure to surface")
		c.Close()
	})

	t.Run("failed submit leaves the answer slot empty", func(t *testing.T) {
		db := &store.MockStore{}
		defer db.AssertExpectations(t)

		ansSub := &store.MockSubscription{}
		ansSub.On("Unsubscribe").Once()
		defer ansSub.AssertExpectations(t)

		// no prior round
		db.On("Query", mock.Anything, store.TableSessions, mock.Anything, mock.Anything).
			Return(nil, nil).Once()
		db.On("Update", mock.Anything, store.TableSessions, mock.Anything, mock.Anything).
			Return(nil).Once()
		db.On("Insert", mock.Anything, store.TableSessions, mock.Anything).
			Return(store.Row{"id": "s1", "question": "q", "status": store.StatusActive, "current_round": 1}, nil).Once()
		db.On("Subscribe", store.TableAnswers, mock.Anything, mock.Anything).Return(ansSub, nil).Once()
		db.On("Query", mock.Anything, store.TableAnswers, mock.Anything, mock.Anything).
			Return(nil, nil).Once()
		db.On("Insert", mock.Anything, store.TableAnswers, mock.Anything).
			Return(nil, assert.AnError).Once()

		c := NewController(testutil.TestLogger(t), db, coupleInfo("user-a", "user-b"), "this_or_that")

		id, err := c.NewRound(context.Background(), "q", "", "", false)
		assert.NoError(t, err, "expected new round to succeed")
		assert.Equal(t, "s1", id, "expected the inserted session id")

		assert.Error(t, c.SubmitAnswer(context.Background(), "Pantai"), "expected the insert failure to surface")
		snap := c.Snapshot()
		assert.Empty(t, snap.MyAnswer, "expected the answer slot untouched after a failed write")
		assert.Equal(t, AwaitingMyAnswer, snap.State(), "expected the round still awaiting an answer")

		c.Close()
	})
}

func TestControllerMarkScored(t *testing.T) {
	m := store.NewMemoryStore()
	defer m.Close()

	c := newTestController(t, m, "user-a", "user-b", "this_or_that")
	assert.False(t, c.MarkScored(), "expected no scoring slot without a session")

	assert.NoError(t, c.Start(context.Background()), "expected start to succeed")
	_, err := c.NewRound(context.Background(), "q1", "A", "B", false)
	assert.NoError(t, err, "expected new round to succeed")

	assert.True(t, c.MarkScored(), "expected the first claim to win")
	assert.False(t, c.MarkScored(), "expected repeat claims to lose")
	assert.True(t, c.Snapshot().Scored, "expected the snapshot to reflect scoring")
	time.Sleep(time.Millisecond)

	_, err = c.NewRound(context.Background(), "q2", "A", "B", false)
	assert.NoError(t, err, "expected new round to succeed")
	assert.False(t, c.Snapshot().Scored, "expected a fresh round to be unscored")
	assert.True(t, c.MarkScored(), "expected the new session to have its own slot")
}
