package realtime

import (
	"context"
	"log"
	"sync"

	"couplesync/internal/store"
)

// Bus layers the game-specific acceptance rules over raw store subscriptions.
type Bus struct {
	store store.Store
	log   *log.Logger
}

func NewBus(logger *log.Logger, st store.Store) *Bus {
	return &Bus{store: st, log: logger}
}

// SessionInserts delivers sessions created by the partner: inserts scoped to
// the pairing, accepted only when the game type matches, the row is active,
// and the caller did not create it (prevents self-notification loops).
func (b *Bus) SessionInserts(coupleId, gameType, selfId string, fn func(store.GameSession)) (store.Subscription, error) {
	return b.store.Subscribe(store.TableSessions, store.Predicate{"couple_id": coupleId}, func(row store.Row) {
		sess := store.SessionFromRow(row)
		if sess.GameType != gameType || sess.Status != store.StatusActive || sess.CreatedBy == selfId {
			return
		}
		fn(sess)
	})
}

// AnswerInserts delivers the partner's answers for one session. After the
// subscription is established it performs a single point read for an answer
// inserted before the subscription went live, deduplicating by row id, so
// the setup gap cannot swallow an event.
func (b *Bus) AnswerInserts(ctx context.Context, sessionId, selfId string, fn func(store.GameAnswer)) (store.Subscription, error) {
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{})
	)
	deliver := func(ans store.GameAnswer) {
		if ans.UserId == selfId {
			return
		}
		mu.Lock()
		if _, dup := seen[ans.Id]; dup {
			mu.Unlock()
			return
		}
		seen[ans.Id] = struct{}{}
		mu.Unlock()
		fn(ans)
	}

	sub, err := b.store.Subscribe(store.TableAnswers, store.Predicate{"session_id": sessionId}, func(row store.Row) {
		deliver(store.AnswerFromRow(row))
	})
	if err != nil {
		return nil, err
	}

	rows, err := b.store.Query(ctx, store.TableAnswers, store.Predicate{"session_id": sessionId}, nil)
	if err != nil {
		// subscription is live; the reconcile read is best effort
		b.log.Println("reconcile read:", err)
		return sub, nil
	}
	for _, row := range rows {
		deliver(store.AnswerFromRow(row))
	}

	return sub, nil
}
