package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lib/pq"
)

const (
	listenerMinReconnect = 10 * time.Second
	listenerMaxReconnect = time.Minute
)

// PgStore implements Store on Postgres. Insert notifications are delivered
// through LISTEN/NOTIFY channels (<table>_insert) fed by row_to_json triggers
// created by the migrations. Notifications dropped during a listener reconnect
// are not replayed; subscribers cover the gap with a point read.
type PgStore struct {
	conn     *sql.DB
	listener *pq.Listener
	log      *log.Logger

	mu        sync.Mutex
	subs      map[string][]*pgSubscription
	listening map[string]bool
	stop      chan struct{}
	done      chan struct{}
}

type pgSubscription struct {
	store    *PgStore
	table    string
	where    Predicate
	onInsert func(Row)
	once     sync.Once
}

func NewPgStore(dsn string, logger *log.Logger) (*PgStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &PgStore{
		conn:      db,
		log:       logger,
		subs:      make(map[string][]*pgSubscription),
		listening: make(map[string]bool),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	s.listener = pq.NewListener(dsn, listenerMinReconnect, listenerMaxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			s.log.Println("pq listener:", err)
		}
	})

	go s.dispatch()

	return s, nil
}

func (s *PgStore) Subscribe(table string, where Predicate, onInsert func(Row)) (Subscription, error) {
	if _, ok := tableColumns[table]; !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}

	sub := &pgSubscription{
		store:    s,
		table:    table,
		where:    where,
		onInsert: onInsert,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.listening[table] {
		if err := s.listener.Listen(table + "_insert"); err != nil {
			return nil, fmt.Errorf("listen %s: %w", table, err)
		}
		s.listening[table] = true
	}
	s.subs[table] = append(s.subs[table], sub)

	return sub, nil
}

func (s *PgStore) dispatch() {
	defer close(s.done)

	for {
		select {
		case n := <-s.listener.Notify:
			if n == nil {
				// listener reconnected; notifications may have been dropped
				continue
			}

			table, ok := tableForChannel(n.Channel)
			if !ok {
				s.log.Printf("notification on unexpected channel %q", n.Channel)
				continue
			}

			var raw map[string]any
			if err := json.Unmarshal([]byte(n.Extra), &raw); err != nil {
				s.log.Println("decode notification payload:", err)
				continue
			}
			row := Row(raw)

			s.mu.Lock()
			subs := make([]*pgSubscription, len(s.subs[table]))
			copy(subs, s.subs[table])
			s.mu.Unlock()

			for _, sub := range subs {
				if sub.where.Matches(row) {
					go sub.onInsert(cloneRow(row))
				}
			}
		case <-s.stop:
			return
		}
	}
}

func (s *PgStore) Close() error {
	close(s.stop)
	<-s.done

	if err := s.listener.Close(); err != nil {
		s.log.Println("close listener:", err)
	}

	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (sub *pgSubscription) Unsubscribe() {
	sub.once.Do(func() {
		sub.store.mu.Lock()
		defer sub.store.mu.Unlock()

		subs := sub.store.subs[sub.table]
		for i, cand := range subs {
			if cand == sub {
				sub.store.subs[sub.table] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	})
}

func tableForChannel(channel string) (string, bool) {
	for table := range tableColumns {
		if channel == table+"_insert" {
			return table, true
		}
	}
	return "", false
}
