package repo

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ChangeChannel is the Postgres NOTIFY channel raised by the trips trigger.
const ChangeChannel = "trip_changed"

const listenRetryDelay = time.Second

// Listener holds one LISTEN connection and fans trip_changed notifications
// out to per-trip subscribers. Subscribers receive a coalesced signal, not
// the payload; they re-read the row themselves.
type Listener struct {
	pool *pgxpool.Pool
	log  *slog.Logger

	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

// NewListener returns a Listener that is idle until Run is called.
func NewListener(pool *pgxpool.Pool, log *slog.Logger) *Listener {
	return &Listener{
		pool: pool,
		log:  log,
		subs: make(map[string]map[chan struct{}]struct{}),
	}
}

// Run listens until ctx is cancelled, reconnecting after connection errors.
// After a reconnect every subscriber is signalled so nothing missed during
// the gap goes unread.
func (l *Listener) Run(ctx context.Context) {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		l.log.ErrorContext(ctx, "trip change listener disconnected", "error", err)

		select {
		case <-time.After(listenRetryDelay):
		case <-ctx.Done():
			return
		}
		l.signalAll()
	}
}

func (l *Listener) listen(ctx context.Context) error {
	pooled, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	// A connection that has run LISTEN must not go back to the pool.
	conn := pooled.Hijack()
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+ChangeChannel); err != nil {
		return err
	}

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if n.Channel == ChangeChannel {
			l.signal(n.Payload)
		}
	}
}

// Subscribe registers interest in tripID. The returned release func must be
// called once the subscriber is done.
func (l *Listener) Subscribe(tripID string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	l.mu.Lock()
	set, ok := l.subs[tripID]
	if !ok {
		set = make(map[chan struct{}]struct{})
		l.subs[tripID] = set
	}
	set[ch] = struct{}{}
	l.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.subs[tripID], ch)
			if len(l.subs[tripID]) == 0 {
				delete(l.subs, tripID)
			}
		})
	}
	return ch, release
}

func (l *Listener) signal(tripID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ch := range l.subs[tripID] {
		notify(ch)
	}
}

func (l *Listener) signalAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, set := range l.subs {
		for ch := range set {
			notify(ch)
		}
	}
}

// notify never blocks; a pending signal already covers this one.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
