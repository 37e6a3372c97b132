// Package bridge relays change events between API instances over the
// database's NOTIFY/LISTEN channel, so no separate message broker is
// needed. Every instance holds one dedicated listening connection;
// outbound notifications go through the shared pool.
package bridge

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"regexp"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/balejosg/openpath-sub004/internal/domain"
)

const DefaultChannelName = "whitelist_events"

var channelNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ErrStopped is returned by EnsureStarted when Stop overtook the start
// attempt. A later EnsureStarted call may start the bridge again.
var ErrStopped = errors.New("bridge stopped")

// ResolveChannelName validates a configured channel name and falls back
// to the default when it is empty or contains characters that cannot be
// used as a NOTIFY channel identifier.
func ResolveChannelName(raw string) string {
	if channelNamePattern.MatchString(raw) {
		return raw
	}
	return DefaultChannelName
}

type Config struct {
	// DSN for the dedicated listening connection.
	DSN string
	// ChannelName must already be resolved via ResolveChannelName.
	ChannelName string
	// InstanceID tags outbound events and suppresses inbound self-echo.
	InstanceID string
}

// Handler receives every recognized inbound event that did not originate
// from this instance. One handler per bridge, injected at construction.
type Handler func(ctx context.Context, event domain.RelayEvent)

// Observer receives counts for the swallowed-and-logged paths.
type Observer interface {
	SelfEchoSuppressed()
	MalformedPayload()
	NotifyFailed()
}

type nopObserver struct{}

func (nopObserver) SelfEchoSuppressed() {}
func (nopObserver) MalformedPayload()  {}
func (nopObserver) NotifyFailed()      {}

type state int

const (
	stateIdle state = iota
	stateStarting
	stateListening
)

type Bridge struct {
	cfg      Config
	db       *sql.DB
	handler  Handler
	logger   *log.Logger
	observer Observer

	mu       sync.Mutex
	state    state
	stopped  bool          // Stop arrived; an in-flight attempt must not go live
	starting chan struct{} // closed when the in-flight attempt settles
	startErr error
	conn     *pgx.Conn
	cancel   context.CancelFunc
	done     chan struct{}
}

func New(cfg Config, db *sql.DB, handler Handler, logger *log.Logger, observer Observer) *Bridge {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Bridge{
		cfg:      cfg,
		db:       db,
		handler:  handler,
		logger:   logger,
		observer: observer,
	}
}

// EnsureStarted idempotently establishes the dedicated listening
// connection. Concurrent callers during an in-flight start await that
// attempt's outcome instead of racing to open a second connection. On
// failure the bridge resets to idle; there is no automatic retry, the
// caller decides when to try again.
func (b *Bridge) EnsureStarted(ctx context.Context) error {
	b.mu.Lock()
	switch b.state {
	case stateListening:
		b.mu.Unlock()
		return nil
	case stateStarting:
		wait := b.starting
		b.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
		b.mu.Lock()
		err := b.startErr
		b.mu.Unlock()
		return err
	}

	b.state = stateStarting
	b.stopped = false
	b.starting = make(chan struct{})
	b.mu.Unlock()

	conn, err := b.connect(ctx)
	return b.settleStart(conn, err)
}

// settleStart records the outcome of a start attempt. When Stop raced
// the attempt, the fresh connection is discarded instead of going live
// behind a shutdown that already returned.
func (b *Bridge) settleStart(conn *pgx.Conn, err error) error {
	b.mu.Lock()
	if err == nil && b.stopped {
		err = ErrStopped
	}
	b.startErr = err
	if err != nil {
		b.state = stateIdle
		if !errors.Is(err, ErrStopped) {
			b.logger.Printf("relay listener start failed: %v", err)
		}
	} else {
		b.state = stateListening
		listenCtx, cancel := context.WithCancel(context.Background())
		b.conn = conn
		b.cancel = cancel
		b.done = make(chan struct{})
		go b.listen(listenCtx, conn, b.done)
	}
	close(b.starting)
	b.mu.Unlock()

	if err != nil && conn != nil {
		closeCtx, cancelClose := context.WithTimeout(context.Background(), 5*time.Second)
		_ = conn.Close(closeCtx)
		cancelClose()
	}
	return err
}

func (b *Bridge) connect(ctx context.Context) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, b.cfg.DSN)
	if err != nil {
		return nil, err
	}

	listenSQL := "LISTEN " + pgx.Identifier{b.cfg.ChannelName}.Sanitize()
	if _, err := conn.Exec(ctx, listenSQL); err != nil {
		_ = conn.Close(ctx)
		return nil, err
	}

	return conn, nil
}

func (b *Bridge) listen(ctx context.Context, conn *pgx.Conn, done chan struct{}) {
	defer close(done)
	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Printf("relay listener lost connection: %v", err)
			b.detachLostListener()
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = conn.Close(closeCtx)
			cancel()
			return
		}
		b.dispatch(ctx, notification.Payload)
	}
}

// dispatch parses one inbound payload defensively: malformed JSON and
// unknown types indicate a non-conforming producer, and events tagged
// with our own origin have already been fanned out locally by the
// caller of Notify. All three are dropped without reaching the handler.
func (b *Bridge) dispatch(ctx context.Context, payload string) {
	event, ok := domain.ParseRelayEvent([]byte(payload))
	if !ok {
		b.observer.MalformedPayload()
		return
	}
	if event.Origin != "" && event.Origin == b.cfg.InstanceID {
		b.observer.SelfEchoSuppressed()
		return
	}
	b.handler(ctx, event)
}

// detachLostListener resets a dead listener to idle and releases its
// context, so the cancel func derived at start does not leak.
func (b *Bridge) detachLostListener() {
	b.mu.Lock()
	var cancel context.CancelFunc
	if b.state == stateListening {
		b.state = stateIdle
		b.conn = nil
		cancel = b.cancel
		b.cancel = nil
	}
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Notify broadcasts the event to all instances on the shared channel,
// tagged with this instance's origin. Failures are logged and counted but
// not returned: a missed cross-instance notification is re-derivable, and
// the caller has already published locally.
func (b *Bridge) Notify(ctx context.Context, event domain.RelayEvent) {
	event.Origin = b.cfg.InstanceID
	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Printf("relay notify marshal failed: %v", err)
		b.observer.NotifyFailed()
		return
	}

	if _, err := b.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", b.cfg.ChannelName, string(payload)); err != nil {
		b.logger.Printf("relay notify failed: %v", err)
		b.observer.NotifyFailed()
	}
}

// Stop detaches the listener and releases the dedicated connection. Each
// sub-step releases independently with errors swallowed, so teardown
// never fails partway. Safe to call when never started, and idempotent.
// A start attempt still in flight settles as ErrStopped and discards
// its connection rather than going live after Stop has returned.
func (b *Bridge) Stop() {
	b.mu.Lock()
	b.stopped = true
	cancel := b.cancel
	conn := b.conn
	done := b.done
	b.cancel = nil
	b.conn = nil
	b.done = nil
	if b.state == stateListening {
		b.state = stateIdle
	}
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	if conn != nil {
		closeCtx, cancelClose := context.WithTimeout(context.Background(), 5*time.Second)
		if err := conn.Close(closeCtx); err != nil {
			b.logger.Printf("relay listener close: %v", err)
		}
		cancelClose()
	}
}
