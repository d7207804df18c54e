// Package stream is a connection state machine that delivers Network
// events either by WebSocket push or, when push is unavailable, by
// degrading to timed polling of the Network Read API.
package stream

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/constellation-network/sdk-go/network"
	"github.com/constellation-network/sdk-go/pkg/errs"
	"github.com/constellation-network/sdk-go/pkg/log"
)

// State is one node of the stream's connection state machine: Idle ->
// Connecting -> Connected -> Reconnecting -> Disconnected (final).
// Connected can also transition directly back to Reconnecting.
type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateDisconnected State = "disconnected"
)

// EventKind names the shape of an Event's payload.
type EventKind string

const (
	EventTransaction EventKind = "transaction"
	EventBalance     EventKind = "balance"
	EventSnapshot    EventKind = "snapshot"
	// EventDegraded fires exactly once, the moment a Stream gives up on
	// push delivery and falls back to polling.
	EventDegraded EventKind = "degraded"
)

// Event is a single push notification, carrying whichever payload its
// Kind names.
type Event struct {
	Kind        EventKind
	Address     string
	Transaction *network.TransactionRecord
	Balance     *network.Balance
}

// Filter reports whether ev should be delivered to a subscriber.
// Multiple filters on one subscription combine with AND.
type Filter func(Event) bool

// ForAddress keeps only events naming addr.
func ForAddress(addr string) Filter {
	return func(ev Event) bool { return ev.Address == addr }
}

// ForKind keeps only events of the given kind.
func ForKind(kind EventKind) Filter {
	return func(ev Event) bool { return ev.Kind == kind }
}

// Handler receives delivered events.
type Handler func(Event)

const (
	reconnectBaseDelay           = time.Second
	reconnectMaxDelay            = 30 * time.Second
	degradeAfterConsecutiveFails = 5
	defaultPollInterval          = 5 * time.Second
	defaultPushIdlePing          = 60 * time.Second
	defaultPushIdleDead          = 90 * time.Second
	pollRecentTransactionsLimit  = 20
)

// Stream manages one logical subscription: a WebSocket connection with
// exponential-backoff reconnection, degrading to polling the Network
// Read API after too many consecutive failures.
type Stream struct {
	wsURL        string
	net          network.API
	logger       log.Logger
	pollInterval time.Duration
	pushIdlePing time.Duration
	pushIdleDead time.Duration
	watched      []string

	mu          sync.RWMutex
	state       State
	handlers    []subscription
	degraded    bool
	metrics     streamMetrics

	cancel context.CancelFunc
	done   chan struct{}
}

type subscription struct {
	filters []Filter
	handler Handler
}

type streamMetrics struct {
	eventsDelivered   uint64
	eventsDropped     uint64
	reconnectAttempts uint64
	degraded          bool
}

// Metrics is a point-in-time snapshot of Stream activity.
type Metrics struct {
	EventsDelivered   uint64
	EventsDropped     uint64
	ReconnectAttempts uint64
	Degraded          bool
	State             State
}

// Option configures a Stream.
type Option func(*Stream)

// WithLogger attaches a structured logger; defaults to log.Noop().
func WithLogger(l log.Logger) Option {
	return func(s *Stream) { s.logger = l }
}

// WithPollInterval overrides the default 5s polling-mode interval.
func WithPollInterval(d time.Duration) Option {
	return func(s *Stream) { s.pollInterval = d }
}

// WithPushKeepAlive overrides how often a connected push link is pinged
// and how long it may go without a pong before the connection is
// considered dead and reconnected.
func WithPushKeepAlive(ping, dead time.Duration) Option {
	return func(s *Stream) {
		s.pushIdlePing = ping
		s.pushIdleDead = dead
	}
}

// New builds a Stream against wsURL, falling back to polling net when
// push delivery degrades.
func New(wsURL string, net network.API, opts ...Option) *Stream {
	s := &Stream{
		wsURL:        wsURL,
		net:          net,
		logger:       log.Noop(),
		pollInterval: defaultPollInterval,
		pushIdlePing: defaultPushIdlePing,
		pushIdleDead: defaultPushIdleDead,
		state:        StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// On registers handler for events matching every filter in filters
// (AND-composed). Returns an unsubscribe function.
func (s *Stream) On(handler Handler, filters ...Filter) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := subscription{filters: filters, handler: handler}
	s.handlers = append(s.handlers, sub)
	idx := len(s.handlers) - 1
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < len(s.handlers) {
			s.handlers[idx].handler = nil
		}
	}
}

// Watch adds addr to the set of addresses polling mode tracks for
// balance changes. Push mode ignores it; the server-side subscription
// already scopes delivery.
func (s *Stream) Watch(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watched = append(s.watched, addr)
}

// State reports the current connection state.
func (s *Stream) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Metrics returns a snapshot of delivery/reconnect counters.
func (s *Stream) Metrics() Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Metrics{
		EventsDelivered:   s.metrics.eventsDelivered,
		EventsDropped:     s.metrics.eventsDropped,
		ReconnectAttempts: s.metrics.reconnectAttempts,
		Degraded:          s.metrics.degraded,
		State:             s.state,
	}
}

// Connect starts the connection loop in the background and returns once
// the first attempt has been dispatched. Calling Connect on an already
// connected/connecting Stream is a no-op; calling it on a Disconnected
// Stream returns a StreamClosed error.
func (s *Stream) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return errs.New(errs.KindStreamClosed, "stream is disconnected; build a new Stream")
	}
	if s.state == StateConnecting || s.state == StateConnected {
		s.mu.Unlock()
		return nil
	}
	s.state = StateConnecting
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.run(runCtx)
	return nil
}

// Disconnect transitions to the final Disconnected state and stops all
// background activity. A disconnected Stream cannot be reconnected; a
// new Stream must be built.
func (s *Stream) Disconnect() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
	s.setState(StateDisconnected)
}

func (s *Stream) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Stream) run(ctx context.Context) {
	defer close(s.done)

	consecutiveFailures := 0
	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if consecutiveFailures >= degradeAfterConsecutiveFails && !s.isDegraded() {
			s.enterDegraded(ctx)
		}
		if s.isDegraded() {
			s.pollLoop(ctx)
			return
		}

		s.setState(StateConnecting)
		err := s.runConnection(ctx)
		if ctx.Err() != nil {
			return
		}
		if s.State() == StateConnected {
			// The dial succeeded before this connection was lost, so the
			// run of consecutive failures starts over.
			consecutiveFailures = 0
		}
		if err == nil {
			consecutiveFailures = 0
			continue
		}

		consecutiveFailures++
		s.mu.Lock()
		s.metrics.reconnectAttempts++
		s.mu.Unlock()
		s.logger.Warnf("stream connection lost, reconnecting (attempt %d): %v", attempt, err)

		s.setState(StateReconnecting)
		delay := backoffDelay(attempt)
		attempt++
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

func backoffDelay(attempt int) time.Duration {
	delay := reconnectBaseDelay << uint(attempt)
	if delay > reconnectMaxDelay || delay <= 0 {
		delay = reconnectMaxDelay
	}
	return delay
}

func (s *Stream) isDegraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

func (s *Stream) enterDegraded(ctx context.Context) {
	s.mu.Lock()
	s.degraded = true
	s.metrics.degraded = true
	s.mu.Unlock()
	s.logger.Warnf("stream degrading to polling mode after repeated reconnect failures")
	s.deliver(Event{Kind: EventDegraded})
}

// runConnection owns one WebSocket connection's lifetime: dial, mark
// Connected, run the ping/pong keep-alive, read until the connection
// closes or ctx is cancelled.
func (s *Stream) runConnection(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return errs.Wrap(errs.KindConnectionFailed, "dial event stream", err)
	}
	defer conn.Close()

	s.setState(StateConnected)
	s.logger.Infof("stream connected to %s", s.wsURL)

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(s.pushIdleDead))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.pushIdleDead))
	})

	go func() {
		<-connCtx.Done()
		_ = conn.Close()
	}()
	go s.pingLoop(connCtx, conn)

	for {
		var wire wireEvent
		if err := conn.ReadJSON(&wire); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errs.Wrap(errs.KindConnectionFailed, "read event", err)
		}
		s.deliver(wire.toEvent())
	}
}

// pingLoop keeps the connection's read deadline alive by sending a
// WebSocket ping every pushIdlePing interval. The counterpart pong
// handler installed in runConnection pushes the read deadline out by
// pushIdleDead on every reply; silence past that deadline surfaces as a
// read error and triggers reconnection.
func (s *Stream) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(s.pushIdlePing)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.pushIdlePing/2)); err != nil {
				return
			}
		}
	}
}

type wireEvent struct {
	Kind        string                      `json:"kind"`
	Address     string                      `json:"address"`
	Transaction *network.TransactionRecord  `json:"transaction,omitempty"`
	Balance     *network.Balance            `json:"balance,omitempty"`
}

func (w wireEvent) toEvent() Event {
	return Event{
		Kind:        EventKind(w.Kind),
		Address:     w.Address,
		Transaction: w.Transaction,
		Balance:     w.Balance,
	}
}

// pollLoop is the degraded-mode fallback: on every tick it fetches each
// watched address's balance, plus the deployment's recent transactions,
// and synthesizes balance-change and new-transaction events, grounded
// on the polling pattern in the pack's CEPAccount transaction outcome
// poller.
func (s *Stream) pollLoop(ctx context.Context) {
	s.setState(StateConnected)
	lastBalance := make(map[string]uint64)
	seenTx := make(map[string]bool)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.RLock()
			addrs := append([]string(nil), s.watched...)
			s.mu.RUnlock()

			for _, addr := range addrs {
				bal, err := s.net.Balance(ctx, addr)
				if err != nil {
					s.logger.Warnf("poll balance failed for %s: %v", addr, err)
					continue
				}
				if prev, ok := lastBalance[addr]; !ok || prev != bal.Amount {
					lastBalance[addr] = bal.Amount
					s.deliver(Event{Kind: EventBalance, Address: addr, Balance: &bal})
				}
			}

			txns, err := s.net.RecentTransactions(ctx, pollRecentTransactionsLimit)
			if err != nil {
				s.logger.Warnf("poll recent transactions failed: %v", err)
				continue
			}
			for i := range txns {
				tx := txns[i]
				if tx.Hash == "" || seenTx[tx.Hash] {
					continue
				}
				seenTx[tx.Hash] = true
				s.deliver(Event{Kind: EventTransaction, Address: tx.Source, Transaction: &tx})
			}
		}
	}
}

func (s *Stream) deliver(ev Event) {
	s.mu.RLock()
	subs := append([]subscription(nil), s.handlers...)
	s.mu.RUnlock()

	delivered := false
	for _, sub := range subs {
		if sub.handler == nil {
			continue
		}
		match := true
		for _, f := range sub.filters {
			if !f(ev) {
				match = false
				break
			}
		}
		if match {
			sub.handler(ev)
			delivered = true
		}
	}
	s.mu.Lock()
	if delivered {
		s.metrics.eventsDelivered++
	} else {
		s.metrics.eventsDropped++
	}
	s.mu.Unlock()
}

// String implements fmt.Stringer for State.
func (s State) String() string { return string(s) }
