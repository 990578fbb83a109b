package adapter

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

// WebSocketBackoff configures the reconnect schedule a WebSocketProvider
// uses after an unexpected disconnect.
type WebSocketBackoff struct {
	Base        time.Duration
	Max         time.Duration
	MaxAttempts int // attempts beyond this still retry, but the provider is expected to report unhealthy
}

// DefaultWebSocketBackoff mirrors a conservative exchange reconnect policy:
// 5s doubling up to 5 minutes.
var DefaultWebSocketBackoff = WebSocketBackoff{
	Base:        5 * time.Second,
	Max:         5 * time.Minute,
	MaxAttempts: 10,
}

func (b WebSocketBackoff) delay(attempt int) time.Duration {
	d := float64(b.Base) * math.Pow(2, float64(attempt-1))
	if d > float64(b.Max) {
		d = float64(b.Max)
	}
	return time.Duration(d)
}

// WebSocketProvider is a reusable reconnect/backoff harness over
// nhooyr.io/websocket for any IDataProvider whose wire format can be
// expressed as "send a subscribe payload per active subscription, parse
// every inbound text frame into zero or more DataMessages". Concrete
// exchange adapters supply BuildSubscribePayload and ParseMessage; this type
// owns the connection lifecycle, reconnection, and ordered delivery.
type WebSocketProvider struct {
	name string
	url  string
	log  zerolog.Logger

	dialTimeout  time.Duration
	writeTimeout time.Duration
	backoff      WebSocketBackoff

	// BuildSubscribePayload returns the wire messages to send (once per
	// connection) to (re)establish every currently active subscription.
	BuildSubscribePayload func(active []Subscription) ([][]byte, error)

	// ParseMessage turns one inbound text frame into zero or more
	// DataMessages. Parse errors are logged and do not stop the read loop.
	ParseMessage func(raw []byte) ([]DataMessage, error)

	mu         sync.RWMutex
	conn       *websocket.Conn
	connCtx    context.Context
	cancelConn context.CancelFunc
	active     map[Subscription]struct{}
	connected  bool
	stopped    bool

	stopChan chan struct{}
	inbox    chan DataMessage
}

// NewWebSocketProvider constructs a harness for the named provider. inboxDepth
// bounds how far Poll can lag the read loop; once the inbox is full, the read
// loop drops the oldest buffered message to make room (see emit) rather than
// blocking.
func NewWebSocketProvider(name, url string, backoff WebSocketBackoff, inboxDepth int, log zerolog.Logger) *WebSocketProvider {
	return &WebSocketProvider{
		name:         name,
		url:          url,
		log:          log.With().Str("component", "websocket_provider").Str("provider", name).Logger(),
		dialTimeout:  30 * time.Second,
		writeTimeout: 10 * time.Second,
		backoff:      backoff,
		active:       make(map[Subscription]struct{}),
		stopChan:     make(chan struct{}),
		inbox:        make(chan DataMessage, inboxDepth),
	}
}

func (p *WebSocketProvider) Name() string { return p.name }

// Connect dials the WebSocket, sends the subscribe payload for every
// currently active subscription, and starts the read loop.
func (p *WebSocketProvider) Connect(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, p.dialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, p.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", p.url, err)
	}

	connCtx, cancelConn := context.WithCancel(context.Background())

	p.mu.Lock()
	p.conn = conn
	p.connCtx = connCtx
	p.cancelConn = cancelConn
	p.connected = true
	active := p.activeList()
	p.mu.Unlock()

	if err := p.resubscribe(connCtx, active); err != nil {
		cancelConn()
		conn.Close(websocket.StatusNormalClosure, "subscribe failed")
		p.mu.Lock()
		p.conn = nil
		p.connected = false
		p.mu.Unlock()
		return fmt.Errorf("resubscribe: %w", err)
	}

	p.inbox <- DataMessage{Kind: MsgConnected}
	go p.readLoop(connCtx)
	return nil
}

// Disconnect tears down the connection without reconnecting.
func (p *WebSocketProvider) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	p.stopped = true
	conn := p.conn
	cancel := p.cancelConn
	p.mu.Unlock()

	close(p.stopChan)
	if cancel != nil {
		cancel()
	}
	if conn == nil {
		return nil
	}
	return conn.Close(websocket.StatusNormalClosure, "")
}

// Subscribe records sub as active and, if connected, sends its subscribe
// payload immediately. Duplicate subscriptions for the same (symbol, kind)
// are idempotent.
func (p *WebSocketProvider) Subscribe(sub Subscription) error {
	p.mu.Lock()
	_, already := p.active[sub]
	p.active[sub] = struct{}{}
	conn := p.conn
	ctx := p.connCtx
	p.mu.Unlock()

	if already || conn == nil {
		return nil
	}
	return p.resubscribe(ctx, []Subscription{sub})
}

// Unsubscribe drops sub from the active set. The harness does not send an
// unsubscribe frame (not every wire protocol has one); it simply stops
// re-issuing the subscription on reconnect.
func (p *WebSocketProvider) Unsubscribe(symbol string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for sub := range p.active {
		if sub.Symbol == symbol {
			delete(p.active, sub)
		}
	}
	return nil
}

// Poll returns the next buffered DataMessage, or ok=false at once if none is
// buffered; it never waits for a message to arrive.
func (p *WebSocketProvider) Poll(ctx context.Context) (DataMessage, bool, error) {
	select {
	case msg := <-p.inbox:
		return msg, true, nil
	case <-ctx.Done():
		return DataMessage{}, false, nil
	default:
		return DataMessage{}, false, nil
	}
}

func (p *WebSocketProvider) activeList() []Subscription {
	out := make([]Subscription, 0, len(p.active))
	for sub := range p.active {
		out = append(out, sub)
	}
	return out
}

func (p *WebSocketProvider) resubscribe(ctx context.Context, subs []Subscription) error {
	if p.BuildSubscribePayload == nil || len(subs) == 0 {
		return nil
	}
	frames, err := p.BuildSubscribePayload(subs)
	if err != nil {
		return err
	}
	p.mu.RLock()
	conn := p.conn
	p.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}
	writeCtx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()
	for _, frame := range frames {
		if err := conn.Write(writeCtx, websocket.MessageText, frame); err != nil {
			return fmt.Errorf("write subscribe frame: %w", err)
		}
	}
	return nil
}

func (p *WebSocketProvider) readLoop(ctx context.Context) {
	defer func() {
		p.mu.RLock()
		stopped := p.stopped
		p.mu.RUnlock()
		if !stopped {
			p.emit(DataMessage{Kind: MsgDisconnected})
			go p.reconnectLoop()
		}
	}()

	for {
		select {
		case <-p.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		p.mu.RLock()
		conn := p.conn
		p.mu.RUnlock()
		if conn == nil {
			return
		}

		msgType, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.Warn().Err(err).Msg("websocket read error")
			return
		}
		if msgType != websocket.MessageText {
			continue
		}
		if p.ParseMessage == nil {
			continue
		}
		msgs, err := p.ParseMessage(data)
		if err != nil {
			p.log.Warn().Err(err).Msg("failed to parse websocket message")
			continue
		}
		for _, m := range msgs {
			p.emit(m)
		}
	}
}

// emit delivers msg to the inbox, applying the harness-level back-pressure
// policy: when the inbox is full, drop the oldest buffered message rather
// than block the read loop indefinitely. The dropped message is whichever is
// oldest, whatever its kind: a buffered orderbook snapshot is not protected
// here. The Data Engine's per-symbol buffer is where snapshots are kept from
// being dropped.
func (p *WebSocketProvider) emit(msg DataMessage) {
	select {
	case p.inbox <- msg:
		return
	default:
	}

	if msg.Kind == MsgOrderbook && msg.Orderbook.IsSnapshot {
		<-p.inbox
		p.inbox <- msg
		return
	}

	p.log.Warn().Str("kind", string(msg.Kind)).Msg("inbox full, dropping oldest buffered message")
	select {
	case <-p.inbox:
	default:
	}
	select {
	case p.inbox <- msg:
	default:
	}
}

func (p *WebSocketProvider) reconnectLoop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	attempt := 0
	for {
		select {
		case <-p.stopChan:
			return
		default:
		}
		attempt++
		delay := p.backoff.delay(attempt)
		if attempt > p.backoff.MaxAttempts {
			p.log.Warn().Int("attempt", attempt).Dur("delay", delay).
				Msg("reconnect attempt exceeds configured maximum, still retrying")
		}
		select {
		case <-time.After(delay):
		case <-p.stopChan:
			return
		}

		if err := p.Connect(context.Background()); err != nil {
			p.log.Error().Err(err).Int("attempt", attempt).Msg("reconnect failed")
			continue
		}
		p.log.Info().Int("attempt", attempt).Msg("reconnected")
		return
	}
}
