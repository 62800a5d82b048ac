package partychat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// ============================================================================
// Configuration
// ============================================================================

// RealtimeConfig configures the WebSocket client.
type RealtimeConfig struct {
	Session              string
	AutoReconnect        bool
	MaxReconnectAttempts int
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	HeartbeatInterval    time.Duration
	HTTPClient           *http.Client
	Logger               *slog.Logger
}

func (c *RealtimeConfig) defaults() {
	if c.ReconnectBaseDelay == 0 {
		c.ReconnectBaseDelay = 1 * time.Second
	}
	if c.ReconnectMaxDelay == 0 {
		c.ReconnectMaxDelay = 30 * time.Second
	}
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = 10
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = 25 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.Logger == nil {
		c.Logger = discardLogger()
	}
}

// RealtimeState represents the connection state.
type RealtimeState string

const (
	StateDisconnected RealtimeState = "disconnected"
	StateConnecting   RealtimeState = "connecting"
	StateConnected    RealtimeState = "connected"
	StateReconnecting RealtimeState = "reconnecting"
)

// ============================================================================
// Event Dispatcher
// ============================================================================

// eventDispatcher calls handlers on the read loop goroutine, one frame at a
// time, so a handler sees events in arrival order.
type eventDispatcher struct {
	mu             sync.RWMutex
	onEvent        []func(Event)
	onDisconnected []func(int, string)
	onReconnecting []func(int, time.Duration)
}

func (d *eventDispatcher) dispatch(ev Event) {
	d.mu.RLock()
	handlers := append([]func(Event){}, d.onEvent...)
	d.mu.RUnlock()
	for _, h := range handlers {
		h(ev)
	}
}

func (d *eventDispatcher) emitDisconnected(code int, reason string) {
	d.mu.RLock()
	handlers := append([]func(int, string){}, d.onDisconnected...)
	d.mu.RUnlock()
	for _, h := range handlers {
		go h(code, reason)
	}
}

func (d *eventDispatcher) emitReconnecting(attempt int, delay time.Duration) {
	d.mu.RLock()
	handlers := append([]func(int, time.Duration){}, d.onReconnecting...)
	d.mu.RUnlock()
	for _, h := range handlers {
		go h(attempt, delay)
	}
}

// ============================================================================
// Reconnector
// ============================================================================

type reconnector struct {
	baseDelay   time.Duration
	maxDelay    time.Duration
	maxAttempts int
	attempt     int
	connectedAt time.Time
}

func newReconnector(config *RealtimeConfig) *reconnector {
	return &reconnector{
		baseDelay:   config.ReconnectBaseDelay,
		maxDelay:    config.ReconnectMaxDelay,
		maxAttempts: config.MaxReconnectAttempts,
	}
}

func (r *reconnector) shouldReconnect() bool {
	return r.maxAttempts < 0 || r.attempt < r.maxAttempts
}

func (r *reconnector) markConnected() {
	r.connectedAt = time.Now()
}

// nextDelay is exponential backoff with up to 50% jitter. A connection that
// stayed up for a minute resets the attempt counter.
func (r *reconnector) nextDelay() time.Duration {
	if !r.connectedAt.IsZero() && time.Since(r.connectedAt) > 60*time.Second {
		r.attempt = 0
	}
	jitter := time.Duration(rand.Float64() * float64(r.baseDelay) * 0.5)
	delay := time.Duration(math.Min(
		float64(r.baseDelay)*math.Pow(2, float64(r.attempt))+float64(jitter),
		float64(r.maxDelay),
	))
	r.attempt++
	return delay
}

// ============================================================================
// RealtimeWSClient
// ============================================================================

// RealtimeWSClient is the WebSocket transport. Inbound frames are decoded
// into Events; it implements Transport for outbound actions.
type RealtimeWSClient struct {
	url              string
	config           *RealtimeConfig
	conn             *websocket.Conn
	mu               sync.Mutex
	state            RealtimeState
	intentionalClose bool
	dispatcher       *eventDispatcher
	recon            *reconnector
	cancelFn         context.CancelFunc
}

var _ Transport = (*RealtimeWSClient)(nil)

func newRealtimeWSClient(url string, cfg *RealtimeConfig) *RealtimeWSClient {
	return &RealtimeWSClient{
		url:        url,
		config:     cfg,
		state:      StateDisconnected,
		dispatcher: &eventDispatcher{},
		recon:      newReconnector(cfg),
	}
}

// OnEvent registers a handler for decoded events, including the Connected
// meta-event after every (re)connect. Handlers run on the read loop.
func (ws *RealtimeWSClient) OnEvent(h func(Event)) {
	ws.dispatcher.mu.Lock()
	ws.dispatcher.onEvent = append(ws.dispatcher.onEvent, h)
	ws.dispatcher.mu.Unlock()
}

// OnDisconnected registers a handler for the disconnected meta-event.
func (ws *RealtimeWSClient) OnDisconnected(h func(code int, reason string)) {
	ws.dispatcher.mu.Lock()
	ws.dispatcher.onDisconnected = append(ws.dispatcher.onDisconnected, h)
	ws.dispatcher.mu.Unlock()
}

// OnReconnecting registers a handler for the reconnecting meta-event.
func (ws *RealtimeWSClient) OnReconnecting(h func(attempt int, delay time.Duration)) {
	ws.dispatcher.mu.Lock()
	ws.dispatcher.onReconnecting = append(ws.dispatcher.onReconnecting, h)
	ws.dispatcher.mu.Unlock()
}

// State returns the current connection state.
func (ws *RealtimeWSClient) State() RealtimeState {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.state
}

// Connect establishes the WebSocket connection and starts the read and
// heartbeat loops. The loops live as long as ctx.
func (ws *RealtimeWSClient) Connect(ctx context.Context) error {
	ws.mu.Lock()
	if ws.state == StateConnected || ws.state == StateConnecting {
		ws.mu.Unlock()
		return nil
	}
	ws.state = StateConnecting
	ws.intentionalClose = false
	ws.mu.Unlock()

	opts := &websocket.DialOptions{HTTPClient: ws.config.HTTPClient}
	if ws.config.Session != "" {
		cookie := &http.Cookie{Name: SessionCookie, Value: ws.config.Session}
		opts.HTTPHeader = http.Header{"Cookie": {cookie.String()}}
	}

	conn, _, err := websocket.Dial(ctx, ws.url, opts)
	if err != nil {
		ws.mu.Lock()
		ws.state = StateDisconnected
		ws.mu.Unlock()
		return fmt.Errorf("websocket dial: %w", err)
	}

	connCtx, cancel := context.WithCancel(ctx)
	ws.mu.Lock()
	ws.conn = conn
	ws.state = StateConnected
	ws.cancelFn = cancel
	ws.mu.Unlock()
	ws.recon.markConnected()
	ws.config.Logger.Info("realtime_connected", "url", ws.url)

	ws.dispatcher.dispatch(Connected{})

	go ws.readLoop(connCtx, conn)
	go ws.heartbeatLoop(connCtx, conn)

	return nil
}

// Disconnect gracefully closes the connection.
func (ws *RealtimeWSClient) Disconnect() error {
	ws.mu.Lock()
	ws.intentionalClose = true
	if ws.cancelFn != nil {
		ws.cancelFn()
		ws.cancelFn = nil
	}
	conn := ws.conn
	ws.conn = nil
	ws.state = StateDisconnected
	ws.mu.Unlock()

	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "client disconnect")
	}
	ws.dispatcher.emitDisconnected(1000, "client disconnect")
	return nil
}

// Send writes one outbound action.
func (ws *RealtimeWSClient) Send(ctx context.Context, action Action) error {
	ws.mu.Lock()
	conn := ws.conn
	ws.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	data, err := EncodeAction(action)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

func (ws *RealtimeWSClient) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			ws.mu.Lock()
			intentional := ws.intentionalClose
			ws.mu.Unlock()
			if intentional {
				return
			}

			ws.mu.Lock()
			ws.state = StateDisconnected
			ws.conn = nil
			ws.mu.Unlock()

			ws.config.Logger.Warn("realtime_disconnected", "err", err)
			ws.dispatcher.emitDisconnected(int(websocket.CloseStatus(err)), err.Error())

			if ws.config.AutoReconnect && ws.recon.shouldReconnect() && ctx.Err() == nil {
				ws.scheduleReconnect(ctx)
			}
			return
		}

		ev, err := DecodeEvent(data)
		if errors.Is(err, ErrUnknownEvent) {
			ws.config.Logger.Debug("realtime_skip", "err", err)
			continue
		}
		if err != nil {
			ws.config.Logger.Warn("event_malformed", "err", err)
			continue
		}
		ws.dispatcher.dispatch(ev)
	}
}

func (ws *RealtimeWSClient) heartbeatLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(ws.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil && ctx.Err() == nil {
				// Heartbeat failed: force close so the read loop reconnects.
				conn.Close(websocket.StatusGoingAway, "heartbeat timeout")
				return
			}
		}
	}
}

func (ws *RealtimeWSClient) scheduleReconnect(ctx context.Context) {
	for ws.recon.shouldReconnect() {
		delay := ws.recon.nextDelay()
		ws.mu.Lock()
		ws.state = StateReconnecting
		ws.mu.Unlock()

		ws.dispatcher.emitReconnecting(ws.recon.attempt, delay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		ws.mu.Lock()
		ws.state = StateDisconnected
		ws.mu.Unlock()
		err := ws.Connect(ctx)
		if err == nil {
			return
		}
		ws.config.Logger.Warn("realtime_reconnect_failed", "attempt", ws.recon.attempt, "err", err)
	}
	ws.mu.Lock()
	ws.state = StateDisconnected
	ws.mu.Unlock()
}
