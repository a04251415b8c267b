package connection

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bitechdev/ChannelSpec/pkg/logger"
	"github.com/bitechdev/ChannelSpec/pkg/metrics"
	"github.com/bitechdev/ChannelSpec/pkg/protocol"
)

const (
	// ProtocolVersion is the wire protocol revision spoken by this client
	ProtocolVersion = 7

	clientName     = "channelspec-go"
	libraryVersion = "0.1.0"

	writeWait  = 10 * time.Second
	pingPeriod = 54 * time.Second

	defaultHandshakeTimeout = 30 * time.Second
	defaultActivityTimeout  = 120 * time.Second
	defaultPongTimeout      = 30 * time.Second
	defaultSendBufferSize   = 256
)

// connCycle bundles the resources of one dial. A fresh cycle is created per
// Connect so a reconnect never races the teardown of the previous socket.
type connCycle struct {
	ws       *websocket.Conn
	send     chan []byte
	done     chan struct{}
	activity chan struct{}
	once     sync.Once
}

// WebSocketConnection maintains a single socket to the server, runs the read
// and write pumps, answers liveness probes and fans out state transitions to
// bound listeners. Inbound channel traffic is passed untouched to the bound
// MessageHandler.
type WebSocketConnection struct {
	url string

	handshakeTimeout time.Duration
	activityTimeout  time.Duration
	pongTimeout      time.Duration
	sendBufferSize   int
	tlsConfig        *tls.Config

	mu                 sync.Mutex
	state              State
	socketID           string
	negotiatedActivity time.Duration
	cycle              *connCycle
	handler            MessageHandler
	errorHandler       func(message string, code int, err error)
	listeners          map[State]map[string]StateChangeListener
}

// NewWebSocketConnection creates a disconnected connection for the given URL.
// Use BuildURL to derive the URL from an application key.
func NewWebSocketConnection(rawURL string, opts ...Option) (*WebSocketConnection, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("connection URL is required")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid connection URL %q: %w", rawURL, err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return nil, fmt.Errorf("unsupported connection scheme %q", parsed.Scheme)
	}

	c := &WebSocketConnection{
		url:              rawURL,
		handshakeTimeout: defaultHandshakeTimeout,
		activityTimeout:  defaultActivityTimeout,
		pongTimeout:      defaultPongTimeout,
		sendBufferSize:   defaultSendBufferSize,
		state:            Disconnected,
		listeners:        make(map[State]map[string]StateChangeListener),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// URLOptions controls how BuildURL assembles the server endpoint
type URLOptions struct {
	Host    string
	Port    int
	Cluster string
	UseTLS  bool
}

// BuildURL assembles the endpoint URL for an application key. An explicit host
// wins over the cluster; with neither the default cluster is used.
func BuildURL(appKey string, opts URLOptions) string {
	scheme := "ws"
	port := 80
	if opts.UseTLS {
		scheme = "wss"
		port = 443
	}
	host := opts.Host
	if host == "" {
		cluster := opts.Cluster
		if cluster == "" {
			cluster = "mt1"
		}
		host = fmt.Sprintf("ws-%s.pusher.com", cluster)
	}
	if opts.Port != 0 {
		port = opts.Port
	}
	return fmt.Sprintf("%s://%s:%d/app/%s?protocol=%d&client=%s&version=%s",
		scheme, host, port, appKey, ProtocolVersion, clientName, libraryVersion)
}

// Connect dials the server and starts the pumps. The connection reports
// Connecting immediately and Connected only once the server completes the
// handshake and assigns a socket id.
func (c *WebSocketConnection) Connect() error {
	c.mu.Lock()
	if c.state != Disconnected {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("cannot connect while %s", state)
	}
	change, targets := c.transitionLocked(Connecting)
	c.mu.Unlock()
	c.deliver(change, targets)

	logger.Info("[Connection] Connecting to %s", c.url)
	dialer := websocket.Dialer{
		HandshakeTimeout: c.handshakeTimeout,
		TLSClientConfig:  c.tlsConfig,
	}
	ws, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		c.updateState(Disconnected)
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}

	cycle := &connCycle{
		ws:       ws,
		send:     make(chan []byte, c.sendBufferSize),
		done:     make(chan struct{}),
		activity: make(chan struct{}, 1),
	}
	c.mu.Lock()
	c.cycle = cycle
	c.mu.Unlock()

	go c.readPump(cycle)
	go c.writePump(cycle)
	go c.watchdog(cycle)
	return nil
}

// Disconnect closes the socket. The state moves to Disconnecting at once and
// to Disconnected when the read pump has wound down.
func (c *WebSocketConnection) Disconnect() error {
	c.mu.Lock()
	if c.state != Connected && c.state != Connecting {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("cannot disconnect while %s", state)
	}
	change, targets := c.transitionLocked(Disconnecting)
	cycle := c.cycle
	c.mu.Unlock()
	c.deliver(change, targets)

	if cycle != nil {
		c.closeSocket(cycle)
	} else {
		// dial still in flight, readPump will never start for this cycle
		c.updateState(Disconnected)
	}
	return nil
}

// SendMessage queues a message for delivery. It fails when the socket is down
// or the outbound buffer is full; it never blocks.
func (c *WebSocketConnection) SendMessage(message string) error {
	if message == "" {
		return fmt.Errorf("message is required")
	}
	c.mu.Lock()
	cycle := c.cycle
	c.mu.Unlock()
	if cycle == nil {
		return fmt.Errorf("not connected")
	}

	select {
	case cycle.send <- []byte(message):
		metrics.GetProvider().RecordMessageSent(metricKind(protocol.ExtractEvent([]byte(message))))
		return nil
	case <-cycle.done:
		return fmt.Errorf("connection closed")
	default:
		return fmt.Errorf("send buffer full")
	}
}

// State returns the current connection state
func (c *WebSocketConnection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SocketID returns the server-assigned socket id, empty until the handshake
// completes
func (c *WebSocketConnection) SocketID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.socketID
}

// SetMessageHandler binds the consumer of inbound channel traffic
func (c *WebSocketConnection) SetMessageHandler(handler MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// Bind registers a listener for transitions into the given state. Use All to
// observe every transition. The returned binding id releases the registration
// through Unbind.
func (c *WebSocketConnection) Bind(state State, listener StateChangeListener) string {
	if listener == nil {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	bindingID := uuid.NewString()
	if c.listeners[state] == nil {
		c.listeners[state] = make(map[string]StateChangeListener)
	}
	c.listeners[state][bindingID] = listener
	return bindingID
}

// Unbind releases a listener registration. Unknown ids are ignored.
func (c *WebSocketConnection) Unbind(state State, bindingID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.listeners[state], bindingID)
}

func (c *WebSocketConnection) readPump(cycle *connCycle) {
	defer logger.CatchPanic("connection.readPump")
	defer func() {
		c.closeSocket(cycle)
		c.finishCycle(cycle)
	}()

	cycle.ws.SetReadDeadline(time.Now().Add(c.readWait()))
	cycle.ws.SetPongHandler(func(string) error {
		cycle.ws.SetReadDeadline(time.Now().Add(c.readWait()))
		return nil
	})

	for {
		_, message, err := cycle.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("[Connection] Read error: %v", err)
			}
			return
		}
		cycle.ws.SetReadDeadline(time.Now().Add(c.readWait()))
		c.markActivity(cycle)
		c.handleMessage(message)
	}
}

func (c *WebSocketConnection) writePump(cycle *connCycle) {
	defer logger.CatchPanic("connection.writePump")
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-cycle.send:
			cycle.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cycle.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("[Connection] Write error: %v", err)
				c.closeSocket(cycle)
				return
			}
		case <-ticker.C:
			cycle.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cycle.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.closeSocket(cycle)
				return
			}
		case <-cycle.done:
			cycle.ws.SetWriteDeadline(time.Now().Add(writeWait))
			cycle.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// watchdog enforces protocol-level liveness: after a quiet period it sends a
// ping event and closes the socket when no traffic arrives before the pong
// timeout. WebSocket-level pings from the write pump keep intermediaries
// happy but only application traffic resets this timer.
func (c *WebSocketConnection) watchdog(cycle *connCycle) {
	defer logger.CatchPanic("connection.watchdog")
	timer := time.NewTimer(c.currentActivityTimeout())
	defer timer.Stop()
	awaitingPong := false

	for {
		select {
		case <-cycle.done:
			return
		case <-cycle.activity:
			awaitingPong = false
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(c.currentActivityTimeout())
		case <-timer.C:
			if awaitingPong {
				logger.Warn("[Connection] Liveness probe unanswered after %s, closing", c.pongTimeout)
				c.closeSocket(cycle)
				return
			}
			awaitingPong = true
			logger.Debug("[Connection] Connection quiet for %s, probing", c.currentActivityTimeout())
			if err := c.SendMessage(protocol.RenderPing()); err != nil {
				logger.Warn("[Connection] Failed to send liveness probe: %v", err)
				c.closeSocket(cycle)
				return
			}
			timer.Reset(c.pongTimeout)
		}
	}
}

func (c *WebSocketConnection) handleMessage(message []byte) {
	event := protocol.ExtractEvent(message)
	metrics.GetProvider().RecordMessageReceived(metricKind(event))

	switch event {
	case protocol.EventConnectionEstablished:
		socketID, negotiated, err := protocol.ParseConnectionEstablished(message)
		if err != nil {
			logger.Error("[Connection] Malformed handshake completion: %v", err)
			return
		}
		c.mu.Lock()
		c.socketID = socketID
		if negotiated > 0 && negotiated < c.activityTimeout {
			c.negotiatedActivity = negotiated
		}
		c.mu.Unlock()
		logger.Info("[Connection] Connection established, socket id %s", socketID)
		c.updateState(Connected)

	case protocol.EventPing:
		logger.Debug("[Connection] Answering server liveness probe")
		if err := c.SendMessage(protocol.RenderPong()); err != nil {
			logger.Warn("[Connection] Failed to answer liveness probe: %v", err)
		}

	case protocol.EventPong:
		// any inbound frame already counts as activity

	case protocol.EventError:
		text, code := protocol.ParseErrorEvent(message)
		logger.Error("[Connection] Server error %d: %s", code, text)
		c.mu.Lock()
		errorHandler := c.errorHandler
		c.mu.Unlock()
		if errorHandler != nil {
			errorHandler(text, code, nil)
		}

	default:
		c.mu.Lock()
		handler := c.handler
		c.mu.Unlock()
		if handler == nil {
			logger.Debug("[Connection] No message handler bound, dropping %s", event)
			return
		}
		handler.HandleMessage(event, message)
	}
}

// closeSocket shuts down one cycle exactly once. Closing the socket unblocks
// the read pump, which then finishes the cycle.
func (c *WebSocketConnection) closeSocket(cycle *connCycle) {
	cycle.once.Do(func() {
		close(cycle.done)
		cycle.ws.Close()
	})
}

// finishCycle clears per-cycle state and settles on Disconnected. It is a
// no-op when a newer cycle has already taken over.
func (c *WebSocketConnection) finishCycle(cycle *connCycle) {
	c.mu.Lock()
	if c.cycle != cycle {
		c.mu.Unlock()
		return
	}
	c.cycle = nil
	c.socketID = ""
	c.negotiatedActivity = 0
	if c.state == Disconnected {
		c.mu.Unlock()
		return
	}
	change, targets := c.transitionLocked(Disconnected)
	c.mu.Unlock()
	c.deliver(change, targets)
}

func (c *WebSocketConnection) updateState(next State) {
	c.mu.Lock()
	if c.state == next {
		c.mu.Unlock()
		return
	}
	change, targets := c.transitionLocked(next)
	c.mu.Unlock()
	c.deliver(change, targets)
}

// transitionLocked applies the state change and snapshots the listeners to
// notify. Callers hold c.mu and deliver after unlocking.
func (c *WebSocketConnection) transitionLocked(next State) (StateChange, []StateChangeListener) {
	change := StateChange{Previous: c.state, Current: next}
	c.state = next
	targets := make([]StateChangeListener, 0, len(c.listeners[next])+len(c.listeners[All]))
	for _, listener := range c.listeners[next] {
		targets = append(targets, listener)
	}
	for _, listener := range c.listeners[All] {
		targets = append(targets, listener)
	}
	return change, targets
}

func (c *WebSocketConnection) deliver(change StateChange, targets []StateChangeListener) {
	logger.Debug("[Connection] State changed from %s to %s", change.Previous, change.Current)
	metrics.GetProvider().RecordConnectionTransition(change.Current.String())
	for _, listener := range targets {
		listener.OnConnectionStateChange(change)
	}
}

func (c *WebSocketConnection) markActivity(cycle *connCycle) {
	select {
	case cycle.activity <- struct{}{}:
	default:
	}
}

// currentActivityTimeout honors a shorter server-negotiated quiet period
func (c *WebSocketConnection) currentActivityTimeout() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.negotiatedActivity > 0 {
		return c.negotiatedActivity
	}
	return c.activityTimeout
}

func (c *WebSocketConnection) readWait() time.Duration {
	return c.currentActivityTimeout() + c.pongTimeout
}

// metricKind collapses event names into a bounded label set
func metricKind(event string) string {
	switch {
	case event == "":
		return "unknown"
	case protocol.IsClientEvent(event):
		return "client"
	case strings.HasPrefix(event, "pusher:") || protocol.IsInternalEvent(event):
		return event
	default:
		return "channel"
	}
}
