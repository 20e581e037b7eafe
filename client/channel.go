package client

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ChannelState is the lifecycle state of the realtime channel.
type ChannelState int

const (
	ChannelIdle ChannelState = iota
	ChannelConnecting
	ChannelOpen
	ChannelRetrying
	ChannelClosed
)

func (s ChannelState) String() string {
	switch s {
	case ChannelIdle:
		return "idle"
	case ChannelConnecting:
		return "connecting"
	case ChannelOpen:
		return "open"
	case ChannelRetrying:
		return "retrying"
	case ChannelClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Channel maintains the websocket delivering notification pushes for the
// client's identity. It owns the underlying connection exclusively: it
// reconnects after a fixed delay on any drop and tears down fully on
// identity change or Close. Connection failures are never surfaced to the
// handler; the REST poll is the fallback of record.
type Channel struct {
	client  *Client
	delay   time.Duration
	handler func(Notification)

	mu         sync.Mutex
	state      ChannelState
	conn       *websocket.Conn
	identityID string
	retryTimer *time.Timer
	closed     bool

	// gen invalidates in-flight dials, read loops and retry timers that
	// belong to a torn-down connection.
	gen int
}

// NewChannel builds a realtime channel. The handler is invoked for every
// well-formed notification push, on the channel's read goroutine.
func (c *Client) NewChannel(handler func(Notification)) *Channel {
	return &Channel{
		client:  c,
		delay:   c.cfg.ReconnectDelay,
		handler: handler,
	}
}

// State reports the current lifecycle state.
func (ch *Channel) State() ChannelState {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.state
}

// Connect opens the channel for the client's current identity. It is a
// no-op while a connection for the same identity is open or being dialed.
// Guest or absent identities get no connection; any existing one is torn
// down. Switching identity tears the old connection down first.
func (ch *Channel) Connect() {
	id, ok := ch.client.Identity()

	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return
	}

	if !ok || id.IsGuest {
		ch.teardownLocked()
		ch.state = ChannelIdle
		ch.mu.Unlock()
		return
	}

	if ch.identityID == id.ID && (ch.state == ChannelOpen || ch.state == ChannelConnecting) {
		ch.mu.Unlock()
		return
	}

	if ch.identityID != id.ID {
		ch.teardownLocked()
	} else {
		ch.cancelRetryLocked()
	}

	ch.identityID = id.ID
	ch.state = ChannelConnecting
	gen := ch.gen
	ch.mu.Unlock()

	go ch.dial(gen, id.ID)
}

func (ch *Channel) dial(gen int, userID string) {
	wsEndpoint, err := ch.client.wsURL(userID)
	if err != nil {
		ch.client.log.Warn("cannot build channel url", "error", err)
		return
	}

	conn, resp, err := websocket.DefaultDialer.Dial(wsEndpoint, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	ch.mu.Lock()
	if ch.closed || gen != ch.gen {
		ch.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		ch.state = ChannelRetrying
		ch.scheduleReconnectLocked()
		ch.mu.Unlock()
		ch.client.log.Warn("channel dial failed", "error", err)
		return
	}

	ch.conn = conn
	ch.state = ChannelOpen
	ch.cancelRetryLocked()
	ch.mu.Unlock()

	ch.client.log.Info("realtime channel open", "user_id", userID)
	go ch.readLoop(gen, conn)
}

func (ch *Channel) readLoop(gen int, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			ch.connDropped(gen)
			return
		}

		var n Notification
		if err := json.Unmarshal(data, &n); err != nil || n.ID == "" {
			// Malformed pushes never take the channel down
			ch.client.log.Warn("discarding malformed push payload", "error", err)
			continue
		}

		if ch.handler != nil {
			ch.handler(n)
		}
	}
}

// connDropped handles an unexpected close. A stale generation means the
// connection was already torn down deliberately and must not reconnect.
func (ch *Channel) connDropped(gen int) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.closed || gen != ch.gen {
		return
	}

	ch.conn = nil
	ch.state = ChannelRetrying
	ch.scheduleReconnectLocked()
	ch.client.log.Warn("realtime channel dropped, reconnecting", "delay", ch.delay)
}

// scheduleReconnectLocked arms at most one retry timer.
func (ch *Channel) scheduleReconnectLocked() {
	if ch.retryTimer != nil {
		return
	}
	gen := ch.gen
	ch.retryTimer = time.AfterFunc(ch.delay, func() {
		ch.mu.Lock()
		ch.retryTimer = nil
		if ch.closed || gen != ch.gen {
			ch.mu.Unlock()
			return
		}
		ch.mu.Unlock()
		ch.Connect()
	})
}

func (ch *Channel) cancelRetryLocked() {
	if ch.retryTimer != nil {
		ch.retryTimer.Stop()
		ch.retryTimer = nil
	}
}

// teardownLocked closes the current connection, cancels any pending retry
// and invalidates everything in flight for it.
func (ch *Channel) teardownLocked() {
	ch.gen++
	ch.cancelRetryLocked()
	if ch.conn != nil {
		ch.conn.Close()
		ch.conn = nil
	}
}

// Close shuts the channel down for good. It is idempotent: in-flight reads
// and pending retries are invalidated before the socket closes, so the
// close they observe never schedules a reconnect.
func (ch *Channel) Close() {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.closed {
		return
	}
	ch.closed = true
	ch.teardownLocked()
	ch.state = ChannelClosed
}
