package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeTimeout        = 10 * time.Second
	wsReadLimit         = 4096
	maxConnLifetime     = 4 * time.Hour    // safety-net lifetime (credential refresh handles auth)
	credRefreshInterval = 15 * time.Minute // periodic re-validation of the API key
	credRefreshTimeout  = 10 * time.Second
	heartbeatInterval   = 30 * time.Second
	pingInterval        = 30 * time.Second
	pingTimeout         = 10 * time.Second
	maxMissedPongs      = int32(2)
)

// CredentialChecker re-validates that an API key still belongs to a live
// tenant.
type CredentialChecker interface {
	Verify(ctx context.Context, tenantID, presented string) error
}

// Client wraps a single subscriber connection managed by the Hub.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	log         *logrus.Logger
	TenantID    string
	apiKey      string
	checker     CredentialChecker
	dropped     atomic.Int64
	evictReason atomic.Pointer[string]
	closeOnce   sync.Once
	connectedAt time.Time
}

// NewClient creates a Client for the given connection. checker may be nil to
// skip periodic credential re-validation.
func NewClient(hub *Hub, conn *websocket.Conn, tenantID string, checker CredentialChecker, apiKey string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, hub.sendBuffer),
		log:         hub.log,
		TenantID:    tenantID,
		apiKey:      apiKey,
		checker:     checker,
		connectedAt: time.Now(),
	}
}

// closeSend safely closes the send channel exactly once.
func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// markEvicted records the eviction reason for the write pump's final frame.
func (c *Client) markEvicted(reason string) {
	c.evictReason.Store(&reason)
}

// Dropped returns how many frames this subscriber has lost so far.
func (c *Client) Dropped() int64 {
	return c.dropped.Load()
}

// SendConnectionInfo queues the initial frame. Called before the pumps start,
// so the buffered send cannot fail.
func (c *Client) SendConnectionInfo() {
	msg, err := json.Marshal(ConnectionInfo{
		Type:     TypeConnectionInfo,
		TenantID: c.TenantID,
		At:       time.Now().UTC(),
	})
	if err != nil {
		return
	}

	select {
	case c.send <- msg:
	default:
	}
}

// ReadPump reads messages from the connection until it closes. The only
// client-to-server message with meaning is the text "ping", answered with
// "pong"; everything else is ignored.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.CloseNow() //nolint:errcheck // best-effort close on teardown
	}()

	c.conn.SetReadLimit(wsReadLimit)

	for {
		_, msgBytes, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				c.log.WithField("status", websocket.CloseStatus(err)).Debug("subscriber disconnected")
			}

			return
		}

		c.handleMessage(ctx, msgBytes)
	}
}

// handleMessage answers application-level pings.
func (c *Client) handleMessage(ctx context.Context, msgBytes []byte) {
	trimmed := bytes.TrimSpace(msgBytes)

	isPing := bytes.Equal(trimmed, []byte("ping"))
	if !isPing {
		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(trimmed, &msg); err != nil || msg.Type != "ping" {
			return
		}
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	c.conn.Write(writeCtx, websocket.MessageText, []byte("pong")) //nolint:errcheck // read loop notices broken connections
}

// WritePump writes queued frames to the connection, sends heartbeats when
// idle, enforces the connection lifetime, and re-validates the credential.
func (c *Client) WritePump(ctx context.Context) {
	defer c.conn.CloseNow() //nolint:errcheck // best-effort close on teardown

	lifetimeTimer := time.NewTimer(time.Until(c.connectedAt.Add(maxConnLifetime)))
	defer lifetimeTimer.Stop()

	refreshTicker := time.NewTicker(credRefreshInterval)
	defer refreshTicker.Stop()

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	heartbeat := time.NewTimer(heartbeatInterval)
	defer heartbeat.Stop()

	var missedPongs atomic.Int32

	for {
		select {
		case <-pingTicker.C:
			if c.sendPing(ctx, &missedPongs) {
				return
			}
		case <-heartbeat.C:
			if !c.write(ctx, heartbeatMsg()) {
				return
			}

			heartbeat.Reset(heartbeatInterval)
		case msg, ok := <-c.send:
			if !ok {
				c.finalFrame(ctx)

				return
			}

			if !c.write(ctx, msg) {
				return
			}

			if !heartbeat.Stop() {
				select {
				case <-heartbeat.C:
				default:
				}
			}
			heartbeat.Reset(heartbeatInterval)
		case <-refreshTicker.C:
			if !c.refreshCredential(ctx) {
				return
			}
		case <-lifetimeTimer.C:
			c.log.Info("closing subscriber: max connection lifetime exceeded")
			c.conn.Close(websocket.StatusNormalClosure, "max connection lifetime exceeded") //nolint:errcheck // best-effort

			return
		}
	}
}

// write sends one frame with the write timeout. Returns false when the
// connection is broken.
func (c *Client) write(ctx context.Context, msg []byte) bool {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := c.conn.Write(writeCtx, websocket.MessageText, msg); err != nil {
		c.log.WithError(err).Debug("write failed")

		return false
	}

	return true
}

// finalFrame delivers the eviction notice, if any, before the close.
func (c *Client) finalFrame(ctx context.Context) {
	reason := c.evictReason.Load()
	if reason == nil {
		return
	}

	msg, err := json.Marshal(DisconnectFrame{
		Type:    TypeDisconnect,
		Reason:  *reason,
		Dropped: c.dropped.Load(),
	})
	if err != nil {
		return
	}

	c.write(ctx, msg)
	c.conn.Close(websocket.StatusPolicyViolation, *reason) //nolint:errcheck // best-effort
}

// sendPing sends a protocol ping and tracks missed pongs.
// Returns true if the connection should be closed.
func (c *Client) sendPing(ctx context.Context, missedPongs *atomic.Int32) bool {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := c.conn.Ping(pingCtx)
	cancel()

	if err != nil {
		if missedPongs.Add(1) >= maxMissedPongs {
			c.log.Debug("closing subscriber: consecutive missed pongs")

			return true
		}

		return false
	}

	missedPongs.Store(0)

	return false
}

// refreshCredential re-validates the API key. Returns false when the
// connection should close.
func (c *Client) refreshCredential(ctx context.Context) bool {
	if c.checker == nil {
		return true
	}

	refreshCtx, cancel := context.WithTimeout(ctx, credRefreshTimeout)
	err := c.checker.Verify(refreshCtx, c.TenantID, c.apiKey)
	cancel()

	if err != nil {
		c.log.Info("closing subscriber: credential no longer valid")
		c.conn.Close(websocket.StatusPolicyViolation, "authentication expired") //nolint:errcheck // best-effort

		return false
	}

	return true
}

func heartbeatMsg() []byte {
	msg, err := json.Marshal(HeartbeatFrame{Type: TypeHeartbeat, At: time.Now().UTC()})
	if err != nil {
		return []byte(`{"type":"heartbeat"}`)
	}

	return msg
}
