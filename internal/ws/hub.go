// Package ws implements the live log fan-out: a hub of per-tenant WebSocket
// subscribers fed by the ingest pipeline. Delivery is lossy by contract:
// sends never block, drops are counted per subscriber, and subscribers that
// fall too far behind are evicted.
package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/loglens/loglens/internal/metrics"
	"github.com/loglens/loglens/internal/models"
)

// Hub channel buffer sizes.
const (
	broadcastBuffer = 256
	registerBuffer  = 64
)

// Connection caps.
const (
	maxClients          = 1000
	maxClientsPerTenant = 50
)

// drainTimeout is how long the hub waits for clients to flush on shutdown.
const drainTimeout = 3 * time.Second

// tenantBroadcast is sent through the broadcast channel to the Run goroutine.
type tenantBroadcast struct {
	tenantID string
	msg      []byte
}

// Hub manages active subscribers and fans records out to them.
// All client map mutations happen exclusively in the Run goroutine.
type Hub struct {
	clients       map[*Client]bool
	tenantCount   map[string]int // O(1) per-tenant connection counting
	register      chan *Client
	unregister    chan *Client
	broadcast     chan tenantBroadcast
	shutdown      chan struct{} // signals Run to begin graceful drain
	done          chan struct{} // closed when Run has finished draining
	count         atomic.Int64
	sendBuffer    int
	dropThreshold int64
	log           *logrus.Logger
}

// NewHub creates a Hub. sendBuffer is the per-subscriber queue depth;
// dropThreshold is how many drops a subscriber survives before eviction.
func NewHub(log *logrus.Logger, sendBuffer int, dropThreshold int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	if dropThreshold <= 0 {
		dropThreshold = 64
	}

	return &Hub{
		clients:       make(map[*Client]bool),
		tenantCount:   make(map[string]int),
		register:      make(chan *Client, registerBuffer),
		unregister:    make(chan *Client, registerBuffer),
		broadcast:     make(chan tenantBroadcast, broadcastBuffer),
		shutdown:      make(chan struct{}),
		done:          make(chan struct{}),
		sendBuffer:    sendBuffer,
		dropThreshold: int64(dropThreshold),
		log:           log,
	}
}

// Run starts the hub event loop. It should be run as a goroutine.
// It exits when Shutdown is called or the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.drainClients()

			return
		case <-h.shutdown:
			h.drainClients()

			return

		case client := <-h.register:
			if len(h.clients) >= maxClients {
				h.log.Warn("global connection limit reached, dropping client")
				client.closeSend()
				continue
			}
			if h.tenantCount[client.TenantID] >= maxClientsPerTenant {
				h.log.WithField("tenant_id", client.TenantID).Warn("per-tenant connection limit reached, dropping client")
				client.closeSend()
				continue
			}
			h.clients[client] = true
			h.tenantCount[client.TenantID]++
			h.count.Store(int64(len(h.clients)))
			metrics.WSConnections.Set(float64(len(h.clients)))
			h.log.WithField("total", len(h.clients)).Info("subscriber registered")

		case client := <-h.unregister:
			h.removeClient(client)
			h.log.WithField("total", len(h.clients)).Info("subscriber unregistered")

		case b := <-h.broadcast:
			for client := range h.clients {
				if client.TenantID != b.tenantID {
					continue
				}
				select {
				case client.send <- b.msg:
				default:
					dropped := client.dropped.Add(1)
					metrics.BroadcastDropped.Inc()

					if dropped >= h.dropThreshold {
						client.markEvicted(evictSlowConsumer)
						h.removeClient(client)
						metrics.SlowConsumerEvictions.Inc()
						h.log.WithFields(logrus.Fields{
							"tenant_id": client.TenantID,
							"dropped":   dropped,
						}).Warn("evicting slow subscriber")
					}
				}
			}
			h.count.Store(int64(len(h.clients)))
		}
	}
}

// removeClient deletes a client from the maps and closes its queue.
// Must only be called from the Run goroutine.
func (h *Hub) removeClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}

	delete(h.clients, client)
	client.closeSend()
	h.tenantCount[client.TenantID]--

	if h.tenantCount[client.TenantID] <= 0 {
		delete(h.tenantCount, client.TenantID)
	}

	h.count.Store(int64(len(h.clients)))
	metrics.WSConnections.Set(float64(len(h.clients)))
}

// BroadcastRecord fans one stored record out to the tenant's subscribers.
// Called post-commit by the ingest pipeline; never blocks.
func (h *Hub) BroadcastRecord(tenantID string, rec models.LogRecord) {
	frame := NewLogFrame{
		Type: TypeNewLog,
		Data: LogEvent{
			EventTime: rec.EventTime,
			Level:     rec.Level,
			Message:   rec.Message,
			Source:    rec.Source,
			Service:   rec.Service,
		},
	}

	msg, err := json.Marshal(frame)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal new_log frame")
		return
	}

	h.BroadcastToTenant(tenantID, msg)
}

// BroadcastToTenant queues a raw frame for the tenant's subscribers.
// The actual send is performed by the Run goroutine via a channel.
func (h *Hub) BroadcastToTenant(tenantID string, msg []byte) {
	select {
	case h.broadcast <- tenantBroadcast{tenantID: tenantID, msg: msg}:
	default:
		metrics.BroadcastDropped.Inc()
		h.log.Warn("broadcast channel full, dropping frame")
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	default:
		h.log.Warn("register channel full, dropping client")
		c.closeSend()
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	default:
		// Run loop already exited; client cleanup happened in Run shutdown.
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Shutdown initiates a graceful drain: notifies subscribers, waits for write
// pumps to flush, then closes all connections. Blocks until drain completes
// or the timeout expires.
func (h *Hub) Shutdown() {
	close(h.shutdown)
	<-h.done
}

// drainClients sends a shutdown frame to every client and waits for buffers
// to flush.
func (h *Hub) drainClients() {
	if len(h.clients) == 0 {
		return
	}

	h.log.WithField("clients", len(h.clients)).Info("draining subscribers")

	shutdownMsg := []byte(`{"type":"disconnect","reason":"server shutting down"}`)
	for client := range h.clients {
		select {
		case client.send <- shutdownMsg:
		default:
		}
	}

	deadline := time.After(drainTimeout)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		allDrained := true

		for client := range h.clients {
			if len(client.send) > 0 {
				allDrained = false

				break
			}
		}

		if allDrained {
			break
		}

		select {
		case <-deadline:
			h.log.Warn("subscriber drain timeout, closing remaining clients")

			goto closeAll
		case <-ticker.C:
		}
	}

closeAll:
	for client := range h.clients {
		client.closeSend()
		delete(h.clients, client)
	}

	h.tenantCount = make(map[string]int)
	h.count.Store(0)
	metrics.WSConnections.Set(0)
}
