package ws

import (
	"time"

	"github.com/loglens/loglens/internal/models"
)

// Frame types sent to subscribers.
const (
	TypeConnectionInfo = "connection_info"
	TypeNewLog         = "new_log"
	TypeHeartbeat      = "heartbeat"
	TypeDisconnect     = "disconnect"
)

// evictSlowConsumer is the close reason for subscribers that cannot keep up.
const evictSlowConsumer = "slow_consumer"

// ConnectionInfo is the first frame after a successful subscribe.
type ConnectionInfo struct {
	Type     string    `json:"type"`
	TenantID string    `json:"tenant_id"`
	At       time.Time `json:"at"`
}

// LogEvent is the payload of a new_log frame: the fields a live viewer needs,
// not the full stored record.
type LogEvent struct {
	EventTime time.Time    `json:"event_time"`
	Level     models.Level `json:"level"`
	Message   string       `json:"message"`
	Source    string       `json:"source,omitempty"`
	Service   string       `json:"service,omitempty"`
}

// NewLogFrame wraps one record for fan-out.
type NewLogFrame struct {
	Type string   `json:"type"`
	Data LogEvent `json:"data"`
}

// HeartbeatFrame is sent on idle connections.
type HeartbeatFrame struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
}

// DisconnectFrame is the final frame before an eviction close.
type DisconnectFrame struct {
	Type    string `json:"type"`
	Reason  string `json:"reason"`
	Dropped int64  `json:"dropped_count"`
}
