package websocket

import (
	"context"
	"encoding/json"
	"time"

	ws "github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/ShiShiBits1/GrowthQuest/internal/auth"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
	readLimit      = 1 << 12
)

// inbound is the only frame a dashboard sends: {"type":"ping"} to check the
// feed is alive without waiting for the next broadcast.
type inbound struct {
	Type string `json:"type"`
}

var pongFrame, _ = json.Marshal(Message{Type: "pong", Entity: "connection", Action: "pong"})

// Client is one open dashboard. Parents and children of a family share the
// family's feed.
type Client struct {
	hub      *Hub
	conn     *ws.Conn
	familyID int64
	actor    auth.Actor
	send     chan []byte
}

func NewClient(hub *Hub, conn *ws.Conn, actor auth.Actor) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		familyID: actor.FamilyID,
		actor:    actor,
		send:     make(chan []byte, sendBufferSize),
	}
}

// Run blocks until the dashboard disconnects or ctx ends.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.hub.logger.Debug("dashboard connected", "family_id", c.familyID, "role", c.actor.Role, "actor_id", c.actor.ID)
	go c.writePump(ctx, cancel)
	c.readPump(ctx)
	c.hub.logger.Debug("dashboard disconnected", "family_id", c.familyID, "role", c.actor.Role, "actor_id", c.actor.ID)
}

func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(readLimit)
	for {
		var in inbound
		if err := wsjson.Read(ctx, c.conn, &in); err != nil {
			return
		}
		if in.Type != "ping" {
			continue
		}
		select {
		case c.send <- pongFrame:
		default:
		}
	}
}

// writePump owns every write on the connection. A failed write cancels the
// read side too.
func (c *Client) writePump(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.write(ctx, frame); err != nil {
				return
			}
		case <-ticker.C:
			pingCtx, done := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pingCtx)
			done()
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) write(ctx context.Context, frame []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, ws.MessageText, frame)
}
