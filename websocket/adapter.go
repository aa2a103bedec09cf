package websocket

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"canvas-sync-server/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendQueueSize  = 256
)

// Conn adapts a gorilla websocket connection to domain.Connection. Send
// enqueues without blocking, so one slow client can never stall a room's
// broadcast loop.
type Conn struct {
	id       string
	roomName string
	ws       *websocket.Conn
	send     chan []byte
	replayQ  chan [][]byte
	relay    domain.Relay
	handler  domain.MessageHandler
}

func NewConn(id, roomName string, ws *websocket.Conn, relay domain.Relay, handler domain.MessageHandler) *Conn {
	return &Conn{
		id:       id,
		roomName: roomName,
		ws:       ws,
		send:     make(chan []byte, sendQueueSize),
		replayQ:  make(chan [][]byte, 1),
		relay:    relay,
		handler:  handler,
	}
}

func (c *Conn) ID() string       { return c.id }
func (c *Conn) RoomName() string { return c.roomName }

// Replay accepts the room history queued at registration. The batch is
// held whole, no matter its size, and the write pump drains it before
// reading the live queue, so replay can never lose frames to a full
// send buffer.
func (c *Conn) Replay(frames [][]byte) {
	select {
	case c.replayQ <- frames:
	default:
	}
}

func (c *Conn) Send(data []byte) error {
	select {
	case c.send <- data:
		return nil
	default:
		return domain.ErrSendBufferFull
	}
}

func (c *Conn) Close() error {
	return c.ws.Close()
}

// Start wires the connection into its room and blocks until it drops.
// The write pump runs before registration so replayed records are
// draining while the first inbound frame is still in flight.
func (c *Conn) Start() {
	go c.writePump()
	c.relay.Register(c)
	c.readPump()
}

// readPump processes this connection's inbound events in arrival order.
func (c *Conn) readPump() {
	defer func() {
		c.relay.Unregister(c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("read error", "room", c.roomName, "clientId", c.id, "error", err)
			}
			return
		}

		c.handler.Handle(c, data)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	// History first. Registration queues the replay batch before any
	// live frame can reach this connection, and the live queue is not
	// read until that batch has been written in full.
	for waiting := true; waiting; {
		select {
		case frames := <-c.replayQ:
			for _, data := range frames {
				c.ws.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			}
			waiting = false
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}

	for {
		select {
		case data, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
