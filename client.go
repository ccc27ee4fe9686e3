package main

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 50
	binaryMarker      = 0xFF
)

// Client represents a WebSocket connection
type Client struct {
	id         string
	hub        *Hub
	game       *Game
	conn       *websocket.Conn
	send       chan []byte
	codec      Codec
	remoteAddr string
	log        *zap.Logger
	msgCount   int
	msgResetAt time.Time
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string, codec Codec) *Client {
	id := uuid.NewString()
	return &Client{
		id:         id,
		hub:        hub,
		game:       hub.game,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		codec:      codec,
		remoteAddr: remoteAddr,
		log:        hub.log.With(zap.String("conn_id", id), zap.String("ip", remoteAddr)),
	}
}

// ID returns the connection identity, which is also the player id
func (c *Client) ID() string {
	return c.id
}

// ReadPump reads commands from the WebSocket connection. The connection
// itself is closed by WritePump once the hub closes the send channel, so
// anything queued before the read loop ends (a join-error) is still flushed.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("ws read error", zap.Error(err))
			}
			return
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			c.log.Warn("rate limit exceeded, disconnecting")
			return
		}

		codec := CodecJSON
		if msgType == websocket.BinaryMessage {
			codec = CodecMsgpack
		}
		if !c.handleMessage(codec, message) {
			return
		}
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// Check for binary marker (0xFF prefix from Send)
			var err error
			if len(message) > 0 && message[0] == binaryMarker {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Send queues an event in this connection's codec. Binary frames are
// prefixed with a marker byte so WritePump can tell them from text.
func (c *Client) Send(msg *Outbound) {
	data, err := msg.Bytes(c.codec)
	if err != nil {
		c.log.Error("encode error", zap.String("type", msg.Env.T), zap.Error(err))
		return
	}
	if c.codec.Binary() {
		framed := make([]byte, len(data)+1)
		framed[0] = binaryMarker
		copy(framed[1:], data)
		data = framed
	}
	c.sendRaw(data)
}

func (c *Client) sendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// handleMessage routes one inbound frame. It returns false when the
// connection should be closed.
func (c *Client) handleMessage(codec Codec, raw []byte) bool {
	var cmd CommandData
	t, err := DecodeFrame(codec, raw, &cmd)
	if err != nil {
		c.log.Debug("malformed frame", zap.String("codec", codec.String()), zap.Error(err))
		return true
	}

	switch t {
	case MsgJoin:
		err = c.game.Join(c.id, cmd.Nickname)
		if reason := JoinErrorReason(err); reason != "" {
			c.log.Info("join rejected", zap.String("reason", reason), zap.String("nickname", cmd.Nickname))
			c.Send(NewOutbound(MsgJoinError, JoinErrorMsg{Reason: reason}))
			return false
		}
	case MsgMove:
		err = c.game.Move(c.id, cmd.Direction)
	case MsgBomb:
		err = c.game.PlaceBomb(c.id)
	case MsgChat:
		err = c.game.Chat(c.id, cmd.Message)
	case MsgLeave:
		return false
	default:
		c.log.Debug("unknown message type", zap.String("type", t))
		return true
	}

	var rej *RejectedError
	if errors.As(err, &rej) {
		c.log.Debug("command rejected", zap.String("cmd", rej.Cmd), zap.Error(rej.Err))
	}
	return true
}
