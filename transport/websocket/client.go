package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wricardo/tictactoe-relay/game/service"
)

var (
	ErrMalformedFrame = errors.New("malformed message")
	ErrUnknownEvent   = errors.New("unknown event")
)

// readPump pumps frames from the connection into the game service
func (c *Client) readPump() {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.service.Disconnect(context.Background(), c.id)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read failed",
					zap.String("participant", c.id),
					zap.Error(err),
				)
			}
			break
		}

		if err := c.dispatch(ctx, raw); err != nil {
			c.hub.logger.Debug("frame not applied",
				zap.String("participant", c.id),
				zap.Error(err),
			)
		}
	}
}

// dispatch decodes one inbound frame and applies it. Decoding failures are
// reported to the sender here; service rejections are reported by the service.
func (c *Client) dispatch(ctx context.Context, raw []byte) error {
	var env Envelope
	if err := json.Unmarshal(bytes.TrimSpace(raw), &env); err != nil || env.Event == "" {
		return c.fail(ErrMalformedFrame)
	}

	switch env.Event {
	case service.EventCreateGame, service.EventJoinGame, service.EventResetGame:
		roomID, err := decodeRoomID(env.Data)
		if err != nil {
			return c.fail(err)
		}
		switch env.Event {
		case service.EventCreateGame:
			return c.service.CreateGame(ctx, c.id, roomID)
		case service.EventJoinGame:
			return c.service.JoinGame(ctx, c.id, roomID)
		default:
			return c.service.ResetGame(ctx, c.id, roomID)
		}

	case service.EventMakeMove:
		move, err := decodeMove(env.Data)
		if err != nil {
			return c.fail(err)
		}
		return c.service.MakeMove(ctx, c.id, move)
	}

	return c.fail(fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event))
}

func (c *Client) fail(err error) error {
	c.hub.Send(c.id, service.EventError, err.Error())
	return err
}

// decodeRoomID accepts either a bare JSON string or {"roomId": "..."}.
func decodeRoomID(data json.RawMessage) (string, error) {
	var roomID string
	if err := json.Unmarshal(data, &roomID); err == nil {
		return roomID, nil
	}

	var wrapped struct {
		RoomID string `json:"roomId"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return "", fmt.Errorf("%w: room ID must be a string", ErrMalformedFrame)
	}
	return wrapped.RoomID, nil
}

func decodeMove(data json.RawMessage) (service.Move, error) {
	var payload struct {
		RoomID string `json:"roomId"`
		Index  *int   `json:"index"`
		Symbol string `json:"symbol"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return service.Move{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if payload.Index == nil {
		return service.Move{}, fmt.Errorf("%w: index is required", ErrMalformedFrame)
	}
	return service.Move{RoomID: payload.RoomID, Index: *payload.Index, Symbol: payload.Symbol}, nil
}

// writePump pumps frames from the hub to the connection
func (c *Client) writePump() {
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
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
