package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	eventParticipantUpdate = "participant:update"
	eventCallCancel        = "call:cancel"

	writeWait = 5 * time.Second
)

type envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type cancelPayload struct {
	CallID  string `json:"callId"`
	AdminID string `json:"adminId"`
}

// WSChannel is a PushChannel over a websocket to the HR backend's event
// endpoint. One connection serves one call.
type WSChannel struct {
	url    string
	dialer *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWSChannel(url string) *WSChannel {
	return &WSChannel{url: url, dialer: websocket.DefaultDialer}
}

// Subscribe dials the event endpoint and pumps participant:update events for
// the given call into handler until detached.
func (w *WSChannel) Subscribe(ctx context.Context, callID string, handler func(ParticipantUpdate)) (func(), error) {
	conn, _, err := w.dialer.DialContext(ctx, fmt.Sprintf("%s?call_id=%s", w.url, callID), nil)
	if err != nil {
		return nil, fmt.Errorf("dial event channel: %w", err)
	}

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var env envelope
			if err := conn.ReadJSON(&env); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					slog.Warn("event channel read failed", "call", callID, "err", err)
				}
				return
			}
			if env.Event != eventParticipantUpdate {
				continue
			}
			var update ParticipantUpdate
			if err := json.Unmarshal(env.Payload, &update); err != nil {
				slog.Warn("bad participant update payload", "call", callID, "err", err)
				continue
			}
			handler(update)
		}
	}()

	var once sync.Once
	detach := func() {
		once.Do(func() {
			w.mu.Lock()
			if w.conn == conn {
				w.conn = nil
			}
			w.mu.Unlock()
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			conn.Close()
			<-done
		})
	}
	return detach, nil
}

// EmitCancel sends call:cancel on the live connection.
func (w *WSChannel) EmitCancel(callID, adminID string) error {
	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("no live event channel for call %s", callID)
	}
	payload, err := json.Marshal(cancelPayload{CallID: callID, AdminID: adminID})
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(envelope{Event: eventCallCancel, Payload: payload})
}
