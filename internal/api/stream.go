package api

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gyaneshwarpardhi/paperatlas/internal/event"
	"github.com/gyaneshwarpardhi/paperatlas/internal/metrics"
	"github.com/gyaneshwarpardhi/paperatlas/internal/render"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMessage = 64 << 10
)

// streamReply is a JSON text message sent back for a command or a rejected event.
// Frames go out as SVG text messages.
type streamReply struct {
	Kind string `json:"kind"`
	eventResult
}

// GET /v1/sessions/{id}/ws streams SVG frames and accepts input events.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	first, err := s.Snapshot(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "session", s.ID(), "err", err)
		return
	}
	frames, unsubscribe := s.Subscribe()
	defer unsubscribe()

	replies := make(chan streamReply, 16)
	done := make(chan struct{})
	defer close(done)
	go writeLoop(conn, first, frames, replies, done)

	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx := r.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("websocket read ended", "session", s.ID(), "err", err)
			}
			return
		}
		events, err := event.Decode(data)
		if err != nil {
			send(replies, streamReply{Kind: "error", eventResult: eventResult{Error: err.Error()}})
			continue
		}
		for _, res := range h.apply(ctx, s, events) {
			switch {
			case res.Error != "":
				send(replies, streamReply{Kind: "error", eventResult: res})
			case res.Result != nil:
				send(replies, streamReply{Kind: "result", eventResult: res})
			}
		}
	}
}

// send drops the reply when the writer is backed up.
func send(replies chan<- streamReply, msg streamReply) {
	select {
	case replies <- msg:
	default:
	}
}

func writeLoop(conn *websocket.Conn, first render.Frame, frames <-chan render.Frame, replies <-chan streamReply, done <-chan struct{}) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	defer conn.Close()

	var buf bytes.Buffer
	writeFrame := func(f render.Frame) error {
		buf.Reset()
		if err := render.EncodeSVG(&buf, f); err != nil {
			return err
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, buf.Bytes()); err != nil {
			return err
		}
		metrics.FramesRendered.WithLabelValues("ws").Inc()
		return nil
	}
	closeWith := func(code int, text string) {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
	}

	if err := writeFrame(first); err != nil {
		return
	}
	for {
		select {
		case <-done:
			closeWith(websocket.CloseNormalClosure, "")
			return
		case f, ok := <-frames:
			if !ok {
				closeWith(websocket.CloseGoingAway, "session closed")
				return
			}
			if err := writeFrame(f); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					slog.Debug("websocket frame write failed", "err", err)
				}
				return
			}
		case msg := <-replies:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
