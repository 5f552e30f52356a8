package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/auth"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/dispatch"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/metrics"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/types"
)

const (
	outboxSize   = 64
	readLimit    = 64 << 10
	writeTimeout = 5 * time.Second
	pingInterval = 25 * time.Second
	leaveTimeout = 5 * time.Second
)

// Presence is told when a user gains their first connection or loses their last.
type Presence interface {
	HandleReconnect(ctx context.Context, user auth.User)
	HandleDisconnect(ctx context.Context, user auth.User)
}

type Unsubscriber interface {
	UnsubscribeAll(id string)
}

type Deps struct {
	Auth       auth.Authenticator
	Dispatcher *dispatch.Dispatcher
	Hub        Unsubscriber
	Presence   Presence
	Counter    Counter
	Origins    []string
	Log        *zap.Logger
}

func Handler(d Deps) http.HandlerFunc {
	log := d.Log.With(zap.String("component", "ws"))
	conns := newTracker(d.Counter, log)

	return func(w http.ResponseWriter, r *http.Request) {
		user, err := d.Auth.Authenticate(r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: d.Origins,
		})
		if err != nil {
			log.Debug("accept failed", zap.Error(err))
			return
		}
		defer conn.CloseNow()
		conn.SetReadLimit(readLimit)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		connID := uuid.NewString()
		out := make(chan types.ServerMessage, outboxSize)
		sess := dispatch.NewSession(connID, user, out, cancel)
		clog := log.With(zap.String("conn_id", connID), zap.String("user_id", user.ID))

		metrics.WebsocketConnections.Inc()
		conns.open(ctx, user.ID, func() { d.Presence.HandleReconnect(ctx, user) })
		clog.Debug("connection opened")

		defer func() {
			d.Hub.UnsubscribeAll(connID)
			metrics.WebsocketConnections.Dec()
			lctx, lcancel := context.WithTimeout(context.WithoutCancel(r.Context()), leaveTimeout)
			defer lcancel()
			conns.close(lctx, user.ID, func() { d.Presence.HandleDisconnect(lctx, user) })
			clog.Debug("connection closed")
		}()

		// Writer goroutine
		go func() {
			defer cancel()
			for {
				select {
				case <-ctx.Done():
					return
				case msg := <-out:
					payload, err := json.Marshal(msg)
					if err != nil {
						clog.Error("encode failed", zap.String("type", msg.Type), zap.Error(err))
						continue
					}
					wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
					err = conn.Write(wctx, websocket.MessageText, payload)
					wcancel()
					if err != nil {
						return
					}
				}
			}
		}()

		// Keepalive
		go func() {
			t := time.NewTicker(pingInterval)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					pctx, pcancel := context.WithTimeout(ctx, writeTimeout)
					err := conn.Ping(pctx)
					pcancel()
					if err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					if ctx.Err() == nil {
						clog.Debug("read failed", zap.Error(err))
					}
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				sess.Send(types.ErrorMessage("bad json"))
				continue
			}
			d.Dispatcher.Handle(ctx, sess, cm)
		}
	}
}
