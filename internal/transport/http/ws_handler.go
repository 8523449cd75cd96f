package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/tableside/community-server/internal/auth"
	"github.com/tableside/community-server/internal/chat"
	"github.com/tableside/community-server/internal/config"
	"github.com/tableside/community-server/internal/core"
	"github.com/tableside/community-server/internal/notify"
	"github.com/tableside/community-server/internal/proto"
	"github.com/tableside/community-server/internal/store"
)

// WSHandler upgrades HTTP connections and bridges them to a chat session.
type WSHandler struct {
	hub         *core.Hub
	authService *auth.Service
	store       store.Store
	cfg         *config.Config
	log         *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, authService *auth.Service, st store.Store, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{
		hub:         hub,
		authService: authService,
		store:       st,
		cfg:         cfg,
		log:         logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	user, err := h.authenticate(ctx, r)
	if err != nil {
		h.log.Debug().Err(err).Msg("ws auth failed")
		stdhttp.Error(w, "unauthorized", stdhttp.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sink := newWSSink()
	session := chat.NewSession(user, h.hub, h.store, sink, chat.SessionConfig{
		TypingIdle:      h.cfg.TypingIdle,
		HistoryPageSize: h.cfg.HistoryPageSize,
	}, h.log)
	go session.Run(ctx)

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, session, sink, user)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, session, sink)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("user_id", user.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// authenticate resolves the connecting user from a bearer token passed
// either as an Authorization header or a token query parameter.
func (h *WSHandler) authenticate(ctx context.Context, r *stdhttp.Request) (*store.User, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		header := r.Header.Get("Authorization")
		if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
			token = parts[1]
		}
	}
	if token == "" {
		return nil, errors.New("missing token")
	}

	claims, err := h.authService.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	return h.store.GetUserByID(ctx, claims.UserID)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *chat.Session, sink *wsSink, user *store.User) error {
	limiter := newRateLimiter(h.cfg.MessageRateLimit)
	defer limiter.stop()

	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		// Notification-tray frames act on the connection's sink, not the
		// chat session.
		switch inbound.Type {
		case proto.InboundTypeNotifications:
			sink.emit(proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventNotifications, Data: sink.list.Items()})
			continue
		case proto.InboundTypeNotificationsRead:
			sink.list.MarkAllRead()
			continue
		}

		protoErr := dispatchInbound(ctx, session, limiter, inbound, h.cfg.HistoryPageSize)
		if protoErr != nil {
			h.log.Debug().Str("user_id", user.ID).Str("type", inbound.Type).Str("code", protoErr.Code).Msg("rejected inbound frame")
			if writeErr := wsjson.Write(ctx, conn, proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: protoErr,
			}); writeErr != nil {
				return writeErr
			}
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, session *chat.Session, sink *wsSink) error {
	for {
		select {
		case update, ok := <-session.Updates():
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromUpdate(update)); err != nil {
				return err
			}
		case frame := <-sink.frames:
			if err := wsjson.Write(ctx, conn, frame); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// wsSink forwards notification-sink calls to the client as frames while
// keeping the in-app list for dedupe.
type wsSink struct {
	list   *notify.List
	frames chan proto.Outbound
}

func newWSSink() *wsSink {
	return &wsSink{
		list:   notify.NewList(),
		frames: make(chan proto.Outbound, 16),
	}
}

func (s *wsSink) Add(n notify.Notification) bool {
	if !s.list.Add(n) {
		return false
	}
	s.emit(proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventNotification, Data: n})
	return true
}

func (s *wsSink) PlaySound() {
	s.list.PlaySound()
	s.emit(proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventSound})
}

func (s *wsSink) emit(frame proto.Outbound) {
	select {
	case s.frames <- frame:
	default:
		// Drop if slow consumer; notifications are best-effort.
	}
}
