package http

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/tableside/community-server/internal/chat"
	"github.com/tableside/community-server/internal/core"
	"github.com/tableside/community-server/internal/proto"
)

// dispatchInbound decodes one client frame and routes it to the session.
// Returns a protocol error for malformed or rejected frames; transport
// failures surface from the session, not here.
func dispatchInbound(ctx context.Context, session *chat.Session, limiter *rateLimiter, inbound proto.Inbound, pageSize int) *proto.Error {
	switch inbound.Type {
	case proto.InboundTypeOpen:
		var data proto.OpenData
		if err := json.Unmarshal(inbound.Data, &data); err != nil || data.CounterpartyID == "" {
			return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "counterparty_id is required"}
		}
		session.Open(ctx, data.CounterpartyID, pageSize)
		return nil
	case proto.InboundTypeClose:
		session.Close(ctx)
		return nil
	case proto.InboundTypeSend:
		var data proto.SendData
		if err := json.Unmarshal(inbound.Data, &data); err != nil || data.ReceiverID == "" || data.Body == "" {
			return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "receiver_id and body are required"}
		}
		if !limiter.allow() {
			return &proto.Error{Code: core.ErrCodeRateLimited, Msg: "too many messages"}
		}
		session.Send(ctx, data.ReceiverID, data.Body)
		return nil
	case proto.InboundTypeTyping:
		session.Keystroke(ctx)
		return nil
	case proto.InboundTypeScroll:
		var data proto.ScrollData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid scroll payload"}
		}
		session.Scroll(ctx, data.OffsetFromBottom)
		return nil
	case proto.InboundTypeConversations:
		session.Conversations(ctx)
		return nil
	default:
		return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "unknown message type"}
	}
}

// outboundFromUpdate converts a session update into a wire frame.
func outboundFromUpdate(update chat.Update) proto.Outbound {
	switch update.Kind {
	case chat.UpdateThread:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventThread, Data: update.Thread}
	case chat.UpdateConversations:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventConversations, Data: update.Conversations}
	case chat.UpdatePresence:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventPresence, Data: proto.PresenceEvent{Online: update.Online}}
	case chat.UpdateTyping:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventTyping, Data: proto.TypingEvent{
			UserID:   update.Typing.FromUserID,
			IsTyping: update.Typing.IsTyping,
		}}
	case chat.UpdateScroll:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventScroll, Data: proto.ScrollEvent{Behavior: scrollBehavior(update.Scroll)}}
	case chat.UpdateSendFailed:
		code := core.ErrCodeSendFailed
		var ce *core.CoreError
		if errors.As(update.Err, &ce) {
			code = ce.Code
		}
		return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{
			Code: code,
			Msg:  update.Err.Error(),
		}}
	default:
		return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{
			Code: core.ErrCodeBadRequest,
			Msg:  "unknown update kind",
		}}
	}
}

func scrollBehavior(action chat.ScrollAction) string {
	if action == chat.ScrollInstant {
		return "instant"
	}
	return "smooth"
}
