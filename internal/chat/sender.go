package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/tableside/community-server/internal/core"
	"github.com/tableside/community-server/internal/store"
	"github.com/tableside/community-server/internal/utils"
)

// SendStore is the persistence surface the send engine needs.
type SendStore interface {
	ResolveConversation(ctx context.Context, userA, userB string) (*store.Conversation, error)
	InsertMessage(ctx context.Context, conversationID, senderID, receiverID, body string, kind store.MessageKind) (*store.MessageView, error)
}

// Sender is the optimistic send engine. Send guarantees the open thread
// reflects the outgoing message immediately, regardless of persistence
// latency: a temporary entry in status "sending" appears first and is
// reconciled once the store answers.
type Sender struct {
	selfID   string
	selfName string
	store    SendStore
	pipeline *Pipeline
	log      *zerolog.Logger
}

// NewSender builds a send engine bound to a pipeline.
func NewSender(selfID, selfName string, st SendStore, pipeline *Pipeline, logger *zerolog.Logger) *Sender {
	return &Sender{
		selfID:   selfID,
		selfName: selfName,
		store:    st,
		pipeline: pipeline,
		log:      logger,
	}
}

// PendingSend tracks one in-flight optimistic send. The temporary ID is
// never reused by the server, so concurrent sends to the same
// counterparty cannot collide even when responses arrive out of order.
type PendingSend struct {
	TempID       string
	ReceiverID   string
	ReceiverName string
	Body         string
}

// Begin appends the optimistic "sending" entry to the open thread and
// returns the pending-send handle. Must run on the loop that owns the
// pipeline.
func (s *Sender) Begin(receiverID, receiverName, body string) PendingSend {
	pending := PendingSend{
		TempID:       utils.NewTempID(),
		ReceiverID:   receiverID,
		ReceiverName: receiverName,
		Body:         body,
	}

	// Sends to a counterparty whose chat is not open skip the optimistic
	// entry; the flat list picks the message up on reconcile.
	if s.pipeline.OpenWith() != receiverID {
		return pending
	}

	s.pipeline.AppendOptimistic(Message{
		ID:           pending.TempID,
		SenderID:     s.selfID,
		ReceiverID:   receiverID,
		SenderName:   s.selfName,
		ReceiverName: receiverName,
		Body:         body,
		Kind:         store.MessageKindText,
		Status:       StatusSending,
		CreatedAt:    time.Now(),
	})
	return pending
}

// Persist resolves the conversation for the pair and inserts the
// message. It touches no engine state, so it may run off the loop while
// the optimistic entry stays visible.
func (s *Sender) Persist(ctx context.Context, pending PendingSend) (*store.MessageView, error) {
	conv, err := s.store.ResolveConversation(ctx, s.selfID, pending.ReceiverID)
	if err != nil {
		return nil, fmt.Errorf("resolve conversation: %w", err)
	}

	view, err := s.store.InsertMessage(ctx, conv.ID, s.selfID, pending.ReceiverID, pending.Body, store.MessageKindText)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return view, nil
}

// Finish reconciles the optimistic entry. On success the temporary entry
// is replaced by the persisted record in status "sent". On failure it is
// removed entirely and the error propagates to the caller, which may
// re-invoke Send to retry. Must run on the loop that owns the pipeline.
func (s *Sender) Finish(pending PendingSend, view *store.MessageView, err error) (Message, error) {
	if err != nil {
		s.pipeline.DropOptimistic(pending.TempID)
		s.log.Warn().Err(err).Str("temp_id", pending.TempID).Msg("send failed, optimistic entry removed")
		return Message{}, &core.CoreError{Code: core.ErrCodeSendFailed, Message: "send failed", Err: err}
	}

	persisted := FromView(view, s.selfID)
	persisted.Status = StatusSent
	s.pipeline.ResolveOptimistic(pending.TempID, persisted)
	return persisted, nil
}

// Send runs the full optimistic cycle synchronously: append the
// "sending" entry, persist, reconcile.
func (s *Sender) Send(ctx context.Context, receiverID, receiverName, body string) (Message, error) {
	pending := s.Begin(receiverID, receiverName, body)
	view, err := s.Persist(ctx, pending)
	return s.Finish(pending, view, err)
}
