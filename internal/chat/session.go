package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/tableside/community-server/internal/core"
	"github.com/tableside/community-server/internal/notify"
	"github.com/tableside/community-server/internal/store"
	"github.com/tableside/community-server/internal/utils"
)

// SessionStore is the persistence surface a session needs.
type SessionStore interface {
	SendStore
	GetUserByID(ctx context.Context, id string) (*store.User, error)
	MarkMessageRead(ctx context.Context, id string) (*store.MessageView, error)
	ListUserMessages(ctx context.Context, userID string) ([]*store.MessageView, error)
	ListThreadMessages(ctx context.Context, conversationID string, limit int, beforeID *string) ([]*store.MessageView, error)
}

// UpdateKind tags a session update pushed to the consumer.
type UpdateKind int

const (
	// UpdateThread carries a fresh snapshot of the open thread.
	UpdateThread UpdateKind = iota
	// UpdateConversations carries the aggregated conversation overview.
	UpdateConversations
	// UpdatePresence carries the online set.
	UpdatePresence
	// UpdateTyping mirrors the last typing signal from the open chat's
	// counterparty.
	UpdateTyping
	// UpdateScroll tells the viewport to move.
	UpdateScroll
	// UpdateSendFailed reports a failed send after its optimistic entry
	// was removed. The consumer surfaces it and may retry.
	UpdateSendFailed
)

// Update is one state change pushed to the session's consumer.
type Update struct {
	Kind          UpdateKind
	Thread        []Message
	Conversations []Conversation
	Online        []string
	Typing        *core.TypingSignal
	Scroll        ScrollAction
	Err           error
}

// Session drives the chat engine for one connected user. A single
// goroutine (Run) owns the pipeline, presence set, and viewport; all
// mutation happens there, interleaving realtime events with commands
// enqueued by the transport. There is no locking because there is no
// shared mutation, only this one loop.
type Session struct {
	userID      string
	displayName string

	hub      *core.Hub
	store    SessionStore
	pipeline *Pipeline
	sender   *Sender
	presence *Presence
	viewport *Viewport
	typing   *TypingBroadcaster

	sub     *core.Subscriber
	tasks   chan func()
	updates chan Update
	log     *zerolog.Logger
}

// SessionConfig tunes a session.
type SessionConfig struct {
	TypingIdle      time.Duration
	HistoryPageSize int
}

// NewSession builds a session for a user. sink receives in-app
// notifications and sound triggers.
func NewSession(user *store.User, hub *core.Hub, st SessionStore, sink notify.Sink, cfg SessionConfig, logger *zerolog.Logger) *Session {
	pipeline := NewPipeline(user.ID, sink, logger)
	s := &Session{
		userID:      user.ID,
		displayName: user.DisplayName,
		hub:         hub,
		store:       st,
		pipeline:    pipeline,
		sender:      NewSender(user.ID, user.DisplayName, st, pipeline, logger),
		presence:    NewPresence(),
		viewport:    NewViewport(),
		sub:         core.NewSubscriber(utils.NewTempID(), user.ID),
		tasks:       make(chan func(), 32),
		updates:     make(chan Update, 64),
		log:         logger,
	}
	s.typing = NewTypingBroadcaster(user.ID, cfg.TypingIdle, hub.BroadcastTyping)
	return s
}

// Updates returns the stream of state changes for the consumer. Closed
// when Run returns.
func (s *Session) Updates() <-chan Update {
	return s.updates
}

// Run subscribes to the realtime layer, loads history, and processes
// events and commands until the context is cancelled.
func (s *Session) Run(ctx context.Context) {
	s.hub.Subscribe(s.sub)
	s.hub.Track(s.userID)
	defer func() {
		s.typing.Cancel()
		s.hub.Untrack(s.userID)
		s.hub.Unsubscribe(s.sub)
		close(s.updates)
	}()

	if err := s.loadHistory(ctx); err != nil {
		s.log.Error().Err(err).Str("user_id", s.userID).Msg("load message history")
	}
	s.push(ctx, Update{Kind: UpdateConversations, Conversations: s.pipeline.Conversations()})

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.sub.Events:
			s.handleEvent(ctx, ev)
		case task := <-s.tasks:
			task()
		}
	}
}

func (s *Session) loadHistory(ctx context.Context) error {
	views, err := s.store.ListUserMessages(ctx, s.userID)
	if err != nil {
		return err
	}
	messages := make([]Message, 0, len(views))
	for _, v := range views {
		messages = append(messages, FromView(v, s.userID))
	}
	s.pipeline.LoadFlat(messages)
	return nil
}

func (s *Session) handleEvent(ctx context.Context, ev *core.Event) {
	switch ev.Kind {
	case core.EventMessageInserted:
		m := FromView(ev.Message, s.userID)
		receipts := s.pipeline.ApplyInsert(m)
		s.afterThreadChange(ctx)
		s.push(ctx, Update{Kind: UpdateConversations, Conversations: s.pipeline.Conversations()})
		s.sendReceipts(ctx, receipts)
	case core.EventMessageUpdated:
		s.pipeline.ApplyUpdate(FromView(ev.Message, s.userID))
		s.push(ctx, Update{Kind: UpdateThread, Thread: s.pipeline.Thread()})
		s.push(ctx, Update{Kind: UpdateConversations, Conversations: s.pipeline.Conversations()})
	case core.EventPresenceSync:
		s.presence.ApplySync(ev.Online)
		s.push(ctx, Update{Kind: UpdatePresence, Online: s.presence.Snapshot()})
	case core.EventTyping:
		// Level, not edge: honored only from the open chat's
		// counterparty, and the consumer mirrors the last boolean.
		if ev.Typing != nil && ev.Typing.FromUserID == s.pipeline.OpenWith() {
			s.push(ctx, Update{Kind: UpdateTyping, Typing: ev.Typing})
		}
	}
}

// Open opens the chat with a counterparty, loading thread history and
// acknowledging unread incoming messages.
func (s *Session) Open(ctx context.Context, counterpartyID string, pageSize int) {
	s.enqueue(ctx, func() {
		conv, err := s.store.ResolveConversation(ctx, s.userID, counterpartyID)
		if err != nil {
			s.log.Error().Err(err).Str("counterparty", counterpartyID).Msg("resolve conversation on open")
			return
		}

		views, err := s.store.ListThreadMessages(ctx, conv.ID, pageSize, nil)
		if err != nil {
			s.log.Error().Err(err).Str("conversation_id", conv.ID).Msg("load thread history")
			return
		}

		history := make([]Message, 0, len(views))
		for _, v := range views {
			history = append(history, FromView(v, s.userID))
		}

		receipts := s.pipeline.OpenThread(counterpartyID, history)
		scroll := s.viewport.OnOpen(len(history))

		s.push(ctx, Update{Kind: UpdateThread, Thread: s.pipeline.Thread()})
		s.push(ctx, Update{Kind: UpdateScroll, Scroll: scroll})
		s.push(ctx, Update{Kind: UpdateConversations, Conversations: s.pipeline.Conversations()})
		s.sendReceipts(ctx, receipts)
	})
}

// Close closes the open chat.
func (s *Session) Close(ctx context.Context) {
	s.enqueue(ctx, func() {
		s.typing.Cancel()
		s.pipeline.CloseThread()
		s.push(ctx, Update{Kind: UpdateThread, Thread: nil})
	})
}

// Send runs an optimistic send to a counterparty. The "sending" entry is
// visible in the next thread update; persistence happens off the loop so
// realtime merging never stalls behind a slow insert.
func (s *Session) Send(ctx context.Context, receiverID, body string) {
	s.enqueue(ctx, func() {
		receiverName := s.resolveName(ctx, receiverID)
		pending := s.sender.Begin(receiverID, receiverName, body)
		thread := s.pipeline.Thread()
		s.push(ctx, Update{Kind: UpdateThread, Thread: thread})
		if scroll := s.viewport.OnMessages(len(thread)); scroll != ScrollNone {
			s.push(ctx, Update{Kind: UpdateScroll, Scroll: scroll})
		}

		go func() {
			view, err := s.sender.Persist(ctx, pending)
			s.enqueue(ctx, func() {
				if _, err := s.sender.Finish(pending, view, err); err != nil {
					s.push(ctx, Update{Kind: UpdateThread, Thread: s.pipeline.Thread()})
					s.push(ctx, Update{Kind: UpdateSendFailed, Err: err})
					return
				}
				s.hub.PublishInsert(view)
				s.afterThreadChange(ctx)
				s.push(ctx, Update{Kind: UpdateConversations, Conversations: s.pipeline.Conversations()})
			})
		}()
	})
}

// Keystroke broadcasts a typing signal to the open chat's counterparty.
// Ignored when no chat is open.
func (s *Session) Keystroke(ctx context.Context) {
	s.enqueue(ctx, func() {
		if to := s.pipeline.OpenWith(); to != "" {
			s.typing.Keystroke(to)
		}
	})
}

// Scroll records the viewport position reported by the client.
func (s *Session) Scroll(ctx context.Context, offsetFromBottom float64) {
	s.enqueue(ctx, func() {
		s.viewport.ObserveScroll(offsetFromBottom)
	})
}

// Conversations pushes a fresh conversation overview.
func (s *Session) Conversations(ctx context.Context) {
	s.enqueue(ctx, func() {
		s.push(ctx, Update{Kind: UpdateConversations, Conversations: s.pipeline.Conversations()})
	})
}

func (s *Session) afterThreadChange(ctx context.Context) {
	thread := s.pipeline.Thread()
	s.push(ctx, Update{Kind: UpdateThread, Thread: thread})
	if scroll := s.viewport.OnMessages(len(thread)); scroll != ScrollNone {
		s.push(ctx, Update{Kind: UpdateScroll, Scroll: scroll})
	}
}

// sendReceipts acknowledges messages read, best-effort: failures are
// logged and never surfaced, read state is not critical to correctness.
func (s *Session) sendReceipts(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	go func() {
		for _, id := range ids {
			view, err := s.store.MarkMessageRead(ctx, id)
			if err != nil {
				s.log.Warn().Err(err).Str("message_id", id).Msg("read receipt failed")
				continue
			}
			s.hub.PublishUpdate(view)
		}
	}()
}

func (s *Session) resolveName(ctx context.Context, userID string) string {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return ""
	}
	return user.DisplayName
}

func (s *Session) enqueue(ctx context.Context, task func()) {
	select {
	case s.tasks <- task:
	case <-ctx.Done():
	}
}

func (s *Session) push(ctx context.Context, u Update) {
	select {
	case s.updates <- u:
	case <-ctx.Done():
	}
}
