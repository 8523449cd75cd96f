package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/tableside/community-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCreateUser(t *testing.T, s *SQLiteStore, username, displayName string) *store.User {
	t.Helper()

	u, err := s.CreateUser(context.Background(), username, displayName, "hash")
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func TestUserRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := mustCreateUser(t, s, "spice", "Spice Route")

	byID, err := s.GetUserByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID.Username != "spice" || byID.DisplayName != "Spice Route" {
		t.Fatalf("unexpected user: %+v", byID)
	}

	byName, err := s.GetUserByUsername(ctx, "spice")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if byName.ID != created.ID {
		t.Fatalf("username lookup returned different user")
	}

	if _, err := s.GetUserByID(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	s := newTestStore(t)

	mustCreateUser(t, s, "spice", "Spice Route")
	if _, err := s.CreateUser(context.Background(), "spice", "Imposter", "hash"); err == nil {
		t.Fatal("expected error on duplicate username")
	}
}

func TestSearchUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreateUser(t, s, "spice", "Spice Route")
	mustCreateUser(t, s, "tandoori", "Tandoori House")
	mustCreateUser(t, s, "noodle", "Noodle Bar")

	found, err := s.SearchUsers(ctx, "oo")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(found))
	}
	// Ordered by display name.
	if found[0].DisplayName != "Noodle Bar" || found[1].DisplayName != "Tandoori House" {
		t.Fatalf("unexpected order: %s, %s", found[0].DisplayName, found[1].DisplayName)
	}
}

func TestResolveConversationIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustCreateUser(t, s, "a", "A")
	b := mustCreateUser(t, s, "b", "B")

	first, err := s.ResolveConversation(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// Same pair in either argument order returns the same row.
	again, err := s.ResolveConversation(ctx, b.ID, a.ID)
	if err != nil {
		t.Fatalf("resolve reversed: %v", err)
	}
	if again.ID != first.ID {
		t.Fatalf("resolve not idempotent: %s vs %s", first.ID, again.ID)
	}
	if again.DirectKey != store.DirectKey(a.ID, b.ID) {
		t.Fatalf("unexpected direct key: %s", again.DirectKey)
	}
}

func TestMessageLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustCreateUser(t, s, "a", "Spice Route")
	b := mustCreateUser(t, s, "b", "Tandoori House")
	conv, err := s.ResolveConversation(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	msg, err := s.InsertMessage(ctx, conv.ID, a.ID, b.ID, "Hello", store.MessageKindText)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if msg.ID == "" || msg.CreatedAt.IsZero() {
		t.Fatalf("insert did not assign id and timestamp: %+v", msg)
	}
	if msg.SenderName != "Spice Route" || msg.ReceiverName != "Tandoori House" {
		t.Fatalf("names not resolved: %q / %q", msg.SenderName, msg.ReceiverName)
	}
	if msg.Read {
		t.Fatal("new message must start unread")
	}

	read, err := s.MarkMessageRead(ctx, msg.ID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !read.Read {
		t.Fatal("read flag not set")
	}

	if _, err := s.MarkMessageRead(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListUserMessagesNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustCreateUser(t, s, "a", "A")
	b := mustCreateUser(t, s, "b", "B")
	c := mustCreateUser(t, s, "c", "C")
	convAB, _ := s.ResolveConversation(ctx, a.ID, b.ID)
	convBC, _ := s.ResolveConversation(ctx, b.ID, c.ID)

	if _, err := s.InsertMessage(ctx, convAB.ID, a.ID, b.ID, "first", store.MessageKindText); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := s.InsertMessage(ctx, convAB.ID, b.ID, a.ID, "second", store.MessageKindText); err != nil {
		t.Fatalf("insert: %v", err)
	}
	// Not visible to A.
	if _, err := s.InsertMessage(ctx, convBC.ID, b.ID, c.ID, "other", store.MessageKindText); err != nil {
		t.Fatalf("insert: %v", err)
	}

	views, err := s.ListUserMessages(ctx, a.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 messages for A, got %d", len(views))
	}
	if views[0].Body != "second" || views[1].Body != "first" {
		t.Fatalf("not newest first: %q, %q", views[0].Body, views[1].Body)
	}
}

func TestListThreadMessagesPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustCreateUser(t, s, "a", "A")
	b := mustCreateUser(t, s, "b", "B")
	conv, _ := s.ResolveConversation(ctx, a.ID, b.ID)

	bodies := []string{"one", "two", "three", "four", "five"}
	for _, body := range bodies {
		if _, err := s.InsertMessage(ctx, conv.ID, a.ID, b.ID, body, store.MessageKindText); err != nil {
			t.Fatalf("insert %s: %v", body, err)
		}
	}

	// Latest page, oldest first within the page.
	page, err := s.ListThreadMessages(ctx, conv.ID, 2, nil)
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if len(page) != 2 || page[0].Body != "four" || page[1].Body != "five" {
		t.Fatalf("unexpected latest page: %+v", bodiesOf(page))
	}

	// Page before the oldest of the previous page.
	older, err := s.ListThreadMessages(ctx, conv.ID, 2, &page[0].ID)
	if err != nil {
		t.Fatalf("list older page: %v", err)
	}
	if len(older) != 2 || older[0].Body != "two" || older[1].Body != "three" {
		t.Fatalf("unexpected older page: %+v", bodiesOf(older))
	}
}

func bodiesOf(views []*store.MessageView) []string {
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.Body
	}
	return out
}
