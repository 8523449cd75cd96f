package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors shared by all store implementations.
var (
	ErrNotFound = errors.New("not found")
)

// User represents a restaurant account.
type User struct {
	ID           string
	Username     string
	DisplayName  string // restaurant name shown to counterparties
	PasswordHash string
	CreatedAt    time.Time
}

// Listing is a restaurant's entry in the community directory.
type Listing struct {
	ID          string
	UserID      string
	Title       string
	Description string
	CreatedAt   time.Time
}

// MenuItem is a dish shared to the community board.
type MenuItem struct {
	ID          string
	UserID      string
	Name        string
	Description string
	PriceCents  int64
	CreatedAt   time.Time
}

// Conversation is the persisted grouping row for a direct-message pair.
// The pair is unordered: DirectKey is derived from the two user IDs so
// that resolving (a, b) and (b, a) lands on the same row.
type Conversation struct {
	ID        string
	DirectKey string
	UserAID   string
	UserBID   string
	CreatedAt time.Time
}

// MessageKind enumerates message payload kinds. Only text exists today.
type MessageKind string

const (
	MessageKindText MessageKind = "text"
)

// Message is a persisted direct message.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	ReceiverID     string
	Body           string
	Kind           MessageKind
	Read           bool
	CreatedAt      time.Time
}

// MessageView is a message joined with both participants' display names,
// the shape the query API hands to clients.
type MessageView struct {
	Message
	SenderName   string
	ReceiverName string
}

// UserStore handles account persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, displayName, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// SearchUsers searches users by display name substring.
	SearchUsers(ctx context.Context, query string) ([]*User, error)
}

// ListingStore handles community directory persistence.
type ListingStore interface {
	// CreateListing creates a new directory listing for a restaurant.
	CreateListing(ctx context.Context, userID, title, description string) (*Listing, error)

	// SearchListings searches listings by title substring. An empty query
	// returns the most recent listings.
	SearchListings(ctx context.Context, query string, limit int) ([]*Listing, error)
}

// MenuItemStore handles community menu board persistence.
type MenuItemStore interface {
	// CreateMenuItem publishes a menu item to the community board.
	CreateMenuItem(ctx context.Context, userID, name, description string, priceCents int64) (*MenuItem, error)

	// ListMenuItems lists a restaurant's published menu items.
	ListMenuItems(ctx context.Context, userID string) ([]*MenuItem, error)
}

// ConversationStore handles conversation persistence.
type ConversationStore interface {
	// ResolveConversation finds or creates the conversation for an
	// unordered user pair. Calling it twice for the same pair returns
	// the same conversation ID.
	ResolveConversation(ctx context.Context, userA, userB string) (*Conversation, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// InsertMessage persists a message. ID and CreatedAt are assigned by
	// the store and written back into the returned view.
	InsertMessage(ctx context.Context, conversationID, senderID, receiverID, body string, kind MessageKind) (*MessageView, error)

	// MarkMessageRead flips the read flag of a message by ID and returns
	// the updated view.
	MarkMessageRead(ctx context.Context, id string) (*MessageView, error)

	// ListUserMessages retrieves every message where the user is sender
	// or receiver, newest first, with display names resolved.
	ListUserMessages(ctx context.Context, userID string) ([]*MessageView, error)

	// ListThreadMessages retrieves messages of a conversation oldest
	// first, with display names resolved. If beforeID is non-nil only
	// messages older than it are returned; limit caps the page size.
	ListThreadMessages(ctx context.Context, conversationID string, limit int, beforeID *string) ([]*MessageView, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ListingStore
	MenuItemStore
	ConversationStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}

// DirectKey derives the stable grouping key for an unordered user pair.
func DirectKey(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return "dm:" + userA + ":" + userB
}
