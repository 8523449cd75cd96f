package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/tableside/community-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		display_name  TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS listings (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS menu_items (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price_cents INTEGER NOT NULL DEFAULT 0,
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id         TEXT PRIMARY KEY,
		direct_key TEXT NOT NULL UNIQUE,
		user_a     TEXT NOT NULL,
		user_b     TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_a) REFERENCES users(id),
		FOREIGN KEY (user_b) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id              TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		sender_id       TEXT NOT NULL,
		receiver_id     TEXT NOT NULL,
		body            TEXT NOT NULL,
		kind            TEXT NOT NULL DEFAULT 'text',
		read            BOOLEAN NOT NULL DEFAULT 0,
		created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (conversation_id) REFERENCES conversations(id),
		FOREIGN KEY (sender_id) REFERENCES users(id),
		FOREIGN KEY (receiver_id) REFERENCES users(id)
	);

	CREATE INDEX IF NOT EXISTS idx_messages_sender   ON messages(sender_id);
	CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages(receiver_id);
	CREATE INDEX IF NOT EXISTS idx_messages_thread   ON messages(conversation_id, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, displayName, passwordHash string) (*store.User, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO users (id, username, display_name, password_hash)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, id, username, displayName, passwordHash); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	query := `
		SELECT id, username, display_name, password_hash, created_at
		FROM users
		WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, display_name, password_hash, created_at
		FROM users
		WHERE username = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, username))
}

// SearchUsers searches users by display name substring.
func (s *SQLiteStore) SearchUsers(ctx context.Context, query string) ([]*store.User, error) {
	stmt := `
		SELECT id, username, display_name, password_hash, created_at
		FROM users
		WHERE display_name LIKE ?
		ORDER BY display_name
		LIMIT 50
	`
	rows, err := s.db.QueryContext(ctx, stmt, "%"+escapeLike(query)+"%")
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	users := make([]*store.User, 0)
	for rows.Next() {
		var u store.User
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var u store.User
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// ==== ListingStore implementation ====

// CreateListing creates a new directory listing for a restaurant.
func (s *SQLiteStore) CreateListing(ctx context.Context, userID, title, description string) (*store.Listing, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO listings (id, user_id, title, description)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, id, userID, title, description); err != nil {
		return nil, fmt.Errorf("insert listing: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, description, created_at
		FROM listings WHERE id = ?
	`, id)

	var l store.Listing
	if err := row.Scan(&l.ID, &l.UserID, &l.Title, &l.Description, &l.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan listing: %w", err)
	}
	return &l, nil
}

// SearchListings searches listings by title substring.
func (s *SQLiteStore) SearchListings(ctx context.Context, query string, limit int) ([]*store.Listing, error) {
	if limit <= 0 {
		limit = 20
	}
	stmt := `
		SELECT id, user_id, title, description, created_at
		FROM listings
		WHERE title LIKE ?
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, stmt, "%"+escapeLike(query)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search listings: %w", err)
	}
	defer rows.Close()

	listings := make([]*store.Listing, 0)
	for rows.Next() {
		var l store.Listing
		if err := rows.Scan(&l.ID, &l.UserID, &l.Title, &l.Description, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		listings = append(listings, &l)
	}
	return listings, rows.Err()
}

// ==== MenuItemStore implementation ====

// CreateMenuItem publishes a menu item to the community board.
func (s *SQLiteStore) CreateMenuItem(ctx context.Context, userID, name, description string, priceCents int64) (*store.MenuItem, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO menu_items (id, user_id, name, description, price_cents)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, id, userID, name, description, priceCents); err != nil {
		return nil, fmt.Errorf("insert menu item: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, description, price_cents, created_at
		FROM menu_items WHERE id = ?
	`, id)

	var m store.MenuItem
	if err := row.Scan(&m.ID, &m.UserID, &m.Name, &m.Description, &m.PriceCents, &m.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan menu item: %w", err)
	}
	return &m, nil
}

// ListMenuItems lists a restaurant's published menu items.
func (s *SQLiteStore) ListMenuItems(ctx context.Context, userID string) ([]*store.MenuItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, description, price_cents, created_at
		FROM menu_items
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	defer rows.Close()

	items := make([]*store.MenuItem, 0)
	for rows.Next() {
		var m store.MenuItem
		if err := rows.Scan(&m.ID, &m.UserID, &m.Name, &m.Description, &m.PriceCents, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		items = append(items, &m)
	}
	return items, rows.Err()
}

// ==== ConversationStore implementation ====

// ResolveConversation finds or creates the conversation for an unordered
// user pair. Safe to call concurrently for the same pair: the UNIQUE
// constraint on direct_key makes the insert race lose gracefully.
func (s *SQLiteStore) ResolveConversation(ctx context.Context, userA, userB string) (*store.Conversation, error) {
	key := store.DirectKey(userA, userB)

	conv, err := s.getConversationByKey(ctx, key)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, direct_key, user_a, user_b)
		VALUES (?, ?, ?, ?)
	`, id, key, userA, userB)
	if err != nil {
		// Lost the insert race; the row exists now.
		if strings.Contains(err.Error(), "UNIQUE") {
			return s.getConversationByKey(ctx, key)
		}
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	return s.getConversationByKey(ctx, key)
}

func (s *SQLiteStore) getConversationByKey(ctx context.Context, key string) (*store.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, direct_key, user_a, user_b, created_at
		FROM conversations
		WHERE direct_key = ?
	`, key)

	var c store.Conversation
	err := row.Scan(&c.ID, &c.DirectKey, &c.UserAID, &c.UserBID, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	return &c, nil
}

// ==== MessageStore implementation ====

const messageViewSelect = `
	SELECT m.id, m.conversation_id, m.sender_id, m.receiver_id,
	       m.body, m.kind, m.read, m.created_at,
	       COALESCE(su.display_name, ''), COALESCE(ru.display_name, '')
	FROM messages m
	LEFT JOIN users su ON su.id = m.sender_id
	LEFT JOIN users ru ON ru.id = m.receiver_id
`

// InsertMessage persists a message, assigning ID and timestamp.
func (s *SQLiteStore) InsertMessage(ctx context.Context, conversationID, senderID, receiverID, body string, kind store.MessageKind) (*store.MessageView, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, receiver_id, body, kind, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?)
	`, id, conversationID, senderID, receiverID, body, string(kind), now)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	return s.getMessageView(ctx, id)
}

// MarkMessageRead flips the read flag of a message by ID.
func (s *SQLiteStore) MarkMessageRead(ctx context.Context, id string) (*store.MessageView, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE messages SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("mark message read: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, store.ErrNotFound
	}

	return s.getMessageView(ctx, id)
}

// ListUserMessages retrieves every message where the user is sender or
// receiver, newest first.
func (s *SQLiteStore) ListUserMessages(ctx context.Context, userID string) ([]*store.MessageView, error) {
	rows, err := s.db.QueryContext(ctx, messageViewSelect+`
		WHERE m.sender_id = ? OR m.receiver_id = ?
		ORDER BY m.created_at DESC, m.id DESC
	`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list user messages: %w", err)
	}
	defer rows.Close()

	return scanMessageViews(rows)
}

// ListThreadMessages retrieves messages of a conversation oldest first.
func (s *SQLiteStore) ListThreadMessages(ctx context.Context, conversationID string, limit int, beforeID *string) ([]*store.MessageView, error) {
	if limit <= 0 {
		limit = 50
	}

	var (
		rows *sql.Rows
		err  error
	)
	if beforeID != nil {
		rows, err = s.db.QueryContext(ctx, messageViewSelect+`
			WHERE m.conversation_id = ?
			  AND m.created_at < (SELECT created_at FROM messages WHERE id = ?)
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT ?
		`, conversationID, *beforeID, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, messageViewSelect+`
			WHERE m.conversation_id = ?
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT ?
		`, conversationID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list thread messages: %w", err)
	}
	defer rows.Close()

	views, err := scanMessageViews(rows)
	if err != nil {
		return nil, err
	}

	// Query walks newest-to-oldest for pagination; callers want oldest first.
	for i, j := 0, len(views)-1; i < j; i, j = i+1, j-1 {
		views[i], views[j] = views[j], views[i]
	}
	return views, nil
}

func (s *SQLiteStore) getMessageView(ctx context.Context, id string) (*store.MessageView, error) {
	row := s.db.QueryRowContext(ctx, messageViewSelect+` WHERE m.id = ?`, id)

	var v store.MessageView
	var kind string
	err := row.Scan(&v.ID, &v.ConversationID, &v.SenderID, &v.ReceiverID,
		&v.Body, &kind, &v.Read, &v.CreatedAt, &v.SenderName, &v.ReceiverName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}
	v.Kind = store.MessageKind(kind)
	return &v, nil
}

func scanMessageViews(rows *sql.Rows) ([]*store.MessageView, error) {
	views := make([]*store.MessageView, 0)
	for rows.Next() {
		var v store.MessageView
		var kind string
		if err := rows.Scan(&v.ID, &v.ConversationID, &v.SenderID, &v.ReceiverID,
			&v.Body, &kind, &v.Read, &v.CreatedAt, &v.SenderName, &v.ReceiverName); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		v.Kind = store.MessageKind(kind)
		views = append(views, &v)
	}
	return views, rows.Err()
}

func escapeLike(q string) string {
	q = strings.ReplaceAll(q, "%", "")
	return strings.ReplaceAll(q, "_", "")
}
