package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tableside/community-server/internal/store"
)

type memUserStore struct {
	users map[string]*store.User // keyed by username
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*store.User)}
}

func (m *memUserStore) CreateUser(_ context.Context, username, displayName, passwordHash string) (*store.User, error) {
	u := &store.User{
		ID:           uuid.NewString(),
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	m.users[username] = u
	return u, nil
}

func (m *memUserStore) GetUserByID(_ context.Context, id string) (*store.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memUserStore) GetUserByUsername(_ context.Context, username string) (*store.User, error) {
	if u, ok := m.users[username]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (m *memUserStore) SearchUsers(_ context.Context, _ string) ([]*store.User, error) {
	return nil, nil
}

func testJWTConfig() *JWTConfig {
	return &JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "community-server",
		Audience: "community-clients",
		TTL:      time.Hour,
	}
}

func TestRegisterAndValidate(t *testing.T) {
	svc := NewService(newMemUserStore(), testJWTConfig())

	token, err := svc.Register(context.Background(), "spice", "Spice Route", "secret123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Username != "spice" || claims.DisplayName != "Spice Route" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.UserID == "" {
		t.Fatal("claims missing user id")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(newMemUserStore(), testJWTConfig())
	ctx := context.Background()

	cases := []struct {
		name        string
		username    string
		displayName string
		password    string
		wantErr     error
	}{
		{"short username", "ab", "Spice Route", "secret123", ErrInvalidUsername},
		{"empty display name", "spice", "   ", "secret123", ErrInvalidDisplayName},
		{"short password", "spice", "Spice Route", "12345", ErrInvalidPassword},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.username, tc.displayName, tc.password)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc := NewService(newMemUserStore(), testJWTConfig())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "spice", "Spice Route", "secret123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, "spice", "Imposter", "secret123"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc := NewService(newMemUserStore(), testJWTConfig())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "spice", "Spice Route", "secret123"); err != nil {
		t.Fatalf("register: %v", err)
	}

	token, err := svc.Login(ctx, "spice", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.ValidateToken(token); err != nil {
		t.Fatalf("validate login token: %v", err)
	}

	if _, err := svc.Login(ctx, "spice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	cfg := testJWTConfig()
	token, err := GenerateToken(cfg, "u1", "spice", "Spice Route")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	other := testJWTConfig()
	other.Secret = []byte("different-secret")
	if _, err := ValidateToken(other, token); err == nil {
		t.Fatal("expected validation failure with wrong secret")
	}
}

func TestValidateTokenRejectsWrongIssuer(t *testing.T) {
	cfg := testJWTConfig()
	token, err := GenerateToken(cfg, "u1", "spice", "Spice Route")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	other := testJWTConfig()
	other.Issuer = "someone-else"
	if _, err := ValidateToken(other, token); err == nil {
		t.Fatal("expected validation failure with wrong issuer")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	cfg.TTL = -time.Minute
	token, err := GenerateToken(cfg, "u1", "spice", "Spice Route")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := ValidateToken(cfg, token); err == nil {
		t.Fatal("expected validation failure for expired token")
	}
}
