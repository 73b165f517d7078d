// AngelaMos | 2026
// fakes_test.go

package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/quizforge/internal/config"
	"github.com/carterperez-dev/quizforge/internal/core"
)

type oneTime struct {
	userID    string
	expiresAt time.Time
}

type memRepo struct {
	mu       sync.Mutex
	refresh  map[string]*RefreshToken
	oneTimes map[oneTimeKind]map[string]oneTime
}

func newMemRepo() *memRepo {
	return &memRepo{
		refresh: map[string]*RefreshToken{},
		oneTimes: map[oneTimeKind]map[string]oneTime{
			kindVerification:  {},
			kindPasswordReset: {},
		},
	}
}

func (m *memRepo) Create(_ context.Context, t *RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = uuid.New().String()
	t.CreatedAt = time.Now()
	cp := *t
	m.refresh[t.TokenHash] = &cp
	return nil
}

func (m *memRepo) FindValidByHash(_ context.Context, hash string) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.refresh[hash]
	if !ok || t.Revoked || time.Now().After(t.ExpiresAt) {
		return nil, fmt.Errorf("find: %w", core.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (m *memRepo) Revoke(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.refresh[hash]; ok && !t.Revoked {
		now := time.Now()
		t.Revoked = true
		t.RevokedAt = &now
	}
	return nil
}

func (m *memRepo) RevokeAllForUser(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, t := range m.refresh {
		if t.UserID == userID && !t.Revoked {
			t.Revoked = true
			n++
		}
	}
	return n, nil
}

func (m *memRepo) put(kind oneTimeKind, userID, hash string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.oneTimes[kind][hash] = oneTime{userID: userID, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (m *memRepo) take(kind oneTimeKind, hash string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.oneTimes[kind][hash]
	if !ok || time.Now().After(t.expiresAt) {
		return "", fmt.Errorf("consume: %w", core.ErrNotFound)
	}
	delete(m.oneTimes[kind], hash)
	return t.userID, nil
}

func (m *memRepo) CreateVerification(_ context.Context, userID, hash string, ttl time.Duration) error {
	return m.put(kindVerification, userID, hash, ttl)
}

func (m *memRepo) ConsumeVerification(_ context.Context, hash string) (string, error) {
	return m.take(kindVerification, hash)
}

func (m *memRepo) CreatePasswordReset(_ context.Context, userID, hash string, ttl time.Duration) error {
	return m.put(kindPasswordReset, userID, hash, ttl)
}

func (m *memRepo) ConsumePasswordReset(_ context.Context, hash string) (string, error) {
	return m.take(kindPasswordReset, hash)
}

func (m *memRepo) DeleteExpired(context.Context) (int64, error) { return 0, nil }

func (m *memRepo) activeCount(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.refresh {
		if t.UserID == userID && !t.Revoked {
			n++
		}
	}
	return n
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]*UserInfo
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]*UserInfo{}}
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("get by email: %w", core.ErrNotFound)
}

func (m *memUsers) GetByID(_ context.Context, id string) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("get by id: %w", core.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) Create(_ context.Context, nu NewUser) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == nu.Email {
			return nil, ErrEmailExists
		}
		if u.Username == nu.Username {
			return nil, ErrUsernameExists
		}
	}
	u := &UserInfo{
		ID:           uuid.New().String(),
		Email:        nu.Email,
		Username:     nu.Username,
		FullName:     nu.FullName,
		PasswordHash: nu.PasswordHash,
		Role:         "user",
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	m.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memUsers) MarkVerified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.IsVerified = true
	return nil
}

func (m *memUsers) setActive(id string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].IsActive = active
}

type sentMail struct {
	kind, to, username, token string
}

type captureMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (c *captureMailer) SendVerification(_ context.Context, to, username, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentMail{"verify", to, username, token})
	return c.err
}

func (c *captureMailer) SendPasswordReset(_ context.Context, to, username, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentMail{"reset", to, username, token})
	return c.err
}

func (c *captureMailer) last(kind string) sentMail {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.sent) - 1; i >= 0; i-- {
		if c.sent[i].kind == kind {
			return c.sent[i]
		}
	}
	return sentMail{}
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		SecretKey:               "test-secret-key-that-is-long-enough-0123",
		AccessTokenExpire:       30 * time.Minute,
		RefreshTokenExpire:      7 * 24 * time.Hour,
		VerificationTokenExpire: 24 * time.Hour,
		ResetTokenExpire:        time.Hour,
		Issuer:                  "quizforge-test",
		Audience:                "quizforge-test",
	}
}

type fixture struct {
	svc    *Service
	repo   *memRepo
	users  *memUsers
	mailer *captureMailer
	tokens *TokenIssuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := testJWTConfig()
	tokens, err := NewTokenIssuer(cfg)
	require.NoError(t, err)

	f := &fixture{
		repo:   newMemRepo(),
		users:  newMemUsers(),
		mailer: &captureMailer{},
		tokens: tokens,
	}
	f.svc = NewService(
		f.repo,
		tokens,
		f.users,
		f.mailer,
		cfg,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return f
}

func (f *fixture) register(t *testing.T, email, username, password string) *UserInfo {
	t.Helper()
	u, err := f.svc.Register(context.Background(), RegisterRequest{
		Email:           email,
		Username:        username,
		Password:        password,
		ConfirmPassword: password,
	})
	require.NoError(t, err)
	return u
}
