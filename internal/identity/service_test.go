package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bloghub/blog-api/internal/domain"
	"github.com/bloghub/blog-api/internal/identity/password"
	"github.com/bloghub/blog-api/internal/pkg/metrics"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	mu             sync.Mutex
	users          map[string]*domain.User
	nextID         int
	createUserErr  error
	getUserByEmail func(email string) (*domain.User, error)
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users: make(map[string]*domain.User),
	}
}

func (m *mockRepository) CreateUser(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createUserErr != nil {
		return m.createUserErr
	}
	if _, ok := m.users[user.Email]; ok {
		return ErrEmailExists
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.Email] = user
	return nil
}

func (m *mockRepository) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockRepository) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	if m.getUserByEmail != nil {
		return m.getUserByEmail(email)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[email]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, ErrUserNotFound
}

func (m *mockRepository) ListUsers(_ context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, *u)
	}
	return users, nil
}

func (m *mockRepository) UpdateProfile(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.users[user.Email]
	if !ok {
		return ErrUserNotFound
	}
	stored.DisplayName = user.DisplayName
	stored.ProfileImageURL = user.ProfileImageURL
	return nil
}

func (m *mockRepository) EnsureUser(_ context.Context, user *domain.User) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.users[user.Email]; ok {
		existing.Role = user.Role
		user.ID = existing.ID
		return false, nil
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	m.users[user.Email] = user
	return true, nil
}

// mockAuthenticator implements Authenticator for testing.
type mockAuthenticator struct {
	issued map[string]*domain.User
	err    error
}

func newMockAuthenticator() *mockAuthenticator {
	return &mockAuthenticator{issued: make(map[string]*domain.User)}
}

func (m *mockAuthenticator) GenerateToken(_ context.Context, user *domain.User) (*Token, error) {
	if m.err != nil {
		return nil, m.err
	}
	token := "token-for-" + user.ID
	m.issued[token] = user
	return &Token{AccessToken: token, TokenType: "Bearer", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (m *mockAuthenticator) ValidateToken(_ context.Context, token string) (*domain.Principal, error) {
	user, ok := m.issued[token]
	if !ok {
		return nil, ErrTokenMalformed
	}
	return &domain.Principal{Subject: user.Email, UserID: user.ID, Role: user.Role}, nil
}

// countingHasher wraps a hasher and counts Verify calls.
type countingHasher struct {
	password.Hasher
	verifies int
}

func (c *countingHasher) Verify(plaintext, digest string) bool {
	c.verifies++
	return c.Hasher.Verify(plaintext, digest)
}

func newTestService(t *testing.T) (*Service, *mockRepository, *countingHasher) {
	t.Helper()
	repo := newMockRepository()
	hasher := &countingHasher{Hasher: password.NewBcryptHasher(bcrypt.MinCost)}
	return NewService(repo, newMockAuthenticator(), hasher), repo, hasher
}

func TestRegister_ThenLogin(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	registered, err := service.Register(ctx, RegisterInput{
		Email:       "Alice@Example.com ",
		DisplayName: "Alice",
		Password:    "s3cret-pass",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", registered.User.Email)
	assert.Equal(t, domain.RoleUser, registered.User.Role)
	assert.NotEqual(t, "s3cret-pass", registered.User.PasswordHash)
	require.NotNil(t, registered.Token)

	loggedIn, err := service.Login(ctx, LoginInput{Email: "alice@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	principal, err := service.ValidateToken(ctx, loggedIn.Token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", principal.Subject)
	assert.Equal(t, registered.User.ID, principal.UserID)
	assert.Equal(t, domain.RoleUser, principal.Role)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, RegisterInput{Email: "bob@example.com", DisplayName: "Bob", Password: "password1"})
	require.NoError(t, err)

	_, err = service.Register(ctx, RegisterInput{Email: "BOB@example.com", DisplayName: "Bobby", Password: "password2"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestRegister_StoreConflictWins(t *testing.T) {
	service, repo, _ := newTestService(t)

	// The pre-check sees no user, but the insert loses the race.
	repo.createUserErr = ErrEmailExists

	_, err := service.Register(context.Background(), RegisterInput{
		Email:       "race@example.com",
		DisplayName: "Racer",
		Password:    "password",
	})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestRegister_ConcurrentDuplicates(t *testing.T) {
	service, _, _ := newTestService(t)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = service.Register(context.Background(), RegisterInput{
				Email:       "same@example.com",
				DisplayName: "Same",
				Password:    "password",
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrEmailExists)
	}
	assert.Equal(t, 1, succeeded)
}

func TestRegister_NormalizesDisplayName(t *testing.T) {
	service, _, _ := newTestService(t)

	result, err := service.Register(context.Background(), RegisterInput{
		Email:       "carol@example.com",
		DisplayName: "  Carol  ",
		Password:    "password",
	})
	require.NoError(t, err)
	assert.Equal(t, "Carol", result.User.DisplayName)
}

func TestRegister_RejectsBlankDisplayName(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.Register(context.Background(), RegisterInput{
		Email:       "dave@example.com",
		DisplayName: "   ",
		Password:    "password",
	})
	assert.ErrorIs(t, err, ErrInvalidDisplayName)
}

func TestRegister_RepositoryError(t *testing.T) {
	service, repo, _ := newTestService(t)
	repo.getUserByEmail = func(string) (*domain.User, error) {
		return nil, errors.New("connection refused")
	}

	_, err := service.Register(context.Background(), RegisterInput{
		Email:       "erin@example.com",
		DisplayName: "Erin",
		Password:    "password",
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmailExists)
}

func TestLogin_UnknownEmailAndWrongPasswordLookAlike(t *testing.T) {
	service, _, hasher := newTestService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, RegisterInput{Email: "frank@example.com", DisplayName: "Frank", Password: "right-password"})
	require.NoError(t, err)

	hasher.verifies = 0
	_, wrongPassword := service.Login(ctx, LoginInput{Email: "frank@example.com", Password: "wrong-password"})
	_, unknownEmail := service.Login(ctx, LoginInput{Email: "x@example.com", Password: "anything"})

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	assert.Equal(t, 2, hasher.verifies, "unknown email must still run a hash comparison")
}

// brokenHasher fails every Hash call and records the digest Verify receives.
type brokenHasher struct {
	password.Hasher
	verified []string
}

func (b *brokenHasher) Hash(string) (string, error) {
	return "", errors.New("hasher unavailable")
}

func (b *brokenHasher) Verify(plaintext, digest string) bool {
	b.verified = append(b.verified, digest)
	return b.Hasher.Verify(plaintext, digest)
}

func TestLogin_UnknownEmailKeepsHashCostWhenDigestPrepFails(t *testing.T) {
	hasher := &brokenHasher{Hasher: password.NewBcryptHasher(bcrypt.MinCost)}
	service := NewService(newMockRepository(), newMockAuthenticator(), hasher)

	for range 2 {
		_, err := service.Login(context.Background(), LoginInput{Email: "ghost@example.com", Password: "anything"})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	require.Len(t, hasher.verified, 2)
	for _, digest := range hasher.verified {
		cost, err := bcrypt.Cost([]byte(digest))
		require.NoError(t, err, "digest must be a parseable bcrypt hash")
		assert.GreaterOrEqual(t, cost, bcrypt.DefaultCost)
	}
	assert.ErrorIs(t, bcrypt.CompareHashAndPassword([]byte(fallbackDigest), []byte("anything")), bcrypt.ErrMismatchedHashAndPassword)
}

func TestRegister_PasswordOverByteLimit(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.Register(context.Background(), RegisterInput{
		Email:       "nina@example.com",
		DisplayName: "Nina",
		Password:    strings.Repeat("é", 40),
	})
	assert.ErrorIs(t, err, password.ErrPasswordTooLong)
}

func TestLogin_RecordsMetrics(t *testing.T) {
	service, _, _ := newTestService(t)
	counter := metrics.AuthAttempts.WithLabelValues("login", "invalid_credentials")
	before := promtestutil.ToFloat64(counter)

	_, err := service.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: "x"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Equal(t, before+1, promtestutil.ToFloat64(counter))
}

func TestLogin_TokenFailure(t *testing.T) {
	repo := newMockRepository()
	auth := newMockAuthenticator()
	service := NewService(repo, auth, password.NewBcryptHasher(bcrypt.MinCost))
	ctx := context.Background()

	_, err := service.Register(ctx, RegisterInput{Email: "gina@example.com", DisplayName: "Gina", Password: "password"})
	require.NoError(t, err)

	auth.err = ErrUnknownSubject
	_, err = service.Login(ctx, LoginInput{Email: "gina@example.com", Password: "password"})
	assert.ErrorIs(t, err, ErrUnknownSubject)
}

func TestUpdateProfile(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	result, err := service.Register(ctx, RegisterInput{Email: "hank@example.com", DisplayName: "Hank", Password: "password"})
	require.NoError(t, err)

	caller := &domain.Principal{Subject: result.User.Email, UserID: result.User.ID, Role: result.User.Role}
	name := "Henry"
	image := "https://img.example.com/h.png"

	updated, err := service.UpdateProfile(ctx, caller, UpdateProfileInput{DisplayName: &name, ProfileImageURL: &image})
	require.NoError(t, err)
	assert.Equal(t, "Henry", updated.DisplayName)
	require.NotNil(t, updated.ProfileImageURL)
	assert.Equal(t, image, *updated.ProfileImageURL)

	empty := ""
	cleared, err := service.UpdateProfile(ctx, caller, UpdateProfileInput{ProfileImageURL: &empty})
	require.NoError(t, err)
	assert.Nil(t, cleared.ProfileImageURL)
	assert.Equal(t, "Henry", cleared.DisplayName)
}

func TestUpdateProfile_UnknownCaller(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.UpdateProfile(context.Background(), &domain.Principal{UserID: "ghost"}, UpdateProfileInput{})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = service.UpdateProfile(context.Background(), nil, UpdateProfileInput{})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSeedUsers_Idempotent(t *testing.T) {
	service, repo, _ := newTestService(t)
	ctx := context.Background()

	seed := []SeedUser{
		{Email: "admin@example.com", DisplayName: "Admin", Password: "admin123", Role: domain.RoleAdmin},
		{Email: "user@example.com", DisplayName: "User", Password: "user123", Role: domain.RoleUser},
	}

	require.NoError(t, service.SeedUsers(ctx, seed))
	require.NoError(t, service.SeedUsers(ctx, seed))

	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	result, err := service.Login(ctx, LoginInput{Email: "admin@example.com", Password: "admin123"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, result.User.Role)
}

func TestSeedUsers_InvalidRole(t *testing.T) {
	service, _, _ := newTestService(t)

	err := service.SeedUsers(context.Background(), []SeedUser{
		{Email: "x@example.com", DisplayName: "X", Password: "password", Role: "root"},
	})
	require.Error(t, err)
}
