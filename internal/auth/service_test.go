package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aimagehq/aimage-backend/internal/users"
	pkgAuth "github.com/aimagehq/aimage-backend/pkg/auth"
	"github.com/aimagehq/aimage-backend/pkg/auth/session"
	"github.com/aimagehq/aimage-backend/pkg/config"
	"github.com/aimagehq/aimage-backend/pkg/db/models"
	"github.com/aimagehq/aimage-backend/pkg/enums"
	pkgerrors "github.com/aimagehq/aimage-backend/pkg/errors"
	"github.com/aimagehq/aimage-backend/pkg/security"
)

var testJWTConfig = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "aimage",
	ExpirationMinutes: 30,
}

// testPasswordConfig uses low-cost argon parameters to keep hashing fast.
var testPasswordConfig = config.PasswordConfig{
	ArgonMemoryKB:    8192,
	ArgonTime:        1,
	ArgonParallelism: 1,
}

type fakeUserRepo struct {
	user      *models.User
	created   *users.CreateUserDTO
	lastLogin *time.Time
}

func (f *fakeUserRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	f.created = &dto
	user := dto.ToModel()
	user.ID = uuid.New()
	f.user = user
	return user, nil
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.user == nil || f.user.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	return f.user, nil
}

func (f *fakeUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	f.lastLogin = &at
	return nil
}

type fakeSessionManager struct {
	sessions map[string]string
}

func newFakeSessionManager() *fakeSessionManager {
	return &fakeSessionManager{sessions: make(map[string]string)}
}

func (f *fakeSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	token := "refresh-" + accessID
	f.sessions[accessID] = token
	return token, nil
}

func (f *fakeSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	stored, ok := f.sessions[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(f.sessions, oldAccessID)
	newID := session.NewAccessID()
	token := "refresh-" + newID
	f.sessions[newID] = token
	return newID, token, nil
}

func (f *fakeSessionManager) Revoke(ctx context.Context, accessID string) error {
	delete(f.sessions, accessID)
	return nil
}

func buildTestService(t *testing.T, repo *fakeUserRepo) (Service, *fakeSessionManager) {
	t.Helper()
	sessions := newFakeSessionManager()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig,
		PasswordConfig: testPasswordConfig,
		SignupCredits:  10,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, sessions
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, testPasswordConfig)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

func activeUser(t *testing.T, email, password string) *models.User {
	t.Helper()
	return &models.User{
		ID:               uuid.New(),
		Email:            email,
		PasswordHash:     mustHashPassword(t, password),
		DisplayName:      "Test User",
		Credits:          10,
		SubscriptionTier: enums.SubscriptionTierFree,
		IsActive:         true,
	}
}

func TestServiceRegisterIssuesTokens(t *testing.T) {
	repo := &fakeUserRepo{}
	svc, _ := buildTestService(t, repo)

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Email:       "New@Example.com",
		Password:    "long-enough-secret",
		DisplayName: "New User",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if repo.created == nil {
		t.Fatal("expected user creation")
	}
	if repo.created.Email != "new@example.com" {
		t.Fatalf("email must be normalized, got %q", repo.created.Email)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected token pair")
	}
	if resp.User == nil || resp.User.SubscriptionTier != enums.SubscriptionTierFree {
		t.Fatalf("expected free-tier user, got %+v", resp.User)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != resp.User.ID {
		t.Fatal("claims must carry the new user id")
	}
}

func TestServiceRegisterGrantsWelcomeCredits(t *testing.T) {
	repo := &fakeUserRepo{}
	svc, _ := buildTestService(t, repo)

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Email:       "fresh@example.com",
		Password:    "long-enough-secret",
		DisplayName: "Fresh User",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if repo.created == nil || repo.created.Credits != 10 {
		t.Fatalf("expected welcome grant of 10 credits, got %+v", repo.created)
	}
	if resp.User == nil || resp.User.Credits != 10 {
		t.Fatalf("expected starting balance 10, got %+v", resp.User)
	}
}

func TestServiceRegisterDuplicateEmail(t *testing.T) {
	repo := &fakeUserRepo{user: activeUser(t, "taken@example.com", "pw-qwerty-1")}
	svc, _ := buildTestService(t, repo)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:       "taken@example.com",
		Password:    "pw-qwerty-2",
		DisplayName: "Dup",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestServiceLogin(t *testing.T) {
	password := "correct-horse-battery"
	user := activeUser(t, "user@example.com", password)
	repo := &fakeUserRepo{user: user}
	svc, _ := buildTestService(t, repo)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "User@Example.com",
		Password: password,
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.RefreshToken == "" {
		t.Fatal("expected refresh token")
	}
	if repo.lastLogin == nil {
		t.Fatal("expected last login to be recorded")
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != user.ID || claims.Tier != enums.SubscriptionTierFree {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestServiceLoginWrongPassword(t *testing.T) {
	user := activeUser(t, "user@example.com", "right-password")
	svc, _ := buildTestService(t, &fakeUserRepo{user: user})

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "user@example.com",
		Password: "wrong-password",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestServiceLoginInactiveUser(t *testing.T) {
	password := "some-password"
	user := activeUser(t, "user@example.com", password)
	user.IsActive = false
	svc, _ := buildTestService(t, &fakeUserRepo{user: user})

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "user@example.com",
		Password: password,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestServiceRefreshRotatesSession(t *testing.T) {
	password := "rotate-me-please"
	user := activeUser(t, "user@example.com", password)
	svc, sessions := buildTestService(t, &fakeUserRepo{user: user})

	login, err := svc.Login(context.Background(), LoginRequest{
		Email:    user.Email,
		Password: password,
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.AccessToken == "" || refreshed.RefreshToken == "" {
		t.Fatal("expected fresh token pair")
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Fatal("refresh token must rotate")
	}

	// the old pair is now invalid
	if _, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	}); err == nil {
		t.Fatal("expected rotated session to reject the old refresh token")
	}

	if len(sessions.sessions) != 1 {
		t.Fatalf("expected exactly one live session, got %d", len(sessions.sessions))
	}
}

func TestServiceLogoutRevokesSession(t *testing.T) {
	password := "logout-password"
	user := activeUser(t, "user@example.com", password)
	svc, sessions := buildTestService(t, &fakeUserRepo{user: user})

	login, err := svc.Login(context.Background(), LoginRequest{
		Email:    user.Email,
		Password: password,
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, login.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if err := svc.Logout(context.Background(), claims.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.sessions) != 0 {
		t.Fatal("expected session to be revoked")
	}
}
