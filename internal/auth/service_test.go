package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/touchtrial/touchtrial-backend/internal/users"
	pkgAuth "github.com/touchtrial/touchtrial-backend/pkg/auth"
	"github.com/touchtrial/touchtrial-backend/pkg/config"
	"github.com/touchtrial/touchtrial-backend/pkg/db/models"
	"github.com/touchtrial/touchtrial-backend/pkg/enums"
	pkgerrors "github.com/touchtrial/touchtrial-backend/pkg/errors"
	"github.com/touchtrial/touchtrial-backend/pkg/security"
)

type fakeUserRepo struct {
	byEmail map[string]*models.User
	byID    map[uuid.UUID]*models.User
	created []users.CreateUserDTO
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byEmail: map[string]*models.User{},
		byID:    map[uuid.UUID]*models.User{},
	}
}

func (f *fakeUserRepo) add(user *models.User) {
	f.byEmail[user.Email] = user
	f.byID[user.ID] = user
}

func (f *fakeUserRepo) Create(_ context.Context, dto users.CreateUserDTO) (*models.User, error) {
	f.created = append(f.created, dto)
	user := dto.ToModel()
	user.ID = uuid.New()
	f.add(user)
	return user, nil
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if user, ok := f.byEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := f.byID[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeSessionManager struct {
	generated []string
	revoked   []string
	rotateErr error
}

func (f *fakeSessionManager) Generate(_ context.Context, accessID string) (string, error) {
	f.generated = append(f.generated, accessID)
	return "refresh-" + accessID, nil
}

func (f *fakeSessionManager) Rotate(_ context.Context, oldAccessID, provided string) (string, string, error) {
	if f.rotateErr != nil {
		return "", "", f.rotateErr
	}
	if provided != "refresh-"+oldAccessID {
		return "", "", ErrRotateMismatch
	}
	newID := uuid.NewString()
	return newID, "refresh-" + newID, nil
}

var ErrRotateMismatch = pkgerrors.New(pkgerrors.CodeUnauthorized, "mismatch")

func (f *fakeSessionManager) Revoke(_ context.Context, accessID string) error {
	f.revoked = append(f.revoked, accessID)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "touchtrial-test",
		ExpirationMinutes: 15,
	}
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func newTestService(t *testing.T, repo *fakeUserRepo, sessions *fakeSessionManager) Service {
	t.Helper()
	// Tokens minted here are re-parsed against the wall clock, so the
	// service clock stays real instead of pinned.
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig(),
		PasswordConfig: testPasswordConfig(),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func seedUser(t *testing.T, repo *fakeUserRepo, email, password string) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, testPasswordConfig())
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		FullName:     "Test Customer",
		PasswordHash: hash,
		Role:         enums.UserRoleCustomer,
	}
	repo.add(user)
	return user
}

func TestRegisterCreatesCustomerAndIssuesTokens(t *testing.T) {
	repo := newFakeUserRepo()
	sessions := &fakeSessionManager{}
	svc := newTestService(t, repo, sessions)

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "  New.User@Example.COM ",
		FullName: "New User",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if len(repo.created) != 1 {
		t.Fatalf("expected 1 created user, got %d", len(repo.created))
	}
	if repo.created[0].Email != "new.user@example.com" {
		t.Fatalf("email not normalized: %q", repo.created[0].Email)
	}
	if repo.created[0].Role != enums.UserRoleCustomer {
		t.Fatalf("expected customer role, got %s", repo.created[0].Role)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected token pair")
	}
	if resp.User == nil || resp.User.Email != "new.user@example.com" {
		t.Fatalf("unexpected user payload: %+v", resp.User)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	seedUser(t, repo, "taken@example.com", "password123")
	svc := newTestService(t, repo, &fakeSessionManager{})

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "taken@example.com",
		FullName: "Dupe",
		Password: "password123",
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestLoginSucceedsWithValidCredentials(t *testing.T) {
	repo := newFakeUserRepo()
	user := seedUser(t, repo, "buyer@example.com", "password123")
	sessions := &fakeSessionManager{}
	svc := newTestService(t, repo, sessions)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "buyer@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse minted token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("token user mismatch: %s != %s", claims.UserID, user.ID)
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(time.Now()) {
		t.Fatalf("minted token must expire in the future, got %v", claims.ExpiresAt)
	}
	if len(sessions.generated) != 1 || claims.ID != sessions.generated[0] {
		t.Fatalf("refresh session not tied to jti: %v vs %s", sessions.generated, claims.ID)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	repo := newFakeUserRepo()
	seedUser(t, repo, "buyer@example.com", "password123")
	svc := newTestService(t, repo, &fakeSessionManager{})

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "buyer@example.com",
		Password: "wrong",
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLoginRejectsUnknownEmailWithSameError(t *testing.T) {
	svc := newTestService(t, newFakeUserRepo(), &fakeSessionManager{})

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "ghost@example.com",
		Password: "password123",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if appErr.Message() != invalidCredentialsMessage {
		t.Fatalf("credential errors must not reveal account existence: %q", appErr.Message())
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	repo := newFakeUserRepo()
	user := seedUser(t, repo, "buyer@example.com", "password123")
	sessions := &fakeSessionManager{}
	svc := newTestService(t, repo, sessions)

	login, err := svc.Login(context.Background(), LoginRequest{
		Email:    "buyer@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	pair, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if pair.AccessToken == login.AccessToken {
		t.Fatal("expected a new access token")
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), pair.AccessToken)
	if err != nil {
		t.Fatalf("parse rotated token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("rotated token user mismatch: %s", claims.UserID)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	sessions := &fakeSessionManager{}
	svc := newTestService(t, newFakeUserRepo(), sessions)

	if err := svc.Logout(context.Background(), "access-id-1"); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != "access-id-1" {
		t.Fatalf("session not revoked: %v", sessions.revoked)
	}
}

func TestMeReturnsNotFoundForMissingUser(t *testing.T) {
	svc := newTestService(t, newFakeUserRepo(), &fakeSessionManager{})

	_, err := svc.Me(context.Background(), uuid.New())
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
