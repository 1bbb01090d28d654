package otp

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/touchtrial/touchtrial-backend/pkg/config"
	"github.com/touchtrial/touchtrial-backend/pkg/db/models"
	"github.com/touchtrial/touchtrial-backend/pkg/enums"
	pkgerrors "github.com/touchtrial/touchtrial-backend/pkg/errors"
)

type fakeOTPRepo struct {
	verifications []*models.OTPVerification
}

func (f *fakeOTPRepo) Create(_ context.Context, verification *models.OTPVerification) error {
	verification.ID = uuid.New()
	verification.CreatedAt = time.Now()
	f.verifications = append(f.verifications, verification)
	return nil
}

func (f *fakeOTPRepo) FindLatest(_ context.Context, channel enums.OTPChannel, target string) (*models.OTPVerification, error) {
	for i := len(f.verifications) - 1; i >= 0; i-- {
		v := f.verifications[i]
		if v.Channel == channel && v.Target == target && v.VerifiedAt == nil {
			return v, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOTPRepo) IncrementAttempts(_ context.Context, id uuid.UUID) error {
	for _, v := range f.verifications {
		if v.ID == id {
			v.Attempts++
		}
	}
	return nil
}

func (f *fakeOTPRepo) MarkVerified(_ context.Context, id uuid.UUID, at time.Time) error {
	for _, v := range f.verifications {
		if v.ID == id {
			stamped := at
			v.VerifiedAt = &stamped
		}
	}
	return nil
}

type fakeUserVerifier struct {
	user          *models.User
	emailVerified bool
	phoneVerified bool
}

func (f *fakeUserVerifier) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if f.user == nil || f.user.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return f.user, nil
}

func (f *fakeUserVerifier) MarkEmailVerified(_ context.Context, _ uuid.UUID, _ time.Time) error {
	f.emailVerified = true
	return nil
}

func (f *fakeUserVerifier) MarkPhoneVerified(_ context.Context, _ uuid.UUID, _ time.Time) error {
	f.phoneVerified = true
	return nil
}

type fakeLimiter struct {
	counts map[string]int64
	limits map[string]int64
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{counts: map[string]int64{}, limits: map[string]int64{}}
}

func (f *fakeLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	f.counts[scope]++
	f.limits[scope] = limit
	return f.counts[scope] <= limit, f.counts[scope], nil
}

type recordingSender struct {
	sent []string
}

func (r *recordingSender) Send(_ context.Context, _ enums.OTPChannel, _, code string) error {
	r.sent = append(r.sent, code)
	return nil
}

type otpFixture struct {
	service Service
	repo    *fakeOTPRepo
	users   *fakeUserVerifier
	limiter *fakeLimiter
	sender  *recordingSender
	userID  uuid.UUID
	now     time.Time
}

func newOTPFixture(t *testing.T) *otpFixture {
	t.Helper()
	userID := uuid.New()
	phone := "+919876543210"
	f := &otpFixture{
		repo: &fakeOTPRepo{},
		users: &fakeUserVerifier{user: &models.User{
			ID:    userID,
			Email: "asha@example.com",
			Phone: &phone,
		}},
		limiter: newFakeLimiter(),
		sender:  &recordingSender{},
		userID:  userID,
		now:     time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC),
	}
	svc, err := NewService(ServiceParams{
		Repo:    f.repo,
		Users:   f.users,
		Limiter: f.limiter,
		Sender:  f.sender,
		Config: config.OTPConfig{
			CodeTTL:     5 * time.Minute,
			MaxAttempts: 3,
			SendWindow:  10 * time.Minute,
			SendLimit:   2,
			SendIPLimit: 4,
		},
		Now: func() time.Time { return f.now },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.service = svc
	return f
}

func TestSendIssuesSixDigitCode(t *testing.T) {
	f := newOTPFixture(t)

	err := f.service.Send(context.Background(), f.userID, SendRequest{
		Channel: "email",
		Target:  "Asha@Example.com",
	}, "10.0.0.1")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if len(f.repo.verifications) != 1 {
		t.Fatalf("expected 1 stored verification, got %d", len(f.repo.verifications))
	}
	stored := f.repo.verifications[0]
	if len(stored.Code) != 6 {
		t.Fatalf("expected a 6-digit code, got %q", stored.Code)
	}
	if stored.Target != "asha@example.com" {
		t.Fatalf("email target must normalize to lowercase, got %q", stored.Target)
	}
	if !stored.ExpiresAt.Equal(f.now.Add(5 * time.Minute)) {
		t.Fatalf("unexpected expiry: %v", stored.ExpiresAt)
	}
	if len(f.sender.sent) != 1 || f.sender.sent[0] != stored.Code {
		t.Fatalf("delivered code must match the stored one: %v", f.sender.sent)
	}
}

func TestSendRejectsForeignTarget(t *testing.T) {
	f := newOTPFixture(t)

	err := f.service.Send(context.Background(), f.userID, SendRequest{
		Channel: "email",
		Target:  "someone-else@example.com",
	}, "")
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("codes must only go to the caller's own address, got %v", err)
	}
	if len(f.repo.verifications) != 0 {
		t.Fatal("nothing should be stored for a rejected target")
	}
}

func TestSendThrottlesPerTarget(t *testing.T) {
	f := newOTPFixture(t)
	ctx := context.Background()
	req := SendRequest{Channel: "phone", Target: "+919876543210"}

	for i := 0; i < 2; i++ {
		if err := f.service.Send(ctx, f.userID, req, ""); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	err := f.service.Send(ctx, f.userID, req, "")
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeRateLimit {
		t.Fatalf("third send inside the window must throttle, got %v", err)
	}
	if len(f.repo.verifications) != 2 {
		t.Fatalf("throttled send must not store a code, got %d", len(f.repo.verifications))
	}
}

func TestSendThrottlesPerIP(t *testing.T) {
	f := newOTPFixture(t)
	ctx := context.Background()

	f.limiter.counts["otp_send_ip:10.0.0.9"] = 4

	err := f.service.Send(ctx, f.userID, SendRequest{
		Channel: "email",
		Target:  "asha@example.com",
	}, "10.0.0.9")
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeRateLimit {
		t.Fatalf("saturated ip must throttle, got %v", err)
	}
}

func TestVerifyMarksUserVerified(t *testing.T) {
	f := newOTPFixture(t)
	ctx := context.Background()

	if err := f.service.Send(ctx, f.userID, SendRequest{Channel: "phone", Target: "+919876543210"}, ""); err != nil {
		t.Fatalf("Send: %v", err)
	}
	code := f.repo.verifications[0].Code

	err := f.service.Verify(ctx, f.userID, VerifyRequest{
		Channel: "phone",
		Target:  "+919876543210",
		Code:    code,
	})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if f.repo.verifications[0].VerifiedAt == nil {
		t.Fatal("verification row must be stamped")
	}
	if !f.users.phoneVerified {
		t.Fatal("user phone must be marked verified")
	}
	if f.users.emailVerified {
		t.Fatal("email must stay untouched on a phone verify")
	}
}

func TestVerifyRejectsWrongCodeAndCountsAttempt(t *testing.T) {
	f := newOTPFixture(t)
	ctx := context.Background()

	if err := f.service.Send(ctx, f.userID, SendRequest{Channel: "email", Target: "asha@example.com"}, ""); err != nil {
		t.Fatalf("Send: %v", err)
	}

	err := f.service.Verify(ctx, f.userID, VerifyRequest{
		Channel: "email",
		Target:  "asha@example.com",
		Code:    "000000",
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("wrong code must fail validation, got %v", err)
	}
	if f.repo.verifications[0].Attempts != 1 {
		t.Fatalf("failed attempt must be counted, got %d", f.repo.verifications[0].Attempts)
	}
	if f.users.emailVerified {
		t.Fatal("user must not be marked verified")
	}
}

func TestVerifyCapsAttempts(t *testing.T) {
	f := newOTPFixture(t)
	ctx := context.Background()

	if err := f.service.Send(ctx, f.userID, SendRequest{Channel: "email", Target: "asha@example.com"}, ""); err != nil {
		t.Fatalf("Send: %v", err)
	}
	f.repo.verifications[0].Attempts = 3

	err := f.service.Verify(ctx, f.userID, VerifyRequest{
		Channel: "email",
		Target:  "asha@example.com",
		Code:    f.repo.verifications[0].Code,
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeRateLimit {
		t.Fatalf("exhausted attempts must lock the code, got %v", err)
	}
	if f.repo.verifications[0].VerifiedAt != nil {
		t.Fatal("locked code must not verify, even with the right digits")
	}
}

func TestVerifyRejectsExpiredCode(t *testing.T) {
	f := newOTPFixture(t)
	ctx := context.Background()

	if err := f.service.Send(ctx, f.userID, SendRequest{Channel: "email", Target: "asha@example.com"}, ""); err != nil {
		t.Fatalf("Send: %v", err)
	}
	f.now = f.now.Add(6 * time.Minute)

	err := f.service.Verify(ctx, f.userID, VerifyRequest{
		Channel: "email",
		Target:  "asha@example.com",
		Code:    f.repo.verifications[0].Code,
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expired code must fail validation, got %v", err)
	}
}

func TestVerifyWithoutOutstandingCode(t *testing.T) {
	f := newOTPFixture(t)

	err := f.service.Verify(context.Background(), f.userID, VerifyRequest{
		Channel: "email",
		Target:  "asha@example.com",
		Code:    "123456",
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestVerifyUsesNewestCode(t *testing.T) {
	f := newOTPFixture(t)
	ctx := context.Background()
	req := SendRequest{Channel: "email", Target: "asha@example.com"}

	if err := f.service.Send(ctx, f.userID, req, ""); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := f.service.Send(ctx, f.userID, req, ""); err != nil {
		t.Fatalf("second send: %v", err)
	}
	first := f.repo.verifications[0].Code
	second := f.repo.verifications[1].Code
	if first == second {
		t.Skip("codes collided, nothing to distinguish")
	}

	err := f.service.Verify(ctx, f.userID, VerifyRequest{Channel: "email", Target: "asha@example.com", Code: first})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("stale code must not verify, got %v", err)
	}
	if err := f.service.Verify(ctx, f.userID, VerifyRequest{Channel: "email", Target: "asha@example.com", Code: second}); err != nil {
		t.Fatalf("newest code must verify: %v", err)
	}
}
