package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/touchtrial/touchtrial-backend/pkg/config"
	"github.com/touchtrial/touchtrial-backend/pkg/db"
	"github.com/touchtrial/touchtrial-backend/pkg/db/models"
	"github.com/touchtrial/touchtrial-backend/pkg/enums"
	pkgerrors "github.com/touchtrial/touchtrial-backend/pkg/errors"
)

// Service issues and checks one-time verification codes for a user's own
// email and phone.
type Service interface {
	Send(ctx context.Context, userID uuid.UUID, req SendRequest, clientIP string) error
	Verify(ctx context.Context, userID uuid.UUID, req VerifyRequest) error
}

type otpRepository interface {
	Create(ctx context.Context, verification *models.OTPVerification) error
	FindLatest(ctx context.Context, channel enums.OTPChannel, target string) (*models.OTPVerification, error)
	IncrementAttempts(ctx context.Context, id uuid.UUID) error
	MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) error
}

type userVerifier interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	MarkEmailVerified(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkPhoneVerified(ctx context.Context, id uuid.UUID, at time.Time) error
}

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type service struct {
	repo    otpRepository
	users   userVerifier
	limiter rateLimiter
	sender  Sender
	cfg     config.OTPConfig
	now     func() time.Time
}

// ServiceParams groups dependencies for the OTP service.
type ServiceParams struct {
	Repo    otpRepository
	Users   userVerifier
	Limiter rateLimiter
	Sender  Sender
	Config  config.OTPConfig
	Now     func() time.Time
}

// NewService builds an OTP service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("otp repository is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if params.Sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	cfg := params.Config
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 5 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.SendWindow <= 0 {
		cfg.SendWindow = 10 * time.Minute
	}
	if cfg.SendLimit <= 0 {
		cfg.SendLimit = 3
	}
	if cfg.SendIPLimit <= 0 {
		cfg.SendIPLimit = 10
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    params.Repo,
		users:   params.Users,
		limiter: params.Limiter,
		sender:  params.Sender,
		cfg:     cfg,
		now:     now,
	}, nil
}

// Send issues a fresh code for the caller's own email or phone. Per-target
// and per-IP send throttles apply before anything is generated.
func (s *service) Send(ctx context.Context, userID uuid.UUID, req SendRequest, clientIP string) error {
	channel, target, err := s.resolveTarget(ctx, userID, req.Channel, req.Target)
	if err != nil {
		return err
	}

	allowed, _, err := s.limiter.FixedWindowAllow(ctx,
		"otp_send:"+channel.String()+":"+target,
		int64(s.cfg.SendLimit), s.cfg.SendWindow)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check send limit")
	}
	if !allowed {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many codes requested, try again later")
	}
	if clientIP != "" {
		allowed, _, err = s.limiter.FixedWindowAllow(ctx,
			"otp_send_ip:"+clientIP,
			int64(s.cfg.SendIPLimit), s.cfg.SendWindow)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check ip send limit")
		}
		if !allowed {
			return pkgerrors.New(pkgerrors.CodeRateLimit, "too many codes requested, try again later")
		}
	}

	code, err := generateCode()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate code")
	}

	verification := &models.OTPVerification{
		Channel:   channel,
		Target:    target,
		Code:      code,
		ExpiresAt: s.now().UTC().Add(s.cfg.CodeTTL),
	}
	if err := s.repo.Create(ctx, verification); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store verification")
	}

	if err := s.sender.Send(ctx, channel, target, code); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deliver code")
	}
	return nil
}

// Verify checks a submitted code against the newest outstanding one. A match
// stamps both the verification row and the user record.
func (s *service) Verify(ctx context.Context, userID uuid.UUID, req VerifyRequest) error {
	channel, target, err := s.resolveTarget(ctx, userID, req.Channel, req.Target)
	if err != nil {
		return err
	}

	verification, err := s.repo.FindLatest(ctx, channel, target)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no outstanding code for this target")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load verification")
	}

	now := s.now().UTC()
	if verification.Expired(now) {
		return pkgerrors.New(pkgerrors.CodeValidation, "code has expired, request a new one")
	}
	if verification.Attempts >= s.cfg.MaxAttempts {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many incorrect attempts, request a new code")
	}
	if verification.Code != strings.TrimSpace(req.Code) {
		if err := s.repo.IncrementAttempts(ctx, verification.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record failed attempt")
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "incorrect code")
	}

	if err := s.repo.MarkVerified(ctx, verification.ID, now); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark verified")
	}

	switch channel {
	case enums.OTPChannelEmail:
		err = s.users.MarkEmailVerified(ctx, userID, now)
	case enums.OTPChannelPhone:
		err = s.users.MarkPhoneVerified(ctx, userID, now)
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark user verified")
	}
	return nil
}

// resolveTarget parses the channel and confirms the target belongs to the
// calling user. Codes never go to arbitrary addresses.
func (s *service) resolveTarget(ctx context.Context, userID uuid.UUID, rawChannel, target string) (enums.OTPChannel, string, error) {
	if userID == uuid.Nil {
		return "", "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user identity")
	}
	channel, err := enums.ParseOTPChannel(rawChannel)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid channel")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return "", "", pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return "", "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	normalized := strings.TrimSpace(target)
	switch channel {
	case enums.OTPChannelEmail:
		normalized = strings.ToLower(normalized)
		if normalized != user.Email {
			return "", "", pkgerrors.New(pkgerrors.CodeValidation, "target does not match your account email")
		}
	case enums.OTPChannelPhone:
		if user.Phone == nil || normalized != *user.Phone {
			return "", "", pkgerrors.New(pkgerrors.CodeValidation, "target does not match your account phone")
		}
	}
	return channel, normalized, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n), nil
}
