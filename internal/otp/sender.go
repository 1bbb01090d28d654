package otp

import (
	"context"
	"fmt"

	"github.com/touchtrial/touchtrial-backend/pkg/enums"
	"github.com/touchtrial/touchtrial-backend/pkg/logger"
)

// Sender delivers a verification code to its target.
type Sender interface {
	Send(ctx context.Context, channel enums.OTPChannel, target, code string) error
}

// logSender writes codes to the application log instead of an external
// provider. It is the development delivery method.
type logSender struct {
	log *logger.Logger
}

// NewLogSender builds the log-backed delivery method.
func NewLogSender(log *logger.Logger) (Sender, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &logSender{log: log}, nil
}

func (s *logSender) Send(ctx context.Context, channel enums.OTPChannel, target, code string) error {
	ctx = s.log.WithFields(ctx, map[string]any{
		"otp_channel": channel.String(),
		"otp_target":  target,
		"otp_code":    code,
	})
	s.log.Info(ctx, "verification code issued")
	return nil
}
