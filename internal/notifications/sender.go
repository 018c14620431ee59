package notifications

import (
	"context"

	"github.com/bazarcheh/bazarcheh-backend/pkg/logger"
)

// Sender delivers a verification code to a phone number. Delivery is
// best-effort at every call site: failures are logged and never block the
// operation that triggered them.
type Sender interface {
	SendCode(ctx context.Context, phone, code string) error
}

type logSender struct {
	logg *logger.Logger
}

// NewLogSender returns a sender that writes codes to the structured log.
// It stands in for an SMS gateway in dev and test environments.
func NewLogSender(logg *logger.Logger) Sender {
	return &logSender{logg: logg}
}

func (s *logSender) SendCode(ctx context.Context, phone, code string) error {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"phone": phone,
		"code":  code,
	})
	s.logg.Info(ctx, "verification code issued")
	return nil
}
