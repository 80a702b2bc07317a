package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
)

// ContactDesk accepts contact form submissions. Messages are only logged.
type ContactDesk struct {
	log *zap.Logger
}

func NewContactDesk(log *zap.Logger) *ContactDesk {
	if log == nil {
		log = zap.NewNop()
	}
	return &ContactDesk{log: log}
}

// Submit validates msg and returns the acknowledgement shown to the sender.
func (d *ContactDesk) Submit(ctx context.Context, msg domain.ContactMessage) (string, error) {
	msg = msg.Normalize()
	if err := msg.Validate(); err != nil {
		d.log.Info("contact form rejected", zap.Error(err))
		return domain.WarningFor(err), err
	}

	d.log.Info("contact message received",
		zap.String("name", msg.Name),
		zap.String("email", msg.Address()),
		zap.Int("length", len(msg.Message)))
	return domain.MsgContactThanks, nil
}
