package notificator

import (
	"context"

	"github.com/Vovarama1992/channel_subs/internal/ports"
)

// Service — исходящие уведомления и доступ к каналу для домена
type Service struct {
	infra Notificator
	texts Texts
}

func NewService(infra Notificator, texts Texts) *Service {
	return &Service{infra: infra, texts: texts}
}

var (
	_ ports.Notifier    = (*Service)(nil)
	_ ports.ChannelGate = (*Service)(nil)
)

func (s *Service) UserNotice(ctx context.Context, userID int64, lang ports.Language, notice ports.Notice) error {
	return s.infra.UserNotify(ctx, userID, s.texts.Notice(lang, notice))
}

func (s *Service) AdminAlert(ctx context.Context, err error, details string) error {
	return s.infra.AdminNotify(ctx, err, details)
}

func (s *Service) Revoke(ctx context.Context, userID int64) error {
	return s.infra.Revoke(ctx, userID)
}
