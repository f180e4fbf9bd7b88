package notificator

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Vovarama1992/channel_subs/internal/ports"
)

// Bot — то, что нужно от *tgbotapi.BotAPI
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Texts interface {
	Notice(lang ports.Language, n ports.Notice) string
}

type Notificator interface {
	UserNotify(ctx context.Context, chatID int64, text string) error
	AdminNotify(ctx context.Context, err error, details string) error
	Revoke(ctx context.Context, userID int64) error
}

// Catalog — тексты и подписи кнопок для сообщений о решениях
type Catalog interface {
	Text(lang ports.Language, key string, kv ...any) string
	Button(lang ports.Language, key string) string
}

// InviteLinks — выдаёт ссылку для входа в канал
type InviteLinks interface {
	NextInviteLink(ctx context.Context) (string, error)
}
