package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Vovarama1992/channel_subs/internal/ports"
	"github.com/Vovarama1992/channel_subs/internal/texts"
)

// Sender — часть *tgbotapi.BotAPI, которой пользуются хендлеры
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type BotApp struct {
	SubscriptionService ports.SubscriptionService
	SettingsService     ports.SettingsService
	ExportService       ports.ExportService
	Notifier            ports.Notifier
	Decisions           ports.DecisionNotifier
	Texts               *texts.Catalog

	AdminID               int64
	PublicChannelUsername string
	PrivateChannelID      int64

	Log *zap.SugaredLogger

	bot      Sender
	sessions *sessions
}

// InitBot — создаёт клиента телеграма; сам цикл запускает Run
func InitBot(token string) (*tgbotapi.BotAPI, error) {
	return tgbotapi.NewBotAPI(token)
}

// Run — long polling до отмены ctx
func (app *BotApp) Run(ctx context.Context, api *tgbotapi.BotAPI) {
	app.bot = api
	app.Log.Infow("[bot_app] ready", "username", api.Self.UserName)

	app.runBotLoop(ctx, api)
}

func (app *BotApp) session() *sessions {
	if app.sessions == nil {
		app.sessions = newSessions()
	}
	return app.sessions
}
