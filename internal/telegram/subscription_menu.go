package telegram

import (
	"context"

	"github.com/Vovarama1992/channel_subs/internal/ports"
)

// chooseDuration — срок выбран, показываем методы оплаты
func (app *BotApp) chooseDuration(ctx context.Context, chatID int64, msgID int, lang ports.Language, months int) {
	if !ports.ValidDuration(months) {
		app.show(chatID, msgID, app.Texts.Text(lang, "sub_duration"), app.durationKeyboard(lang))
		return
	}

	wallets, err := app.SettingsService.Wallets(ctx)
	if err != nil {
		app.replyError(ctx, chatID, lang, err, "list wallets")
		return
	}

	app.session().update(chatID, func(s *session) {
		s.step = stepNone
		s.months = months
		s.method = ""
	})

	app.show(chatID, msgID, app.Texts.Text(lang, "payment_method", "months", months), app.methodKeyboard(lang, wallets))
}

// choosePayment — метод выбран, ждём фото чека
func (app *BotApp) choosePayment(ctx context.Context, chatID int64, msgID int, lang ports.Language, method string) {
	if app.session().get(chatID).months == 0 {
		app.show(chatID, msgID, app.Texts.Text(lang, "flow_expired"), app.durationKeyboard(lang))
		return
	}

	address, err := app.SettingsService.WalletAddress(ctx, method)
	if err != nil {
		app.replyError(ctx, chatID, lang, err, "wallet address")
		return
	}

	app.session().update(chatID, func(s *session) {
		s.method = method
		s.step = stepWaitingReceipt
	})

	app.show(chatID, msgID, app.Texts.Text(lang, "send_receipt", "address", address), nil)
}
