package telegram

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Vovarama1992/channel_subs/internal/ports"
)

func (app *BotApp) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil || cb.Message == nil {
		return
	}
	tgID := cb.From.ID
	chatID := cb.Message.Chat.ID
	msgID := cb.Message.MessageID

	app.Log.Debugw("[callback]", "from", tgID, "data", cb.Data)

	data, ok := parseCallback(cb.Data)
	if !ok {
		app.Log.Warnw("[callback] unknown data", "from", tgID, "data", cb.Data)
		app.answer(cb.ID, "", false)
		return
	}

	if adminCallbacks[data.action] && !app.isAdmin(tgID) {
		app.answer(cb.ID, app.Texts.Text(app.userLang(ctx, tgID), "admin_only"), true)
		return
	}

	// всегда отвечаем Telegram
	app.answer(cb.ID, "", false)

	if adminCallbacks[data.action] {
		app.handleAdminCallback(ctx, cb, data)
		return
	}

	// ---------------------------
	// 1) Выбор языка
	// ---------------------------
	if data.action == actionLang {
		lang := ports.ParseLanguage(data.arg)
		if _, err := app.SubscriptionService.SelectLanguage(ctx, tgID, cb.From.UserName, lang); err != nil {
			app.replyError(ctx, chatID, lang, err, "select language")
			return
		}
		app.session().reset(chatID)
		app.show(chatID, msgID, app.Texts.Text(lang, "choose_service"), app.BuildMainKeyboard(lang, tgID))
		return
	}

	lang := app.userLang(ctx, tgID)

	switch data.action {
	case "go_start":
		app.session().reset(chatID)
		app.show(chatID, msgID, app.Texts.Text(lang, "choose_service"), app.BuildMainKeyboard(lang, tgID))

	case "free_news":
		channel := "https://t.me/" + app.PublicChannelUsername
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(app.Texts.Button(lang, "open_channel"), channel)),
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(app.Texts.Button(lang, "back"), "go_start")),
		)
		app.show(chatID, msgID, app.Texts.Text(lang, "free_news", "channel", channel), &kb)

	case "paid_sub":
		app.session().reset(chatID)
		app.show(chatID, msgID, app.Texts.Text(lang, "sub_duration"), app.durationKeyboard(lang))

	case actionDuration:
		app.chooseDuration(ctx, chatID, msgID, lang, data.n)

	case actionMethod:
		app.choosePayment(ctx, chatID, msgID, lang, data.arg)

	case "my_account":
		app.showAccount(ctx, chatID, msgID, tgID, lang)
	}
}

func (app *BotApp) answer(callbackID, text string, alert bool) {
	cfg := tgbotapi.NewCallback(callbackID, text)
	cfg.ShowAlert = alert
	if _, err := app.bot.Request(cfg); err != nil {
		app.Log.Debugw("[callback] answer failed", "err", err)
	}
}

func (app *BotApp) showAccount(ctx context.Context, chatID int64, msgID int, tgID int64, lang ports.Language) {
	sub, err := app.SubscriptionService.Get(ctx, tgID)
	if err != nil || sub.State != ports.StateActive || sub.EndAt == nil {
		app.show(chatID, msgID, app.Texts.Text(lang, "account_inactive"), app.BuildMainKeyboard(lang, tgID))
		return
	}

	text := app.Texts.Text(lang, "account_active",
		"end_date", sub.EndAt.Format("2006-01-02"),
		"days_left", sub.DaysLeft(time.Now()),
	)
	app.show(chatID, msgID, text, app.backKeyboard(lang, "go_start"))
}
