package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Vovarama1992/channel_subs/internal/ports"
)

// handleReceipt — фото чека после выбора срока и метода
func (app *BotApp) handleReceipt(ctx context.Context, msg *tgbotapi.Message, sess session) {
	chatID := msg.Chat.ID
	tgID := msg.From.ID
	lang := app.userLang(ctx, tgID)

	if len(msg.Photo) == 0 {
		app.send(chatID, app.Texts.Text(lang, "receipt_photo_only"), nil)
		return
	}

	// самое большое превью — последнее
	p := msg.Photo[len(msg.Photo)-1]
	app.Log.Infow("[photo] receipt", "user_id", tgID, "file_id", p.FileID, "size", fmt.Sprintf("%dx%d", p.Width, p.Height))

	sub, err := app.SubscriptionService.SubmitReceipt(ctx, ports.ReceiptInput{
		UserID:         tgID,
		Username:       msg.From.UserName,
		Method:         sess.method,
		DurationMonths: sess.months,
		ReceiptFileID:  p.FileID,
	})
	if err != nil {
		app.replyError(ctx, chatID, lang, err, fmt.Sprintf("submit receipt user=%d", tgID))
		return
	}

	app.session().reset(chatID)
	app.notifyAdminReceipt(sub)
	app.send(chatID, app.Texts.Text(lang, "receipt_received"), app.BuildMainKeyboard(lang, tgID))
}

// notifyAdminReceipt — текст заявки, фото чека и кнопка к списку ожидающих
func (app *BotApp) notifyAdminReceipt(sub *ports.Subscription) {
	lang := ports.LangAR

	text := app.Texts.Text(lang, "admin_new_request",
		"user", displayName(sub),
		"user_id", sub.UserID,
		"months", sub.DurationMonths,
		"method", sub.Method,
	)
	if _, err := app.bot.Send(tgbotapi.NewMessage(app.AdminID, text)); err != nil {
		app.Log.Warnw("[photo] admin notify failed", "user_id", sub.UserID, "err", err)
		return
	}

	photo := tgbotapi.NewPhoto(app.AdminID, tgbotapi.FileID(sub.ReceiptFileID))
	if _, err := app.bot.Send(photo); err != nil {
		app.Log.Warnw("[photo] admin receipt forward failed", "user_id", sub.UserID, "err", err)
	}

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(app.Texts.Button(lang, "admin_pending"), "admin_pending"),
		),
		app.decisionRow(lang, sub.UserID),
	)
	app.send(app.AdminID, app.Texts.Text(lang, "admin_review_now"), &kb)
}

func displayName(sub *ports.Subscription) string {
	if sub.Username != "" {
		return "@" + sub.Username
	}
	return fmt.Sprintf("ID: %d", sub.UserID)
}
