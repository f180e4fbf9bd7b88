package telegram

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Vovarama1992/channel_subs/internal/ports"
)

// runBotLoop — главный цикл получения апдейтов
func (app *BotApp) runBotLoop(ctx context.Context, api *tgbotapi.BotAPI) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	// chat_member приходит только если запросить явно
	u.AllowedUpdates = []string{"message", "callback_query", "chat_member"}

	updates := api.GetUpdatesChan(u)
	app.Log.Infow("[bot_loop] started", "username", api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			app.Log.Infow("[bot_loop] context cancelled, stopping")
			return

		case update, ok := <-updates:
			if !ok {
				return
			}
			app.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate — разбор одного апдейта; паника в хендлере не роняет цикл
func (app *BotApp) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			app.Log.Errorw("[bot_loop] handler panic", "update_id", update.UpdateID, "panic", r)
		}
	}()

	if fromID := extractTelegramID(update); fromID != 0 {
		app.Log.Debugw("[bot_touch]", "from", fromID, "update_id", update.UpdateID)
	}

	switch {
	case update.Message != nil:
		app.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		app.handleCallback(ctx, update.CallbackQuery)
	case update.ChatMember != nil:
		app.handleChatMember(ctx, update.ChatMember)
	}
}

func (app *BotApp) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	chatID := msg.Chat.ID
	tgID := msg.From.ID

	// =====================================================
	// КОМАНДЫ
	// =====================================================
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			app.session().reset(chatID)
			app.send(chatID, app.Texts.Text(ports.LangAR, "choose_language"), languageKeyboard())
			return

		case "admin":
			lang := app.userLang(ctx, tgID)
			if !app.isAdmin(tgID) {
				app.send(chatID, app.Texts.Text(lang, "admin_only"), nil)
				return
			}
			app.session().reset(chatID)
			kb := app.adminKeyboard(lang)
			app.send(chatID, app.Texts.Text(lang, "admin_panel_title"), &kb)
			return
		}
	}

	sess := app.session().get(chatID)

	// =====================================================
	// ОЖИДАЕМЫЙ ВВОД ПО ШАГУ ДИАЛОГА
	// =====================================================
	switch sess.step {
	case stepWaitingReceipt:
		app.handleReceipt(ctx, msg, sess)
		return

	case stepAddLinks, stepEditWallet, stepNewWalletName, stepNewWalletAddress,
		stepSearch, stepSendTarget, stepSendMessage, stepBroadcast:
		if !app.isAdmin(tgID) {
			app.session().reset(chatID)
			return
		}
		app.handleAdminInput(ctx, msg, sess)
		return
	}

	if len(msg.Photo) > 0 {
		// фото без выбранного срока и метода
		lang := app.userLang(ctx, tgID)
		app.send(chatID, app.Texts.Text(lang, "flow_expired"), nil)
		return
	}

	app.send(chatID, app.Texts.Text(ports.LangAR, "choose_language"), languageKeyboard())
}

// handleChatMember — приветствие при входе в приватный канал
func (app *BotApp) handleChatMember(ctx context.Context, upd *tgbotapi.ChatMemberUpdated) {
	if app.PrivateChannelID == 0 || upd.Chat.ID != app.PrivateChannelID {
		return
	}
	if !joined(upd.OldChatMember, upd.NewChatMember) || upd.NewChatMember.User == nil {
		return
	}

	userID := upd.NewChatMember.User.ID
	lang := app.userLang(ctx, userID)
	if _, err := app.bot.Send(tgbotapi.NewMessage(userID, app.Texts.Text(lang, "welcome_to_channel"))); err != nil {
		app.Log.Warnw("[chat_member] welcome not delivered", "user_id", userID, "err", err)
	}
}

func joined(old, cur tgbotapi.ChatMember) bool {
	return !isMember(old) && isMember(cur)
}

func isMember(m tgbotapi.ChatMember) bool {
	switch m.Status {
	case "creator", "administrator", "member":
		return true
	case "restricted":
		return m.IsMember
	}
	return false
}

func extractTelegramID(u tgbotapi.Update) int64 {
	switch {
	case u.Message != nil && u.Message.From != nil:
		return u.Message.From.ID
	case u.CallbackQuery != nil && u.CallbackQuery.From != nil:
		return u.CallbackQuery.From.ID
	case u.ChatMember != nil:
		return u.ChatMember.From.ID
	default:
		return 0
	}
}

// ==================================================
// HELPERS
// ==================================================

func (app *BotApp) isAdmin(tgID int64) bool {
	return tgID == app.AdminID
}

// userLang — язык из записи, по умолчанию арабский
func (app *BotApp) userLang(ctx context.Context, tgID int64) ports.Language {
	sub, err := app.SubscriptionService.Get(ctx, tgID)
	if err != nil {
		if !errors.Is(err, ports.ErrNotFound) {
			app.Log.Warnw("[bot] load language failed", "user_id", tgID, "err", err)
		}
		return ports.LangAR
	}
	return sub.Language
}

func (app *BotApp) send(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	m := tgbotapi.NewMessage(chatID, text)
	if kb != nil {
		m.ReplyMarkup = *kb
	}
	if _, err := app.bot.Send(m); err != nil {
		app.Log.Warnw("[bot] send failed", "chat_id", chatID, "err", err)
	}
}

// show — редактируем сообщение с кнопками, при неудаче шлём новое
func (app *BotApp) show(chatID int64, messageID int, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	if messageID != 0 {
		var edit tgbotapi.EditMessageTextConfig
		if kb != nil {
			edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, *kb)
		} else {
			edit = tgbotapi.NewEditMessageText(chatID, messageID, text)
		}
		_, err := app.bot.Send(edit)
		if err == nil || strings.Contains(err.Error(), "message is not modified") {
			return
		}
	}
	app.send(chatID, text, kb)
}

// replyError — state-conflict и validation объясняем, остальное — общий текст + алерт админу
func (app *BotApp) replyError(ctx context.Context, chatID int64, lang ports.Language, err error, details string) {
	var key string
	switch {
	case errors.Is(err, ports.ErrNotActionable):
		key = "admin_not_actionable"
	case errors.Is(err, ports.ErrNotEligible):
		key = "admin_not_eligible"
	case errors.Is(err, ports.ErrNotFound):
		key = "admin_user_not_found"
	case errors.Is(err, ports.ErrValidation):
		app.send(chatID, "❌ "+err.Error(), nil)
		return
	default:
		key = "generic_error"
		app.Log.Errorw("[bot] operation failed", "details", details, "err", err)
		if app.Notifier != nil {
			_ = app.Notifier.AdminAlert(ctx, err, details)
		}
	}
	app.send(chatID, app.Texts.Text(lang, key), nil)
}
