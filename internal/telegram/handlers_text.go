package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Vovarama1992/channel_subs/internal/ports"
)

// handleAdminInput — ответы админа на запросы ввода (ссылки, кошельки, поиск, рассылка)
func (app *BotApp) handleAdminInput(ctx context.Context, msg *tgbotapi.Message, sess session) {
	chatID := msg.Chat.ID
	lang := app.userLang(ctx, msg.From.ID)
	text := strings.TrimSpace(msg.Text)

	switch sess.step {
	case stepAddLinks:
		n, err := app.SettingsService.AddInviteLinks(ctx, msg.Text)
		app.session().reset(chatID)
		if err != nil {
			app.replyError(ctx, chatID, lang, err, "add invite links")
			return
		}
		app.send(chatID, app.Texts.Text(lang, "admin_links_added", "count", n), app.linksKeyboard(lang))

	case stepEditWallet, stepNewWalletAddress:
		method := sess.walletMethod
		if err := app.SettingsService.SetWallet(ctx, method, text); err != nil {
			if errors.Is(err, ports.ErrValidation) {
				app.send(chatID, app.Texts.Text(lang, "admin_empty_input"), nil)
				return
			}
			app.session().reset(chatID)
			app.replyError(ctx, chatID, lang, err, "set wallet")
			return
		}
		app.session().reset(chatID)
		app.send(chatID, app.Texts.Text(lang, "admin_wallet_saved", "method", method, "address", text), app.backKeyboard(lang, "admin_wallets"))

	case stepNewWalletName:
		if text == "" {
			app.send(chatID, app.Texts.Text(lang, "admin_empty_input"), nil)
			return
		}
		app.session().update(chatID, func(s *session) {
			s.step = stepNewWalletAddress
			s.walletMethod = text
		})
		app.send(chatID, app.Texts.Text(lang, "admin_wallet_method_next", "method", text), nil)

	case stepSearch:
		app.session().reset(chatID)
		sub, err := app.findUser(ctx, text)
		if err != nil {
			if errors.Is(err, ports.ErrNotFound) || errors.Is(err, ports.ErrValidation) {
				app.send(chatID, app.Texts.Text(lang, "admin_search_not_found"), app.backKeyboard(lang, "admin_panel"))
				return
			}
			app.replyError(ctx, chatID, lang, err, "search user")
			return
		}
		app.renderUserCard(chatID, 0, lang, sub)

	case stepSendTarget:
		id, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			app.send(chatID, app.Texts.Text(lang, "admin_send_no_target"), nil)
			return
		}
		app.session().update(chatID, func(s *session) {
			s.step = stepSendMessage
			s.targetID = id
		})
		app.send(chatID, app.Texts.Text(lang, "admin_send_message_prompt", "user_id", id), nil)

	case stepSendMessage:
		app.session().reset(chatID)
		if sess.targetID == 0 {
			app.send(chatID, app.Texts.Text(lang, "admin_send_no_target"), nil)
			return
		}
		if _, err := app.bot.Send(tgbotapi.NewCopyMessage(sess.targetID, chatID, msg.MessageID)); err != nil {
			app.send(chatID, app.Texts.Text(lang, "admin_send_failed", "error", err.Error()), nil)
			return
		}
		app.send(chatID, app.Texts.Text(lang, "admin_send_ok", "user_id", sess.targetID), nil)

	case stepBroadcast:
		app.session().reset(chatID)
		app.broadcast(ctx, chatID, lang, msg.MessageID)
	}
}

// findUser — числовой id или username (с @ или без)
func (app *BotApp) findUser(ctx context.Context, query string) (*ports.Subscription, error) {
	if id, err := strconv.ParseInt(query, 10, 64); err == nil {
		return app.SubscriptionService.Get(ctx, id)
	}
	return app.SubscriptionService.FindByUsername(ctx, query)
}

// broadcast — копия сообщения админа всем, кто есть в базе
func (app *BotApp) broadcast(ctx context.Context, chatID int64, lang ports.Language, messageID int) {
	subs, err := app.SubscriptionService.List(ctx, ports.Filter{})
	if err != nil {
		app.replyError(ctx, chatID, lang, err, "broadcast list")
		return
	}

	sent, failed := 0, 0
	for _, sub := range subs {
		if ctx.Err() != nil {
			break
		}
		if sub.UserID == chatID {
			continue
		}
		if _, err := app.bot.Send(tgbotapi.NewCopyMessage(sub.UserID, chatID, messageID)); err != nil {
			failed++
			continue
		}
		sent++
	}

	app.Log.Infow("[admin] broadcast done", "sent", sent, "failed", failed)
	app.send(chatID, app.Texts.Text(lang, "admin_broadcast_done", "sent", sent, "failed", failed), nil)
}
