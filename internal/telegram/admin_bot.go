package telegram

import (
	"context"
	"fmt"
	"sort"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Vovarama1992/channel_subs/internal/ports"
)

// сколько пользователей показываем в списке
const allUsersLimit = 50

// ==================================================
// ADMIN CALLBACKS
// ==================================================

func (app *BotApp) handleAdminCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, data callbackData) {
	chatID := cb.Message.Chat.ID
	msgID := cb.Message.MessageID
	lang := app.userLang(ctx, cb.From.ID)

	switch data.action {
	case "admin_panel":
		app.session().reset(chatID)
		kb := app.adminKeyboard(lang)
		app.show(chatID, msgID, app.Texts.Text(lang, "admin_panel_title"), &kb)

	case "admin_stats":
		app.showStats(ctx, chatID, msgID, lang)

	case "admin_pending":
		app.showPending(ctx, chatID, msgID, lang)

	case "admin_all_users":
		app.showAllUsers(ctx, chatID, msgID, lang)

	case actionViewUser:
		app.showUserCard(ctx, chatID, msgID, lang, data.userID)

	case actionApprove:
		app.approve(ctx, chatID, msgID, lang, data.userID)

	case actionReject:
		app.reject(ctx, chatID, msgID, lang, data.userID)

	case actionExtendMenu, actionShortenMenu:
		action, key := actionExtend, "admin_extend_prompt"
		if data.action == actionShortenMenu {
			action, key = actionShorten, "admin_shorten_prompt"
		}
		app.show(chatID, msgID, app.Texts.Text(lang, key, "user_id", data.userID), app.adjustKeyboard(lang, action, data.userID))

	case actionExtend, actionShorten:
		app.adjust(ctx, chatID, msgID, lang, data)

	case actionDelete:
		if err := app.SubscriptionService.Delete(ctx, data.userID); err != nil {
			app.replyError(ctx, chatID, lang, err, fmt.Sprintf("delete user=%d", data.userID))
			return
		}
		app.show(chatID, msgID, app.Texts.Text(lang, "admin_deleted", "user_id", data.userID), nil)

	case "admin_export":
		app.export(ctx, chatID, lang)

	case "admin_links":
		app.showLinks(ctx, chatID, msgID, lang)

	case "add_links":
		app.session().update(chatID, func(s *session) { s.step = stepAddLinks })
		app.show(chatID, msgID, app.Texts.Text(lang, "admin_links_prompt"), nil)

	case "clear_links":
		if err := app.SettingsService.ClearInviteLinks(ctx); err != nil {
			app.replyError(ctx, chatID, lang, err, "clear invite links")
			return
		}
		kb := app.adminKeyboard(lang)
		app.show(chatID, msgID, app.Texts.Text(lang, "admin_links_cleared"), &kb)

	case "admin_wallets", "edit_wallets":
		wallets, err := app.SettingsService.Wallets(ctx)
		if err != nil {
			app.replyError(ctx, chatID, lang, err, "list wallets")
			return
		}
		if data.action == "admin_wallets" {
			app.show(chatID, msgID, app.Texts.Text(lang, "admin_wallets_title"), app.walletsKeyboard(lang, wallets))
		} else {
			app.show(chatID, msgID, app.Texts.Text(lang, "admin_wallets_edit"), app.editWalletsKeyboard(lang, wallets))
		}

	case actionEditWallet:
		app.session().update(chatID, func(s *session) {
			s.step = stepEditWallet
			s.walletMethod = data.arg
		})
		app.show(chatID, msgID, app.Texts.Text(lang, "admin_wallet_address_prompt", "method", data.arg), nil)

	case "add_new_wallet_method":
		app.session().update(chatID, func(s *session) { s.step = stepNewWalletName })
		app.show(chatID, msgID, app.Texts.Text(lang, "admin_wallet_method_prompt"), nil)

	case "admin_search":
		app.session().update(chatID, func(s *session) { s.step = stepSearch })
		app.show(chatID, msgID, app.Texts.Text(lang, "admin_search_prompt"), app.backKeyboard(lang, "admin_panel"))

	case "send_to_user":
		app.session().update(chatID, func(s *session) { s.step = stepSendTarget })
		app.show(chatID, msgID, app.Texts.Text(lang, "admin_send_prompt"), nil)

	case "admin_broadcast":
		app.session().update(chatID, func(s *session) { s.step = stepBroadcast })
		app.show(chatID, msgID, app.Texts.Text(lang, "admin_broadcast_prompt"), nil)
	}
}

// ==================================================
// LIFECYCLE ACTIONS
// ==================================================

func (app *BotApp) approve(ctx context.Context, chatID int64, msgID int, lang ports.Language, userID int64) {
	sub, err := app.SubscriptionService.Approve(ctx, userID)
	if err != nil {
		app.replyError(ctx, chatID, lang, err, fmt.Sprintf("approve user=%d", userID))
		return
	}

	_ = app.Decisions.Approved(ctx, sub)
	app.show(chatID, msgID, app.Texts.Text(lang, "admin_approved", "user_id", userID), nil)
}

func (app *BotApp) reject(ctx context.Context, chatID int64, msgID int, lang ports.Language, userID int64) {
	sub, err := app.SubscriptionService.Reject(ctx, userID)
	if err != nil {
		app.replyError(ctx, chatID, lang, err, fmt.Sprintf("reject user=%d", userID))
		return
	}

	_ = app.Decisions.Rejected(ctx, sub)
	app.show(chatID, msgID, app.Texts.Text(lang, "admin_rejected", "user_id", userID), nil)
}

func (app *BotApp) adjust(ctx context.Context, chatID int64, msgID int, lang ports.Language, data callbackData) {
	var (
		sub *ports.Subscription
		err error
	)
	if data.action == actionExtend {
		sub, err = app.SubscriptionService.Extend(ctx, data.userID, data.n)
	} else {
		sub, err = app.SubscriptionService.Shorten(ctx, data.userID, data.n)
	}
	if err != nil {
		app.replyError(ctx, chatID, lang, err, fmt.Sprintf("%s user=%d days=%d", data.action, data.userID, data.n))
		return
	}

	if data.action == actionExtend {
		_ = app.Decisions.Extended(ctx, sub, data.n)
	} else {
		_ = app.Decisions.Shortened(ctx, sub, data.n)
	}
	app.renderUserCard(chatID, msgID, lang, sub)
}

// ==================================================
// VIEWS
// ==================================================

func (app *BotApp) showUserCard(ctx context.Context, chatID int64, msgID int, lang ports.Language, userID int64) {
	sub, err := app.SubscriptionService.Get(ctx, userID)
	if err != nil {
		app.replyError(ctx, chatID, lang, err, fmt.Sprintf("get user=%d", userID))
		return
	}
	app.renderUserCard(chatID, msgID, lang, sub)
}

func (app *BotApp) renderUserCard(chatID int64, msgID int, lang ports.Language, sub *ports.Subscription) {
	app.show(chatID, msgID, app.formatUserCard(lang, sub, time.Now()), app.userCardKeyboard(lang, sub.UserID))
}

func (app *BotApp) showStats(ctx context.Context, chatID int64, msgID int, lang ports.Language) {
	st, err := app.SubscriptionService.Stats(ctx)
	if err != nil {
		app.replyError(ctx, chatID, lang, err, "stats")
		return
	}
	kb := app.adminKeyboard(lang)
	app.show(chatID, msgID, app.formatStats(lang, st), &kb)
}

func (app *BotApp) showPending(ctx context.Context, chatID int64, msgID int, lang ports.Language) {
	subs, err := app.SubscriptionService.List(ctx, ports.Filter{States: []ports.State{ports.StatePending}})
	if err != nil {
		app.replyError(ctx, chatID, lang, err, "list pending")
		return
	}

	kb := app.adminKeyboard(lang)
	if len(subs) == 0 {
		app.show(chatID, msgID, app.Texts.Text(lang, "admin_pending_empty"), &kb)
		return
	}

	for _, sub := range subs {
		text := app.Texts.Text(lang, "admin_pending_title") + "\n\n" + app.Texts.Text(lang, "admin_pending_item",
			"user", displayName(sub),
			"months", sub.DurationMonths,
			"method", sub.Method,
		)
		row := tgbotapi.NewInlineKeyboardMarkup(app.decisionRow(lang, sub.UserID))
		app.send(chatID, text, &row)

		if sub.ReceiptFileID != "" {
			photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(sub.ReceiptFileID))
			photo.Caption = app.Texts.Text(lang, "admin_receipt_caption", "user", displayName(sub))
			if _, err := app.bot.Send(photo); err != nil {
				app.Log.Warnw("[admin] receipt not shown", "user_id", sub.UserID, "err", err)
			}
		}
	}

	app.send(chatID, app.Texts.Text(lang, "admin_pending_done"), &kb)
}

func (app *BotApp) showAllUsers(ctx context.Context, chatID int64, msgID int, lang ports.Language) {
	subs, err := app.SubscriptionService.List(ctx, ports.Filter{})
	if err != nil {
		app.replyError(ctx, chatID, lang, err, "list users")
		return
	}

	if len(subs) == 0 {
		kb := app.adminKeyboard(lang)
		app.show(chatID, msgID, app.Texts.Text(lang, "admin_users_empty"), &kb)
		return
	}

	sortForAdmin(subs, time.Now())
	if len(subs) > allUsersLimit {
		subs = subs[:allUsersLimit]
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, sub := range subs {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				stateEmoji(sub.State)+" "+displayName(sub),
				fmt.Sprintf("view_user_%d", sub.UserID),
			),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(app.Texts.Button(lang, "back"), "admin_panel"),
	))

	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	app.show(chatID, msgID, app.Texts.Text(lang, "admin_users_title"), &kb)
}

// sortForAdmin — активные первыми, затем по сроку и оставшимся дням
func sortForAdmin(subs []*ports.Subscription, now time.Time) {
	rank := func(s ports.State) int {
		switch s {
		case ports.StateActive:
			return 0
		case ports.StatePending:
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(subs, func(i, j int) bool {
		a, b := subs[i], subs[j]
		if rank(a.State) != rank(b.State) {
			return rank(a.State) < rank(b.State)
		}
		if a.DurationMonths != b.DurationMonths {
			return a.DurationMonths > b.DurationMonths
		}
		return a.DaysLeft(now) > b.DaysLeft(now)
	})
}

func stateEmoji(s ports.State) string {
	switch s {
	case ports.StateActive:
		return "✅"
	case ports.StatePending:
		return "⏳"
	case ports.StateNew:
		return "🆕"
	default:
		return "❌"
	}
}

func (app *BotApp) export(ctx context.Context, chatID int64, lang ports.Language) {
	exp, err := app.ExportService.ExportCSV(ctx)
	if err != nil {
		app.replyError(ctx, chatID, lang, err, "export csv")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: exp.Filename, Bytes: exp.Data})
	doc.Caption = app.Texts.Text(lang, "admin_export_caption")
	if _, err := app.bot.Send(doc); err != nil {
		app.Log.Errorw("[admin] export not delivered", "err", err)
		app.send(chatID, app.Texts.Text(lang, "generic_error"), nil)
		return
	}

	if exp.URL != "" {
		app.send(chatID, app.Texts.Text(lang, "admin_export_archived", "url", exp.URL), nil)
	}
}

func (app *BotApp) showLinks(ctx context.Context, chatID int64, msgID int, lang ports.Language) {
	links, err := app.SettingsService.InviteLinks(ctx)
	if err != nil {
		app.replyError(ctx, chatID, lang, err, "list invite links")
		return
	}

	free := 0
	for _, l := range links {
		if !l.Used {
			free++
		}
	}
	app.show(chatID, msgID, app.Texts.Text(lang, "admin_links_title", "free", free, "total", len(links)), app.linksKeyboard(lang))
}
