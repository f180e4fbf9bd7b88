package telegram

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Vovarama1992/channel_subs/internal/ports"
)

// сроки в днях для ручного продления/сокращения
var adjustDays = []int{7, 15, 30, 60, 90}

func languageKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🇸🇦 عربي", "lang_ar")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🇬🇧 English", "lang_en")),
	)
	return &kb
}

func (app *BotApp) BuildMainKeyboard(lang ports.Language, tgID int64) *tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(app.Texts.Button(lang, "free_news"), "free_news")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(app.Texts.Button(lang, "paid_sub"), "paid_sub")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(app.Texts.Button(lang, "my_account"), "my_account")),
	}
	if app.isAdmin(tgID) {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(app.Texts.Button(lang, "admin_panel"), "admin_panel"),
		))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func (app *BotApp) backKeyboard(lang ports.Language, data string) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(app.Texts.Button(lang, "back"), data)),
	)
	return &kb
}

func (app *BotApp) durationKeyboard(lang ports.Language) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, m := range ports.AllowedDurations {
		data := fmt.Sprintf("duration_%d", m)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(app.Texts.Button(lang, data), data),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(app.Texts.Button(lang, "back"), "go_start"),
	))
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func (app *BotApp) methodKeyboard(lang ports.Language, wallets []ports.Wallet) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, w := range wallets {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(w.Method, "method_"+w.Method),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(app.Texts.Button(lang, "back"), "paid_sub"),
	))
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

// ==================================================
// ADMIN
// ==================================================

func (app *BotApp) adminKeyboard(lang ports.Language) tgbotapi.InlineKeyboardMarkup {
	row := func(key, data string) []tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(app.Texts.Button(lang, key), data))
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		row("admin_stats", "admin_stats"),
		row("admin_pending", "admin_pending"),
		row("admin_all_users", "admin_all_users"),
		row("admin_search", "admin_search"),
		row("admin_send_to_user", "send_to_user"),
		row("admin_links", "admin_links"),
		row("admin_wallets", "admin_wallets"),
		row("admin_broadcast", "admin_broadcast"),
		row("admin_export", "admin_export"),
		row("back", "go_start"),
	)
}

func (app *BotApp) decisionRow(lang ports.Language, userID int64) []tgbotapi.InlineKeyboardButton {
	id := strconv.FormatInt(userID, 10)
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(app.Texts.Button(lang, "approve"), "approve_"+id),
		tgbotapi.NewInlineKeyboardButtonData(app.Texts.Button(lang, "reject"), "reject_"+id),
	)
}

func (app *BotApp) userCardKeyboard(lang ports.Language, userID int64) *tgbotapi.InlineKeyboardMarkup {
	id := strconv.FormatInt(userID, 10)
	kb := tgbotapi.NewInlineKeyboardMarkup(
		app.decisionRow(lang, userID),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(app.Texts.Button(lang, "extend"), "extend_menu_"+id),
			tgbotapi.NewInlineKeyboardButtonData(app.Texts.Button(lang, "shorten"), "shorten_menu_"+id),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(app.Texts.Button(lang, "delete"), "delete_"+id),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(app.Texts.Button(lang, "back"), "admin_panel"),
		),
	)
	return &kb
}

// adjustKeyboard — action: "extend" или "shorten"
func (app *BotApp) adjustKeyboard(lang ports.Language, action string, userID int64) *tgbotapi.InlineKeyboardMarkup {
	sign := "➕"
	if action == actionShorten {
		sign = "➖"
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, d := range adjustDays {
		label := sign + " " + app.Texts.Text(lang, "admin_days", "days", d)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s_%d_%d", action, userID, d)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(app.Texts.Button(lang, "back"), fmt.Sprintf("view_user_%d", userID)),
	))
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func (app *BotApp) linksKeyboard(lang ports.Language) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(app.Texts.Button(lang, "add_links"), "add_links")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(app.Texts.Button(lang, "clear_links"), "clear_links")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(app.Texts.Button(lang, "back"), "admin_panel")),
	)
	return &kb
}

func (app *BotApp) walletsKeyboard(lang ports.Language, wallets []ports.Wallet) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, w := range wallets {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(w.Method+": "+shorten(w.Address, 15), "edit_wallet_"+w.Method),
		))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(app.Texts.Button(lang, "edit_wallets"), "edit_wallets")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(app.Texts.Button(lang, "back"), "admin_panel")),
	)
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func (app *BotApp) editWalletsKeyboard(lang ports.Language, wallets []ports.Wallet) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, w := range wallets {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ "+w.Method, "edit_wallet_"+w.Method),
		))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(app.Texts.Button(lang, "add_wallet_method"), "add_new_wallet_method")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(app.Texts.Button(lang, "back"), "admin_wallets")),
	)
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

// shorten — обрезка по рунам, адреса бывают не только ASCII
func shorten(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
