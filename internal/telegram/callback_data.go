package telegram

import (
	"strconv"
	"strings"
)

const (
	actionLang        = "lang"
	actionDuration    = "duration"
	actionMethod      = "method"
	actionEditWallet  = "edit_wallet"
	actionViewUser    = "view_user"
	actionApprove     = "approve"
	actionReject      = "reject"
	actionDelete      = "delete"
	actionExtendMenu  = "extend_menu"
	actionShortenMenu = "shorten_menu"
	actionExtend      = "extend"
	actionShorten     = "shorten"
)

// callbacks без параметров
var staticCallbacks = map[string]bool{
	"go_start":              true,
	"free_news":             true,
	"paid_sub":              true,
	"my_account":            true,
	"admin_panel":           true,
	"admin_stats":           true,
	"admin_pending":         true,
	"admin_all_users":       true,
	"admin_search":          true,
	"send_to_user":          true,
	"admin_links":           true,
	"add_links":             true,
	"clear_links":           true,
	"admin_wallets":         true,
	"edit_wallets":          true,
	"add_new_wallet_method": true,
	"admin_broadcast":       true,
	"admin_export":          true,
}

// только для ADMIN_ID
var adminCallbacks = map[string]bool{
	"admin_panel":           true,
	"admin_stats":           true,
	"admin_pending":         true,
	"admin_all_users":       true,
	"admin_search":          true,
	"send_to_user":          true,
	"admin_links":           true,
	"add_links":             true,
	"clear_links":           true,
	"admin_wallets":         true,
	"edit_wallets":          true,
	"add_new_wallet_method": true,
	"admin_broadcast":       true,
	"admin_export":          true,
	actionEditWallet:        true,
	actionViewUser:          true,
	actionApprove:           true,
	actionReject:            true,
	actionDelete:            true,
	actionExtendMenu:        true,
	actionShortenMenu:       true,
	actionExtend:            true,
	actionShorten:           true,
}

type callbackData struct {
	action string
	userID int64
	// дни для extend/shorten, месяцы для duration
	n   int
	arg string
}

// parseCallback разбирает callback_data кнопок бота
func parseCallback(data string) (callbackData, bool) {
	if staticCallbacks[data] {
		return callbackData{action: data}, true
	}

	switch {
	case strings.HasPrefix(data, "lang_"):
		lang := strings.TrimPrefix(data, "lang_")
		if lang != "ar" && lang != "en" {
			return callbackData{}, false
		}
		return callbackData{action: actionLang, arg: lang}, true

	case strings.HasPrefix(data, "duration_"):
		n, err := strconv.Atoi(strings.TrimPrefix(data, "duration_"))
		if err != nil {
			return callbackData{}, false
		}
		return callbackData{action: actionDuration, n: n}, true

	case strings.HasPrefix(data, "method_"):
		return nonEmptyArg(actionMethod, strings.TrimPrefix(data, "method_"))

	case strings.HasPrefix(data, "edit_wallet_"):
		return nonEmptyArg(actionEditWallet, strings.TrimPrefix(data, "edit_wallet_"))
	}

	// порядок важен: extend_menu_ раньше extend_
	for _, action := range []string{actionViewUser, actionApprove, actionReject, actionDelete, actionExtendMenu, actionShortenMenu} {
		if rest, ok := strings.CutPrefix(data, action+"_"); ok {
			id, err := strconv.ParseInt(rest, 10, 64)
			if err != nil {
				return callbackData{}, false
			}
			return callbackData{action: action, userID: id}, true
		}
	}

	for _, action := range []string{actionExtend, actionShorten} {
		if rest, ok := strings.CutPrefix(data, action+"_"); ok {
			idRaw, daysRaw, found := strings.Cut(rest, "_")
			if !found {
				return callbackData{}, false
			}
			id, err := strconv.ParseInt(idRaw, 10, 64)
			if err != nil {
				return callbackData{}, false
			}
			days, err := strconv.Atoi(daysRaw)
			if err != nil {
				return callbackData{}, false
			}
			return callbackData{action: action, userID: id, n: days}, true
		}
	}

	return callbackData{}, false
}

func nonEmptyArg(action, arg string) (callbackData, bool) {
	if arg == "" {
		return callbackData{}, false
	}
	return callbackData{action: action, arg: arg}, true
}
