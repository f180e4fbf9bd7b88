package telegram

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Vovarama1992/channel_subs/internal/ports"
)

func (app *BotApp) formatUserCard(lang ports.Language, sub *ports.Subscription, now time.Time) string {
	notSet := app.Texts.Text(lang, "admin_not_set")

	user := notSet
	if sub.Username != "" {
		user = "@" + sub.Username
	}

	start, end, relative := notSet, notSet, notSet
	if sub.StartAt != nil {
		start = sub.StartAt.Format("2006-01-02")
	}
	if sub.EndAt != nil {
		end = sub.EndAt.Format("2006-01-02")
		relative = humanize.RelTime(*sub.EndAt, now, "ago", "from now")
	}

	language := "عربي"
	if sub.Language == ports.LangEN {
		language = "English"
	}

	method := sub.Method
	if method == "" {
		method = notSet
	}

	return app.Texts.Text(lang, "admin_user_card",
		"user_id", sub.UserID,
		"user", user,
		"language", language,
		"months", sub.DurationMonths,
		"start", start,
		"end", end,
		"relative", relative,
		"days_left", sub.DaysLeft(now),
		"state", strings.ToUpper(string(sub.State)),
		"method", method,
	)
}

func (app *BotApp) formatStats(lang ports.Language, st *ports.Stats) string {
	if st.Total == 0 {
		return app.Texts.Text(lang, "admin_stats_empty")
	}

	var top strings.Builder
	for _, u := range st.TopActive {
		name := fmt.Sprintf("ID: %d", u.UserID)
		if u.Username != "" {
			name = "@" + u.Username
		}
		top.WriteString("• " + name + " - " + app.Texts.Text(lang, "admin_months", "months", u.DurationMonths) + "\n")
	}
	topText := top.String()
	if topText == "" {
		topText = app.Texts.Text(lang, "admin_stats_top_none")
	}

	return app.Texts.Text(lang, "admin_stats",
		"total", st.Total,
		"active", st.ByState[ports.StateActive],
		"pending", st.ByState[ports.StatePending],
		"ended", st.ByState[ports.StateEnded],
		"rejected", st.ByState[ports.StateRejected],
		"new", st.ByState[ports.StateNew],
		"ar", st.ByLanguage[ports.LangAR],
		"en", st.ByLanguage[ports.LangEN],
		"m1", st.ByDuration[1],
		"m3", st.ByDuration[3],
		"m6", st.ByDuration[6],
		"top", strings.TrimRight(topText, "\n"),
	)
}
