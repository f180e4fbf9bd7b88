package notificator

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Vovarama1992/channel_subs/internal/ports"
)

type Decisions struct {
	bot   Bot
	texts Catalog
	links InviteLinks
	log   *zap.SugaredLogger
}

func NewDecisions(bot Bot, texts Catalog, links InviteLinks, log *zap.SugaredLogger) *Decisions {
	return &Decisions{bot: bot, texts: texts, links: links, log: log}
}

// Approved — кнопка со ссылкой на канал; если кнопка не ушла, ссылка текстом
func (d *Decisions) Approved(ctx context.Context, sub *ports.Subscription) error {
	lang := sub.Language

	link, err := d.links.NextInviteLink(ctx)
	if err != nil {
		d.log.Errorw("[notificator] invite link failed", "user_id", sub.UserID, "err", err)
	}
	link = strings.TrimSpace(link)

	if link == "" {
		return d.send(sub.UserID, d.texts.Text(lang, "sub_approved_link", "link", "-"))
	}

	m := tgbotapi.NewMessage(sub.UserID, d.texts.Text(lang, "sub_approved"))
	m.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(d.texts.Button(lang, "join_channel"), link)),
	)
	if _, err := d.bot.Send(m); err != nil {
		d.log.Warnw("[notificator] join button not delivered", "user_id", sub.UserID, "err", err)
		return d.send(sub.UserID, d.texts.Text(lang, "sub_approved_link", "link", link))
	}
	return nil
}

func (d *Decisions) Rejected(ctx context.Context, sub *ports.Subscription) error {
	return d.send(sub.UserID, d.texts.Text(sub.Language, "sub_rejected"))
}

func (d *Decisions) Extended(ctx context.Context, sub *ports.Subscription, days int) error {
	return d.send(sub.UserID, d.texts.Text(sub.Language, "sub_extended", "days", days))
}

func (d *Decisions) Shortened(ctx context.Context, sub *ports.Subscription, days int) error {
	return d.send(sub.UserID, d.texts.Text(sub.Language, "sub_shortened", "days", days))
}

func (d *Decisions) send(chatID int64, text string) error {
	if _, err := d.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		d.log.Warnw("[notificator] decision not delivered", "chat_id", chatID, "err", err)
		return err
	}
	return nil
}
