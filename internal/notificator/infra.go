package notificator

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// пауза между ban и unban, иначе телеграм иногда не успевает исключить участника
const revokePause = time.Second

type Infra struct {
	bot       Bot
	adminID   int64
	channelID int64
	pause     time.Duration
	log       *zap.SugaredLogger
}

func NewInfra(bot Bot, adminID, channelID int64, log *zap.SugaredLogger) *Infra {
	return &Infra{
		bot:       bot,
		adminID:   adminID,
		channelID: channelID,
		pause:     revokePause,
		log:       log,
	}
}

func (i *Infra) UserNotify(ctx context.Context, chatID int64, text string) error {
	if _, err := i.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		i.log.Warnw("[notificator] user send failed", "chat_id", chatID, "err", err)
		return err
	}
	return nil
}

func (i *Infra) AdminNotify(ctx context.Context, err error, details string) error {
	text := fmt.Sprintf(
		"❗ خطأ في البوت\n\nالخطأ: %v\n\nالتفاصيل: %s",
		err,
		details,
	)

	if _, sendErr := i.bot.Send(tgbotapi.NewMessage(i.adminID, text)); sendErr != nil {
		i.log.Errorw("[notificator] admin send failed", "admin_id", i.adminID, "err", sendErr)
		return sendErr
	}
	return nil
}

// Revoke — ban + unban: пользователь исключён из канала, но может вернуться по новой ссылке
func (i *Infra) Revoke(ctx context.Context, userID int64) error {
	if i.channelID == 0 {
		return nil
	}

	member := tgbotapi.ChatMemberConfig{ChatID: i.channelID, UserID: userID}

	if _, err := i.bot.Request(tgbotapi.BanChatMemberConfig{ChatMemberConfig: member}); err != nil {
		return fmt.Errorf("ban chat member %d: %w", userID, err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(i.pause):
	}

	// unban делаем даже при отменённом контексте, иначе бан останется постоянным
	if _, err := i.bot.Request(tgbotapi.UnbanChatMemberConfig{
		ChatMemberConfig: member,
		OnlyIfBanned:     true,
	}); err != nil {
		return fmt.Errorf("unban chat member %d: %w", userID, err)
	}

	i.log.Infow("[notificator] removed from channel", "user_id", userID, "channel_id", i.channelID)
	return nil
}
