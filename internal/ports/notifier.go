package ports

import "context"

// Notice — тип исходящего уведомления пользователю
type Notice string

const (
	NoticeReminder3Days Notice = "reminder_3_days"
	NoticeReminder1Day  Notice = "reminder_1_day"
	NoticeExpired       Notice = "sub_expired"
)

// Notifier — исходящие сообщения; ошибки доставки не влияют на переходы
type Notifier interface {
	UserNotice(ctx context.Context, userID int64, lang Language, notice Notice) error
	AdminAlert(ctx context.Context, err error, details string) error
}

// ChannelGate — доступ к приватному каналу
type ChannelGate interface {
	// Revoke удаляет пользователя из канала без постоянного бана (ban + unban)
	Revoke(ctx context.Context, userID int64) error
}

// DecisionNotifier — сообщения пользователю о решениях админа (бот и HTTP API шлют одно и то же)
type DecisionNotifier interface {
	Approved(ctx context.Context, sub *Subscription) error
	Rejected(ctx context.Context, sub *Subscription) error
	Extended(ctx context.Context, sub *Subscription, days int) error
	Shortened(ctx context.Context, sub *Subscription, days int) error
}
