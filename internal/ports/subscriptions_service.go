package ports

import "context"

// ReceiptInput — данные заявки: метод и срок выбраны до отправки чека
type ReceiptInput struct {
	UserID         int64
	Username       string
	Method         string
	DurationMonths int
	ReceiptFileID  string
}

type UserCount struct {
	UserID         int64  `json:"user_id"`
	Username       string `json:"username"`
	DurationMonths int    `json:"duration_months"`
}

// Stats — простые счётчики для админки
type Stats struct {
	Total      int              `json:"total"`
	ByState    map[State]int    `json:"by_state"`
	ByLanguage map[Language]int `json:"by_language"`
	ByDuration map[int]int      `json:"by_duration"`
	TopActive  []UserCount      `json:"top_active"`
}

type SubscriptionService interface {
	SelectLanguage(ctx context.Context, userID int64, username string, lang Language) (*Subscription, error)
	SubmitReceipt(ctx context.Context, in ReceiptInput) (*Subscription, error)

	Approve(ctx context.Context, userID int64) (*Subscription, error)
	Reject(ctx context.Context, userID int64) (*Subscription, error)
	Extend(ctx context.Context, userID int64, days int) (*Subscription, error)
	Shorten(ctx context.Context, userID int64, days int) (*Subscription, error)
	Expire(ctx context.Context, userID int64) (*Subscription, error)
	MarkReminder(ctx context.Context, userID int64, stage ReminderStage) error
	Delete(ctx context.Context, userID int64) error

	Get(ctx context.Context, userID int64) (*Subscription, error)
	FindByUsername(ctx context.Context, username string) (*Subscription, error)
	List(ctx context.Context, f Filter) ([]*Subscription, error)
	Stats(ctx context.Context) (*Stats, error)
}
