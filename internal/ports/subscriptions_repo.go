package ports

import (
	"context"
	"fmt"
	"time"
)

type State string

const (
	StateNew      State = "new"
	StatePending  State = "pending"
	StateActive   State = "active"
	StateEnded    State = "ended"
	StateRejected State = "rejected"
)

func (s State) Valid() bool {
	switch s {
	case StateNew, StatePending, StateActive, StateEnded, StateRejected:
		return true
	}
	return false
}

type Language string

const (
	LangAR Language = "ar"
	LangEN Language = "en"
)

// ParseLanguage — всё, что не "en", считаем арабским (язык по умолчанию)
func ParseLanguage(s string) Language {
	if Language(s) == LangEN {
		return LangEN
	}
	return LangAR
}

// ReminderStage — какое напоминание уже отправлено в текущем периоде подписки
type ReminderStage int

const (
	ReminderNone      ReminderStage = 0
	ReminderOneDay    ReminderStage = 1
	ReminderThreeDays ReminderStage = 3
)

// допустимые сроки подписки в месяцах
var AllowedDurations = []int{1, 3, 6}

func ValidDuration(months int) bool {
	for _, d := range AllowedDurations {
		if d == months {
			return true
		}
	}
	return false
}

// Subscription — одна запись на пользователя
type Subscription struct {
	UserID         int64         `json:"user_id"`
	Username       string        `json:"username"`
	Method         string        `json:"method"`
	DurationMonths int           `json:"duration_months"`
	StartAt        *time.Time    `json:"start_at"`
	EndAt          *time.Time    `json:"end_at"`
	State          State         `json:"state"`
	ReceiptFileID  string        `json:"receipt_file_id"`
	Language       Language      `json:"language"`
	ReminderSent   ReminderStage `json:"reminder_sent"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// NewSubscription — единственный способ создать запись с нуля (state=new)
func NewSubscription(userID int64, username string, lang Language) (*Subscription, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if lang != LangAR && lang != LangEN {
		return nil, fmt.Errorf("%w: unsupported language %q", ErrValidation, lang)
	}
	return &Subscription{
		UserID:   userID,
		Username: username,
		State:    StateNew,
		Language: lang,
	}, nil
}

// Clone — глубокая копия, чтобы мутировать запись только в памяти до upsert
func (s *Subscription) Clone() *Subscription {
	c := *s
	if s.StartAt != nil {
		t := *s.StartAt
		c.StartAt = &t
	}
	if s.EndAt != nil {
		t := *s.EndAt
		c.EndAt = &t
	}
	return &c
}

// Validate проверяет инварианты записи перед сохранением
func (s *Subscription) Validate() error {
	if s.UserID == 0 {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if !s.State.Valid() {
		return fmt.Errorf("%w: unknown state %q", ErrValidation, s.State)
	}
	if s.Language != LangAR && s.Language != LangEN {
		return fmt.Errorf("%w: unsupported language %q", ErrValidation, s.Language)
	}
	if s.DurationMonths != 0 && !ValidDuration(s.DurationMonths) {
		return fmt.Errorf("%w: unsupported duration %d", ErrValidation, s.DurationMonths)
	}
	if s.StartAt != nil && s.EndAt != nil && s.EndAt.Before(*s.StartAt) {
		return fmt.Errorf("%w: end before start", ErrValidation)
	}
	if s.State == StateActive && (s.StartAt == nil || s.EndAt == nil) {
		return fmt.Errorf("%w: active subscription without period", ErrValidation)
	}
	return nil
}

// TimeLeft — сколько осталось до end_at (отрицательное после истечения)
func (s *Subscription) TimeLeft(now time.Time) time.Duration {
	if s.EndAt == nil {
		return 0
	}
	return s.EndAt.Sub(now)
}

// DaysLeft — целые дни до окончания, не меньше нуля
func (s *Subscription) DaysLeft(now time.Time) int {
	left := s.TimeLeft(now)
	if left <= 0 {
		return 0
	}
	return int(left / (24 * time.Hour))
}

// Filter — условия выборки; пустые поля не фильтруют
type Filter struct {
	States   []State
	Language Language
	Username string
}

type SubscriptionRepo interface {
	Get(ctx context.Context, userID int64) (*Subscription, error)
	Upsert(ctx context.Context, s *Subscription) error
	Delete(ctx context.Context, userID int64) error
	List(ctx context.Context, f Filter) ([]*Subscription, error)
}
