package domain

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Vovarama1992/channel_subs/internal/ports"
)

const (
	day = 24 * time.Hour
	// месяц подписки всегда 30 дней, без календарной точности
	month = 30 * day
	// grace period после end_at до перевода в ended
	GracePeriod = day
	// предел одного продления/сокращения; дальше time.Duration переполняется
	maxAdjustDays = 3650
)

var _ ports.SubscriptionService = (*SubscriptionService)(nil)

type SubscriptionService struct {
	repo  ports.SubscriptionRepo
	log   *zap.SugaredLogger
	now   func() time.Time
	locks *userLocks
}

func NewSubscriptionService(repo ports.SubscriptionRepo, log *zap.SugaredLogger) *SubscriptionService {
	return &SubscriptionService{
		repo:  repo,
		log:   log,
		now:   time.Now,
		locks: newUserLocks(),
	}
}

// WithClock — подмена часов (тесты, пересчёт задним числом)
func (s *SubscriptionService) WithClock(now func() time.Time) *SubscriptionService {
	s.now = now
	return s
}

func (s *SubscriptionService) clock() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

// mutate — read full record → изменить копию → validate → один upsert.
// Все переходы по одному user_id сериализуются.
func (s *SubscriptionService) mutate(
	ctx context.Context,
	userID int64,
	fn func(cur *ports.Subscription) (*ports.Subscription, error),
) (*ports.Subscription, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	cur, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load subscription: %w", err)
	}

	var next *ports.Subscription
	if cur != nil {
		next, err = fn(cur.Clone())
	} else {
		next, err = fn(nil)
	}
	if err != nil {
		return nil, err
	}

	if err := next.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, next); err != nil {
		return nil, fmt.Errorf("save subscription: %w", err)
	}
	return next, nil
}

// ==================================================
// USER ACTIONS
// ==================================================

func (s *SubscriptionService) SelectLanguage(
	ctx context.Context,
	userID int64,
	username string,
	lang ports.Language,
) (*ports.Subscription, error) {
	return s.mutate(ctx, userID, func(cur *ports.Subscription) (*ports.Subscription, error) {
		if cur == nil {
			return ports.NewSubscription(userID, username, lang)
		}
		cur.Language = lang
		if username != "" {
			cur.Username = username
		}
		return cur, nil
	})
}

// SubmitReceipt — любое состояние → pending (повторная подписка разрешена)
func (s *SubscriptionService) SubmitReceipt(ctx context.Context, in ports.ReceiptInput) (*ports.Subscription, error) {
	in.Method = strings.TrimSpace(in.Method)

	switch {
	case in.Method == "":
		return nil, fmt.Errorf("%w: payment method is not chosen", ports.ErrValidation)
	case !ports.ValidDuration(in.DurationMonths):
		return nil, fmt.Errorf("%w: duration %d is not offered", ports.ErrValidation, in.DurationMonths)
	case in.ReceiptFileID == "":
		return nil, fmt.Errorf("%w: receipt is missing", ports.ErrValidation)
	}

	sub, err := s.mutate(ctx, in.UserID, func(cur *ports.Subscription) (*ports.Subscription, error) {
		if cur == nil {
			var err error
			if cur, err = ports.NewSubscription(in.UserID, in.Username, ports.LangAR); err != nil {
				return nil, err
			}
		}
		if in.Username != "" {
			cur.Username = in.Username
		}
		cur.Method = in.Method
		cur.DurationMonths = in.DurationMonths
		cur.ReceiptFileID = in.ReceiptFileID
		cur.State = ports.StatePending
		return cur, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("[subscription] receipt submitted", "user_id", in.UserID, "months", in.DurationMonths, "method", in.Method)
	return sub, nil
}

// ==================================================
// ADMIN ACTIONS
// ==================================================

// Approve — pending → active; start=now, end=now+months*30d
func (s *SubscriptionService) Approve(ctx context.Context, userID int64) (*ports.Subscription, error) {
	sub, err := s.mutate(ctx, userID, func(cur *ports.Subscription) (*ports.Subscription, error) {
		if cur == nil || cur.State != ports.StatePending {
			return nil, ports.ErrNotActionable
		}

		months := cur.DurationMonths
		if months == 0 {
			months = 1
		}

		now := s.clock()
		end := now.Add(time.Duration(months) * month)
		cur.StartAt = &now
		cur.EndAt = &end
		cur.State = ports.StateActive
		cur.ReminderSent = ports.ReminderNone
		return cur, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("[subscription] approved", "user_id", userID, "end_at", sub.EndAt)
	return sub, nil
}

func (s *SubscriptionService) Reject(ctx context.Context, userID int64) (*ports.Subscription, error) {
	sub, err := s.mutate(ctx, userID, func(cur *ports.Subscription) (*ports.Subscription, error) {
		if cur == nil || cur.State != ports.StatePending {
			return nil, ports.ErrNotActionable
		}
		cur.State = ports.StateRejected
		return cur, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("[subscription] rejected", "user_id", userID)
	return sub, nil
}

func (s *SubscriptionService) Extend(ctx context.Context, userID int64, days int) (*ports.Subscription, error) {
	if err := validateAdjustDays(days); err != nil {
		return nil, err
	}

	return s.mutate(ctx, userID, func(cur *ports.Subscription) (*ports.Subscription, error) {
		if cur == nil || cur.State != ports.StateActive || cur.StartAt == nil || cur.EndAt == nil {
			return nil, ports.ErrNotEligible
		}
		end := cur.EndAt.Add(time.Duration(days) * day)
		cur.EndAt = &end
		cur.ReminderSent = reminderAfterExtend(end.Sub(s.clock()), cur.ReminderSent)
		return cur, nil
	})
}

func validateAdjustDays(days int) error {
	if days <= 0 {
		return fmt.Errorf("%w: days must be positive", ports.ErrValidation)
	}
	if days > maxAdjustDays {
		return fmt.Errorf("%w: days must be at most %d", ports.ErrValidation, maxAdjustDays)
	}
	return nil
}

// reminderAfterExtend — маркер сбрасывается только для порогов, которые снова впереди.
// Продление на пару дней после 1-дневного напоминания не шлёт «осталось 3 дня».
func reminderAfterExtend(timeLeft time.Duration, sent ports.ReminderStage) ports.ReminderStage {
	daysLeft := int(timeLeft / day)
	switch {
	case daysLeft > 3:
		return ports.ReminderNone
	case daysLeft > 1 && sent == ports.ReminderOneDay:
		return ports.ReminderThreeDays
	}
	return sent
}

// Shorten — end = max(start, end - days), длительность не уходит в минус
func (s *SubscriptionService) Shorten(ctx context.Context, userID int64, days int) (*ports.Subscription, error) {
	if err := validateAdjustDays(days); err != nil {
		return nil, err
	}

	return s.mutate(ctx, userID, func(cur *ports.Subscription) (*ports.Subscription, error) {
		if cur == nil || cur.State != ports.StateActive || cur.StartAt == nil || cur.EndAt == nil {
			return nil, ports.ErrNotEligible
		}
		end := cur.EndAt.Add(-time.Duration(days) * day)
		if end.Before(*cur.StartAt) {
			end = *cur.StartAt
		}
		cur.EndAt = &end
		return cur, nil
	})
}

// Expire — active → ended, только когда прошёл grace period
func (s *SubscriptionService) Expire(ctx context.Context, userID int64) (*ports.Subscription, error) {
	sub, err := s.mutate(ctx, userID, func(cur *ports.Subscription) (*ports.Subscription, error) {
		if cur == nil || cur.State != ports.StateActive || cur.EndAt == nil {
			return nil, ports.ErrNotEligible
		}
		if s.clock().Sub(*cur.EndAt) < GracePeriod {
			return nil, ports.ErrNotEligible
		}
		cur.State = ports.StateEnded
		return cur, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("[subscription] ended", "user_id", userID)
	return sub, nil
}

func (s *SubscriptionService) MarkReminder(ctx context.Context, userID int64, stage ports.ReminderStage) error {
	_, err := s.mutate(ctx, userID, func(cur *ports.Subscription) (*ports.Subscription, error) {
		if cur == nil || cur.State != ports.StateActive {
			return nil, ports.ErrNotEligible
		}
		cur.ReminderSent = stage
		return cur, nil
	})
	return err
}

func (s *SubscriptionService) Delete(ctx context.Context, userID int64) error {
	unlock := s.locks.lock(userID)
	defer unlock()

	cur, err := s.repo.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("load subscription: %w", err)
	}
	if cur == nil {
		return ports.ErrNotFound
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}

	s.log.Infow("[subscription] deleted", "user_id", userID)
	return nil
}

// ==================================================
// READ
// ==================================================

func (s *SubscriptionService) Get(ctx context.Context, userID int64) (*ports.Subscription, error) {
	sub, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ports.ErrNotFound
	}
	return sub, nil
}

func (s *SubscriptionService) FindByUsername(ctx context.Context, username string) (*ports.Subscription, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return nil, fmt.Errorf("%w: empty username", ports.ErrValidation)
	}

	subs, err := s.repo.List(ctx, ports.Filter{Username: username})
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, ports.ErrNotFound
	}
	return subs[0], nil
}

func (s *SubscriptionService) List(ctx context.Context, f ports.Filter) ([]*ports.Subscription, error) {
	return s.repo.List(ctx, f)
}

func (s *SubscriptionService) Stats(ctx context.Context) (*ports.Stats, error) {
	subs, err := s.repo.List(ctx, ports.Filter{})
	if err != nil {
		return nil, err
	}
	return BuildStats(subs), nil
}

// BuildStats — счётчики по состоянию, языку, сроку и топ-5 активных по сроку
func BuildStats(subs []*ports.Subscription) *ports.Stats {
	st := &ports.Stats{
		Total:      len(subs),
		ByState:    map[ports.State]int{},
		ByLanguage: map[ports.Language]int{},
		ByDuration: map[int]int{},
	}

	var active []*ports.Subscription
	for _, sub := range subs {
		st.ByState[sub.State]++
		st.ByLanguage[sub.Language]++
		if sub.DurationMonths > 0 {
			st.ByDuration[sub.DurationMonths]++
		}
		if sub.State == ports.StateActive {
			active = append(active, sub)
		}
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].DurationMonths > active[j].DurationMonths
	})
	if len(active) > 5 {
		active = active[:5]
	}
	for _, sub := range active {
		st.TopActive = append(st.TopActive, ports.UserCount{
			UserID:         sub.UserID,
			Username:       sub.Username,
			DurationMonths: sub.DurationMonths,
		})
	}
	return st
}

// ==================================================
// PER-USER LOCKS
// ==================================================

type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[int64]*userLock)}
}

func (l *userLocks) lock(userID int64) func() {
	l.mu.Lock()
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()

	return func() {
		ul.mu.Unlock()

		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}
