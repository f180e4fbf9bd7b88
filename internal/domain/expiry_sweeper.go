package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Vovarama1992/channel_subs/internal/ports"
)

type SweepReport struct {
	Scanned   int
	Reminded3 int
	Reminded1 int
	Expired   int
	// запись изменилась между чтением и переходом, ничего не сделано
	Skipped  int
	Failures int
}

type outcome int

const (
	outcomeDone outcome = iota
	outcomeSkipped
	outcomeFailed
)

// ExpirySweeper — периодический полный проход по активным подпискам:
// напоминания за 3 дня и за 1 день, перевод в ended после grace period.
type ExpirySweeper struct {
	subs     ports.SubscriptionService
	notifier ports.Notifier
	// nil — приватный канал не настроен
	gate     ports.ChannelGate
	interval time.Duration
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewExpirySweeper(
	subs ports.SubscriptionService,
	notifier ports.Notifier,
	gate ports.ChannelGate,
	interval time.Duration,
	log *zap.SugaredLogger,
) *ExpirySweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &ExpirySweeper{
		subs:     subs,
		notifier: notifier,
		gate:     gate,
		interval: interval,
		log:      log,
		now:      time.Now,
	}
}

func (w *ExpirySweeper) WithClock(now func() time.Time) *ExpirySweeper {
	w.now = now
	return w
}

// Start — первый проход сразу, далее каждые interval.
// Паника в проходе логируется, расписание продолжается; проходы не накладываются.
func (w *ExpirySweeper) Start(ctx context.Context) *cron.Cron {
	cl := cronLogger{log: w.log}
	job := cron.NewChain(
		cron.Recover(cl),
		cron.SkipIfStillRunning(cl),
	).Then(cron.FuncJob(func() { w.runOnce(ctx) }))

	c := cron.New(cron.WithLogger(cl))
	c.Schedule(cron.Every(w.interval), job)

	go job.Run()
	c.Start()

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		w.log.Infow("[sweeper] stopped")
	}()

	w.log.Infow("[sweeper] started", "interval", w.interval.String())
	return c
}

func (w *ExpirySweeper) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	runID := uuid.NewString()
	started := time.Now()

	rep, err := w.Sweep(ctx)
	if err != nil {
		w.log.Errorw("[sweeper] sweep failed", "run_id", runID, "err", err)
		return
	}

	w.log.Infow("[sweeper] sweep done",
		"run_id", runID,
		"scanned", rep.Scanned,
		"reminded_3d", rep.Reminded3,
		"reminded_1d", rep.Reminded1,
		"expired", rep.Expired,
		"skipped", rep.Skipped,
		"failures", rep.Failures,
		"took", time.Since(started).String(),
	)
}

// Sweep — один полный проход. Ошибка только если не удалось прочитать записи;
// сбои по отдельным записям логируются и считаются в Failures.
func (w *ExpirySweeper) Sweep(ctx context.Context) (SweepReport, error) {
	var rep SweepReport

	subs, err := w.subs.List(ctx, ports.Filter{States: []ports.State{ports.StateActive}})
	if err != nil {
		return rep, fmt.Errorf("list active subscriptions: %w", err)
	}

	now := w.now().UTC()
	for _, sub := range subs {
		if sub.State != ports.StateActive || sub.EndAt == nil {
			continue
		}
		rep.Scanned++

		timeLeft := sub.EndAt.Sub(now)

		if timeLeft <= -GracePeriod {
			switch w.expire(ctx, sub) {
			case outcomeDone:
				rep.Expired++
			case outcomeSkipped:
				rep.Skipped++
			default:
				rep.Failures++
			}
			continue
		}

		stage := reminderDue(timeLeft, sub.ReminderSent)
		if stage == ports.ReminderNone {
			continue
		}

		switch w.remind(ctx, sub, stage) {
		case outcomeDone:
			if stage == ports.ReminderThreeDays {
				rep.Reminded3++
			} else {
				rep.Reminded1++
			}
		case outcomeSkipped:
			rep.Skipped++
		default:
			rep.Failures++
		}
	}

	return rep, nil
}

// reminderDue — какое напоминание положено сейчас с учётом уже отправленного.
// Срабатывает на пересечение порога, а не на точное попадание в день,
// поэтому пропуск окна из-за сдвига расписания не теряет напоминание.
func reminderDue(timeLeft time.Duration, sent ports.ReminderStage) ports.ReminderStage {
	if timeLeft < 0 {
		return ports.ReminderNone
	}

	daysLeft := int(timeLeft / day)
	switch {
	case daysLeft <= 1:
		if sent != ports.ReminderOneDay {
			return ports.ReminderOneDay
		}
	case daysLeft <= 3:
		if sent == ports.ReminderNone {
			return ports.ReminderThreeDays
		}
	}
	return ports.ReminderNone
}

// remind — сначала фиксируем маркер, потом шлём: не больше одного сообщения на порог
func (w *ExpirySweeper) remind(ctx context.Context, sub *ports.Subscription, stage ports.ReminderStage) outcome {
	if err := w.subs.MarkReminder(ctx, sub.UserID, stage); err != nil {
		if errors.Is(err, ports.ErrNotEligible) {
			w.log.Debugw("[sweeper] reminder skipped, record changed", "user_id", sub.UserID, "stage", int(stage))
			return outcomeSkipped
		}
		w.log.Errorw("[sweeper] mark reminder failed", "user_id", sub.UserID, "stage", int(stage), "err", err)
		return outcomeFailed
	}

	notice := ports.NoticeReminder3Days
	if stage == ports.ReminderOneDay {
		notice = ports.NoticeReminder1Day
	}

	if err := w.notifier.UserNotice(ctx, sub.UserID, sub.Language, notice); err != nil {
		w.log.Warnw("[sweeper] reminder not delivered", "user_id", sub.UserID, "notice", string(notice), "err", err)
	}
	return outcomeDone
}

func (w *ExpirySweeper) expire(ctx context.Context, sub *ports.Subscription) outcome {
	if _, err := w.subs.Expire(ctx, sub.UserID); err != nil {
		if errors.Is(err, ports.ErrNotEligible) {
			w.log.Debugw("[sweeper] expiry skipped, record changed", "user_id", sub.UserID)
			return outcomeSkipped
		}
		w.log.Errorw("[sweeper] expire failed", "user_id", sub.UserID, "err", err)
		_ = w.notifier.AdminAlert(ctx, err, fmt.Sprintf("expire subscription %d", sub.UserID))
		return outcomeFailed
	}

	if w.gate != nil {
		if err := w.gate.Revoke(ctx, sub.UserID); err != nil {
			w.log.Warnw("[sweeper] channel revoke failed", "user_id", sub.UserID, "err", err)
		}
	}

	if err := w.notifier.UserNotice(ctx, sub.UserID, sub.Language, ports.NoticeExpired); err != nil {
		w.log.Warnw("[sweeper] expiry notice not delivered", "user_id", sub.UserID, "err", err)
	}
	return outcomeDone
}

// cronLogger — адаптер zap → cron.Logger
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw("[cron] "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw("[cron] "+msg, append(keysAndValues, "err", err)...)
}
