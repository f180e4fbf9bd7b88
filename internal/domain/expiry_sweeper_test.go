package domain

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Vovarama1992/channel_subs/internal/ports"
)

func newTestSweeper() (*ExpirySweeper, *memRepo, *recNotifier, *recGate, *fixedClock) {
	svc, repo, clk := newTestService()
	notifier := &recNotifier{}
	gate := &recGate{}
	w := NewExpirySweeper(svc, notifier, gate, time.Hour, testLogger()).WithClock(clk.Now)
	return w, repo, notifier, gate, clk
}

func TestSweep_ExpiresAfterGrace(t *testing.T) {
	w, repo, notifier, gate, _ := newTestSweeper()
	ctx := context.Background()

	repo.put(activeSub(1, t0.Add(-31*day), t0.Add(-25*time.Hour)))

	rep, err := w.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Expired)

	stored, _ := repo.Get(ctx, 1)
	assert.Equal(t, ports.StateEnded, stored.State)
	assert.Equal(t, []int64{1}, gate.revoked)
	assert.Equal(t, []sentNotice{{UserID: 1, Lang: ports.LangEN, Notice: ports.NoticeExpired}}, notifier.sent())

	// повторный проход ничего не делает
	rep, err = w.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Scanned)
	assert.Len(t, gate.revoked, 1)
	assert.Len(t, notifier.sent(), 1)
}

func TestSweep_WithinGraceIsQuiet(t *testing.T) {
	w, repo, notifier, gate, _ := newTestSweeper()

	repo.put(activeSub(1, t0.Add(-30*day), t0.Add(-2*time.Hour)))

	rep, err := w.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Scanned)
	assert.Zero(t, rep.Expired)
	assert.Empty(t, notifier.sent())
	assert.Empty(t, gate.revoked)
}

func TestSweep_ThreeDayReminderOnce(t *testing.T) {
	w, repo, notifier, _, _ := newTestSweeper()
	ctx := context.Background()

	repo.put(activeSub(2, t0.Add(-27*day), t0.Add(3*day)))

	rep, err := w.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Reminded3)

	rep, err = w.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Reminded3)
	assert.Zero(t, rep.Reminded1)

	require.Len(t, notifier.sent(), 1)
	assert.Equal(t, ports.NoticeReminder3Days, notifier.sent()[0].Notice)

	stored, _ := repo.Get(ctx, 2)
	assert.Equal(t, ports.ReminderThreeDays, stored.ReminderSent)
}

func TestSweep_MissedWindowStillReminds(t *testing.T) {
	w, repo, notifier, _, clk := newTestSweeper()
	ctx := context.Background()

	// прошлый проход был при 3.5 днях, следующий уже при 2.5
	repo.put(activeSub(3, t0.Add(-28*day), t0.Add(2*day+12*time.Hour)))

	_, err := w.Sweep(ctx)
	require.NoError(t, err)

	clk.Advance(2 * day)
	_, err = w.Sweep(ctx)
	require.NoError(t, err)

	clk.Advance(time.Hour)
	_, err = w.Sweep(ctx)
	require.NoError(t, err)

	sent := notifier.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, ports.NoticeReminder3Days, sent[0].Notice)
	assert.Equal(t, ports.NoticeReminder1Day, sent[1].Notice)
}

func TestSweep_OneDayWithoutThreeDay(t *testing.T) {
	w, repo, notifier, _, _ := newTestSweeper()

	repo.put(activeSub(4, t0.Add(-30*day), t0.Add(10*time.Hour)))

	rep, err := w.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Reminded1)
	assert.Zero(t, rep.Reminded3)
	require.Len(t, notifier.sent(), 1)
	assert.Equal(t, ports.NoticeReminder1Day, notifier.sent()[0].Notice)
}

func TestSweep_FailureDoesNotAbort(t *testing.T) {
	w, repo, notifier, gate, _ := newTestSweeper()
	ctx := context.Background()

	repo.put(activeSub(10, t0.Add(-31*day), t0.Add(-2*day)))
	repo.put(activeSub(11, t0.Add(-31*day), t0.Add(-2*day)))
	repo.failUpsert[10] = errBoom

	rep, err := w.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Failures)
	assert.Equal(t, 1, rep.Expired)

	stored, _ := repo.Get(ctx, 10)
	assert.Equal(t, ports.StateActive, stored.State)
	stored, _ = repo.Get(ctx, 11)
	assert.Equal(t, ports.StateEnded, stored.State)

	assert.Equal(t, []int64{11}, gate.revoked)
	assert.Len(t, notifier.alerts, 1)
}

func TestSweep_DeliveryErrorKeepsTransition(t *testing.T) {
	w, repo, notifier, _, _ := newTestSweeper()
	ctx := context.Background()
	notifier.err = errBoom

	repo.put(activeSub(5, t0.Add(-27*day), t0.Add(3*day)))

	rep, err := w.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Reminded3)

	// маркер уже записан, второй раз не шлём
	_, err = w.Sweep(ctx)
	require.NoError(t, err)
	assert.Len(t, notifier.sent(), 1)
}

func TestSweep_NoGate(t *testing.T) {
	svc, repo, clk := newTestService()
	notifier := &recNotifier{}
	w := NewExpirySweeper(svc, notifier, nil, 0, testLogger()).WithClock(clk.Now)

	repo.put(activeSub(6, t0.Add(-31*day), t0.Add(-3*day)))

	rep, err := w.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Expired)
	assert.Equal(t, time.Hour, w.interval)
}

// staleList: записи меняются между чтением списка и переходами
type staleList struct {
	ports.SubscriptionService
	after func()
}

func (s staleList) List(ctx context.Context, f ports.Filter) ([]*ports.Subscription, error) {
	subs, err := s.SubscriptionService.List(ctx, f)
	s.after()
	return subs, err
}

func TestSweep_ChangedRecordIsSkipped(t *testing.T) {
	svc, repo, clk := newTestService()
	notifier := &recNotifier{}
	gate := &recGate{}
	ctx := context.Background()

	repo.put(activeSub(1, t0.Add(-27*day), t0.Add(3*day)))
	repo.put(activeSub(2, t0.Add(-31*day), t0.Add(-2*day)))

	changed := staleList{SubscriptionService: svc, after: func() {
		// админ удалил первого и вручную закрыл второго
		_ = repo.Delete(ctx, 1)
		ended := activeSub(2, t0.Add(-31*day), t0.Add(-2*day))
		ended.State = ports.StateEnded
		repo.put(ended)
	}}
	w := NewExpirySweeper(changed, notifier, gate, time.Hour, testLogger()).WithClock(clk.Now)

	rep, err := w.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Scanned)
	assert.Equal(t, 2, rep.Skipped)
	assert.Zero(t, rep.Reminded3)
	assert.Zero(t, rep.Expired)
	assert.Zero(t, rep.Failures)

	assert.Empty(t, notifier.sent())
	assert.Empty(t, notifier.alerts)
	assert.Empty(t, gate.revoked)
}

func TestSweep_ShortExtensionAfterOneDayReminder(t *testing.T) {
	w, repo, notifier, _, clk := newTestSweeper()
	ctx := context.Background()

	repo.put(activeSub(3, t0.Add(-29*day), t0.Add(day)))

	rep, err := w.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Reminded1)

	// продлили на день: осталось 2 дня, «осталось 3 дня» не шлём
	_, err = w.subs.Extend(ctx, 3, 1)
	require.NoError(t, err)

	rep, err = w.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Reminded3)
	assert.Zero(t, rep.Reminded1)

	// через сутки снова в пределах дня: 1-дневное уходит ещё раз
	clk.Advance(day + time.Hour)
	rep, err = w.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Reminded1)

	var notices []ports.Notice
	for _, n := range notifier.sent() {
		notices = append(notices, n.Notice)
	}
	assert.Equal(t, []ports.Notice{ports.NoticeReminder1Day, ports.NoticeReminder1Day}, notices)
}

// flakyNotifier: первый вызов UserNotice паникует
type flakyNotifier struct {
	recNotifier
	panicked atomic.Bool
}

func (n *flakyNotifier) UserNotice(ctx context.Context, userID int64, lang ports.Language, notice ports.Notice) error {
	if n.panicked.CompareAndSwap(false, true) {
		panic("telegram client exploded")
	}
	return n.recNotifier.UserNotice(ctx, userID, lang, notice)
}

func TestRunOnce_ListErrorIsLogged(t *testing.T) {
	svc, repo, clk := newTestService()
	core, logs := observer.New(zap.DebugLevel)
	w := NewExpirySweeper(svc, &recNotifier{}, nil, time.Hour, zap.New(core).Sugar()).WithClock(clk.Now)

	repo.failList = []error{errBoom}
	require.NotPanics(t, func() { w.runOnce(context.Background()) })

	failed := logs.FilterMessage("[sweeper] sweep failed").All()
	require.Len(t, failed, 1)
	assert.NotEmpty(t, failed[0].ContextMap()["run_id"])

	// отменённый контекст: прохода нет
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.runOnce(ctx)
	assert.Equal(t, 1, repo.listCalls())
}

func TestStart_SurvivesFailuresAndStops(t *testing.T) {
	svc, repo, clk := newTestService()
	notifier := &flakyNotifier{}
	core, logs := observer.New(zap.DebugLevel)
	// cron.Every не ходит чаще раза в секунду
	w := NewExpirySweeper(svc, notifier, &recGate{}, time.Second, zap.New(core).Sugar()).WithClock(clk.Now)

	repo.put(activeSub(1, t0.Add(-27*day), t0.Add(3*day)))
	repo.put(activeSub(2, t0.Add(-31*day), t0.Add(-2*day)))
	repo.failList = []error{errBoom}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	// первый проход упал на List, следующий запаниковал на уведомлении,
	// дальнейший всё равно закрыл просроченную подписку
	require.Eventually(t, func() bool {
		stored, _ := repo.Get(ctx, 2)
		return stored.State == ports.StateEnded
	}, 10*time.Second, 50*time.Millisecond)

	assert.True(t, notifier.panicked.Load())
	assert.Equal(t, 1, logs.FilterMessage("[sweeper] sweep failed").Len())
	assert.Positive(t, logs.FilterMessage("[cron] panic").Len())
	assert.Contains(t, notifier.sent(), sentNotice{UserID: 2, Lang: ports.LangEN, Notice: ports.NoticeExpired})

	cancel()
	require.Eventually(t, func() bool {
		return logs.FilterMessage("[sweeper] stopped").Len() == 1
	}, 5*time.Second, 20*time.Millisecond)

	calls := repo.listCalls()
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, calls, repo.listCalls())
}

func TestReminderDue(t *testing.T) {
	cases := []struct {
		name string
		left time.Duration
		sent ports.ReminderStage
		want ports.ReminderStage
	}{
		{"far", 10 * day, ports.ReminderNone, ports.ReminderNone},
		{"four days", 4 * day, ports.ReminderNone, ports.ReminderNone},
		{"three days", 3 * day, ports.ReminderNone, ports.ReminderThreeDays},
		{"three days sent", 3 * day, ports.ReminderThreeDays, ports.ReminderNone},
		{"two days", 2*day + time.Hour, ports.ReminderNone, ports.ReminderThreeDays},
		{"one day after three", day, ports.ReminderThreeDays, ports.ReminderOneDay},
		{"one day sent", day, ports.ReminderOneDay, ports.ReminderNone},
		{"hours left", 3 * time.Hour, ports.ReminderNone, ports.ReminderOneDay},
		{"past end", -time.Hour, ports.ReminderNone, ports.ReminderNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, reminderDue(tc.left, tc.sent))
		})
	}
}
