package domain

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Vovarama1992/channel_subs/internal/ports"
)

var errBoom = errors.New("boom")

type memRepo struct {
	mu   sync.Mutex
	rows map[int64]*ports.Subscription
	// user_id → ошибка на Upsert
	failUpsert map[int64]error
	upserts    int
	// ошибки для очередных вызовов List, по одной на вызов
	failList []error
	lists    int
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[int64]*ports.Subscription{}, failUpsert: map[int64]error{}}
}

func (r *memRepo) Get(_ context.Context, userID int64) (*ports.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[userID]
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

func (r *memRepo) Upsert(_ context.Context, s *ports.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failUpsert[s.UserID]; err != nil {
		return err
	}
	r.upserts++
	s.UpdatedAt = time.Now().UTC()
	r.rows[s.UserID] = s.Clone()
	return nil
}

func (r *memRepo) Delete(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, userID)
	return nil
}

func (r *memRepo) List(_ context.Context, f ports.Filter) ([]*ports.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lists++
	if len(r.failList) > 0 {
		err := r.failList[0]
		r.failList = r.failList[1:]
		if err != nil {
			return nil, err
		}
	}

	var out []*ports.Subscription
	for _, s := range r.rows {
		if len(f.States) > 0 && !containsState(f.States, s.State) {
			continue
		}
		if f.Language != "" && s.Language != f.Language {
			continue
		}
		if f.Username != "" && s.Username != f.Username {
			continue
		}
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r *memRepo) listCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lists
}

func (r *memRepo) put(s *ports.Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[s.UserID] = s.Clone()
}

func containsState(states []ports.State, s ports.State) bool {
	for _, st := range states {
		if st == s {
			return true
		}
	}
	return false
}

type sentNotice struct {
	UserID int64
	Lang   ports.Language
	Notice ports.Notice
}

type recNotifier struct {
	mu      sync.Mutex
	notices []sentNotice
	alerts  []string
	err     error
}

func (n *recNotifier) UserNotice(_ context.Context, userID int64, lang ports.Language, notice ports.Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, sentNotice{UserID: userID, Lang: lang, Notice: notice})
	return n.err
}

func (n *recNotifier) AdminAlert(_ context.Context, _ error, details string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, details)
	return nil
}

func (n *recNotifier) sent() []sentNotice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentNotice(nil), n.notices...)
}

type recGate struct {
	mu      sync.Mutex
	revoked []int64
}

func (g *recGate) Revoke(_ context.Context, userID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.revoked = append(g.revoked, userID)
	return nil
}

type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func ptrTime(t time.Time) *time.Time {
	return &t
}

func activeSub(userID int64, start, end time.Time) *ports.Subscription {
	return &ports.Subscription{
		UserID:         userID,
		Username:       "user",
		Method:         "USDT TRC20",
		DurationMonths: 1,
		StartAt:        ptrTime(start),
		EndAt:          ptrTime(end),
		State:          ports.StateActive,
		ReceiptFileID:  "file",
		Language:       ports.LangEN,
	}
}
