package infra

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Vovarama1992/channel_subs/internal/ports"
)

type subscriptionRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewSubscriptionRepo(db *sql.DB) ports.SubscriptionRepo {
	return &subscriptionRepo{db: db, now: time.Now}
}

const subscriptionColumns = `user_id, username, method, duration_months, start_ts, end_ts,
	state, receipt_file_id, language, reminder_sent, updated_at`

// Upsert — вставка или полная замена записи одним выражением
func (r *subscriptionRepo) Upsert(ctx context.Context, s *ports.Subscription) error {
	if err := s.Validate(); err != nil {
		return err
	}

	updatedAt := r.now().UTC().Truncate(time.Second)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id) DO UPDATE SET
			username = excluded.username,
			method = excluded.method,
			duration_months = excluded.duration_months,
			start_ts = excluded.start_ts,
			end_ts = excluded.end_ts,
			state = excluded.state,
			receipt_file_id = excluded.receipt_file_id,
			language = excluded.language,
			reminder_sent = excluded.reminder_sent,
			updated_at = excluded.updated_at
	`,
		s.UserID,
		s.Username,
		s.Method,
		s.DurationMonths,
		toUnix(s.StartAt),
		toUnix(s.EndAt),
		string(s.State),
		s.ReceiptFileID,
		string(s.Language),
		int(s.ReminderSent),
		updatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert subscription %d: %w", s.UserID, err)
	}

	s.UpdatedAt = updatedAt
	return nil
}

func (r *subscriptionRepo) Get(ctx context.Context, userID int64) (*ports.Subscription, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = $1
	`, userID)

	s, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription %d: %w", userID, err)
	}
	return s, nil
}

func (r *subscriptionRepo) Delete(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete subscription %d: %w", userID, err)
	}
	return nil
}

func (r *subscriptionRepo) List(ctx context.Context, f ports.Filter) ([]*ports.Subscription, error) {
	var (
		where []string
		args  []any
	)

	if len(f.States) > 0 {
		marks := make([]string, 0, len(f.States))
		for _, st := range f.States {
			args = append(args, string(st))
			marks = append(marks, fmt.Sprintf("$%d", len(args)))
		}
		where = append(where, "state IN ("+strings.Join(marks, ", ")+")")
	}
	if f.Language != "" {
		args = append(args, string(f.Language))
		where = append(where, fmt.Sprintf("language = $%d", len(args)))
	}
	if f.Username != "" {
		args = append(args, f.Username)
		where = append(where, fmt.Sprintf("username = $%d", len(args)))
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC, user_id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*ports.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*ports.Subscription, error) {
	var (
		s         ports.Subscription
		startTS   sql.NullInt64
		endTS     sql.NullInt64
		state     string
		lang      string
		reminder  int
		updatedAt int64
	)

	err := row.Scan(
		&s.UserID,
		&s.Username,
		&s.Method,
		&s.DurationMonths,
		&startTS,
		&endTS,
		&state,
		&s.ReceiptFileID,
		&lang,
		&reminder,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.StartAt = fromUnix(startTS)
	s.EndAt = fromUnix(endTS)
	s.State = ports.State(state)
	s.Language = ports.ParseLanguage(lang)
	s.ReminderSent = ports.ReminderStage(reminder)
	s.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &s, nil
}

func toUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func fromUnix(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}
