package infra

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Vovarama1992/channel_subs/internal/ports"
)

type settingsRepo struct {
	db *sql.DB
}

func NewSettingsRepo(db *sql.DB) ports.SettingsRepo {
	return &settingsRepo{db: db}
}

// ===== WALLETS =====

func (r *settingsRepo) ListWallets(ctx context.Context) ([]ports.Wallet, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT method, address FROM payment_wallets ORDER BY method`,
	)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var out []ports.Wallet
	for rows.Next() {
		var w ports.Wallet
		if err := rows.Scan(&w.Method, &w.Address); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *settingsRepo) UpsertWallet(ctx context.Context, w ports.Wallet) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payment_wallets (method, address)
		 VALUES ($1, $2)
		 ON CONFLICT (method) DO UPDATE SET address = excluded.address`,
		w.Method, w.Address,
	)
	if err != nil {
		return fmt.Errorf("upsert wallet %s: %w", w.Method, err)
	}
	return nil
}

func (r *settingsRepo) DeleteWallet(ctx context.Context, method string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM payment_wallets WHERE method = $1`,
		method,
	)
	return err
}

// ===== INVITE LINKS =====

func (r *settingsRepo) ListInviteLinks(ctx context.Context) ([]ports.InviteLink, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, link, used FROM invite_links ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list invite links: %w", err)
	}
	defer rows.Close()

	var out []ports.InviteLink
	for rows.Next() {
		var l ports.InviteLink
		if err := rows.Scan(&l.ID, &l.Link, &l.Used); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *settingsRepo) AddInviteLinks(ctx context.Context, links []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, link := range links {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO invite_links (id, link, used)
			VALUES ((SELECT COALESCE(MAX(id), 0) + 1 FROM invite_links), $1, FALSE)
		`, link); err != nil {
			return fmt.Errorf("add invite link: %w", err)
		}
	}

	return tx.Commit()
}

func (r *settingsRepo) ClearInviteLinks(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM invite_links`)
	return err
}

func (r *settingsRepo) TakeInviteLink(ctx context.Context) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var (
		id   int64
		link string
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, link FROM invite_links
		WHERE used = FALSE
		ORDER BY id
		LIMIT 1
	`).Scan(&id, &link)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("take invite link: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE invite_links SET used = TRUE WHERE id = $1`, id,
	); err != nil {
		return "", fmt.Errorf("mark invite link: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return link, nil
}
