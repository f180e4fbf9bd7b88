package domain

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Vovarama1992/channel_subs/internal/ports"
)

// кошелёк по умолчанию, пока админ ничего не настроил
const (
	defaultWalletMethod = "USDT TRC20"
	walletNotAvailable  = "n/a"
)

type SettingsService struct {
	repo        ports.SettingsRepo
	defaultLink string
	log         *zap.SugaredLogger
}

func NewSettingsService(repo ports.SettingsRepo, defaultLink string, log *zap.SugaredLogger) *SettingsService {
	return &SettingsService{
		repo:        repo,
		defaultLink: strings.TrimSpace(defaultLink),
		log:         log,
	}
}

var _ ports.SettingsService = (*SettingsService)(nil)

// ===== WALLETS =====

func (s *SettingsService) Wallets(ctx context.Context) ([]ports.Wallet, error) {
	wallets, err := s.repo.ListWallets(ctx)
	if err != nil {
		return nil, err
	}
	if len(wallets) == 0 {
		return []ports.Wallet{{Method: defaultWalletMethod, Address: walletNotAvailable}}, nil
	}
	return wallets, nil
}

func (s *SettingsService) WalletAddress(ctx context.Context, method string) (string, error) {
	wallets, err := s.Wallets(ctx)
	if err != nil {
		return "", err
	}
	for _, w := range wallets {
		if w.Method == method {
			return w.Address, nil
		}
	}
	return walletNotAvailable, nil
}

func (s *SettingsService) SetWallet(ctx context.Context, method, address string) error {
	method = strings.TrimSpace(method)
	address = strings.TrimSpace(address)
	if method == "" || address == "" {
		return fmt.Errorf("%w: wallet method and address are required", ports.ErrValidation)
	}
	// method уходит в callback_data, лимит телеграма 64 байта
	if len("method_"+method) > 64 {
		return fmt.Errorf("%w: wallet method name is too long", ports.ErrValidation)
	}

	if err := s.repo.UpsertWallet(ctx, ports.Wallet{Method: method, Address: address}); err != nil {
		return err
	}
	s.log.Infow("[settings] wallet updated", "method", method)
	return nil
}

func (s *SettingsService) DeleteWallet(ctx context.Context, method string) error {
	return s.repo.DeleteWallet(ctx, strings.TrimSpace(method))
}

// ===== INVITE LINKS =====

func (s *SettingsService) InviteLinks(ctx context.Context) ([]ports.InviteLink, error) {
	return s.repo.ListInviteLinks(ctx)
}

// AddInviteLinks — по одной ссылке на строку, пустые строки пропускаются
func (s *SettingsService) AddInviteLinks(ctx context.Context, raw string) (int, error) {
	var links []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			links = append(links, line)
		}
	}
	if len(links) == 0 {
		return 0, fmt.Errorf("%w: no links given", ports.ErrValidation)
	}

	if err := s.repo.AddInviteLinks(ctx, links); err != nil {
		return 0, err
	}
	s.log.Infow("[settings] invite links added", "count", len(links))
	return len(links), nil
}

func (s *SettingsService) ClearInviteLinks(ctx context.Context) error {
	return s.repo.ClearInviteLinks(ctx)
}

// NextInviteLink — первая неиспользованная ссылка из пула, иначе общая ссылка канала
func (s *SettingsService) NextInviteLink(ctx context.Context) (string, error) {
	link, err := s.repo.TakeInviteLink(ctx)
	if err != nil {
		return "", err
	}
	if link == "" {
		return s.defaultLink, nil
	}
	return link, nil
}
