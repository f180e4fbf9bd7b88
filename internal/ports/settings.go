package ports

import "context"

type Wallet struct {
	Method  string `json:"method"`
	Address string `json:"address"`
}

type InviteLink struct {
	ID   int64  `json:"id"`
	Link string `json:"link"`
	Used bool   `json:"used"`
}

type SettingsRepo interface {
	ListWallets(ctx context.Context) ([]Wallet, error)
	UpsertWallet(ctx context.Context, w Wallet) error
	DeleteWallet(ctx context.Context, method string) error

	ListInviteLinks(ctx context.Context) ([]InviteLink, error)
	AddInviteLinks(ctx context.Context, links []string) error
	ClearInviteLinks(ctx context.Context) error
	// TakeInviteLink помечает первую свободную ссылку использованной; "" если пул пуст
	TakeInviteLink(ctx context.Context) (string, error)
}

// SettingsService — внешняя конфигурация для слоя представления (кошельки, ссылки)
type SettingsService interface {
	Wallets(ctx context.Context) ([]Wallet, error)
	WalletAddress(ctx context.Context, method string) (string, error)
	SetWallet(ctx context.Context, method, address string) error
	DeleteWallet(ctx context.Context, method string) error

	InviteLinks(ctx context.Context) ([]InviteLink, error)
	AddInviteLinks(ctx context.Context, raw string) (int, error)
	ClearInviteLinks(ctx context.Context) error
	NextInviteLink(ctx context.Context) (string, error)
}
