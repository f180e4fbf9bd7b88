package telegram

import "sync"

// step — чего бот ждёт от пользователя следующим сообщением
type step int

const (
	stepNone step = iota
	stepWaitingReceipt

	// админские вводы
	stepAddLinks
	stepEditWallet
	stepNewWalletName
	stepNewWalletAddress
	stepSearch
	stepSendTarget
	stepSendMessage
	stepBroadcast
)

type session struct {
	step step

	// выбор пользователя до отправки чека
	months int
	method string

	walletMethod string
	targetID     int64
}

// sessions — состояние диалога по chat id, только в памяти
type sessions struct {
	mu sync.Mutex
	m  map[int64]session
}

func newSessions() *sessions {
	return &sessions{m: make(map[int64]session)}
}

func (s *sessions) get(chatID int64) session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[chatID]
}

func (s *sessions) update(chatID int64, fn func(*session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.m[chatID]
	fn(&cur)
	s.m[chatID] = cur
}

func (s *sessions) reset(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, chatID)
}
