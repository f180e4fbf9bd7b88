package delivery

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Vovarama1992/channel_subs/internal/domain"
	"github.com/Vovarama1992/channel_subs/internal/infra"
	"github.com/Vovarama1992/channel_subs/internal/notificator"
	"github.com/Vovarama1992/channel_subs/internal/ports"
	"github.com/Vovarama1992/channel_subs/internal/texts"
)

const testToken = "secret-token"

// fakeBot: сообщения пользователям, которые API отправило через телеграм
type fakeBot struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		b.sent = append(b.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) to(chatID int64) []tgbotapi.MessageConfig {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []tgbotapi.MessageConfig
	for _, m := range b.sent {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

type testAPI struct {
	srv      *httptest.Server
	subs     *domain.SubscriptionService
	settings *domain.SettingsService
	bot      *fakeBot
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	db, err := infra.OpenDB(context.Background(), infra.DriverSQLite, infra.SQLiteDSN(filepath.Join(t.TempDir(), "api.db")))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, infra.Migrate(db, infra.DriverSQLite))

	log := zap.NewNop().Sugar()
	subRepo := infra.NewSubscriptionRepo(db)
	subs := domain.NewSubscriptionService(subRepo, log)
	settings := domain.NewSettingsService(infra.NewSettingsRepo(db), "https://t.me/fallback", log)
	export := domain.NewExportService(subRepo, nil, log)

	bot := &fakeBot{}
	decisions := notificator.NewDecisions(bot, texts.New(), settings, log)

	zl := logger.NewZapLogger(log)
	r := NewRouter(NewSubscriptionHandler(subs, export, decisions, zl), NewSettingsHandler(settings, zl), testToken)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testAPI{srv: srv, subs: subs, settings: settings, bot: bot}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, a.srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (a *testAPI) pending(t *testing.T, userID int64, months int) {
	t.Helper()
	_, err := a.subs.SubmitReceipt(context.Background(), ports.ReceiptInput{
		UserID:         userID,
		Username:       "trader",
		Method:         "USDT",
		DurationMonths: months,
		ReceiptFileID:  "file-1",
	})
	require.NoError(t, err)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestPing_NoAuth(t *testing.T) {
	api := newTestAPI(t)

	resp, err := http.Get(api.srv.URL + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuth(t *testing.T) {
	api := newTestAPI(t)

	resp, err := http.Get(api.srv.URL + "/subscriptions")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, api.srv.URL+"/subscriptions", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuth_EmptyTokenLocksAPI(t *testing.T) {
	h := AuthMiddleware("")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Authorization", "Bearer ")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestApproveFlow(t *testing.T) {
	api := newTestAPI(t)
	api.pending(t, 101, 3)

	resp := api.do(t, http.MethodGet, "/subscriptions?state=pending", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]ports.Subscription](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, int64(101), list[0].UserID)

	resp = api.do(t, http.MethodPost, "/subscriptions/101/approve", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sub := decode[ports.Subscription](t, resp)
	assert.Equal(t, ports.StateActive, sub.State)
	require.NotNil(t, sub.EndAt)
	assert.Equal(t, 90*24*time.Hour, sub.EndAt.Sub(*sub.StartAt))

	// пул пуст: пользователь получает общую ссылку кнопкой
	msgs := api.bot.to(101)
	require.Len(t, msgs, 1)
	assert.Equal(t, "sub_approved", msgs[0].Text)
	kb, ok := msgs[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "https://t.me/fallback", *kb.InlineKeyboard[0][0].URL)

	// повторный approve: конфликт, второго сообщения нет
	resp = api.do(t, http.MethodPost, "/subscriptions/101/approve", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Len(t, api.bot.to(101), 1)
}

func TestApprove_TakesLinkFromPool(t *testing.T) {
	api := newTestAPI(t)
	_, err := api.settings.AddInviteLinks(context.Background(), "https://t.me/+one")
	require.NoError(t, err)
	api.pending(t, 102, 1)

	resp := api.do(t, http.MethodPost, "/subscriptions/102/approve", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	msgs := api.bot.to(102)
	require.Len(t, msgs, 1)
	kb, ok := msgs[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "https://t.me/+one", *kb.InlineKeyboard[0][0].URL)

	links, err := api.settings.InviteLinks(context.Background())
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.True(t, links[0].Used)
}

func TestExtendShorten(t *testing.T) {
	api := newTestAPI(t)
	api.pending(t, 7, 1)

	resp := api.do(t, http.MethodPost, "/subscriptions/7/extend", map[string]int{"days": 5})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	_, err := api.subs.Approve(context.Background(), 7)
	require.NoError(t, err)

	resp = api.do(t, http.MethodPost, "/subscriptions/7/extend", map[string]int{"days": 5})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sub := decode[ports.Subscription](t, resp)
	assert.Equal(t, 35*24*time.Hour, sub.EndAt.Sub(*sub.StartAt))

	resp = api.do(t, http.MethodPost, "/subscriptions/7/shorten", map[string]int{"days": 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// слишком большой сдвиг: отказ, срок прежний
	resp = api.do(t, http.MethodPost, "/subscriptions/7/extend", map[string]int{"days": 200000})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	got, err := api.subs.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, got.EndAt.Equal(*sub.EndAt))

	resp = api.do(t, http.MethodPost, "/subscriptions/7/shorten", map[string]int{"days": 100})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sub = decode[ports.Subscription](t, resp)
	assert.True(t, sub.EndAt.Equal(*sub.StartAt))

	// пользователь узнаёт только об успешных изменениях
	var got7 []string
	for _, m := range api.bot.to(7) {
		got7 = append(got7, m.Text)
	}
	assert.Equal(t, []string{"sub_extended", "sub_shortened"}, got7)
}

func TestRejectAndDelete(t *testing.T) {
	api := newTestAPI(t)
	api.pending(t, 55, 6)

	resp := api.do(t, http.MethodPost, "/subscriptions/55/reject", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ports.StateRejected, decode[ports.Subscription](t, resp).State)

	msgs := api.bot.to(55)
	require.Len(t, msgs, 1)
	assert.Equal(t, "sub_rejected", msgs[0].Text)

	resp = api.do(t, http.MethodDelete, "/subscriptions/55", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = api.do(t, http.MethodGet, "/subscriptions/55", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = api.do(t, http.MethodDelete, "/subscriptions/55", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBadInput(t *testing.T) {
	api := newTestAPI(t)

	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, "/subscriptions/abc", nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, "/subscriptions?state=paid", nil).StatusCode)

	req, _ := http.NewRequest(http.MethodPost, api.srv.URL+"/subscriptions/1/extend", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+testToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatsAndExport(t *testing.T) {
	api := newTestAPI(t)
	api.pending(t, 1, 1)
	api.pending(t, 2, 3)
	_, err := api.subs.Approve(context.Background(), 2)
	require.NoError(t, err)

	resp := api.do(t, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decode[ports.Stats](t, resp)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.ByState[ports.StateActive])
	assert.Equal(t, 1, st.ByState[ports.StatePending])

	resp = api.do(t, http.MethodGet, "/export.csv", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "subscriptions.csv")
	assert.Empty(t, resp.Header.Get("X-Archive-URL"))

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "user_id,username"))
}

func TestWalletsAndLinks(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, http.MethodGet, "/wallets", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]ports.Wallet](t, resp), 1)

	resp = api.do(t, http.MethodPut, "/wallets", ports.Wallet{Method: "BTC", Address: "bc1q"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = api.do(t, http.MethodPut, "/wallets", ports.Wallet{Method: "ETH"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = api.do(t, http.MethodGet, "/wallets", nil)
	wallets := decode[[]ports.Wallet](t, resp)
	require.Len(t, wallets, 1)
	assert.Equal(t, "bc1q", wallets[0].Address)

	resp = api.do(t, http.MethodDelete, "/wallets/BTC", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = api.do(t, http.MethodPost, "/links", map[string][]string{"links": {"https://t.me/+a", "https://t.me/+b"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, float64(2), decode[map[string]any](t, resp)["added"])

	resp = api.do(t, http.MethodGet, "/links", nil)
	assert.Len(t, decode[[]ports.InviteLink](t, resp), 2)

	resp = api.do(t, http.MethodPost, "/links", map[string][]string{"links": {}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = api.do(t, http.MethodDelete, "/links", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = api.do(t, http.MethodGet, "/links", nil)
	assert.Empty(t, decode[[]ports.InviteLink](t, resp))
}
