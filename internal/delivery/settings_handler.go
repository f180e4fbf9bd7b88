package delivery

import (
	"net/http"
	"strings"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/Vovarama1992/channel_subs/internal/ports"
)

// SettingsHandler — кошельки и пул пригласительных ссылок
type SettingsHandler struct {
	service ports.SettingsService
	log     *logger.ZapLogger
}

func NewSettingsHandler(service ports.SettingsService, log *logger.ZapLogger) *SettingsHandler {
	return &SettingsHandler{service: service, log: log}
}

// GET /wallets
func (h *SettingsHandler) ListWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := h.service.Wallets(r.Context())
	if err != nil {
		writeError(w, h.log, "failed to list wallets", err)
		return
	}
	writeJSON(w, http.StatusOK, wallets)
}

// PUT /wallets {"method": "...", "address": "..."}
func (h *SettingsHandler) PutWallet(w http.ResponseWriter, r *http.Request) {
	var req ports.Wallet
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if err := h.service.SetWallet(r.Context(), req.Method, req.Address); err != nil {
		writeError(w, h.log, "failed to save wallet", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "saved"})
}

// DELETE /wallets/{method}
func (h *SettingsHandler) DeleteWallet(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimSpace(chi.URLParam(r, "method"))
	if method == "" {
		http.Error(w, "missing method", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteWallet(r.Context(), method); err != nil {
		writeError(w, h.log, "failed to delete wallet", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// GET /links
func (h *SettingsHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.service.InviteLinks(r.Context())
	if err != nil {
		writeError(w, h.log, "failed to list links", err)
		return
	}
	if links == nil {
		links = []ports.InviteLink{}
	}
	writeJSON(w, http.StatusOK, links)
}

// POST /links {"links": ["https://t.me/+...", ...]}
func (h *SettingsHandler) AddLinks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Links []string `json:"links"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	n, err := h.service.AddInviteLinks(r.Context(), strings.Join(req.Links, "\n"))
	if err != nil {
		writeError(w, h.log, "failed to add links", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"added": n})
}

// DELETE /links
func (h *SettingsHandler) ClearLinks(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearInviteLinks(r.Context()); err != nil {
		writeError(w, h.log, "failed to clear links", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "cleared"})
}
