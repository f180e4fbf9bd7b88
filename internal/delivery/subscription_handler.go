package delivery

import (
	"context"
	"net/http"
	"strings"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/goccy/go-json"

	"github.com/Vovarama1992/channel_subs/internal/ports"
)

type SubscriptionHandler struct {
	service   ports.SubscriptionService
	export    ports.ExportService
	decisions ports.DecisionNotifier
	log       *logger.ZapLogger
}

func NewSubscriptionHandler(
	service ports.SubscriptionService,
	export ports.ExportService,
	decisions ports.DecisionNotifier,
	log *logger.ZapLogger,
) *SubscriptionHandler {
	return &SubscriptionHandler{service: service, export: export, decisions: decisions, log: log}
}

// GET /subscriptions?state=pending,active&lang=en&username=...
func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var f ports.Filter
	if raw := q.Get("state"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			st := ports.State(strings.TrimSpace(s))
			if !st.Valid() {
				http.Error(w, "unknown state: "+string(st), http.StatusBadRequest)
				return
			}
			f.States = append(f.States, st)
		}
	}
	if raw := q.Get("lang"); raw != "" {
		f.Language = ports.ParseLanguage(raw)
	}
	f.Username = strings.TrimPrefix(q.Get("username"), "@")

	subs, err := h.service.List(r.Context(), f)
	if err != nil {
		writeError(w, h.log, "failed to list subscriptions", err)
		return
	}
	if subs == nil {
		subs = []*ports.Subscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

// GET /subscriptions/{user_id}
func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(r)
	if !ok {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	sub, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.log, "failed to get subscription", err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// POST /subscriptions/{user_id}/approve
func (h *SubscriptionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to approve", h.service.Approve, h.decisions.Approved)
}

// POST /subscriptions/{user_id}/reject
func (h *SubscriptionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to reject", h.service.Reject, h.decisions.Rejected)
}

// POST /subscriptions/{user_id}/extend {"days": 30}
func (h *SubscriptionHandler) Extend(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, "failed to extend", h.service.Extend, h.decisions.Extended)
}

// POST /subscriptions/{user_id}/shorten {"days": 7}
func (h *SubscriptionHandler) Shorten(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, "failed to shorten", h.service.Shorten, h.decisions.Shortened)
}

// DELETE /subscriptions/{user_id}
func (h *SubscriptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(r)
	if !ok {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, h.log, "failed to delete subscription", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// GET /stats
func (h *SubscriptionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Stats(r.Context())
	if err != nil {
		writeError(w, h.log, "failed to build stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// GET /export.csv
func (h *SubscriptionHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	exp, err := h.export.ExportCSV(r.Context())
	if err != nil {
		writeError(w, h.log, "failed to export", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exp.Filename+`"`)
	if exp.URL != "" {
		w.Header().Set("X-Archive-URL", exp.URL)
	}
	_, _ = w.Write(exp.Data)
}

func (h *SubscriptionHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	msg string,
	fn func(ctx context.Context, userID int64) (*ports.Subscription, error),
	notify func(ctx context.Context, sub *ports.Subscription) error,
) {
	id, ok := userIDParam(r)
	if !ok {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	sub, err := fn(r.Context(), id)
	if err != nil {
		writeError(w, h.log, msg, err)
		return
	}

	// переход уже сохранён: недоставленное сообщение не ломает ответ
	if err := notify(r.Context(), sub); err != nil {
		h.log.Log(logger.LogEntry{Level: "warn", Message: "user not notified", Service: serviceName, UserID: &id, Error: err})
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *SubscriptionHandler) adjust(
	w http.ResponseWriter,
	r *http.Request,
	msg string,
	fn func(ctx context.Context, userID int64, days int) (*ports.Subscription, error),
	notify func(ctx context.Context, sub *ports.Subscription, days int) error,
) {
	id, ok := userIDParam(r)
	if !ok {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	var req struct {
		Days int `json:"days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	sub, err := fn(r.Context(), id, req.Days)
	if err != nil {
		writeError(w, h.log, msg, err)
		return
	}

	if err := notify(r.Context(), sub, req.Days); err != nil {
		h.log.Log(logger.LogEntry{Level: "warn", Message: "user not notified", Service: serviceName, UserID: &id, Error: err})
	}
	writeJSON(w, http.StatusOK, sub)
}
