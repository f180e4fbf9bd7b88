package delivery

import (
	"net/http"
	"time"

	"github.com/Vovarama1992/go-utils/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// NewRouter — роутер админского API с CORS и /ping
func NewRouter(hSubs *SubscriptionHandler, hSettings *SettingsHandler, adminToken string) chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.With(httputil.RecoverMiddleware).Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	RegisterRoutes(r, hSubs, hSettings, adminToken)
	return r
}

func RegisterRoutes(
	r chi.Router,
	hSubs *SubscriptionHandler,
	hSettings *SettingsHandler,
	adminToken string,
) {
	// --- protected ---
	r.Group(func(pr chi.Router) {
		pr.Use(
			httputil.RecoverMiddleware,
			httprate.LimitByIP(120, time.Minute),
			AuthMiddleware(adminToken),
		)

		// --- подписки ---
		pr.Get("/subscriptions", hSubs.List)
		pr.Get("/subscriptions/{user_id}", hSubs.Get)
		pr.Post("/subscriptions/{user_id}/approve", hSubs.Approve)
		pr.Post("/subscriptions/{user_id}/reject", hSubs.Reject)
		pr.Post("/subscriptions/{user_id}/extend", hSubs.Extend)
		pr.Post("/subscriptions/{user_id}/shorten", hSubs.Shorten)
		pr.Delete("/subscriptions/{user_id}", hSubs.Delete)

		pr.Get("/stats", hSubs.Stats)
		pr.Get("/export.csv", hSubs.ExportCSV)

		// --- кошельки ---
		pr.Get("/wallets", hSettings.ListWallets)
		pr.Put("/wallets", hSettings.PutWallet)
		pr.Delete("/wallets/{method}", hSettings.DeleteWallet)

		// --- пригласительные ссылки ---
		pr.Get("/links", hSettings.ListLinks)
		pr.Post("/links", hSettings.AddLinks)
		pr.Delete("/links", hSettings.ClearLinks)
	})
}
