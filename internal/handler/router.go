package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pkordes/tabinico/api"
	"github.com/pkordes/tabinico/internal/middleware"
)

// jsonBodyLimit caps every non-upload request body.
const jsonBodyLimit = 1 << 20

// multipartOverhead is the allowance for multipart headers on top of the
// file size limit.
const multipartOverhead = 64 << 10

// RouterConfig carries the options that shape the middleware stack.
type RouterConfig struct {
	CORSOrigins []string
	Verifier    middleware.TokenVerifier
	// FilesDir, when set, is served under /files/ for the disk upload backend.
	FilesDir string
}

// NewRouter mounts every route of the API on a chi router.
//
// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer →
// CORS → Authenticator. The logger sits outside the authenticator so the
// user ID resolved further in still lands on the request line.
func NewRouter(s *Server, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(s.log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", serveOpenAPI)
	if cfg.FilesDir != "" {
		r.Handle("/files/*", http.StripPrefix("/files/", http.FileServer(http.Dir(cfg.FilesDir))))
	}

	uploadLimit := middleware.NewMaxBodySizeHandler(s.uploads.MaxBytes() + multipartOverhead)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthenticator(cfg.Verifier, s.log))

		// Upgrade requests carry no body.
		r.Get("/trip/live", s.withStore(s.Live))

		r.With(uploadLimit).Post("/trip/schedule/{itemId}/attachments", s.withStore(s.AddAttachment))
		r.With(uploadLimit).Post("/trip/expenses/scan", s.withStore(s.ScanReceipt))

		r.Group(func(r chi.Router) {
			r.Use(middleware.NewMaxBodySizeHandler(jsonBodyLimit))

			r.Post("/auth/sign-in", s.SignIn)
			r.Post("/auth/sign-out", s.SignOut)
			r.Get("/session", s.withStore(s.GetSession))

			r.Post("/trips", s.withStore(s.CreateTrip))
			r.Post("/trips/{id}/join", s.withStore(s.JoinTrip))

			r.Get("/trip", s.withStore(s.GetTrip))
			r.Patch("/trip", s.withStore(s.UpdateTrip))
			r.Delete("/trip", s.withStore(s.ResetTrip))
			r.Post("/trip/days", s.withStore(s.AddDay))

			r.Get("/trip/schedule", s.withStore(s.ListSchedule))
			r.Post("/trip/schedule", s.withStore(s.AddScheduleItem))
			r.Put("/trip/schedule/{itemId}", s.withStore(s.ReplaceScheduleItem))
			r.Delete("/trip/schedule/{itemId}", s.withStore(s.DeleteScheduleItem))
			r.Delete("/trip/schedule/{itemId}/attachments/{attachmentId}", s.withStore(s.RemoveAttachment))

			r.Get("/trip/checklist", s.withStore(s.ListPacking))
			r.Post("/trip/checklist", s.withStore(s.AddPackingItem))
			r.Post("/trip/checklist/{itemId}/toggle", s.withStore(s.TogglePackingItem))
			r.Delete("/trip/checklist/{itemId}", s.withStore(s.DeletePackingItem))
			r.Put("/trip/checklist-tabs", s.withStore(s.SetCheckListTabs))

			r.Get("/trip/expenses", s.withStore(s.ListExpenses))
			r.Post("/trip/expenses", s.withStore(s.AddExpense))
			r.Get("/trip/expenses/export", s.withStore(s.ExportExpenses))
			r.Get("/trip/wallet", s.withStore(s.GetWallet))
			r.Post("/trip/wallet/settle", s.withStore(s.SettleUp))

			r.Post("/trip/scraps", s.withStore(s.AddScrap))
			r.Put("/trip/scraps/{scrapId}", s.withStore(s.ReplaceScrap))
			r.Delete("/trip/scraps/{scrapId}", s.withStore(s.DeleteScrap))
			r.Post("/trip/scraps/{scrapId}/want-to-go", s.withStore(s.ToggleWantToGo))
		})
	})

	return r
}

func serveOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(api.OpenAPI)
}
