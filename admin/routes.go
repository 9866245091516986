package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// RegisterRoutes registers all admin API routes using chi router
func RegisterRoutes(mux *http.ServeMux, handlers *AdminHandlers) {
	r := chi.NewRouter()

	r.Get("/health", handlers.handleHealth)

	r.Route("/folders", func(r chi.Router) {
		r.Get("/", handlers.handleListFolders)
		r.Get("/{folder}/stats", handlers.wrapWithFolder(handlers.handleFolderStats))
		r.Get("/{folder}/subscribers", handlers.wrapWithFolder(handlers.handleFolderSubscribers))
	})

	// Mount chi router under /admin
	mux.Handle("/admin", http.RedirectHandler("/admin/", http.StatusMovedPermanently))
	mux.Handle("/admin/", http.StripPrefix("/admin", r))

	log.Info().Msg("Admin endpoints enabled at /admin/*")
}

// wrapWithFolder extracts the folder URL param and calls fn
func (h *AdminHandlers) wrapWithFolder(fn func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		folder := chi.URLParam(r, "folder")
		if folder == "" {
			writeErrorResponse(w, http.StatusBadRequest, "folder name is required")
			return
		}
		fn(w, r, folder)
	}
}
