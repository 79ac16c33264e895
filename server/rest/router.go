package rest

import (
	"github.com/go-chi/chi/v5"
	middlewares "github.com/marcopiovanello/yt-dlp-remote/server/middleware"
)

func ApplyRouter(args *ContainerArgs) func(chi.Router) {
	h := ProvideHandler(ProvideService(args))

	return func(r chi.Router) {
		r.Use(middlewares.ApplyAuthenticationByConfig)
		Routes(r, h)
	}
}

func Routes(r chi.Router, h *Handler) {
	r.Post("/download", h.Exec())
	r.Post("/pause", h.Pause())
	r.Post("/resume", h.Resume())
	r.Post("/stop", h.Stop())
	r.Get("/status", h.Status())
	r.Get("/history", h.History())
	r.Get("/info", h.Info())
	r.Get("/version", h.GetVersion())
	r.Post("/update", h.UpdateExecutable())
}
