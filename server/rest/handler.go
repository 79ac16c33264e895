package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/marcopiovanello/yt-dlp-remote/server/internal"
	"github.com/marcopiovanello/yt-dlp-remote/server/internal/metadata"
	"github.com/marcopiovanello/yt-dlp-remote/server/internal/session"
)

type Handler struct {
	service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{service: svc}
}

type idResponse struct {
	Id string `json:"id"`
}

type versionResponse struct {
	RPCVersion   string `json:"rpc"`
	YtdlpVersion string `json:"ytdlp"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrBusy),
		errors.Is(err, session.ErrNotRunning),
		errors.Is(err, session.ErrAlreadyRunning),
		errors.Is(err, session.ErrNothingToResume):
		return http.StatusConflict
	case errors.Is(err, session.ErrEmptyURL),
		errors.Is(err, session.ErrInvalidDirectory),
		errors.Is(err, metadata.ErrEmptyURL):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrNoHistory):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) Exec() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		w.Header().Set("Content-Type", "application/json")

		var req internal.DownloadRequest

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		id, err := h.service.Exec(req)
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}

		writeJSON(w, idResponse{Id: id})
	}
}

func (h *Handler) Pause() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if err := h.service.Pause(); err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}

		writeJSON(w, h.service.Status())
	}
}

func (h *Handler) Resume() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		id, err := h.service.Resume()
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}

		writeJSON(w, idResponse{Id: id})
	}
}

func (h *Handler) Stop() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if err := h.service.Stop(); err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}

		writeJSON(w, h.service.Status())
	}
}

func (h *Handler) Status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, h.service.Status())
	}
}

func (h *Handler) History() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		limit := 0
		if l := r.URL.Query().Get("limit"); l != "" {
			n, err := strconv.Atoi(l)
			if err != nil || n < 0 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = n
		}

		entities, err := h.service.History(r.Context(), limit)
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}

		writeJSON(w, entities)
	}
}

func (h *Handler) Info() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		meta, err := h.service.Info(r.Context(), r.URL.Query().Get("url"))
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}

		writeJSON(w, meta)
	}
}

func (h *Handler) GetVersion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		rpcVersion, ytdlpVersion, err := h.service.GetVersion(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, versionResponse{
			RPCVersion:   rpcVersion,
			YtdlpVersion: ytdlpVersion,
		})
	}
}

func (h *Handler) UpdateExecutable() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if err := h.service.UpdateExecutable(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, "ok")
	}
}
