package handler

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/tmakar/linkshort/internal/errors"
	"github.com/tmakar/linkshort/internal/logger"
	"github.com/tmakar/linkshort/internal/model"
)

// appVersion is reported by the health endpoint.
const appVersion = "1.0"

// LinkService is the part of the service layer the HTTP surface needs.
type LinkService interface {
	Create(ctx context.Context, targetURL, customCode string) (*model.Link, error)
	Resolve(ctx context.Context, code string) (string, error)
	Get(ctx context.Context, code string) (*model.Link, error)
	List(ctx context.Context) ([]model.Link, error)
	Delete(ctx context.Context, code string) error
}

// LinkHandler handles HTTP requests for link operations
type LinkHandler struct {
	service LinkService
	log     *logger.Logger
}

// NewLinkHandler creates a new handler instance
func NewLinkHandler(svc LinkService, log *logger.Logger) *LinkHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &LinkHandler{service: svc, log: log}
}

// Routes builds the router. Static routes are registered before the
// catch-all redirect so /links and /healthz are never treated as codes.
func (h *LinkHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/links", h.HandleCreate)
	r.Get("/links", h.HandleList)
	r.Get("/links/{code}", h.HandleGet)
	r.Delete("/links/{code}", h.HandleDelete)
	r.Get("/healthz", h.HandleHealth)
	r.Get("/{code}", h.HandleRedirect)

	return r
}

// HandleCreate creates a new short link
// POST /links
func (h *LinkHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req model.CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.InvalidJSON(err.Error()).WriteJSON(w)
		return
	}

	link, err := h.service.Create(r.Context(), req.TargetURL, req.CustomCode)
	if err != nil {
		h.writeError(w, err, req.CustomCode)
		return
	}

	writeJSON(w, http.StatusCreated, link)
}

// HandleList returns all links
// GET /links
func (h *LinkHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	links, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(w, err, "")
		return
	}

	writeJSON(w, http.StatusOK, links)
}

// HandleGet returns a single link without touching its click stats
// GET /links/{code}
func (h *LinkHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	link, err := h.service.Get(r.Context(), code)
	if err != nil {
		h.writeError(w, err, code)
		return
	}

	writeJSON(w, http.StatusOK, link)
}

// HandleDelete removes a link
// DELETE /links/{code}
func (h *LinkHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if err := h.service.Delete(r.Context(), code); err != nil {
		h.writeError(w, err, code)
		return
	}

	writeJSON(w, http.StatusOK, model.DeleteLinkResponse{
		Message: "link deleted",
		Code:    code,
	})
}

// HandleRedirect resolves a code and redirects to its target
// GET /{code}
func (h *LinkHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	target, err := h.service.Resolve(r.Context(), code)
	if err != nil {
		h.writeError(w, err, code)
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

// HandleHealth reports liveness
// GET /healthz
func (h *LinkHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.HealthResponse{
		OK:      true,
		Version: appVersion,
	})
}

// writeError maps service errors to HTTP responses. Every sentinel in the
// taxonomy lands on exactly one status; anything unrecognized is a 500 with
// no internal detail leaked.
func (h *LinkHandler) writeError(w http.ResponseWriter, err error, code string) {
	switch {
	case stderrors.Is(err, errors.ErrInvalidURL), stderrors.Is(err, errors.ErrInvalidCode):
		errors.InvalidInput(err.Error()).WriteJSON(w)
	case stderrors.Is(err, errors.ErrDuplicateCode):
		errors.CodeExists(code).WriteJSON(w)
	case stderrors.Is(err, errors.ErrNotFound):
		errors.LinkNotFound(code).WriteJSON(w)
	case stderrors.Is(err, errors.ErrGenerationExhausted):
		errors.GenerationExhausted().WriteJSON(w)
	default:
		h.log.Error("request failed", "error", err.Error())
		errors.Internal("").WriteJSON(w)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
