package statuses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stitchboard/stitchboard/pkg/models"
)

type Store interface {
	List(ctx context.Context) ([]models.Status, error)
	Create(ctx context.Context, title, value string) (*models.Status, error)
	Delete(ctx context.Context, value string) error
}

type Handler struct {
	store  Store
	logger *logrus.Logger
}

func NewHandler(store Store, logger *logrus.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/statuses", h.ListStatuses).Methods("GET")
	router.HandleFunc("/statuses", h.CreateStatus).Methods("POST")
	router.HandleFunc("/statuses/{value}", h.DeleteStatus).Methods("DELETE")
}

func (h *Handler) ListStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.store.List(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list statuses")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to list statuses")
		return
	}
	h.respondWithJSON(w, http.StatusOK, statuses)
}

func (h *Handler) CreateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == "" || req.Value == "" {
		h.respondWithError(w, http.StatusBadRequest, "title and value are required")
		return
	}

	status, err := h.store.Create(r.Context(), req.Title, req.Value)
	if err != nil {
		if errors.Is(err, ErrDuplicateValue) {
			h.respondWithError(w, http.StatusConflict, "Status value already exists")
			return
		}
		h.logger.WithError(err).Error("Failed to create status")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to create status")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"value": status.Value,
		"ord":   status.Ord,
	}).Info("Workflow stage created")

	h.respondWithJSON(w, http.StatusCreated, status)
}

func (h *Handler) DeleteStatus(w http.ResponseWriter, r *http.Request) {
	value := mux.Vars(r)["value"]

	if err := h.store.Delete(r.Context(), value); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.respondWithError(w, http.StatusNotFound, "Status not found")
			return
		}
		h.logger.WithError(err).Error("Failed to delete status")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to delete status")
		return
	}

	h.logger.WithField("value", value).Info("Workflow stage removed")
	h.respondWithJSON(w, http.StatusOK, map[string]string{"message": "Status removed"})
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]string{"message": message})
}
