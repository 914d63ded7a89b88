package customers

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
	Create(ctx context.Context, c *models.Customer) error
	List(ctx context.Context) ([]models.Customer, error)
	GetByPhone(ctx context.Context, phone string) (*models.Customer, error)
	Update(ctx context.Context, id string, patch models.CustomerPatch) (*models.Customer, error)
	Delete(ctx context.Context, id string) error
}

type Handler struct {
	store  Store
	logger *logrus.Logger
}

func NewHandler(store Store, logger *logrus.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/customers", h.ListCustomers).Methods("GET")
	router.HandleFunc("/customers", h.CreateCustomer).Methods("POST")
	router.HandleFunc("/customers/phone/{phone}", h.CustomerByPhone).Methods("GET")
	router.HandleFunc("/customers/{id}", h.UpdateCustomer).Methods("PATCH")
	router.HandleFunc("/customers/{id}", h.DeleteCustomer).Methods("DELETE")
}

func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.store.List(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list customers")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to list customers")
		return
	}
	h.respondWithJSON(w, http.StatusOK, customers)
}

func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var customer models.Customer
	if err := json.NewDecoder(r.Body).Decode(&customer); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if customer.Name == "" || customer.Phone == "" {
		h.respondWithError(w, http.StatusBadRequest, "Name and phone are required")
		return
	}

	if err := h.store.Create(r.Context(), &customer); err != nil {
		if errors.Is(err, ErrDuplicatePhone) {
			h.respondWithError(w, http.StatusConflict, "Phone number already exists")
			return
		}
		h.logger.WithError(err).Error("Failed to create customer")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to create customer")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"id":    customer.ID,
		"phone": customer.Phone,
	}).Info("Customer created")

	h.respondWithJSON(w, http.StatusCreated, customer)
}

func (h *Handler) CustomerByPhone(w http.ResponseWriter, r *http.Request) {
	phone := mux.Vars(r)["phone"]

	customer, err := h.store.GetByPhone(r.Context(), phone)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.respondWithError(w, http.StatusNotFound, "Customer not found")
			return
		}
		h.logger.WithError(err).Error("Failed to look up customer")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to look up customer")
		return
	}
	h.respondWithJSON(w, http.StatusOK, customer)
}

func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var patch models.CustomerPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.store.Update(r.Context(), id, patch)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			h.respondWithError(w, http.StatusNotFound, "Customer not found")
		case errors.Is(err, ErrDuplicatePhone):
			h.respondWithError(w, http.StatusConflict, "Phone number already exists")
		default:
			h.logger.WithError(err).Error("Failed to update customer")
			h.respondWithError(w, http.StatusInternalServerError, "Failed to update customer")
		}
		return
	}
	h.respondWithJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.respondWithError(w, http.StatusNotFound, "Customer not found")
			return
		}
		h.logger.WithError(err).Error("Failed to delete customer")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to delete customer")
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]string{"message": "Customer removed"})
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
