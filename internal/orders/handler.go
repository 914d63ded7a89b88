package orders

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stitchboard/stitchboard/internal/events"
	"github.com/stitchboard/stitchboard/pkg/models"
)

// Store is the persistence surface the handlers work against.
type Store interface {
	Create(ctx context.Context, o *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context, f ListFilter) ([]models.Order, error)
	Update(ctx context.Context, id string, patch models.OrderPatch) (*models.Order, error)
	Delete(ctx context.Context, id string) error
}

type WebSocketHub interface {
	Broadcast(messageType string, data interface{}, source string)
}

type EventPublisher interface {
	PublishOrderCreated(event events.OrderCreatedEvent) error
	PublishOrderStatusChanged(event events.OrderStatusChangedEvent) error
	PublishOrderDeleted(event events.OrderDeletedEvent) error
}

type Handler struct {
	store    Store
	logger   *logrus.Logger
	producer EventPublisher
	wsHub    WebSocketHub
}

func NewHandler(store Store, logger *logrus.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

func (h *Handler) SetEventPublisher(producer EventPublisher) {
	h.producer = producer
}

func (h *Handler) SetWebSocketHub(hub WebSocketHub) {
	h.wsHub = hub
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/orders", h.ListOrders).Methods("GET")
	router.HandleFunc("/orders", h.CreateOrder).Methods("POST")
	router.HandleFunc("/orders/{id}", h.UpdateOrder).Methods("PATCH")
	router.HandleFunc("/orders/{id}", h.DeleteOrder).Methods("DELETE")
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Search:   q.Get("search"),
		Status:   q.Get("status"),
		Date:     q.Get("date"),
		Customer: q.Get("customer"),
	}

	orders, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list orders")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to list orders")
		return
	}

	h.respondWithJSON(w, http.StatusOK, orders)
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var order models.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		h.logger.WithError(err).Error("Failed to decode order request")
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if order.OrderID == "" || order.CustomerName == "" {
		h.respondWithError(w, http.StatusBadRequest, "orderId and customerName are required")
		return
	}

	order.ID = uuid.New().String()
	if order.Quantity <= 0 {
		order.Quantity = 1
	}
	if order.Status == "" {
		order.Status = "new"
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = models.PaymentPending
	}
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now

	if err := h.store.Create(r.Context(), &order); err != nil {
		if errors.Is(err, ErrDuplicateOrderID) {
			h.respondWithError(w, http.StatusConflict, "Order ID already exists")
			return
		}
		h.logger.WithError(err).Error("Failed to save order")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to save order")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"id":       order.ID,
		"order_id": order.OrderID,
		"status":   order.Status,
	}).Info("Order created")

	if h.producer != nil {
		event := events.OrderCreatedEvent{
			ID:           order.ID,
			OrderID:      order.OrderID,
			CustomerName: order.CustomerName,
			Status:       order.Status,
			CreatedAt:    order.CreatedAt,
		}
		if err := h.producer.PublishOrderCreated(event); err != nil {
			// Event delivery is best effort; the write already landed.
			h.logger.WithError(err).Error("Failed to publish order created event")
		}
	}
	if h.wsHub != nil {
		h.wsHub.Broadcast(events.OrderCreatedTopic, order, "api")
	}

	h.respondWithJSON(w, http.StatusCreated, order)
}

func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	var patch models.OrderPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.logger.WithError(err).Error("Failed to decode order patch")
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	existing, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.respondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		h.logger.WithError(err).Error("Failed to load order")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to load order")
		return
	}

	updated, err := h.store.Update(r.Context(), id, patch)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			h.respondWithError(w, http.StatusNotFound, "Order not found")
		case errors.Is(err, ErrDuplicateOrderID):
			h.respondWithError(w, http.StatusConflict, "Order ID already exists")
		default:
			h.logger.WithError(err).Error("Failed to update order")
			h.respondWithError(w, http.StatusInternalServerError, "Failed to update order")
		}
		return
	}

	if patch.Status != nil && *patch.Status != existing.Status {
		h.logger.WithFields(logrus.Fields{
			"id":   id,
			"from": existing.Status,
			"to":   updated.Status,
		}).Info("Order moved to new stage")

		if h.producer != nil {
			event := events.OrderStatusChangedEvent{
				ID:        updated.ID,
				OrderID:   updated.OrderID,
				OldStatus: existing.Status,
				NewStatus: updated.Status,
			}
			if err := h.producer.PublishOrderStatusChanged(event); err != nil {
				h.logger.WithError(err).Error("Failed to publish status changed event")
			}
		}
		if h.wsHub != nil {
			h.wsHub.Broadcast(events.OrderStatusChangedTopic, updated, "api")
		}
	}

	h.respondWithJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	existing, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.respondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		h.logger.WithError(err).Error("Failed to load order")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to load order")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.respondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		h.logger.WithError(err).Error("Failed to delete order")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to delete order")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"id":       id,
		"order_id": existing.OrderID,
	}).Info("Order removed")

	if h.producer != nil {
		event := events.OrderDeletedEvent{
			ID:      existing.ID,
			OrderID: existing.OrderID,
		}
		if err := h.producer.PublishOrderDeleted(event); err != nil {
			h.logger.WithError(err).Error("Failed to publish order deleted event")
		}
	}
	if h.wsHub != nil {
		h.wsHub.Broadcast(events.OrderDeletedTopic, existing, "api")
	}

	h.respondWithJSON(w, http.StatusOK, map[string]string{"message": "Order removed"})
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
