package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stitchboard/stitchboard/pkg/models"
)

// Session is one user's view of the board: a local mirror of the
// server's orders and customers, the status catalog, and the active
// filter criteria. All state lives on the session; nothing is ambient.
//
// Mutating calls update the cache optimistically and confirm with the
// server in the background. Each confirm-or-roll-back pair is
// self-contained; overlapping requests are not coalesced and their
// responses may arrive in any order, so the last local write wins.
type Session struct {
	mu sync.Mutex

	client *Client
	logger *logrus.Logger

	catalog          *Catalog
	orders           []models.Order
	customers        []models.Customer
	customersEnabled bool
	criteria         Criteria

	// now is the wall clock used by filter evaluation.
	now func() time.Time
}

func NewSession(client *Client, logger *logrus.Logger) *Session {
	return &Session{
		client:           client,
		logger:           logger,
		catalog:          NewCatalog(nil),
		customersEnabled: true,
		criteria:         DefaultCriteria(),
		now:              time.Now,
	}
}

// Refresh reloads the status catalog, the order collection and the
// customer list from the server. Older deployments may not serve
// /customers; a 404 there leaves the session usable with customers
// disabled.
func (s *Session) Refresh(ctx context.Context) error {
	statuses, err := s.client.ListStatuses(ctx)
	if err != nil {
		return fmt.Errorf("refresh statuses: %w", err)
	}

	orders, err := s.client.ListOrders(ctx, ListOptions{})
	if err != nil {
		return fmt.Errorf("refresh orders: %w", err)
	}

	customers, err := s.client.ListCustomers(ctx)
	customersEnabled := true
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("refresh customers: %w", err)
		}
		s.logger.Warn("Customers endpoint not available, continuing without customers")
		customers = nil
		customersEnabled = false
	}

	s.mu.Lock()
	s.catalog = NewCatalog(statuses)
	s.orders = orders
	s.customers = customers
	s.customersEnabled = customersEnabled
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"statuses":  len(statuses),
		"orders":    len(orders),
		"customers": len(customers),
	}).Info("Board session refreshed")
	return nil
}

// Orders returns a copy of the cached order collection.
func (s *Session) Orders() []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// Catalog returns the current status catalog.
func (s *Session) Catalog() *Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog
}

// Customers returns a copy of the cached customer list.
func (s *Session) Customers() []models.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Customer, len(s.customers))
	copy(out, s.customers)
	return out
}

// CustomersEnabled reports whether the server serves /customers.
func (s *Session) CustomersEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customersEnabled
}

// SetCriteria replaces the active filter criteria.
func (s *Session) SetCriteria(c Criteria) {
	s.mu.Lock()
	s.criteria = c
	s.mu.Unlock()
}

// Criteria returns the active filter criteria.
func (s *Session) Criteria() Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.criteria
}

// ResetFilters restores the match-everything defaults.
func (s *Session) ResetFilters() {
	s.SetCriteria(DefaultCriteria())
}

// FilteredOrders runs the filter engine over the cached collection
// against the wall clock at call time. A session left open across a
// day boundary re-evaluates date filters against the new day.
func (s *Session) FilteredOrders() []models.Order {
	s.mu.Lock()
	orders := make([]models.Order, len(s.orders))
	copy(orders, s.orders)
	criteria := s.criteria
	now := s.now()
	s.mu.Unlock()

	return Apply(orders, criteria, now)
}

// AvailableTags returns the distinct tags across the cached orders.
func (s *Session) AvailableTags() []string {
	s.mu.Lock()
	orders := s.orders
	tags := AvailableTags(orders)
	s.mu.Unlock()
	return tags
}

// AddOrder creates the order on the server and prepends the created
// record, newest first, to the cache.
func (s *Session) AddOrder(ctx context.Context, order models.Order) (models.Order, error) {
	created, err := s.client.CreateOrder(ctx, order)
	if err != nil {
		return models.Order{}, err
	}

	s.mu.Lock()
	s.orders = append([]models.Order{created}, s.orders...)
	s.mu.Unlock()
	return created, nil
}

// UpdateOrderStatus moves an order to a new stage optimistically: the
// cache entry changes immediately and the server confirm runs in the
// background. On failure the whole collection snapshot taken before
// the change is restored and the error is delivered on the returned
// channel; the channel receives nil on success.
//
// The target slug is not validated here. Unknown slugs or ids come
// back as server rejections and roll back like any other failure.
func (s *Session) UpdateOrderStatus(ctx context.Context, id, status string) <-chan error {
	s.mu.Lock()
	snapshot := make([]models.Order, len(s.orders))
	copy(snapshot, s.orders)
	for i := range s.orders {
		if s.orders[i].ID == id {
			s.orders[i].Status = status
		}
	}
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		// The confirmed record may carry fresher server-computed
		// fields; they are deliberately not merged back here. The
		// window closes at the next Refresh.
		if _, err := s.client.UpdateOrderStatus(ctx, id, status); err != nil {
			s.rollback(snapshot)
			s.logger.WithError(err).WithFields(logrus.Fields{
				"id":     id,
				"status": status,
			}).Error("Status update rejected, rolled back")
			done <- err
			return
		}
		done <- nil
	}()
	return done
}

// DeleteOrder removes an order optimistically with the same
// snapshot-and-roll-back protocol as UpdateOrderStatus.
func (s *Session) DeleteOrder(ctx context.Context, id string) <-chan error {
	s.mu.Lock()
	snapshot := make([]models.Order, len(s.orders))
	copy(snapshot, s.orders)
	kept := s.orders[:0:0]
	for _, o := range s.orders {
		if o.ID != id {
			kept = append(kept, o)
		}
	}
	s.orders = kept
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		if err := s.client.DeleteOrder(ctx, id); err != nil {
			s.rollback(snapshot)
			s.logger.WithError(err).WithField("id", id).Error("Delete rejected, rolled back")
			done <- err
			return
		}
		done <- nil
	}()
	return done
}

// rollback restores the collection exactly as it was when the
// snapshot was taken. Coarse on purpose: overwriting the whole
// collection is simpler than diffing and correct because each
// snapshot predates its own mutation.
func (s *Session) rollback(snapshot []models.Order) {
	s.mu.Lock()
	s.orders = snapshot
	s.mu.Unlock()
}

// UpdateOrder sends a partial update synchronously and replaces the
// cache entry with the confirmed record.
func (s *Session) UpdateOrder(ctx context.Context, id string, patch models.OrderPatch) (models.Order, error) {
	updated, err := s.client.UpdateOrder(ctx, id, patch)
	if err != nil {
		return models.Order{}, err
	}

	s.mu.Lock()
	for i := range s.orders {
		if s.orders[i].ID == id {
			s.orders[i] = updated
		}
	}
	s.mu.Unlock()
	return updated, nil
}

// AddCustomer creates a customer and prepends it to the cache.
func (s *Session) AddCustomer(ctx context.Context, customer models.Customer) (models.Customer, error) {
	s.mu.Lock()
	enabled := s.customersEnabled
	s.mu.Unlock()
	if !enabled {
		return models.Customer{}, fmt.Errorf("add customer: %w", ErrNotFound)
	}

	created, err := s.client.CreateCustomer(ctx, customer)
	if err != nil {
		return models.Customer{}, err
	}

	s.mu.Lock()
	s.customers = append([]models.Customer{created}, s.customers...)
	s.mu.Unlock()
	return created, nil
}

// SyncCustomer pushes edited order customer fields back to the linked
// customer record. This is the explicit user-confirmed sync; nothing
// cascades automatically.
func (s *Session) SyncCustomer(ctx context.Context, id string, patch models.CustomerPatch) (models.Customer, error) {
	s.mu.Lock()
	enabled := s.customersEnabled
	s.mu.Unlock()
	if !enabled {
		return models.Customer{}, fmt.Errorf("sync customer: %w", ErrNotFound)
	}

	updated, err := s.client.UpdateCustomer(ctx, id, patch)
	if err != nil {
		return models.Customer{}, err
	}

	s.mu.Lock()
	for i := range s.customers {
		if s.customers[i].ID == id {
			s.customers[i] = updated
		}
	}
	s.mu.Unlock()
	return updated, nil
}
