package board

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stitchboard/stitchboard/pkg/models"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// boardServer is a minimal in-memory API used by session tests. Patch
// behavior is programmable so tests can force server rejections.
type boardServer struct {
	mu          sync.Mutex
	orders      []models.Order
	statuses    []models.Status
	customers   []models.Customer
	noCustomers bool
	rejectPatch bool
	patchDelay  time.Duration
}

func (b *boardServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/statuses", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(b.statuses)
	})
	mux.HandleFunc("/customers", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.noCustomers {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"message": "Not found"})
			return
		}
		json.NewEncoder(w).Encode(b.customers)
	})
	mux.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(b.orders)
	})
	mux.HandleFunc("/orders/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/orders/")
		time.Sleep(b.patchDelay)

		b.mu.Lock()
		defer b.mu.Unlock()

		if b.rejectPatch {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"message": "Rejected"})
			return
		}

		switch r.Method {
		case http.MethodPatch:
			var patch models.OrderPatch
			json.NewDecoder(r.Body).Decode(&patch)
			for i := range b.orders {
				if b.orders[i].ID == id {
					if patch.Status != nil {
						b.orders[i].Status = *patch.Status
					}
					json.NewEncoder(w).Encode(b.orders[i])
					return
				}
			}
		case http.MethodDelete:
			for i := range b.orders {
				if b.orders[i].ID == id {
					b.orders = append(b.orders[:i], b.orders[i+1:]...)
					json.NewEncoder(w).Encode(map[string]string{"message": "Order removed"})
					return
				}
			}
		}
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "Order not found"})
	})
	return mux
}

func newTestSession(t *testing.T, b *boardServer) (*Session, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, quietLogger())
	session := NewSession(client, quietLogger())
	if err := session.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	return session, srv
}

func twoOrders() []models.Order {
	return []models.Order{
		{ID: "1", OrderID: "ORD-1", CustomerName: "Alice Tan", Status: "new"},
		{ID: "2", OrderID: "ORD-2", CustomerName: "Bob Chen", Status: "new"},
	}
}

func TestSessionRefreshLoadsBoardState(t *testing.T) {
	b := &boardServer{
		orders:    twoOrders(),
		statuses:  []models.Status{{ID: "s1", Title: "New", Value: "new", Ord: 0}},
		customers: []models.Customer{{ID: "c1", Name: "Alice Tan", Phone: "555-0101"}},
	}
	session, _ := newTestSession(t, b)

	if got := len(session.Orders()); got != 2 {
		t.Errorf("orders = %d, want 2", got)
	}
	if got := session.Catalog().Len(); got != 1 {
		t.Errorf("catalog len = %d, want 1", got)
	}
	if !session.CustomersEnabled() {
		t.Error("customers should be enabled")
	}
	if got := len(session.Customers()); got != 1 {
		t.Errorf("customers = %d, want 1", got)
	}
}

func TestSessionRefreshToleratesMissingCustomersEndpoint(t *testing.T) {
	b := &boardServer{orders: twoOrders(), noCustomers: true}
	session, _ := newTestSession(t, b)

	if session.CustomersEnabled() {
		t.Error("customers should be disabled after a 404")
	}
	if got := len(session.Orders()); got != 2 {
		t.Errorf("orders = %d, want 2", got)
	}

	if _, err := session.AddCustomer(context.Background(), models.Customer{Name: "X", Phone: "1"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddCustomer error = %v, want ErrNotFound", err)
	}
}

func TestSessionStatusUpdateIsOptimistic(t *testing.T) {
	b := &boardServer{orders: twoOrders(), patchDelay: 100 * time.Millisecond}
	session, _ := newTestSession(t, b)

	done := session.UpdateOrderStatus(context.Background(), "1", "done")

	// The cache reflects the move before the server has answered.
	orders := session.Orders()
	if orders[0].Status != "done" {
		t.Errorf("status = %q before confirm, want done", orders[0].Status)
	}

	if err := <-done; err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got := session.Orders()[0].Status; got != "done" {
		t.Errorf("status = %q after confirm, want done", got)
	}
}

func TestSessionStatusUpdateRollsBackOnRejection(t *testing.T) {
	b := &boardServer{orders: twoOrders(), rejectPatch: true}
	session, _ := newTestSession(t, b)

	before := session.Orders()
	err := <-session.UpdateOrderStatus(context.Background(), "1", "done")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	after := session.Orders()
	if !reflect.DeepEqual(after, before) {
		t.Errorf("rollback mismatch:\n got %+v\nwant %+v", after, before)
	}
}

func TestSessionDeleteIsOptimisticWithRollback(t *testing.T) {
	b := &boardServer{orders: twoOrders()}
	session, _ := newTestSession(t, b)

	if err := <-session.DeleteOrder(context.Background(), "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	orders := session.Orders()
	if len(orders) != 1 || orders[0].ID != "2" {
		t.Fatalf("after delete: %+v", orders)
	}

	// Deleting an unknown id rolls the collection back unchanged.
	before := session.Orders()
	if err := <-session.DeleteOrder(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	after := session.Orders()
	if len(after) != len(before) {
		t.Fatalf("rollback changed collection: %+v", after)
	}
}

func TestSessionConcurrentTransitionsAreIndependent(t *testing.T) {
	b := &boardServer{orders: twoOrders()}
	session, _ := newTestSession(t, b)

	done1 := session.UpdateOrderStatus(context.Background(), "1", "done")
	done2 := session.UpdateOrderStatus(context.Background(), "2", "ready")

	if err := <-done1; err != nil {
		t.Fatalf("first transition: %v", err)
	}
	if err := <-done2; err != nil {
		t.Fatalf("second transition: %v", err)
	}

	orders := session.Orders()
	if orders[0].Status != "done" || orders[1].Status != "ready" {
		t.Errorf("statuses = %q, %q", orders[0].Status, orders[1].Status)
	}
}

func TestSessionFilteredOrdersUsesInjectedClock(t *testing.T) {
	b := &boardServer{orders: []models.Order{
		{ID: "1", OrderID: "ORD-1", CustomerName: "Alice Tan", Status: "new", DeliveryDate: "2025-06-15"},
		{ID: "2", OrderID: "ORD-2", CustomerName: "Bob Chen", Status: "new", DeliveryDate: "2025-06-16"},
	}}
	session, _ := newTestSession(t, b)
	session.now = func() time.Time {
		return time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	}

	c := DefaultCriteria()
	c.DateType = DateToday
	session.SetCriteria(c)

	got := session.FilteredOrders()
	if len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("filtered = %+v", got)
	}

	// The same session evaluated a day later sees the other order.
	session.now = func() time.Time {
		return time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC)
	}
	got = session.FilteredOrders()
	if len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("filtered after day change = %+v", got)
	}
}

func TestSessionResetFilters(t *testing.T) {
	b := &boardServer{orders: twoOrders()}
	session, _ := newTestSession(t, b)

	c := DefaultCriteria()
	c.Search = "alice"
	session.SetCriteria(c)
	if got := len(session.FilteredOrders()); got != 1 {
		t.Fatalf("filtered = %d, want 1", got)
	}

	session.ResetFilters()
	if got := len(session.FilteredOrders()); got != 2 {
		t.Fatalf("filtered after reset = %d, want 2", got)
	}
}
