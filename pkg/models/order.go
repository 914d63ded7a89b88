package models

import (
	"time"
)

// Order is a single tailoring order. Delivery dates are plain calendar
// days ("YYYY-MM-DD") and are compared as strings, never as instants.
type Order struct {
	ID            string    `json:"id"`
	OrderID       string    `json:"orderId"`
	Customer      string    `json:"customer,omitempty"`
	CustomerName  string    `json:"customerName"`
	CustomerPhone string    `json:"customerPhone,omitempty"`
	Type          string    `json:"type,omitempty"`
	Quantity      int       `json:"quantity"`
	Status        string    `json:"status"`
	DeliveryDate  string    `json:"deliveryDate,omitempty"`
	PaymentStatus string    `json:"paymentStatus"`
	Notes         string    `json:"notes,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	Attachments   []string  `json:"attachments,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

const (
	PaymentPending = "Pending"
	PaymentPaid    = "Paid"
)

// OrderPatch carries a partial update. Nil fields are left untouched.
type OrderPatch struct {
	OrderID       *string   `json:"orderId,omitempty"`
	Customer      *string   `json:"customer,omitempty"`
	CustomerName  *string   `json:"customerName,omitempty"`
	CustomerPhone *string   `json:"customerPhone,omitempty"`
	Type          *string   `json:"type,omitempty"`
	Quantity      *int      `json:"quantity,omitempty"`
	Status        *string   `json:"status,omitempty"`
	DeliveryDate  *string   `json:"deliveryDate,omitempty"`
	PaymentStatus *string   `json:"paymentStatus,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
	Tags          *[]string `json:"tags,omitempty"`
	Attachments   *[]string `json:"attachments,omitempty"`
}

// Empty reports whether the patch would change nothing.
func (p OrderPatch) Empty() bool {
	return p.OrderID == nil && p.Customer == nil && p.CustomerName == nil &&
		p.CustomerPhone == nil && p.Type == nil && p.Quantity == nil &&
		p.Status == nil && p.DeliveryDate == nil && p.PaymentStatus == nil &&
		p.Notes == nil && p.Tags == nil && p.Attachments == nil
}
