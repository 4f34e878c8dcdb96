package models

import "gorm.io/gorm"

// OrderStatus is the closed set of order lifecycle states.
type OrderStatus string

const (
	OrderPlaced    OrderStatus = "placed"
	OrderFulfilled OrderStatus = "fulfilled"
	OrderRemoved   OrderStatus = "removed"
)

// PaymentStatus tracks the momo payment state of an order.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type Order struct {
	gorm.Model
	FoodID    uint `gorm:"index;not null" json:"food"`
	StudentID uint `gorm:"index;not null" json:"student"`
	// denormalized from the food so vendors can list their orders directly
	VendorID uint `gorm:"index;not null" json:"vendor"`

	Quantity  int     `gorm:"not null" json:"quantity"`
	UnitPrice float64 `gorm:"not null" json:"unitPrice"`
	Total     float64 `gorm:"not null" json:"total"`

	Status        OrderStatus   `gorm:"size:12;not null;default:'placed'" json:"status"`
	PaymentStatus PaymentStatus `gorm:"size:12;not null;default:'pending'" json:"paymentStatus"`

	// momo identifiers; MomoOrderID doubles as the webhook idempotency key
	MomoOrderID   string `gorm:"size:64;uniqueIndex" json:"momoOrderId"`
	TransactionID string `gorm:"size:64" json:"transactionId,omitempty"`
	PayURL        string `gorm:"size:512" json:"payUrl,omitempty"`
}
