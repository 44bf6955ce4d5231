package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

type Order struct {
	ID            int64
	Amount        decimal.Decimal
	Currency      string
	Status        PaymentStatus
	StockReduced  bool
	SessionID     *string
	TransactionID *string
}

func (o *Order) IsPaid() bool {
	return o.Status == PaymentStatusPaid
}

// FormattedAmount renders the amount the way the processor expects it: two
// decimals, dot separator, no grouping.
func (o *Order) FormattedAmount() string {
	return o.Amount.StringFixed(2)
}

// String is the order reference shown to merchants.
func (o *Order) String() string {
	return fmt.Sprintf("ORDER-%04d", o.ID)
}

type OrderItem struct {
	ProductID int64
	Quantity  int
}

type OrderNote struct {
	ID        string
	OrderID   int64
	Text      string
	CreatedAt time.Time
}
