package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/models"
)

// Memory is a Ledger kept in process memory. All operations run under one
// mutex, which gives the conditional updates the same compare-and-set
// semantics as the Postgres store.
type Memory struct {
	mu              sync.Mutex
	nextID          int64
	orders          map[int64]*models.Order
	items           map[int64][]models.OrderItem
	notes           map[int64][]models.OrderNote
	stock           map[int64]int
	stockReductions map[int64]int
	mutations       int
}

func NewMemory() *Memory {
	return &Memory{
		orders:          map[int64]*models.Order{},
		items:           map[int64][]models.OrderItem{},
		notes:           map[int64][]models.OrderNote{},
		stock:           map[int64]int{},
		stockReductions: map[int64]int{},
	}
}

func (m *Memory) SetStock(productID int64, quantity int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[productID] = quantity
}

func (m *Memory) Stock(productID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stock[productID]
}

// OrderCreate stores a pending order. A zero id is assigned the next free one.
func (m *Memory) OrderCreate(id int64, amount decimal.Decimal, currency string, items ...models.OrderItem) *models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == 0 {
		m.nextID++
		id = m.nextID
	} else if id > m.nextID {
		m.nextID = id
	}
	o := &models.Order{
		ID:       id,
		Amount:   amount,
		Currency: currency,
		Status:   models.PaymentStatusPending,
	}
	m.orders[id] = o
	m.items[id] = items
	return copyOrder(o)
}

func (m *Memory) OrderGetByID(_ context.Context, orderID int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyOrder(o), nil
}

func (m *Memory) OrderSetSession(_ context.Context, orderID int64, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	o.SessionID = &sessionID
	if o.Status == models.PaymentStatusFailed {
		o.Status = models.PaymentStatusPending
	}
	m.mutations++
	return nil
}

func (m *Memory) OrderMarkPaid(_ context.Context, orderID int64, transactionID, note string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.Status == models.PaymentStatusPaid {
		return false, nil
	}
	o.Status = models.PaymentStatusPaid
	o.TransactionID = &transactionID
	m.addNote(orderID, note)
	m.mutations++
	return true, nil
}

func (m *Memory) OrderMarkFailed(_ context.Context, orderID int64, note string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.Status != models.PaymentStatusPending {
		return false, nil
	}
	o.Status = models.PaymentStatusFailed
	m.addNote(orderID, note)
	m.mutations++
	return true, nil
}

func (m *Memory) OrderReduceStockOnce(_ context.Context, orderID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.StockReduced {
		return false, nil
	}
	o.StockReduced = true
	for _, item := range m.items[orderID] {
		m.stock[item.ProductID] -= item.Quantity
	}
	m.stockReductions[orderID]++
	m.mutations++
	return true, nil
}

// addNote must be called with mu held.
func (m *Memory) addNote(orderID int64, note string) {
	m.notes[orderID] = append(m.notes[orderID], models.OrderNote{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		Text:      note,
		CreatedAt: time.Now(),
	})
}

func (m *Memory) Notes(orderID int64) []models.OrderNote {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.OrderNote(nil), m.notes[orderID]...)
}

// StockReductions counts how many times stock was decremented for an order.
func (m *Memory) StockReductions(orderID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stockReductions[orderID]
}

// Mutations counts every applied write across all orders.
func (m *Memory) Mutations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutations
}

func copyOrder(o *models.Order) *models.Order {
	c := *o
	if o.SessionID != nil {
		sessionID := *o.SessionID
		c.SessionID = &sessionID
	}
	if o.TransactionID != nil {
		transactionID := *o.TransactionID
		c.TransactionID = &transactionID
	}
	return &c
}
