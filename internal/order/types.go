// internal/order/types.go
package order

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidStatus is returned when a status string is not one of the known statuses.
var ErrInvalidStatus = errors.New("invalid order status")

// IDPrefix prefixes every order identifier, e.g. ORD-00042.
const IDPrefix = "ORD-"

// Address is a shipping destination.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	Country    string `json:"country"`
	PostalCode string `json:"postalCode"`
}

// Item is a single order line.
type Item struct {
	ID          string          `json:"id"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// Subtotal returns price × quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is the business record shown on the dashboard.
type Order struct {
	ID              string          `json:"id"`
	CustomerName    string          `json:"customerName"`
	CustomerEmail   string          `json:"customerEmail"`
	Status          Status          `json:"status"`
	Items           []Item          `json:"items"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Currency        string          `json:"currency"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	ShippingAddress Address         `json:"shippingAddress"`
}

// StatusUpdate describes a status change of an existing order.
type StatusUpdate struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Apply returns a copy of o with the update's status and timestamp.
func (u StatusUpdate) Apply(o Order) Order {
	o.Status = u.Status
	o.UpdatedAt = u.UpdatedAt
	return o
}

// Total sums the item subtotals rounded to cents.
func Total(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total.Round(2)
}

// FormatID builds an order id from its sequence number.
func FormatID(seq int) string {
	return fmt.Sprintf("%s%05d", IDPrefix, seq)
}

// Sequence extracts the numeric part of an order id.
func Sequence(id string) (int, bool) {
	if !strings.HasPrefix(id, IDPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(id, IDPrefix))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// DisplayID renders an id for tables, ORD-00042 becomes #00042.
func DisplayID(id string) string {
	return "#" + strings.TrimPrefix(id, IDPrefix)
}

// IndexOf returns the position of the order with the given id, or -1.
func IndexOf(orders []Order, id string) int {
	for i := range orders {
		if orders[i].ID == id {
			return i
		}
	}
	return -1
}
