package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ConditionNew  = "new"
	ConditionUsed = "used"
)

type Product struct {
	ID            int64           `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Manufacturer  string          `json:"manufacturer,omitempty"`
	CarModel      string          `json:"car_model,omitempty"`
	CarYear       string          `json:"car_year,omitempty"`
	Condition     string          `json:"condition"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	Stock         int             `json:"stock"`
	LowThreshold  int             `json:"low_threshold"`
	Image         string          `json:"image,omitempty"`
}

// LowStock reports whether the product is at or below its advisory
// restock level. Display hint only, never enforced.
func (p *Product) LowStock() bool {
	return p.Stock <= p.LowThreshold
}

type Customer struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type Supplier struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Sale is immutable once recorded. Quantity and unit price are frozen at
// sale time even if the product's price changes later. ProductID and
// CustomerID are weak references: the referent may have been deleted.
type Sale struct {
	ID         int64           `json:"id"`
	ProductID  *int64          `json:"product_id"`
	CustomerID *int64          `json:"customer_id,omitempty"`
	Quantity   int             `json:"qty"`
	UnitPrice  decimal.Decimal `json:"price"`
	SaleDate   time.Time       `json:"sale_date"`

	// Resolved at read time from the weak references; empty when the
	// referent no longer exists.
	ProductName  string `json:"product_name,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
}

// Total is the revenue of the sale.
func (s *Sale) Total() decimal.Decimal {
	return s.UnitPrice.Mul(decimal.NewFromInt(int64(s.Quantity)))
}
