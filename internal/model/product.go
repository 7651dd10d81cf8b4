package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a sellable item with a finite stock.
// TotalStock only counts units not reserved by an active hold.
type Product struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	TotalStock int             `json:"total_stock"`
	Price      decimal.Decimal `json:"price"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// DataEnvelope wraps successful API payloads as {"data": ...}.
type DataEnvelope struct {
	Data any `json:"data"`
}
