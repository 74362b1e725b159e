package consumable

import "time"

// Consumable represents a tracked pantry item aggregated across bills.
// The normalized key is the business identity: every bill line whose name
// normalizes to the same key merges into the same record.
type Consumable struct {
	ID            string    `json:"id" db:"id"`
	DisplayName   string    `json:"display_name" db:"display_name"` // First-seen raw name, never recomputed
	NormalizedKey string    `json:"normalized_key" db:"normalized_key"`
	PriceCents    int       `json:"price_cents" db:"price_cents"` // Rolling average unit price in cents
	Quantity      int       `json:"quantity" db:"quantity"`       // Running on-hand count
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
