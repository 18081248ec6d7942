package models

import "time"

// RawAction is the unified, normalized representation of one transaction row
// from a broker export. Each parser is responsible for populating as many of
// these fields as the source format provides; the aggregator consumes them in
// chronological order (oldest first).
type RawAction struct {
	Date        time.Time `json:"date"`
	Source      string    `json:"source"` // e.g. "schwab", "coinbase"
	Action      string    `json:"action"` // source action kind, e.g. "Sale"
	Symbol      string    `json:"symbol,omitempty"`
	Description string    `json:"description,omitempty"` // grant type / free text, disambiguates award kinds
	Quantity    int       `json:"quantity,omitempty"`    // shares acquired or disposed, never negative
	UnitCost    float64   `json:"unit_cost,omitempty"`   // purchase price per share, source currency
	UnitPrice   float64   `json:"unit_price,omitempty"`  // sale price per share, source currency
	Amount      float64   `json:"amount,omitempty"`      // signed cash amount, source currency
	Fee         float64   `json:"fee,omitempty"`         // fees and commissions, positive
	Currency    string    `json:"currency"`
}

// Lot is a single acquired share: one unit tied to its acquisition date and
// cost. Lots are owned by the inventory until a disposal consumes them.
type Lot struct {
	Key      string    `json:"key"` // grant type or symbol the lot is queued under
	Symbol   string    `json:"symbol,omitempty"`
	Date     time.Time `json:"date"`
	UnitCost float64   `json:"unit_cost"` // source currency; zero when the export states no basis
	Currency string    `json:"currency"`
}

// Diagnostic records a non-fatal classification problem. The aggregation
// continues past these; the caller decides whether to surface them.
type Diagnostic struct {
	Date    time.Time `json:"date"`
	Action  string    `json:"action"`
	Message string    `json:"message"`
}
