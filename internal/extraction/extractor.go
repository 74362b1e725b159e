package extraction

import "context"

// RawItem is a single line item pulled from a receipt or invoice document.
// Prices are expressed in integer cents.
type RawItem struct {
	Name       string `json:"name"`
	PriceCents int    `json:"price_cents"`
	Quantity   int    `json:"quantity"`
}

// Extractor defines the interface for document line-item extraction providers
type Extractor interface {
	// ExtractItems analyzes a receipt/invoice image or PDF and returns its line items.
	// A readable document with no recognizable line items yields an empty slice, not an error.
	ExtractItems(ctx context.Context, imageData []byte, contentType string) ([]RawItem, error)
	// Close closes the extractor and releases resources
	Close() error
}
