package extraction

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// lineItem mirrors the JSON shape the vision prompt asks for.
// Pointer fields distinguish absent from zero.
type lineItem struct {
	Name      string   `json:"name"`
	UnitPrice *float64 `json:"unit_price"`
	Quantity  *float64 `json:"quantity"`
}

// parseLineItemsJSON parses the JSON array response from a vision model
// and applies the boundary defaults: missing price is 0, missing or
// non-positive quantity is 1, missing name becomes "Unknown".
func parseLineItemsJSON(text string) ([]RawItem, error) {
	text = strings.TrimSpace(text)

	// Remove markdown code blocks if present
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON array boundaries - look for first [ and last ]
	startIdx := strings.Index(text, "[")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON array found in response")
	}
	endIdx := strings.LastIndex(text, "]")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON array in response")
	}
	text = text[startIdx : endIdx+1]

	var entries []lineItem
	if err := json.Unmarshal([]byte(text), &entries); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	items := make([]RawItem, 0, len(entries))
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			name = "Unknown"
		}

		priceCents := 0
		if e.UnitPrice != nil {
			priceCents = dollarsToCents(*e.UnitPrice)
		}

		quantity := 1
		if e.Quantity != nil && *e.Quantity > 0 {
			quantity = int(*e.Quantity)
		}

		items = append(items, RawItem{
			Name:       name,
			PriceCents: priceCents,
			Quantity:   quantity,
		})
	}

	return items, nil
}

// dollarsToCents converts a decimal currency amount to integer cents
func dollarsToCents(amount float64) int {
	return int(math.Round(amount * 100))
}

// parsePriceText parses a free-form price string such as "$4.99" or "4,99 €"
// into cents. Returns 0 if nothing numeric is found.
func parsePriceText(text string) int {
	var b strings.Builder
	for _, r := range strings.TrimSpace(text) {
		if r >= '0' && r <= '9' || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if strings.Contains(s, ".") {
		// Commas are thousands separators when a dot is present
		s = strings.ReplaceAll(s, ",", "")
	} else {
		// European decimal comma
		s = strings.ReplaceAll(s, ",", ".")
	}
	amount, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return dollarsToCents(amount)
}

// parseQuantityText parses a free-form quantity string such as "2" or "2.00".
// Returns 1 for missing or non-positive values.
func parseQuantityText(text string) int {
	qty, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || qty <= 0 {
		return 1
	}
	return int(qty)
}
