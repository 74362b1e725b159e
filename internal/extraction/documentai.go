package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
	"google.golang.org/genproto/googleapis/type/money"
)

// DocumentAI implements the Extractor interface using the Google Document AI
// expense processor. The processor returns line_item entities whose properties
// carry the description, amount and quantity of each purchased item.
type DocumentAI struct {
	client        *documentai.DocumentProcessorClient
	processorName string
}

// NewDocumentAI creates a new Document AI Extractor instance.
// The processor must be an expense (receipt/invoice) processor created in the
// given project and location.
func NewDocumentAI(projectID, location, processorID string) (*DocumentAI, error) {
	if projectID == "" || processorID == "" {
		return nil, fmt.Errorf("documentai project id and processor id are required")
	}
	if location == "" {
		location = "us"
	}

	// Document AI requires the regional endpoint matching the processor location
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", location)

	ctx := context.Background()
	client, err := documentai.NewDocumentProcessorClient(ctx, option.WithEndpoint(endpoint))
	if err != nil {
		return nil, fmt.Errorf("creating documentai client: %w", err)
	}

	return &DocumentAI{
		client:        client,
		processorName: fmt.Sprintf("projects/%s/locations/%s/processors/%s", projectID, location, processorID),
	}, nil
}

// ExtractItems analyzes a receipt/invoice and extracts its line items
func (d *DocumentAI) ExtractItems(ctx context.Context, imageData []byte, contentType string) ([]RawItem, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	data := imageData
	mimeType := strings.ToLower(strings.TrimSpace(contentType))

	// Document AI takes PDFs natively but does not accept HEIC/HEIF
	if isHEICFormat(imageData) || isHEICMimeType(mimeType) {
		converted, err := imageToPNG(imageData, mimeType)
		if err != nil {
			return nil, fmt.Errorf("converting HEIC image: %w", err)
		}
		data = converted
		mimeType = "image/png"
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	req := &documentaipb.ProcessRequest{
		Name: d.processorName,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: mimeType,
			},
		},
	}

	resp, err := d.client.ProcessDocument(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("documentai ProcessDocument: %w", err)
	}
	if resp == nil || resp.Document == nil {
		return nil, nil
	}

	return lineItemsFromEntities(resp.Document.GetEntities()), nil
}

// lineItemsFromEntities maps line_item entities to RawItems, applying the
// boundary defaults for absent fields.
func lineItemsFromEntities(entities []*documentaipb.Document_Entity) []RawItem {
	items := make([]RawItem, 0, len(entities))
	for _, entity := range entities {
		if entity.GetType() != "line_item" {
			continue
		}

		name := "Unknown"
		priceCents := 0
		quantity := 1

		for _, prop := range entity.GetProperties() {
			switch prop.GetType() {
			case "line_item/description":
				if text := strings.TrimSpace(prop.GetMentionText()); text != "" {
					name = text
				}
			case "line_item/amount", "line_item/unit_price":
				priceCents = entityMoneyCents(prop)
			case "line_item/quantity":
				quantity = entityQuantity(prop)
			}
		}

		items = append(items, RawItem{
			Name:       name,
			PriceCents: priceCents,
			Quantity:   quantity,
		})
	}
	return items
}

// entityMoneyCents reads a currency-valued entity, preferring the normalized
// money value over the raw mention text
func entityMoneyCents(prop *documentaipb.Document_Entity) int {
	if nv := prop.GetNormalizedValue(); nv != nil {
		if m := nv.GetMoneyValue(); m != nil {
			return moneyToCents(m)
		}
		if text := nv.GetText(); text != "" {
			return parsePriceText(text)
		}
	}
	return parsePriceText(prop.GetMentionText())
}

// entityQuantity reads a numeric-valued entity, preferring the normalized
// float value over the raw mention text
func entityQuantity(prop *documentaipb.Document_Entity) int {
	if nv := prop.GetNormalizedValue(); nv != nil {
		if f := nv.GetFloatValue(); f > 0 {
			return int(f)
		}
		if text := nv.GetText(); text != "" {
			return parseQuantityText(text)
		}
	}
	return parseQuantityText(prop.GetMentionText())
}

// moneyToCents converts a google.type.Money value to integer cents
func moneyToCents(m *money.Money) int {
	return int(m.GetUnits())*100 + int(m.GetNanos())/10_000_000
}

// Close closes the Document AI client
func (d *DocumentAI) Close() error {
	return d.client.Close()
}
