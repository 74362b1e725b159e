package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// lineItemPrompt is the prompt used by vision-model providers for extracting line items
const lineItemPrompt = `You are analyzing a grocery store receipt or invoice. Carefully read all text in the image and extract every purchased line item.

For each line item, extract:

1. **name**: The item description exactly as printed (e.g. "Fresh Apple 400gr", "Lait demi-ecreme 1L").
2. **unit_price**: The price of a single unit as a number (e.g. 2.49). If only a line total and quantity are printed, divide the total by the quantity.
3. **quantity**: The number of units purchased as a number. Use 1 if no quantity is printed.

Return ONLY a valid JSON array in this exact format:
[
  {"name": "Item description", "unit_price": 0.00, "quantity": 1}
]

Important:
- Include every line item, one JSON object per item
- Skip subtotal, tax, discount, deposit and total lines
- unit_price and quantity must be numbers (not strings)
- If you cannot find a field, use null for that field
- Return an empty array [] if no line items are visible
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// Gemini implements the Extractor interface using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Extractor instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// ExtractItems analyzes a receipt/invoice and extracts its line items
func (g *Gemini) ExtractItems(ctx context.Context, imageData []byte, contentType string) ([]RawItem, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	// Prepare image data (convert to PNG if needed)
	finalImageData, _, err := prepareImageData(imageData, contentType)
	if err != nil {
		return nil, err
	}

	// genai.ImageData expects just the format suffix ("png"), not the full
	// MIME type. After prepareImageData everything is PNG.
	parts := []genai.Part{
		genai.ImageData("png", finalImageData),
		genai.Text(lineItemPrompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	items, err := parseLineItemsJSON(responseText.String())
	if err != nil {
		return nil, fmt.Errorf("parsing line items: %w", err)
	}

	return items, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
