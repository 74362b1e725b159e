package extraction

import (
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"google.golang.org/genproto/googleapis/type/money"
)

func lineItemEntity(props ...*documentaipb.Document_Entity) *documentaipb.Document_Entity {
	return &documentaipb.Document_Entity{
		Type:       "line_item",
		Properties: props,
	}
}

var _ = Describe("lineItemsFromEntities", func() {
	When("the document has line_item entities", func() {
		var items []RawItem

		BeforeEach(func() {
			entities := []*documentaipb.Document_Entity{
				lineItemEntity(
					&documentaipb.Document_Entity{Type: "line_item/description", MentionText: "Fresh Apple 400gr"},
					&documentaipb.Document_Entity{
						Type: "line_item/amount",
						NormalizedValue: &documentaipb.Document_Entity_NormalizedValue{
							StructuredValue: &documentaipb.Document_Entity_NormalizedValue_MoneyValue{
								MoneyValue: &money.Money{CurrencyCode: "EUR", Units: 2, Nanos: 490_000_000},
							},
						},
					},
					&documentaipb.Document_Entity{
						Type: "line_item/quantity",
						NormalizedValue: &documentaipb.Document_Entity_NormalizedValue{
							StructuredValue: &documentaipb.Document_Entity_NormalizedValue_FloatValue{
								FloatValue: 3,
							},
						},
					},
				),
				// Non-line entities like totals must be skipped
				&documentaipb.Document_Entity{Type: "total_amount", MentionText: "7.47"},
			}
			items = lineItemsFromEntities(entities)
		})

		It("should map only the line items", func() {
			Expect(items).To(HaveLen(1))
		})

		It("should map the description", func() {
			Expect(items[0].Name).To(Equal("Fresh Apple 400gr"))
		})

		It("should convert the normalized money value to cents", func() {
			Expect(items[0].PriceCents).To(Equal(249))
		})

		It("should map the normalized quantity", func() {
			Expect(items[0].Quantity).To(Equal(3))
		})
	})

	When("amount and quantity have no normalized values", func() {
		It("should fall back to parsing the mention text", func() {
			items := lineItemsFromEntities([]*documentaipb.Document_Entity{
				lineItemEntity(
					&documentaipb.Document_Entity{Type: "line_item/description", MentionText: "Bananas"},
					&documentaipb.Document_Entity{Type: "line_item/amount", MentionText: "$0.99"},
					&documentaipb.Document_Entity{Type: "line_item/quantity", MentionText: "6"},
				),
			})
			Expect(items).To(HaveLen(1))
			Expect(items[0].PriceCents).To(Equal(99))
			Expect(items[0].Quantity).To(Equal(6))
		})
	})

	When("a line item carries only a description", func() {
		It("should apply the boundary defaults", func() {
			items := lineItemsFromEntities([]*documentaipb.Document_Entity{
				lineItemEntity(
					&documentaipb.Document_Entity{Type: "line_item/description", MentionText: "Eggs"},
				),
			})
			Expect(items).To(HaveLen(1))
			Expect(items[0].PriceCents).To(Equal(0))
			Expect(items[0].Quantity).To(Equal(1))
		})
	})

	When("the description is missing entirely", func() {
		It("should use the Unknown placeholder", func() {
			items := lineItemsFromEntities([]*documentaipb.Document_Entity{lineItemEntity()})
			Expect(items).To(HaveLen(1))
			Expect(items[0].Name).To(Equal("Unknown"))
		})
	})

	When("there are no entities", func() {
		It("should return an empty slice", func() {
			Expect(lineItemsFromEntities(nil)).To(BeEmpty())
		})
	})
})
