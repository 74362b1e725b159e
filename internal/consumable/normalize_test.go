package consumable

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Normalize", func() {
	It("should be case-insensitive", func() {
		Expect(Normalize("APPLE")).To(Equal(Normalize("apple")))
	})

	It("should strip quantity-with-unit tokens", func() {
		Expect(Normalize("Fresh Apple 400gr")).To(Equal(Normalize("apple")))
	})

	It("should strip space-separated units", func() {
		Expect(Normalize("Milk 500 ml")).To(Equal("milk"))
	})

	It("should strip standalone numbers", func() {
		Expect(Normalize("Eggs 12")).To(Equal("eggs"))
	})

	It("should not strip digits inside longer words", func() {
		Expect(Normalize("Vitamine B12 complex")).To(Equal("b12 complex vitamine"))
	})

	It("should drop stop words", func() {
		Expect(Normalize("Pommes de terre Delhaize")).To(Equal("pommes terre"))
	})

	It("should drop freshness adjectives", func() {
		Expect(Normalize("frais saumon")).To(Equal("saumon"))
	})

	It("should drop tokens of length two or less", func() {
		Expect(Normalize("jus xl orange")).To(Equal("jus orange"))
	})

	It("should replace punctuation with spaces", func() {
		Expect(Normalize("yaourt-nature, pack")).To(Equal("nature pack yaourt"))
	})

	It("should deduplicate tokens", func() {
		Expect(Normalize("tomato tomato sauce")).To(Equal("sauce tomato"))
	})

	It("should sort tokens so word order does not matter", func() {
		Expect(Normalize("red apple gala")).To(Equal(Normalize("gala red apple")))
	})

	It("should be idempotent on its own output", func() {
		key := Normalize("Fresh Red Apple 400gr from Carrefour")
		Expect(Normalize(key)).To(Equal(key))
	})

	It("should never return an empty key for non-empty input", func() {
		// Every token is filtered, so the lowercased original is the key
		Expect(Normalize("De 12")).To(Equal("de 12"))
	})

	It("should map empty input to an empty key", func() {
		Expect(Normalize("")).To(Equal(""))
	})

	It("should map whitespace-only input to an empty key", func() {
		Expect(Normalize("   \t")).To(Equal(""))
	})

	It("should keep accented tokens", func() {
		Expect(Normalize("Crème fraîche 200g")).To(Equal("crème fraîche"))
	})
})

var _ = Describe("AreSimilar", func() {
	It("should match identical names", func() {
		Expect(AreSimilar("Apple", "Apple")).To(BeTrue())
	})

	It("should match names with the same token set in any order", func() {
		Expect(AreSimilar("Red Apple", "Apple Red")).To(BeTrue())
	})

	It("should match when 75% of the smaller token set is shared", func() {
		// Smaller side has 4 tokens, 3 shared
		Expect(AreSimilar("gala red apple juice", "gala red apple nectar")).To(BeTrue())
	})

	It("should not match when the overlap is below 75%", func() {
		Expect(AreSimilar("red apple", "red onion")).To(BeFalse())
	})

	It("should not match unrelated names", func() {
		Expect(AreSimilar("milk", "bread")).To(BeFalse())
	})
})
