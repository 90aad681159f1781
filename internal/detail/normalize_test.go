package detail

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func fullRaw() *RawProductDetail {
	return &RawProductDetail{
		Title:     "Stainless Steel Water Bottle - Buy Water Bottle Product on Alibaba.com",
		PriceText: " US$3.20 - 4.80 ",
		MOQText:   "500 PIECES",
		PriceTiers: []PriceTier{
			{Range: "500 - 999 pieces", Price: "US$4.80"},
			{Range: "500 - 999 pieces", Price: "us$4.80"},
			{Range: ">= 1000 pieces", Price: "US$3.20"},
			{Range: "sample", Price: " "},
		},
		Attributes: []Attribute{
			{Label: "Material", Value: "Stainless Steel"},
			{Label: "material", Value: "stainless steel"},
			{Label: "Capacity", Value: ""},
			{Label: "thumbnail", Value: "x.jpg"},
			{Label: "Place of Origin", Value: "Zhejiang, China"},
		},
		Packaging: []PackagingEntry{
			{Name: "Selling Units", Value: "Single item"},
			{Name: "--", Value: "ignored"},
		},
		Protections: []Protection{
			{Header: "Trade Assurance", Body: "Protects your orders"},
			{Body: "Refund policy"},
			{},
		},
		Supplier:  &Supplier{Name: " Ningbo Widgets Co., Ltd. ", Logo: "https://img/logo.png", Location: "CN"},
		SoldCount: intPtr(230),
		HeroImage: "https://img/hero.jpg",
	}
}

func TestNormalizeFullDetail(t *testing.T) {
	n := Normalize(fullRaw(), ListingFallback{Title: "Listing title", Image: "https://img/listing.jpg"})

	assert.Equal(t, "Stainless Steel Water Bottle", n.Title)
	assert.Equal(t, "US$3.20 - 4.80", n.PriceText)
	assert.Equal(t, []PriceTier{
		{Range: "500 - 999 pieces", Price: "US$4.80"},
		{Range: ">= 1000 pieces", Price: "US$3.20"},
	}, n.PriceTiers)
	assert.Equal(t, []Pair{
		{"Material", "Stainless Steel"},
		{"Place of Origin", "Zhejiang, China"},
	}, n.Attributes)
	assert.Equal(t, []Pair{{"Selling Units", "Single item"}}, n.Packaging)
	assert.Equal(t, []string{"Trade Assurance: Protects your orders", "Refund policy"}, n.Protections)
	assert.Equal(t, NormalizedSupplier{Name: "Ningbo Widgets Co., Ltd.", Logo: "https://img/logo.png"}, n.Supplier)
	assert.Equal(t, "https://img/hero.jpg", n.HeroImage)
	assert.Equal(t, intPtr(230), n.SoldCount)
}

func TestNormalizeTotality(t *testing.T) {
	for name, raw := range map[string]*RawProductDetail{"nil": nil, "empty": {}} {
		t.Run(name, func(t *testing.T) {
			var n NormalizedDetail
			assert.NotPanics(t, func() { n = Normalize(raw, ListingFallback{}) })

			assert.NotNil(t, n.PriceTiers)
			assert.NotNil(t, n.Attributes)
			assert.NotNil(t, n.Packaging)
			assert.NotNil(t, n.Protections)
			assert.Empty(t, n.Title)
			assert.Nil(t, n.SoldCount)

			// containers serialize as [] rather than null
			blob, err := json.Marshal(n)
			require.NoError(t, err)
			assert.Contains(t, string(blob), `"priceTiers":[]`)
			assert.Contains(t, string(blob), `"attributes":[]`)
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	fallbacks := []ListingFallback{
		{},
		{Title: "Widget - Alibaba.com", PriceRaw: "US$2", OrdersRaw: "MOQ: 50 pcs, 1,234 sold", Image: "https://img/a.jpg"},
		{PriceMin: floatPtr(2), PriceMax: floatPtr(3.5), Currency: "usd"},
	}
	raws := []*RawProductDetail{nil, {}, fullRaw(), {PriceText: "US$3", MOQText: "100 PCS"}}

	for _, fb := range fallbacks {
		for _, raw := range raws {
			first := Normalize(raw, fb)
			second := Normalize(first.AsRaw(), fb)
			assert.Equal(t, first, second)
		}
	}
}

func TestNormalizeDedupCaseInsensitive(t *testing.T) {
	raw := &RawProductDetail{PriceTiers: []PriceTier{
		{Range: "1-99", Price: "US$5"},
		{Range: "1-99", Price: "us$5"},
	}}

	n := Normalize(raw, ListingFallback{})
	assert.Len(t, n.PriceTiers, 1)
	assert.Equal(t, PriceTier{Range: "1-99", Price: "US$5"}, n.PriceTiers[0])
}

func TestNormalizeSyntheticTier(t *testing.T) {
	n := Normalize(&RawProductDetail{PriceText: "US$3", MOQText: "100 PCS"}, ListingFallback{})
	require.Len(t, n.PriceTiers, 1)
	assert.Equal(t, "US$3", n.PriceTiers[0].Price)
	assert.Equal(t, "≥ 100 PCS", n.PriceTiers[0].Range)

	// quantity floor defaults to 1
	n = Normalize(&RawProductDetail{PriceText: "US$3"}, ListingFallback{})
	require.Len(t, n.PriceTiers, 1)
	assert.Equal(t, "≥ 1", n.PriceTiers[0].Range)

	// no price, no tier
	n = Normalize(&RawProductDetail{MOQText: "100 PCS"}, ListingFallback{})
	assert.Empty(t, n.PriceTiers)
}

func TestNormalizeFallbacks(t *testing.T) {
	fb := ListingFallback{
		Title:     "Cotton Tote Bag | Made-in-China.com",
		OrdersRaw: "Min. Order: 1,000 Pieces · 2,341 orders",
		Image:     "https://img/listing.jpg",
		PriceMin:  floatPtr(0.8),
		PriceMax:  floatPtr(1.25),
		Currency:  "USD",
	}

	n := Normalize(&RawProductDetail{}, fb)
	assert.Equal(t, "Cotton Tote Bag", n.Title)
	assert.Equal(t, "US$0.80 - 1.25", n.PriceText)
	assert.Equal(t, "1,000 PIECES", n.MOQText)
	assert.Equal(t, "https://img/listing.jpg", n.HeroImage)
	assert.Equal(t, intPtr(2341), n.SoldCount)
	assert.Equal(t, []PriceTier{{Range: "≥ 1,000 PIECES", Price: "US$0.80 - 1.25"}}, n.PriceTiers)

	fb.PriceRaw = "Rs 450 / Piece"
	assert.Equal(t, "Rs 450 / Piece", Normalize(nil, fb).PriceText)

	fb.PriceRaw = ""
	fb.PriceMax = nil
	fb.Currency = "AUD"
	assert.Equal(t, "AUD 0.80", Normalize(nil, fb).PriceText)
}

func TestTrimTitle(t *testing.T) {
	testCases := map[string]string{
		"Widget - Buy Widget,Steel Widget Product on Alibaba.com": "Widget",
		"Cotton Tote Bag - China Tote Bag | Made-in-China.com":    "Cotton Tote Bag - China Tote Bag",
		"Brass Door Handle at Rs 450/piece | ID: 2345 | IndiaMART": "Brass Door Handle at Rs 450/piece",
		"Plain title":        "Plain title",
		"  spaced   title  ": "spaced title",
	}
	for in, want := range testCases {
		assert.Equal(t, want, TrimTitle(in), in)
	}
}

func TestIsPlaceholderLabel(t *testing.T) {
	for _, label := range []string{"thumbnail", "Default", " -- ", "N/A", "undefined", "IMG"} {
		assert.True(t, IsPlaceholderLabel(label), label)
	}
	assert.False(t, IsPlaceholderLabel("Red"))
}

func TestWithPlaceholders(t *testing.T) {
	n := Normalize(&RawProductDetail{PriceText: "US$3"}, ListingFallback{})
	out := WithPlaceholders(n)

	assert.Equal(t, PlaceholderTitle, out.Title)
	assert.NotEmpty(t, out.Attributes)
	assert.NotEmpty(t, out.Packaging)
	assert.NotEmpty(t, out.Protections)
	// the source detail is untouched
	assert.Empty(t, n.Attributes)
	assert.Equal(t, GradeOK, Classify(out))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "US$2.00 - 3.50", FormatPrice("usd", 2, 3.5))
	assert.Equal(t, "₹450.00", FormatPrice("INR", 450))
	assert.Equal(t, "AUD 1.00", FormatPrice("AUD", 1, 1))
	assert.Equal(t, "9.90", FormatPrice("", 9.9))
	assert.Equal(t, "", FormatPrice("USD"))
}
