package detail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name   string
		detail NormalizedDetail
		want   Grade
	}{
		{
			name:   "empty title and no price",
			detail: Normalize(nil, ListingFallback{}),
			want:   GradeBad,
		},
		{
			name:   "rich content alone is still bad",
			detail: Normalize(&RawProductDetail{Attributes: []Attribute{{Label: "Material", Value: "Steel"}}}, ListingFallback{}),
			want:   GradeBad,
		},
		{
			name:   "title and price without rich content",
			detail: Normalize(&RawProductDetail{Title: "Widget", PriceText: "US$3"}, ListingFallback{}),
			want:   GradeWeak,
		},
		{
			name:   "price only",
			detail: Normalize(&RawProductDetail{PriceText: "US$3"}, ListingFallback{}),
			want:   GradeWeak,
		},
		{
			name:   "title only",
			detail: Normalize(&RawProductDetail{Title: "Widget"}, ListingFallback{}),
			want:   GradeWeak,
		},
		{
			name: "title, tiers and protections",
			detail: Normalize(&RawProductDetail{
				Title:       "Widget",
				PriceTiers:  []PriceTier{{Range: "1-99", Price: "US$5"}},
				Protections: []Protection{{Header: "Trade Assurance"}},
			}, ListingFallback{}),
			want: GradeOK,
		},
		{
			name: "title and price with packaging",
			detail: Normalize(&RawProductDetail{
				Title:     "Widget",
				PriceText: "US$5",
				Packaging: []PackagingEntry{{Name: "Package Type", Value: "Carton"}},
			}, ListingFallback{}),
			want: GradeOK,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.detail)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, got == GradeBad, IsBad(tc.detail))
			assert.Equal(t, got == GradeWeak, IsWeakDetail(tc.detail))
			assert.Equal(t, got == GradeOK, IsCorrect(tc.detail))
		})
	}
}
