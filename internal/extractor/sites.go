package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"groupbuy/detailworker/internal/textparse"
)

// Provider names
const (
	ProviderAlibaba     = "alibaba"
	ProviderMadeInChina = "made-in-china"
	ProviderIndiaMART   = "indiamart"
	ProviderGeneric     = "generic"
)

// MadeInChinaConfig describes Made-in-China.com product pages
var MadeInChinaConfig = SiteConfig{
	Provider:   ProviderMadeInChina,
	HostMarker: "made-in-china",
	Selectors: Selectors{
		Title:            "h1.sr-proMainInfo-baseInfoH1 span, h1.sr-proMainInfo-baseInfoH1, h1",
		Price:            ".sr-proMainInfo-baseInfo-propertyPrice, .only-one-priceNum, .price-info",
		MOQ:              ".sr-proMainInfo-baseInfo-propertyAttr .sa-only-property-unit, .only-one-priceInfo, .min-order",
		TierRow:          ".swiper-slide-price, .price-ladder li",
		TierRange:        ".swiper-unit, .ladder-unit",
		TierPrice:        ".swiper-money-container, .ladder-price",
		SupplierName:     ".company-name-wrapper a, .com-name",
		SupplierType:     ".sr-com-info .com-type, .company-type",
		SupplierLocation: ".sr-com-info .com-addr, .company-address-detail",
		SupplierLogo:     ".sr-com-logo img, .company-logo img",
		SupplierProfile:  ".company-name-wrapper a, a.com-name",
		Protections:      ".sr-proMainInfo-assurance li, .trade-assurance-item",
		PackagingRegion:  ".sr-txt-packaging, .packaging-info",
	},
	ElementTransformers: ElementTransformers{
		RemoveElements: []ElementRemoval{
			{Selector: ".price-tips, .tip", ApplyToPath: "price"},
		},
	},
}

// IndiaMARTConfig describes IndiaMART product pages. Prices are quoted per
// unit ("₹ 450/Piece") and there is rarely a ladder.
var IndiaMARTConfig = SiteConfig{
	Provider:   ProviderIndiaMART,
	HostMarker: "indiamart",
	Selectors: Selectors{
		Title:            "h1.bo, h1.center-heading, h1",
		Price:            ".prc-dtl, .price-unit, [class*='prc']",
		MOQ:              ".moq, .min-order, [class*='MOQ']",
		SupplierName:     ".companyname a, .cmp-nm, #supp_nm",
		SupplierType:     ".bsnstype, .cmp-type",
		SupplierLocation: ".cityLocation, .city-name",
		SupplierLogo:     ".cmp-logo img",
		SupplierProfile:  ".companyname a",
		Protections:      ".trust-badges li, .trustseal",
		PackagingRegion:  ".packaging-details",
	},
	CustomHandlers: CustomHandlers{
		ElementHandlers: map[string]CustomElementHandlerFunc{
			// the MOQ usually sits in the spec table as "Minimum Order Quantity"
			"moq": func(root *goquery.Selection) string {
				var out string
				root.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
					cells := row.ChildrenFiltered("td, th")
					if cells.Length() == 2 && moqLabelRe.MatchString(textparse.CleanText(cells.Eq(0).Text())) {
						out = cells.Eq(1).Text()
					}
					return strings.TrimSpace(out) == ""
				})
				if strings.TrimSpace(out) == "" {
					out = root.Find(".moq, .min-order").First().Text()
				}
				return out
			},
		},
	},
}
