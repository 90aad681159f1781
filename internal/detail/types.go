// Package detail defines the product detail shapes shared by the extractors,
// the normalizer and the persisted detailJson blob, together with the
// normalizer and the quality classifier.
package detail

// RawProductDetail is what an extractor pulls out of a marketplace page.
// Every field is optional: strings are "" and numbers nil when absent.
type RawProductDetail struct {
	Title                string                `json:"title,omitempty"`
	PriceText            string                `json:"priceText,omitempty"`
	MOQText              string                `json:"moqText,omitempty"`
	PriceTiers           []PriceTier           `json:"priceTiers,omitempty"`
	SamplePrice          string                `json:"samplePrice,omitempty"`
	Variations           []Variation           `json:"variations,omitempty"`
	CustomizationOptions []CustomizationOption `json:"customizationOptions,omitempty"`
	SupplierAbilities    []string              `json:"supplierAbilities,omitempty"`
	ShippingNote         string                `json:"shippingNote,omitempty"`
	ActionLabels         []string              `json:"actionLabels,omitempty"`
	Attributes           []Attribute           `json:"attributes,omitempty"`
	Packaging            []PackagingEntry      `json:"packaging,omitempty"`
	Protections          []Protection          `json:"protections,omitempty"`
	Gallery              []string              `json:"gallery,omitempty"`
	HeroImage            string                `json:"heroImage,omitempty"`
	Rating               *Rating               `json:"rating,omitempty"`
	SoldCount            *int                  `json:"soldCount,omitempty"`
	Supplier             *Supplier             `json:"supplier,omitempty"`
	Debug                []string              `json:"debug,omitempty"`
}

// PriceTier is one rung of a quantity-break price ladder
type PriceTier struct {
	Range string `json:"range"`
	Price string `json:"price"`
}

// Variation is a color/size/style option, optionally with its own image
type Variation struct {
	Label string `json:"label"`
	Image string `json:"image,omitempty"`
}

// CustomizationOption is an OEM/ODM offer such as "Customized logo"
type CustomizationOption struct {
	Name  string `json:"name"`
	AddOn string `json:"addOn,omitempty"`
	MOQ   string `json:"moq,omitempty"`
}

// Attribute is one row of the free-form spec sheet
type Attribute struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// PackagingEntry is one row of packaging and delivery details
type PackagingEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Protection is a buyer-guarantee blurb
type Protection struct {
	Header string `json:"header,omitempty"`
	Body   string `json:"body,omitempty"`
}

// Rating is the review score and review count
type Rating struct {
	Value *float64 `json:"value,omitempty"`
	Count *int     `json:"count,omitempty"`
}

// Supplier describes the selling company as shown on the product page
type Supplier struct {
	Name        string   `json:"name,omitempty"`
	Type        string   `json:"type,omitempty"`
	Location    string   `json:"location,omitempty"`
	MemberSince string   `json:"memberSince,omitempty"`
	Badges      []string `json:"badges,omitempty"`
	ProfileLink string   `json:"profileLink,omitempty"`
	Logo        string   `json:"logo,omitempty"`
	ContactLink string   `json:"contactLink,omitempty"`
	ChatEnabled bool     `json:"chatEnabled,omitempty"`
}

// ListingFallback is what the aggregator index already knows about a
// listing. It fills the gaps an extractor leaves.
type ListingFallback struct {
	Title     string   `json:"title,omitempty"`
	PriceRaw  string   `json:"priceRaw,omitempty"`
	PriceMin  *float64 `json:"priceMin,omitempty"`
	PriceMax  *float64 `json:"priceMax,omitempty"`
	Currency  string   `json:"currency,omitempty"`
	OrdersRaw string   `json:"ordersRaw,omitempty"`
	Image     string   `json:"image,omitempty"`
}

// Pair is a label/value row, serialized as a two element JSON array
type Pair [2]string

// NormalizedSupplier is the canonical projection of Supplier
type NormalizedSupplier struct {
	Name string `json:"name,omitempty"`
	Logo string `json:"logo,omitempty"`
}

// NormalizedDetail is the canonical, fully shaped detail the UI renders.
// Container fields are never nil.
type NormalizedDetail struct {
	Title       string             `json:"title"`
	PriceText   string             `json:"priceText,omitempty"`
	PriceTiers  []PriceTier        `json:"priceTiers"`
	SoldCount   *int               `json:"soldCount,omitempty"`
	Attributes  []Pair             `json:"attributes"`
	Packaging   []Pair             `json:"packaging"`
	Protections []string           `json:"protections"`
	Supplier    NormalizedSupplier `json:"supplier"`
	MOQText     string             `json:"moqText,omitempty"`
	HeroImage   string             `json:"heroImage,omitempty"`
}

// IsEmpty reports whether the extractor found nothing at all worth keeping
func (r *RawProductDetail) IsEmpty() bool {
	if r == nil {
		return true
	}
	return r.Title == "" && r.PriceText == "" && r.MOQText == "" &&
		len(r.PriceTiers) == 0 && len(r.Attributes) == 0 && len(r.Packaging) == 0 &&
		len(r.Protections) == 0 && len(r.Gallery) == 0 && r.HeroImage == "" &&
		r.SoldCount == nil && r.Supplier == nil && len(r.Variations) == 0
}

// AddDebug appends a strategy breadcrumb
func (r *RawProductDetail) AddDebug(crumb string) {
	r.Debug = append(r.Debug, crumb)
}

// AsRaw re-interprets a normalized detail as extractor output so it can be
// stored or normalized again.
func (n NormalizedDetail) AsRaw() *RawProductDetail {
	raw := &RawProductDetail{
		Title:      n.Title,
		PriceText:  n.PriceText,
		MOQText:    n.MOQText,
		PriceTiers: append([]PriceTier(nil), n.PriceTiers...),
		SoldCount:  n.SoldCount,
		HeroImage:  n.HeroImage,
	}
	for _, p := range n.Attributes {
		raw.Attributes = append(raw.Attributes, Attribute{Label: p[0], Value: p[1]})
	}
	for _, p := range n.Packaging {
		raw.Packaging = append(raw.Packaging, PackagingEntry{Name: p[0], Value: p[1]})
	}
	for _, s := range n.Protections {
		raw.Protections = append(raw.Protections, Protection{Body: s})
	}
	if n.Supplier.Name != "" || n.Supplier.Logo != "" {
		raw.Supplier = &Supplier{Name: n.Supplier.Name, Logo: n.Supplier.Logo}
	}
	return raw
}
