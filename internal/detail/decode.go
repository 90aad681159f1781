package detail

import (
	"github.com/tidwall/gjson"
)

// DecodeStored reads a persisted detailJson blob. The blob may hold either
// the raw extractor shape or the normalized shape (pairs as arrays, flat
// protection strings). Invalid JSON yields nil.
func DecodeStored(blob []byte) *RawProductDetail {
	if len(blob) == 0 || !gjson.ValidBytes(blob) {
		return nil
	}
	doc := gjson.ParseBytes(blob)
	if !doc.IsObject() {
		return nil
	}

	raw := &RawProductDetail{
		Title:        doc.Get("title").String(),
		PriceText:    doc.Get("priceText").String(),
		MOQText:      doc.Get("moqText").String(),
		SamplePrice:  doc.Get("samplePrice").String(),
		ShippingNote: doc.Get("shippingNote").String(),
		HeroImage:    doc.Get("heroImage").String(),
	}

	for _, t := range doc.Get("priceTiers").Array() {
		raw.PriceTiers = append(raw.PriceTiers, PriceTier{Range: t.Get("range").String(), Price: t.Get("price").String()})
	}
	for _, v := range doc.Get("variations").Array() {
		raw.Variations = append(raw.Variations, Variation{Label: v.Get("label").String(), Image: v.Get("image").String()})
	}
	for _, c := range doc.Get("customizationOptions").Array() {
		raw.CustomizationOptions = append(raw.CustomizationOptions, CustomizationOption{
			Name:  c.Get("name").String(),
			AddOn: c.Get("addOn").String(),
			MOQ:   c.Get("moq").String(),
		})
	}
	raw.SupplierAbilities = stringList(doc.Get("supplierAbilities"))
	raw.ActionLabels = stringList(doc.Get("actionLabels"))
	raw.Gallery = stringList(doc.Get("gallery"))
	raw.Debug = stringList(doc.Get("debug"))

	for _, a := range doc.Get("attributes").Array() {
		label, value := pairOf(a, "label")
		raw.Attributes = append(raw.Attributes, Attribute{Label: label, Value: value})
	}
	for _, p := range doc.Get("packaging").Array() {
		name, value := pairOf(p, "name")
		raw.Packaging = append(raw.Packaging, PackagingEntry{Name: name, Value: value})
	}
	for _, p := range doc.Get("protections").Array() {
		if p.IsObject() {
			raw.Protections = append(raw.Protections, Protection{Header: p.Get("header").String(), Body: p.Get("body").String()})
		} else {
			raw.Protections = append(raw.Protections, Protection{Body: p.String()})
		}
	}

	if sc := doc.Get("soldCount"); sc.Type == gjson.Number {
		v := int(sc.Int())
		raw.SoldCount = &v
	}
	if r := doc.Get("rating"); r.IsObject() {
		rating := &Rating{}
		if v := r.Get("value"); v.Type == gjson.Number {
			f := v.Float()
			rating.Value = &f
		}
		if c := r.Get("count"); c.Type == gjson.Number {
			n := int(c.Int())
			rating.Count = &n
		}
		if rating.Value != nil || rating.Count != nil {
			raw.Rating = rating
		}
	}
	if s := doc.Get("supplier"); s.IsObject() {
		sup := &Supplier{
			Name:        s.Get("name").String(),
			Type:        s.Get("type").String(),
			Location:    s.Get("location").String(),
			MemberSince: s.Get("memberSince").String(),
			Badges:      stringList(s.Get("badges")),
			ProfileLink: s.Get("profileLink").String(),
			Logo:        s.Get("logo").String(),
			ContactLink: s.Get("contactLink").String(),
			ChatEnabled: s.Get("chatEnabled").Bool(),
		}
		if sup.Name != "" || sup.Logo != "" || sup.ProfileLink != "" {
			raw.Supplier = sup
		}
	}

	return raw
}

// pairOf reads either ["label","value"] or {"<key>":..,"value":..}
func pairOf(r gjson.Result, key string) (string, string) {
	if r.IsArray() {
		items := r.Array()
		if len(items) < 2 {
			return "", ""
		}
		return items[0].String(), items[1].String()
	}
	return r.Get(key).String(), r.Get("value").String()
}

func stringList(r gjson.Result) []string {
	var out []string
	for _, item := range r.Array() {
		if s := item.String(); s != "" {
			out = append(out, s)
		}
	}
	return out
}
