package detail

// PlaceholderTitle is shown when neither the page nor the listing has a title
const PlaceholderTitle = "Product"

// WithPlaceholders returns a display copy of n with generic text in the
// sections that came back empty, so a thin detail page never renders blank.
// The result is for rendering only and must not be persisted.
func WithPlaceholders(n NormalizedDetail) NormalizedDetail {
	out := n
	if out.Title == "" {
		out.Title = PlaceholderTitle
	}
	if len(out.Attributes) == 0 {
		out.Attributes = []Pair{
			{"Condition", "New"},
			{"Customization", "Available on request"},
		}
	}
	if len(out.Packaging) == 0 {
		out.Packaging = []Pair{
			{"Packaging", "Standard export packaging"},
		}
	}
	if len(out.Protections) == 0 {
		out.Protections = []string{
			"Secure payments: Funds are held until the group order ships",
		}
	}
	return out
}
