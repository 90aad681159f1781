package detail

// Grade is the quality verdict for a normalized detail
type Grade string

const (
	// GradeBad means neither a title nor any price was found
	GradeBad Grade = "BAD"
	// GradeWeak means usable but thin: the page shows placeholders and offers a refresh
	GradeWeak Grade = "WEAK"
	// GradeOK means title, price and at least one rich section are present
	GradeOK Grade = "OK"
)

// Classify grades a normalized detail
func Classify(n NormalizedDetail) Grade {
	switch {
	case IsBad(n):
		return GradeBad
	case IsCorrect(n):
		return GradeOK
	default:
		return GradeWeak
	}
}

// IsBad reports a detail with neither title nor price
func IsBad(n NormalizedDetail) bool {
	return n.Title == "" && !hasPrice(n)
}

// IsCorrect reports a detail good enough to serve from the store without a re-scrape
func IsCorrect(n NormalizedDetail) bool {
	return n.Title != "" && hasPrice(n) && hasRichContent(n)
}

// IsWeakDetail reports a detail that is neither bad nor correct
func IsWeakDetail(n NormalizedDetail) bool {
	return !IsBad(n) && !IsCorrect(n)
}

func hasPrice(n NormalizedDetail) bool {
	return n.PriceText != "" || len(n.PriceTiers) > 0
}

func hasRichContent(n NormalizedDetail) bool {
	return len(n.Attributes) > 0 || len(n.Packaging) > 0 || len(n.Protections) > 0
}
