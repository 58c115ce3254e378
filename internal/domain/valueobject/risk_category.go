package valueobject

import "fmt"

// Risk category cut points. A probability equal to a cut point belongs to the
// lower category.
const (
	LowRiskUpperBound    = 0.3
	MediumRiskUpperBound = 0.7
)

// RiskCategory is an immutable value object representing the communicated churn risk tier.
type RiskCategory struct {
	value string
}

var (
	RiskCategoryLow    = RiskCategory{value: "Low"}
	RiskCategoryMedium = RiskCategory{value: "Medium"}
	RiskCategoryHigh   = RiskCategory{value: "High"}
)

// RiskCategories lists every category from lowest to highest.
func RiskCategories() []RiskCategory {
	return []RiskCategory{RiskCategoryLow, RiskCategoryMedium, RiskCategoryHigh}
}

// RiskCategoryFromString reconstructs a RiskCategory from its string representation.
func RiskCategoryFromString(s string) (RiskCategory, error) {
	switch s {
	case "Low":
		return RiskCategoryLow, nil
	case "Medium":
		return RiskCategoryMedium, nil
	case "High":
		return RiskCategoryHigh, nil
	default:
		return RiskCategory{}, fmt.Errorf("invalid risk category: %s", s)
	}
}

// RiskCategoryFromProbability buckets a churn probability:
// p <= 0.3 is Low, p <= 0.7 is Medium, anything above is High.
func RiskCategoryFromProbability(p float64) RiskCategory {
	switch {
	case p <= LowRiskUpperBound:
		return RiskCategoryLow
	case p <= MediumRiskUpperBound:
		return RiskCategoryMedium
	default:
		return RiskCategoryHigh
	}
}

// String returns the string representation.
func (r RiskCategory) String() string {
	return r.value
}

// IsZero returns true if the RiskCategory has not been set.
func (r RiskCategory) IsZero() bool {
	return r.value == ""
}

// Equal checks equality with another RiskCategory.
func (r RiskCategory) Equal(other RiskCategory) bool {
	return r.value == other.value
}

// IsHigh returns true for the High category.
func (r RiskCategory) IsHigh() bool {
	return r.value == "High"
}
