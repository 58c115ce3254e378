package valueobject

import (
	"fmt"
	"strconv"
)

// DefaultThresholdValue is the conventional decision threshold used when a
// model cannot produce probabilities.
const DefaultThresholdValue = 0.5

// Threshold is the cut-off that turns a churn probability into a churn decision.
type Threshold struct {
	value float64
}

// NewThreshold validates that v lies strictly inside (0, 1).
func NewThreshold(v float64) (Threshold, error) {
	if !(v > 0 && v < 1) {
		return Threshold{}, fmt.Errorf("threshold must be in (0,1), got %v", v)
	}
	return Threshold{value: v}, nil
}

// DefaultThreshold returns the 0.5 threshold.
func DefaultThreshold() Threshold {
	return Threshold{value: DefaultThresholdValue}
}

// Value returns the raw threshold.
func (t Threshold) Value() float64 {
	return t.value
}

// Predict returns true when the probability reaches the threshold.
func (t Threshold) Predict(probability float64) bool {
	return probability >= t.value
}

// IsZero returns true if the Threshold has not been set.
func (t Threshold) IsZero() bool {
	return t.value == 0
}

// String formats the threshold with two decimals.
func (t Threshold) String() string {
	return strconv.FormatFloat(t.value, 'f', 2, 64)
}
