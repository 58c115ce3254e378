package model

// SegmentAttribute is the mean of one raw customer attribute within a segment.
type SegmentAttribute struct {
	Column string
	Mean   float64
}

// SegmentProfile summarizes one customer segment over the scored customers.
type SegmentProfile struct {
	Segment                 int
	CustomerCount           int
	AverageChurnProbability float64
	Attributes              []SegmentAttribute
	Description             string
}

// Attribute returns the segment mean of column, if it was profiled.
func (p SegmentProfile) Attribute(column string) (float64, bool) {
	for _, a := range p.Attributes {
		if a.Column == column {
			return a.Mean, true
		}
	}
	return 0, false
}
