package warehouse

// Segment classifies a customer's recency into a closed set of outcomes.
type Segment string

const (
	SegmentActive    Segment = "active"
	SegmentWarm      Segment = "warm"
	SegmentChurnRisk Segment = "churn-risk"
)

// Boundary constants for segment classification, in days since the
// customer's last order. The transformer injects these same values into the
// customer_rollups segment column so SQL and Go never disagree.
const (
	ActiveMaxDays = 30
	WarmMaxDays   = 90
)

// ClassifySegment maps days since last order to a retention segment.
// Negative inputs are clamped to active.
func ClassifySegment(daysSinceLastOrder int) Segment {
	switch {
	case daysSinceLastOrder <= ActiveMaxDays:
		return SegmentActive
	case daysSinceLastOrder <= WarmMaxDays:
		return SegmentWarm
	default:
		return SegmentChurnRisk
	}
}
