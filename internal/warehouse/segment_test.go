package warehouse

import "testing"

func TestClassifySegment(t *testing.T) {
	tests := []struct {
		days int
		want Segment
	}{
		{-5, SegmentActive},
		{0, SegmentActive},
		{15, SegmentActive},
		{30, SegmentActive},
		{31, SegmentWarm},
		{60, SegmentWarm},
		{90, SegmentWarm},
		{91, SegmentChurnRisk},
		{365, SegmentChurnRisk},
	}

	for _, tt := range tests {
		if got := ClassifySegment(tt.days); got != tt.want {
			t.Errorf("ClassifySegment(%d) = %q, want %q", tt.days, got, tt.want)
		}
	}
}

func TestPhaseString(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{PhaseEmpty, "empty"},
		{PhaseStaged, "staged"},
		{PhaseReady, "ready"},
		{Phase(42), "phase(42)"},
	}

	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", int(tt.phase), got, tt.want)
		}
	}
}
