package project

import (
	"testing"

	"github.com/xraph/fundraise/types"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name      string
		goal      string
		current   string
		remaining string
		status    Status
	}{
		{"empty", "1000", "0", "1000.00", StatusPartiallyFunded},
		{"partial", "1000", "200", "800.00", StatusPartiallyFunded},
		{"one cent left", "1000", "999.99", "0.01", StatusPartiallyFunded},
		{"full", "1000", "1000", "0.00", StatusFullyFunded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Project{
				FundingGoal:    types.MustParseMoney(tt.goal),
				CurrentFunding: types.MustParseMoney(tt.current),
			}
			if got := p.Remaining().FormatMajor(); got != tt.remaining {
				t.Errorf("Remaining: got %s, want %s", got, tt.remaining)
			}
			if got := p.Status(); got != tt.status {
				t.Errorf("Status: got %q, want %q", got, tt.status)
			}
		})
	}
}
