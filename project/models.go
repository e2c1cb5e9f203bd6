// Package project defines the funding-round aggregate the engine guards.
package project

import (
	"github.com/xraph/fundraise/id"
	"github.com/xraph/fundraise/types"
)

// Status is the funding state reported alongside every accepted subscription.
type Status string

const (
	StatusPartiallyFunded Status = "Partially funded"
	StatusFullyFunded     Status = "Fully funded"
)

// Project is a startup's investment round.
//
// CurrentFunding is a cached running total. The authoritative value is the
// sum of the project's live subscription amounts; the engine rewrites the
// cache to that sum inside every write transaction.
type Project struct {
	types.Entity
	ID             id.ProjectID `json:"id"`
	StartupID      id.StartupID `json:"startup_id"`
	Name           string       `json:"name"`
	FundingGoal    types.Money  `json:"funding_goal"`
	CurrentFunding types.Money  `json:"current_funding"`
}

// Remaining returns FundingGoal - CurrentFunding. It may be zero but a
// committed project never yields a negative value.
func (p *Project) Remaining() types.Money {
	return p.FundingGoal.Subtract(p.CurrentFunding)
}

// Status reports whether the round still accepts capital.
func (p *Project) Status() Status {
	if p.Remaining() <= 0 {
		return StatusFullyFunded
	}
	return StatusPartiallyFunded
}
