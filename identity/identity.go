// Package identity describes the investor and startup identities the engine
// reads from the profile subsystem. The engine never writes them.
package identity

import (
	"context"

	"github.com/xraph/fundraise/id"
)

// Investor is an investor profile attached to an authenticated user.
type Investor struct {
	ID     id.InvestorID `json:"id" yaml:"id"`
	UserID id.UserID     `json:"user_id" yaml:"user_id"`
	Name   string        `json:"name" yaml:"name"`
}

// Startup is a company whose projects raise funding.
type Startup struct {
	ID          id.StartupID `json:"id" yaml:"id"`
	OwnerUserID id.UserID    `json:"owner_user_id" yaml:"owner_user_id"`
	Name        string       `json:"name" yaml:"name"`
}

// Directory is the profile subsystem's read port.
type Directory interface {
	GetInvestor(ctx context.Context, investorID id.InvestorID) (*Investor, error)
	InvestorByUser(ctx context.Context, userID id.UserID) (*Investor, error)
	GetStartup(ctx context.Context, startupID id.StartupID) (*Startup, error)
}

// OwnsStartup reports whether the investor's user owns the startup.
func (i *Investor) OwnsStartup(s *Startup) bool {
	if i == nil || s == nil || i.UserID.IsNil() {
		return false
	}
	return i.UserID.Equal(s.OwnerUserID)
}
