// Package memory provides an in-process identity.Directory.
package memory

import (
	"context"
	"sync"

	"github.com/xraph/fundraise"
	"github.com/xraph/fundraise/id"
	"github.com/xraph/fundraise/identity"
)

var _ identity.Directory = (*Directory)(nil)

type Directory struct {
	mu        sync.RWMutex
	investors map[string]*identity.Investor
	byUser    map[string]*identity.Investor
	startups  map[string]*identity.Startup
}

func New() *Directory {
	return &Directory{
		investors: make(map[string]*identity.Investor),
		byUser:    make(map[string]*identity.Investor),
		startups:  make(map[string]*identity.Startup),
	}
}

// PutInvestor adds or replaces an investor profile.
func (d *Directory) PutInvestor(inv *identity.Investor) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.investors[inv.ID.String()] = inv
	if !inv.UserID.IsNil() {
		d.byUser[inv.UserID.String()] = inv
	}
}

// PutStartup adds or replaces a startup profile.
func (d *Directory) PutStartup(s *identity.Startup) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.startups[s.ID.String()] = s
}

func (d *Directory) GetInvestor(_ context.Context, investorID id.InvestorID) (*identity.Investor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if inv, ok := d.investors[investorID.String()]; ok {
		return inv, nil
	}
	return nil, fundraise.ErrInvestorNotFound
}

func (d *Directory) InvestorByUser(_ context.Context, userID id.UserID) (*identity.Investor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if inv, ok := d.byUser[userID.String()]; ok {
		return inv, nil
	}
	return nil, fundraise.ErrInvestorNotFound
}

func (d *Directory) GetStartup(_ context.Context, startupID id.StartupID) (*identity.Startup, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if s, ok := d.startups[startupID.String()]; ok {
		return s, nil
	}
	return nil, fundraise.ErrStartupNotFound
}
