// Package seed loads investors, startups and projects from a YAML fixture.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xraph/fundraise"
	"github.com/xraph/fundraise/id"
	"github.com/xraph/fundraise/identity"
	identitymem "github.com/xraph/fundraise/identity/memory"
	"github.com/xraph/fundraise/project"
	"github.com/xraph/fundraise/types"
)

// Fixture is the on-disk seed document.
type Fixture struct {
	Investors []Investor `yaml:"investors"`
	Startups  []Startup  `yaml:"startups"`
	Projects  []Project  `yaml:"projects"`
}

// Investor is one investor profile.
type Investor struct {
	ID     string `yaml:"id"`
	UserID string `yaml:"user_id"`
	Name   string `yaml:"name"`
}

// Startup is one startup and its owning user.
type Startup struct {
	ID          string `yaml:"id"`
	OwnerUserID string `yaml:"owner_user_id"`
	Name        string `yaml:"name"`
}

// Project is one funding round. FundingGoal is a decimal literal such as
// "1000.00".
type Project struct {
	ID          string `yaml:"id"`
	StartupID   string `yaml:"startup_id"`
	Name        string `yaml:"name"`
	FundingGoal string `yaml:"funding_goal"`
}

// Load reads and parses a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes a fixture, rejecting unknown fields.
func Parse(r io.Reader) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return &f, nil
}

// Apply writes the fixture's profiles into dir and registers its projects
// with the engine. Projects that already exist are left untouched, so the
// same fixture can be applied to a persistent store on every boot.
func (f *Fixture) Apply(ctx context.Context, dir *identitymem.Directory, engine *fundraise.Engine) (int, error) {
	for i, in := range f.Investors {
		inv, err := in.decode()
		if err != nil {
			return 0, fmt.Errorf("investors[%d]: %w", i, err)
		}
		dir.PutInvestor(inv)
	}

	for i, in := range f.Startups {
		s, err := in.decode()
		if err != nil {
			return 0, fmt.Errorf("startups[%d]: %w", i, err)
		}
		dir.PutStartup(s)
	}

	registered := 0
	for i, in := range f.Projects {
		p, err := in.decode()
		if err != nil {
			return registered, fmt.Errorf("projects[%d]: %w", i, err)
		}
		err = engine.RegisterProject(ctx, p)
		if errors.Is(err, fundraise.ErrProjectExists) {
			continue
		}
		if err != nil {
			return registered, fmt.Errorf("projects[%d]: %w", i, err)
		}
		registered++
	}

	return registered, nil
}

func (in Investor) decode() (*identity.Investor, error) {
	investorID, err := id.ParseInvestorID(in.ID)
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	userID, err := id.ParseUserID(in.UserID)
	if err != nil {
		return nil, fmt.Errorf("user_id: %w", err)
	}
	return &identity.Investor{ID: investorID, UserID: userID, Name: in.Name}, nil
}

func (in Startup) decode() (*identity.Startup, error) {
	startupID, err := id.ParseStartupID(in.ID)
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	ownerID, err := id.ParseUserID(in.OwnerUserID)
	if err != nil {
		return nil, fmt.Errorf("owner_user_id: %w", err)
	}
	return &identity.Startup{ID: startupID, OwnerUserID: ownerID, Name: in.Name}, nil
}

func (in Project) decode() (*project.Project, error) {
	p := &project.Project{Name: in.Name}

	if in.ID != "" {
		projectID, err := id.ParseProjectID(in.ID)
		if err != nil {
			return nil, fmt.Errorf("id: %w", err)
		}
		p.ID = projectID
	}

	startupID, err := id.ParseStartupID(in.StartupID)
	if err != nil {
		return nil, fmt.Errorf("startup_id: %w", err)
	}
	p.StartupID = startupID

	goal, err := types.ParseMoney(in.FundingGoal)
	if err != nil {
		return nil, fmt.Errorf("funding_goal: %w", err)
	}
	p.FundingGoal = goal

	return p, nil
}
