package sqlite

import (
	"fmt"
	"time"

	"github.com/xraph/fundraise/id"
	"github.com/xraph/fundraise/project"
	"github.com/xraph/fundraise/subscription"
	"github.com/xraph/fundraise/types"
)

const (
	projectColumns      = `id, startup_id, name, funding_goal, current_funding, created_at, updated_at`
	subscriptionColumns = `id, investor_id, project_id, amount, investment_share, created_at, updated_at`
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// ==================== Project models ====================

type projectModel struct {
	ID             string
	StartupID      string
	Name           string
	FundingGoal    int64
	CurrentFunding int64
	CreatedAt      int64
	UpdatedAt      int64
}

func toProjectModel(p *project.Project) *projectModel {
	return &projectModel{
		ID:             p.ID.String(),
		StartupID:      p.StartupID.String(),
		Name:           p.Name,
		FundingGoal:    p.FundingGoal.Cents(),
		CurrentFunding: p.CurrentFunding.Cents(),
		CreatedAt:      toMillis(p.CreatedAt),
		UpdatedAt:      toMillis(p.UpdatedAt),
	}
}

func scanProject(row scanner) (*project.Project, error) {
	var m projectModel
	if err := row.Scan(&m.ID, &m.StartupID, &m.Name, &m.FundingGoal, &m.CurrentFunding, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return fromProjectModel(&m)
}

func fromProjectModel(m *projectModel) (*project.Project, error) {
	projectID, err := id.ParseProjectID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse project id: %w", err)
	}
	startupID, err := id.ParseStartupID(m.StartupID)
	if err != nil {
		return nil, fmt.Errorf("parse startup id: %w", err)
	}
	return &project.Project{
		Entity: types.Entity{
			CreatedAt: fromMillis(m.CreatedAt),
			UpdatedAt: fromMillis(m.UpdatedAt),
		},
		ID:             projectID,
		StartupID:      startupID,
		Name:           m.Name,
		FundingGoal:    types.Cents(m.FundingGoal),
		CurrentFunding: types.Cents(m.CurrentFunding),
	}, nil
}

// ==================== Subscription models ====================

type subscriptionModel struct {
	ID              string
	InvestorID      string
	ProjectID       string
	Amount          int64
	InvestmentShare int64
	CreatedAt       int64
	UpdatedAt       int64
}

func toSubscriptionModel(s *subscription.Subscription) *subscriptionModel {
	return &subscriptionModel{
		ID:              s.ID.String(),
		InvestorID:      s.InvestorID.String(),
		ProjectID:       s.ProjectID.String(),
		Amount:          s.Amount.Cents(),
		InvestmentShare: s.InvestmentShare.Hundredths(),
		CreatedAt:       toMillis(s.CreatedAt),
		UpdatedAt:       toMillis(s.UpdatedAt),
	}
}

func scanSubscription(row scanner) (*subscription.Subscription, error) {
	var m subscriptionModel
	if err := row.Scan(&m.ID, &m.InvestorID, &m.ProjectID, &m.Amount, &m.InvestmentShare, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return fromSubscriptionModel(&m)
}

func fromSubscriptionModel(m *subscriptionModel) (*subscription.Subscription, error) {
	subID, err := id.ParseSubscriptionID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse subscription id: %w", err)
	}
	investorID, err := id.ParseInvestorID(m.InvestorID)
	if err != nil {
		return nil, fmt.Errorf("parse investor id: %w", err)
	}
	projectID, err := id.ParseProjectID(m.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("parse project id: %w", err)
	}
	return &subscription.Subscription{
		Entity: types.Entity{
			CreatedAt: fromMillis(m.CreatedAt),
			UpdatedAt: fromMillis(m.UpdatedAt),
		},
		ID:              subID,
		InvestorID:      investorID,
		ProjectID:       projectID,
		Amount:          types.Cents(m.Amount),
		InvestmentShare: types.Percent(m.InvestmentShare),
	}, nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}
