package mongo

import (
	"fmt"
	"time"

	"github.com/xraph/fundraise/id"
	"github.com/xraph/fundraise/project"
	"github.com/xraph/fundraise/subscription"
	"github.com/xraph/fundraise/types"
)

// ==================== Project models ====================

type projectModel struct {
	ID             string    `bson:"_id"`
	StartupID      string    `bson:"startup_id"`
	Name           string    `bson:"name"`
	FundingGoal    int64     `bson:"funding_goal"`
	CurrentFunding int64     `bson:"current_funding"`
	LockVersion    int64     `bson:"lock_version"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

func toProjectModel(p *project.Project) *projectModel {
	return &projectModel{
		ID:             p.ID.String(),
		StartupID:      p.StartupID.String(),
		Name:           p.Name,
		FundingGoal:    p.FundingGoal.Cents(),
		CurrentFunding: p.CurrentFunding.Cents(),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
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
		Entity:         types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:             projectID,
		StartupID:      startupID,
		Name:           m.Name,
		FundingGoal:    types.Cents(m.FundingGoal),
		CurrentFunding: types.Cents(m.CurrentFunding),
	}, nil
}

// ==================== Subscription models ====================

type subscriptionModel struct {
	ID              string    `bson:"_id"`
	InvestorID      string    `bson:"investor_id"`
	ProjectID       string    `bson:"project_id"`
	Amount          int64     `bson:"amount"`
	InvestmentShare int64     `bson:"investment_share"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

func toSubscriptionModel(s *subscription.Subscription) *subscriptionModel {
	return &subscriptionModel{
		ID:              s.ID.String(),
		InvestorID:      s.InvestorID.String(),
		ProjectID:       s.ProjectID.String(),
		Amount:          s.Amount.Cents(),
		InvestmentShare: s.InvestmentShare.Hundredths(),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
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
		Entity:          types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:              subID,
		InvestorID:      investorID,
		ProjectID:       projectID,
		Amount:          types.Cents(m.Amount),
		InvestmentShare: types.Percent(m.InvestmentShare),
	}, nil
}

func fromSubscriptionModels(models []subscriptionModel) ([]*subscription.Subscription, error) {
	result := make([]*subscription.Subscription, len(models))
	for i := range models {
		s, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = s
	}
	return result, nil
}
