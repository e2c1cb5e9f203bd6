package project

import (
	"context"

	"github.com/xraph/fundraise/id"
)

// Store is the read/seed side of project persistence. Writes to
// CurrentFunding happen only through store.Tx.
type Store interface {
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, projectID id.ProjectID) (*Project, error)
}
