package fundraise

import (
	"context"
	"errors"

	"github.com/xraph/fundraise/id"
	"github.com/xraph/fundraise/store"
)

// withProjectLock runs fn inside the store's locked project transaction.
// Caller-fixable errors pass through unchanged. Integrity and database
// failures are logged and replaced with ErrTransactionFailed.
func (e *Engine) withProjectLock(ctx context.Context, op string, projectID id.ProjectID, fn store.TxFunc) error {
	err := e.store.InProjectTx(ctx, projectID, fn)
	if err == nil || isCallerError(err) {
		return err
	}

	if errors.Is(err, ErrIntegrity) {
		e.logger.Error("integrity violation under project lock",
			"op", op,
			"project_id", projectID.String(),
			"error", err,
		)
	} else {
		e.logger.Error("project transaction failed",
			"op", op,
			"project_id", projectID.String(),
			"error", err,
		)
	}

	return ErrTransactionFailed
}
