package api

import (
	"context"
	"net/http"

	"github.com/xraph/fundraise"
	"github.com/xraph/fundraise/id"
	"github.com/xraph/fundraise/identity"
)

// UserHeader carries the authenticated user's ID. Authentication itself
// happens upstream of this handler.
const UserHeader = "X-User-ID"

type investorKey struct{}

// WithInvestor returns a context carrying the calling investor.
func WithInvestor(ctx context.Context, inv *identity.Investor) context.Context {
	return context.WithValue(ctx, investorKey{}, inv)
}

// InvestorFrom returns the calling investor, if any.
func InvestorFrom(ctx context.Context) (*identity.Investor, bool) {
	inv, ok := ctx.Value(investorKey{}).(*identity.Investor)
	return inv, ok && inv != nil
}

// requireInvestor resolves the caller to an investor profile or answers 403.
func (h *Handler) requireInvestor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := id.ParseUserID(r.Header.Get(UserHeader))
		if err != nil {
			h.writeError(w, r, fundraise.ErrUnauthorized)
			return
		}
		inv, err := h.engine.ResolveInvestor(r.Context(), userID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithInvestor(r.Context(), inv)))
	})
}
