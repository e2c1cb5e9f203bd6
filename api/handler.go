// Package api exposes the engine over HTTP with chi.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/xraph/fundraise"
	"github.com/xraph/fundraise/id"
	"github.com/xraph/fundraise/project"
	"github.com/xraph/fundraise/subscription"
	"github.com/xraph/fundraise/types"
)

const (
	// maxBody bounds request bodies.
	maxBody = 1 << 16

	// maxListLimit caps the page size of list endpoints.
	maxListLimit = 100
)

// Handler serves the subscription API.
type Handler struct {
	engine  *fundraise.Engine
	logger  *slog.Logger
	metrics http.Handler
	admin   bool
	router  http.Handler
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithMetrics serves m on GET /metrics.
func WithMetrics(m http.Handler) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithAdminRoutes mounts POST /projects/{projectID}/reconcile.
func WithAdminRoutes() Option {
	return func(h *Handler) { h.admin = true }
}

// NewHandler creates a Handler over engine.
func NewHandler(engine *fundraise.Engine, opts ...Option) *Handler {
	h := &Handler{
		engine: engine,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.router = h.buildRouter()
	return h
}

// Routes returns the router.
func (h *Handler) Routes() http.Handler { return h.router }

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(h.requireInvestor)
		r.Post("/projects/{projectID}/subscriptions", h.subscribe)
		r.Get("/projects/{projectID}", h.getProject)
		r.Get("/projects/{projectID}/subscriptions", h.listSubscriptions)
		r.Get("/subscriptions/{subscriptionID}", h.getSubscription)
		r.Patch("/subscriptions/{subscriptionID}", h.updateSubscription)
	})

	if h.admin {
		r.Post("/projects/{projectID}/reconcile", h.reconcile)
	}

	return r
}

// ──────────────────────────────────────────────────
// Requests and responses
// ──────────────────────────────────────────────────

type subscribeRequest struct {
	Amount json.RawMessage `json:"amount"`
}

type updateRequest struct {
	Amount   json.RawMessage `json:"amount"`
	Investor *string         `json:"investor"`
	Project  *string         `json:"project"`
}

type projectResponse struct {
	*project.Project
	RemainingFunding types.Money    `json:"remaining_funding"`
	ProjectStatus    project.Status `json:"project_status"`
}

// ──────────────────────────────────────────────────
// Handlers
// ──────────────────────────────────────────────────

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Store().Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) {
	projectID, err := id.ParseProjectID(chi.URLParam(r, "projectID"))
	if err != nil {
		h.writeError(w, r, fundraise.ErrProjectNotFound)
		return
	}

	var req subscribeRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	inv, _ := InvestorFrom(r.Context())
	res, err := h.engine.Subscribe(r.Context(), fundraise.SubscribeInput{
		InvestorID: inv.ID,
		ProjectID:  projectID,
		Amount:     amount,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) updateSubscription(w http.ResponseWriter, r *http.Request) {
	subID, err := id.ParseSubscriptionID(chi.URLParam(r, "subscriptionID"))
	if err != nil {
		h.writeError(w, r, fundraise.ErrSubscriptionNotFound)
		return
	}

	var req updateRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	inv, _ := InvestorFrom(r.Context())
	in := fundraise.UpdateInput{
		SubscriptionID:   subID,
		Amount:           amount,
		ActingInvestorID: inv.ID,
	}
	if req.Investor != nil {
		investorID, err := id.ParseInvestorID(*req.Investor)
		if err != nil {
			h.writeError(w, r, &fundraise.ValidationError{Field: "investor", Message: "investor and project cannot be changed", Err: fundraise.ErrImmutableField})
			return
		}
		in.InvestorID = &investorID
	}
	if req.Project != nil {
		projectID, err := id.ParseProjectID(*req.Project)
		if err != nil {
			h.writeError(w, r, &fundraise.ValidationError{Field: "project", Message: "investor and project cannot be changed", Err: fundraise.ErrImmutableField})
			return
		}
		in.ProjectID = &projectID
	}

	sub, err := h.engine.UpdateSubscription(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) getSubscription(w http.ResponseWriter, r *http.Request) {
	subID, err := id.ParseSubscriptionID(chi.URLParam(r, "subscriptionID"))
	if err != nil {
		h.writeError(w, r, fundraise.ErrSubscriptionNotFound)
		return
	}
	sub, err := h.engine.GetSubscription(r.Context(), subID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if inv, _ := InvestorFrom(r.Context()); !inv.ID.Equal(sub.InvestorID) {
		h.writeError(w, r, fundraise.ErrSubscriptionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) getProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := id.ParseProjectID(chi.URLParam(r, "projectID"))
	if err != nil {
		h.writeError(w, r, fundraise.ErrProjectNotFound)
		return
	}
	p, err := h.engine.GetProject(r.Context(), projectID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projectResponse{
		Project:          p,
		RemainingFunding: p.Remaining(),
		ProjectStatus:    p.Status(),
	})
}

// listSubscriptions returns every subscription to the project when the
// caller owns it, and only the caller's own otherwise.
func (h *Handler) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	projectID, err := id.ParseProjectID(chi.URLParam(r, "projectID"))
	if err != nil {
		h.writeError(w, r, fundraise.ErrProjectNotFound)
		return
	}
	p, err := h.engine.GetProject(r.Context(), projectID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	inv, _ := InvestorFrom(r.Context())
	owner, err := h.engine.OwnsProject(r.Context(), inv, p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var subs []*subscription.Subscription
	if owner {
		subs, err = h.engine.ListSubscriptions(r.Context(), projectID, listOpts(r))
	} else {
		subs, err = h.ownSubscriptions(r, inv.ID, projectID)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if subs == nil {
		subs = []*subscription.Subscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

// ownSubscriptions returns the investor's subscriptions to one project.
func (h *Handler) ownSubscriptions(r *http.Request, investorID id.InvestorID, projectID id.ProjectID) ([]*subscription.Subscription, error) {
	all, err := h.engine.ListInvestorSubscriptions(r.Context(), investorID, subscription.ListOpts{})
	if err != nil {
		return nil, err
	}
	var own []*subscription.Subscription
	for _, sub := range all {
		if sub.ProjectID.Equal(projectID) {
			own = append(own, sub)
		}
	}
	start, end := listOpts(r).Window(len(own))
	return own[start:end], nil
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	projectID, err := id.ParseProjectID(chi.URLParam(r, "projectID"))
	if err != nil {
		h.writeError(w, r, fundraise.ErrProjectNotFound)
		return
	}
	report, err := h.engine.Reconcile(r.Context(), projectID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return &fundraise.ValidationError{Field: "non_field_errors", Message: "malformed request body", Err: fundraise.ErrInvalidInput}
	}
	return nil
}

func parseAmount(raw json.RawMessage) (types.Money, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, &fundraise.ValidationError{Field: "amount", Message: "this field is required", Err: fundraise.ErrMissingField}
	}
	var m types.Money
	if err := m.UnmarshalJSON(raw); err != nil {
		return 0, &fundraise.ValidationError{Field: "amount", Message: "a valid number with at most 2 decimal places is required", Err: fundraise.ErrMalformedAmount}
	}
	return m, nil
}

func listOpts(r *http.Request) subscription.ListOpts {
	opts := subscription.ListOpts{Limit: maxListLimit}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		opts.Limit = min(v, maxListLimit)
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		opts.Offset = v
	}
	return opts
}
