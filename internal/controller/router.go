package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/unclebandit/crowdfund-backend/internal/handler"
)

type RouterOptions struct {
	FaucetEnabled bool
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

// NewRouter wires the ledger's HTTP routes.
func NewRouter(ctrl *CampaignController, h *handler.CampaignHandler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	// Campaign routes
	r.Get("/campaigns", h.ListCampaignsHandler)
	r.Get("/campaigns/{address}", h.GetCampaignHandlerWithStats)
	r.Get("/campaigns/{address}/pledges", h.ListCampaignPledgesHandler)
	r.Get("/campaigns/{address}/events", h.ListCampaignEventsHandler)

	// Account routes
	r.Get("/accounts/{address}", h.GetAccountHandler)
	r.Get("/accounts/{address}/pledges", h.ListAccountPledgesHandler)
	if opts.FaucetEnabled {
		r.Post("/accounts/{address}/airdrop", ctrl.Airdrop)
	}

	r.Group(func(r chi.Router) {
		r.Use(RequireCaller)
		r.Post("/campaigns", ctrl.CreateCampaign)
		r.Post("/campaigns/{address}/pledges", ctrl.Pledge)
		r.Post("/campaigns/{address}/cancel", ctrl.CancelCampaign)
		r.Post("/campaigns/{address}/end", ctrl.EndCampaign)
		r.Post("/campaigns/{address}/withdraw", ctrl.WithdrawFunds)
		r.Post("/transfers", ctrl.Transfer)
	})

	return r
}
