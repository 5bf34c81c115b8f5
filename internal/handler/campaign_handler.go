// internal/handler/campaign_handler.go
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
	"github.com/unclebandit/crowdfund-backend/internal/logging"
	"github.com/unclebandit/crowdfund-backend/internal/repository"
	"github.com/unclebandit/crowdfund-backend/internal/service"
)

// CampaignHandler serves the read side of the ledger
type CampaignHandler struct {
	Service *service.CampaignService
	Logger  *logging.Logger
}

func NewCampaignHandler(svc *service.CampaignService, logger *logging.Logger) *CampaignHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &CampaignHandler{Service: svc, Logger: logger.WithComponent("http")}
}

// ListCampaignsHandler returns a paginated list of campaigns
func (h *CampaignHandler) ListCampaignsHandler(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)

	filter := repository.CampaignFilter{Creator: r.URL.Query().Get("creator")}
	if raw := r.URL.Query().Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			WriteError(w, h.Logger, appErrors.InvalidInput("active must be true or false"))
			return
		}
		filter.Active = &active
	}

	campaigns, pagination, err := h.Service.ListCampaigns(r.Context(), page, pageSize, filter)
	if err != nil {
		WriteError(w, h.Logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"data":       campaigns,
		"pagination": pagination,
	})
}

// GetCampaignHandlerWithStats returns a campaign with its balance and pledge stats
func (h *CampaignHandler) GetCampaignHandlerWithStats(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	details, err := h.Service.GetCampaignDetailsWithStats(r.Context(), address)
	if err != nil {
		WriteError(w, h.Logger, err)
		return
	}

	h.Logger.Debug("📥 campaign details served", logging.Campaign(address))
	WriteJSON(w, http.StatusOK, details)
}

func (h *CampaignHandler) ListCampaignPledgesHandler(w http.ResponseWriter, r *http.Request) {
	pledges, err := h.Service.ListCampaignPledges(r.Context(), chi.URLParam(r, "address"), queryInt(r, "limit", 0))
	if err != nil {
		WriteError(w, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"data": pledges})
}

func (h *CampaignHandler) ListCampaignEventsHandler(w http.ResponseWriter, r *http.Request) {
	events, err := h.Service.ListEvents(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		WriteError(w, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"data": events})
}

func (h *CampaignHandler) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	account, err := h.Service.GetAccount(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		WriteError(w, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, account)
}

func (h *CampaignHandler) ListAccountPledgesHandler(w http.ResponseWriter, r *http.Request) {
	pledges, err := h.Service.ListBackerPledges(r.Context(), chi.URLParam(r, "address"), queryInt(r, "limit", 0))
	if err != nil {
		WriteError(w, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"data": pledges})
}
