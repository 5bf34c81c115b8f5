// internal/controller/campaign_controller.go
package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
	"github.com/unclebandit/crowdfund-backend/internal/handler"
	"github.com/unclebandit/crowdfund-backend/internal/logging"
	"github.com/unclebandit/crowdfund-backend/internal/service"
)

// CallerHeader carries the address of the account signing a request.
const CallerHeader = "X-Caller-Address"

type callerKey struct{}

// RequireCaller rejects requests without a caller address and stores it in the context.
func RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := strings.TrimSpace(r.Header.Get(CallerHeader))
		if caller == "" {
			handler.WriteJSON(w, http.StatusUnauthorized, handler.ErrorResponse{
				Error:   string(appErrors.CodeUnauthorized),
				Message: "missing " + CallerHeader + " header",
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, caller)))
	})
}

// Caller returns the address stored by RequireCaller.
func Caller(ctx context.Context) string {
	caller, _ := ctx.Value(callerKey{}).(string)
	return caller
}

// CampaignController serves the ledger's mutating endpoints.
type CampaignController struct {
	CampaignService *service.CampaignService
	Logger          *logging.Logger
}

func NewCampaignController(svc *service.CampaignService, logger *logging.Logger) *CampaignController {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &CampaignController{CampaignService: svc, Logger: logger.WithComponent("http")}
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return appErrors.InvalidInput("invalid body: %v", err)
	}
	return nil
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Goal        int64  `json:"goal"`
		Duration    int64  `json:"duration"`
	}
	if err := decode(r, &body); err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	campaign, err := c.CampaignService.CreateCampaign(r.Context(), Caller(r.Context()), body.Title, body.Description, body.Goal, body.Duration)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	handler.WriteJSON(w, http.StatusCreated, campaign)
}

func (c *CampaignController) Pledge(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Amount int64 `json:"amount"`
	}
	if err := decode(r, &body); err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	campaign, err := c.CampaignService.Pledge(r.Context(), chi.URLParam(r, "address"), Caller(r.Context()), body.Amount)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, campaign)
}

func (c *CampaignController) CancelCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := c.CampaignService.CancelCampaign(r.Context(), chi.URLParam(r, "address"), Caller(r.Context()))
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, campaign)
}

func (c *CampaignController) EndCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := c.CampaignService.EndCampaign(r.Context(), chi.URLParam(r, "address"), Caller(r.Context()))
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, campaign)
}

func (c *CampaignController) WithdrawFunds(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	amount, err := c.CampaignService.WithdrawFunds(r.Context(), address, Caller(r.Context()))
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, map[string]any{
		"campaign": address,
		"amount":   amount,
	})
}

func (c *CampaignController) Transfer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		To       string `json:"to"`
		Lamports int64  `json:"lamports"`
	}
	if err := decode(r, &body); err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	from := Caller(r.Context())
	if err := c.CampaignService.Transfer(r.Context(), from, body.To, body.Lamports); err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, map[string]any{
		"from":     from,
		"to":       body.To,
		"lamports": body.Lamports,
	})
}

// Airdrop funds an account from nothing. Only routed when the faucet is enabled.
func (c *CampaignController) Airdrop(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Lamports int64 `json:"lamports"`
	}
	if err := decode(r, &body); err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	account, err := c.CampaignService.Airdrop(r.Context(), chi.URLParam(r, "address"), body.Lamports)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, account)
}
