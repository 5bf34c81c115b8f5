package controller_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/crowdfund-backend/internal/controller"
	"github.com/unclebandit/crowdfund-backend/internal/db"
	"github.com/unclebandit/crowdfund-backend/internal/db/dbtest"
	"github.com/unclebandit/crowdfund-backend/internal/handler"
	"github.com/unclebandit/crowdfund-backend/internal/model"
	"github.com/unclebandit/crowdfund-backend/internal/rent"
	"github.com/unclebandit/crowdfund-backend/internal/repository"
	"github.com/unclebandit/crowdfund-backend/internal/service"
)

const (
	creator = "creator-wallet"
	backer  = "backer-wallet"
)

type api struct {
	t      *testing.T
	router http.Handler
}

func newAPI(t *testing.T, faucet bool) *api {
	t.Helper()
	store := repository.NewStore(dbtest.Open(t), db.SQLite)
	svc := service.NewCampaignService(store, nil, rent.Default(), nil)
	svc.Clock = func() time.Time { return time.Unix(1_700_000_000, 0) }
	svc.FaucetMaxLamports = 1_000_000_000

	router := controller.NewRouter(
		controller.NewCampaignController(svc, nil),
		handler.NewCampaignHandler(svc, nil),
		controller.RouterOptions{
			FaucetEnabled: faucet,
			Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}),
		},
	)
	return &api{t: t, router: router}
}

func (a *api) do(method, path, caller string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if caller != "" {
		req.Header.Set(controller.CallerHeader, caller)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func (a *api) airdrop(address string, lamports int64) {
	a.t.Helper()
	w := a.do(http.MethodPost, "/accounts/"+address+"/airdrop", "", map[string]any{"lamports": lamports})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
}

func (a *api) createCampaign(goal int64) *model.Campaign {
	a.t.Helper()
	w := a.do(http.MethodPost, "/campaigns", creator, map[string]any{
		"title":       "Solar Roof",
		"description": "Panels for the library",
		"goal":        goal,
		"duration":    3600,
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	c := decodeBody[model.Campaign](a.t, w)
	return &c
}

func TestCampaignLifecycle(t *testing.T) {
	a := newAPI(t, true)
	a.airdrop(creator, 10_000_000)
	a.airdrop(backer, 5_000)
	c := a.createCampaign(1000)
	assert.Equal(t, model.CampaignAddress(creator, "Solar Roof"), c.Address)

	w := a.do(http.MethodPost, "/campaigns/"+c.Address+"/pledges", backer, map[string]any{"amount": 600})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = a.do(http.MethodPost, "/campaigns/"+c.Address+"/pledges", backer, map[string]any{"amount": 500})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeBody[model.Campaign](t, w)
	assert.Equal(t, int64(1100), updated.Raised)
	assert.False(t, updated.Active)

	w = a.do(http.MethodPost, "/campaigns/"+c.Address+"/pledges", backer, map[string]any{"amount": 1})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CampaignNotActive", decodeBody[handler.ErrorResponse](t, w).Error)

	w = a.do(http.MethodGet, "/campaigns/"+c.Address, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	details := decodeBody[service.CampaignDetails](t, w)
	assert.Equal(t, int64(1100), details.Withdrawable)
	assert.Equal(t, int64(2), details.Stats.Pledges)

	w = a.do(http.MethodPost, "/campaigns/"+c.Address+"/withdraw", backer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodPost, "/campaigns/"+c.Address+"/withdraw", creator, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(1100), decodeBody[map[string]any](t, w)["amount"])

	w = a.do(http.MethodPost, "/campaigns/"+c.Address+"/withdraw", creator, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "FundsAlreadyWithdrawn", decodeBody[handler.ErrorResponse](t, w).Error)

	w = a.do(http.MethodGet, "/campaigns/"+c.Address+"/events", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	events := decodeBody[struct {
		Data []model.Event `json:"data"`
	}](t, w)
	require.Len(t, events.Data, 4)
	assert.Equal(t, model.EventWithdraw, events.Data[3].Kind)

	w = a.do(http.MethodGet, "/accounts/"+backer+"/pledges", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	pledges := decodeBody[struct {
		Data []model.Pledge `json:"data"`
	}](t, w)
	assert.Len(t, pledges.Data, 2)

	w = a.do(http.MethodGet, "/accounts/"+backer, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(3900), decodeBody[model.Account](t, w).Lamports)
}

func TestErrorStatuses(t *testing.T) {
	a := newAPI(t, true)
	a.airdrop(creator, 10_000_000)
	c := a.createCampaign(1000)

	tests := []struct {
		name   string
		method string
		path   string
		caller string
		body   any
		status int
		code   string
	}{
		{"missing caller", http.MethodPost, "/campaigns/" + c.Address + "/cancel", "", nil, http.StatusUnauthorized, "Unauthorized"},
		{"not creator", http.MethodPost, "/campaigns/" + c.Address + "/cancel", backer, nil, http.StatusForbidden, "Unauthorized"},
		{"unknown campaign", http.MethodGet, "/campaigns/missing", "", nil, http.StatusNotFound, "CampaignNotFound"},
		{"duplicate", http.MethodPost, "/campaigns", creator, map[string]any{"title": "Solar Roof", "description": "d", "goal": 1, "duration": 1}, http.StatusConflict, "CampaignAlreadyExists"},
		{"invalid goal", http.MethodPost, "/campaigns", creator, map[string]any{"title": "t", "description": "d", "goal": 0, "duration": 1}, http.StatusBadRequest, "InvalidInput"},
		{"unknown field", http.MethodPost, "/campaigns", creator, map[string]any{"name": "t"}, http.StatusBadRequest, "InvalidInput"},
		{"insufficient funds", http.MethodPost, "/campaigns/" + c.Address + "/pledges", backer, map[string]any{"amount": 10}, http.StatusUnprocessableEntity, "InsufficientFunds"},
		{"bad active filter", http.MethodGet, "/campaigns?active=maybe", "", nil, http.StatusBadRequest, "InvalidInput"},
		{"faucet cap", http.MethodPost, "/accounts/" + backer + "/airdrop", "", map[string]any{"lamports": 2_000_000_000}, http.StatusBadRequest, "InvalidInput"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.do(tt.method, tt.path, tt.caller, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decodeBody[handler.ErrorResponse](t, w).Error)
		})
	}
}

func TestListCampaignsEndpoint(t *testing.T) {
	a := newAPI(t, true)
	a.airdrop(creator, 10_000_000)
	c := a.createCampaign(1000)

	w := a.do(http.MethodPost, "/campaigns/"+c.Address+"/end", creator, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(http.MethodGet, "/campaigns?active=false&creator="+creator, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[struct {
		Data       []model.Campaign `json:"data"`
		Pagination map[string]int   `json:"pagination"`
	}](t, w)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, c.Address, resp.Data[0].Address)
	assert.Equal(t, 1, resp.Pagination["total_count"])

	w = a.do(http.MethodGet, "/campaigns?active=true", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decodeBody[struct {
		Pagination map[string]int `json:"pagination"`
	}](t, w).Pagination["total_count"])
}

func TestTransferEndpoint(t *testing.T) {
	a := newAPI(t, true)
	a.airdrop("alice", 1000)

	w := a.do(http.MethodPost, "/transfers", "alice", map[string]any{"to": "bob", "lamports": 250})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(http.MethodGet, "/accounts/bob", "", nil)
	assert.Equal(t, int64(250), decodeBody[model.Account](t, w).Lamports)
}

func TestFaucetDisabled(t *testing.T) {
	a := newAPI(t, false)

	w := a.do(http.MethodPost, "/accounts/alice/airdrop", "", map[string]any{"lamports": 10})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
