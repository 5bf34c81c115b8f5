package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
	"github.com/unclebandit/crowdfund-backend/internal/logging"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StatusFor maps a ledger error code onto an HTTP status.
func StatusFor(code appErrors.Code) int {
	switch code {
	case appErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case appErrors.CodeUnauthorized:
		return http.StatusForbidden
	case appErrors.CodeCampaignNotFound:
		return http.StatusNotFound
	case appErrors.CodeCampaignNotActive, appErrors.CodeFundsAlreadyWithdrawn, appErrors.CodeCampaignAlreadyExists:
		return http.StatusConflict
	case appErrors.CodeInsufficientFunds:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError renders err as an ErrorResponse. Infrastructure errors are logged
// and reported without detail.
func WriteError(w http.ResponseWriter, logger *logging.Logger, err error) {
	code := appErrors.CodeOf(err)
	if code == "" {
		if logger != nil {
			logger.Error("❌ request failed", logging.Err(err))
		}
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal", Message: "internal error"})
		return
	}
	WriteJSON(w, StatusFor(code), ErrorResponse{Error: string(code), Message: err.Error()})
}

// queryInt reads an integer query parameter, falling back to def when it is
// missing or malformed.
func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}
