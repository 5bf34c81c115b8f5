package appErrors

import (
    "errors"
    "fmt"
)

// Code identifies a ledger failure. Values match the error names clients see.
type Code string

const (
    CodeInvalidInput          Code = "InvalidInput"
    CodeCampaignNotActive     Code = "CampaignNotActive"
    CodeUnauthorized          Code = "Unauthorized"
    CodeFundsAlreadyWithdrawn Code = "FundsAlreadyWithdrawn"
    CodeInsufficientFunds     Code = "InsufficientFunds"
    CodeCampaignAlreadyExists Code = "CampaignAlreadyExists"
    CodeCampaignNotFound      Code = "CampaignNotFound"
)

// LedgerError aborts a ledger operation before anything is mutated.
type LedgerError struct {
    Code    Code
    Message string
    Detail  string
}

func (e *LedgerError) Error() string {
    if e.Detail == "" {
        return e.Message
    }
    return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// Is matches any LedgerError carrying the same code, so errors.Is works
// against the sentinels below regardless of Detail.
func (e *LedgerError) Is(target error) bool {
    t, ok := target.(*LedgerError)
    return ok && t.Code == e.Code
}

var (
    ErrCampaignNotActive     = &LedgerError{Code: CodeCampaignNotActive, Message: "Campaign is not active, canceled, or has ended"}
    ErrUnauthorized          = &LedgerError{Code: CodeUnauthorized, Message: "Unauthorized: Only the creator can perform this action"}
    ErrInvalidInput          = &LedgerError{Code: CodeInvalidInput, Message: "Invalid input parameters"}
    ErrFundsAlreadyWithdrawn = &LedgerError{Code: CodeFundsAlreadyWithdrawn, Message: "Funds have already been withdrawn"}
    ErrInsufficientFunds     = &LedgerError{Code: CodeInsufficientFunds, Message: "Insufficient funds for operation"}
    ErrCampaignAlreadyExists = &LedgerError{Code: CodeCampaignAlreadyExists, Message: "Campaign account already in use"}
)

func withDetail(base *LedgerError, format string, args ...any) error {
    return &LedgerError{Code: base.Code, Message: base.Message, Detail: fmt.Sprintf(format, args...)}
}

func InvalidInput(format string, args ...any) error {
    return withDetail(ErrInvalidInput, format, args...)
}

func InsufficientFunds(format string, args ...any) error {
    return withDetail(ErrInsufficientFunds, format, args...)
}

// ErrCampaignNotFound is returned when no campaign lives at an address
type ErrCampaignNotFound struct {
    Address string
}

func (e *ErrCampaignNotFound) Error() string {
    return fmt.Sprintf("campaign %s not found", e.Address)
}

// Helper constructor
func NewCampaignNotFound(address string) error {
    return &ErrCampaignNotFound{Address: address}
}

// CodeOf reports the ledger code carried by err, or "" for infrastructure errors.
func CodeOf(err error) Code {
    var le *LedgerError
    if errors.As(err, &le) {
        return le.Code
    }
    var nf *ErrCampaignNotFound
    if errors.As(err, &nf) {
        return CodeCampaignNotFound
    }
    return ""
}
