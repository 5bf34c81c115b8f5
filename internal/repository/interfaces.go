package repository

import (
	"context"

	"github.com/unclebandit/crowdfund-backend/internal/model"
)

// LedgerTx is the write side of the store, scoped to one transaction.
type LedgerTx interface {
	// Campaigns
	LockCampaign(ctx context.Context, address string) (*model.Campaign, error)
	InsertCampaign(ctx context.Context, c *model.Campaign) error
	UpdateCampaign(ctx context.Context, c *model.Campaign) error
	IsCampaign(ctx context.Context, address string) (bool, error)

	// Balances
	LockAccounts(ctx context.Context, addresses ...string) error
	Balance(ctx context.Context, address string) (int64, error)
	Transfer(ctx context.Context, from, to string, lamports int64) error
	Credit(ctx context.Context, address string, lamports int64) error

	// Records
	InsertPledge(ctx context.Context, p *model.Pledge) error
	InsertEvent(ctx context.Context, e *model.Event) error
}

type CampaignFilter struct {
	Creator string
	Active  *bool
}

type PledgeFilter struct {
	Campaign string
	Backer   string
	Limit    int
}

type CampaignStats struct {
	Pledges       int64         `json:"pledges"`
	TotalPledged  int64         `json:"total_pledged"`
	UniqueBackers int64         `json:"unique_backers"`
	DailyFunding  []DailyAmount `json:"daily_funding"`
}

type DailyAmount struct {
	Date   string `json:"date"`
	Amount int64  `json:"amount"`
}

// CampaignRepositoryInterface is everything the service needs from storage.
type CampaignRepositoryInterface interface {
	WithTx(ctx context.Context, fn func(tx LedgerTx) error) error

	GetCampaign(ctx context.Context, address string) (*model.Campaign, error)
	ListCampaigns(ctx context.Context, offset, limit int, filter CampaignFilter) ([]*model.Campaign, int, error)
	GetAccount(ctx context.Context, address string) (*model.Account, error)
	ListPledges(ctx context.Context, filter PledgeFilter) ([]*model.Pledge, error)
	GetCampaignStats(ctx context.Context, address string) (*CampaignStats, error)
	ListEvents(ctx context.Context, campaign string) ([]*model.Event, error)
}

// EventRepositoryInterface is what the outbox relay needs.
type EventRepositoryInterface interface {
	GetEventByID(ctx context.Context, id string) (*model.Event, error)
	ListPendingEvents(ctx context.Context, limit, maxRetries int) ([]*model.Event, error)
	UpdateEventStatus(ctx context.Context, id, status, lastError string) error
}

var (
	_ CampaignRepositoryInterface = (*Store)(nil)
	_ EventRepositoryInterface    = (*Store)(nil)
	_ LedgerTx                    = (*Tx)(nil)
)
