// internal/service/campaign_service.go
package service

import (
	"context"
	"errors"
	"time"

	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
	"github.com/unclebandit/crowdfund-backend/internal/logging"
	"github.com/unclebandit/crowdfund-backend/internal/metrics"
	"github.com/unclebandit/crowdfund-backend/internal/model"
	"github.com/unclebandit/crowdfund-backend/internal/queue"
	"github.com/unclebandit/crowdfund-backend/internal/rent"
	"github.com/unclebandit/crowdfund-backend/internal/repository"

	"github.com/google/uuid"
)

// CampaignService applies ledger operations. Each one runs under the
// campaign's lock inside a single transaction; events are handed to the queue
// only after that transaction commits.
type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	Queue        queue.Queue
	Rent         rent.Rent
	Clock        func() time.Time
	Metrics      metrics.Metrics
	Logger       *logging.Logger

	// FaucetMaxLamports caps a single airdrop; zero means no cap.
	FaucetMaxLamports int64

	locks keyedMutex
}

func NewCampaignService(repo repository.CampaignRepositoryInterface, q queue.Queue, r rent.Rent, logger *logging.Logger) *CampaignService {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &CampaignService{
		CampaignRepo: repo,
		Queue:        q,
		Rent:         r,
		Clock:        time.Now,
		Metrics:      metrics.NewNopMetrics(),
		Logger:       logger.WithComponent("ledger"),
	}
}

// CampaignDetails is a campaign together with its held funds and pledge stats.
type CampaignDetails struct {
	model.Campaign
	Balance      int64                     `json:"balance"`
	ReserveFloor int64                     `json:"reserve_floor"`
	Withdrawable int64                     `json:"withdrawable"`
	Stats        *repository.CampaignStats `json:"stats"`
}

// txn is one operation's view of the ledger: the transaction, the clock
// reading shared by every check in it, and the events it emitted.
type txn struct {
	repository.LedgerTx
	now    time.Time
	events []*model.Event
}

func (t *txn) emit(ctx context.Context, kind model.EventKind, campaign string, payload any) error {
	e, err := model.NewEvent(kind, campaign, payload, t.now)
	if err != nil {
		return err
	}
	if err := t.InsertEvent(ctx, e); err != nil {
		return err
	}
	t.events = append(t.events, e)
	return nil
}

// requireWallet refuses campaign accounts as payers: value leaves a campaign
// only through WithdrawFunds.
func (t *txn) requireWallet(ctx context.Context, payer string) error {
	isCampaign, err := t.IsCampaign(ctx, payer)
	if err != nil {
		return err
	}
	if isCampaign {
		return appErrors.ErrUnauthorized
	}
	return nil
}

func (s *CampaignService) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock()
}

func (s *CampaignService) metrics() metrics.Metrics {
	if s.Metrics == nil {
		return metrics.NewNopMetrics()
	}
	return s.Metrics
}

func (s *CampaignService) logger() *logging.Logger {
	if s.Logger == nil {
		return logging.NewNopLogger()
	}
	return s.Logger
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if code := appErrors.CodeOf(err); code != "" {
		return string(code)
	}
	return "error"
}

// execute runs fn atomically under the lock for key.
func (s *CampaignService) execute(ctx context.Context, op, key string, fn func(t *txn) error) error {
	start := time.Now()
	unlock := s.locks.Lock(key)
	defer unlock()

	var committed []*model.Event
	err := s.CampaignRepo.WithTx(ctx, func(tx repository.LedgerTx) error {
		t := &txn{LedgerTx: tx, now: s.now()}
		if err := fn(t); err != nil {
			return err
		}
		committed = t.events
		return nil
	})
	s.metrics().ObserveOperation(op, resultLabel(err), time.Since(start))
	if err != nil {
		return err
	}

	s.notify(committed)
	return nil
}

// notify is fire-and-forget: events stay pending in the outbox for the
// worker if the queue refuses them.
func (s *CampaignService) notify(events []*model.Event) {
	if s.Queue == nil {
		return
	}
	for _, e := range events {
		if err := s.Queue.Publish(queue.TopicCampaignEvents, e.ID); err != nil {
			s.logger().Warn("⚠️ failed to enqueue event", logging.EventID(e.ID), logging.Err(err))
		}
	}
}

// ====================== Ledger operations ======================

// CreateCampaign opens a campaign at the address derived from (creator, title).
// The creator pays the reserve floor of the new account.
func (s *CampaignService) CreateCampaign(ctx context.Context, creator, title, description string, goal, duration int64) (*model.Campaign, error) {
	var created *model.Campaign
	address := model.CampaignAddress(creator, title)

	err := s.execute(ctx, "create_campaign", address, func(t *txn) error {
		c, err := model.NewCampaign(creator, title, description, goal, duration, t.now.Unix())
		if err != nil {
			return err
		}

		_, err = t.LockCampaign(ctx, c.Address)
		if err == nil {
			return appErrors.ErrCampaignAlreadyExists
		}
		var nf *appErrors.ErrCampaignNotFound
		if !errors.As(err, &nf) {
			return err
		}

		if err := t.requireWallet(ctx, creator); err != nil {
			return err
		}
		if err := t.LockAccounts(ctx, creator, c.Address); err != nil {
			return err
		}
		// value already sitting at the address counts toward the floor
		held, err := t.Balance(ctx, c.Address)
		if err != nil {
			return err
		}
		if owed := s.Rent.MinimumBalance(c.Space) - held; owed > 0 {
			if err := t.Transfer(ctx, creator, c.Address, owed); err != nil {
				return err
			}
		}

		if err := t.InsertCampaign(ctx, c); err != nil {
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger().Info("campaign created", logging.Campaign(created.Address), logging.Caller(creator),
		"goal", created.Goal, "ends_at", created.EndsAt)
	return created, nil
}

// Pledge moves amount from backer to the campaign and updates its totals.
// Reaching the goal closes the campaign in the same transaction.
func (s *CampaignService) Pledge(ctx context.Context, address, backer string, amount int64) (*model.Campaign, error) {
	var updated *model.Campaign

	err := s.execute(ctx, "pledge", address, func(t *txn) error {
		c, err := t.LockCampaign(ctx, address)
		if err != nil {
			return err
		}
		now := t.now.Unix()
		if err := c.CheckPledge(amount, now); err != nil {
			return err
		}
		if err := t.requireWallet(ctx, backer); err != nil {
			return err
		}
		if err := t.Transfer(ctx, backer, address, amount); err != nil {
			return err
		}

		goalReached, err := c.ApplyPledge(amount, now)
		if err != nil {
			return err
		}
		if err := t.UpdateCampaign(ctx, c); err != nil {
			return err
		}
		err = t.InsertPledge(ctx, &model.Pledge{
			ID:        uuid.NewString(),
			Campaign:  address,
			Backer:    backer,
			Amount:    amount,
			PledgedAt: now,
		})
		if err != nil {
			return err
		}

		if goalReached {
			err := t.emit(ctx, model.EventGoalReached, address, model.GoalReachedEvent{
				Campaign: address,
				Goal:     c.Goal,
				Raised:   c.Raised,
			})
			if err != nil {
				return err
			}
		}
		if err := t.emit(ctx, model.EventPledge, address, model.PledgeEvent{
			Campaign: address,
			Backer:   backer,
			Amount:   amount,
		}); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics().AddPledged(amount)
	s.logger().Info("pledge accepted", logging.Campaign(address), logging.Caller(backer), logging.Amount(amount),
		"raised", updated.Raised, "active", updated.Active)
	return updated, nil
}

// CancelCampaign stops the campaign for good and marks it canceled.
func (s *CampaignService) CancelCampaign(ctx context.Context, address, caller string) (*model.Campaign, error) {
	var updated *model.Campaign

	err := s.execute(ctx, "cancel_campaign", address, func(t *txn) error {
		c, err := t.LockCampaign(ctx, address)
		if err != nil {
			return err
		}
		if err := c.Cancel(caller); err != nil {
			return err
		}
		if err := t.UpdateCampaign(ctx, c); err != nil {
			return err
		}
		if err := t.emit(ctx, model.EventCancel, address, model.CancelEvent{Campaign: address}); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger().Info("campaign canceled", logging.Campaign(address), logging.Caller(caller))
	return updated, nil
}

// EndCampaign stops the campaign without canceling it.
func (s *CampaignService) EndCampaign(ctx context.Context, address, caller string) (*model.Campaign, error) {
	var updated *model.Campaign

	err := s.execute(ctx, "end_campaign", address, func(t *txn) error {
		c, err := t.LockCampaign(ctx, address)
		if err != nil {
			return err
		}
		if err := c.End(caller); err != nil {
			return err
		}
		if err := t.UpdateCampaign(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger().Info("campaign ended", logging.Campaign(address), logging.Caller(caller))
	return updated, nil
}

// WithdrawFunds pays the creator everything above the reserve floor. It is
// allowed at any point in the campaign's life, once.
func (s *CampaignService) WithdrawFunds(ctx context.Context, address, caller string) (int64, error) {
	var amount int64

	err := s.execute(ctx, "withdraw_funds", address, func(t *txn) error {
		c, err := t.LockCampaign(ctx, address)
		if err != nil {
			return err
		}
		if err := t.LockAccounts(ctx, address, c.Creator); err != nil {
			return err
		}
		held, err := t.Balance(ctx, address)
		if err != nil {
			return err
		}
		amount, err = c.Withdrawable(caller, held, s.Rent.MinimumBalance(c.Space))
		if err != nil {
			return err
		}
		if err := t.Transfer(ctx, address, c.Creator, amount); err != nil {
			return err
		}

		c.FundsWithdrawn = true
		if err := t.UpdateCampaign(ctx, c); err != nil {
			return err
		}
		return t.emit(ctx, model.EventWithdraw, address, model.WithdrawEvent{
			Campaign: address,
			Creator:  c.Creator,
			Amount:   amount,
		})
	})
	if err != nil {
		return 0, err
	}

	s.metrics().AddWithdrawn(amount)
	s.logger().Info("funds withdrawn", logging.Campaign(address), logging.Caller(caller), logging.Amount(amount))
	return amount, nil
}

// ====================== Accounts ======================

// Transfer sends lamports from a wallet to any account, campaign accounts included.
func (s *CampaignService) Transfer(ctx context.Context, from, to string, lamports int64) error {
	if from == "" || to == "" {
		return appErrors.InvalidInput("transfer needs a source and a destination")
	}
	if lamports <= 0 {
		return appErrors.InvalidInput("transfer amount must be positive")
	}
	return s.execute(ctx, "transfer", from, func(t *txn) error {
		if err := t.requireWallet(ctx, from); err != nil {
			return err
		}
		return t.Transfer(ctx, from, to, lamports)
	})
}

// Airdrop mints lamports into an account.
func (s *CampaignService) Airdrop(ctx context.Context, to string, lamports int64) (*model.Account, error) {
	if to == "" {
		return nil, appErrors.InvalidInput("airdrop needs a destination")
	}
	if lamports <= 0 {
		return nil, appErrors.InvalidInput("airdrop amount must be positive")
	}
	if s.FaucetMaxLamports > 0 && lamports > s.FaucetMaxLamports {
		return nil, appErrors.InvalidInput("airdrop exceeds %d lamports", s.FaucetMaxLamports)
	}

	var account *model.Account
	err := s.execute(ctx, "airdrop", to, func(t *txn) error {
		if err := t.Credit(ctx, to, lamports); err != nil {
			return err
		}
		balance, err := t.Balance(ctx, to)
		if err != nil {
			return err
		}
		account = &model.Account{Address: to, Lamports: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// ====================== Queries ======================

func (s *CampaignService) GetCampaign(ctx context.Context, address string) (*model.Campaign, error) {
	return s.CampaignRepo.GetCampaign(ctx, address)
}

func (s *CampaignService) GetAccount(ctx context.Context, address string) (*model.Account, error) {
	return s.CampaignRepo.GetAccount(ctx, address)
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(ctx context.Context, page, pageSize int, filter repository.CampaignFilter) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.ListCampaigns(ctx, offset, pageSize, filter)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}
	return campaigns, pagination, nil
}

func (s *CampaignService) GetCampaignDetailsWithStats(ctx context.Context, address string) (*CampaignDetails, error) {
	c, err := s.CampaignRepo.GetCampaign(ctx, address)
	if err != nil {
		return nil, err
	}
	account, err := s.CampaignRepo.GetAccount(ctx, address)
	if err != nil {
		return nil, err
	}
	stats, err := s.CampaignRepo.GetCampaignStats(ctx, address)
	if err != nil {
		return nil, err
	}

	floor := s.Rent.MinimumBalance(c.Space)
	withdrawable := int64(0)
	if !c.FundsWithdrawn && account.Lamports > floor {
		withdrawable = account.Lamports - floor
	}

	return &CampaignDetails{
		Campaign:     *c,
		Balance:      account.Lamports,
		ReserveFloor: floor,
		Withdrawable: withdrawable,
		Stats:        stats,
	}, nil
}

// ListCampaignPledges returns a campaign's pledges, newest first.
func (s *CampaignService) ListCampaignPledges(ctx context.Context, address string, limit int) ([]*model.Pledge, error) {
	if _, err := s.CampaignRepo.GetCampaign(ctx, address); err != nil {
		return nil, err
	}
	return s.CampaignRepo.ListPledges(ctx, repository.PledgeFilter{Campaign: address, Limit: limit})
}

func (s *CampaignService) ListBackerPledges(ctx context.Context, backer string, limit int) ([]*model.Pledge, error) {
	return s.CampaignRepo.ListPledges(ctx, repository.PledgeFilter{Backer: backer, Limit: limit})
}

func (s *CampaignService) ListEvents(ctx context.Context, address string) ([]*model.Event, error) {
	if _, err := s.CampaignRepo.GetCampaign(ctx, address); err != nil {
		return nil, err
	}
	return s.CampaignRepo.ListEvents(ctx, address)
}
