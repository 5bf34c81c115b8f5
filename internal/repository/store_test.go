package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/crowdfund-backend/internal/db"
	"github.com/unclebandit/crowdfund-backend/internal/db/dbtest"
	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
	"github.com/unclebandit/crowdfund-backend/internal/model"
	"github.com/unclebandit/crowdfund-backend/internal/repository"
)

const t0 = int64(1_700_000_000)

func newStore(t *testing.T) *repository.Store {
	t.Helper()
	return repository.NewStore(dbtest.Open(t), db.SQLite)
}

func seedCampaign(t *testing.T, s *repository.Store, creator, title string) *model.Campaign {
	t.Helper()
	c, err := model.NewCampaign(creator, title, "description", 1000, 3600, t0)
	require.NoError(t, err)
	require.NoError(t, s.WithTx(context.Background(), func(tx repository.LedgerTx) error {
		return tx.InsertCampaign(context.Background(), c)
	}))
	return c
}

func credit(t *testing.T, s *repository.Store, address string, lamports int64) {
	t.Helper()
	require.NoError(t, s.WithTx(context.Background(), func(tx repository.LedgerTx) error {
		return tx.Credit(context.Background(), address, lamports)
	}))
}

func TestCampaignRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	c := seedCampaign(t, s, "alice", "Bikes")

	got, err := s.GetCampaign(ctx, c.Address)
	require.NoError(t, err)
	assert.Equal(t, c, got)

	require.NoError(t, s.WithTx(ctx, func(tx repository.LedgerTx) error {
		locked, err := tx.LockCampaign(ctx, c.Address)
		if err != nil {
			return err
		}
		locked.Raised = 700
		locked.Backers = 2
		locked.Active = false
		locked.Canceled = true
		return tx.UpdateCampaign(ctx, locked)
	}))

	got, err = s.GetCampaign(ctx, c.Address)
	require.NoError(t, err)
	assert.Equal(t, int64(700), got.Raised)
	assert.Equal(t, int64(2), got.Backers)
	assert.False(t, got.Active)
	assert.True(t, got.Canceled)
	assert.False(t, got.FundsWithdrawn)
}

func TestGetCampaignNotFound(t *testing.T) {
	s := newStore(t)

	_, err := s.GetCampaign(context.Background(), "missing")
	var nf *appErrors.ErrCampaignNotFound
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing", nf.Address)
}

func TestInsertCampaignDuplicate(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	c := seedCampaign(t, s, "alice", "Bikes")

	err := s.WithTx(ctx, func(tx repository.LedgerTx) error {
		return tx.InsertCampaign(ctx, c)
	})
	assert.ErrorIs(t, err, appErrors.ErrCampaignAlreadyExists)
}

func TestListCampaignsFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	for _, title := range []string{"a", "b", "c", "d", "e"} {
		seedCampaign(t, s, "alice", title)
	}
	bob := seedCampaign(t, s, "bob", "x")
	require.NoError(t, s.WithTx(ctx, func(tx repository.LedgerTx) error {
		bob.Active = false
		return tx.UpdateCampaign(ctx, bob)
	}))

	page, total, err := s.ListCampaigns(ctx, 0, 2, repository.CampaignFilter{Creator: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, page, 2)

	seen := map[string]bool{}
	for offset := 0; offset < total; offset += 2 {
		page, _, err := s.ListCampaigns(ctx, offset, 2, repository.CampaignFilter{Creator: "alice"})
		require.NoError(t, err)
		for _, c := range page {
			assert.False(t, seen[c.Address], "duplicate %s", c.Address)
			seen[c.Address] = true
		}
	}
	assert.Len(t, seen, 5)

	inactive := false
	page, total, err = s.ListCampaigns(ctx, 0, 10, repository.CampaignFilter{Active: &inactive})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, page, 1)
	assert.Equal(t, bob.Address, page[0].Address)
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	credit(t, s, "alice", 1000)

	require.NoError(t, s.WithTx(ctx, func(tx repository.LedgerTx) error {
		return tx.Transfer(ctx, "alice", "bob", 400)
	}))

	alice, err := s.GetAccount(ctx, "alice")
	require.NoError(t, err)
	bob, err := s.GetAccount(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(600), alice.Lamports)
	assert.Equal(t, int64(400), bob.Lamports)

	err = s.WithTx(ctx, func(tx repository.LedgerTx) error {
		return tx.Transfer(ctx, "alice", "bob", 601)
	})
	assert.ErrorIs(t, err, appErrors.ErrInsufficientFunds)

	err = s.WithTx(ctx, func(tx repository.LedgerTx) error {
		return tx.Transfer(ctx, "nobody", "bob", 1)
	})
	assert.ErrorIs(t, err, appErrors.ErrInsufficientFunds)

	alice, err = s.GetAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(600), alice.Lamports)
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	credit(t, s, "alice", 1000)
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx repository.LedgerTx) error {
		if err := tx.Transfer(ctx, "alice", "bob", 700); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.Panics(t, func() {
		_ = s.WithTx(ctx, func(tx repository.LedgerTx) error {
			_ = tx.Transfer(ctx, "alice", "bob", 300)
			panic("mid-transaction")
		})
	})

	alice, err := s.GetAccount(ctx, "alice")
	require.NoError(t, err)
	bob, err := s.GetAccount(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), alice.Lamports)
	assert.Equal(t, int64(0), bob.Lamports)
}

func TestPledgesAndStats(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	c := seedCampaign(t, s, "alice", "Bikes")

	day := int64(86400)
	pledges := []*model.Pledge{
		{ID: "p1", Campaign: c.Address, Backer: "bob", Amount: 100, PledgedAt: t0},
		{ID: "p2", Campaign: c.Address, Backer: "bob", Amount: 50, PledgedAt: t0 + 10},
		{ID: "p3", Campaign: c.Address, Backer: "carol", Amount: 25, PledgedAt: t0 + day},
	}
	require.NoError(t, s.WithTx(ctx, func(tx repository.LedgerTx) error {
		for _, p := range pledges {
			if err := tx.InsertPledge(ctx, p); err != nil {
				return err
			}
		}
		return nil
	}))

	byBob, err := s.ListPledges(ctx, repository.PledgeFilter{Backer: "bob"})
	require.NoError(t, err)
	require.Len(t, byBob, 2)
	assert.Equal(t, "p2", byBob[0].ID)

	limited, err := s.ListPledges(ctx, repository.PledgeFilter{Campaign: c.Address, Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "p3", limited[0].ID)

	stats, err := s.GetCampaignStats(ctx, c.Address)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Pledges)
	assert.Equal(t, int64(175), stats.TotalPledged)
	assert.Equal(t, int64(2), stats.UniqueBackers)
	require.Len(t, stats.DailyFunding, 2)
	assert.Equal(t, time.Unix(t0, 0).UTC().Format(time.DateOnly), stats.DailyFunding[0].Date)
	assert.Equal(t, int64(150), stats.DailyFunding[0].Amount)
	assert.Equal(t, int64(25), stats.DailyFunding[1].Amount)

	empty, err := s.GetCampaignStats(ctx, "nothing")
	require.NoError(t, err)
	assert.Equal(t, int64(0), empty.TotalPledged)
	assert.Empty(t, empty.DailyFunding)
}

func TestEventOutbox(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	now := time.Unix(t0, 0)

	first, err := model.NewEvent(model.EventGoalReached, "c1", model.GoalReachedEvent{Campaign: "c1", Goal: 10, Raised: 12}, now)
	require.NoError(t, err)
	second, err := model.NewEvent(model.EventPledge, "c1", model.PledgeEvent{Campaign: "c1", Backer: "bob", Amount: 12}, now)
	require.NoError(t, err)

	require.NoError(t, s.WithTx(ctx, func(tx repository.LedgerTx) error {
		if err := tx.InsertEvent(ctx, first); err != nil {
			return err
		}
		return tx.InsertEvent(ctx, second)
	}))
	assert.Less(t, first.Seq, second.Seq)

	events, err := s.ListEvents(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.EventGoalReached, events[0].Kind)
	assert.JSONEq(t, `{"campaign":"c1","goal":10,"raised":12}`, string(events[0].Payload))

	require.NoError(t, s.UpdateEventStatus(ctx, first.ID, model.EventStatusSent, ""))
	require.NoError(t, s.UpdateEventStatus(ctx, second.ID, model.EventStatusFailed, "broker down"))

	pending, err := s.ListPendingEvents(ctx, 10, 3)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)
	assert.Equal(t, 1, pending[0].RetryCount)
	assert.Equal(t, "broker down", pending[0].LastError)

	pending, err = s.ListPendingEvents(ctx, 10, 1)
	require.NoError(t, err)
	assert.Empty(t, pending)

	missing, err := s.GetEventByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestLockAccountsOpensRows(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	credit(t, s, "alice", 50)

	require.NoError(t, s.WithTx(ctx, func(tx repository.LedgerTx) error {
		return tx.LockAccounts(ctx, "carol", "alice", "carol")
	}))

	var n int
	require.NoError(t, s.DB.QueryRow(`SELECT COUNT(*) FROM accounts`).Scan(&n))
	assert.Equal(t, 2, n)
	alice, err := s.GetAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(50), alice.Lamports)
}

func TestIsCampaign(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	c := seedCampaign(t, s, "alice", "Bikes")

	require.NoError(t, s.WithTx(ctx, func(tx repository.LedgerTx) error {
		yes, err := tx.IsCampaign(ctx, c.Address)
		require.NoError(t, err)
		assert.True(t, yes)

		no, err := tx.IsCampaign(ctx, "alice")
		require.NoError(t, err)
		assert.False(t, no)
		return nil
	}))
}
