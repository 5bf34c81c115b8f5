package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
	"github.com/unclebandit/crowdfund-backend/internal/model"
)

const campaignColumns = `address, creator, title, description, goal, raised, backers,
        created_at, ends_at, active, canceled, funds_withdrawn, space`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(
		&c.Address, &c.Creator, &c.Title, &c.Description,
		&c.Goal, &c.Raised, &c.Backers,
		&c.CreatedAt, &c.EndsAt,
		&c.Active, &c.Canceled, &c.FundsWithdrawn, &c.Space,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ====================== Reads ======================

func (s *Store) GetCampaign(ctx context.Context, address string) (*model.Campaign, error) {
	query := s.rebind(`SELECT ` + campaignColumns + ` FROM campaigns WHERE address = ?`)
	c, err := scanCampaign(s.q().QueryRowContext(ctx, query, address))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(address)
		}
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (s *Store) ListCampaigns(ctx context.Context, offset, limit int, filter CampaignFilter) ([]*model.Campaign, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filter.Creator != "" {
		where += ` AND creator = ?`
		args = append(args, filter.Creator)
	}
	if filter.Active != nil {
		where += ` AND active = ?`
		args = append(args, *filter.Active)
	}

	query := s.rebind(`SELECT ` + campaignColumns + ` FROM campaigns` + where +
		` ORDER BY created_at DESC, address ASC LIMIT ? OFFSET ?`)
	rows, err := s.q().QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	countQuery := s.rebind(`SELECT COUNT(*) FROM campaigns` + where)
	if err := s.q().QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}
	return campaigns, total, nil
}

// ====================== Writes ======================

// LockCampaign loads a campaign and holds it for the rest of the transaction.
func (t *Tx) LockCampaign(ctx context.Context, address string) (*model.Campaign, error) {
	query := t.rebind(`SELECT ` + campaignColumns + ` FROM campaigns WHERE address = ?` + t.dialect.LockSuffix())
	c, err := scanCampaign(t.q().QueryRowContext(ctx, query, address))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(address)
		}
		return nil, fmt.Errorf("lock campaign: %w", err)
	}
	return c, nil
}

// IsCampaign reports whether a campaign lives at address, without locking it.
func (t *Tx) IsCampaign(ctx context.Context, address string) (bool, error) {
	var n int
	err := t.q().QueryRowContext(ctx, t.rebind(`SELECT COUNT(*) FROM campaigns WHERE address = ?`), address).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check campaign: %w", err)
	}
	return n > 0, nil
}

func (t *Tx) InsertCampaign(ctx context.Context, c *model.Campaign) error {
	query := t.rebind(`
        INSERT INTO campaigns (` + campaignColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `)
	_, err := t.q().ExecContext(ctx, query,
		c.Address, c.Creator, c.Title, c.Description,
		c.Goal, c.Raised, c.Backers,
		c.CreatedAt, c.EndsAt,
		c.Active, c.Canceled, c.FundsWithdrawn, c.Space,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return appErrors.ErrCampaignAlreadyExists
		}
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

// UpdateCampaign writes back the mutable parts of a campaign.
func (t *Tx) UpdateCampaign(ctx context.Context, c *model.Campaign) error {
	query := t.rebind(`
        UPDATE campaigns
        SET raised = ?, backers = ?, active = ?, canceled = ?, funds_withdrawn = ?
        WHERE address = ?
    `)
	res, err := t.q().ExecContext(ctx, query, c.Raised, c.Backers, c.Active, c.Canceled, c.FundsWithdrawn, c.Address)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	if n != 1 {
		return appErrors.NewCampaignNotFound(c.Address)
	}
	return nil
}
