package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/unclebandit/crowdfund-backend/internal/model"
)

const secondsPerDay = 86400

func (t *Tx) InsertPledge(ctx context.Context, p *model.Pledge) error {
	query := t.rebind(`
        INSERT INTO pledges (id, campaign, backer, amount, pledged_at)
        VALUES (?, ?, ?, ?, ?)
    `)
	if _, err := t.q().ExecContext(ctx, query, p.ID, p.Campaign, p.Backer, p.Amount, p.PledgedAt); err != nil {
		return fmt.Errorf("insert pledge: %w", err)
	}
	return nil
}

// ListPledges returns pledges newest first, filtered by campaign and/or backer.
func (s *Store) ListPledges(ctx context.Context, filter PledgeFilter) ([]*model.Pledge, error) {
	query := `SELECT id, campaign, backer, amount, pledged_at FROM pledges WHERE 1=1`
	args := []any{}
	if filter.Campaign != "" {
		query += ` AND campaign = ?`
		args = append(args, filter.Campaign)
	}
	if filter.Backer != "" {
		query += ` AND backer = ?`
		args = append(args, filter.Backer)
	}
	query += ` ORDER BY pledged_at DESC, id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.q().QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list pledges: %w", err)
	}
	defer rows.Close()

	pledges := []*model.Pledge{}
	for rows.Next() {
		var p model.Pledge
		if err := rows.Scan(&p.ID, &p.Campaign, &p.Backer, &p.Amount, &p.PledgedAt); err != nil {
			return nil, fmt.Errorf("scan pledge: %w", err)
		}
		pledges = append(pledges, &p)
	}
	return pledges, rows.Err()
}

// GetCampaignStats aggregates the pledge history of a campaign.
func (s *Store) GetCampaignStats(ctx context.Context, address string) (*CampaignStats, error) {
	stats := &CampaignStats{DailyFunding: []DailyAmount{}}

	totals := s.rebind(`
        SELECT COUNT(*), COALESCE(SUM(amount), 0), COUNT(DISTINCT backer)
        FROM pledges WHERE campaign = ?
    `)
	if err := s.q().QueryRowContext(ctx, totals, address).Scan(&stats.Pledges, &stats.TotalPledged, &stats.UniqueBackers); err != nil {
		return nil, fmt.Errorf("pledge totals: %w", err)
	}

	daily := s.rebind(`
        SELECT pledged_at / ` + fmt.Sprint(secondsPerDay) + ` AS day, SUM(amount)
        FROM pledges WHERE campaign = ?
        GROUP BY day ORDER BY day
    `)
	rows, err := s.q().QueryContext(ctx, daily, address)
	if err != nil {
		return nil, fmt.Errorf("daily funding: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var day, amount int64
		if err := rows.Scan(&day, &amount); err != nil {
			return nil, fmt.Errorf("scan daily funding: %w", err)
		}
		stats.DailyFunding = append(stats.DailyFunding, DailyAmount{
			Date:   time.Unix(day*secondsPerDay, 0).UTC().Format(time.DateOnly),
			Amount: amount,
		})
	}
	return stats, rows.Err()
}
