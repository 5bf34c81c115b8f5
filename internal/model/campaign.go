package model

import (
	"math"
	"strings"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
	"github.com/unclebandit/crowdfund-backend/internal/rent"
)

// CampaignNamespace scopes the name-based UUIDs used as campaign addresses.
var CampaignNamespace = uuid.MustParse("6f1c1f4e-3d4b-5e8a-9c41-0b7f2a9d8e31")

const addressSeed = "campaign"

type Campaign struct {
	Address        string `db:"address" json:"address"`
	Creator        string `db:"creator" json:"creator"`
	Title          string `db:"title" json:"title"`
	Description    string `db:"description" json:"description"`
	Goal           int64  `db:"goal" json:"goal"`
	Raised         int64  `db:"raised" json:"raised"`
	Backers        int64  `db:"backers" json:"backers"`
	CreatedAt      int64  `db:"created_at" json:"created_at"`
	EndsAt         int64  `db:"ends_at" json:"ends_at"`
	Active         bool   `db:"active" json:"active"`
	Canceled       bool   `db:"canceled" json:"canceled"`
	FundsWithdrawn bool   `db:"funds_withdrawn" json:"funds_withdrawn"`
	Space          int    `db:"space" json:"space"`
}

// CampaignAddress derives the address of the campaign a creator opens under a title.
func CampaignAddress(creator, title string) string {
	seed := addressSeed + "\x00" + creator + "\x00" + title
	return uuid.NewSHA1(CampaignNamespace, []byte(seed)).String()
}

// NewCampaign validates creation parameters and returns the initial record.
func NewCampaign(creator, title, description string, goal, duration, now int64) (*Campaign, error) {
	if strings.TrimSpace(creator) == "" {
		return nil, appErrors.InvalidInput("creator is required")
	}
	if title == "" {
		return nil, appErrors.InvalidInput("title is empty")
	}
	if description == "" {
		return nil, appErrors.InvalidInput("description is empty")
	}
	if goal <= 0 {
		return nil, appErrors.InvalidInput("goal must be positive")
	}
	if duration <= 0 {
		return nil, appErrors.InvalidInput("duration must be positive")
	}
	if len(title) > rent.MaxTitleLen {
		return nil, appErrors.InvalidInput("title exceeds %d bytes", rent.MaxTitleLen)
	}
	space := rent.CampaignSpace(title, description)
	if space > rent.MaxAccountSpace {
		return nil, appErrors.InvalidInput("account space %d exceeds %d bytes", space, rent.MaxAccountSpace)
	}
	if now > math.MaxInt64-duration {
		return nil, appErrors.InvalidInput("duration overflows end time")
	}

	return &Campaign{
		Address:     CampaignAddress(creator, title),
		Creator:     creator,
		Title:       title,
		Description: description,
		Goal:        goal,
		CreatedAt:   now,
		EndsAt:      now + duration,
		Active:      true,
		Space:       space,
	}, nil
}

// AcceptsPledges reports whether a pledge made at now would be accepted.
func (c *Campaign) AcceptsPledges(now int64) bool {
	return c.Active && !c.Canceled && now < c.EndsAt
}

// CheckPledge validates a pledge without mutating the campaign.
func (c *Campaign) CheckPledge(amount, now int64) error {
	if !c.AcceptsPledges(now) {
		return appErrors.ErrCampaignNotActive
	}
	if amount < 0 {
		return appErrors.InvalidInput("amount must not be negative")
	}
	if c.Raised > math.MaxInt64-amount {
		return appErrors.InvalidInput("raised amount overflows")
	}
	return nil
}

// ApplyPledge records a pledge and reports whether it reached the goal.
// The campaign goes inactive in the same step the goal is reached.
func (c *Campaign) ApplyPledge(amount, now int64) (goalReached bool, err error) {
	if err := c.CheckPledge(amount, now); err != nil {
		return false, err
	}
	c.Raised += amount
	c.Backers++
	if c.Raised >= c.Goal {
		c.Active = false
		return true, nil
	}
	return false, nil
}

// Cancel stops the campaign and marks it canceled.
func (c *Campaign) Cancel(caller string) error {
	if err := c.checkCreatorActive(caller); err != nil {
		return err
	}
	c.Active = false
	c.Canceled = true
	return nil
}

// End stops the campaign without canceling it.
func (c *Campaign) End(caller string) error {
	if err := c.checkCreatorActive(caller); err != nil {
		return err
	}
	c.Active = false
	return nil
}

func (c *Campaign) checkCreatorActive(caller string) error {
	if caller != c.Creator {
		return appErrors.ErrUnauthorized
	}
	if !c.Active {
		return appErrors.ErrCampaignNotActive
	}
	return nil
}

// Withdrawable computes what the creator may take out of a held balance,
// leaving floor behind. Independent of activity, cancellation and end time.
func (c *Campaign) Withdrawable(caller string, balance, floor int64) (int64, error) {
	if caller != c.Creator {
		return 0, appErrors.ErrUnauthorized
	}
	if c.FundsWithdrawn {
		return 0, appErrors.ErrFundsAlreadyWithdrawn
	}
	if balance <= 0 {
		return 0, appErrors.InsufficientFunds("campaign holds no funds")
	}
	if balance <= floor {
		return 0, appErrors.InsufficientFunds("balance %d does not exceed reserve floor %d", balance, floor)
	}
	return balance - floor, nil
}
