package model

type Account struct {
	Address  string `db:"address" json:"address"`
	Lamports int64  `db:"lamports" json:"lamports"`
}

type Pledge struct {
	ID        string `db:"id" json:"id"`
	Campaign  string `db:"campaign" json:"campaign"`
	Backer    string `db:"backer" json:"backer"`
	Amount    int64  `db:"amount" json:"amount"`
	PledgedAt int64  `db:"pledged_at" json:"pledged_at"`
}
