package domain

type Supplier struct {
	ID        int64   `db:"id" json:"id"`
	Name      string  `db:"name" json:"name"`
	TaxID     *string `db:"tax_id" json:"tax_id,omitempty"`
	Email     *string `db:"email" json:"email,omitempty"`
	Phone     *string `db:"phone" json:"phone,omitempty"`
	Address   string  `db:"address" json:"address"`
	Active    bool    `db:"active" json:"active"`
	CreatedAt string  `db:"created_at" json:"created_at"`
}
