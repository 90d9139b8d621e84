package models

import "time"

// Transaction types form a closed set; nothing else is ever written
// to the ledger.
const (
	TxTypePurchase  = "PURCHASE"
	TxTypeDeduction = "DEDUCTION"
	TxTypeRefund    = "REFUND"
)

// InitialCredits is the free-tier grant a user receives when their
// record is lazily created on first balance read. The grant is not
// itself a transaction: the ledger invariant for every user is
// InitialCredits + SUM(amount) == credits.
const InitialCredits int64 = 15

// CreditTransaction is the model for the 'credit_transactions' table.
// Rows are append-only and immutable once written.
type CreditTransaction struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"userId" db:"user_id"`
	Amount      int64     `json:"amount" db:"amount"` // negative for DEDUCTION, positive otherwise
	Type        string    `json:"type" db:"type"`
	Description string    `json:"description" db:"description"`
	Reference   *string   `json:"reference,omitempty" db:"reference"` // external correlation id, PURCHASE only
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// CreditPackage describes a purchasable credit bundle.
type CreditPackage struct {
	ID            string  `json:"id"`
	Credits       int64   `json:"credits"`
	Price         float64 `json:"price"` // USD
	Name          string  `json:"name"`
	StripePriceID string  `json:"stripePriceId"`
}

// CreditPackages are the bundles offered at checkout. The webhook maps
// a completed session back to credits by its amount.
var CreditPackages = []CreditPackage{
	{ID: "basic", Credits: 10, Price: 1.99, Name: "Basic Pack", StripePriceID: "price_1QQdixFLmjK5620zB4pBnHqd"},
	{ID: "popular", Credits: 25, Price: 3.99, Name: "Popular Pack", StripePriceID: "price_1QQdjuFLmjK5620zkNHkpcPE"},
	{ID: "premium", Credits: 60, Price: 7.99, Name: "Premium Pack", StripePriceID: "price_1QQdlBFLmjK5620zTwrUJmd5"},
}

// PackageByPriceID looks up a package by its Stripe price id.
func PackageByPriceID(priceID string) (CreditPackage, bool) {
	for _, p := range CreditPackages {
		if p.StripePriceID == priceID {
			return p, true
		}
	}
	return CreditPackage{}, false
}

// CreditsForAmount maps a checkout total (in cents) to the credits of
// the matching package. Unknown amounts yield 0 so the webhook never
// grants credits for a payment it cannot attribute.
func CreditsForAmount(amountCents int64) int64 {
	for _, p := range CreditPackages {
		if int64(p.Price*100+0.5) == amountCents {
			return p.Credits
		}
	}
	return 0
}
