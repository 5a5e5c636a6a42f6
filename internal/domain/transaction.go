package domain

import "time"

// Transaction Model — the append-only ledger record. Rows are never updated
// once written; balances are derived from their signed sum.
type Transaction struct {
	ID          uint      `gorm:"primaryKey" json:"id"`          // Primary key
	UserID      uint      `gorm:"index;not null" json:"user_id"` // Acting user
	WalletID    *uint     `gorm:"index" json:"wallet_id"`        // Wallet the movement applies to, nil for goal movements
	Type        string    `gorm:"not null" json:"type"`          // Transaction type: deposit or withdrawal
	Amount      float64   `gorm:"not null" json:"amount"`        // Amount moved, always > 0
	Description string    `json:"description"`                   // Free-text description
	Category    string    `json:"category"`                      // Category: General, Savings, Transfer, ...
	CreatedAt   time.Time `json:"created_at"`                    // Timestamp of the movement
}
