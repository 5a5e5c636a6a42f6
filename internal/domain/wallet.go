package domain

import "time"

// Wallet Model
type Wallet struct {
	ID        uint      `gorm:"primaryKey" json:"id"`              // Primary key
	OwnerID   uint      `gorm:"index;not null" json:"owner_id"`    // Foreign key to the owning User
	Name      string    `gorm:"not null" json:"name"`              // Wallet display name
	Balance   float64   `gorm:"not null;default:0" json:"balance"` // Current balance, kept equal to the signed sum of its transactions
	CreatedAt time.Time `json:"created_at"`                        // Timestamp of creation
}

// WalletMember Model links users to the wallets they can operate on.
// The owner gets a row with role "owner" at creation time; shared users get "member".
type WalletMember struct {
	ID       uint   `gorm:"primaryKey" json:"id"`                                  // Primary key
	WalletID uint   `gorm:"uniqueIndex:idx_wallet_user;not null" json:"wallet_id"` // Foreign key to Wallet
	UserID   uint   `gorm:"uniqueIndex:idx_wallet_user;not null" json:"user_id"`   // Foreign key to User
	Role     string `gorm:"default:member" json:"role"`                            // Membership role: owner or member
}
