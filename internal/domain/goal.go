package domain

import "time"

// Goal Model
type Goal struct {
	ID            uint      `gorm:"primaryKey" json:"id"`                     // Primary key
	UserID        uint      `gorm:"index;not null" json:"user_id"`            // Foreign key to the owning User
	Name          string    `gorm:"not null" json:"name"`                     // Goal display name
	TargetAmount  float64   `gorm:"not null" json:"target_amount"`            // Savings target, always > 0
	CurrentAmount float64   `gorm:"not null;default:0" json:"current_amount"` // Saved so far, never exceeds TargetAmount
	CreatedAt     time.Time `json:"created_at"`                               // Timestamp of creation
}
