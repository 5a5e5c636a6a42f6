package domain

import "time"

// User Model
type User struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`           // Primary key
	Name                 string     `gorm:"not null" json:"name"`           // Display name
	Email                string     `gorm:"unique;not null" json:"email"`   // Unique login email
	Password             string     `gorm:"not null" json:"-"`              // Hashed password
	Role                 string     `gorm:"default:user" json:"role"`       // Role: user or admin
	ProfilePhotoURL      *string    `json:"profile_photo_url"`              // Public URL of the uploaded photo, nil when unset
	DarkMode             bool       `gorm:"default:false" json:"dark_mode"` // Dashboard dark-mode preference
	ResetPasswordToken   *string    `gorm:"size:64" json:"-"`               // Pending password-reset token, nil when unset
	ResetPasswordExpires *time.Time `json:"-"`                              // Expiry of the pending reset token
	CreatedAt            time.Time  `json:"created_at"`                     // Timestamp of registration
}
