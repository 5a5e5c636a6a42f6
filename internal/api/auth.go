package api

import (
	"net/http" // HTTP status codes
	"time"     // Token expiry timestamps

	"securesave/internal/domain" // Importing domain models
	"securesave/internal/mail"   // Outgoing mail
	"securesave/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// Request struct for registration
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`           // Display name must be provided
	Email    string `json:"email" binding:"required,email"`    // Valid email must be provided
	Password string `json:"password" binding:"required,min=8"` // Password must be at least 8 characters
}

// Request struct for login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"` // Email must be provided
	Password string `json:"password" binding:"required"`    // Password must be provided
}

// Response struct for authentication
type AuthResponse struct {
	Token string `json:"token"` // JWT token
	Role  string `json:"role"`  // Role embedded in the token
}

// RegisterHandler creates a new user account
func RegisterHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Hash the password and create the user
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		user := domain.User{Name: req.Name, Email: req.Email, Password: string(hash), Role: "user"}
		if err := db.Create(&user).Error; err != nil {
			// The unique index on email is the duplicate check
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email already exists"})
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id": user.ID,
			"email":   user.Email,
		}).Info("User registered")
		c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully"})
	}
}

// LoginHandler authenticates a user and returns a JWT token carrying
// the user id and role, valid for 1 hour
func LoginHandler(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var user domain.User // Fetch user from database
		if err := db.Where("email = ?", req.Email).First(&user).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credentials"})
			return
		}
		// Compare provided password with stored hash
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credentials"})
			return
		}
		token, err := utils.GenerateJWT(user.ID, user.Role, jwtSecret)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		c.JSON(http.StatusOK, AuthResponse{Token: token, Role: user.Role})
	}
}

// Request struct for the forgot-password flow
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"` // Email must be provided
}

// Request struct for completing a password reset
type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`       // Account email
	Token       string `json:"token" binding:"required"`             // Reset token from the email link
	NewPassword string `json:"newPassword" binding:"required,min=8"` // Replacement password
}

// ForgotPasswordHandler issues a password-reset token. The response is the
// same whether or not the account exists, so the endpoint cannot be used to
// probe for registered emails.
func ForgotPasswordHandler(db *gorm.DB, mailer *mail.Mailer, baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ForgotPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		genericMsg := "A password reset link has been sent to your email address (if it exists)."
		var user domain.User
		if err := db.Where("email = ?", req.Email).First(&user).Error; err != nil {
			c.JSON(http.StatusOK, gin.H{"message": genericMsg})
			return
		}
		token, err := utils.RandomHex(20) // 40-char hex token
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate reset token"})
			return
		}
		expires := time.Now().Add(time.Hour) // Token is valid for 1 hour
		if err := db.Model(&user).Updates(map[string]any{
			"reset_password_token":   token,
			"reset_password_expires": expires,
		}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save reset token"})
			return
		}
		resetLink := baseURL + "/reset-password?email=" + user.Email + "&token=" + token
		// A delivery failure must not change the response, or the endpoint
		// would reveal which emails have accounts
		if err := mailer.SendPasswordReset(user.Email, user.Name, resetLink); err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": user.ID,
				"error":   err.Error(),
			}).Error("Failed to send reset email")
		}
		c.JSON(http.StatusOK, gin.H{"message": genericMsg})
	}
}

// ResetPasswordHandler replaces the password when a valid, unexpired token
// is presented, then clears the token columns
func ResetPasswordHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var user domain.User
		if err := db.Where("email = ? AND reset_password_token = ? AND reset_password_expires > ?",
			req.Email, req.Token, time.Now()).First(&user).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password reset token is invalid or has expired."})
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		// Replace the hash and clear the token in one update
		if err := db.Model(&user).Updates(map[string]any{
			"password":               string(hash),
			"reset_password_token":   nil,
			"reset_password_expires": nil,
		}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error resetting password."})
			return
		}
		logrus.WithFields(logrus.Fields{"user_id": user.ID}).Info("Password reset completed")
		c.JSON(http.StatusOK, gin.H{"message": "Password has been reset successfully."})
	}
}

// Request struct for an authenticated password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`   // Existing password
	NewPassword     string `json:"newPassword" binding:"required,min=8"` // Replacement password
}

// ChangePasswordHandler lets an authenticated user rotate their password
func ChangePasswordHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req ChangePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var user domain.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid current password"})
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		if err := db.Model(&user).Update("password", string(hash)).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
	}
}
