package api

import (
	"net/http"
	"os"            // File removal for replaced photos
	"path/filepath" // Upload path handling
	"strings"       // Name validation

	"securesave/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/google/uuid"     // Random upload filenames
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// GetProfileHandler returns the authenticated user's profile
func GetProfileHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var user domain.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"name":              user.Name,
			"email":             user.Email,
			"created_at":        user.CreatedAt,
			"profile_photo_url": user.ProfilePhotoURL,
		})
	}
}

// Request struct for profile updates
type UpdateProfileRequest struct {
	Name string `json:"name" binding:"required"` // New display name
}

// UpdateProfileHandler renames the authenticated user
func UpdateProfileHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req UpdateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil || len(strings.TrimSpace(req.Name)) < 3 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required and must be at least 3 characters."})
			return
		}
		if err := db.Model(&domain.User{}).Where("id = ?", userID).
			Update("name", strings.TrimSpace(req.Name)).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update name"})
			return
		}
		var user domain.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"name":              user.Name,
			"email":             user.Email,
			"created_at":        user.CreatedAt,
			"profile_photo_url": user.ProfilePhotoURL,
		})
	}
}

// UploadPhotoHandler stores an uploaded profile photo under a random filename
// and records its public URL. A previously uploaded photo is replaced.
func UploadPhotoHandler(db *gorm.DB, uploadDir, baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		file, err := c.FormFile("profile_photo")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded."})
			return
		}
		var user domain.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		if err := os.MkdirAll(uploadDir, 0o755); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error. Failed to store photo."})
			return
		}
		filename := uuid.NewString() + filepath.Ext(file.Filename)
		dst := filepath.Join(uploadDir, filename)
		if err := c.SaveUploadedFile(file, dst); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error. Failed to store photo."})
			return
		}
		photoURL := baseURL + "/uploads/" + filename
		if err := db.Model(&user).Update("profile_photo_url", photoURL).Error; err != nil {
			_ = os.Remove(dst) // Do not leave an unreferenced file behind
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error. Failed to save photo URL."})
			return
		}
		// Retire the replaced file, non-fatally
		if old := user.ProfilePhotoURL; old != nil {
			removeUploadedFile(uploadDir, *old)
		}
		c.JSON(http.StatusOK, gin.H{"message": "Profile photo updated successfully.", "profilePhotoUrl": photoURL})
	}
}

// DeletePhotoHandler removes the stored photo file and clears its URL.
// The file removal is best-effort; the database column is authoritative.
func DeletePhotoHandler(db *gorm.DB, uploadDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var user domain.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		if user.ProfilePhotoURL == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "No profile photo to delete."})
			return
		}
		removeUploadedFile(uploadDir, *user.ProfilePhotoURL)
		if err := db.Model(&user).Update("profile_photo_url", nil).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error: Failed to remove photo URL from database."})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Profile photo deleted successfully."})
	}
}

// removeUploadedFile deletes an uploaded file referenced by URL, logging
// instead of failing when the file is already gone
func removeUploadedFile(uploadDir, photoURL string) {
	path := filepath.Join(uploadDir, filepath.Base(photoURL))
	if err := os.Remove(path); err != nil {
		logrus.WithFields(logrus.Fields{
			"path":  path,
			"error": err.Error(),
		}).Warn("Could not delete profile photo file")
	}
}

// Request struct for settings updates
type UpdateSettingRequest struct {
	SettingName string `json:"settingName" binding:"required"` // Which setting to flip
	Value       bool   `json:"value"`                          // New value
}

// GetSettingsHandler returns the user's stored preferences
func GetSettingsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var user domain.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"dark_mode": user.DarkMode})
	}
}

// UpdateSettingHandler flips one of the allowed per-user settings
func UpdateSettingHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req UpdateSettingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Whitelist of settable columns
		if req.SettingName != "dark_mode" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid setting name"})
			return
		}
		if err := db.Model(&domain.User{}).Where("id = ?", userID).
			Update(req.SettingName, req.Value).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update setting"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Setting updated successfully"})
	}
}
